// Package probe runs a corpus of sample strings through a tokenizer and
// reports pieces, ids and the decoded round trip for each one.
package probe

import (
	"context"
	"fmt"

	"github.com/samcharles93/spmcheck/internal/logger"
)

// Tokenizer is the subset of a SentencePiece processor the probe calls.
type Tokenizer interface {
	EncodeAsPieces(text string) []string
	EncodeAsIDs(text string) []int
	Decode(ids []int) (string, error)
}

// Case is the result for one sample.
type Case struct {
	Text      string   `json:"text"`
	Pieces    []string `json:"pieces"`
	IDs       []int    `json:"ids"`
	Decoded   string   `json:"decoded"`
	RoundTrip bool     `json:"round_trip"`
	// Mismatch is set when pieces and ids disagree in length.
	Mismatch bool `json:"mismatch,omitempty"`
}

type Report struct {
	Model string `json:"model,omitempty"`
	Cases []Case `json:"cases"`
}

type Summary struct {
	Cases      int `json:"cases"`
	RoundTrips int `json:"round_trips"`
	Tokens     int `json:"tokens"`
	Mismatches int `json:"mismatches"`
}

func (r *Report) Summary() Summary {
	var s Summary
	for _, c := range r.Cases {
		s.Cases++
		s.Tokens += len(c.IDs)
		if c.RoundTrip {
			s.RoundTrips++
		}
		if c.Mismatch {
			s.Mismatches++
		}
	}
	return s
}

// Run encodes each sample as pieces and as ids, then decodes the ids. Samples
// are processed in order; cancellation is checked between samples.
func Run(ctx context.Context, tok Tokenizer, corpus []string) (*Report, error) {
	log := logger.FromContext(ctx)

	report := &Report{Cases: make([]Case, 0, len(corpus))}
	for i, text := range corpus {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, err := RunCase(tok, text)
		if err != nil {
			return nil, fmt.Errorf("sample %d (%q): %w", i, text, err)
		}
		if c.Mismatch {
			log.Warn("pieces and ids differ in length", "sample", i, "pieces", len(c.Pieces), "ids", len(c.IDs))
		}
		log.Debug("probed sample", "sample", i, "tokens", len(c.IDs), "round_trip", c.RoundTrip)
		report.Cases = append(report.Cases, c)
	}
	return report, nil
}

// RunCase probes a single sample.
func RunCase(tok Tokenizer, text string) (Case, error) {
	pieces := tok.EncodeAsPieces(text)
	ids := tok.EncodeAsIDs(text)
	decoded, err := tok.Decode(ids)
	if err != nil {
		return Case{}, err
	}
	if pieces == nil {
		pieces = []string{}
	}
	if ids == nil {
		ids = []int{}
	}
	return Case{
		Text:      text,
		Pieces:    pieces,
		IDs:       ids,
		Decoded:   decoded,
		RoundTrip: decoded == text,
		Mismatch:  len(pieces) != len(ids),
	}, nil
}
