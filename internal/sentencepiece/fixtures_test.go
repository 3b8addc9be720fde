package sentencepiece

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fixtureOption func(*Model)

func withByteFallback() fixtureOption {
	return func(m *Model) {
		m.Trainer.ByteFallback = true
		for b := 0; b < 256; b++ {
			m.Pieces = append(m.Pieces, Piece{Piece: BytePiece(byte(b)), Type: TypeByte})
		}
	}
}

func withUserDefined(symbols ...string) fixtureOption {
	return func(m *Model) {
		for _, s := range symbols {
			m.Pieces = append(m.Pieces, Piece{Piece: s, Type: TypeUserDefined})
		}
	}
}

func withNormalizer(name string) fixtureOption {
	return func(m *Model) {
		m.Normalizer.Name = name
	}
}

func withPieces(pieces ...Piece) fixtureOption {
	return func(m *Model) {
		m.Pieces = append(m.Pieces, pieces...)
	}
}

var fixtureChars = []string{
	"▁", "H", "e", "l", "o", "w", "r", "d", "!", "T", "s", "t", "i", "n", "g",
	"1", "2", "3", "p", "a", "c", "h",
}

// newBPEModel builds a small BPE vocabulary in which "▁Hello" and "▁world"
// are reachable by merges with strictly decreasing scores.
func newBPEModel(opts ...fixtureOption) *Model {
	m := &Model{
		Trainer:    DefaultTrainerSpec(),
		Normalizer: DefaultNormalizerSpec(),
	}
	m.Trainer.ModelType = ModelBPE
	m.Normalizer.Name = "identity"
	m.Pieces = []Piece{
		{Piece: "<unk>", Type: TypeUnknown},
		{Piece: "<s>", Type: TypeControl},
		{Piece: "</s>", Type: TypeControl},
		{Piece: "ll", Score: -1, Type: TypeNormal},
		{Piece: "He", Score: -2, Type: TypeNormal},
		{Piece: "llo", Score: -3, Type: TypeNormal},
		{Piece: "Hello", Score: -4, Type: TypeNormal},
		{Piece: "▁Hello", Score: -5, Type: TypeNormal},
		{Piece: "or", Score: -6, Type: TypeNormal},
		{Piece: "wor", Score: -7, Type: TypeNormal},
		{Piece: "ld", Score: -8, Type: TypeNormal},
		{Piece: "world", Score: -9, Type: TypeNormal},
		{Piece: "▁world", Score: -10, Type: TypeNormal},
	}
	for i, c := range fixtureChars {
		m.Pieces = append(m.Pieces, Piece{Piece: c, Score: float32(-20 - i), Type: TypeNormal})
	}
	for _, opt := range opts {
		opt(m)
	}
	m.Trainer.VocabSize = int32(len(m.Pieces))
	return m
}

// newUnigramModel builds a unigram vocabulary where "▁Hello" beats its
// sub-pieces.
func newUnigramModel(opts ...fixtureOption) *Model {
	m := &Model{
		Trainer:    DefaultTrainerSpec(),
		Normalizer: DefaultNormalizerSpec(),
	}
	m.Normalizer.Name = "nmt_nfkc"
	m.Pieces = []Piece{
		{Piece: "<unk>", Type: TypeUnknown},
		{Piece: "<s>", Type: TypeControl},
		{Piece: "</s>", Type: TypeControl},
		{Piece: "▁Hello", Score: -1, Type: TypeNormal},
		{Piece: "▁He", Score: -2, Type: TypeNormal},
		{Piece: "llo", Score: -2, Type: TypeNormal},
	}
	for _, c := range fixtureChars {
		m.Pieces = append(m.Pieces, Piece{Piece: c, Score: -5, Type: TypeNormal})
	}
	for _, opt := range opts {
		opt(m)
	}
	m.Trainer.VocabSize = int32(len(m.Pieces))
	return m
}

func newTestProcessor(t *testing.T, m *Model) *Processor {
	t.Helper()
	p, err := NewProcessor(m)
	require.NoError(t, err)
	return p
}

func idsOf(p *Processor, pieces ...string) []int {
	ids := make([]int, len(pieces))
	for i, piece := range pieces {
		ids[i] = p.PieceToID(piece)
	}
	return ids
}
