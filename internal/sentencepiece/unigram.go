package sentencepiece

// unkPenalty is subtracted from the lowest piece score to price characters
// the vocabulary does not cover.
const unkPenalty = 10.0

type lattice struct {
	score float64
	start int
	known bool
	ok    bool
}

// segmentUnigram returns the Viterbi segmentation of s. Adjacent characters
// that no piece covers are merged into a single unknown piece.
func (p *Processor) segmentUnigram(s string) []string {
	chars := splitChars(s)
	n := len(chars)
	if n == 0 {
		return nil
	}

	// offsets[i] is the byte offset of chars[i]; offsets[n] == len(s).
	offsets := make([]int, n+1)
	for i, c := range chars {
		offsets[i+1] = offsets[i] + len(c)
	}

	unkScore := float64(p.minScore) - unkPenalty
	best := make([]lattice, n+1)
	best[0] = lattice{ok: true}

	for i := 0; i < n; i++ {
		if !best[i].ok {
			continue
		}
		covered := false
		for j := i + 1; j <= n && j-i <= p.maxPieceRunes; j++ {
			id, ok := p.pieces[s[offsets[i]:offsets[j]]]
			if !ok {
				continue
			}
			piece := p.model.Pieces[id]
			if piece.Type != TypeNormal && piece.Type != TypeUserDefined {
				continue
			}
			if j == i+1 {
				covered = true
			}
			score := best[i].score + float64(piece.Score)
			if !best[j].ok || score > best[j].score {
				best[j] = lattice{score: score, start: i, known: true, ok: true}
			}
		}
		if !covered {
			score := best[i].score + unkScore
			if !best[i+1].ok || score > best[i+1].score {
				best[i+1] = lattice{score: score, start: i, known: false, ok: true}
			}
		}
	}

	type span struct {
		start, end int
		known      bool
	}
	var spans []span
	for end := n; end > 0; {
		node := best[end]
		spans = append(spans, span{start: node.start, end: end, known: node.known})
		end = node.start
	}

	pieces := make([]string, 0, len(spans))
	for i := len(spans) - 1; i >= 0; i-- {
		sp := spans[i]
		text := s[offsets[sp.start]:offsets[sp.end]]
		if !sp.known && len(pieces) > 0 && i+1 < len(spans) && !spans[i+1].known {
			pieces[len(pieces)-1] += text
			continue
		}
		pieces = append(pieces, text)
	}
	return pieces
}
