package sentencepiece

import (
	queue "github.com/emirpasic/gods/queues/priorityqueue"
)

type symbol struct {
	prev, next int
	text       string
}

type candidate struct {
	left, right int
	text        string
	score       float32
}

// byScore orders candidates highest score first, leftmost first on ties.
func byScore(a, b any) int {
	ca, cb := a.(*candidate), b.(*candidate)
	switch {
	case ca.score > cb.score:
		return -1
	case ca.score < cb.score:
		return 1
	case ca.left < cb.left:
		return -1
	case ca.left > cb.left:
		return 1
	}
	return 0
}

// segmentBPE starts from single characters and repeatedly merges the
// adjacent pair with the best scoring vocabulary entry.
func (p *Processor) segmentBPE(s string) []string {
	chars := splitChars(s)
	if len(chars) == 0 {
		return nil
	}

	symbols := make([]symbol, len(chars))
	for i, c := range chars {
		symbols[i] = symbol{prev: i - 1, next: i + 1, text: c}
	}
	symbols[len(symbols)-1].next = -1

	pq := queue.NewWith(byScore)
	pairwise := func(left, right int) {
		if left < 0 || right < 0 {
			return
		}
		text := symbols[left].text + symbols[right].text
		id, ok := p.pieces[text]
		if !ok || p.model.Pieces[id].Type == TypeUnused {
			return
		}
		pq.Enqueue(&candidate{
			left:  left,
			right: right,
			text:  text,
			score: p.model.Pieces[id].Score,
		})
	}

	for i := 0; i+1 < len(symbols); i++ {
		pairwise(i, i+1)
	}

	for !pq.Empty() {
		v, _ := pq.Dequeue()
		c := v.(*candidate)
		left, right := &symbols[c.left], &symbols[c.right]

		// Skip candidates invalidated by an earlier merge.
		if left.text == "" || right.text == "" || left.next != c.right || left.text+right.text != c.text {
			continue
		}

		left.text = c.text
		left.next = right.next
		if right.next >= 0 {
			symbols[right.next].prev = c.left
		}
		right.text = ""

		pairwise(left.prev, c.left)
		pairwise(c.left, left.next)
	}

	var pieces []string
	for i := 0; i >= 0; i = symbols[i].next {
		pieces = append(pieces, symbols[i].text)
	}
	return pieces
}
