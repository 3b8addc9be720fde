package sentencepiece

import (
	"strings"
	"unicode/utf8"
)

type fragment struct {
	text   string
	atomic bool
}

// Encode segments text into tokens.
func (p *Processor) Encode(text string) []Token {
	normalized := p.normalize(text)
	if normalized == "" {
		return nil
	}

	var tokens []Token
	for _, frag := range p.splitUserDefined(normalized) {
		if frag.atomic {
			tokens = append(tokens, Token{ID: p.pieces[frag.text], Text: frag.text})
			continue
		}
		for _, piece := range p.segment(frag.text) {
			tokens = p.appendPiece(tokens, piece)
		}
	}
	return tokens
}

// EncodeAsPieces returns the piece strings of Encode.
func (p *Processor) EncodeAsPieces(text string) []string {
	tokens := p.Encode(text)
	pieces := make([]string, len(tokens))
	for i, t := range tokens {
		pieces[i] = t.Text
	}
	return pieces
}

// EncodeAsIDs returns the ids of Encode.
func (p *Processor) EncodeAsIDs(text string) []int {
	tokens := p.Encode(text)
	ids := make([]int, len(tokens))
	for i, t := range tokens {
		ids[i] = t.ID
	}
	return ids
}

// EncodeWithSpecials is EncodeAsIDs with the model's BOS and EOS ids added
// when requested and defined.
func (p *Processor) EncodeWithSpecials(text string, addBOS, addEOS bool) []int {
	tokens := p.EncodeTokens(text, addBOS, addEOS)
	ids := make([]int, len(tokens))
	for i, t := range tokens {
		ids[i] = t.ID
	}
	return ids
}

// EncodeTokens is Encode with optional BOS and EOS tokens around the text.
func (p *Processor) EncodeTokens(text string, addBOS, addEOS bool) []Token {
	tokens := p.Encode(text)
	if bos := p.BOSID(); addBOS && bos >= 0 {
		tokens = append([]Token{{ID: bos, Text: p.model.Pieces[bos].Piece}}, tokens...)
	}
	if eos := p.EOSID(); addEOS && eos >= 0 {
		tokens = append(tokens, Token{ID: eos, Text: p.model.Pieces[eos].Piece})
	}
	return tokens
}

// splitUserDefined cuts user-defined symbols out of s as atomic fragments.
func (p *Processor) splitUserDefined(s string) []fragment {
	if len(p.userDefined) == 0 {
		return []fragment{{text: s}}
	}

	var frags []fragment
	start := 0
	for i := 0; i < len(s); {
		if sym := p.matchUserDefined(s[i:]); sym != "" {
			if start < i {
				frags = append(frags, fragment{text: s[start:i]})
			}
			frags = append(frags, fragment{text: sym, atomic: true})
			i += len(sym)
			start = i
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	if start < len(s) {
		frags = append(frags, fragment{text: s[start:]})
	}
	return frags
}

func (p *Processor) matchUserDefined(s string) string {
	for _, sym := range p.userDefined {
		if strings.HasPrefix(s, sym) {
			return sym
		}
	}
	return ""
}

func (p *Processor) segment(s string) []string {
	switch p.model.Trainer.ModelType {
	case ModelBPE:
		return p.segmentBPE(s)
	case ModelChar:
		return splitChars(s)
	case ModelWord:
		return splitWords(s, p.model.Trainer.TreatWhitespaceAsSuffix)
	default:
		return p.segmentUnigram(s)
	}
}

// appendPiece resolves piece to ids, falling back to bytes or the unknown
// id when the vocabulary does not cover it.
func (p *Processor) appendPiece(tokens []Token, piece string) []Token {
	if id, ok := p.pieces[piece]; ok && p.model.Pieces[id].Type != TypeUnused {
		return append(tokens, Token{ID: id, Text: piece})
	}
	if p.model.Trainer.ByteFallback && p.hasBytes {
		for i := 0; i < len(piece); i++ {
			if id := p.bytePieces[piece[i]]; id >= 0 {
				tokens = append(tokens, Token{ID: id, Text: BytePiece(piece[i])})
				continue
			}
			tokens = append(tokens, Token{ID: p.unkID, Text: piece[i : i+1]})
		}
		return tokens
	}
	return append(tokens, Token{ID: p.unkID, Text: piece})
}

func splitChars(s string) []string {
	out := make([]string, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// splitWords cuts s at space symbols, keeping each symbol attached to the
// word it precedes (or follows, in suffix mode).
func splitWords(s string, suffix bool) []string {
	var out []string
	for len(s) > 0 {
		cut := len(s)
		if suffix {
			if i := strings.Index(s, spaceSymbol); i >= 0 {
				cut = i + len(spaceSymbol)
			}
		} else {
			skip := 0
			if strings.HasPrefix(s, spaceSymbol) {
				skip = len(spaceSymbol)
			}
			if i := strings.Index(s[skip:], spaceSymbol); i >= 0 {
				cut = skip + i
			}
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	return out
}
