package sentencepiece

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Decode turns ids back into text. Control pieces produce nothing, unknown
// pieces produce the model's unk surface and byte pieces are reassembled
// into UTF-8.
func (p *Processor) Decode(ids []int) (string, error) {
	d := p.newDecoder()
	for _, id := range ids {
		if id < 0 || id >= len(p.model.Pieces) {
			return "", fmt.Errorf("%w: %d (vocabulary size %d)", ErrIDOutOfRange, id, len(p.model.Pieces))
		}
		piece := p.model.Pieces[id]
		d.add(piece.Piece, piece.Type)
	}
	return d.String(), nil
}

// DecodePieces turns pieces back into text. Pieces outside the vocabulary
// are emitted as they are, which is how EncodeAsPieces reports unknown
// surface text.
func (p *Processor) DecodePieces(pieces []string) string {
	d := p.newDecoder()
	for _, piece := range pieces {
		typ := TypeNormal
		if id, ok := p.pieces[piece]; ok {
			typ = p.model.Pieces[id].Type
		} else if _, isByte := parseBytePiece(piece); isByte && p.hasBytes {
			typ = TypeByte
		}
		d.add(piece, typ)
	}
	return d.String()
}

type decoder struct {
	p       *Processor
	sb      strings.Builder
	pending []byte
	first   bool
}

func (p *Processor) newDecoder() *decoder {
	return &decoder{p: p, first: true}
}

func (d *decoder) add(piece string, typ PieceType) {
	switch typ {
	case TypeControl:
		return
	case TypeByte:
		if b, ok := parseBytePiece(piece); ok {
			d.pending = append(d.pending, b)
			return
		}
	}
	d.flush()

	if typ == TypeUnknown {
		d.sb.WriteString(d.p.model.Trainer.UnkSurface)
		d.first = false
		return
	}
	d.write(piece)
}

// write appends piece text, restoring spaces and dropping the dummy prefix
// from the first piece.
func (d *decoder) write(text string) {
	spec := d.p.model.Normalizer
	if d.first && spec.AddDummyPrefix && !d.p.model.Trainer.TreatWhitespaceAsSuffix {
		text = strings.TrimPrefix(text, spaceSymbol)
	}
	d.first = false
	if spec.EscapeWhitespaces {
		text = strings.ReplaceAll(text, spaceSymbol, " ")
	}
	d.sb.WriteString(text)
}

// flush writes buffered byte pieces; every byte that is not part of a valid
// UTF-8 sequence becomes U+FFFD.
func (d *decoder) flush() {
	if len(d.pending) == 0 {
		return
	}
	var sb strings.Builder
	for b := d.pending; len(b) > 0; {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			sb.WriteRune(utf8.RuneError)
			b = b[1:]
			continue
		}
		sb.Write(b[:size])
		b = b[size:]
	}
	d.pending = d.pending[:0]
	d.write(sb.String())
}

func (d *decoder) String() string {
	d.flush()
	s := d.sb.String()
	if d.p.model.Normalizer.AddDummyPrefix && d.p.model.Trainer.TreatWhitespaceAsSuffix {
		s = strings.TrimSuffix(s, " ")
	}
	return s
}
