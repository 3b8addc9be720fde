package sentencepiece

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"
)

// Token is one encoded unit: the vocabulary id and the piece it stands for.
// For unknown text Text holds the surface string, not the unk piece.
type Token struct {
	ID   int
	Text string
}

func (t Token) String() string {
	return fmt.Sprintf("Token{ID: %v, Text: %q}", t.ID, t.Text)
}

// Processor encodes and decodes text with a loaded model. It is immutable
// after construction and safe for concurrent use.
type Processor struct {
	model *Model

	pieces      map[string]int
	userDefined []string
	bytePieces  [256]int
	hasBytes    bool

	maxPieceRunes int
	minScore      float32
	unkID         int
}

// NewProcessor indexes m. The model must not be modified afterwards.
func NewProcessor(m *Model) (*Processor, error) {
	if m == nil || len(m.Pieces) == 0 {
		return nil, ErrEmptyVocabulary
	}
	switch m.Trainer.ModelType {
	case ModelUnigram, ModelBPE, ModelWord, ModelChar:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModelType, m.Trainer.ModelType)
	}

	unkID := int(m.Trainer.UnkID)
	if unkID < 0 || unkID >= len(m.Pieces) {
		return nil, fmt.Errorf("%w: unk_id %d outside vocabulary of %d", ErrInvalidModel, unkID, len(m.Pieces))
	}
	if m.Pieces[unkID].Type != TypeUnknown {
		return nil, fmt.Errorf("%w: piece %d (%q) is not the unknown piece", ErrInvalidModel, unkID, m.Pieces[unkID].Piece)
	}

	p := &Processor{
		model:    m,
		pieces:   make(map[string]int, len(m.Pieces)),
		unkID:    unkID,
		minScore: float32(math.MaxFloat32),
	}
	for i := range p.bytePieces {
		p.bytePieces[i] = -1
	}

	for id, piece := range m.Pieces {
		if piece.Piece == "" {
			return nil, fmt.Errorf("%w: piece %d is empty", ErrInvalidModel, id)
		}
		if prev, dup := p.pieces[piece.Piece]; dup {
			return nil, fmt.Errorf("%w: piece %q duplicated at %d and %d", ErrInvalidModel, piece.Piece, prev, id)
		}
		p.pieces[piece.Piece] = id

		switch piece.Type {
		case TypeNormal:
			p.maxPieceRunes = max(p.maxPieceRunes, utf8.RuneCountInString(piece.Piece))
			p.minScore = min(p.minScore, piece.Score)
		case TypeUserDefined:
			p.userDefined = append(p.userDefined, piece.Piece)
			p.maxPieceRunes = max(p.maxPieceRunes, utf8.RuneCountInString(piece.Piece))
		case TypeByte:
			b, ok := parseBytePiece(piece.Piece)
			if !ok {
				return nil, fmt.Errorf("%w: byte piece %d has malformed text %q", ErrInvalidModel, id, piece.Piece)
			}
			p.bytePieces[b] = id
			p.hasBytes = true
		}
	}
	if p.minScore == float32(math.MaxFloat32) {
		p.minScore = 0
	}

	// Longest symbols first so "<sep_long>" wins over "<sep".
	slices.SortStableFunc(p.userDefined, func(a, b string) int {
		return len(b) - len(a)
	})

	return p, nil
}

// Model returns the model the processor was built from.
func (p *Processor) Model() *Model { return p.model }

func (p *Processor) VocabSize() int { return len(p.model.Pieces) }

func (p *Processor) UnknownID() int { return p.unkID }

// BOSID returns the beginning-of-sentence id or -1 when the model has none.
func (p *Processor) BOSID() int { return p.specialID(p.model.Trainer.BOSID) }

// EOSID returns the end-of-sentence id or -1 when the model has none.
func (p *Processor) EOSID() int { return p.specialID(p.model.Trainer.EOSID) }

// PadID returns the padding id or -1 when the model has none.
func (p *Processor) PadID() int { return p.specialID(p.model.Trainer.PadID) }

func (p *Processor) specialID(id int32) int {
	if id < 0 || int(id) >= len(p.model.Pieces) {
		return -1
	}
	return int(id)
}

// PieceToID returns the id of piece, or the unknown id when the piece is
// not in the vocabulary.
func (p *Processor) PieceToID(piece string) int {
	if id, ok := p.pieces[piece]; ok {
		return id
	}
	return p.unkID
}

// IDToPiece returns the piece for id.
func (p *Processor) IDToPiece(id int) (string, bool) {
	if id < 0 || id >= len(p.model.Pieces) {
		return "", false
	}
	return p.model.Pieces[id].Piece, true
}

// Score returns the piece score, or 0 for an out-of-range id.
func (p *Processor) Score(id int) float32 {
	if id < 0 || id >= len(p.model.Pieces) {
		return 0
	}
	return p.model.Pieces[id].Score
}

// Type returns the piece type, or 0 for an out-of-range id.
func (p *Processor) Type(id int) PieceType {
	if id < 0 || id >= len(p.model.Pieces) {
		return 0
	}
	return p.model.Pieces[id].Type
}

func (p *Processor) IsUnknown(id int) bool { return p.Type(id) == TypeUnknown }
func (p *Processor) IsControl(id int) bool { return p.Type(id) == TypeControl }
func (p *Processor) IsUnused(id int) bool  { return p.Type(id) == TypeUnused }
func (p *Processor) IsByte(id int) bool    { return p.Type(id) == TypeByte }

// ModelInfo summarizes a model for display.
type ModelInfo struct {
	ModelType       string         `json:"model_type"`
	VocabSize       int            `json:"vocab_size"`
	UnknownID       int            `json:"unk_id"`
	BOSID           int            `json:"bos_id"`
	EOSID           int            `json:"eos_id"`
	PadID           int            `json:"pad_id"`
	UnknownSurface  string         `json:"unk_surface"`
	ByteFallback    bool           `json:"byte_fallback"`
	Normalizer      string         `json:"normalizer"`
	AddDummyPrefix  bool           `json:"add_dummy_prefix"`
	UserDefined     []string       `json:"user_defined,omitempty"`
	TypeCounts      map[string]int `json:"type_counts"`
	MaxPieceRunes   int            `json:"max_piece_runes"`
	Fingerprint     string         `json:"fingerprint"`
	WhitespaceAsSfx bool           `json:"treat_whitespace_as_suffix"`
}

func (p *Processor) ModelInfo() ModelInfo {
	counts := make(map[string]int)
	for _, piece := range p.model.Pieces {
		counts[piece.Type.String()]++
	}
	return ModelInfo{
		ModelType:       p.model.Trainer.ModelType.String(),
		VocabSize:       p.VocabSize(),
		UnknownID:       p.unkID,
		BOSID:           p.BOSID(),
		EOSID:           p.EOSID(),
		PadID:           p.PadID(),
		UnknownSurface:  p.model.Trainer.UnkSurface,
		ByteFallback:    p.model.Trainer.ByteFallback,
		Normalizer:      p.model.Normalizer.Name,
		AddDummyPrefix:  p.model.Normalizer.AddDummyPrefix,
		UserDefined:     slices.Clone(p.userDefined),
		TypeCounts:      counts,
		MaxPieceRunes:   p.maxPieceRunes,
		Fingerprint:     fmt.Sprintf("%016x", p.model.Fingerprint()),
		WhitespaceAsSfx: p.model.Trainer.TreatWhitespaceAsSuffix,
	}
}

// parseBytePiece parses "<0xAB>".
func parseBytePiece(s string) (byte, bool) {
	if len(s) != 6 || !strings.HasPrefix(s, "<0x") || s[5] != '>' {
		return 0, false
	}
	hi, ok1 := fromHex(s[3])
	lo, ok2 := fromHex(s[4])
	if !ok1 || !ok2 {
		return 0, false
	}
	return hi<<4 | lo, true
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

// BytePiece returns the byte-fallback piece for b, e.g. "<0x0A>".
func BytePiece(b byte) string {
	return fmt.Sprintf("<0x%02X>", b)
}
