// Package sentencepiece loads SentencePiece .model files and segments text
// into pieces and ids the way the reference processor does.
package sentencepiece

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"google.golang.org/protobuf/encoding/protowire"
)

// PieceType mirrors ModelProto.SentencePiece.Type.
type PieceType int32

const (
	TypeNormal      PieceType = 1
	TypeUnknown     PieceType = 2
	TypeControl     PieceType = 3
	TypeUserDefined PieceType = 4
	TypeUnused      PieceType = 5
	TypeByte        PieceType = 6
)

func (t PieceType) String() string {
	switch t {
	case TypeNormal:
		return "normal"
	case TypeUnknown:
		return "unknown"
	case TypeControl:
		return "control"
	case TypeUserDefined:
		return "user_defined"
	case TypeUnused:
		return "unused"
	case TypeByte:
		return "byte"
	default:
		return fmt.Sprintf("type(%d)", int32(t))
	}
}

// ModelType mirrors TrainerSpec.ModelType.
type ModelType int32

const (
	ModelUnigram ModelType = 1
	ModelBPE     ModelType = 2
	ModelWord    ModelType = 3
	ModelChar    ModelType = 4
)

func (t ModelType) String() string {
	switch t {
	case ModelUnigram:
		return "unigram"
	case ModelBPE:
		return "bpe"
	case ModelWord:
		return "word"
	case ModelChar:
		return "char"
	default:
		return fmt.Sprintf("model(%d)", int32(t))
	}
}

type Piece struct {
	Piece string
	Score float32
	Type  PieceType
}

// TrainerSpec holds the subset of training parameters that affect encoding.
type TrainerSpec struct {
	ModelType               ModelType
	VocabSize               int32
	TreatWhitespaceAsSuffix bool
	ByteFallback            bool
	UnkID                   int32
	BOSID                   int32
	EOSID                   int32
	PadID                   int32
	UnkSurface              string
}

type NormalizerSpec struct {
	Name                   string
	AddDummyPrefix         bool
	RemoveExtraWhitespaces bool
	EscapeWhitespaces      bool
}

// Model is a decoded ModelProto.
type Model struct {
	Pieces     []Piece
	Trainer    TrainerSpec
	Normalizer NormalizerSpec
}

const defaultUnkSurface = " ⁇ "

// DefaultTrainerSpec returns the proto2 defaults of TrainerSpec.
func DefaultTrainerSpec() TrainerSpec {
	return TrainerSpec{
		ModelType:  ModelUnigram,
		VocabSize:  8000,
		UnkID:      0,
		BOSID:      1,
		EOSID:      2,
		PadID:      -1,
		UnkSurface: defaultUnkSurface,
	}
}

// DefaultNormalizerSpec returns the proto2 defaults of NormalizerSpec.
func DefaultNormalizerSpec() NormalizerSpec {
	return NormalizerSpec{
		AddDummyPrefix:         true,
		RemoveExtraWhitespaces: true,
		EscapeWhitespaces:      true,
	}
}

// Field numbers of sentencepiece_model.proto.
const (
	fieldModelPieces     protowire.Number = 1
	fieldModelTrainer    protowire.Number = 2
	fieldModelNormalizer protowire.Number = 3

	fieldPiecePiece protowire.Number = 1
	fieldPieceScore protowire.Number = 2
	fieldPieceType  protowire.Number = 3

	fieldTrainerModelType        protowire.Number = 3
	fieldTrainerVocabSize        protowire.Number = 4
	fieldTrainerWhitespaceSuffix protowire.Number = 24
	fieldTrainerByteFallback     protowire.Number = 35
	fieldTrainerUnkID            protowire.Number = 40
	fieldTrainerBOSID            protowire.Number = 41
	fieldTrainerEOSID            protowire.Number = 42
	fieldTrainerPadID            protowire.Number = 43
	fieldTrainerUnkSurface       protowire.Number = 44

	fieldNormalizerName          protowire.Number = 1
	fieldNormalizerDummyPrefix   protowire.Number = 3
	fieldNormalizerRemoveExtraWS protowire.Number = 4
	fieldNormalizerEscapeWS      protowire.Number = 5
)

type field struct {
	num     protowire.Number
	typ     protowire.Type
	varint  uint64
	fixed32 uint32
	bytes   []byte
}

func eachField(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedModel, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			f.fixed32, n = protowire.ConsumeFixed32(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformedModel, num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseModel decodes a serialized ModelProto. The returned model does not
// retain data.
func ParseModel(data []byte) (*Model, error) {
	m := &Model{
		Trainer:    DefaultTrainerSpec(),
		Normalizer: DefaultNormalizerSpec(),
	}
	err := eachField(data, func(f field) error {
		switch {
		case f.num == fieldModelPieces && f.typ == protowire.BytesType:
			p, err := parsePiece(f.bytes)
			if err != nil {
				return err
			}
			m.Pieces = append(m.Pieces, p)
		case f.num == fieldModelTrainer && f.typ == protowire.BytesType:
			return parseTrainer(f.bytes, &m.Trainer)
		case f.num == fieldModelNormalizer && f.typ == protowire.BytesType:
			return parseNormalizer(f.bytes, &m.Normalizer)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(m.Pieces) == 0 {
		return nil, ErrEmptyVocabulary
	}
	return m, nil
}

func parsePiece(b []byte) (Piece, error) {
	p := Piece{Type: TypeNormal}
	err := eachField(b, func(f field) error {
		switch {
		case f.num == fieldPiecePiece && f.typ == protowire.BytesType:
			p.Piece = string(f.bytes)
		case f.num == fieldPieceScore && f.typ == protowire.Fixed32Type:
			p.Score = math.Float32frombits(f.fixed32)
		case f.num == fieldPieceType && f.typ == protowire.VarintType:
			p.Type = PieceType(int32(f.varint))
		}
		return nil
	})
	return p, err
}

func parseTrainer(b []byte, t *TrainerSpec) error {
	return eachField(b, func(f field) error {
		if f.typ == protowire.BytesType {
			if f.num == fieldTrainerUnkSurface {
				t.UnkSurface = string(f.bytes)
			}
			return nil
		}
		if f.typ != protowire.VarintType {
			return nil
		}
		switch f.num {
		case fieldTrainerModelType:
			t.ModelType = ModelType(int32(f.varint))
		case fieldTrainerVocabSize:
			t.VocabSize = int32(f.varint)
		case fieldTrainerWhitespaceSuffix:
			t.TreatWhitespaceAsSuffix = protowire.DecodeBool(f.varint)
		case fieldTrainerByteFallback:
			t.ByteFallback = protowire.DecodeBool(f.varint)
		case fieldTrainerUnkID:
			t.UnkID = int32(f.varint)
		case fieldTrainerBOSID:
			t.BOSID = int32(f.varint)
		case fieldTrainerEOSID:
			t.EOSID = int32(f.varint)
		case fieldTrainerPadID:
			t.PadID = int32(f.varint)
		}
		return nil
	})
}

func parseNormalizer(b []byte, n *NormalizerSpec) error {
	return eachField(b, func(f field) error {
		switch {
		case f.num == fieldNormalizerName && f.typ == protowire.BytesType:
			n.Name = string(f.bytes)
		case f.num == fieldNormalizerDummyPrefix && f.typ == protowire.VarintType:
			n.AddDummyPrefix = protowire.DecodeBool(f.varint)
		case f.num == fieldNormalizerRemoveExtraWS && f.typ == protowire.VarintType:
			n.RemoveExtraWhitespaces = protowire.DecodeBool(f.varint)
		case f.num == fieldNormalizerEscapeWS && f.typ == protowire.VarintType:
			n.EscapeWhitespaces = protowire.DecodeBool(f.varint)
		}
		return nil
	})
}

// Marshal encodes the model as a ModelProto. Every known field is written
// explicitly so defaults survive a round trip.
func (m *Model) Marshal() []byte {
	b := appendPieces(nil, m.Pieces)

	t := m.Trainer
	var tb []byte
	tb = appendInt32(tb, fieldTrainerModelType, int32(t.ModelType))
	tb = appendInt32(tb, fieldTrainerVocabSize, t.VocabSize)
	tb = appendBool(tb, fieldTrainerWhitespaceSuffix, t.TreatWhitespaceAsSuffix)
	tb = appendBool(tb, fieldTrainerByteFallback, t.ByteFallback)
	tb = appendInt32(tb, fieldTrainerUnkID, t.UnkID)
	tb = appendInt32(tb, fieldTrainerBOSID, t.BOSID)
	tb = appendInt32(tb, fieldTrainerEOSID, t.EOSID)
	tb = appendInt32(tb, fieldTrainerPadID, t.PadID)
	tb = protowire.AppendTag(tb, fieldTrainerUnkSurface, protowire.BytesType)
	tb = protowire.AppendString(tb, t.UnkSurface)
	b = protowire.AppendTag(b, fieldModelTrainer, protowire.BytesType)
	b = protowire.AppendBytes(b, tb)

	n := m.Normalizer
	var nb []byte
	nb = protowire.AppendTag(nb, fieldNormalizerName, protowire.BytesType)
	nb = protowire.AppendString(nb, n.Name)
	nb = appendBool(nb, fieldNormalizerDummyPrefix, n.AddDummyPrefix)
	nb = appendBool(nb, fieldNormalizerRemoveExtraWS, n.RemoveExtraWhitespaces)
	nb = appendBool(nb, fieldNormalizerEscapeWS, n.EscapeWhitespaces)
	b = protowire.AppendTag(b, fieldModelNormalizer, protowire.BytesType)
	b = protowire.AppendBytes(b, nb)

	return b
}

func appendPieces(b []byte, pieces []Piece) []byte {
	for _, p := range pieces {
		var pb []byte
		pb = protowire.AppendTag(pb, fieldPiecePiece, protowire.BytesType)
		pb = protowire.AppendString(pb, p.Piece)
		pb = protowire.AppendTag(pb, fieldPieceScore, protowire.Fixed32Type)
		pb = protowire.AppendFixed32(pb, math.Float32bits(p.Score))
		pb = appendInt32(pb, fieldPieceType, int32(p.Type))

		b = protowire.AppendTag(b, fieldModelPieces, protowire.BytesType)
		b = protowire.AppendBytes(b, pb)
	}
	return b
}

// Fingerprint is the xxhash of the serialized piece records, so two models
// with the same vocabulary, scores and types share it regardless of their
// trainer and normalizer settings.
func (m *Model) Fingerprint() uint64 {
	return xxhash.Sum64(appendPieces(nil, m.Pieces))
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	// int32 is sign-extended to 64 bits on the wire.
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}
