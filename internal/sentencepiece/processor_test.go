package sentencepiece

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBPEEncode(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, newBPEModel())

	cases := []struct {
		text   string
		pieces []string
		want   string
	}{
		{"Hello", []string{"▁Hello"}, "Hello"},
		{"Hello world", []string{"▁Hello", "▁world"}, "Hello world"},
		{"Hello world!", []string{"▁Hello", "▁world", "!"}, "Hello world!"},
		{"Testing 123", []string{"▁", "T", "e", "s", "t", "i", "n", "g", "▁", "1", "2", "3"}, "Testing 123"},
		{"  spaces  ", []string{"▁", "s", "p", "a", "c", "e", "s"}, "spaces"},
		{"Hello   world", []string{"▁Hello", "▁world"}, "Hello world"},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			pieces := p.EncodeAsPieces(tc.text)
			assert.Equal(t, tc.pieces, pieces)

			ids := p.EncodeAsIDs(tc.text)
			assert.Equal(t, idsOf(p, tc.pieces...), ids)

			decoded, err := p.Decode(ids)
			require.NoError(t, err)
			assert.Equal(t, tc.want, decoded)
			assert.Equal(t, tc.want, p.DecodePieces(pieces))
		})
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, newBPEModel())
	assert.Empty(t, p.Encode(""))
	assert.Empty(t, p.EncodeAsIDs("   "))
	assert.Empty(t, p.EncodeAsPieces(""))

	decoded, err := p.Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, "", decoded)
}

func TestUnknownWithoutByteFallback(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, newBPEModel())

	tokens := p.Encode("🌍")
	require.Len(t, tokens, 2)
	assert.Equal(t, Token{ID: p.PieceToID("▁"), Text: "▁"}, tokens[0])
	assert.Equal(t, Token{ID: p.UnknownID(), Text: "🌍"}, tokens[1])

	decoded, err := p.Decode([]int{tokens[0].ID, tokens[1].ID})
	require.NoError(t, err)
	assert.Equal(t, " ⁇ ", decoded)

	// Pieces keep the surface text, so they decode losslessly.
	assert.Equal(t, "🌍", p.DecodePieces(p.EncodeAsPieces("🌍")))
}

func TestByteFallback(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, newBPEModel(withByteFallback()))

	pieces := p.EncodeAsPieces("Hello 🌍")
	assert.Equal(t, []string{"▁Hello", "▁", "<0xF0>", "<0x9F>", "<0x8C>", "<0x8D>"}, pieces)

	ids := p.EncodeAsIDs("Hello 🌍")
	for _, id := range ids[2:] {
		assert.True(t, p.IsByte(id), "id %d should be a byte piece", id)
	}

	decoded, err := p.Decode(ids)
	require.NoError(t, err)
	assert.Equal(t, "Hello 🌍", decoded)
	assert.Equal(t, "Hello 🌍", p.DecodePieces(pieces))
}

func TestDecodeInvalidBytes(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, newBPEModel(withByteFallback()))
	ids := []int{p.PieceToID("<0xF0>"), p.PieceToID("H"), p.PieceToID("<0xFF>")}

	decoded, err := p.Decode(ids)
	require.NoError(t, err)
	assert.Equal(t, "�H�", decoded)
}

func TestDecodeSkipsControl(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, newBPEModel())
	ids := p.EncodeWithSpecials("Hello", true, true)
	assert.Equal(t, []int{1, p.PieceToID("▁Hello"), 2}, ids)

	decoded, err := p.Decode(ids)
	require.NoError(t, err)
	assert.Equal(t, "Hello", decoded)
}

func TestEncodeTokensWithSpecials(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, newBPEModel())
	tokens := p.EncodeTokens("Hello", true, true)
	assert.Equal(t, []Token{
		{ID: 1, Text: "<s>"},
		{ID: p.PieceToID("▁Hello"), Text: "▁Hello"},
		{ID: 2, Text: "</s>"},
	}, tokens)

	m := newBPEModel()
	m.Trainer.EOSID = -1
	noEOS := newTestProcessor(t, m)
	assert.Equal(t, []int{1, noEOS.PieceToID("▁Hello")}, noEOS.EncodeWithSpecials("Hello", true, true))
	assert.Equal(t, "<0x0A>", BytePiece('\n'))
}

func TestDecodeOutOfRange(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, newBPEModel())
	_, err := p.Decode([]int{3, p.VocabSize()})
	assert.ErrorIs(t, err, ErrIDOutOfRange)

	_, err = p.Decode([]int{-1})
	assert.ErrorIs(t, err, ErrIDOutOfRange)
}

func TestUserDefinedSymbols(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, newBPEModel(withUserDefined("<sep>", "<sep_long>")))

	pieces := p.EncodeAsPieces("Hello<sep>world<sep_long>")
	assert.Equal(t, []string{"▁Hello", "<sep>", "world", "<sep_long>"}, pieces)

	decoded, err := p.Decode(p.EncodeAsIDs("Hello<sep>world"))
	require.NoError(t, err)
	assert.Equal(t, "Hello<sep>world", decoded)
}

func TestNormalization(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, newUnigramModel())

	// nmt folds control whitespace, NFKC folds full-width forms.
	assert.Equal(t, []string{"▁Hello"}, p.EncodeAsPieces("\n\nHello\n\n"))
	assert.Equal(t, []string{"▁Hello"}, p.EncodeAsPieces("Ｈｅｌｌｏ"))
	assert.Equal(t, []string{"▁Hello"}, p.EncodeAsPieces("\tHello\x00"))

	identity := newTestProcessor(t, newBPEModel())
	assert.Equal(t, []string{"▁", "\n", "▁Hello"}, identity.EncodeAsPieces("\n Hello"))
}

func TestNormalizerFlags(t *testing.T) {
	t.Parallel()

	m := newBPEModel()
	m.Normalizer.AddDummyPrefix = false
	m.Normalizer.RemoveExtraWhitespaces = false
	p := newTestProcessor(t, m)

	assert.Equal(t, []string{"Hello", "▁world"}, p.EncodeAsPieces("Hello world"))
	assert.Equal(t, []string{"▁", "▁Hello"}, p.EncodeAsPieces("  Hello"))

	decoded, err := p.Decode(p.EncodeAsIDs("  Hello"))
	require.NoError(t, err)
	assert.Equal(t, "  Hello", decoded)
}

func TestUnigramEncode(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, newUnigramModel())

	assert.Equal(t, []string{"▁Hello"}, p.EncodeAsPieces("Hello"))
	assert.Equal(t, []string{"▁Hello", "▁", "w", "o", "r", "l", "d"}, p.EncodeAsPieces("Hello world"))

	tokens := p.Encode("Hezq")
	require.Len(t, tokens, 2)
	assert.Equal(t, "▁He", tokens[0].Text)
	assert.Equal(t, Token{ID: p.UnknownID(), Text: "zq"}, tokens[1])
}

func TestCharAndWordModels(t *testing.T) {
	t.Parallel()

	char := newBPEModel()
	char.Trainer.ModelType = ModelChar
	pc := newTestProcessor(t, char)
	assert.Equal(t, []string{"▁", "H", "e", "l", "l", "o"}, pc.EncodeAsPieces("Hello"))

	word := newBPEModel()
	word.Trainer.ModelType = ModelWord
	pw := newTestProcessor(t, word)
	assert.Equal(t, []string{"▁Hello", "▁world"}, pw.EncodeAsPieces("Hello world"))
	assert.Equal(t, []string{"a", "▁Hello"}, splitWords("a▁Hello", false))
	assert.Equal(t, []string{"Hello▁", "world"}, splitWords("Hello▁world", true))
}

func TestWhitespaceAsSuffix(t *testing.T) {
	t.Parallel()

	m := newBPEModel(withPieces(Piece{Piece: "Hello▁", Score: -4.5, Type: TypeNormal}))
	m.Trainer.TreatWhitespaceAsSuffix = true
	p := newTestProcessor(t, m)

	pieces := p.EncodeAsPieces("Hello")
	assert.Equal(t, []string{"Hello▁"}, pieces)

	decoded, err := p.Decode(p.EncodeAsIDs("Hello"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", decoded)
}

func TestLookups(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, newBPEModel())

	assert.Equal(t, 0, p.PieceToID("not-a-piece"))
	assert.Equal(t, 7, p.PieceToID("▁Hello"))

	piece, ok := p.IDToPiece(7)
	assert.True(t, ok)
	assert.Equal(t, "▁Hello", piece)
	_, ok = p.IDToPiece(p.VocabSize())
	assert.False(t, ok)

	assert.Equal(t, float32(-5), p.Score(7))
	assert.Equal(t, float32(0), p.Score(-3))
	assert.True(t, p.IsUnknown(0))
	assert.True(t, p.IsControl(1))
	assert.False(t, p.IsUnused(7))
	assert.Equal(t, PieceType(0), p.Type(1000))

	assert.Equal(t, 1, p.BOSID())
	assert.Equal(t, 2, p.EOSID())
	assert.Equal(t, -1, p.PadID())
}

func TestModelInfo(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, newBPEModel(withByteFallback(), withUserDefined("<sep>")))
	info := p.ModelInfo()

	assert.Equal(t, "bpe", info.ModelType)
	assert.Equal(t, p.VocabSize(), info.VocabSize)
	assert.True(t, info.ByteFallback)
	assert.Equal(t, 256, info.TypeCounts["byte"])
	assert.Equal(t, 2, info.TypeCounts["control"])
	assert.Equal(t, []string{"<sep>"}, info.UserDefined)
	assert.Len(t, info.Fingerprint, 16)
}

func TestNewProcessorValidation(t *testing.T) {
	t.Parallel()

	_, err := NewProcessor(nil)
	assert.ErrorIs(t, err, ErrEmptyVocabulary)

	m := newBPEModel()
	m.Trainer.ModelType = ModelType(9)
	_, err = NewProcessor(m)
	assert.ErrorIs(t, err, ErrUnsupportedModelType)

	m = newBPEModel()
	m.Trainer.UnkID = 1
	_, err = NewProcessor(m)
	assert.ErrorIs(t, err, ErrInvalidModel)

	m = newBPEModel()
	m.Trainer.UnkID = 5000
	_, err = NewProcessor(m)
	assert.ErrorIs(t, err, ErrInvalidModel)

	m = newBPEModel(withPieces(Piece{Piece: "ll", Type: TypeNormal}))
	_, err = NewProcessor(m)
	assert.ErrorIs(t, err, ErrInvalidModel)

	m = newBPEModel(withPieces(Piece{Piece: "<0xZZ>", Type: TypeByte}))
	_, err = NewProcessor(m)
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestUnusedPiecesAreNotEmitted(t *testing.T) {
	t.Parallel()

	m := newBPEModel()
	m.Pieces[7].Type = TypeUnused // "▁Hello"
	p := newTestProcessor(t, m)

	assert.Equal(t, []string{"▁", "Hello"}, p.EncodeAsPieces("Hello"))
}

func TestConcurrentEncode(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t, newBPEModel(withByteFallback()))
	want := p.EncodeAsIDs("Hello world! 代码")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				assert.Equal(t, want, p.EncodeAsIDs("Hello world! 代码"))
			}
		}()
	}
	wg.Wait()
}
