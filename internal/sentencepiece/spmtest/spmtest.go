// Package spmtest builds small SentencePiece models for tests.
package spmtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samcharles93/spmcheck/internal/sentencepiece"
)

// Model returns a unigram model that knows "▁Hello" and "▁world" as whole
// pieces, a handful of characters, and byte pieces for everything else.
func Model() *sentencepiece.Model {
	m := &sentencepiece.Model{
		Trainer:    sentencepiece.DefaultTrainerSpec(),
		Normalizer: sentencepiece.DefaultNormalizerSpec(),
	}
	m.Normalizer.Name = "nmt_nfkc"
	m.Trainer.ByteFallback = true
	m.Pieces = []sentencepiece.Piece{
		{Piece: "<unk>", Type: sentencepiece.TypeUnknown},
		{Piece: "<s>", Type: sentencepiece.TypeControl},
		{Piece: "</s>", Type: sentencepiece.TypeControl},
		{Piece: "▁Hello", Score: -1, Type: sentencepiece.TypeNormal},
		{Piece: "▁world", Score: -1.5, Type: sentencepiece.TypeNormal},
	}
	for _, c := range []string{"▁", "H", "e", "l", "o", "w", "r", "d", "!"} {
		m.Pieces = append(m.Pieces, sentencepiece.Piece{Piece: c, Score: -5, Type: sentencepiece.TypeNormal})
	}
	for b := 0; b < 256; b++ {
		m.Pieces = append(m.Pieces, sentencepiece.Piece{
			Piece: sentencepiece.BytePiece(byte(b)),
			Type:  sentencepiece.TypeByte,
		})
	}
	m.Trainer.VocabSize = int32(len(m.Pieces))
	return m
}

// WriteModel writes Model to dir/name and returns the path.
func WriteModel(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Model().Marshal(), 0o644); err != nil {
		t.Fatalf("write model %s: %v", path, err)
	}
	return path
}
