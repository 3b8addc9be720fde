package sentencepiece

import "errors"

var (
	ErrMalformedModel       = errors.New("malformed sentencepiece model")
	ErrEmptyVocabulary      = errors.New("sentencepiece model has no pieces")
	ErrInvalidModel         = errors.New("invalid sentencepiece model")
	ErrUnsupportedModelType = errors.New("unsupported sentencepiece model type")
	ErrIDOutOfRange         = errors.New("piece id out of range")
)
