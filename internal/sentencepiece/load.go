package sentencepiece

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// LoadModel maps a .model file read-only and decodes it. If mmap is
// unavailable it falls back to reading the whole file. The mapping is
// released before returning; the model owns copies of everything it keeps.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", path)
	}
	size64 := stat.Size()
	if size64 == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyVocabulary)
	}
	if size64 > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%s: %w: file too large", path, ErrMalformedModel)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size64), unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		defer func() { _ = unix.Munmap(data) }()
		return parseModelFile(path, data)
	}

	data, err = io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return parseModelFile(path, data)
}

func parseModelFile(path string, data []byte) (*Model, error) {
	m, err := ParseModel(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Open loads the model at path and builds a processor for it.
func Open(path string) (*Processor, error) {
	m, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	p, err := NewProcessor(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
