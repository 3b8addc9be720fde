package probe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

var ErrEmptyCorpus = errors.New("corpus has no samples")

// DefaultCorpus returns the built-in edge cases: ASCII, punctuation, digits,
// emoji, surrounding whitespace, newlines and CJK text.
func DefaultCorpus() []string {
	return []string{
		"Hello",
		"Hello world",
		"Hello world!",
		"Testing 123",
		"The quick brown fox",
		"🌍🌎🌏",
		"Mixed emoji 😀 text",
		"  spaces  ",
		"\n\nnewlines\n\n",
		"代码测试",
	}
}

type corpusFile struct {
	Samples []string `yaml:"samples" json:"samples"`
}

// LoadCorpus reads samples from path. YAML and JSON files hold either a
// list of strings or an object with a "samples" list. Any other file has
// one sample per line; blank lines and lines starting with '#' are skipped
// and a line wrapped in double quotes is unquoted with Go escape rules.
func LoadCorpus(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var samples []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		samples, err = decodeCorpus(data, yaml.Unmarshal)
	case ".json":
		samples, err = decodeCorpus(data, json.Unmarshal)
	default:
		samples, err = parseLines(string(data))
	}
	if err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyCorpus)
	}
	return samples, nil
}

func decodeCorpus(data []byte, unmarshal func([]byte, any) error) ([]string, error) {
	var list []string
	if err := unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc corpusFile
	if err := unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Samples, nil
}

func parseLines(s string) ([]string, error) {
	var samples []string
	for i, line := range strings.Split(s, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(line) >= 2 && line[0] == '"' && line[len(line)-1] == '"' {
			unquoted, err := strconv.Unquote(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			line = unquoted
		}
		samples = append(samples, line)
	}
	return samples, nil
}
