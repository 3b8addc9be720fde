package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samcharles93/spmcheck/internal/api"
)

const (
	envModel     = "SPMCHECK_MODEL"
	envModelsDir = "SPMCHECK_MODELS_DIR"
	envConfig    = "SPMCHECK_CONFIG"
)

// fallbackModelPaths are tried, in order, when neither a model nor a models
// directory is configured.
var fallbackModelPaths = []string{
	filepath.Join("models", "sentencepiece.bpe.model"),
	"tokenizer.model",
}

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

var errNoModel = errors.New("no model found")

func resolveModelPath(modelFlag string, modelsDir string, stdin io.Reader, stderr io.Writer) (string, error) {
	modelFlag = strings.TrimSpace(modelFlag)
	if modelFlag != "" {
		return filepath.Clean(modelFlag), nil
	}

	modelsDir = strings.TrimSpace(modelsDir)
	if modelsDir != "" {
		models, err := api.DiscoverModels(modelsDir)
		if err != nil {
			return "", err
		}
		switch len(models) {
		case 0:
			// fall through to the well-known locations
		case 1:
			_, _ = fmt.Fprintf(stderr, "spmcheck: using model %s\n", models[0])
			return models[0], nil
		default:
			if !stdinIsTTY() {
				return "", fmt.Errorf(
					"multiple models found in %s but stdin is not interactive; set --model",
					modelsDir,
				)
			}
			return selectModelInteractively(modelsDir, models, stdin, stderr)
		}
	}

	for _, cand := range fallbackModelPaths {
		if st, err := os.Stat(cand); err == nil && !st.IsDir() {
			return cand, nil
		}
	}
	return "", fmt.Errorf("%w: set --model, --models-path or %s (also tried %s)",
		errNoModel, envModel, strings.Join(fallbackModelPaths, ", "))
}

func selectModelInteractively(modelsDir string, models []string, stdin io.Reader, stderr io.Writer) (string, error) {
	if len(models) == 0 {
		return "", fmt.Errorf("no models available in %s", modelsDir)
	}

	_, _ = fmt.Fprintf(stderr, "spmcheck: select a model from %s\n", modelsDir)
	for i, m := range models {
		_, _ = fmt.Fprintf(stderr, "%d. %s\n", i+1, modelDisplayName(modelsDir, m))
	}

	reader := bufio.NewReader(stdin)
	for {
		_, _ = fmt.Fprintf(stderr, "spmcheck: enter selection [1-%d]: ", len(models))
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no selection provided on stdin; set --model")
			}
			continue
		}

		idx, convErr := strconv.Atoi(line)
		if convErr != nil || idx < 1 || idx > len(models) {
			_, _ = fmt.Fprintf(stderr, "spmcheck: invalid selection %q\n", line)
			if errors.Is(err, io.EOF) {
				return "", errors.New("invalid selection provided on stdin; set --model")
			}
			continue
		}
		return models[idx-1], nil
	}
}

func modelDisplayName(modelsDir, modelPath string) string {
	rel, err := filepath.Rel(modelsDir, modelPath)
	if err != nil || rel == "." {
		return filepath.Base(modelPath)
	}
	return rel
}

func isTTY() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
