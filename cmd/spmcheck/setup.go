package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/spmcheck/internal/logger"
	"github.com/samcharles93/spmcheck/internal/sentencepiece"
)

// prepare loads the config file, applies it to unset flags and stores the
// configured logger in the returned context.
func prepare(ctx context.Context, cmd *cli.Command) (context.Context, Config, error) {
	cfg, err := LoadConfig(configPath())
	if err != nil {
		return ctx, Config{}, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	applyConfig(cmd, cfg)

	level := logLevel
	if debug {
		level = "debug"
	}
	log, err := logger.Setup(errWriter(cmd), logFormat, level)
	if err != nil {
		return ctx, Config{}, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	return logger.WithContext(ctx, log), cfg, nil
}

// openModel resolves the model path and loads a processor for it.
func openModel(ctx context.Context, cmd *cli.Command) (*sentencepiece.Processor, string, error) {
	path, err := resolveModelPath(modelPath, modelsPath, inReader(cmd), errWriter(cmd))
	if err != nil {
		return nil, "", cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	proc, err := sentencepiece.Open(path)
	if err != nil {
		return nil, "", cli.Exit(fmt.Sprintf("error: load model: %v", err), 1)
	}
	logger.FromContext(ctx).Debug("loaded model", "path", path, "vocab_size", proc.VocabSize(), "type", proc.Model().Trainer.ModelType)
	return proc, path, nil
}

func outWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

func inReader(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}
