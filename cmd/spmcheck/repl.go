package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/spmcheck/internal/probe"
	"github.com/samcharles93/spmcheck/internal/sentencepiece"
)

const replHelp = `Type text to see its pieces, ids and decoded form.
  :decode <ids>    decode ids
  :piece <id|str>  look up a piece
  :info            model summary
  :help            this help
  :quit            exit (also Ctrl+D)
`

func replCmd() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Interactively encode lines of text",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, _, err := prepare(ctx, cmd)
			if err != nil {
				return err
			}
			proc, path, err := openModel(ctx, cmd)
			if err != nil {
				return err
			}

			out := outWriter(cmd)
			fmt.Fprintf(out, "spmcheck repl: %s (%d pieces). :help for commands.\n", path, proc.VocabSize())
			return runREPL(ctx, proc, newLineReader(inReader(cmd), out), out)
		},
	}
}

type lineSource interface {
	ReadLine(prompt string) (string, error)
}

func runREPL(ctx context.Context, proc *sentencepiece.Processor, in lineSource, out io.Writer) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := in.ReadLine("> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := replLine(proc, line, out)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func replLine(proc *sentencepiece.Processor, line string, out io.Writer) (bool, error) {
	if !strings.HasPrefix(line, ":") {
		c, err := probe.RunCase(proc, line)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Pieces: %s\nIDs: %s\nDecoded: %s\n", probe.FormatPieces(c.Pieces), probe.FormatIDs(c.IDs), strconv.Quote(c.Decoded))
		return false, nil
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "q", "quit", "exit":
		return true, nil
	case "h", "help":
		fmt.Fprint(out, replHelp)
	case "d", "decode":
		ids, err := parseIDs(arg)
		if err != nil {
			return false, err
		}
		text, err := proc.Decode(ids)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, strconv.Quote(text))
	case "p", "piece":
		if arg == "" {
			return false, errors.New("usage: :piece <id|piece>")
		}
		s, err := lookupPiece(proc, arg)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, s)
	case "i", "info":
		info := proc.ModelInfo()
		fmt.Fprintf(out, "type=%s vocab=%d unk=%d bos=%d eos=%d byte_fallback=%t normalizer=%s fingerprint=%s\n",
			info.ModelType, info.VocabSize, info.UnknownID, info.BOSID, info.EOSID, info.ByteFallback, info.Normalizer, info.Fingerprint)
	default:
		return false, fmt.Errorf("unknown command :%s (try :help)", name)
	}
	return false, nil
}
