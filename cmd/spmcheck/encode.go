package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/spmcheck/internal/probe"
	"github.com/samcharles93/spmcheck/internal/sentencepiece"
)

func encodeCmd() *cli.Command {
	var (
		idsOnly    bool
		piecesOnly bool
		addBOS     bool
		addEOS     bool
		asJSON     bool
	)

	return &cli.Command{
		Name:      "encode",
		Aliases:   []string{"enc"},
		Usage:     "Encode text given as arguments, or one line at a time from stdin",
		ArgsUsage: "[text...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "ids-only",
				Usage:       "print only the ids",
				Destination: &idsOnly,
			},
			&cli.BoolFlag{
				Name:        "pieces-only",
				Usage:       "print only the pieces",
				Destination: &piecesOnly,
			},
			&cli.BoolFlag{
				Name:        "add-bos",
				Usage:       "prepend the beginning-of-sentence id",
				Destination: &addBOS,
			},
			&cli.BoolFlag{
				Name:        "add-eos",
				Usage:       "append the end-of-sentence id",
				Destination: &addEOS,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print one JSON object per input",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, _, err := prepare(ctx, cmd)
			if err != nil {
				return err
			}
			if idsOnly && piecesOnly {
				return cli.Exit("error: --ids-only and --pieces-only are mutually exclusive", 1)
			}
			proc, _, err := openModel(ctx, cmd)
			if err != nil {
				return err
			}

			out := outWriter(cmd)
			enc := json.NewEncoder(out)
			emit := func(text string) error {
				tokens := proc.EncodeTokens(text, addBOS, addEOS)
				pieces, ids := splitTokens(tokens)
				switch {
				case asJSON:
					return enc.Encode(struct {
						Text   string   `json:"text"`
						Pieces []string `json:"pieces,omitempty"`
						IDs    []int    `json:"ids,omitempty"`
					}{
						Text:   text,
						Pieces: pickPieces(pieces, !idsOnly),
						IDs:    pickIDs(ids, !piecesOnly),
					})
				case idsOnly:
					_, err := fmt.Fprintln(out, joinInts(ids, " "))
					return err
				case piecesOnly:
					_, err := fmt.Fprintln(out, strings.Join(pieces, " "))
					return err
				default:
					_, err := fmt.Fprintf(out, "Pieces: %s\nIDs: %s\n", probe.FormatPieces(pieces), probe.FormatIDs(ids))
					return err
				}
			}

			return forEachInput(ctx, cmd, emit)
		},
	}
}

// forEachInput calls fn with the joined arguments, or with each stdin line
// when there are none.
func forEachInput(ctx context.Context, cmd *cli.Command, fn func(string) error) error {
	if cmd.Args().Present() {
		return fn(strings.Join(cmd.Args().Slice(), " "))
	}
	return forEachLine(ctx, inReader(cmd), fn)
}

func forEachLine(ctx context.Context, r io.Reader, fn func(string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(strings.TrimSuffix(sc.Text(), "\r")); err != nil {
			return err
		}
	}
	return sc.Err()
}

func splitTokens(tokens []sentencepiece.Token) ([]string, []int) {
	pieces := make([]string, len(tokens))
	ids := make([]int, len(tokens))
	for i, t := range tokens {
		pieces[i] = t.Text
		ids[i] = t.ID
	}
	return pieces, ids
}

func pickPieces(pieces []string, keep bool) []string {
	if !keep {
		return nil
	}
	return pieces
}

func pickIDs(ids []int, keep bool) []int {
	if !keep {
		return nil
	}
	return ids
}

func joinInts(ids []int, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, sep)
}
