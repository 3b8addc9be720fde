package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
)

func decodeCmd() *cli.Command {
	var piecesMode bool

	return &cli.Command{
		Name:      "decode",
		Aliases:   []string{"dec"},
		Usage:     "Decode ids given as arguments, or one sequence per stdin line",
		ArgsUsage: "[id...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "pieces",
				Usage:       "treat the input as pieces instead of ids",
				Destination: &piecesMode,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, _, err := prepare(ctx, cmd)
			if err != nil {
				return err
			}
			proc, _, err := openModel(ctx, cmd)
			if err != nil {
				return err
			}

			out := outWriter(cmd)
			return forEachInput(ctx, cmd, func(line string) error {
				if piecesMode {
					_, err := fmt.Fprintln(out, proc.DecodePieces(strings.Fields(line)))
					return err
				}
				ids, err := parseIDs(line)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				text, err := proc.Decode(ids)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				_, err = fmt.Fprintln(out, text)
				return err
			})
		},
	}
}

// parseIDs accepts ids separated by spaces or commas, optionally wrapped in
// brackets as printed by the probe.
func parseIDs(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
