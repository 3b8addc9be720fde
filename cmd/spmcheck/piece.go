package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/spmcheck/internal/sentencepiece"
)

func pieceCmd() *cli.Command {
	return &cli.Command{
		Name:      "piece",
		Usage:     "Look up pieces by id, or ids by piece",
		ArgsUsage: "<id|piece>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, _, err := prepare(ctx, cmd)
			if err != nil {
				return err
			}
			if !cmd.Args().Present() {
				return cli.Exit("error: at least one id or piece is required", 1)
			}
			proc, _, err := openModel(ctx, cmd)
			if err != nil {
				return err
			}

			out := outWriter(cmd)
			for _, arg := range cmd.Args().Slice() {
				line, err := lookupPiece(proc, arg)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// lookupPiece treats numeric arguments as ids and everything else as a
// piece string.
func lookupPiece(proc *sentencepiece.Processor, arg string) (string, error) {
	if id, err := strconv.Atoi(arg); err == nil {
		piece, ok := proc.IDToPiece(id)
		if !ok {
			return "", fmt.Errorf("%w: %d (vocabulary size %d)", sentencepiece.ErrIDOutOfRange, id, proc.VocabSize())
		}
		return formatPieceLine(proc, id, piece), nil
	}

	id := proc.PieceToID(arg)
	if stored, _ := proc.IDToPiece(id); stored != arg {
		return fmt.Sprintf("%q\tnot in vocabulary (unknown id %d)", arg, id), nil
	}
	return formatPieceLine(proc, id, arg), nil
}

func formatPieceLine(proc *sentencepiece.Processor, id int, piece string) string {
	return fmt.Sprintf("%d\t%q\t%s\t%g", id, piece, proc.Type(id), proc.Score(id))
}
