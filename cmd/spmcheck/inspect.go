package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/spmcheck/internal/sentencepiece"
)

func inspectCmd() *cli.Command {
	var (
		head   int64
		tail   int64
		asJSON bool
		types  string
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Print a model summary and a sample of its vocabulary",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "head",
				Usage:       "number of pieces to list from the start of the vocabulary",
				Value:       10,
				Destination: &head,
			},
			&cli.Int64Flag{
				Name:        "tail",
				Usage:       "number of pieces to list from the end of the vocabulary",
				Value:       5,
				Destination: &tail,
			},
			&cli.StringFlag{
				Name:        "type",
				Usage:       "only list pieces of these comma separated types (normal, unknown, control, user_defined, unused, byte)",
				Destination: &types,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the summary as JSON",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, _, err := prepare(ctx, cmd)
			if err != nil {
				return err
			}
			filter, err := parseTypes(types)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			proc, path, err := openModel(ctx, cmd)
			if err != nil {
				return err
			}

			out := outWriter(cmd)
			info := proc.ModelInfo()
			if asJSON {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "%s\n", data)
				return err
			}

			writeSummary(out, path, info)
			ids := selectPieces(proc, int(head), int(tail), filter)
			if len(ids) == 0 {
				return nil
			}
			_, _ = fmt.Fprintln(out)
			writePieceTable(out, proc, ids)
			return nil
		},
	}
}

func writeSummary(w io.Writer, path string, info sentencepiece.ModelInfo) {
	rows := [][]string{
		{"model", path},
		{"type", info.ModelType},
		{"vocab size", strconv.Itoa(info.VocabSize)},
		{"unk / bos / eos / pad", fmt.Sprintf("%d / %d / %d / %d", info.UnknownID, info.BOSID, info.EOSID, info.PadID)},
		{"unk surface", strconv.Quote(info.UnknownSurface)},
		{"byte fallback", strconv.FormatBool(info.ByteFallback)},
		{"normalizer", info.Normalizer},
		{"add dummy prefix", strconv.FormatBool(info.AddDummyPrefix)},
		{"whitespace as suffix", strconv.FormatBool(info.WhitespaceAsSfx)},
		{"longest piece", fmt.Sprintf("%d runes", info.MaxPieceRunes)},
		{"piece types", formatTypeCounts(info.TypeCounts)},
		{"fingerprint", info.Fingerprint},
	}
	if len(info.UserDefined) > 0 {
		rows = append(rows, []string{"user defined", strings.Join(info.UserDefined, " ")})
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}

func writePieceTable(w io.Writer, proc *sentencepiece.Processor, ids []int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "PIECE", "TYPE", "SCORE"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")

	prev := -1
	for _, id := range ids {
		if prev >= 0 && id != prev+1 {
			table.Append([]string{"...", "", "", ""})
		}
		piece, _ := proc.IDToPiece(id)
		table.Append([]string{
			strconv.Itoa(id),
			strconv.Quote(piece),
			proc.Type(id).String(),
			strconv.FormatFloat(float64(proc.Score(id)), 'g', -1, 32),
		})
		prev = id
	}
	table.Render()
}

// selectPieces returns the ids of the first head and last tail pieces that
// match types, in ascending order.
func selectPieces(proc *sentencepiece.Processor, head, tail int, types map[sentencepiece.PieceType]bool) []int {
	var matching []int
	for id := 0; id < proc.VocabSize(); id++ {
		if len(types) == 0 || types[proc.Type(id)] {
			matching = append(matching, id)
		}
	}
	head = max(head, 0)
	tail = max(tail, 0)
	if head+tail >= len(matching) {
		return matching
	}
	out := append([]int{}, matching[:head]...)
	return append(out, matching[len(matching)-tail:]...)
}

// parseTypes parses a comma separated list of piece type names. An empty
// list means no filter.
func parseTypes(s string) (map[sentencepiece.PieceType]bool, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	types := make(map[sentencepiece.PieceType]bool)
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		t, ok := pieceTypeByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown piece type %q (want normal, unknown, control, user_defined, unused or byte)", name)
		}
		types[t] = true
	}
	return types, nil
}

func pieceTypeByName(name string) (sentencepiece.PieceType, bool) {
	for t := sentencepiece.TypeNormal; t <= sentencepiece.TypeByte; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

func formatTypeCounts(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, counts[name])
	}
	return strings.Join(parts, " ")
}
