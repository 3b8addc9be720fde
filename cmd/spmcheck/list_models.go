package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/spmcheck/internal/api"
	"github.com/samcharles93/spmcheck/internal/logger"
	"github.com/samcharles93/spmcheck/internal/sentencepiece"
)

func listModelsCmd() *cli.Command {
	return &cli.Command{
		Name:    "list-models",
		Aliases: []string{"ls", "models"},
		Usage:   "List SentencePiece models in the models directory",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, _, err := prepare(ctx, cmd)
			if err != nil {
				return err
			}
			log := logger.FromContext(ctx)

			dir := strings.TrimSpace(modelsPath)
			if dir == "" {
				return cli.Exit("error: --models-path is required unless "+envModelsDir+" is set", 1)
			}

			models, err := api.DiscoverModels(dir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if len(models) == 0 {
				log.Info("no models found", "path", dir)
				return nil
			}

			data := make([][]string, 0, len(models))
			for _, m := range models {
				row := []string{filepath.Base(m), "", "", ""}
				if info, err := os.Stat(m); err == nil {
					row[1] = formatModelSize(info.Size())
				}
				// Unreadable models are still listed so the user sees them.
				if proc, err := sentencepiece.Open(m); err == nil {
					row[2] = proc.Model().Trainer.ModelType.String()
					row[3] = strconv.Itoa(proc.VocabSize())
				} else {
					log.Warn("cannot read model", "path", m, "error", err)
					row[2] = "invalid"
				}
				data = append(data, row)
			}

			table := tablewriter.NewWriter(outWriter(cmd))
			table.SetHeader([]string{"NAME", "SIZE", "TYPE", "VOCAB"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			table.AppendBulk(data)
			table.Render()
			return nil
		},
	}
}

func formatModelSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
