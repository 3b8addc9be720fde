package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "spmcheck",
		Usage: "Inspect and exercise SentencePiece tokenizer models",
		Description: "Without a subcommand spmcheck runs the probe: every sample of the corpus is\n" +
			"encoded to pieces and ids and decoded again.",
		Flags:  append(append(globalFlags(), loggingFlags()...), probeFlags()...),
		Action: probeAction,
		Commands: []*cli.Command{
			probeCmd(),
			encodeCmd(),
			decodeCmd(),
			pieceCmd(),
			inspectCmd(),
			replCmd(),
			serveCmd(),
			listModelsCmd(),
			benchCmd(),
			versionCmd(),
		},
	}
}
