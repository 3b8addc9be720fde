package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/spmcheck/internal/logger"
	"github.com/samcharles93/spmcheck/internal/probe"
)

func probeCmd() *cli.Command {
	return &cli.Command{
		Name:   "probe",
		Usage:  "Encode and decode every corpus sample and print the results (default)",
		Action: probeAction,
	}
}

func probeAction(ctx context.Context, cmd *cli.Command) error {
	ctx, _, err := prepare(ctx, cmd)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)

	f, err := probe.ParseFormat(format)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	corpus, err := loadCorpus()
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}

	proc, path, err := openModel(ctx, cmd)
	if err != nil {
		return err
	}

	report, err := probe.Run(ctx, proc, corpus)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	report.Model = path

	s := report.Summary()
	log.Info("probe finished", "samples", s.Cases, "round_trips", s.RoundTrips, "tokens", s.Tokens)
	return probe.Write(outWriter(cmd), report, f)
}

func loadCorpus() ([]string, error) {
	if corpusPath == "" {
		return probe.DefaultCorpus(), nil
	}
	return probe.LoadCorpus(corpusPath)
}
