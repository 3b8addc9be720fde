package main

import "github.com/urfave/cli/v3"

var (
	modelPath  string
	modelsPath string
	configFile string
	corpusPath string
	format     string
	logLevel   string
	logFormat  string
	debug      bool
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "path to a SentencePiece .model file",
			Sources:     cli.EnvVars(envModel),
			Destination: &modelPath,
			TakesFile:   true,
		},
		&cli.StringFlag{
			Name:        "models-path",
			Aliases:     []string{"path"},
			Usage:       "directory containing .model files",
			Sources:     cli.EnvVars(envModelsDir),
			Destination: &modelsPath,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "config file (default $XDG_CONFIG_HOME/spmcheck/config.yaml)",
			Sources:     cli.EnvVars(envConfig),
			Destination: &configFile,
			TakesFile:   true,
		},
	}
}

func probeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "corpus",
			Usage:       "sample file (.txt one per line, .yaml or .json list); built-in samples when empty",
			Destination: &corpusPath,
			TakesFile:   true,
		},
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "report format (text, json, table)",
			Value:       "text",
			Destination: &format,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "warn",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
