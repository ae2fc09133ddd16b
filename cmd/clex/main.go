package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/clex/internal/config"
	"github.com/standardbeagle/clex/internal/debug"
	"github.com/standardbeagle/clex/internal/version"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("trigraphs") {
		cfg.Lang.Trigraphs = c.Bool("trigraphs")
	}
	if c.IsSet("digraphs") {
		cfg.Lang.Digraphs = c.Bool("digraphs")
	}
	if c.IsSet("bcpl-comments") {
		cfg.Lang.BCPLComment = c.Bool("bcpl-comments")
	}
	if c.Bool("cplusplus") {
		cfg.Lang.CPlusPlus = true
	}
	if c.Bool("min-max") {
		cfg.Lang.CPlusPlus = true
		cfg.Lang.CPPMinMax = true
	}
	if c.Bool("objc") {
		cfg.Lang.ObjC1 = true
	}
	if c.Bool("dollar-idents") {
		cfg.Lang.DollarIdents = true
	}
	if c.IsSet("hex-floats") {
		cfg.Lang.HexFloats = c.Bool("hex-floats")
	}
	if c.Bool("pedantic") {
		cfg.Diags.WarnOnExtensions = true
	}
	if c.Bool("pedantic-errors") {
		cfg.Diags.ErrorOnExtensions = true
	}
	if c.Bool("Werror") {
		cfg.Diags.WarningsAsErrors = true
	}

	return cfg, cfg.Validate()
}

func main() {
	app := &cli.App{
		Name:                   "clex",
		Usage:                  "C-family preprocessing token dumper",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   ".clex.toml",
			},
			&cli.StringSliceFlag{
				Name:    "include-dir",
				Aliases: []string{"I"},
				Usage:   "Add a directory to the #include search path",
			},
			&cli.BoolFlag{Name: "trigraphs", Usage: "Enable trigraph expansion"},
			&cli.BoolFlag{Name: "digraphs", Usage: "Enable digraph punctuators"},
			&cli.BoolFlag{Name: "bcpl-comments", Usage: "Allow // comments"},
			&cli.BoolFlag{Name: "cplusplus", Usage: "Lex as C++"},
			&cli.BoolFlag{Name: "min-max", Usage: "Enable the deprecated <? and >? operators (implies C++)"},
			&cli.BoolFlag{Name: "objc", Usage: "Enable Objective-C @"},
			&cli.BoolFlag{Name: "dollar-idents", Usage: "Allow $ in identifiers"},
			&cli.BoolFlag{Name: "hex-floats", Usage: "Allow hexadecimal float constants"},
			&cli.BoolFlag{Name: "pedantic", Usage: "Warn on language extensions"},
			&cli.BoolFlag{Name: "pedantic-errors", Usage: "Error on language extensions"},
			&cli.BoolFlag{Name: "Werror", Usage: "Treat warnings as errors"},
			&cli.BoolFlag{Name: "debug", Usage: "Write debug traces to stderr"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				debug.SetOutput(os.Stderr)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "dump",
				Usage:     "Lex files and print their preprocessing tokens",
				ArgsUsage: "[patterns...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "stdin", Usage: "Lex standard input instead of files"},
					&cli.BoolFlag{Name: "flags", Usage: "Print token flags"},
					&cli.BoolFlag{Name: "watch", Usage: "Re-lex files when they change"},
				},
				Action: dumpCommand,
			},
			{
				Name:      "stats",
				Usage:     "Lex files and print file, source and identifier table statistics",
				ArgsUsage: "[patterns...]",
				Action:    statsCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "clex: %v\n", err)
		os.Exit(1)
	}
}
