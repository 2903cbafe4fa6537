package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/resnum/internal"
	pkgconfig "github.com/starford/resnum/pkg/config"
)

const version = "1.0"

// loadConfig reads the --config file on top of the defaults. A missing file
// is only an error when it was named explicitly.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadIfExists(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found && cmd.IsSet("config") {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}
	return cfg, nil
}

// applyFastaFlags copies flag values over the config when the user set them.
func applyFastaFlags(cmd *cli.Command, cfg *internal.Config) {
	if cmd.IsSet("exclude") {
		cfg.Fasta.Exclude = cmd.String("exclude")
	}
	if cmd.IsSet("index") {
		cfg.SQLite.Path = cmd.String("index")
	}
}

func runSpans(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: resnum spans FASTA INPUT")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Fasta.Path = cmd.Args().Get(0)
	applyFastaFlags(cmd, cfg)

	if cmd.IsSet("flank") {
		cfg.Spans.Flank = int(cmd.Int("flank"))
	}
	if cmd.IsSet("pivot") {
		cfg.Spans.Pivot = cmd.String("pivot")
	}
	if cmd.IsSet("seq-col") {
		cfg.Spans.SeqColumn = cmd.String("seq-col")
	}
	if cmd.IsSet("id-col") {
		cfg.Spans.IDColumn = cmd.String("id-col")
	}
	if cmd.IsSet("mask") {
		cfg.Spans.Mask = cmd.String("mask")
	}
	if cmd.IsSet("delimiter") {
		cfg.Spans.Delimiter = internal.ParseDelimiter(cmd.String("delimiter"))
	}
	if cmd.IsSet("output") {
		cfg.Output.Path = cmd.String("output")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	return internal.RunSpans(ctx, cmd.Args().Get(1), internal.WithConfig(cfg))
}

func runIndex(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: resnum index FASTA")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Fasta.Path = cmd.Args().Get(0)
	applyFastaFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	return internal.RunIndex(ctx, internal.WithConfig(cfg))
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("fasta") {
		cfg.Fasta.Path = cmd.String("fasta")
	}
	applyFastaFlags(cmd, cfg)
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("fasta") {
		cfg.Fasta.Path = cmd.String("fasta")
	}
	applyFastaFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("RESNUM_CONFIG_FILE"),
	}
}

// fastaFlags are shared by every command that reads a FASTA file.
func fastaFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:  "exclude",
			Usage: "Regexp for FASTA headers to drop with their sequence",
			Value: `^>Reverse_`,
		},
		&cli.StringFlag{
			Name:    "index",
			Usage:   "SQLite sequence index path (overrides sqlite.path)",
			Sources: cli.EnvVars("RESNUM_INDEX"),
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "resnum",
		Usage:   "Number peptide residues by their position in the full protein and cut flanking spans",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:      "spans",
				Usage:     "Expand a peptide table into one row per pivot residue",
				ArgsUsage: "FASTA INPUT",
				Action:    runSpans,
				Flags: append(fastaFlags(),
					&cli.IntFlag{Name: "flank", Aliases: []string{"n"}, Usage: "Residues kept on each side of the pivot", Value: 5},
					&cli.StringFlag{Name: "pivot", Aliases: []string{"p"}, Usage: "Pivot residue (one letter)", Value: "C"},
					&cli.StringFlag{Name: "seq-col", Usage: "Peptide column name", Value: "sequence"},
					&cli.StringFlag{Name: "id-col", Usage: "Accession column name", Value: "ipi"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file ('-' for stdout)", Value: "peptideSpans.tsv"},
					&cli.StringFlag{Name: "mask", Usage: "Characters stripped from peptides before matching", Value: "*"},
					&cli.StringFlag{Name: "delimiter", Aliases: []string{"d"}, Usage: "Field delimiter of input and output (use \\t or tab for a tab)", Value: "\t", DefaultText: `\t`},
				),
			},
			{
				Name:      "index",
				Usage:     "Build or refresh the SQLite sequence index",
				ArgsUsage: "FASTA",
				Action:    runIndex,
				Flags:     fastaFlags(),
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: runServe,
				Flags: append(fastaFlags(),
					&cli.StringFlag{Name: "fasta", Usage: "FASTA file (overrides fasta.path)", Sources: cli.EnvVars("RESNUM_FASTA")},
					&cli.IntFlag{Name: "port", Usage: "HTTP port (overrides app.http.port)"},
				),
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdio",
				Action: runMCP,
				Flags: append(fastaFlags(),
					&cli.StringFlag{Name: "fasta", Usage: "FASTA file (overrides fasta.path)", Sources: cli.EnvVars("RESNUM_FASTA")},
				),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
