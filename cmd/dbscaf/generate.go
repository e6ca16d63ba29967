package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/generate"
	"github.com/rlch/dbscaf/introspect"
	"github.com/rlch/dbscaf/report"

	// Register database drivers and the Go artifact generator.
	_ "github.com/rlch/dbscaf/introspect/mysql"
	_ "github.com/rlch/dbscaf/introspect/postgres"
	_ "github.com/rlch/dbscaf/language/golang"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Introspect the database and write service artifacts",
		Flags: append(connectionFlags(),
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output directory (overrides config)",
			},
			&cli.StringFlag{
				Name:    "package",
				Aliases: []string{"p"},
				Usage:   "package name for generated code (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:    "tables",
				Aliases: []string{"t"},
				Usage:   "only generate for these tables (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude-tables",
				Usage: "skip these tables (overrides config)",
			},
			&cli.StringFlag{
				Name:  "relation-style",
				Usage: "relationship rendering: pk, link, or nested (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "artifacts",
				Usage: "limit output to these artifact kinds",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "render everything, write nothing",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "verbose logging",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable colored output",
			},
		),
		Action: runGenerate,
	}
}

// connectionFlags are shared by every command that opens a database.
func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to .dbscaf.yaml (default: discovered upward from cwd)",
		},
		&cli.StringFlag{
			Name:    "driver",
			Aliases: []string{"d"},
			Usage:   "database driver: postgres or mysql (overrides config)",
		},
		&cli.StringFlag{
			Name:    "uri",
			Usage:   "database connection string (overrides config)",
			Sources: cli.EnvVars("DBSCAF_URI"),
		},
	}
}

func runGenerate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd.Bool("verbose"))
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	conn, err := introspect.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close(ctx)
	}()

	p := generate.New(cfg, logger)
	p.Artifacts = cmd.StringSlice("artifacts")
	p.DryRun = cmd.Bool("dry-run")

	res, err := p.Run(ctx, conn)
	if err != nil {
		return err
	}

	report.NewPrinter(os.Stdout, cmd.Bool("no-color")).Summary(res)

	return nil
}

// loadConfig loads the config file (explicit path or upward discovery) and
// layers command-line overrides on top.
func loadConfig(cmd *cli.Command) (*dbscaf.Config, error) {
	var (
		cfg *dbscaf.Config
		err error
	)

	if path := cmd.String("config"); path != "" {
		cfg, err = dbscaf.LoadConfigFile(path)
	} else {
		cwd, wdErr := os.Getwd()
		if wdErr != nil {
			return nil, wdErr
		}

		cfg, err = dbscaf.LoadConfig(cwd)
		if errors.Is(err, dbscaf.ErrConfigNotFound) {
			// No file: connection must come entirely from flags.
			cfg, err = &dbscaf.Config{}, nil
		}
	}
	if err != nil {
		return nil, err
	}

	applyOverrides(cfg, cmd)
	cfg.ApplyDefaults()

	return cfg, cfg.Validate()
}

func applyOverrides(cfg *dbscaf.Config, cmd *cli.Command) {
	if uri := cmd.String("uri"); uri != "" {
		switch cmd.String("driver") {
		case dbscaf.DriverMySQL:
			cfg.MySQL = &dbscaf.MySQLConfig{DSN: uri}
			cfg.Postgres = nil
		default:
			cfg.Postgres = &dbscaf.PostgresConfig{URI: uri}
			cfg.MySQL = nil
		}
	}
	if out := cmd.String("out"); out != "" {
		cfg.Generate.Out = out
	}
	if pkg := cmd.String("package"); pkg != "" {
		cfg.Generate.Package = pkg
	}
	if style := cmd.String("relation-style"); style != "" {
		cfg.Generate.RelationStyle = style
	}
	if tables := cmd.StringSlice("tables"); len(tables) > 0 {
		cfg.IncludeTables = tables
	}
	if tables := cmd.StringSlice("exclude-tables"); len(tables) > 0 {
		cfg.ExcludeTables = tables
	}
}
