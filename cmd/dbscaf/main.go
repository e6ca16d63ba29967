// Command dbscaf introspects a relational database and generates CRUD
// service artifacts from its schema.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/dbscaf/report"
)

func main() {
	// Connection credentials commonly live in a .env next to the config.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "dbscaf",
		Usage: "Generate CRUD service artifacts from a database schema",
		Commands: []*cli.Command{
			generateCommand(),
			inspectCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		report.NewPrinter(os.Stderr, false).Error(err)
		os.Exit(1)
	}
}

// newLogger builds a stderr console logger. Verbose lowers the level to
// debug; the default stays at warn so generation output is the report, not
// the log.
func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)

	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return config.Build()
}
