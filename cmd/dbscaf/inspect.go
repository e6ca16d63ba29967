package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/rlch/dbscaf/generate"
	"github.com/rlch/dbscaf/introspect"
	"github.com/rlch/dbscaf/resolve"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:   "inspect",
		Usage:  "Introspect the database and print the resolved entity model",
		Flags:  connectionFlags(),
		Action: runInspect,
	}
}

func runInspect(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	conn, err := introspect.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close(ctx)
	}()

	schema, err := conn.IntrospectSchema(ctx)
	if err != nil {
		return err
	}

	schema, err = generate.FilterSchema(cfg, schema)
	if err != nil {
		return err
	}

	model, err := resolve.Build(schema)
	if err != nil {
		return err
	}

	printModel(os.Stdout, model)

	return nil
}

// printModel writes one line per entity field, tab-aligned, in dependency
// order.
func printModel(w *os.File, m *resolve.Model) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	for _, e := range m.Entities {
		fmt.Fprintf(tw, "%s\t(table %s)\n", e.Name, e.Table)
		for _, f := range e.Fields {
			if f.Rel != nil {
				arrow := "->"
				if f.Rel.Collection {
					arrow = "->*"
				}
				fmt.Fprintf(tw, "  %s\t%s %s\n", f.Name, arrow, f.Rel.Target)

				continue
			}

			kind := f.Spec.Kind.String()
			if f.Spec.Nullable {
				kind += "?"
			}
			fmt.Fprintf(tw, "  %s\t%s\n", f.Name, kind)
		}
		fmt.Fprintln(tw)
	}

	junctions := make([]string, 0, len(m.Junctions))
	for name := range m.Junctions {
		junctions = append(junctions, name)
	}
	sort.Strings(junctions)
	for _, name := range junctions {
		fmt.Fprintf(tw, "junction %s\tcollapsed into %s\n", name, m.Junctions[name])
	}
}
