package main

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/events"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events [catalog]",
	Short: "List event catalogs and the events they declare.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := events.NewRegistry(&baseLogger)
		catalogs := reg.Catalogs()
		if len(args) == 1 {
			catalogs = filterCatalogs(catalogs, args[0])
			if len(catalogs) == 0 {
				return fmt.Errorf("no catalog named %q", args[0])
			}
		}
		return printCatalogs(cmd.OutOrStdout(), catalogs)
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

func filterCatalogs(catalogs []*event.Catalog, name string) []*event.Catalog {
	for _, c := range catalogs {
		if c.Name() == name {
			return []*event.Catalog{c}
		}
	}
	return nil
}

func printCatalogs(out io.Writer, catalogs []*event.Catalog) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, c := range catalogs {
		fmt.Fprintf(w, "%s\n", c.Name())
		for _, d := range c.Descriptors() {
			var flags []string
			if d.RetvalEligible() {
				flags = append(flags, "retval("+strings.Join(d.Retval, ", ")+")")
			}
			if d.Once {
				flags = append(flags, "once")
			}
			fmt.Fprintf(w, "  %s\t(%s)\t%s\n", d.Name, strings.Join(d.Params, ", "), strings.Join(flags, " "))
		}
	}
	return w.Flush()
}
