package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systemshift/crmgraph/internal/server/app"
	"github.com/systemshift/crmgraph/internal/server/registry"
)

func newRegistryCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Print the entity registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(file)
			if err != nil {
				return err
			}
			printRegistry(cmd.OutOrStdout(), reg)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "registry extension file (defaults to built-in table only)")
	return cmd
}

func printRegistry(w io.Writer, reg *registry.Registry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tLABEL\tKEY\tREFERENCES")
	for _, t := range reg.Types() {
		spec, _ := reg.Lookup(t)
		refs := "-"
		for i, ref := range spec.References {
			s := fmt.Sprintf("%s -> (%s)-[%s]->", ref.Field, ref.TargetLabel, ref.RelType)
			if i == 0 {
				refs = s
			} else {
				refs += ", " + s
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", spec.Type, spec.Label, spec.KeyField, refs)
	}
	tw.Flush()
}

func newConstraintsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "constraints",
		Short: "Create uniqueness constraints for every registry label",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			// app.New already ensures constraints when ENSURE_CONSTRAINTS is set
			cfg.EnsureConstraints = false
			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			labels := a.Registry.Labels()
			if err := a.Store.EnsureConstraints(ctx, labels); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "constraints ensured for %d labels\n", len(labels))
			return nil
		},
	}
}
