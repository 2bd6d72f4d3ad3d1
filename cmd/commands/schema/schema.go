package schema

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"nathanbeddoewebdev/fleetmetrics/internal/app"
	"nathanbeddoewebdev/fleetmetrics/internal/warehouse"

	"github.com/spf13/cobra"
)

// NewCommand returns the "schema" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the warehouse schema",
		Long: `Apply, inspect or roll back the warehouse table and rolling window views.

Migrations are versioned and embedded in the binary; applying them is
idempotent and also happens at the start of every load.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(ApplyCommand())
	cmd.AddCommand(StatusCommand())
	cmd.AddCommand(RollbackCommand())

	return cmd
}

func ApplyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWarehouse(cmd, func(wh *warehouse.Warehouse) error {
				if err := wh.ApplySchema(cmd.Context()); err != nil {
					return err
				}
				st, err := wh.Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema is at version %d (%s).\n", st.Current, st.Dialect)
				return nil
			})
		},
		SilenceUsage: true,
	}
}

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			if output != "table" && output != "json" {
				return fmt.Errorf("unsupported output format %q", output)
			}
			return withWarehouse(cmd, func(wh *warehouse.Warehouse) error {
				st, err := wh.Status(cmd.Context())
				if err != nil {
					return err
				}
				if output == "json" {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(st)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "  Dialect:\t%s\n", st.Dialect)
				fmt.Fprintf(w, "  Current:\t%d\n", st.Current)
				fmt.Fprintf(w, "  Latest:\t%d\n", st.Latest)
				fmt.Fprintf(w, "  Pending:\t%d\n", st.Pending)
				return w.Flush()
			})
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func RollbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recent schema migration",
		Long: `Revert the most recent schema migration.

Rolling back the first migration drops the base table and every stored
daily row. Pass --yes to confirm.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return fmt.Errorf("refusing to roll back without --yes")
			}
			return withWarehouse(cmd, func(wh *warehouse.Warehouse) error {
				if err := wh.RollbackSchema(cmd.Context()); err != nil {
					return err
				}
				st, err := wh.Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema rolled back to version %d.\n", st.Current)
				return nil
			})
		},
		SilenceUsage: true,
	}

	cmd.Flags().Bool("yes", false, "Confirm the rollback")

	return cmd
}

func withWarehouse(cmd *cobra.Command, fn func(*warehouse.Warehouse) error) error {
	a, err := app.FromCommand(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	wh, err := a.Warehouse()
	if err != nil {
		return err
	}
	defer wh.Close()
	return fn(wh)
}
