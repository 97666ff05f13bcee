package commands

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/relquery/internal/catalog"
)

var dbRefreshSeedFlag bool

// NewDBCommand creates the db command
func NewDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long:  `Manage the catalog tables of the configured database.`,
		Example: `  # Drop and recreate the catalog tables
  relquery db refresh

  # Recreate and seed
  relquery db refresh --seed`,
	}

	cmd.AddCommand(newDBRefreshCommand())

	return cmd
}

func newDBRefreshCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Drop and recreate the catalog tables",
		Long: `Drop every catalog table, dependents first, then recreate them owners first.
All statements run in one transaction.`,
		RunE: runDBRefresh,
	}

	cmd.Flags().BoolVar(&dbRefreshSeedFlag, "seed", false, "Insert the demo rows after refreshing")

	return cmd
}

func runDBRefresh(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	successColor := color.New(color.FgGreen, color.Bold)
	errorColor := color.New(color.FgRed, color.Bold)

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.connect(ctx); err != nil {
		errorColor.Fprintln(out, "✗ Failed to open database")
		return err
	}
	if err := a.orm.RefreshDatabase(ctx); err != nil {
		errorColor.Fprintln(out, "✗ Schema refresh failed")
		return err
	}
	successColor.Fprintf(out, "✓ Recreated %d tables\n", a.registry.Len())

	if dbRefreshSeedFlag {
		if err := catalog.Seed(ctx, a.orm.Session()); err != nil {
			errorColor.Fprintln(out, "✗ Seeding failed")
			return err
		}
		successColor.Fprintln(out, "✓ Seeded catalog")
	}
	return nil
}
