package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/relquery/internal/catalog"
	"github.com/conduit-lang/relquery/internal/cli/ui"
	"github.com/conduit-lang/relquery/internal/orm/query"
	"github.com/conduit-lang/relquery/internal/orm/storage"
)

var (
	explainRootFlag     string
	explainPopulateFlag []string
	explainOrderByFlag  []string
	explainWhereFlag    []string
	explainLimitFlag    int
)

// NewExplainCommand creates the explain command
func NewExplainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show the join plan and SQL of a find",
		Long: `Resolve a find against the catalog entities and print its join plan and
SQL without touching the database. Every join lists the directives that
required it.`,
		Example: `  # Populate the model, order by the manufacturer name
  relquery explain --populate model --order-by model.manufacturer.name:asc

  # Filter through two relations
  relquery explain --where model.manufacturer.name=Manufacturer`,
		RunE: runExplain,
	}

	cmd.Flags().StringVar(&explainRootFlag, "root", catalog.Equipment, "Root entity")
	cmd.Flags().StringSliceVar(&explainPopulateFlag, "populate", nil, "Relation path to populate (repeatable)")
	cmd.Flags().StringSliceVar(&explainOrderByFlag, "order-by", nil, "Sort key as path[:asc|desc] (repeatable)")
	cmd.Flags().StringArrayVar(&explainWhereFlag, "where", nil, "Equality filter as path=value (repeatable)")
	cmd.Flags().IntVar(&explainLimitFlag, "limit", 0, "Limit the number of rows")

	return cmd
}

func runExplain(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	dialect, err := storage.ParseDialect(a.cfg.Database.Driver)
	if err != nil {
		return err
	}

	root, err := a.registry.Lookup(explainRootFlag)
	if err != nil {
		return err
	}

	opts := query.FindOptions{Populate: explainPopulateFlag}
	for _, term := range explainOrderByFlag {
		m, err := query.ParseOrderTerm(term)
		if err != nil {
			return fmt.Errorf("--order-by %q: %w", term, err)
		}
		opts.OrderBy = append(opts.OrderBy, m)
	}
	if explainLimitFlag > 0 {
		limit := explainLimitFlag
		opts.Limit = &limit
	}

	filter, err := query.ParseFilterTerms(explainWhereFlag)
	if err != nil {
		return err
	}

	spec, err := query.NewResolver(a.registry).Spec(root, filter, opts)
	if err != nil {
		return err
	}
	plan, err := query.Plan(spec)
	if err != nil {
		return err
	}
	stmt, err := query.Build(plan, spec, dialect)
	if err != nil {
		return err
	}

	planTable := ui.NewTable(out, []string{"Alias", "Join", "Entity", "Path", "Kind"}, color.NoColor)
	for _, e := range plan.Entries() {
		if e.IsRoot() {
			planTable.AddRow(e.Alias, "FROM", e.Target().Name, "", e.Kind.String())
			continue
		}
		planTable.AddRow(e.Alias, e.JoinType.String(), e.Target().Name, e.Path.String(), e.Kind.String())
	}
	planTable.Render()
	fmt.Fprintln(out)

	sqlSection := ui.NewSection(out, "SQL:", color.NoColor)
	sqlSection.AddLine(stmt.SQL)
	sqlSection.Render()

	if len(stmt.Args) > 0 {
		argSection := ui.NewSection(out, "Args:", color.NoColor)
		for i, arg := range stmt.Args {
			argSection.AddLine(fmt.Sprintf("%d: %v", i+1, arg))
		}
		argSection.Render()
	}
	return nil
}
