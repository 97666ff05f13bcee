package migrate

import (
	"context"
	"fmt"

	"github.com/conduit-lang/relquery/internal/orm/schema"
	"github.com/conduit-lang/relquery/internal/orm/storage"
)

// Refresh drops every table of the registry and recreates it, inside one
// transaction. Tables are dropped dependents first and created owners first.
func Refresh(ctx context.Context, exec storage.Executor, registry *schema.Registry, gen *Generator) error {
	order, err := registry.DependencyOrder()
	if err != nil {
		return fmt.Errorf("cannot order tables: %w", err)
	}

	var creates []string
	for _, name := range order {
		stmt, err := gen.CreateTable(registry.MustGet(name))
		if err != nil {
			return err
		}
		creates = append(creates, stmt)
	}

	return exec.Transaction(ctx, func(tx storage.Executor) error {
		for i := len(order) - 1; i >= 0; i-- {
			drop := gen.DropTable(registry.MustGet(order[i]))
			if _, err := tx.Execute(ctx, storage.Statement{SQL: drop}); err != nil {
				return err
			}
		}
		for _, create := range creates {
			if _, err := tx.Execute(ctx, storage.Statement{SQL: create}); err != nil {
				return err
			}
		}
		return nil
	})
}
