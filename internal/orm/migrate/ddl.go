// Package migrate creates and drops the tables described by a registry.
package migrate

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/conduit-lang/relquery/internal/orm/schema"
	"github.com/conduit-lang/relquery/internal/orm/storage"
)

// Generator renders DDL statements for one dialect
type Generator struct {
	dialect  storage.Dialect
	registry *schema.Registry
}

// NewGenerator creates a DDL generator for the entities of a registry
func NewGenerator(registry *schema.Registry, dialect storage.Dialect) *Generator {
	return &Generator{dialect: dialect, registry: registry}
}

// CreateTable generates a CREATE TABLE statement: the primary key first, then
// the scalar columns, then the many-to-one foreign keys with their
// constraints.
func (g *Generator) CreateTable(meta *schema.EntityMetadata) (string, error) {
	if meta == nil {
		return "", fmt.Errorf("entity metadata cannot be nil")
	}

	var defs []string
	var constraints []string
	for _, col := range meta.Columns() {
		switch {
		case col.Relation != nil:
			def, constraint, err := g.foreignKey(col)
			if err != nil {
				return "", fmt.Errorf("%s.%s: %w", meta.Name, col.Relation.Name, err)
			}
			defs = append(defs, def)
			constraints = append(constraints, constraint)
		case col.Field.Name == meta.PrimaryKey:
			defs = append(defs, pq.QuoteIdentifier(col.Name)+" "+g.primaryKeyType(col.Field.Type))
		default:
			typ, err := g.columnType(col.Field.Type)
			if err != nil {
				return "", fmt.Errorf("%s.%s: %w", meta.Name, col.Field.Name, err)
			}
			defs = append(defs, pq.QuoteIdentifier(col.Name)+" "+typ+nullability(col.Field.Nullable))
		}
	}
	defs = append(defs, constraints...)

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", pq.QuoteIdentifier(meta.TableName))
	for i, def := range defs {
		b.WriteString("  ")
		b.WriteString(def)
		if i < len(defs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String(), nil
}

// DropTable generates a DROP TABLE statement
func (g *Generator) DropTable(meta *schema.EntityMetadata) string {
	stmt := "DROP TABLE IF EXISTS " + pq.QuoteIdentifier(meta.TableName)
	if g.dialect == storage.DialectPostgres {
		stmt += " CASCADE"
	}
	return stmt
}

func (g *Generator) foreignKey(col schema.Column) (string, string, error) {
	target, err := g.registry.Lookup(col.Relation.Target)
	if err != nil {
		return "", "", err
	}
	pk := target.PrimaryKeyField()

	typ := g.referenceType(pk.Type)
	def := pq.QuoteIdentifier(col.Name) + " " + typ + nullability(col.Relation.Nullable)
	constraint := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
		pq.QuoteIdentifier(col.Name), pq.QuoteIdentifier(target.TableName), pq.QuoteIdentifier(pk.Column))
	return def, constraint, nil
}

func (g *Generator) primaryKeyType(t schema.FieldType) string {
	if !t.IsInteger() {
		typ, _ := g.columnType(t)
		return typ + " PRIMARY KEY"
	}
	if g.dialect == storage.DialectPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// referenceType is the column type of a foreign key to a primary key of type t
func (g *Generator) referenceType(t schema.FieldType) string {
	if t.IsInteger() {
		if g.dialect == storage.DialectPostgres {
			return "BIGINT"
		}
		return "INTEGER"
	}
	typ, _ := g.columnType(t)
	return typ
}

func (g *Generator) columnType(t schema.FieldType) (string, error) {
	postgres := g.dialect == storage.DialectPostgres
	switch t {
	case schema.TypeInt:
		return "INTEGER", nil
	case schema.TypeBigInt:
		return "BIGINT", nil
	case schema.TypeString:
		return "VARCHAR(255)", nil
	case schema.TypeText:
		return "TEXT", nil
	case schema.TypeFloat:
		if postgres {
			return "DOUBLE PRECISION", nil
		}
		return "REAL", nil
	case schema.TypeBool:
		return "BOOLEAN", nil
	case schema.TypeTimestamp:
		if postgres {
			return "TIMESTAMPTZ", nil
		}
		return "DATETIME", nil
	default:
		return "", fmt.Errorf("unsupported type: %s", t)
	}
}

func nullability(nullable bool) string {
	if nullable {
		return " NULL"
	}
	return " NOT NULL"
}
