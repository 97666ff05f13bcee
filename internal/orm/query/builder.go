// Package query resolves find directives against the metadata registry,
// plans the joins they need and renders the SQL statement.
package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/conduit-lang/relquery/internal/orm/schema"
	"github.com/conduit-lang/relquery/internal/orm/storage"
)

// ColumnLabel is the result label of an entity column: "<alias>__<column>"
func ColumnLabel(alias, column string) string {
	return alias + "__" + column
}

func quoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

func qualified(alias, column string) string {
	return quoteIdent(alias) + "." + quoteIdent(column)
}

func tableAs(table, alias string) string {
	return quoteIdent(table) + " AS " + quoteIdent(alias)
}

func placeholderFormat(d storage.Dialect) sq.PlaceholderFormat {
	if d == storage.DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// Build renders the SELECT statement for a planned query. The root and every
// eager-load join contribute their columns; order-by and filter joins only
// take part in the join chain and in ORDER BY / WHERE.
func Build(plan *JoinPlan, spec QuerySpec, d storage.Dialect) (storage.Statement, error) {
	root := plan.Root()

	var columns []string
	for _, e := range plan.EagerEntries() {
		for _, col := range e.Target().Columns() {
			columns = append(columns, qualified(e.Alias, col.Name)+" AS "+quoteIdent(ColumnLabel(e.Alias, col.Name)))
		}
	}

	builder := sq.Select(columns...).
		From(tableAs(root.Target().TableName, root.Alias)).
		PlaceholderFormat(placeholderFormat(d))

	builder, aliases := withJoins(builder, plan)

	where, err := predicateSQL(plan, spec.Where)
	if err != nil {
		return storage.Statement{}, err
	}
	if where != nil {
		builder = builder.Where(where)
	}

	orderBy, err := orderSQL(plan, spec.OrderBy)
	if err != nil {
		return storage.Statement{}, err
	}
	builder = builder.OrderBy(orderBy...)

	if spec.Limit != nil {
		builder = builder.Limit(uint64(*spec.Limit))
	}
	if spec.Offset != nil {
		builder = builder.Offset(uint64(*spec.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return storage.Statement{}, fmt.Errorf("failed to build select: %w", err)
	}
	return storage.Statement{SQL: query, Args: args, Aliases: aliases}, nil
}

// BuildCount renders a COUNT of distinct root rows matching the filter. Only
// filter joins take part.
func BuildCount(spec QuerySpec, d storage.Dialect) (storage.Statement, error) {
	plan, err := Plan(QuerySpec{Root: spec.Root, Where: spec.Where})
	if err != nil {
		return storage.Statement{}, err
	}
	root := plan.Root()

	builder := sq.Select(fmt.Sprintf("COUNT(DISTINCT %s) AS %s",
		qualified(root.Alias, root.Target().PrimaryKeyColumn()), quoteIdent("count"))).
		From(tableAs(root.Target().TableName, root.Alias)).
		PlaceholderFormat(placeholderFormat(d))

	builder, aliases := withJoins(builder, plan)

	where, err := predicateSQL(plan, spec.Where)
	if err != nil {
		return storage.Statement{}, err
	}
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return storage.Statement{}, fmt.Errorf("failed to build count: %w", err)
	}
	return storage.Statement{SQL: query, Args: args, Aliases: aliases}, nil
}

// BuildInsert renders an INSERT of one row returning the generated primary
// key. Values are keyed by column name and written in table column order.
func BuildInsert(meta *schema.EntityMetadata, values map[string]interface{}, d storage.Dialect) (storage.Statement, error) {
	var columns []string
	var args []interface{}
	for _, col := range meta.Columns() {
		v, ok := values[col.Name]
		if !ok {
			continue
		}
		columns = append(columns, quoteIdent(col.Name))
		args = append(args, v)
	}
	for name := range values {
		if !meta.HasColumn(name) {
			return storage.Statement{}, fmt.Errorf("entity %s has no column %q", meta.Name, name)
		}
	}

	returning := "RETURNING " + quoteIdent(meta.PrimaryKeyColumn())
	if len(columns) == 0 {
		return storage.Statement{
			SQL: fmt.Sprintf("INSERT INTO %s DEFAULT VALUES %s", quoteIdent(meta.TableName), returning),
		}, nil
	}

	query, sqlArgs, err := sq.Insert(quoteIdent(meta.TableName)).
		Columns(columns...).
		Values(args...).
		Suffix(returning).
		PlaceholderFormat(placeholderFormat(d)).
		ToSql()
	if err != nil {
		return storage.Statement{}, fmt.Errorf("failed to build insert: %w", err)
	}
	return storage.Statement{SQL: query, Args: sqlArgs}, nil
}

func withJoins(builder sq.SelectBuilder, plan *JoinPlan) (sq.SelectBuilder, []string) {
	aliases := []string{plan.Root().Alias}
	for _, e := range plan.Joins() {
		clause := tableAs(e.Target().TableName, e.Alias) + " ON " + joinCondition(e)
		if e.JoinType == LeftJoin {
			builder = builder.LeftJoin(clause)
		} else {
			builder = builder.JoinClause("INNER JOIN " + clause)
		}
		aliases = append(aliases, e.Alias)
	}
	return builder, aliases
}

func joinCondition(e *JoinPlanEntry) string {
	rel := e.Relation()
	parent := e.Parent
	if rel.IsCollection() {
		return qualified(parent.Alias, parent.Target().PrimaryKeyColumn()) + " = " + qualified(e.Alias, rel.ForeignKey)
	}
	return qualified(parent.Alias, rel.ForeignKey) + " = " + qualified(e.Alias, e.Target().PrimaryKeyColumn())
}

func orderSQL(plan *JoinPlan, terms []OrderTerm) ([]string, error) {
	root := plan.Root()
	pk := qualified(root.Alias, root.Target().PrimaryKeyColumn())

	out := make([]string, 0, len(terms)+1)
	orderedByPK := false
	for _, term := range terms {
		entry, ok := plan.Lookup(term.Path)
		if !ok {
			return nil, fmt.Errorf("%w: order by %s", ErrDanglingAlias, term)
		}
		col := qualified(entry.Alias, term.Column)
		if col == pk {
			orderedByPK = true
		}
		out = append(out, col+" "+term.Direction.String())
	}
	// Root primary key breaks ties so hydration order is deterministic
	if !orderedByPK {
		out = append(out, pk+" "+Asc.String())
	}
	return out, nil
}

// predicateSQL renders a predicate group. A nil expression means the group
// matches every row: an AND with no members, or an OR with such a member.
// An OR with no members matches nothing.
func predicateSQL(plan *JoinPlan, group *PredicateGroup) (sq.Sqlizer, error) {
	if group == nil {
		return nil, nil
	}

	var parts []sq.Sqlizer
	for _, c := range group.Conditions {
		expr, err := conditionSQL(plan, c)
		if err != nil {
			return nil, err
		}
		parts = append(parts, expr)
	}
	matchesAll := false
	for _, sub := range group.Groups {
		expr, err := predicateSQL(plan, sub)
		if err != nil {
			return nil, err
		}
		if expr == nil {
			matchesAll = true
			continue
		}
		parts = append(parts, expr)
	}

	if group.Or {
		if matchesAll {
			return nil, nil
		}
		if len(parts) == 0 {
			return sq.Expr("1 = 0"), nil
		}
	}
	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		return parts[0], nil
	}
	if group.Or {
		return sq.Or(parts), nil
	}
	return sq.And(parts), nil
}

func conditionSQL(plan *JoinPlan, c *Condition) (sq.Sqlizer, error) {
	entry, ok := plan.Lookup(c.Path)
	if !ok {
		return nil, fmt.Errorf("%w: filter on %s", ErrDanglingAlias, c.Path.Key())
	}
	col := qualified(entry.Alias, c.Column)

	switch c.Operator {
	case OpEqual:
		return sq.Eq{col: c.Value}, nil
	case OpNotEqual:
		return sq.NotEq{col: c.Value}, nil
	case OpGreaterThan:
		return sq.Gt{col: c.Value}, nil
	case OpGreaterThanOrEqual:
		return sq.GtOrEq{col: c.Value}, nil
	case OpLessThan:
		return sq.Lt{col: c.Value}, nil
	case OpLessThanOrEqual:
		return sq.LtOrEq{col: c.Value}, nil
	case OpIn:
		return sq.Eq{col: c.Value}, nil
	case OpNotIn:
		return sq.NotEq{col: c.Value}, nil
	case OpLike:
		return sq.Like{col: c.Value}, nil
	case OpIsNull:
		return sq.Eq{col: nil}, nil
	case OpIsNotNull:
		return sq.NotEq{col: nil}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperator, c.Operator)
	}
}
