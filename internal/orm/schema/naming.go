package schema

import "github.com/jinzhu/inflection"

// NamingStrategy maps entity and property names to table and column names
type NamingStrategy struct {
	// PluralizeTables turns "Manufacturer" into "manufacturers"
	PluralizeTables bool
}

// DefaultNaming returns the underscore naming strategy with singular tables
func DefaultNaming() NamingStrategy {
	return NamingStrategy{}
}

// TableName returns the table name for an entity
func (n NamingStrategy) TableName(entity string) string {
	table := toSnakeCase(entity)
	if n.PluralizeTables {
		table = inflection.Plural(table)
	}
	return table
}

// ColumnName returns the column name for a scalar field
func (n NamingStrategy) ColumnName(field string) string {
	return toSnakeCase(field)
}

// JoinColumnName returns the foreign key column for a relation or owner name
func (n NamingStrategy) JoinColumnName(name string) string {
	return toSnakeCase(name) + "_id"
}

// toSnakeCase converts a string to snake_case
func toSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			if prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9' {
				result = append(result, '_')
			} else if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				// acronym end: "HTTPServer" -> "http_server"
				result = append(result, '_')
			}
		}
		if r >= 'A' && r <= 'Z' {
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}
