// Package schema defines entity metadata for the relquery ORM.
// Metadata is assembled once through a Builder, validated as a whole, and
// then served read-only from a Registry for the lifetime of the process.
package schema

// FieldType represents the storage type of a scalar field
type FieldType int

const (
	TypeInt FieldType = iota
	TypeBigInt
	TypeString
	TypeText
	TypeFloat
	TypeBool
	TypeTimestamp
)

// String returns the string representation of the field type
func (t FieldType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeBigInt:
		return "bigint"
	case TypeString:
		return "string"
	case TypeText:
		return "text"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// IsInteger reports whether values of this type are stored as integers
func (t FieldType) IsInteger() bool {
	return t == TypeInt || t == TypeBigInt
}

// Field is a scalar property of an entity
type Field struct {
	Name     string
	Column   string
	Type     FieldType
	Nullable bool
}

// Cardinality is the multiplicity of the target side of a relation
type Cardinality int

const (
	// CardinalityOne is a many-to-one edge; the foreign key lives on the owner
	CardinalityOne Cardinality = iota
	// CardinalityMany is a one-to-many edge; the foreign key lives on the target
	CardinalityMany
)

// String returns the string representation of the cardinality
func (c Cardinality) String() string {
	switch c {
	case CardinalityOne:
		return "one"
	case CardinalityMany:
		return "many"
	default:
		return "unknown"
	}
}

// Relation is an outgoing edge from one entity to another
type Relation struct {
	Name        string
	Target      string
	Cardinality Cardinality

	// ForeignKey is the join column. For CardinalityOne it is a column of the
	// owner's table, for CardinalityMany a column of the target's table.
	ForeignKey string

	// Nullable marks an optional many-to-one reference
	Nullable bool
}

// IsCollection returns true if the relation resolves to a list of targets
func (r *Relation) IsCollection() bool {
	return r.Cardinality == CardinalityMany
}

// EntityMetadata describes one entity type. It is immutable once the
// Registry that owns it has been built.
type EntityMetadata struct {
	Name       string
	TableName  string
	PrimaryKey string

	fields    []*Field
	fieldsBy  map[string]*Field
	relations []*Relation
	relsBy    map[string]*Relation
}

func newEntityMetadata(name, table string) *EntityMetadata {
	return &EntityMetadata{
		Name:      name,
		TableName: table,
		fieldsBy:  make(map[string]*Field),
		relsBy:    make(map[string]*Relation),
	}
}

// Field returns the scalar field with the given name
func (m *EntityMetadata) Field(name string) (*Field, bool) {
	f, ok := m.fieldsBy[name]
	return f, ok
}

// Fields returns the scalar fields in declaration order
func (m *EntityMetadata) Fields() []*Field {
	out := make([]*Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// Relation returns the relation with the given name
func (m *EntityMetadata) Relation(name string) (*Relation, bool) {
	r, ok := m.relsBy[name]
	return r, ok
}

// Relations returns the relations in declaration order
func (m *EntityMetadata) Relations() []*Relation {
	out := make([]*Relation, len(m.relations))
	copy(out, m.relations)
	return out
}

// HasField returns true if the entity has a scalar field with the given name
func (m *EntityMetadata) HasField(name string) bool {
	_, ok := m.fieldsBy[name]
	return ok
}

// HasRelation returns true if the entity has a relation with the given name
func (m *EntityMetadata) HasRelation(name string) bool {
	_, ok := m.relsBy[name]
	return ok
}

// PrimaryKeyField returns the primary key field
func (m *EntityMetadata) PrimaryKeyField() *Field {
	return m.fieldsBy[m.PrimaryKey]
}

// PrimaryKeyColumn returns the column holding the primary key
func (m *EntityMetadata) PrimaryKeyColumn() string {
	if f := m.PrimaryKeyField(); f != nil {
		return f.Column
	}
	return ""
}

// Column is one physical column of an entity's table
type Column struct {
	Name string
	// Field is set for scalar columns
	Field *Field
	// Relation is set for many-to-one foreign key columns
	Relation *Relation
}

// Columns returns the physical columns of the entity's table: the primary
// key first, then the remaining scalar fields, then many-to-one foreign keys.
func (m *EntityMetadata) Columns() []Column {
	cols := make([]Column, 0, len(m.fields)+len(m.relations))
	if pk := m.PrimaryKeyField(); pk != nil {
		cols = append(cols, Column{Name: pk.Column, Field: pk})
	}
	for _, f := range m.fields {
		if f.Name == m.PrimaryKey {
			continue
		}
		cols = append(cols, Column{Name: f.Column, Field: f})
	}
	for _, r := range m.relations {
		if r.Cardinality == CardinalityOne {
			cols = append(cols, Column{Name: r.ForeignKey, Relation: r})
		}
	}
	return cols
}

// HasColumn returns true if the entity's table carries the given column
func (m *EntityMetadata) HasColumn(column string) bool {
	for _, c := range m.Columns() {
		if c.Name == column {
			return true
		}
	}
	return false
}

// String returns the entity name
func (m *EntityMetadata) String() string {
	return m.Name
}
