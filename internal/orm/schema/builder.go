package schema

// FieldOption customizes a scalar field declaration
type FieldOption func(*Field)

// Nullable allows NULL values in the field's column
func Nullable() FieldOption {
	return func(f *Field) { f.Nullable = true }
}

// WithColumn overrides the column name derived by the naming strategy
func WithColumn(column string) FieldOption {
	return func(f *Field) { f.Column = column }
}

// RelationOption customizes a relation declaration
type RelationOption func(*Relation)

// Optional allows a many-to-one reference to be NULL
func Optional() RelationOption {
	return func(r *Relation) { r.Nullable = true }
}

// WithForeignKey overrides the join column derived by the naming strategy
func WithForeignKey(column string) RelationOption {
	return func(r *Relation) { r.ForeignKey = column }
}

// Builder assembles entity metadata and produces an immutable Registry
type Builder struct {
	naming   NamingStrategy
	entities []*EntityBuilder
	errors   []*ValidationError
}

// NewBuilder creates a new metadata builder
func NewBuilder(naming NamingStrategy) *Builder {
	return &Builder{
		naming:   naming,
		entities: make([]*EntityBuilder, 0),
		errors:   make([]*ValidationError, 0),
	}
}

// EntityBuilder declares the members of a single entity
type EntityBuilder struct {
	b    *Builder
	meta *EntityMetadata
}

// Entity starts the declaration of a new entity
func (b *Builder) Entity(name string) *EntityBuilder {
	eb := &EntityBuilder{
		b:    b,
		meta: newEntityMetadata(name, b.naming.TableName(name)),
	}
	b.entities = append(b.entities, eb)
	return eb
}

func (eb *EntityBuilder) fail(member, format string, args ...interface{}) {
	eb.b.errors = append(eb.b.errors, newValidationError(eb.meta.Name, member, format, args...))
}

// Table overrides the table name derived by the naming strategy
func (eb *EntityBuilder) Table(name string) *EntityBuilder {
	eb.meta.TableName = name
	return eb
}

// PrimaryKey declares the identity field of the entity
func (eb *EntityBuilder) PrimaryKey(name string, typ FieldType, opts ...FieldOption) *EntityBuilder {
	if eb.meta.PrimaryKey != "" {
		eb.fail(name, "primary key already declared as %s", eb.meta.PrimaryKey)
		return eb
	}
	eb.addField(name, typ, opts)
	eb.meta.PrimaryKey = name
	return eb
}

// Field declares a scalar field
func (eb *EntityBuilder) Field(name string, typ FieldType, opts ...FieldOption) *EntityBuilder {
	eb.addField(name, typ, opts)
	return eb
}

func (eb *EntityBuilder) addField(name string, typ FieldType, opts []FieldOption) {
	if !eb.checkName(name) {
		return
	}
	f := &Field{Name: name, Column: eb.b.naming.ColumnName(name), Type: typ}
	for _, opt := range opts {
		opt(f)
	}
	eb.meta.fields = append(eb.meta.fields, f)
	eb.meta.fieldsBy[name] = f
}

// ManyToOne declares a reference to a single target entity
func (eb *EntityBuilder) ManyToOne(name, target string, opts ...RelationOption) *EntityBuilder {
	eb.addRelation(&Relation{
		Name:        name,
		Target:      target,
		Cardinality: CardinalityOne,
		ForeignKey:  eb.b.naming.JoinColumnName(name),
	}, opts)
	return eb
}

// OneToMany declares a collection of target entities pointing back at this one
func (eb *EntityBuilder) OneToMany(name, target string, opts ...RelationOption) *EntityBuilder {
	eb.addRelation(&Relation{
		Name:        name,
		Target:      target,
		Cardinality: CardinalityMany,
		ForeignKey:  eb.b.naming.JoinColumnName(eb.meta.Name),
	}, opts)
	return eb
}

func (eb *EntityBuilder) addRelation(rel *Relation, opts []RelationOption) {
	if !eb.checkName(rel.Name) {
		return
	}
	for _, opt := range opts {
		opt(rel)
	}
	eb.meta.relations = append(eb.meta.relations, rel)
	eb.meta.relsBy[rel.Name] = rel
}

func (eb *EntityBuilder) checkName(name string) bool {
	if name == "" {
		eb.fail("", "member name cannot be empty")
		return false
	}
	if eb.meta.HasField(name) || eb.meta.HasRelation(name) {
		eb.fail(name, "member %s declared twice", name)
		return false
	}
	return true
}

// Build validates all declared entities against each other and returns the
// resulting Registry
func (b *Builder) Build() (*Registry, error) {
	reg := newRegistry()
	errs := append([]*ValidationError{}, b.errors...)

	for _, eb := range b.entities {
		if _, exists := reg.entities[eb.meta.Name]; exists {
			errs = append(errs, newValidationError(eb.meta.Name, "", "entity declared twice"))
			continue
		}
		reg.add(eb.meta)
	}

	validator := newValidator(reg)
	errs = append(errs, validator.validate()...)

	if len(errs) > 0 {
		return nil, &BuildError{Errors: errs}
	}
	return reg, nil
}
