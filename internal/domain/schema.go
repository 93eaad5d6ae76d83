package domain

// Surface column types produced by inference. The warehouse maps these to
// engine-native types (INTEGER→BIGINT, FLOAT→DOUBLE on MySQL).
const (
	ColumnTypeInteger = "INTEGER"
	ColumnTypeFloat   = "FLOAT"
	ColumnTypeVarchar = "VARCHAR(255)"
)

// ColumnSchema describes one inferred column: name, surface type, nullability.
type ColumnSchema struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// FileSchema is an ordered set of column descriptors, following header order.
type FileSchema []ColumnSchema

// Column returns the descriptor for name and whether it exists.
func (s FileSchema) Column(name string) (ColumnSchema, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

// Names returns the column names in order.
func (s FileSchema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// TypeChange records a column whose inferred type differs from the stored one.
type TypeChange struct {
	Name string
	From string
	To   string
}

// SchemaDiff is the result of comparing a stored table schema against a
// freshly inferred file schema.
type SchemaDiff struct {
	Added       FileSchema   // columns present in the file but not the table
	Removed     FileSchema   // columns present in the table but not the file
	TypeChanges []TypeChange // columns whose inferred type differs
}

// Empty reports whether the diff contains no changes at all.
func (d SchemaDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.TypeChanges) == 0
}
