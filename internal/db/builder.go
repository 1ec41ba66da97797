package db

import "strings"

// IndexBuilder is a fluent builder for FT index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an FT index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{
		def: IndexDefinition{
			Name:        name,
			StorageType: StorageHash,
		},
	}
}

// OnJSON sets the index storage type to JSON.
func (b *IndexBuilder) OnJSON() *IndexBuilder {
	b.def.StorageType = StorageJSON
	return b
}

// OnHash sets the index storage type to HASH.
func (b *IndexBuilder) OnHash() *IndexBuilder {
	b.def.StorageType = StorageHash
	return b
}

// Prefix adds key prefixes to the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Numeric adds a NUMERIC field to the index.
func (b *IndexBuilder) Numeric(name string) *IndexBuilder {
	return b.field(IndexField{Name: name, Type: IndexFieldNumeric})
}

// TagSeparator splits TAG values. It is the ASCII unit separator so that
// commas in invoice numbers or supplier ids stay part of one tag.
const TagSeparator = "\x1f"

// Tag adds a TAG field to the index.
func (b *IndexBuilder) Tag(name string) *IndexBuilder {
	return b.field(IndexField{Name: name, Type: IndexFieldTag, TagSeparator: TagSeparator})
}

// Text adds a TEXT field to the index.
func (b *IndexBuilder) Text(name string) *IndexBuilder {
	return b.field(IndexField{Name: name, Type: IndexFieldText})
}

// JSONNumeric adds a NUMERIC field over a JSON document path.
func (b *IndexBuilder) JSONNumeric(field string, sortable bool) *IndexBuilder {
	return b.field(IndexField{Name: JSONPath(field), Alias: FieldAlias(field), Type: IndexFieldNumeric, Sortable: sortable})
}

// JSONTag adds a case-sensitive TAG field over a JSON document path.
func (b *IndexBuilder) JSONTag(field string) *IndexBuilder {
	return b.field(IndexField{
		Name:             JSONPath(field),
		Alias:            FieldAlias(field),
		Type:             IndexFieldTag,
		TagSeparator:     TagSeparator,
		TagCaseSensitive: true,
	})
}

// JSONText adds a TEXT field over a JSON document path. A field under an
// array (e.g. items.description) indexes every element.
func (b *IndexBuilder) JSONText(field string, arrays ...string) *IndexBuilder {
	return b.field(IndexField{Name: JSONPath(field, arrays...), Alias: FieldAlias(field), Type: IndexFieldText})
}

func (b *IndexBuilder) field(f IndexField) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}

// MustBuild calls Build and panics on error.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// FieldAlias returns the index attribute name of a dotted document field.
func FieldAlias(field string) string {
	return strings.ReplaceAll(field, ".", "_")
}

// JSONPath returns the JSONPath of a dotted document field. Segments named in
// arrays are expanded with [*].
func JSONPath(field string, arrays ...string) string {
	segs := strings.Split(field, ".")
	for i, s := range segs {
		for _, a := range arrays {
			if s == a {
				segs[i] = s + "[*]"
			}
		}
	}
	return "$." + strings.Join(segs, ".")
}

// String returns a debug representation resembling the FT.CREATE command.
func (idx *IndexDefinition) String() string {
	parts := []string{"FT.CREATE", idx.Name}
	if idx.StorageType != "" {
		parts = append(parts, "ON", string(idx.StorageType))
	}
	if len(idx.Prefixes) > 0 {
		parts = append(parts, "PREFIX")
		parts = append(parts, idx.Prefixes...)
	}
	parts = append(parts, "SCHEMA")
	for i := range idx.Fields {
		f := &idx.Fields[i]
		parts = append(parts, f.Name)
		if f.Alias != "" {
			parts = append(parts, "AS", f.Alias)
		}
		switch f.Type {
		case IndexFieldTag:
			parts = append(parts, "TAG")
		case IndexFieldNumeric:
			parts = append(parts, "NUMERIC")
		case IndexFieldText:
			parts = append(parts, "TEXT")
		}
		if f.Sortable {
			parts = append(parts, "SORTABLE")
		}
	}
	return strings.Join(parts, " ")
}
