package schemagen

import (
	"fmt"
	"strings"

	"datalake/internal/analyzer"
	"datalake/internal/domain"
)

// ── Schema Generator ────────────────────────────────────────
// Derives a relational table name + DDL, a JSON-Schema-like structural
// description, and the ordered field list from an analysis pass.

// Dialect selects the relational DDL flavor.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// typePriority resolves a multi-type field to exactly one column type.
// Prefer the more specific numeric/boolean over generic string, and fall
// back to a serialized text column for arrays/objects.
var typePriority = []string{
	analyzer.TypeNumber,
	analyzer.TypeBoolean,
	analyzer.TypeString,
	analyzer.TypeArray,
	analyzer.TypeObject,
}

// DominantType picks the single type a column is generated from.
// Total: every observed FieldInfo resolves to one of the priority types.
func DominantType(info *analyzer.FieldInfo) string {
	for _, t := range typePriority {
		if info.Types[t] {
			return t
		}
	}
	// Only null observed: store as text.
	return analyzer.TypeString
}

// TableName sanitizes a dataset name into an identifier and appends a short
// suffix from the dataset id, so repeated ingests of same-named files never
// collide.
func TableName(datasetName, datasetID string) string {
	name := sanitizeIdentifier(datasetName)
	if name == "" {
		name = "dataset"
	}
	suffix := strings.ReplaceAll(datasetID, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return name + "_" + suffix
}

// sanitizeIdentifier lowercases and replaces anything outside [a-z0-9_].
// A leading digit gets an underscore prefix.
func sanitizeIdentifier(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

// columnType maps a dominant type to a column type shared by both dialects.
func columnType(dominant string) string {
	switch dominant {
	case analyzer.TypeNumber:
		return "NUMERIC"
	case analyzer.TypeBoolean:
		return "BOOLEAN"
	case analyzer.TypeArray, analyzer.TypeObject:
		return "TEXT" // serialized JSON
	default:
		return "TEXT"
	}
}

// RelationalDDL builds the CREATE TABLE statement for the inferred fields.
// Every data column is nullable to tolerate heterogeneous records; a
// surrogate primary key column is always added.
func RelationalDDL(tableName string, fields []domain.FieldDef, dialect Dialect) string {
	var cols []string
	switch dialect {
	case DialectMySQL:
		cols = append(cols, "`id` BIGINT AUTO_INCREMENT PRIMARY KEY")
	default:
		cols = append(cols, `"id" BIGSERIAL PRIMARY KEY`)
	}

	for _, f := range fields {
		cols = append(cols, fmt.Sprintf("%s %s", QuoteIdent(f.Name, dialect), columnType(f.Type)))
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(tableName, dialect), strings.Join(cols, ", "))
}

// QuoteIdent quotes a column or table identifier for the dialect. Quoting
// every identifier keeps reserved-word field names from breaking the DDL.
func QuoteIdent(name string, dialect Dialect) string {
	if dialect == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Fields converts an analysis into the ordered field list kept on the
// catalog entry. Order matches field discovery order in the source data.
func Fields(a *analyzer.Analysis) []domain.FieldDef {
	out := make([]domain.FieldDef, 0, len(a.FieldOrder))
	for _, name := range a.FieldOrder {
		info := a.Fields[name]
		out = append(out, domain.FieldDef{
			Name:     name,
			Type:     DominantType(info),
			Nullable: info.Nullable,
			Nested:   info.Nested,
			Array:    info.Array,
		})
	}
	return out
}

// JSONSchema builds the structural description used for client display.
// It mirrors the per-field analysis; this core does not enforce it.
func JSONSchema(fields []domain.FieldDef) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f.Name] = map[string]any{
			"type":     f.Type,
			"nullable": f.Nullable,
			"nested":   f.Nested,
			"array":    f.Array,
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

// Metadata converts the raw analysis into the persistable per-field map.
func Metadata(a *analyzer.Analysis) map[string]domain.FieldMeta {
	out := make(map[string]domain.FieldMeta, len(a.Fields))
	for name, info := range a.Fields {
		out[name] = domain.FieldMeta{
			Types:    info.TypeList(),
			Nullable: info.Nullable,
			Nested:   info.Nested,
			Array:    info.Array,
		}
	}
	return out
}

// Descriptor assembles the full schema descriptor for a dataset.
func Descriptor(datasetName, datasetID string, a *analyzer.Analysis, dialect Dialect) domain.SchemaDescriptor {
	fields := Fields(a)
	table := TableName(datasetName, datasetID)
	return domain.SchemaDescriptor{
		TableName:  table,
		DDL:        RelationalDDL(table, fields, dialect),
		JSONSchema: JSONSchema(fields),
		Fields:     fields,
	}
}
