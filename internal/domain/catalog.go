package domain

import "time"

// StorageKind represents the physical backend holding a dataset's rows.
type StorageKind string

const (
	StoragePostgres StorageKind = "postgres"
	StorageMongoDB  StorageKind = "mongodb"
)

// FieldDef describes one inferred field of a dataset.
// Enum is reserved for value-enumeration detection and is always nil today.
type FieldDef struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"` // "string" | "number" | "boolean" | "array" | "object"
	Nullable bool     `json:"nullable"`
	Nested   bool     `json:"nested"`
	Array    bool     `json:"array"`
	Enum     []string `json:"enum"`
}

// SchemaDescriptor is the derived schema kept on a catalog entry.
type SchemaDescriptor struct {
	TableName  string         `json:"tableName"`
	DDL        string         `json:"ddl"`
	JSONSchema map[string]any `json:"jsonSchema"`
	Fields     []FieldDef     `json:"fields"` // discovery order
}

// FieldMeta is the raw per-field analysis retained for profile/debug display.
type FieldMeta struct {
	Types    []string `json:"types"`
	Nullable bool     `json:"nullable"`
	Nested   bool     `json:"nested"`
	Array    bool     `json:"array"`
}

// Processing holds status flags for a catalog entry.
type Processing struct {
	Processed bool `json:"processed"`
}

// CatalogEntry is the persisted metadata record for one ingested dataset.
// It is the sole source of truth for which backend holds the dataset's rows.
// storage, schema, and recordCount are write-once at ingest time; only
// Tags and Description are mutable after creation.
type CatalogEntry struct {
	DatasetID    string               `json:"datasetId"`
	OriginalName string               `json:"originalName"`
	FilePath     string               `json:"filePath"`
	FileSize     int64                `json:"fileSize"`
	MimeType     string               `json:"mimeType"`
	Extension    string               `json:"extension"`
	Category     string               `json:"category"`
	Storage      StorageKind          `json:"storage"`
	RecordCount  int                  `json:"recordCount"`
	Metadata     map[string]FieldMeta `json:"metadata"`
	Schema       SchemaDescriptor     `json:"schema"`
	Processing   Processing           `json:"processing"`
	Tags         []string             `json:"tags"`
	Description  string               `json:"description"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// CollectionName returns the document-store collection for a dataset.
func CollectionName(datasetID string) string {
	return "dataset_" + datasetID
}

// CatalogUpdate carries the user-editable fields of a catalog entry.
// Nil pointers mean "leave unchanged".
type CatalogUpdate struct {
	Tags        *[]string `json:"tags,omitempty"`
	Description *string   `json:"description,omitempty"`
}

// CatalogFilters narrows a catalog listing.
type CatalogFilters struct {
	Category string
	Storage  StorageKind
}

// PageRequest controls catalog listing pagination and ordering.
type PageRequest struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string // "asc" | "desc"
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// CatalogPage is one page of catalog entries.
type CatalogPage struct {
	Entries    []CatalogEntry `json:"entries"`
	Pagination Pagination     `json:"pagination"`
}
