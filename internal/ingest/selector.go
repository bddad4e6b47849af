package ingest

import (
	"datalake/internal/analyzer"
	"datalake/internal/domain"
)

// DetermineBackend picks the storage backend for a whole dataset. Relational
// DDL collapses nested structures into opaque serialized columns, losing
// queryability. Once any field would suffer that loss, the entire dataset
// goes to the document store, which preserves structure natively.
func DetermineBackend(a *analyzer.Analysis) domain.StorageKind {
	for _, info := range a.Fields {
		if info.Nested {
			return domain.StorageMongoDB
		}
	}
	return domain.StoragePostgres
}
