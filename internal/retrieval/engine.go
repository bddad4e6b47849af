package retrieval

import (
	"context"
	"fmt"

	"datalake/internal/dbclient"
	"datalake/internal/domain"
	"datalake/internal/logger"
)

// Default page sizes: ad-hoc retrieval stays small, dataset-table browsing
// gets a bigger window.
const (
	DefaultLimit       = 10
	DefaultBrowseLimit = 100
)

// CatalogStore is the slice of the catalog the engine needs.
type CatalogStore interface {
	Get(datasetID string) (*domain.CatalogEntry, error)
}

// RelationalReader reads dataset rows from the SQL backend.
type RelationalReader interface {
	Select(ctx context.Context, q dbclient.RowQuery) ([]map[string]any, error)
	Count(ctx context.Context, table string) (int64, error)
}

// DocumentReader reads dataset documents from the document backend.
type DocumentReader interface {
	Find(ctx context.Context, q dbclient.DocQuery) ([]map[string]any, error)
	Count(ctx context.Context, collection string) (int64, error)
}

// Query is the uniform, backend-agnostic request shape. The caller never
// names a backend; dispatch follows the catalog entry's storage field.
type Query struct {
	Dataset string              `json:"dataset"`
	Entity  string              `json:"entity"`
	Filter  map[string]any      `json:"filter,omitempty"`
	Fields  []string            `json:"fields,omitempty"`
	Include []string            `json:"include,omitempty"`
	OrderBy string              `json:"orderBy,omitempty"`
	Sort    []dbclient.SortSpec `json:"sort,omitempty"`
	Limit   int                 `json:"limit,omitempty"`
	Offset  int                 `json:"offset,omitempty"`
}

// PageOptions controls dataset-table browsing.
type PageOptions struct {
	Limit   int
	Offset  int
	OrderBy string
	Sort    []dbclient.SortSpec
}

// Engine serves reads against whichever backend a catalog entry designates,
// presenting one request/response shape for both.
type Engine struct {
	catalog CatalogStore
	sql     RelationalReader
	docs    DocumentReader
	log     *logger.Logger
}

// NewEngine wires the injected stores together.
func NewEngine(catalog CatalogStore, sql RelationalReader, docs DocumentReader, log *logger.Logger) *Engine {
	return &Engine{catalog: catalog, sql: sql, docs: docs, log: log}
}

// Retrieve executes a filtered, paginated, optionally sorted read. Dataset
// and entity are required; the upstream API validates them but the engine
// rejects absent values as well.
func (e *Engine) Retrieve(ctx context.Context, q Query) ([]map[string]any, error) {
	if q.Dataset == "" {
		return nil, domain.Opf("retrieve", "", fmt.Errorf("dataset is required"))
	}
	if q.Entity == "" {
		return nil, domain.Opf("retrieve", q.Dataset, fmt.Errorf("entity is required"))
	}

	entry, err := e.catalog.Get(q.Dataset)
	if err != nil {
		return nil, domain.Opf("retrieve", q.Dataset, err)
	}
	if !entityMatches(entry, q.Entity) {
		return nil, domain.Opf("retrieve", q.Dataset,
			fmt.Errorf("entity %q: %w", q.Entity, domain.ErrNotFound))
	}

	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return e.dispatch(ctx, entry, q)
}

// RetrieveDataset reads a page of a dataset's rows for table browsing.
func (e *Engine) RetrieveDataset(ctx context.Context, datasetID string, opts PageOptions) ([]map[string]any, error) {
	entry, err := e.catalog.Get(datasetID)
	if err != nil {
		return nil, domain.Opf("retrieve dataset", datasetID, err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultBrowseLimit
	}
	return e.dispatch(ctx, entry, Query{
		Dataset: datasetID,
		Entity:  entry.Schema.TableName,
		OrderBy: opts.OrderBy,
		Sort:    opts.Sort,
		Limit:   limit,
		Offset:  opts.Offset,
	})
}

// QueryDataset runs an ad-hoc query scoped to a known dataset; the entity is
// resolved from the catalog entry.
func (e *Engine) QueryDataset(ctx context.Context, datasetID string, q Query) ([]map[string]any, error) {
	q.Dataset = datasetID
	if q.Entity == "" {
		entry, err := e.catalog.Get(datasetID)
		if err != nil {
			return nil, domain.Opf("query dataset", datasetID, err)
		}
		q.Entity = entry.Schema.TableName
	}
	return e.Retrieve(ctx, q)
}

// DatasetStats reports the ingest-time record count alongside the count the
// backend holds right now.
func (e *Engine) DatasetStats(ctx context.Context, datasetID string) (*domain.DatasetStats, error) {
	entry, err := e.catalog.Get(datasetID)
	if err != nil {
		return nil, domain.Opf("dataset stats", datasetID, err)
	}

	var live int64
	switch entry.Storage {
	case domain.StorageMongoDB:
		live, err = e.docs.Count(ctx, domain.CollectionName(entry.DatasetID))
	default:
		live, err = e.sql.Count(ctx, entry.Schema.TableName)
	}
	if err != nil {
		return nil, domain.Opf("dataset stats", datasetID, err)
	}

	return &domain.DatasetStats{
		DatasetID:   entry.DatasetID,
		Storage:     entry.Storage,
		RecordCount: entry.RecordCount,
		LiveCount:   live,
		FieldCount:  len(entry.Schema.Fields),
	}, nil
}

// dispatch translates the uniform query into the backend-native form. The
// backend comes exclusively from the catalog entry, never from data shape.
func (e *Engine) dispatch(ctx context.Context, entry *domain.CatalogEntry, q Query) ([]map[string]any, error) {
	fields := append(q.Fields, q.Include...)

	switch entry.Storage {
	case domain.StorageMongoDB:
		records, err := e.docs.Find(ctx, dbclient.DocQuery{
			Collection: domain.CollectionName(entry.DatasetID),
			Filter:     q.Filter,
			Fields:     fields,
			OrderBy:    q.OrderBy,
			Sort:       q.Sort,
			Limit:      q.Limit,
			Offset:     q.Offset,
		})
		if err != nil {
			return nil, domain.Opf("find documents", entry.DatasetID, err)
		}
		return records, nil
	default:
		records, err := e.sql.Select(ctx, dbclient.RowQuery{
			Table:   entry.Schema.TableName,
			Filter:  q.Filter,
			Fields:  fields,
			OrderBy: q.OrderBy,
			Sort:    q.Sort,
			Limit:   q.Limit,
			Offset:  q.Offset,
		})
		if err != nil {
			return nil, domain.Opf("select rows", entry.DatasetID, err)
		}
		return records, nil
	}
}

// entityMatches accepts the dataset's table name or its document collection
// name as the entity; anything else is an unknown entity.
func entityMatches(entry *domain.CatalogEntry, entity string) bool {
	return entity == entry.Schema.TableName || entity == domain.CollectionName(entry.DatasetID)
}
