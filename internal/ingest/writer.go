package ingest

import (
	"context"

	"datalake/internal/domain"
	"datalake/internal/logger"
)

// RelationalStore is the slice of the SQL client the writer needs.
type RelationalStore interface {
	CreateTable(ctx context.Context, ddl string) error
	DropTable(ctx context.Context, table string) error
	InsertRows(ctx context.Context, table string, fields []domain.FieldDef, records []map[string]any) (int, error)
}

// DocumentStore is the slice of the document client the writer needs.
type DocumentStore interface {
	InsertMany(ctx context.Context, collection string, docs []map[string]any) (int, error)
	DropCollection(ctx context.Context, collection string) error
}

// WritePlan carries everything the writer needs to persist one dataset.
type WritePlan struct {
	Backend   domain.StorageKind
	DatasetID string
	TableName string
	DDL       string
	Fields    []domain.FieldDef
	Records   []map[string]any
}

// WriteResult reports the backend actually used and the records written.
// The backend may differ from the plan when the relational path fell back.
type WriteResult struct {
	Backend domain.StorageKind
	Count   int
}

// Writer routes a dataset to the relational or document store.
type Writer struct {
	sql  RelationalStore
	docs DocumentStore
	log  *logger.Logger
}

// NewWriter creates a dual-backend writer.
func NewWriter(sql RelationalStore, docs DocumentStore, log *logger.Logger) *Writer {
	return &Writer{sql: sql, docs: docs, log: log}
}

// Write persists all records per the plan. A relational failure is recovered
// by retrying once through the document store; the partially-created table is
// dropped first so no orphan table remains. Only a document-store failure
// after fallback (or on the direct document path) fails the ingest.
func (w *Writer) Write(ctx context.Context, plan WritePlan) (WriteResult, error) {
	if plan.Backend == domain.StoragePostgres {
		count, err := w.writeRelational(ctx, plan)
		if err == nil {
			return WriteResult{Backend: domain.StoragePostgres, Count: count}, nil
		}

		w.log.Warn("relational write failed, falling back to document store",
			"dataset", plan.DatasetID, "table", plan.TableName, "error", err)
		if dropErr := w.sql.DropTable(ctx, plan.TableName); dropErr != nil {
			w.log.Warn("drop of partial table failed",
				"dataset", plan.DatasetID, "table", plan.TableName, "error", dropErr)
		}
	}

	count, err := w.docs.InsertMany(ctx, domain.CollectionName(plan.DatasetID), plan.Records)
	if err != nil {
		return WriteResult{}, domain.Opf("write documents", plan.DatasetID, err)
	}
	return WriteResult{Backend: domain.StorageMongoDB, Count: count}, nil
}

func (w *Writer) writeRelational(ctx context.Context, plan WritePlan) (int, error) {
	if err := w.sql.CreateTable(ctx, plan.DDL); err != nil {
		return 0, err
	}
	return w.sql.InsertRows(ctx, plan.TableName, plan.Fields, plan.Records)
}

// Drop removes a dataset's payload from whichever backend holds it.
func (w *Writer) Drop(ctx context.Context, entry *domain.CatalogEntry) error {
	if entry.Storage == domain.StorageMongoDB {
		return w.docs.DropCollection(ctx, domain.CollectionName(entry.DatasetID))
	}
	return w.sql.DropTable(ctx, entry.Schema.TableName)
}
