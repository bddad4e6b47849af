package staging_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"datalake/internal/domain"
	"datalake/internal/ingest"
	"datalake/internal/logger"
	"datalake/internal/staging"
)

type fakeSQL struct{ inserted int }

func (f *fakeSQL) CreateTable(ctx context.Context, ddl string) error { return nil }
func (f *fakeSQL) DropTable(ctx context.Context, table string) error { return nil }
func (f *fakeSQL) InsertRows(ctx context.Context, table string, fields []domain.FieldDef, records []map[string]any) (int, error) {
	f.inserted += len(records)
	return len(records), nil
}

type fakeDocs struct{ inserted int }

func (f *fakeDocs) InsertMany(ctx context.Context, collection string, docs []map[string]any) (int, error) {
	f.inserted += len(docs)
	return len(docs), nil
}

func (f *fakeDocs) DropCollection(ctx context.Context, collection string) error { return nil }

type fakeCatalog struct{ entries []*domain.CatalogEntry }

func (f *fakeCatalog) Create(entry *domain.CatalogEntry) (*domain.CatalogEntry, error) {
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeCatalog) Get(datasetID string) (*domain.CatalogEntry, error) {
	for _, e := range f.entries {
		if e.DatasetID == datasetID {
			return e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCatalog) Delete(datasetID string) error { return nil }

func TestSweep_IngestsStagedFilesOnce(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.json", `[{"x": 1}]`)
	write("b.ndjson", `{"y": 2}`)
	write("notes.txt", "not a dataset")

	cat := &fakeCatalog{}
	sqlStore := &fakeSQL{}
	docs := &fakeDocs{}
	w := ingest.NewWriter(sqlStore, docs, logger.Nop())
	o := ingest.NewOrchestrator(cat, w, "postgres", logger.Nop())
	watcher := staging.NewWatcher(dir, o, logger.Nop())

	watcher.Sweep(context.Background())
	if len(cat.entries) != 2 {
		t.Fatalf("expected 2 ingested datasets, got %d", len(cat.entries))
	}
	if sqlStore.inserted != 2 {
		t.Errorf("inserted rows = %d", sqlStore.inserted)
	}

	// A second sweep must not re-ingest already processed files.
	watcher.Sweep(context.Background())
	if len(cat.entries) != 2 {
		t.Errorf("re-sweep duplicated datasets: %d entries", len(cat.entries))
	}
}

func TestSweep_MissingDirIsNonFatal(t *testing.T) {
	o := ingest.NewOrchestrator(&fakeCatalog{}, ingest.NewWriter(&fakeSQL{}, &fakeDocs{}, logger.Nop()), "postgres", logger.Nop())
	watcher := staging.NewWatcher("/does/not/exist", o, logger.Nop())
	watcher.Sweep(context.Background()) // should log and return, not panic
}
