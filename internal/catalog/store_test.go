package catalog_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"datalake/internal/catalog"
	"datalake/internal/domain"
)

func newTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	db, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return catalog.NewStore(db)
}

func sampleEntry(id string) *domain.CatalogEntry {
	return &domain.CatalogEntry{
		DatasetID:    id,
		OriginalName: "users.json",
		FilePath:     "/staging/users.json",
		FileSize:     2048,
		MimeType:     "application/json",
		Extension:    "json",
		Category:     "json",
		Storage:      domain.StoragePostgres,
		RecordCount:  42,
		Metadata: map[string]domain.FieldMeta{
			"name": {Types: []string{"string"}},
		},
		Schema: domain.SchemaDescriptor{
			TableName: "users_" + id[:4],
			DDL:       `CREATE TABLE "users" ("id" BIGSERIAL PRIMARY KEY, "name" TEXT)`,
			Fields:    []domain.FieldDef{{Name: "name", Type: "string"}},
		},
		Processing: domain.Processing{Processed: true},
		Tags:       []string{},
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create(sampleEntry("ds-00000001"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("create should stamp timestamps")
	}

	got, err := store.Get("ds-00000001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OriginalName != "users.json" {
		t.Errorf("OriginalName = %q", got.OriginalName)
	}
	if got.Storage != domain.StoragePostgres {
		t.Errorf("Storage = %q", got.Storage)
	}
	if got.RecordCount != 42 {
		t.Errorf("RecordCount = %d", got.RecordCount)
	}
	if got.Schema.TableName != "users_ds-0" {
		t.Errorf("Schema.TableName = %q", got.Schema.TableName)
	}
	if !got.Processing.Processed {
		t.Error("Processed flag lost")
	}
	if got.Metadata["name"].Types[0] != "string" {
		t.Errorf("Metadata = %v", got.Metadata)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("nope")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestStore_UpdateOnlyMutableFields(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(sampleEntry("ds-00000002")); err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)
	tags := []string{"sales", "2026"}
	desc := "quarterly users export"
	updated, err := store.Update("ds-00000002", domain.CatalogUpdate{
		Tags:        &tags,
		Description: &desc,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != desc {
		t.Errorf("Description = %q", updated.Description)
	}
	if len(updated.Tags) != 2 {
		t.Errorf("Tags = %v", updated.Tags)
	}

	// Write-once fields survive untouched.
	got, err := store.Get("ds-00000002")
	if err != nil {
		t.Fatal(err)
	}
	if got.Storage != domain.StoragePostgres || got.RecordCount != 42 {
		t.Errorf("immutable fields changed: storage=%q count=%d", got.Storage, got.RecordCount)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Error("UpdatedAt should advance past CreatedAt")
	}
}

func TestStore_UpdateNilPointersLeaveUnchanged(t *testing.T) {
	store := newTestStore(t)
	entry := sampleEntry("ds-00000003")
	entry.Description = "original"
	entry.Tags = []string{"keep"}
	if _, err := store.Create(entry); err != nil {
		t.Fatal(err)
	}

	updated, err := store.Update("ds-00000003", domain.CatalogUpdate{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != "original" || len(updated.Tags) != 1 {
		t.Errorf("nil update fields should leave values: desc=%q tags=%v",
			updated.Description, updated.Tags)
	}
}

func TestStore_UpdateMissing(t *testing.T) {
	store := newTestStore(t)
	desc := "x"
	if _, err := store.Update("nope", domain.CatalogUpdate{Description: &desc}); !domain.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(sampleEntry("ds-00000004")); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete("ds-00000004"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get("ds-00000004"); !domain.IsNotFound(err) {
		t.Fatalf("entry should be gone, got %v", err)
	}
	if err := store.Delete("ds-00000004"); !domain.IsNotFound(err) {
		t.Fatalf("second delete should be not-found, got %v", err)
	}
}

func TestStore_ListPagination(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 25; i++ {
		entry := sampleEntry(fmt.Sprintf("ds-%08d", i))
		if i%2 == 0 {
			entry.Storage = domain.StorageMongoDB
		}
		if _, err := store.Create(entry); err != nil {
			t.Fatal(err)
		}
	}

	page, err := store.List(domain.CatalogFilters{}, domain.PageRequest{Page: 3, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Entries) != 5 {
		t.Errorf("page 3 of 25 with limit 10 should hold 5 entries, got %d", len(page.Entries))
	}
	if page.Pagination.Total != 25 {
		t.Errorf("Total = %d", page.Pagination.Total)
	}
	if page.Pagination.TotalPages != 3 {
		t.Errorf("TotalPages = %d", page.Pagination.TotalPages)
	}

	// Storage filter narrows both the page and the total.
	mongoPage, err := store.List(
		domain.CatalogFilters{Storage: domain.StorageMongoDB},
		domain.PageRequest{Page: 1, Limit: 100},
	)
	if err != nil {
		t.Fatal(err)
	}
	if mongoPage.Pagination.Total != 13 {
		t.Errorf("mongo total = %d", mongoPage.Pagination.Total)
	}
	for _, e := range mongoPage.Entries {
		if e.Storage != domain.StorageMongoDB {
			t.Errorf("filter leaked entry with storage %q", e.Storage)
		}
	}
}

func TestStore_ListDefaults(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(sampleEntry("ds-00000005")); err != nil {
		t.Fatal(err)
	}

	page, err := store.List(domain.CatalogFilters{}, domain.PageRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Pagination.Page != 1 || page.Pagination.Limit != 10 {
		t.Errorf("defaults = page %d limit %d", page.Pagination.Page, page.Pagination.Limit)
	}
}

func TestStore_ListSortWhitelist(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(sampleEntry("ds-00000006")); err != nil {
		t.Fatal(err)
	}

	// An unknown sort key must not be interpolated into SQL; it falls back.
	if _, err := store.List(domain.CatalogFilters{}, domain.PageRequest{
		SortBy: "created_at; DROP TABLE catalog_entries",
	}); err != nil {
		t.Fatalf("list with bogus sort key: %v", err)
	}
	if _, err := store.Get("ds-00000006"); err != nil {
		t.Fatalf("table should survive: %v", err)
	}
}

func TestStore_Search(t *testing.T) {
	store := newTestStore(t)

	a := sampleEntry("ds-00000007")
	a.OriginalName = "sales_2026.json"
	b := sampleEntry("ds-00000008")
	b.Description = "weekly sales rollup"
	c := sampleEntry("ds-00000009")
	c.Tags = []string{"sales"}
	d := sampleEntry("ds-00000010")
	d.OriginalName = "inventory.json"
	for _, e := range []*domain.CatalogEntry{a, b, c, d} {
		if _, err := store.Create(e); err != nil {
			t.Fatal(err)
		}
	}

	found, err := store.Search("sales")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 3 {
		t.Errorf("expected 3 matches across name, description, and tags, got %d", len(found))
	}
}
