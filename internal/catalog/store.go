package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"datalake/internal/domain"
)

// Store implements catalog entry persistence on SQLite. It exclusively owns
// CatalogEntry records; payload rows live in the relational or document
// backend designated by each entry.
type Store struct {
	db *DB
}

// NewStore creates a Store backed by db.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

const entryColumns = `dataset_id, original_name, file_path, file_size, mime_type,
	extension, category, storage, record_count, metadata_json, schema_json,
	processed, tags_json, description, created_at, updated_at`

// sortColumns whitelists List sort keys.
var sortColumns = map[string]string{
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
	"originalName": "original_name",
	"fileSize":     "file_size",
	"recordCount":  "record_count",
}

// Create inserts a new entry. Dataset ids are generated fresh per ingest, so
// a duplicate id is a caller bug and surfaces as a constraint error.
func (s *Store) Create(entry *domain.CatalogEntry) (*domain.CatalogEntry, error) {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	metadata, _ := json.Marshal(entry.Metadata)
	schema, _ := json.Marshal(entry.Schema)
	tags, _ := json.Marshal(entry.Tags)

	_, err := s.db.conn.Exec(
		`INSERT INTO catalog_entries (dataset_id, original_name, file_path, file_size,
		 mime_type, extension, category, storage, record_count, metadata_json,
		 schema_json, processed, tags_json, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.DatasetID, entry.OriginalName, entry.FilePath, entry.FileSize,
		entry.MimeType, entry.Extension, entry.Category, string(entry.Storage),
		entry.RecordCount, string(metadata), string(schema),
		entry.Processing.Processed, string(tags), entry.Description,
		entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert catalog entry: %w", err)
	}
	return entry, nil
}

// Get returns the entry for datasetID or domain.ErrNotFound.
func (s *Store) Get(datasetID string) (*domain.CatalogEntry, error) {
	row := s.db.conn.QueryRow(
		`SELECT `+entryColumns+` FROM catalog_entries WHERE dataset_id = ?`, datasetID)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns one page of entries matching the filters. The page reflects a
// consistent sort-order snapshot at read time.
func (s *Store) List(filters domain.CatalogFilters, page domain.PageRequest) (*domain.CatalogPage, error) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 {
		page.Limit = 10
	}

	var where []string
	var args []any
	if filters.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filters.Category)
	}
	if filters.Storage != "" {
		where = append(where, "storage = ?")
		args = append(args, string(filters.Storage))
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.conn.QueryRow(
		`SELECT COUNT(*) FROM catalog_entries`+whereClause, args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("count catalog entries: %w", err)
	}

	sortCol, ok := sortColumns[page.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(page.SortOrder, "asc") {
		order = "ASC"
	}

	listArgs := append(args, page.Limit, (page.Page-1)*page.Limit)
	rows, err := s.db.conn.Query(
		`SELECT `+entryColumns+` FROM catalog_entries`+whereClause+
			` ORDER BY `+sortCol+` `+order+` LIMIT ? OFFSET ?`, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("list catalog entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	totalPages := (total + page.Limit - 1) / page.Limit
	return &domain.CatalogPage{
		Entries: entries,
		Pagination: domain.Pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// Update mutates only the user-editable fields (tags, description) and
// advances updated_at. storage, schema, and record_count are write-once at
// ingest time and cannot be changed here.
func (s *Store) Update(datasetID string, update domain.CatalogUpdate) (*domain.CatalogEntry, error) {
	entry, err := s.Get(datasetID)
	if err != nil {
		return nil, err
	}

	if update.Tags != nil {
		entry.Tags = *update.Tags
	}
	if update.Description != nil {
		entry.Description = *update.Description
	}
	entry.UpdatedAt = time.Now().UTC()

	tags, _ := json.Marshal(entry.Tags)
	_, err = s.db.conn.Exec(
		`UPDATE catalog_entries SET tags_json = ?, description = ?, updated_at = ?
		 WHERE dataset_id = ?`,
		string(tags), entry.Description, entry.UpdatedAt, datasetID,
	)
	if err != nil {
		return nil, fmt.Errorf("update catalog entry: %w", err)
	}
	return entry, nil
}

// Delete removes the entry for datasetID.
func (s *Store) Delete(datasetID string) error {
	res, err := s.db.conn.Exec(`DELETE FROM catalog_entries WHERE dataset_id = ?`, datasetID)
	if err != nil {
		return fmt.Errorf("delete catalog entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Search matches keyword against name, description, and tags.
func (s *Store) Search(keyword string) ([]domain.CatalogEntry, error) {
	pattern := "%" + keyword + "%"
	rows, err := s.db.conn.Query(
		`SELECT `+entryColumns+` FROM catalog_entries
		 WHERE original_name LIKE ? OR description LIKE ? OR tags_json LIKE ?
		 ORDER BY created_at DESC`,
		pattern, pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.CatalogEntry, error) {
	entry := &domain.CatalogEntry{}
	var storage, metadata, schema, tags string
	err := row.Scan(
		&entry.DatasetID, &entry.OriginalName, &entry.FilePath, &entry.FileSize,
		&entry.MimeType, &entry.Extension, &entry.Category, &storage,
		&entry.RecordCount, &metadata, &schema,
		&entry.Processing.Processed, &tags, &entry.Description,
		&entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Storage = domain.StorageKind(storage)
	json.Unmarshal([]byte(metadata), &entry.Metadata)
	json.Unmarshal([]byte(schema), &entry.Schema)
	json.Unmarshal([]byte(tags), &entry.Tags)
	return entry, nil
}

func scanEntries(rows *sql.Rows) ([]domain.CatalogEntry, error) {
	var entries []domain.CatalogEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}
