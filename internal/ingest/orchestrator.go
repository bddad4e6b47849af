package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"datalake/internal/analyzer"
	"datalake/internal/domain"
	"datalake/internal/logger"
	"datalake/internal/schemagen"
)

// CatalogStore is the slice of the catalog the orchestrator needs.
type CatalogStore interface {
	Create(entry *domain.CatalogEntry) (*domain.CatalogEntry, error)
	Get(datasetID string) (*domain.CatalogEntry, error)
	Delete(datasetID string) error
}

// Orchestrator drives one ingest end-to-end:
// analyze → generate schema → select backend → write (with fallback) → catalog.
// Stages run strictly in that order; each ingest is independent of any other.
type Orchestrator struct {
	catalog CatalogStore
	writer  *Writer
	dialect schemagen.Dialect
	log     *logger.Logger
}

// NewOrchestrator wires the injected stores together.
func NewOrchestrator(catalog CatalogStore, writer *Writer, dialect schemagen.Dialect, log *logger.Logger) *Orchestrator {
	return &Orchestrator{catalog: catalog, writer: writer, dialect: dialect, log: log}
}

// DeriveDatasetName builds a dataset name from the original filename:
// extension stripped, anything outside [a-z0-9_] replaced with underscore,
// lowercased.
func DeriveDatasetName(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// ProcessStagingFile ingests a staged file and returns the catalog entry plus
// a data profile. A failure before the catalog write leaves no catalog entry;
// data already written to a backend by then is accepted as orphaned.
func (o *Orchestrator) ProcessStagingFile(ctx context.Context, staged domain.StagedFile, datasetName string) (*domain.IngestResult, error) {
	if staged.FilePath == "" {
		return nil, domain.Opf("ingest", "", fmt.Errorf("staged file path is required"))
	}
	if datasetName == "" {
		datasetName = DeriveDatasetName(staged.OriginalFilename)
	}

	// Analyzing
	a, err := analyzer.AnalyzeFile(staged.FilePath)
	if err != nil {
		return nil, domain.Opf("analyze", "", err)
	}
	if len(a.Records) == 0 {
		return nil, domain.Opf("analyze", "", fmt.Errorf("no records in %s", staged.OriginalFilename))
	}

	// SchemaGenerating
	datasetID := uuid.New().String()
	schema := schemagen.Descriptor(datasetName, datasetID, a, o.dialect)
	metadata := schemagen.Metadata(a)

	// BackendSelecting. Non-tabular payloads can never be relational rows,
	// so they skip the sql path entirely.
	backend := DetermineBackend(a)
	if !a.Tabular {
		backend = domain.StorageMongoDB
	}

	o.log.Info("ingesting dataset",
		"dataset", datasetID, "name", datasetName,
		"records", len(a.Records), "backend", backend, "skippedLines", a.SkippedLines)

	// Writing (with possible fallback)
	result, err := o.writer.Write(ctx, WritePlan{
		Backend:   backend,
		DatasetID: datasetID,
		TableName: schema.TableName,
		DDL:       schema.DDL,
		Fields:    schema.Fields,
		Records:   a.Records,
	})
	if err != nil {
		return nil, err
	}

	// Cataloging
	entry := &domain.CatalogEntry{
		DatasetID:    datasetID,
		OriginalName: staged.OriginalFilename,
		FilePath:     staged.FilePath,
		FileSize:     staged.Size,
		MimeType:     staged.MimeType,
		Extension:    strings.TrimPrefix(filepath.Ext(staged.OriginalFilename), "."),
		Category:     "json",
		Storage:      result.Backend,
		RecordCount:  result.Count,
		Metadata:     metadata,
		Schema:       schema,
		Processing:   domain.Processing{Processed: true},
		Tags:         []string{},
	}
	created, err := o.catalog.Create(entry)
	if err != nil {
		// The payload write already succeeded; those rows are now orphaned.
		o.log.Error("catalog write failed, payload data orphaned",
			"dataset", datasetID, "backend", result.Backend, "error", err)
		return nil, domain.Opf("catalog", datasetID, err)
	}

	return &domain.IngestResult{
		Dataset: *created,
		Profile: buildProfile(a, schema.Fields, metadata),
	}, nil
}

// DeleteDataset removes a dataset's payload and its catalog entry. A payload
// drop failure leaves the entry in place so the dataset stays visible and the
// delete can be retried.
func (o *Orchestrator) DeleteDataset(ctx context.Context, datasetID string) error {
	entry, err := o.catalog.Get(datasetID)
	if err != nil {
		return domain.Opf("delete", datasetID, err)
	}
	if err := o.writer.Drop(ctx, entry); err != nil {
		return domain.Opf("delete payload", datasetID, err)
	}
	if err := o.catalog.Delete(datasetID); err != nil {
		return domain.Opf("delete", datasetID, err)
	}
	o.log.Info("dataset deleted", "dataset", datasetID, "backend", entry.Storage)
	return nil
}

// GetProfile runs the analyzer and schema generator on a file without
// writing anything: no table, no collection, no catalog entry.
func (o *Orchestrator) GetProfile(ctx context.Context, path string) (*domain.Profile, error) {
	a, err := analyzer.AnalyzeFile(path)
	if err != nil {
		return nil, domain.Opf("profile", "", err)
	}
	backend := DetermineBackend(a)
	if !a.Tabular {
		backend = domain.StorageMongoDB
	}
	profile := buildProfile(a, schemagen.Fields(a), schemagen.Metadata(a))
	profile.Recommended = backend
	return &profile, nil
}

const profileSampleSize = 10

func buildProfile(a *analyzer.Analysis, fields []domain.FieldDef, metadata map[string]domain.FieldMeta) domain.Profile {
	sample := a.Records
	if len(sample) > profileSampleSize {
		sample = sample[:profileSampleSize]
	}
	backend := DetermineBackend(a)
	if !a.Tabular {
		backend = domain.StorageMongoDB
	}
	return domain.Profile{
		Fields:        fields,
		Metadata:      metadata,
		RecordCount:   len(a.Records),
		SkippedLines:  a.SkippedLines,
		SampleRecords: sample,
		Recommended:   backend,
	}
}
