package domain

// StagedFile references a file already placed in the staging area by the
// upload collaborator. The collaborator owns placement and cleanup; the
// ingestion pipeline only reads the content.
type StagedFile struct {
	FilePath         string `json:"filePath"`
	OriginalFilename string `json:"originalFilename"`
	Size             int64  `json:"size"`
	MimeType         string `json:"mimeType"`
}

// IngestResult is returned to the caller after a successful ingestion.
type IngestResult struct {
	Dataset CatalogEntry `json:"dataset"`
	Profile Profile      `json:"profile"`
}

// Profile is a read-only preview of a dataset: inferred fields, a small
// record sample, and the backend the selector would pick. Producing a
// profile never persists anything.
type Profile struct {
	Fields        []FieldDef           `json:"fields"`
	Metadata      map[string]FieldMeta `json:"metadata"`
	RecordCount   int                  `json:"recordCount"`
	SkippedLines  int                  `json:"skippedLines"`
	SampleRecords []map[string]any     `json:"sampleRecords"`
	Recommended   StorageKind          `json:"recommendedStorage"`
}

// DatasetStats summarizes a stored dataset for the stats endpoint.
type DatasetStats struct {
	DatasetID   string      `json:"datasetId"`
	Storage     StorageKind `json:"storage"`
	RecordCount int         `json:"recordCount"` // count recorded at ingest
	LiveCount   int64       `json:"liveCount"`   // count observed in the backend now
	FieldCount  int         `json:"fieldCount"`
}
