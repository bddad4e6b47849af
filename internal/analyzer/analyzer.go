package analyzer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ── Field Analyzer ──────────────────────────────────────────
// Scans parsed JSON (or an NDJSON stream) and reports, per top-level field,
// the set of observed primitive types, nullability, array-ness, and whether
// the value nests further structure. Nested structure is reported but not
// flattened into dotted paths.

// Type tags observed per field. A field seen as both string and number
// across records keeps both tags; ambiguity is surfaced, not resolved.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
	TypeNull    = "null"
)

// FieldInfo accumulates what was observed for one field path.
type FieldInfo struct {
	Types    map[string]bool `json:"types"`
	Nullable bool            `json:"nullable"`
	Nested   bool            `json:"nested"`
	Array    bool            `json:"array"`
}

// TypeList returns the observed type tags in a fixed, deterministic order.
func (f *FieldInfo) TypeList() []string {
	ordered := []string{TypeNumber, TypeBoolean, TypeString, TypeArray, TypeObject, TypeNull}
	var out []string
	for _, t := range ordered {
		if f.Types[t] {
			out = append(out, t)
		}
	}
	return out
}

// Analysis is the full result of one analysis pass. It is built once per
// ingestion and held only for schema derivation; only derived output is
// persisted.
type Analysis struct {
	Fields     map[string]*FieldInfo
	FieldOrder []string // discovery order
	Records    []map[string]any

	// Tabular is true when every source record was a flat JSON object,
	// i.e. the payload can be bulk-inserted as relational rows.
	Tabular bool

	// SkippedLines counts malformed NDJSON lines (skipped, not fatal).
	SkippedLines int
}

// AnalyzeFile reads and analyzes a staged file. Files with an .ndjson or
// .jsonl extension are treated as line-delimited from the start.
func AnalyzeFile(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".ndjson" || ext == ".jsonl" {
		return analyzeLines(data)
	}
	return Analyze(data)
}

// Analyze parses data as a single JSON document. If that fails and the input
// spans multiple lines, it falls back to line-delimited parsing. Empty input
// yields an empty analysis, not an error.
func Analyze(data []byte) (*Analysis, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return newAnalysis(), nil
	}

	var raw any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		if bytes.ContainsRune(trimmed, '\n') {
			return analyzeLines(trimmed)
		}
		return nil, fmt.Errorf("parse json: %w", err)
	}

	a := newAnalysis()
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			a.addDocument(item)
		}
	default:
		// Top-level scalar or single object is one record.
		a.addDocument(raw)
	}
	a.markAbsentNullable()
	return a, nil
}

// analyzeLines treats each line as one document. Malformed lines are skipped
// and counted.
func analyzeLines(data []byte) (*Analysis, error) {
	a := newAnalysis()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var doc any
		if err := json.Unmarshal(line, &doc); err != nil {
			a.SkippedLines++
			continue
		}
		a.addDocument(doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	a.markAbsentNullable()
	return a, nil
}

func newAnalysis() *Analysis {
	return &Analysis{
		Fields:  make(map[string]*FieldInfo),
		Tabular: true,
	}
}

// addDocument merges one record into the analysis.
func (a *Analysis) addDocument(doc any) {
	obj, ok := doc.(map[string]any)
	if !ok {
		// Non-object record: wrap so it can still be stored as a document.
		a.Tabular = false
		obj = map[string]any{"value": doc}
	}

	for _, key := range sortedKeys(obj) {
		a.observe(key, obj[key])
	}
	a.Records = append(a.Records, obj)
}

func (a *Analysis) observe(key string, value any) {
	info, ok := a.Fields[key]
	if !ok {
		info = &FieldInfo{Types: make(map[string]bool)}
		a.Fields[key] = info
		a.FieldOrder = append(a.FieldOrder, key)
	}

	switch v := value.(type) {
	case nil:
		info.Types[TypeNull] = true
		info.Nullable = true
	case string:
		info.Types[TypeString] = true
	case float64:
		info.Types[TypeNumber] = true
	case bool:
		info.Types[TypeBoolean] = true
	case []any:
		info.Types[TypeArray] = true
		info.Array = true
		if containsObject(v) {
			info.Nested = true
		}
	case map[string]any:
		info.Types[TypeObject] = true
		info.Nested = true
	default:
		// json.Unmarshal into any never produces other types; keep total anyway.
		info.Types[TypeString] = true
	}
}

// markAbsentNullable flags fields absent in at least one record as nullable.
func (a *Analysis) markAbsentNullable() {
	for name, info := range a.Fields {
		if info.Nullable {
			continue
		}
		for _, rec := range a.Records {
			if _, ok := rec[name]; !ok {
				info.Nullable = true
				break
			}
		}
	}
}

// containsObject reports whether any element of an array is itself an object.
// An array of scalars does not count as nested structure.
func containsObject(items []any) bool {
	for _, item := range items {
		if _, ok := item.(map[string]any); ok {
			return true
		}
	}
	return false
}

// sortedKeys returns a record's keys in a deterministic order so that field
// discovery order is stable across runs (encoding/json loses source key order).
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
