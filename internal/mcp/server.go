package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"datalake/internal/catalog"
	"datalake/internal/domain"
	"datalake/internal/ingest"
	"datalake/internal/logger"
	"datalake/internal/retrieval"
)

// Server exposes the catalog and retrieval engine over MCP so AI agents can
// browse and query ingested datasets.
type Server struct {
	mcp          *server.MCPServer
	catalog      *catalog.Store
	engine       *retrieval.Engine
	orchestrator *ingest.Orchestrator
	log          *logger.Logger
}

// Deps holds everything the MCP server needs from the app layer.
type Deps struct {
	Catalog      *catalog.Store
	Engine       *retrieval.Engine
	Orchestrator *ingest.Orchestrator
	Log          *logger.Logger
}

// New creates the MCP server with all dataset tools registered.
func New(deps Deps) *Server {
	s := &Server{
		catalog:      deps.Catalog,
		engine:       deps.Engine,
		orchestrator: deps.Orchestrator,
		log:          deps.Log,
	}

	s.mcp = server.NewMCPServer(
		"datalake-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerCatalogTools()
	s.registerRetrievalTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("mcp stdio server starting")
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerCatalogTools() {
	s.mcp.AddTool(mcp.NewTool("list_datasets",
		mcp.WithDescription("List cataloged datasets with pagination. Each entry includes the dataset ID, inferred schema, and which backend holds the payload."),
		mcp.WithNumber("page", mcp.Description("Page number, 1-based (default 1)")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 10)")),
		mcp.WithString("storage", mcp.Description("Filter by backend: postgres or mongodb")),
	), s.handleListDatasets)

	s.mcp.AddTool(mcp.NewTool("get_dataset",
		mcp.WithDescription("Get the full catalog entry for a dataset, including field metadata, DDL, and JSON schema"),
		mcp.WithString("datasetId", mcp.Description("Dataset ID"), mcp.Required()),
	), s.handleGetDataset)

	s.mcp.AddTool(mcp.NewTool("search_datasets",
		mcp.WithDescription("Search catalog entries by keyword across name, description, and tags"),
		mcp.WithString("keyword", mcp.Description("Search keyword"), mcp.Required()),
	), s.handleSearchDatasets)
}

func (s *Server) registerRetrievalTools() {
	s.mcp.AddTool(mcp.NewTool("query_dataset",
		mcp.WithDescription("Query a dataset's records with optional filter, projection, sorting, and pagination. The same request shape works whether the payload lives in the relational or the document backend."),
		mcp.WithString("datasetId", mcp.Description("Dataset ID"), mcp.Required()),
		mcp.WithString("filterJSON", mcp.Description(`Optional equality filter as a JSON object, e.g. {"status":"active"}`)),
		mcp.WithString("fieldsJSON", mcp.Description(`Optional projection as a JSON array of field names, e.g. ["name","age"]`)),
		mcp.WithString("orderBy", mcp.Description("Field to sort by, ascending")),
		mcp.WithNumber("limit", mcp.Description("Max records to return (default 10)")),
		mcp.WithNumber("offset", mcp.Description("Records to skip")),
	), s.handleQueryDataset)

	s.mcp.AddTool(mcp.NewTool("dataset_stats",
		mcp.WithDescription("Report a dataset's ingest-time record count alongside the live count in its backend"),
		mcp.WithString("datasetId", mcp.Description("Dataset ID"), mcp.Required()),
	), s.handleDatasetStats)

	s.mcp.AddTool(mcp.NewTool("preview_file",
		mcp.WithDescription("Analyze a staged JSON file and report its inferred schema and recommended backend without persisting anything"),
		mcp.WithString("filePath", mcp.Description("Path to the staged JSON or NDJSON file"), mcp.Required()),
	), s.handlePreviewFile)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListDatasets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	filters := domain.CatalogFilters{}
	if storage, _ := args["storage"].(string); storage != "" {
		filters.Storage = domain.StorageKind(storage)
	}
	pageReq := domain.PageRequest{
		Page:  argInt(args, "page", 1),
		Limit: argInt(args, "limit", 10),
	}

	page, err := s.catalog.List(filters, pageReq)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return jsonResult(page)
}

func (s *Server) handleGetDataset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(req.GetArguments(), "datasetId")
	if err != nil {
		return nil, err
	}
	entry, err := s.catalog.Get(id)
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	return jsonResult(entry)
}

func (s *Server) handleSearchDatasets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyword, err := requiredString(req.GetArguments(), "keyword")
	if err != nil {
		return nil, err
	}
	entries, err := s.catalog.Search(keyword)
	if err != nil {
		return nil, fmt.Errorf("search datasets: %w", err)
	}
	return jsonResult(entries)
}

func (s *Server) handleQueryDataset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := requiredString(args, "datasetId")
	if err != nil {
		return nil, err
	}

	q := retrieval.Query{
		OrderBy: stringArg(args, "orderBy"),
		Limit:   argInt(args, "limit", 0),
		Offset:  argInt(args, "offset", 0),
	}
	if raw := stringArg(args, "filterJSON"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &q.Filter); err != nil {
			return nil, fmt.Errorf("parse filterJSON: %w", err)
		}
	}
	if raw := stringArg(args, "fieldsJSON"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &q.Fields); err != nil {
			return nil, fmt.Errorf("parse fieldsJSON: %w", err)
		}
	}

	records, err := s.engine.QueryDataset(ctx, id, q)
	if err != nil {
		return nil, fmt.Errorf("query dataset: %w", err)
	}
	return jsonResult(records)
}

func (s *Server) handleDatasetStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(req.GetArguments(), "datasetId")
	if err != nil {
		return nil, err
	}
	stats, err := s.engine.DatasetStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("dataset stats: %w", err)
	}
	return jsonResult(stats)
}

func (s *Server) handlePreviewFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := requiredString(req.GetArguments(), "filePath")
	if err != nil {
		return nil, err
	}
	profile, err := s.orchestrator.GetProfile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("preview file: %w", err)
	}
	return jsonResult(profile)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func requiredString(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// argInt reads a numeric tool argument; JSON numbers arrive as float64.
func argInt(args map[string]any, key string, fallback int) int {
	if f, ok := args[key].(float64); ok {
		return int(f)
	}
	return fallback
}
