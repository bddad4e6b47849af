package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"datalake/internal/dbclient"
	"datalake/internal/domain"
	"datalake/internal/retrieval"
)

// respond wraps every payload in the {success, data} envelope.
func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondPage(c *gin.Context, page *domain.CatalogPage) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       page.Entries,
		"pagination": page.Pagination,
	})
}

// respondError translates domain errors into transport responses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if domain.IsNotFound(err) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

// ── Ingestion ──────────────────────────────────────────────

type ingestRequest struct {
	FilePath         string `json:"filePath" binding:"required"`
	OriginalFilename string `json:"originalFilename" binding:"required"`
	Size             int64  `json:"size"`
	MimeType         string `json:"mimeType"`
	DatasetName      string `json:"datasetName"`
}

func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, fmt.Sprintf("invalid ingest request: %v", err))
		return
	}

	staged := domain.StagedFile{
		FilePath:         req.FilePath,
		OriginalFilename: req.OriginalFilename,
		Size:             req.Size,
		MimeType:         req.MimeType,
	}
	result, err := s.orchestrator.ProcessStagingFile(c.Request.Context(), staged, req.DatasetName)
	if err != nil {
		respondError(c, err)
		return
	}

	s.cache.Invalidate(c.Request.Context(), "catalog:*")
	respond(c, http.StatusCreated, result)
}

type profileRequest struct {
	FilePath string `json:"filePath" binding:"required"`
}

func (s *Server) handleProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, fmt.Sprintf("invalid profile request: %v", err))
		return
	}
	profile, err := s.orchestrator.GetProfile(c.Request.Context(), req.FilePath)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, profile)
}

// ── Catalog ────────────────────────────────────────────────

func (s *Server) handleList(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)

	filters := domain.CatalogFilters{
		Category: c.Query("category"),
		Storage:  domain.StorageKind(c.Query("storage")),
	}
	pageReq := domain.PageRequest{
		Page:      page,
		Limit:     limit,
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}

	cacheKey := fmt.Sprintf("catalog:list:%s:%s:%d:%d:%s:%s",
		filters.Category, filters.Storage, page, limit, pageReq.SortBy, pageReq.SortOrder)
	var cached domain.CatalogPage
	if s.cache.Get(c.Request.Context(), cacheKey, &cached) {
		respondPage(c, &cached)
		return
	}

	result, err := s.catalog.List(filters, pageReq)
	if err != nil {
		respondError(c, err)
		return
	}
	s.cache.Set(c.Request.Context(), cacheKey, result)
	respondPage(c, result)
}

func (s *Server) handleGet(c *gin.Context) {
	id := c.Param("id")
	cacheKey := "catalog:detail:" + id

	var cached domain.CatalogEntry
	if s.cache.Get(c.Request.Context(), cacheKey, &cached) {
		respond(c, http.StatusOK, cached)
		return
	}

	entry, err := s.catalog.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	s.cache.Set(c.Request.Context(), cacheKey, entry)
	respond(c, http.StatusOK, entry)
}

func (s *Server) handleUpdate(c *gin.Context) {
	var update domain.CatalogUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondBadRequest(c, fmt.Sprintf("invalid update request: %v", err))
		return
	}

	entry, err := s.catalog.Update(c.Param("id"), update)
	if err != nil {
		respondError(c, err)
		return
	}
	s.cache.Invalidate(c.Request.Context(), "catalog:*")
	respond(c, http.StatusOK, entry)
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.orchestrator.DeleteDataset(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	s.cache.Invalidate(c.Request.Context(), "catalog:*")
	respond(c, http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleSearch(c *gin.Context) {
	keyword := c.Query("q")
	if keyword == "" {
		respondBadRequest(c, "query parameter q is required")
		return
	}
	entries, err := s.catalog.Search(keyword)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, entries)
}

// ── Retrieval ──────────────────────────────────────────────

func (s *Server) handleRetrieve(c *gin.Context) {
	var q retrieval.Query
	if err := c.ShouldBindJSON(&q); err != nil {
		respondBadRequest(c, fmt.Sprintf("invalid retrieve request: %v", err))
		return
	}
	if q.Dataset == "" || q.Entity == "" {
		respondBadRequest(c, "dataset and entity are required")
		return
	}

	records, err := s.engine.Retrieve(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, records)
}

func (s *Server) handleQueryDataset(c *gin.Context) {
	var q retrieval.Query
	if err := c.ShouldBindJSON(&q); err != nil {
		respondBadRequest(c, fmt.Sprintf("invalid query request: %v", err))
		return
	}
	records, err := s.engine.QueryDataset(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, records)
}

func (s *Server) handleRows(c *gin.Context) {
	opts := retrieval.PageOptions{
		Limit:   queryInt(c, "limit", 0),
		Offset:  queryInt(c, "offset", 0),
		OrderBy: c.Query("orderBy"),
	}
	if sortField := c.Query("sortField"); sortField != "" {
		opts.Sort = []dbclient.SortSpec{{
			Field: sortField,
			Desc:  c.Query("sortDir") == "desc",
		}}
	}

	records, err := s.engine.RetrieveDataset(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, records)
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.engine.DatasetStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
