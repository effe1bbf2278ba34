package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"GoAnalysis/internal/analysis"
	"GoAnalysis/internal/index"
	"GoAnalysis/internal/indexing"
)

// MaxRequestBodySize bounds request bodies.
const MaxRequestBodySize = 1 << 20 // 1MB

// Handler holds HTTP handlers for the GoAnalysis API.
type Handler struct {
	registry *analysis.Registry
	catalog  *analysis.Catalog
	mgr      *IndexManager
	logger   *slog.Logger
}

// NewHandler creates a new Handler serving the analyzers in registry. The
// catalog is only used to list the available component kinds.
func NewHandler(registry *analysis.Registry, catalog *analysis.Catalog, mgr *IndexManager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{registry: registry, catalog: catalog, mgr: mgr, logger: logger}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Analyzers.
	mux.HandleFunc("GET /analyzers", h.handleListAnalyzers)
	mux.HandleFunc("GET /analyzers/{name}", h.handleGetAnalyzer)
	mux.HandleFunc("POST /analyzers/{name}/analyze", h.handleAnalyze)
	mux.HandleFunc("GET /components", h.handleListComponents)

	// Index lifecycle.
	mux.HandleFunc("GET /indexes", h.handleListIndexes)
	mux.HandleFunc("POST /indexes", h.handleCreateIndex)
	mux.HandleFunc("GET /indexes/{name}", h.handleGetIndex)
	mux.HandleFunc("DELETE /indexes/{name}", h.handleDeleteIndex)

	// Document ingestion and deletion.
	mux.HandleFunc("POST /indexes/{name}/documents", h.handleIngestDocuments)
	mux.HandleFunc("DELETE /indexes/{name}/documents", h.handleDeleteDocument)

	// Match.
	mux.HandleFunc("POST /indexes/{name}/match", h.handleMatch)
}

// --- Analyzers ---

// tokenJSON is the wire form of an analysis.Token.
type tokenJSON struct {
	Term     string `json:"term"`
	Position int    `json:"position"`
	Start    int    `json:"start_offset"`
	End      int    `json:"end_offset"`
}

type describer interface {
	Describe() analysis.Description
}

func (h *Handler) describe(name string, a analysis.Analyzer) analysis.Description {
	if d, ok := a.(describer); ok {
		return d.Describe()
	}
	return analysis.Description{Name: name, Filters: []string{}}
}

func (h *Handler) handleListAnalyzers(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Names()

	analyzers := make([]analysis.Description, 0, len(names))
	for _, name := range names {
		a, err := h.registry.Get(name)
		if err != nil {
			continue
		}
		analyzers = append(analyzers, h.describe(name, a))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"analyzers": analyzers,
	})
}

func (h *Handler) handleGetAnalyzer(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	a, err := h.registry.Get(name)
	if err != nil {
		writeAnalyzerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.describe(name, a))
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	a, err := h.registry.Get(name)
	if err != nil {
		writeAnalyzerError(w, err)
		return
	}

	var req struct {
		Text *string `json:"text"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	start := time.Now()
	tokens := a.Analyze(*req.Text)
	took := time.Since(start)

	out := make([]tokenJSON, len(tokens))
	for i, t := range tokens {
		out[i] = tokenJSON{Term: t.Term, Position: t.Position, Start: t.StartByte, End: t.EndByte}
	}

	h.logger.Debug("text analyzed",
		"analyzer", name,
		"bytes", len(*req.Text),
		"tokens", len(out),
		"duration", took,
	)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"analyzer": name,
		"tokens":   out,
	})
}

func (h *Handler) handleListComponents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tokenizers": h.catalog.TokenizerKinds(),
		"filters":    h.catalog.FilterKinds(),
	})
}

// --- Index Lifecycle ---

func (h *Handler) handleListIndexes(w http.ResponseWriter, r *http.Request) {
	names := h.mgr.ListIndexes()

	infos := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		inst, err := h.mgr.GetIndex(name)
		if err != nil {
			continue
		}
		infos = append(infos, inst.IndexInfo())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"indexes": infos,
	})
}

func (h *Handler) handleCreateIndex(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string           `json:"name"`
		DefaultAnalyzer string           `json:"default_analyzer"`
		Fields          []index.FieldDef `json:"fields"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	schema := &index.Schema{
		DefaultAnalyzer: req.DefaultAnalyzer,
		Fields:          req.Fields,
	}

	if err := h.mgr.CreateIndex(req.Name, schema); err != nil {
		if errors.Is(err, ErrIndexExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"status": "created",
		"name":   req.Name,
	})
}

func (h *Handler) handleGetIndex(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.lookupIndex(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, inst.IndexInfo())
}

func (h *Handler) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.mgr.DeleteIndex(name); err != nil {
		if errors.Is(err, ErrIndexNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"name":   name,
	})
}

// --- Documents ---

func (h *Handler) handleIngestDocuments(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.lookupIndex(w, r)
	if !ok {
		return
	}

	var req struct {
		Documents []map[string]interface{} `json:"documents"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "no documents provided")
		return
	}

	docs := make([]indexing.Document, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = indexing.Document{Fields: d}
	}

	if err := inst.IngestDocuments(docs); err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, indexing.ErrIndexFull):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, indexing.ErrDuplicateDoc):
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "accepted",
		"documents_received": len(docs),
	})
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.lookupIndex(w, r)
	if !ok {
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	if err := inst.DeleteDocument(req.ID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, indexing.ErrDocumentNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"id":     req.ID,
	})
}

// --- Match ---

type matchRequest struct {
	Field string `json:"field"`
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (h *Handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.lookupIndex(w, r)
	if !ok {
		return
	}

	var req matchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Field == "" {
		writeError(w, http.StatusBadRequest, "field is required")
		return
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}

	start := time.Now()
	hits, err := inst.Match(req.Field, req.Query)
	if err != nil {
		if errors.Is(err, indexing.ErrUnknownField) || errors.Is(err, indexing.ErrNotTextField) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total := len(hits)
	if len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}

	results := make([]map[string]interface{}, 0, len(hits))
	for _, hit := range hits {
		result := map[string]interface{}{
			"id":    hit.ID,
			"terms": hit.Terms,
		}
		if stored, ok := inst.StoredFields(hit.ID); ok {
			result["stored_fields"] = stored
		}
		results = append(results, result)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"took_ms":    time.Since(start).Milliseconds(),
		"total_hits": total,
		"hits":       results,
	})
}

// --- Helpers ---

func (h *Handler) lookupIndex(w http.ResponseWriter, r *http.Request) (*IndexInstance, bool) {
	inst, err := h.mgr.GetIndex(r.PathValue("name"))
	if err != nil {
		if errors.Is(err, ErrIndexNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return inst, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBodySize)).Decode(v)
}

func writeAnalyzerError(w http.ResponseWriter, err error) {
	if errors.Is(err, analysis.ErrAnalyzerNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := encodeJSON(v)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"error":{"message":"failed to encode response"}}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
		},
	})
}
