package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"GoAnalysis/internal/analysis"
	"GoAnalysis/internal/indexing"
	"GoAnalysis/internal/testutil"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newLimitedServer(t, indexing.DefaultLimits())
}

func newLimitedServer(t *testing.T, limits indexing.Limits) *httptest.Server {
	t.Helper()
	reg := testutil.NewRegistry(t)
	logger := testutil.DiscardLogger()
	h := NewHandler(reg, analysis.NewCatalog(), NewIndexManager(reg, limits, logger), logger)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, out interface{}) int {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("%s %s: Content-Type = %q", method, path, ct)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func TestHandler_ListAnalyzers(t *testing.T) {
	srv := newTestServer(t)

	var resp struct {
		Analyzers []analysis.Description `json:"analyzers"`
	}
	if code := do(t, srv, "GET", "/analyzers", "", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}

	var names []string
	for _, d := range resp.Analyzers {
		names = append(names, d.Name)
	}
	want := []string{"en_text", "keyword", "autocomplete", "code", "path"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("analyzer order mismatch (-want +got):\n%s", diff)
	}
}

func TestHandler_GetAnalyzer(t *testing.T) {
	srv := newTestServer(t)

	var d analysis.Description
	if code := do(t, srv, "GET", "/analyzers/code", "", &d); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	want := analysis.Description{Name: "code", Tokenizer: "simple", Filters: []string{"alpha_num_only", "lower_case"}}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("description mismatch (-want +got):\n%s", diff)
	}

	var e errorBody
	if code := do(t, srv, "GET", "/analyzers/missing", "", &e); code != http.StatusNotFound {
		t.Errorf("missing analyzer: status = %d, want 404", code)
	}
	if !strings.Contains(e.Error.Message, "missing") {
		t.Errorf("error message %q does not name the analyzer", e.Error.Message)
	}
}

func TestHandler_Analyze(t *testing.T) {
	srv := newTestServer(t)

	var resp struct {
		Analyzer string      `json:"analyzer"`
		Tokens   []tokenJSON `json:"tokens"`
	}
	code := do(t, srv, "POST", "/analyzers/en_text/analyze", `{"text": "The Cafés kept running"}`, &resp)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}

	want := []tokenJSON{
		{Term: "cafe", Position: 1, Start: 4, End: 10},
		{Term: "kept", Position: 2, Start: 11, End: 15},
		{Term: "run", Position: 3, Start: 16, End: 23},
	}
	if diff := cmp.Diff(want, resp.Tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
	if resp.Analyzer != "en_text" {
		t.Errorf("analyzer = %q", resp.Analyzer)
	}
}

func TestHandler_Analyze_EmptyText(t *testing.T) {
	srv := newTestServer(t)

	var resp struct {
		Tokens []tokenJSON `json:"tokens"`
	}
	if code := do(t, srv, "POST", "/analyzers/keyword/analyze", `{"text": ""}`, &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(resp.Tokens) != 0 {
		t.Errorf("tokens = %#v, want empty array", resp.Tokens)
	}
}

func TestHandler_Analyze_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown analyzer", "/analyzers/nope/analyze", `{"text": "x"}`, http.StatusNotFound},
		{"malformed body", "/analyzers/en_text/analyze", `{"text": `, http.StatusBadRequest},
		{"missing text", "/analyzers/en_text/analyze", `{}`, http.StatusBadRequest},
		{"text not string", "/analyzers/en_text/analyze", `{"text": 3}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e errorBody
			if code := do(t, srv, "POST", tt.path, tt.body, &e); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
			if e.Error.Message == "" {
				t.Error("error message is empty")
			}
		})
	}
}

func TestHandler_Components(t *testing.T) {
	srv := newTestServer(t)

	var resp struct {
		Tokenizers []string `json:"tokenizers"`
		Filters    []string `json:"filters"`
	}
	if code := do(t, srv, "GET", "/components", "", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	cat := analysis.NewCatalog()
	if diff := cmp.Diff(cat.TokenizerKinds(), resp.Tokenizers); diff != "" {
		t.Errorf("tokenizers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(cat.FilterKinds(), resp.Filters); diff != "" {
		t.Errorf("filters mismatch (-want +got):\n%s", diff)
	}
}

const createDocsIndex = `{
	"name": "docs",
	"default_analyzer": "en_text",
	"fields": [
		{"name": "id", "type": "keyword", "stored": true, "indexed": true},
		{"name": "title", "type": "text", "stored": true, "indexed": true, "positions": true},
		{"name": "category", "type": "text", "analyzer": "path", "stored": true, "indexed": true}
	]
}`

func TestHandler_IndexLifecycle(t *testing.T) {
	srv := newTestServer(t)

	if code := do(t, srv, "POST", "/indexes", createDocsIndex, nil); code != http.StatusCreated {
		t.Fatalf("create: status = %d", code)
	}
	if code := do(t, srv, "POST", "/indexes", createDocsIndex, nil); code != http.StatusConflict {
		t.Errorf("create again: status = %d, want 409", code)
	}

	var info map[string]interface{}
	if code := do(t, srv, "GET", "/indexes/docs", "", &info); code != http.StatusOK {
		t.Fatalf("get: status = %d", code)
	}
	wantAnalyzers := map[string]interface{}{"title": "en_text", "category": "path"}
	if diff := cmp.Diff(wantAnalyzers, info["analyzers"]); diff != "" {
		t.Errorf("analyzers mismatch (-want +got):\n%s", diff)
	}

	var list struct {
		Indexes []map[string]interface{} `json:"indexes"`
	}
	do(t, srv, "GET", "/indexes", "", &list)
	if len(list.Indexes) != 1 || list.Indexes[0]["name"] != "docs" {
		t.Errorf("indexes = %v", list.Indexes)
	}

	if code := do(t, srv, "DELETE", "/indexes/docs", "", nil); code != http.StatusOK {
		t.Errorf("delete: status = %d", code)
	}
	if code := do(t, srv, "GET", "/indexes/docs", "", nil); code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", code)
	}
	if code := do(t, srv, "DELETE", "/indexes/docs", "", nil); code != http.StatusNotFound {
		t.Errorf("delete again: status = %d, want 404", code)
	}
}

func TestHandler_CreateIndex_Invalid(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"name": `},
		{"no name", `{"fields": [{"name": "id", "type": "keyword", "indexed": true}]}`},
		{"unknown analyzer", `{"name": "x", "fields": [{"name": "t", "type": "text", "analyzer": "standard", "indexed": true}]}`},
		{"text without analyzer", `{"name": "x", "fields": [{"name": "t", "type": "text", "indexed": true}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := do(t, srv, "POST", "/indexes", tt.body, nil); code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", code)
			}
		})
	}
}

type matchResponse struct {
	TotalHits int `json:"total_hits"`
	Hits      []struct {
		ID           string            `json:"id"`
		Terms        int               `json:"terms"`
		StoredFields map[string]string `json:"stored_fields"`
	} `json:"hits"`
}

func TestHandler_DocumentsAndMatch(t *testing.T) {
	srv := newTestServer(t)

	if code := do(t, srv, "POST", "/indexes", createDocsIndex, nil); code != http.StatusCreated {
		t.Fatalf("create: status = %d", code)
	}

	docs := `{"documents": [
		{"id": "a", "title": "Running the Search Engines", "category": "guides/search"},
		{"id": "b", "title": "Engine internals", "category": "internals"},
		{"id": "c", "title": "Cooking pasta", "category": "guides/food"}
	]}`
	if code := do(t, srv, "POST", "/indexes/docs/documents", docs, nil); code != http.StatusOK {
		t.Fatalf("ingest: status = %d", code)
	}

	var resp matchResponse
	if code := do(t, srv, "POST", "/indexes/docs/match", `{"field": "title", "query": "search engine"}`, &resp); code != http.StatusOK {
		t.Fatalf("match: status = %d", code)
	}
	if resp.TotalHits != 2 || len(resp.Hits) != 2 {
		t.Fatalf("hits = %+v, want 2", resp.Hits)
	}
	if resp.Hits[0].ID != "a" || resp.Hits[0].Terms != 2 {
		t.Errorf("first hit = %+v, want a with 2 terms", resp.Hits[0])
	}
	if resp.Hits[1].ID != "b" || resp.Hits[1].Terms != 1 {
		t.Errorf("second hit = %+v, want b with 1 term", resp.Hits[1])
	}
	if got := resp.Hits[0].StoredFields["title"]; got != "Running the Search Engines" {
		t.Errorf("stored title = %q", got)
	}

	// The facet analyzer indexes every path prefix.
	resp = matchResponse{}
	do(t, srv, "POST", "/indexes/docs/match", `{"field": "category", "query": "guides"}`, &resp)
	if resp.TotalHits != 2 {
		t.Errorf("category guides: total_hits = %d, want 2", resp.TotalHits)
	}

	resp = matchResponse{}
	do(t, srv, "POST", "/indexes/docs/match", `{"field": "title", "query": "engine", "top_k": 1}`, &resp)
	if resp.TotalHits != 2 || len(resp.Hits) != 1 {
		t.Errorf("top_k 1: total_hits = %d, hits = %d", resp.TotalHits, len(resp.Hits))
	}

	if code := do(t, srv, "DELETE", "/indexes/docs/documents", `{"id": "a"}`, nil); code != http.StatusOK {
		t.Fatalf("delete document: status = %d", code)
	}
	resp = matchResponse{}
	do(t, srv, "POST", "/indexes/docs/match", `{"field": "title", "query": "search engine"}`, &resp)
	if resp.TotalHits != 1 || resp.Hits[0].ID != "b" {
		t.Errorf("after delete: hits = %+v, want only b", resp.Hits)
	}
}

func TestHandler_DocumentErrors(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, "POST", "/indexes", createDocsIndex, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing index", "POST", "/indexes/nope/documents", `{"documents": [{"id": "a"}]}`, http.StatusNotFound},
		{"no documents", "POST", "/indexes/docs/documents", `{"documents": []}`, http.StatusBadRequest},
		{"missing id", "POST", "/indexes/docs/documents", `{"documents": [{"title": "x"}]}`, http.StatusBadRequest},
		{"text not string", "POST", "/indexes/docs/documents", `{"documents": [{"id": "a", "title": 3}]}`, http.StatusBadRequest},
		{"delete without id", "DELETE", "/indexes/docs/documents", `{}`, http.StatusBadRequest},
		{"delete unknown id", "DELETE", "/indexes/docs/documents", `{"id": "ghost"}`, http.StatusNotFound},
		{"match unknown field", "POST", "/indexes/docs/match", `{"field": "body", "query": "x"}`, http.StatusBadRequest},
		{"match keyword field", "POST", "/indexes/docs/match", `{"field": "id", "query": "x"}`, http.StatusBadRequest},
		{"match without field", "POST", "/indexes/docs/match", `{"query": "x"}`, http.StatusBadRequest},
		{"match missing index", "POST", "/indexes/nope/match", `{"field": "title", "query": "x"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := do(t, srv, tt.method, tt.path, tt.body, nil); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestHandler_FailedBatchAddsNothing(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, "POST", "/indexes", createDocsIndex, nil)

	bad := `{"documents": [
		{"id": "a", "title": "hello world"},
		{"id": "b", "title": "hello again", "category": 42}
	]}`
	if code := do(t, srv, "POST", "/indexes/docs/documents", bad, nil); code != http.StatusBadRequest {
		t.Fatalf("bad batch: status = %d, want 400", code)
	}

	var resp matchResponse
	do(t, srv, "POST", "/indexes/docs/match", `{"field": "title", "query": "hello"}`, &resp)
	if resp.TotalHits != 0 {
		t.Errorf("after failed batch: hits = %+v, want none", resp.Hits)
	}

	good := `{"documents": [
		{"id": "a", "title": "hello world"},
		{"id": "b", "title": "hello again", "category": "greetings"}
	]}`
	if code := do(t, srv, "POST", "/indexes/docs/documents", good, nil); code != http.StatusOK {
		t.Fatalf("corrected batch: status = %d, want 200", code)
	}
	if code := do(t, srv, "POST", "/indexes/docs/documents", `{"documents": [{"id": "a", "title": "again"}]}`, nil); code != http.StatusConflict {
		t.Errorf("duplicate id: status = %d, want 409", code)
	}
}

func TestHandler_DeleteThenReAdd(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, "POST", "/indexes", createDocsIndex, nil)

	do(t, srv, "POST", "/indexes/docs/documents", `{"documents": [{"id": "a", "title": "old engines"}]}`, nil)
	if code := do(t, srv, "DELETE", "/indexes/docs/documents", `{"id": "a"}`, nil); code != http.StatusOK {
		t.Fatalf("delete: status = %d", code)
	}
	if code := do(t, srv, "DELETE", "/indexes/docs/documents", `{"id": "a"}`, nil); code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", code)
	}
	if code := do(t, srv, "POST", "/indexes/docs/documents", `{"documents": [{"id": "a", "title": "new pasta"}]}`, nil); code != http.StatusOK {
		t.Fatalf("re-add: status = %d", code)
	}

	var resp matchResponse
	do(t, srv, "POST", "/indexes/docs/match", `{"field": "title", "query": "pasta"}`, &resp)
	if resp.TotalHits != 1 || resp.Hits[0].ID != "a" || resp.Hits[0].StoredFields["title"] != "new pasta" {
		t.Errorf("new content: hits = %+v, want a", resp.Hits)
	}
	resp = matchResponse{}
	do(t, srv, "POST", "/indexes/docs/match", `{"field": "title", "query": "engines"}`, &resp)
	if resp.TotalHits != 0 {
		t.Errorf("old content: hits = %+v, want none", resp.Hits)
	}
}

func TestHandler_IndexFull(t *testing.T) {
	srv := newLimitedServer(t, indexing.Limits{MaxDocs: 2})
	do(t, srv, "POST", "/indexes", createDocsIndex, nil)

	if code := do(t, srv, "POST", "/indexes/docs/documents", `{"documents": [{"id": "a", "title": "one"}]}`, nil); code != http.StatusOK {
		t.Fatalf("first ingest: status = %d", code)
	}

	var e errorBody
	batch := `{"documents": [{"id": "b", "title": "two"}, {"id": "c", "title": "three"}]}`
	if code := do(t, srv, "POST", "/indexes/docs/documents", batch, &e); code != http.StatusRequestEntityTooLarge {
		t.Fatalf("over limit: status = %d, want 413", code)
	}
	if !strings.Contains(e.Error.Message, "index is full") {
		t.Errorf("message = %q", e.Error.Message)
	}

	// Nothing from the rejected batch was added, so one more fits.
	if code := do(t, srv, "POST", "/indexes/docs/documents", `{"documents": [{"id": "b", "title": "two"}]}`, nil); code != http.StatusOK {
		t.Errorf("after rejected batch: status = %d, want 200", code)
	}
}

func TestHandler_BodyTooLarge(t *testing.T) {
	srv := newTestServer(t)

	body := `{"text": "` + strings.Repeat("a", MaxRequestBodySize) + `"}`
	if code := do(t, srv, "POST", "/analyzers/keyword/analyze", body, nil); code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}
