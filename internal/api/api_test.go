package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notegraph/internal/noteservice"
	"github.com/starford/notegraph/internal/resolve"
	"github.com/starford/notegraph/internal/testutil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// testEnv sets up a temp vault, SQLite DB, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*noteservice.Service, http.Handler) {
	t.Helper()
	svc, router, _ := testEnvWithVault(t, authToken != "", authToken)
	return svc, router
}

func testEnvWithVault(t *testing.T, authEnabled bool, authToken string) (*noteservice.Service, http.Handler, string) {
	t.Helper()
	vaultDir, store := testutil.TestVault(t)
	svc := noteservice.NewService(store, testutil.TestDB(t), noteservice.WithLogger(discard))
	router := NewRouter(svc, authEnabled, authToken, nil, store, discard)
	return svc, router, vaultDir
}

func do(t *testing.T, router http.Handler, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createNote(t *testing.T, router http.Handler, title, md string) NoteDetail {
	t.Helper()
	w := do(t, router, http.MethodPost, "/notes", map[string]string{"title": title, "markdown": md})
	if w.Code != http.StatusCreated {
		t.Fatalf("create %q = %d, body = %s", title, w.Code, w.Body.String())
	}
	var note NoteDetail
	if err := json.Unmarshal(w.Body.Bytes(), &note); err != nil {
		t.Fatal(err)
	}
	return note
}

func TestCreateAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	created := createNote(t, router, "Hello", "World")
	if created.ID == "" {
		t.Fatal("no id")
	}

	w := do(t, router, http.MethodGet, "/notes/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if got := w.Header().Get("ETag"); got != `"`+created.Checksum+`"` {
		t.Errorf("etag = %q, want checksum %q", got, created.Checksum)
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Title != "Hello" {
		t.Errorf("title = %q, want Hello", note.Title)
	}
	if note.Markdown != "World" {
		t.Errorf("markdown = %q", note.Markdown)
	}
	if note.Path != "Hello-"+created.ID+".md" {
		t.Errorf("path = %q", note.Path)
	}
}

func TestCreateNote_Invalid(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/notes", map[string]string{"markdown": "no title"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing title = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", rec.Code)
	}

	w = do(t, router, http.MethodPost, "/notes", map[string]any{
		"title": "Both", "markdown": "x", "content": map[string]any{"type": "doc"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("markdown and content = %d, want 400", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "Lock", "v1")

	w := do(t, router, http.MethodPut, "/notes/"+created.ID, map[string]string{"markdown": "v2"},
		"If-Match", `"`+created.Checksum+`"`)
	if w.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}

	// The checksum is stale now.
	w = do(t, router, http.MethodPut, "/notes/"+created.ID, map[string]string{"markdown": "v3"},
		"If-Match", created.Checksum)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", w.Code)
	}
}

func TestUpdateWithoutIfMatch(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "NoLock", "v1")

	w := do(t, router, http.MethodPut, "/notes/"+created.ID, map[string]string{"markdown": "v2"})
	if w.Code != http.StatusOK {
		t.Errorf("update without If-Match = %d, want 200", w.Code)
	}
}

func TestUpdateNote_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/notes/ghost", map[string]string{"markdown": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "Bye", "gone")

	if w := do(t, router, http.MethodDelete, "/notes/"+created.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/notes/"+created.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/notes/"+created.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestRenameNote(t *testing.T) {
	_, router := testEnv(t, "")
	target := createNote(t, router, "Old", "")
	linking := createNote(t, router, "Linking", "See [[Old]].")

	w := do(t, router, http.MethodPut, "/notes/"+target.ID+"/title", map[string]string{"title": "New"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/notes/"+linking.ID+"/markdown", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "See [[New]].") {
		t.Errorf("linking note not updated:\n%s", w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "Linking-"+linking.ID+".md") {
		t.Errorf("content-disposition = %q", cd)
	}

	w = do(t, router, http.MethodPut, "/notes/"+target.ID+"/title", map[string]string{"title": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank title = %d, want 400", w.Code)
	}
}

func TestViewNote(t *testing.T) {
	_, router := testEnv(t, "")
	inner := createNote(t, router, "Inner", "inner text")
	outer := createNote(t, router, "Outer", "![[Inner]]")

	w := do(t, router, http.MethodGet, "/notes/"+outer.ID+"/view", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("view = %d, body = %s", w.Code, w.Body.String())
	}
	var view noteservice.ViewDetail
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if len(view.Refs) != 1 || view.Refs[0].Render != resolve.RenderEmbed || view.Refs[0].Embedded == nil {
		t.Fatalf("refs = %+v", view.Refs)
	}
	if view.Refs[0].Embedded.ID != inner.ID {
		t.Errorf("embedded = %q, want %q", view.Refs[0].Embedded.ID, inner.ID)
	}

	// Shown inside Inner, the embed of Inner would recurse.
	w = do(t, router, http.MethodGet, "/notes/"+outer.ID+"/view?parents="+inner.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("view with parents = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if view.Refs[0].Render != resolve.RenderLink || view.Refs[0].Outcome != resolve.Circular {
		t.Errorf("ref = %+v, want a circular link", view.Refs[0])
	}
}

func TestConvertReference(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, "Target", "")
	src := createNote(t, router, "Source", "See [[Target]]")

	w := do(t, router, http.MethodPost, "/notes/"+src.ID+"/convert",
		map[string]any{"key": src.Refs[0].Key, "to": ConvertToEmbed})
	if w.Code != http.StatusOK {
		t.Fatalf("convert = %d, body = %s", w.Code, w.Body.String())
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if len(note.Refs) != 1 || !note.Refs[0].Embed {
		t.Errorf("refs = %+v, want one embed", note.Refs)
	}

	self := createNote(t, router, "Self", "See [[Self]]")
	w = do(t, router, http.MethodPost, "/notes/"+self.ID+"/convert",
		map[string]any{"key": self.Refs[0].Key, "to": ConvertToEmbed})
	if w.Code != http.StatusConflict {
		t.Errorf("self embed = %d, want 409", w.Code)
	}

	w = do(t, router, http.MethodPost, "/notes/"+src.ID+"/convert", map[string]any{"key": 1, "to": "sideways"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad target form = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodPost, "/notes/"+src.ID+"/convert", map[string]any{"key": 99999, "to": ConvertToLink})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown key = %d, want 404", w.Code)
	}
}

func TestBacklinksAndResolve(t *testing.T) {
	_, router := testEnv(t, "")
	target := createNote(t, router, "Target", "")
	src := createNote(t, router, "Source", "See [[Target]]")

	w := do(t, router, http.MethodGet, "/notes/"+target.ID+"/backlinks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("backlinks = %d", w.Code)
	}
	var bl BacklinksResponse
	_ = json.Unmarshal(w.Body.Bytes(), &bl)
	if len(bl.Backlinks) != 1 || bl.Backlinks[0] != src.ID {
		t.Errorf("backlinks = %v", bl.Backlinks)
	}

	w = do(t, router, http.MethodGet, "/resolve?from="+src.ID+"&target="+target.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve = %d, body = %s", w.Code, w.Body.String())
	}
	var res noteservice.ResolveDetail
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Outcome != resolve.Resolved || res.Title != "Target" {
		t.Errorf("resolve = %+v", res)
	}

	w = do(t, router, http.MethodGet, "/resolve?from="+src.ID+"&target=nothing", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if w.Code != http.StatusOK || res.Outcome != resolve.Dangling {
		t.Errorf("dangling resolve = %d %+v", w.Code, res)
	}

	if w := do(t, router, http.MethodGet, "/resolve?from="+src.ID, nil); w.Code != http.StatusBadRequest {
		t.Errorf("resolve without target = %d, want 400", w.Code)
	}
}

func TestImportMarkdown(t *testing.T) {
	_, router := testEnv(t, "")

	md := "---\nid: imp1\ntitle: Imported\n---\n\nbody\n"
	w := do(t, router, http.MethodPost, "/import", map[string]string{"name": "Imported-imp1.md", "markdown": md})
	if w.Code != http.StatusCreated {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ImportResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Created || resp.Note.ID != "imp1" {
		t.Errorf("resp = %+v", resp)
	}

	w = do(t, router, http.MethodPost, "/import", map[string]string{"name": "Imported-imp1.md", "markdown": md + "more\n"})
	if w.Code != http.StatusOK {
		t.Errorf("reimport = %d, want 200", w.Code)
	}

	if w := do(t, router, http.MethodPost, "/import", map[string]string{"name": "x.md"}); w.Code != http.StatusBadRequest {
		t.Errorf("empty import = %d, want 400", w.Code)
	}
}

func TestListNotes(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/notes", map[string]any{"title": "A", "tags": []string{"work"}}); w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}
	createNote(t, router, "B", "")

	w := do(t, router, http.MethodGet, "/notes?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Notes) != 2 || resp.Total != 2 {
		t.Errorf("notes = %d, total = %d, want 2", len(resp.Notes), resp.Total)
	}

	w = do(t, router, http.MethodGet, "/notes?tag=work", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Notes) != 1 || resp.Notes[0].Title != "A" {
		t.Errorf("tag filter = %+v", resp.Notes)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, "Find", "uniquetoken here")

	w := do(t, router, http.MethodGet, "/search?q=uniquetoken", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	results := resp["results"].([]any)
	if len(results) != 1 {
		t.Errorf("search results = %d, want 1", len(results))
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestSuggestEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, "Meeting notes", "")
	createNote(t, router, "Groceries", "")

	w := do(t, router, http.MethodGet, "/suggest?q=meet", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("suggest = %d", w.Code)
	}
	var resp SuggestResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Suggestions) == 0 || resp.Suggestions[0].Title != "Meeting notes" {
		t.Errorf("suggestions = %+v", resp.Suggestions)
	}
}

func TestGraphEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	a := createNote(t, router, "A", "")
	b := createNote(t, router, "B", "links to [[A]]")
	do(t, router, http.MethodPut, "/notes/"+a.ID, map[string]string{"markdown": "links to [[B]]"})

	w := do(t, router, http.MethodGet, "/graph", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("graph = %d", w.Code)
	}
	var g GraphResponse
	if err := json.Unmarshal(w.Body.Bytes(), &g); err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(g.Nodes))
	}
	if len(g.Edges) != 1 || !g.Edges[0].Bidirectional {
		t.Errorf("edges = %+v, want one bidirectional edge", g.Edges)
	}
	if g.Stats.Bidirectional != 1 {
		t.Errorf("stats = %+v (notes %s, %s)", g.Stats, a.ID, b.ID)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodPost, "/notes", map[string]string{"title": "Auth"},
		"Authorization", "Bearer secret123")
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	if w := do(t, router, http.MethodGet, "/notes", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/notes", nil, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/notes", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/notes/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
}

// SSE endpoint auth tests.

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	router := testEnvWithSSE(t, false, "")

	// The stub blocks until the request context ends.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// testEnvWithSSE creates a router with a dummy SSE handler to test auth on /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	_, store := testutil.TestVault(t)
	svc := noteservice.NewService(store, testutil.TestDB(t), noteservice.WithLogger(discard))

	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	return NewRouter(svc, authEnabled, token, sseHandler, store, discard)
}

// Attachment tests.

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndServeAttachment(t *testing.T) {
	_, router, vaultDir := testEnvWithVault(t, false, "")

	w := uploadFile(t, router, "test image.png", []byte("fake-png-data"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp AttachmentUploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.HasSuffix(resp.Filename, "-test_image.png") {
		t.Errorf("filename = %q", resp.Filename)
	}
	if resp.Size != int64(len("fake-png-data")) {
		t.Errorf("size = %d", resp.Size)
	}
	if resp.Markdown != "![test image.png]("+resp.URL+")" {
		t.Errorf("markdown = %q", resp.Markdown)
	}

	data, err := os.ReadFile(filepath.Join(vaultDir, "attachments", resp.Filename))
	if err != nil {
		t.Fatalf("file not on disk: %v", err)
	}
	if string(data) != "fake-png-data" {
		t.Errorf("content mismatch")
	}

	w = do(t, router, http.MethodGet, "/attachments/"+resp.Filename, nil)
	if w.Code != http.StatusOK || w.Body.String() != "fake-png-data" {
		t.Errorf("serve = %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}

	// Uploading the same name twice keeps both files.
	w = uploadFile(t, router, "test image.png", []byte("other"))
	var second AttachmentUploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &second)
	if second.Filename == resp.Filename {
		t.Error("second upload reused the stored name")
	}
}

func TestServeAttachment_NotFound(t *testing.T) {
	_, store := testutil.TestVault(t)
	ah := NewAttachmentHandler(store, discard)

	// URL params need a chi router context.
	r := chi.NewRouter()
	r.Get("/attachments/{filename}", ah.ServeFile)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attachments/nope.png", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing attachment = %d, want 404", w.Code)
	}
}

func TestServeAttachment_TraversalBlocked(t *testing.T) {
	vaultDir, store := testutil.TestVault(t)
	if err := store.Write("secret.md", []byte("secret")); err != nil {
		t.Fatal(err)
	}
	ah := NewAttachmentHandler(store, discard)
	r := chi.NewRouter()
	r.Get("/attachments/{filename}", ah.ServeFile)

	for _, name := range []string{"../secret.md", "..%2Fsecret.md", ".hidden"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attachments/"+name, nil))
		if w.Code == http.StatusOK {
			t.Errorf("traversal %q should not return 200 (vault %s)", name, vaultDir)
		}
	}
}

func TestUploadAttachment_TraversalName(t *testing.T) {
	_, router, vaultDir := testEnvWithVault(t, false, "")

	w := uploadFile(t, router, "../escape.txt", []byte("bad"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d", w.Code)
	}
	var resp AttachmentUploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if strings.Contains(resp.Filename, "/") || strings.Contains(resp.Filename, "..") {
		t.Errorf("filename = %q", resp.Filename)
	}
	if _, err := os.Stat(filepath.Join(vaultDir, "..", "escape.txt")); err == nil {
		t.Error("file escaped vault directory")
	}
}

func TestUploadAttachment_AuthProtected(t *testing.T) {
	_, router, _ := testEnvWithVault(t, true, "secret")

	if w := uploadFile(t, router, "x.png", []byte("data")); w.Code != http.StatusUnauthorized {
		t.Errorf("upload no auth = %d, want 401", w.Code)
	}
}

func TestUploadAttachment_MissingFileField(t *testing.T) {
	_, router, _ := testEnvWithVault(t, false, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}
