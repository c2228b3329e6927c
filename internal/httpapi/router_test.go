package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/acelabs/aceai/internal/ai"
	"github.com/acelabs/aceai/internal/chat"
	"github.com/acelabs/aceai/internal/chatstore"
	"github.com/acelabs/aceai/internal/config"
	"github.com/acelabs/aceai/internal/httpapi/handlers"
	"github.com/acelabs/aceai/internal/index"
	"github.com/acelabs/aceai/internal/keystore"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type cannedProvider struct{}

func (cannedProvider) Chat(context.Context, []ai.Message) (string, error) {
	return "canned reply", nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router   *gin.Engine
	keys     *keystore.Store
	userKey  string
	adminKey string
	superKey string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(gormsqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	keys, err := keystore.NewStore(db)
	if err != nil {
		t.Fatalf("key store: %v", err)
	}
	sessions, err := chatstore.NewStore(db)
	if err != nil {
		t.Fatalf("chat store: %v", err)
	}
	ix, err := index.New(db, fixedEmbedder{})
	if err != nil {
		t.Fatalf("index: %v", err)
	}

	cfg := config.Load()
	chatSvc := chat.NewService(sessions, ix, cannedProvider{}, 10, 3, "test prompt")
	h := handlers.NewHandler(cfg, keys, sessions, ix, chatSvc)

	ctx := context.Background()
	superKey, err := keys.BootstrapSuperAdmin(ctx)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	admin, err := keys.CreateKey(ctx, keystore.RoleAdmin, "test-admin")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	user, err := keys.CreateKey(ctx, keystore.RoleUser, "test-user")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	return &testServer{
		router:   NewRouter(h, keys),
		keys:     keys,
		userKey:  user.APIKey,
		adminKey: admin.APIKey,
		superKey: superKey,
	}
}

func (ts *testServer) do(t *testing.T, method, path, apiKey string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	if strings.Contains(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func TestAuth_MissingAndInvalidKey(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodGet, "/documents", "", nil)
	if w.Code != http.StatusUnauthorized || env.Code != 40101 {
		t.Fatalf("missing key: status=%d code=%d", w.Code, env.Code)
	}

	// an unknown credential is an authentication failure, never an
	// authorization one
	w, env = ts.do(t, http.MethodPost, "/keys", "not-a-real-key", gin.H{"role": "user"})
	if w.Code != http.StatusUnauthorized || env.Code != 40102 {
		t.Fatalf("invalid key: status=%d code=%d", w.Code, env.Code)
	}
}

func TestKeys_RoleGating(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodPost, "/keys", ts.userKey, gin.H{"role": "user"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("user must not create keys, got %d", w.Code)
	}

	w, env := ts.do(t, http.MethodPost, "/keys", ts.adminKey, gin.H{"role": "user", "label": "minted"})
	if w.Code != http.StatusOK {
		t.Fatalf("admin create key failed: %d %s", w.Code, w.Body.String())
	}
	var created keystore.CreatedKey
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode created key: %v", err)
	}
	if created.APIKey == "" || created.Role != keystore.RoleUser {
		t.Fatalf("unexpected created key: %+v", created)
	}

	w, env = ts.do(t, http.MethodGet, "/keys", ts.adminKey, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list keys failed: %d", w.Code)
	}
	if strings.Contains(string(env.Data), created.APIKey) {
		t.Fatal("list keys must never expose plaintext")
	}
	if strings.Contains(string(env.Data), "key_hash") {
		t.Fatal("list keys must never expose the digest")
	}
}

func TestReset_ExactSuperAdminOnly(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodPost, "/reset", ts.adminKey, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("admin must not reset, got %d", w.Code)
	}

	w, _ = ts.do(t, http.MethodPost, "/reset", ts.superKey, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("super admin reset failed: %d", w.Code)
	}
}

func TestIngestListDeleteBySource(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodPost, "/ingest", ts.userKey, gin.H{"text": "  "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank text must be rejected, got %d", w.Code)
	}

	w, _ = ts.do(t, http.MethodPost, "/ingest", ts.userKey, gin.H{"text": "useful fact", "source": "notes.txt"})
	if w.Code != http.StatusOK {
		t.Fatalf("ingest failed: %d %s", w.Code, w.Body.String())
	}

	w, env := ts.do(t, http.MethodGet, "/documents", ts.userKey, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list failed: %d", w.Code)
	}
	var listing struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listing.Total != 1 {
		t.Fatalf("expected 1 chunk, got %d", listing.Total)
	}

	// bulk delete is super_admin only
	w, _ = ts.do(t, http.MethodDelete, "/documents/batch/by-source?source=notes.txt", ts.userKey, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("user must not bulk delete, got %d", w.Code)
	}

	w, env = ts.do(t, http.MethodDelete, "/documents/batch/by-source?source=notes.txt", ts.superKey, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("bulk delete failed: %d %s", w.Code, w.Body.String())
	}
	var deleted struct {
		DeletedCount int64 `json:"deleted_count"`
	}
	if err := json.Unmarshal(env.Data, &deleted); err != nil {
		t.Fatalf("decode delete result: %v", err)
	}
	if deleted.DeletedCount != 1 {
		t.Fatalf("expected 1 deletion, got %d", deleted.DeletedCount)
	}

	// repeating the delete finds nothing
	w, _ = ts.do(t, http.MethodDelete, "/documents/batch/by-source?source=notes.txt", ts.superKey, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty source, got %d", w.Code)
	}
}

func TestChatTurn_StreamsSessionThenReply(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodPost, "/chat", ts.userKey, gin.H{"message": "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("chat failed: %d %s", w.Code, w.Body.String())
	}
	body := w.Body.String()

	sessionIdx := strings.Index(body, "event: session")
	deltaIdx := strings.Index(body, "event: delta")
	doneIdx := strings.Index(body, "event: done")
	if sessionIdx < 0 || deltaIdx < 0 || doneIdx < 0 {
		t.Fatalf("missing events in stream:\n%s", body)
	}
	if !(sessionIdx < deltaIdx && deltaIdx < doneIdx) {
		t.Fatalf("events out of order:\n%s", body)
	}
	if !strings.Contains(body, "canned reply") {
		t.Fatalf("reply content missing:\n%s", body)
	}
}

func TestChatTurn_UnknownSession(t *testing.T) {
	ts := newTestServer(t)
	w, env := ts.do(t, http.MethodPost, "/chat", ts.userKey, gin.H{"message": "hi", "session_id": "nope"})
	if w.Code != http.StatusNotFound || env.Code != 40420 {
		t.Fatalf("expected 404/40420, got %d/%d", w.Code, env.Code)
	}
}
