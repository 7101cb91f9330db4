package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"companion-backend/internal/platform"
	"companion-backend/internal/platform/memory"
	"companion-backend/internal/schema"
	"companion-backend/internal/shared/config"
)

const (
	serviceKey = "service-role-key"
	publicBase = "http://localhost:8080"
)

func memoryConfig() config.Config {
	return config.Config{
		Env:              "dev",
		AuthProvider:     config.BackendMemory,
		RecordStore:      config.BackendMemory,
		ObjectStore:      config.BackendMemory,
		CORSAllowHeaders: []string{"authorization", "content-type"},
		RateLimitPerMin:  100,
		PublicBaseURL:    publicBase,
		Supabase:         config.Supabase{ServiceRoleKey: serviceKey},
	}
}

func buildApp(t *testing.T, cfg config.Config) (*App, *memory.Records) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := memory.NewAuthenticator()
	auth.Grant("token-1", "user-1", "one@example.com")
	records := memory.NewRecords()

	app, err := BuildWith(cfg, platform.Backend{Auth: auth, Records: records})
	if err != nil {
		t.Fatalf("BuildWith: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app, records
}

func serve(app *App, req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetrics(t *testing.T) {
	app, _ := buildApp(t, memoryConfig())

	resp := serve(app, httptest.NewRequest(http.MethodGet, "/health", nil), "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected health %d %s", resp.Code, resp.Body.String())
	}

	resp = serve(app, httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "request_duration_ms") {
		t.Fatalf("unexpected metrics %d %s", resp.Code, resp.Body.String())
	}
}

func TestEveryFunctionIsMounted(t *testing.T) {
	app, _ := buildApp(t, memoryConfig())

	paths := []string{
		"upload-avatar", "upload-banner", "upload-profile-picture",
		"get-banner", "get-profile-picture", "delete-banner", "delete-profile-picture",
		"get-user-profile", "update-user-profile",
		"get-conversations", "send-message", "get-matches", "get-companions",
		"initialize", "create-table-user-banners",
	}
	for _, p := range paths {
		resp := serve(app, httptest.NewRequest(http.MethodOptions, "/functions/v1/"+p, nil), "")
		if resp.Code != http.StatusOK {
			t.Fatalf("preflight %s: expected 200, got %d", p, resp.Code)
		}
		if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Fatalf("preflight %s: missing CORS headers", p)
		}
		resp = serve(app, httptest.NewRequest(http.MethodPut, "/functions/v1/"+p, nil), "token-1")
		if resp.Code != http.StatusMethodNotAllowed {
			t.Fatalf("PUT %s: expected 405, got %d", p, resp.Code)
		}
	}
}

func TestFunctionsRequireBearer(t *testing.T) {
	app, _ := buildApp(t, memoryConfig())

	resp := serve(app, httptest.NewRequest(http.MethodGet, "/functions/v1/get-companions", nil), "")
	if resp.Code != http.StatusUnauthorized || !strings.Contains(resp.Body.String(), "Unauthorized") {
		t.Fatalf("expected 401, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestCompanionsThroughRouter(t *testing.T) {
	app, records := buildApp(t, memoryConfig())
	if _, err := records.Insert(context.Background(), schema.Companions, platform.Row{
		"name": "Ava", "is_active": true, "compatibility_score": 90,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp := serve(app, httptest.NewRequest(http.MethodGet, "/functions/v1/get-companions", nil), "token-1")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Success bool             `json:"success"`
		Data    []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || len(body.Data) != 1 || body.Data[0]["name"] != "Ava" {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRateLimitAppliesToFunctions(t *testing.T) {
	cfg := memoryConfig()
	cfg.RateLimitPerMin = 2
	app, _ := buildApp(t, cfg)

	var last int
	for i := 0; i < 3; i++ {
		last = serve(app, httptest.NewRequest(http.MethodGet, "/functions/v1/get-companions", nil), "token-1").Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third call, got %d", last)
	}
	if resp := serve(app, httptest.NewRequest(http.MethodGet, "/health", nil), ""); resp.Code != http.StatusOK {
		t.Fatalf("health must not be limited, got %d", resp.Code)
	}
}

func TestUnknownBackendFails(t *testing.T) {
	cfg := memoryConfig()
	cfg.ObjectStore = "ftp"
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error for unknown object store")
	}
}

func TestLocalStoreServesUploadedBanner(t *testing.T) {
	cfg := memoryConfig()
	cfg.ObjectStore = config.BackendLocal
	cfg.LocalStoreDir = t.TempDir()
	app, _ := buildApp(t, cfg)
	if app.Local == nil {
		t.Fatalf("expected local store")
	}

	if resp := serve(app, httptest.NewRequest(http.MethodPost, "/functions/v1/initialize", nil), serviceKey); resp.Code != http.StatusOK {
		t.Fatalf("initialize: %d %s", resp.Code, resp.Body.String())
	}

	image := []byte("\x89PNG fake image bytes")
	resp := serve(app, multipartUpload(t, "/functions/v1/upload-banner", "hero.png", "image/png", image), "token-1")
	if resp.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", resp.Code, resp.Body.String())
	}
	var uploaded struct {
		URL string `json:"url"`
		Key string `json:"key"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(uploaded.URL, publicBase+"/storage/v1/object/public/banners/user-1/") {
		t.Fatalf("unexpected url %q", uploaded.URL)
	}

	resp = serve(app, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(uploaded.URL, publicBase), nil), "")
	if resp.Code != http.StatusOK || !bytes.Equal(resp.Body.Bytes(), image) {
		t.Fatalf("expected stored bytes, got %d %q", resp.Code, resp.Body.String())
	}
}

func multipartUpload(t *testing.T, path, fileName, contentType string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
