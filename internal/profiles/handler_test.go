package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"companion-backend/internal/platform"
	"companion-backend/internal/platform/memory"
	"companion-backend/internal/schema"
	"companion-backend/internal/shared/server/endpoint"
)

func setup(t *testing.T) (*gin.Engine, *memory.Records) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth := memory.NewAuthenticator()
	auth.Grant("token-1", "user-1", "one@example.com")

	records := memory.NewRecords()
	svc := NewService(records)
	svc.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	r := gin.New()
	NewHandler(svc, endpoint.Guard{Auth: auth}).RegisterRoutes(r.Group("/functions/v1"))
	return r, records
}

func call(t *testing.T, r *gin.Engine, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer token-1")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode %q: %v", resp.Body.String(), err)
	}
	return resp.Code, payload
}

func seed(t *testing.T, records *memory.Records, table string, row platform.Row) {
	t.Helper()
	if _, err := records.Insert(context.Background(), table, row); err != nil {
		t.Fatalf("seed %s: %v", table, err)
	}
}

func TestParseSection(t *testing.T) {
	cases := map[string]string{
		"":            "profile",
		"profile":     "profile",
		"Preferences": "preferences",
		" stats ":     "stats",
	}
	for in, want := range cases {
		got, err := ParseSection(in)
		if err != nil || got.Name != want {
			t.Fatalf("ParseSection(%q) = %v, %v; want %s", in, got.Name, err, want)
		}
	}
	if _, err := ParseSection("friends"); err == nil {
		t.Fatalf("expected unknown type to fail")
	}
}

func TestGetMissingProfileIsNull(t *testing.T) {
	r, _ := setup(t)
	status, body := call(t, r, http.MethodGet, "/functions/v1/get-user-profile", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	data, ok := body["data"]
	if body["success"] != true || !ok || data != nil {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestGetSections(t *testing.T) {
	r, records := setup(t)
	seed(t, records, schema.UserProfiles, platform.Row{"id": "user-1", "display_name": "One"})
	seed(t, records, schema.UserProfiles, platform.Row{"id": "user-2", "display_name": "Two"})
	seed(t, records, schema.UserStats, platform.Row{"user_id": "user-1", "total_matches": 3})

	_, body := call(t, r, http.MethodGet, "/functions/v1/get-user-profile", "")
	if data, _ := body["data"].(map[string]any); data["display_name"] != "One" {
		t.Fatalf("unexpected profile %v", body)
	}

	_, body = call(t, r, http.MethodPost, "/functions/v1/get-user-profile?type=stats", "")
	if data, _ := body["data"].(map[string]any); data["total_matches"] != float64(3) {
		t.Fatalf("unexpected stats %v", body)
	}

	_, body = call(t, r, http.MethodGet, "/functions/v1/get-user-profile?type=preferences", "")
	if body["data"] != nil {
		t.Fatalf("expected null preferences, got %v", body)
	}
}

func TestGetUnknownTypeIsBadRequest(t *testing.T) {
	r, _ := setup(t)
	status, body := call(t, r, http.MethodGet, "/functions/v1/get-user-profile?type=friends", "")
	if status != http.StatusBadRequest || body["error"] != "Invalid type: friends" {
		t.Fatalf("unexpected %d %v", status, body)
	}
}

func TestGetFailureSurfacesUpstreamMessage(t *testing.T) {
	r, records := setup(t)
	records.FailOn("select", schema.UserProfiles, errors.New("permission denied"))
	status, body := call(t, r, http.MethodGet, "/functions/v1/get-user-profile", "")
	if status != http.StatusInternalServerError || body["error"] != "Failed to fetch user profile: permission denied" {
		t.Fatalf("unexpected %d %v", status, body)
	}
}

func TestGetIgnoresEnsureFailure(t *testing.T) {
	r, records := setup(t)
	records.FailOn("call", schema.EnsureFunction(schema.UserProfiles), errors.New("function missing"))
	seed(t, records, schema.UserProfiles, platform.Row{"id": "user-1"})
	status, _ := call(t, r, http.MethodGet, "/functions/v1/get-user-profile", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
}

func TestUpdateProfile(t *testing.T) {
	r, records := setup(t)
	seed(t, records, schema.UserProfiles, platform.Row{"id": "user-1", "bio": "old"})

	status, body := call(t, r, http.MethodPatch, "/functions/v1/update-user-profile", `{"updates":{"bio":"new"}}`)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", status, body)
	}
	if data, _ := body["data"].(map[string]any); data["bio"] != "new" {
		t.Fatalf("unexpected body %v", body)
	}
	if rows := records.Rows(schema.UserProfiles); rows[0]["bio"] != "new" {
		t.Fatalf("expected stored update, got %v", rows[0])
	}
}

func TestUpdatePreferencesScopedToCaller(t *testing.T) {
	r, records := setup(t)
	seed(t, records, schema.UserPreferences, platform.Row{"user_id": "user-1", "min_age": 20})
	seed(t, records, schema.UserPreferences, platform.Row{"user_id": "user-2", "min_age": 20})

	status, _ := call(t, r, http.MethodPost, "/functions/v1/update-user-profile", `{"type":"preferences","updates":{"min_age":25}}`)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	for _, row := range records.Rows(schema.UserPreferences) {
		var want any = 20
		if row["user_id"] == "user-1" {
			want = float64(25)
		}
		if row["min_age"] != want {
			t.Fatalf("unexpected row %v", row)
		}
	}
}

func TestUpdateRejectsProtectedFields(t *testing.T) {
	r, records := setup(t)
	seed(t, records, schema.UserStats, platform.Row{"user_id": "user-1"})

	status, body := call(t, r, http.MethodPost, "/functions/v1/update-user-profile", `{"type":"stats","updates":{"user_id":"user-2","total_swipes":1}}`)
	if status != http.StatusBadRequest || body["error"] != "Cannot update protected fields: user_id" {
		t.Fatalf("unexpected %d %v", status, body)
	}
	if rows := records.Rows(schema.UserStats); rows[0]["user_id"] != "user-1" {
		t.Fatalf("row must be untouched, got %v", rows[0])
	}
}

func TestUpdateRequiresUpdates(t *testing.T) {
	r, _ := setup(t)
	status, body := call(t, r, http.MethodPost, "/functions/v1/update-user-profile", `{"type":"profile"}`)
	if status != http.StatusBadRequest || body["error"] != "No updates provided" {
		t.Fatalf("unexpected %d %v", status, body)
	}
}

func TestUpdateMissingRowFails(t *testing.T) {
	r, _ := setup(t)
	status, body := call(t, r, http.MethodPost, "/functions/v1/update-user-profile", `{"updates":{"bio":"x"}}`)
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if msg, _ := body["error"].(string); !strings.HasPrefix(msg, "Failed to update user profile: ") {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestUpdateLastActive(t *testing.T) {
	r, records := setup(t)
	seed(t, records, schema.UserProfiles, platform.Row{"id": "user-1"})

	status, body := call(t, r, http.MethodPost, "/functions/v1/update-user-profile", `{"type":"last_active"}`)
	if status != http.StatusOK || body["message"] != "Last active updated" {
		t.Fatalf("unexpected %d %v", status, body)
	}
	if got := records.Rows(schema.UserProfiles)[0]["last_active_at"]; got != "2025-03-01T12:00:00Z" {
		t.Fatalf("unexpected last_active_at %v", got)
	}
}

func TestUpdateRejectsGet(t *testing.T) {
	r, _ := setup(t)
	status, body := call(t, r, http.MethodGet, "/functions/v1/update-user-profile", "")
	if status != http.StatusMethodNotAllowed || body["error"] != "Method not allowed" {
		t.Fatalf("unexpected %d %v", status, body)
	}
}
