package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"companion-backend/internal/shared/apperr"
)

func TestDataKeepsNull(t *testing.T) {
	gin.SetMode(gin.TestMode)
	resp := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(resp)

	Data(c, nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["success"] != true {
		t.Fatalf("expected success=true, got %v", payload["success"])
	}
	data, ok := payload["data"]
	if !ok || data != nil {
		t.Fatalf("expected data:null, got %v (present=%v)", data, ok)
	}
}

func TestErrorUsesStatusOf(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{err: apperr.BadRequest("File must be an image"), status: http.StatusBadRequest, msg: "File must be an image"},
		{err: apperr.ErrUnauthorized, status: http.StatusUnauthorized, msg: "Unauthorized"},
		{err: apperr.Upstream("Failed to fetch banner", errors.New("timeout")), status: http.StatusInternalServerError, msg: "Failed to fetch banner: timeout"},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(resp)
		c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

		Error(c, tc.err)

		if resp.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, resp.Code)
		}
		var body Failure
		if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Success || body.Error != tc.msg {
			t.Fatalf("unexpected body: %+v", body)
		}
	}
}
