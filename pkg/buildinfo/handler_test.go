package buildinfo_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/otherjamesbrown/focusflow/pkg/buildinfo"
)

func TestHandler(t *testing.T) {
	handler := buildinfo.Handler("focusflow-serve", "report_store")
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}

	var info buildinfo.Info
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}

	if info.ServiceName != "focusflow-serve" {
		t.Errorf("Expected service_name 'focusflow-serve', got '%s'", info.ServiceName)
	}
	if len(info.Features) != 1 || info.Features[0] != "report_store" {
		t.Errorf("Expected features [report_store], got %v", info.Features)
	}

	// Verify Go version starts with "go" (e.g., "go1.24.0")
	if len(info.GoVersion) < 2 || info.GoVersion[:2] != "go" {
		t.Errorf("Expected go_version to start with 'go', got '%s'", info.GoVersion)
	}
}
