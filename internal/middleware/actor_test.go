package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireActor(t *testing.T) {
	var gotID int64
	handler := RequireActor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = ActorID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantID     int64
	}{
		{"valid id", "42", http.StatusNoContent, 42},
		{"missing header", "", http.StatusUnauthorized, 0},
		{"non-numeric", "abc", http.StatusUnauthorized, 0},
		{"zero", "0", http.StatusUnauthorized, 0},
		{"negative", "-3", http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID = 0
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.header != "" {
				req.Header.Set("X-Actor-ID", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotID != tt.wantID {
				t.Errorf("actor id = %d, want %d", gotID, tt.wantID)
			}
		})
	}
}

func TestActorIDWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := ActorID(req.Context()); got != 0 {
		t.Errorf("actor id = %d, want 0 outside RequireActor", got)
	}
}
