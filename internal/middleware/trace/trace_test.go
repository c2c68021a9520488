package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestMiddleware(t *testing.T) {
	m := NewMiddleware()
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromRequest(r)
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"kept when valid", "0b6c2f5e-5a55-4c1e-9d2a-6f7b3c1d2e4f", true},
		{"replaced when malformed", "<script>", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(HeaderRequestID)
			if got != seen {
				t.Fatalf("header %q and context %q differ", got, seen)
			}
			if tt.keep && got != tt.incoming {
				t.Fatalf("expected incoming id to be kept, got %q", got)
			}
			if !tt.keep {
				if got == tt.incoming {
					t.Fatalf("expected a fresh id")
				}
				if _, err := uuid.Parse(got); err != nil {
					t.Fatalf("generated id %q is not a uuid", got)
				}
			}
		})
	}
	if m.TotalRequests() != 3 {
		t.Fatalf("TotalRequests() = %d, want 3", m.TotalRequests())
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := FromRequest(req); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}
