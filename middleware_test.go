package gotauth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	ga "github.com/gotmoney/gotauth"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := ga.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ga.RequestIDFromContext(r.Context())
	}))

	t.Run("keeps a valid incoming id", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(ga.HeaderRequestID, id)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, id, seen)
		assert.Equal(t, id, rr.Header().Get(ga.HeaderRequestID))
	})

	t.Run("replaces a malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(ga.HeaderRequestID, "<script>")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
		assert.NotEqual(t, "<script>", seen)
	})
}
