package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hongminglow/portfolio-be/internal/logging"
	"github.com/hongminglow/portfolio-be/internal/middleware"
	"github.com/hongminglow/portfolio-be/internal/portfolio"
	"github.com/hongminglow/portfolio-be/internal/storage/memory"
)

const (
	ownerA = "65a1b2c3d4e5f6a7b8c9d0e1"
	ownerB = "65a1b2c3d4e5f6a7b8c9d0e2"
	absent = "000000000000000000000000"
)

type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func decodeEnvelope[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.Equal(t, w.Code, env.Code)
	return env
}

// do sends a request as owner; an empty owner sends it unauthenticated.
func do(t *testing.T, h http.Handler, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req = req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{UserID: owner}))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func newPortfolioMux(svc PortfolioService) *http.ServeMux {
	mux := http.NewServeMux()
	NewPortfolioHandler(svc, logging.Discard()).Register(mux)
	return mux
}

func newMemoryPortfolioMux() *http.ServeMux {
	repo := portfolio.NewRepository(memory.NewStore(), nil, logging.Discard())
	return newPortfolioMux(repo)
}
