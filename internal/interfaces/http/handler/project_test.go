package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge-api/internal/config"
	"appforge-api/internal/infrastructure/storage"
)

func newTestRouter(t *testing.T) (*gin.Engine, *storage.DiskStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewDiskStore(&config.DiskConfig{BaseDir: t.TempDir()})
	require.NoError(t, err)

	h := NewProjectHandler(store, nil)

	r := gin.New()
	r.GET("/v1/projects", h.ListProjects)
	r.DELETE("/v1/projects/:name", h.DeleteProject)
	r.GET("/v1/projects/:name/files", h.ListFiles)
	r.GET("/v1/projects/:name/files/*path", h.ReadFile)
	r.PUT("/v1/projects/:name/files/*path", h.WriteFile)
	return r, store
}

func TestListProjectsEndpoint(t *testing.T) {
	r, store := newTestRouter(t)
	ctx := context.Background()

	_, err := store.CreateProject(ctx, "alpha")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/projects", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Projects []string `json:"projects"`
			Total    int      `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"alpha"}, resp.Data.Projects)
	assert.Equal(t, 1, resp.Data.Total)
}

func TestReadFileEndpointNotFound(t *testing.T) {
	r, store := newTestRouter(t)

	_, err := store.CreateProject(context.Background(), "alpha")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/projects/alpha/files/missing.txt", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWriteThenReadFileEndpoint(t *testing.T) {
	r, store := newTestRouter(t)

	_, err := store.CreateProject(context.Background(), "alpha")
	require.NoError(t, err)

	body := strings.NewReader(`{"content": "export default {}"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/v1/projects/alpha/files/src/index.ts", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/projects/alpha/files/src/index.ts", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Content string `json:"content"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "export default {}", resp.Data.Content)
}

func TestDeleteProjectEndpointIdempotent(t *testing.T) {
	r, store := newTestRouter(t)

	_, err := store.CreateProject(context.Background(), "alpha")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/v1/projects/alpha", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}
