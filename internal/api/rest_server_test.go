package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/annel0/terrain-gen/internal/config"
	"github.com/annel0/terrain-gen/internal/logging"
	"github.com/annel0/terrain-gen/internal/metrics"
	"github.com/annel0/terrain-gen/internal/scene"
	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*RestServer, *scene.Scene) {
	t.Helper()
	return newTestServerWithLimit(t, 0)
}

func newTestServerWithLimit(t *testing.T, maxVertices int) (*RestServer, *scene.Scene) {
	t.Helper()
	var buf bytes.Buffer
	logger := logging.NewWriterLogger("api", &buf, logging.ERROR)
	reg := prometheus.NewRegistry()

	sc := scene.New(scene.Options{
		Metrics: metrics.NewGenerationMetrics(reg),
		Logger:  logger,
	})
	base := config.DefaultTerrain().WithSeed(7)
	base.Width, base.Height = 4, 3

	rs := NewRestServer(Config{
		Port:        ":0",
		Scene:       sc,
		Terrain:     base,
		Registry:    reg,
		Logger:      logger,
		MaxVertices: maxVertices,
	})
	return rs, sc
}

func do(rs *RestServer, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	rs.Handler().ServeHTTP(w, req)
	return w
}

type summaryResponse struct {
	Success bool           `json:"success"`
	Data    TerrainSummary `json:"data"`
}

func TestGenerate_DefaultsAndOverrides(t *testing.T) {
	rs, sc := newTestServer(t)

	w := do(rs, http.MethodPost, "/api/terrain/generate", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp summaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, uint32(7), resp.Data.Seed)
	assert.Equal(t, 36, resp.Data.Vertices)
	assert.Equal(t, 12, resp.Data.Triangles)
	assert.Equal(t, config.ColorConfig{G: 1, A: 1}, resp.Data.Color)

	w = do(rs, http.MethodPost, "/api/terrain/generate",
		`{"seed": 99, "width": 3, "height": 3, "color": {"r": 1, "g": 0, "b": 0, "a": 1}}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint32(99), resp.Data.Seed)
	assert.Equal(t, 8*3, resp.Data.Vertices)
	assert.Equal(t, uint64(2), resp.Data.Generation)

	current, ok := sc.Current()
	require.True(t, ok)
	assert.Equal(t, resp.Data.ID, current.ID)
	assert.Equal(t, scene.Color{R: 1, A: 1}, current.Color)
}

func TestGenerate_Errors(t *testing.T) {
	rs, sc := newTestServer(t)

	w := do(rs, http.MethodPost, "/api/terrain/generate", `{"width": 1}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(rs, http.MethodPost, "/api/terrain/generate", `{"width": `, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, ok := sc.Current()
	assert.False(t, ok)
}

func TestGenerate_RejectsGridAboveLimit(t *testing.T) {
	rs, sc := newTestServer(t)

	// без предела такой запрос выделил бы 2^32 вершин
	w := do(rs, http.MethodPost, "/api/terrain/generate", `{"width": 65536, "height": 65536}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(rs, http.MethodPost, "/api/terrain/generate", `{"width": 4097, "height": 4096}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, ok := sc.Current()
	assert.False(t, ok)
	assert.Zero(t, sc.Generation())
}

func TestGenerate_ConfiguredLimit(t *testing.T) {
	rs, sc := newTestServerWithLimit(t, 100)

	w := do(rs, http.MethodPost, "/api/terrain/generate", `{"width": 11, "height": 10}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "width=11")

	w = do(rs, http.MethodPost, "/api/terrain/generate", `{"width": 10, "height": 10}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, uint64(1), sc.Generation())
}

func TestGetTerrain(t *testing.T) {
	rs, _ := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, do(rs, http.MethodGet, "/api/terrain", "", nil).Code)

	require.Equal(t, http.StatusCreated, do(rs, http.MethodPost, "/api/terrain/generate", "", nil).Code)

	w := do(rs, http.MethodGet, "/api/terrain", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp summaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Data.Width)
	assert.Equal(t, 3, resp.Data.Height)
	assert.LessOrEqual(t, resp.Data.BoundsMin[0], resp.Data.BoundsMax[0])
}

func TestGetMesh_PlainAndZstd(t *testing.T) {
	rs, sc := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, do(rs, http.MethodGet, "/api/terrain/mesh", "", nil).Code)
	require.Equal(t, http.StatusCreated, do(rs, http.MethodPost, "/api/terrain/generate", "", nil).Code)
	current, _ := sc.Current()

	w := do(rs, http.MethodGet, "/api/terrain/mesh", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, current.ID, w.Header().Get("X-Terrain-ID"))
	assert.Empty(t, w.Header().Get("Content-Encoding"))

	plain, err := DecodeMeshBuffers(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, current.Mesh.Positions, plain.Positions)
	assert.Equal(t, current.Mesh.Normals, plain.Normals)
	assert.Equal(t, current.Mesh.Indices, plain.Indices)
	assert.Equal(t, current.Color, plain.Color)

	w = do(rs, http.MethodGet, "/api/terrain/mesh", "", map[string]string{"Accept-Encoding": "gzip, zstd"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "zstd", w.Header().Get("Content-Encoding"))

	dec, err := zstd.NewReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer dec.Close()
	compressed, err := DecodeMeshBuffers(dec)
	require.NoError(t, err)
	assert.Equal(t, plain, compressed)
}

func TestDeleteTerrain(t *testing.T) {
	rs, sc := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, do(rs, http.MethodDelete, "/api/terrain", "", nil).Code)
	require.Equal(t, http.StatusCreated, do(rs, http.MethodPost, "/api/terrain/generate", "", nil).Code)

	assert.Equal(t, http.StatusNoContent, do(rs, http.MethodDelete, "/api/terrain", "", nil).Code)
	_, ok := sc.Current()
	assert.False(t, ok)
}

func TestHealthStatsMetrics(t *testing.T) {
	rs, _ := newTestServer(t)

	w := do(rs, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = do(rs, http.MethodGet, "/api/stats", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "uptime")

	w = do(rs, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "terrain_api")
}

func TestCORSPreflight(t *testing.T) {
	rs, _ := newTestServer(t)

	w := do(rs, http.MethodOptions, "/api/terrain", "", nil)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestDecodeMeshBuffers_BadMagic(t *testing.T) {
	_, err := DecodeMeshBuffers(strings.NewReader("NOPE\x00\x00\x00\x00\x00\x00\x00\x00"))
	assert.ErrorIs(t, err, ErrBadMeshData)

	_, err = DecodeMeshBuffers(strings.NewReader("TG"))
	assert.ErrorIs(t, err, ErrBadMeshData)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", formatUptime(5e9))
	assert.Equal(t, "1м 5с", formatUptime(65e9))
}
