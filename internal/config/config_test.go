package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/annel0/terrain-gen/internal/noise"
	"github.com/annel0/terrain-gen/internal/terrain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
terrain:
  width: 64
  height: 32
  seed: 1234
  color: {r: 0.2, g: 0.6, b: 0.1, a: 1}
  expression:
    field: {amplitude: 1, output_offset: 1}
    operations:
      - op: add_scalar
        value: 2
      - op: mul_scalar
        value: 3
      - op: add_field
        expression:
          field: {kind: opensimplex, amplitude: 0, output_offset: 4}
          operations:
            - op: identity
server:
  rest_port: 9000
  generate_on_start: true
logging:
  level: debug
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 64, cfg.Terrain.Width)
	assert.Equal(t, 32, cfg.Terrain.Height)
	require.NotNil(t, cfg.Terrain.Seed)
	assert.Equal(t, uint32(1234), *cfg.Terrain.Seed)
	assert.Equal(t, ColorConfig{R: 0.2, G: 0.6, B: 0.1, A: 1}, cfg.Terrain.Color)
	assert.Equal(t, 9000, cfg.Server.GetRESTPort())
	assert.True(t, cfg.Server.GenerateOnStart)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// незаданные секции берутся по умолчанию
	assert.Equal(t, "TERRAIN", cfg.EventBus.Stream)
	assert.Equal(t, "terrain-gen", cfg.Telemetry.ServiceName)

	require.Len(t, cfg.Terrain.Expression.Operations, 3)
	assert.Equal(t, OpAddField, cfg.Terrain.Expression.Operations[2].Op)
}

func TestParse_DefaultsWhenEmpty(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  rest_port: 1\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultWidth, cfg.Terrain.Width)
	assert.Equal(t, DefaultHeight, cfg.Terrain.Height)
	assert.Nil(t, cfg.Terrain.Seed)
	assert.Equal(t, DefaultExpression(), cfg.Terrain.Expression)
}

func TestBuildExpression_OrderPreserved(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	expr, err := cfg.Terrain.BuildExpression(cfg.Terrain.ResolveSeed())
	require.NoError(t, err)

	// base = 0*noise + 1 + 0 → (1+2)*3 + 4
	base := expr.Base().Sample(5, 5)
	assert.InDelta(t, (base+2)*3+4, expr.Sample(5, 5), 1e-12)
	assert.Equal(t, 2, expr.Depth())
	assert.Equal(t, 2, expr.FieldCount())
}

func TestBuildExpression_DefaultMatchesLayers(t *testing.T) {
	tc := DefaultTerrain()
	expr, err := tc.BuildExpression(77)
	require.NoError(t, err)

	amp, freq := DefaultAmplitude, DefaultFrequency
	f0, _ := noise.New(noise.KindOpenSimplex, 77, amp, freq, freq, 0, 0, 0)
	f1, _ := noise.New(noise.KindOpenSimplex, 77, amp/10, freq*5, freq*5, 0, 0, 0)
	f2, _ := noise.New(noise.KindOpenSimplex, 77, amp/100, freq*50, freq*50, 0, 0, 0)
	manual := terrain.NewExpression(f0,
		terrain.AddField{Expr: terrain.NewExpression(f1)},
		terrain.AddField{Expr: terrain.NewExpression(f2)},
	)

	for i := 0; i < 50; i++ {
		x, y := float64(i*13), float64(i*29)
		assert.Equal(t, manual.Sample(x, y), expr.Sample(x, y))
	}
	assert.Equal(t, 3, expr.FieldCount())
}

func TestBuildExpression_FieldSeedOverride(t *testing.T) {
	own := uint32(5)
	tc := TerrainConfig{Expression: &ExpressionConfig{Field: FieldConfig{Seed: &own, Amplitude: 1, FreqX: 1, FreqY: 1}}}

	expr, err := tc.BuildExpression(999)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), expr.Base().Seed())
}

func TestValidate_Errors(t *testing.T) {
	cases := map[string]*ExpressionConfig{
		"unknown op":    {Operations: []OperationConfig{{Op: "pow"}}},
		"unknown kind":  {Field: FieldConfig{Kind: "worley"}},
		"missing child": {Operations: []OperationConfig{{Op: OpMulField}}},
		"scalar child":  {Operations: []OperationConfig{{Op: OpAddScalar, Expression: &ExpressionConfig{}}}},
		"nested bad": {Operations: []OperationConfig{{Op: OpAddField, Expression: &ExpressionConfig{
			Operations: []OperationConfig{{Op: "nope"}},
		}}}},
	}

	for name, expr := range cases {
		t.Run(name, func(t *testing.T) {
			err := TerrainConfig{Expression: expr}.Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	assert.ErrorIs(t, TerrainConfig{}.Validate(), ErrInvalidConfig)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terrain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0644))

	t.Setenv("TERRAIN_SEED", "42")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Terrain.Seed)
	assert.Equal(t, uint32(42), *cfg.Terrain.Seed)

	t.Setenv("TERRAIN_SEED", "not-a-number")
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_DefaultWithoutPath(t *testing.T) {
	t.Setenv("TERRAIN_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, cfg.Terrain.Width)
}

func TestPortsFallback(t *testing.T) {
	t.Setenv("TERRAIN_METRICS_PORT", "3333")
	s := ServerConfig{}
	assert.Equal(t, 8088, s.GetRESTPort())
	assert.Equal(t, 3333, s.GetMetricsPort())
}

func TestMaxVerticesFallback(t *testing.T) {
	t.Setenv("TERRAIN_MAX_VERTICES", "")
	assert.Equal(t, DefaultMaxVertices, (&ServerConfig{}).GetMaxVertices())
	assert.Equal(t, 500, (&ServerConfig{MaxVertices: 500}).GetMaxVertices())

	t.Setenv("TERRAIN_MAX_VERTICES", "1000")
	assert.Equal(t, 1000, (&ServerConfig{}).GetMaxVertices())

	cfg, err := Parse([]byte("server:\n  max_vertices: -1\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestResolveSeed(t *testing.T) {
	tc := DefaultTerrain().WithSeed(9)
	assert.Equal(t, uint32(9), tc.ResolveSeed())
	assert.Nil(t, DefaultTerrain().Seed)
}
