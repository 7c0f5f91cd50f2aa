package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/terrain-gen/internal/config"
	"github.com/annel0/terrain-gen/internal/eventbus"
	"github.com/annel0/terrain-gen/internal/logging"
	"github.com/annel0/terrain-gen/internal/mesh"
	"github.com/annel0/terrain-gen/internal/metrics"
	"github.com/annel0/terrain-gen/internal/observability"
	"github.com/annel0/terrain-gen/internal/terrain"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// eventSource имя источника событий сцены
const eventSource = "scene"

// ErrNoTerrain на сцене нет рельефа
var ErrNoTerrain = errors.New("scene: рельеф не сгенерирован")

// Color — цвет материала, RGBA в диапазоне 0..1
type Color struct {
	R, G, B, A float32
}

// ColorGreen цвет рельефа по умолчанию
var ColorGreen = Color{R: 0, G: 1, B: 0, A: 1}

// ColorFromConfig переводит цвет из конфигурации
func ColorFromConfig(c config.ColorConfig) Color {
	return Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Terrain — готовый к отрисовке рельеф: фасетный меш и цвет материала
type Terrain struct {
	ID         string
	Generation uint64
	Seed       uint32
	Width      int
	Height     int
	Color      Color
	Mesh       *mesh.Mesh
	CreatedAt  time.Time
	Elapsed    time.Duration
}

// Options зависимости сцены; все поля необязательны
type Options struct {
	Bus     eventbus.EventBus
	Metrics *metrics.GenerationMetrics
	Logger  *logging.Logger
}

// Scene хранит не более одного живого рельефа. Regenerate сериализован:
// второй триггер ждёт завершения первого. Current и Generation не ждут
// идущую генерацию.
type Scene struct {
	// genMu сериализует Regenerate и Clear
	genMu sync.Mutex

	mu         sync.Mutex // current, generation
	current    *Terrain
	generation uint64

	bus     eventbus.EventBus
	metrics *metrics.GenerationMetrics
	logger  *logging.Logger
}

// New создаёт пустую сцену
func New(opts Options) *Scene {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetSceneLogger()
	}
	return &Scene{bus: opts.Bus, metrics: opts.Metrics, logger: logger}
}

// Regenerate строит новый рельеф по конфигурации и заменяет им текущий.
// Выражение и сэмплер создаются заново на каждый вызов. При ошибке
// текущий рельеф остаётся на месте.
func (s *Scene) Regenerate(ctx context.Context, cfg config.TerrainConfig) (*Terrain, error) {
	s.genMu.Lock()
	defer s.genMu.Unlock()

	ctx, span := observability.Tracer().Start(ctx, "scene.Regenerate")
	defer span.End()

	seed := cfg.ResolveSeed()
	span.SetAttributes(
		attribute.Int("terrain.width", cfg.Width),
		attribute.Int("terrain.height", cfg.Height),
		attribute.Int64("terrain.seed", int64(seed)),
	)
	logging.LogGridRequest(cfg.Width, cfg.Height, seed)

	start := time.Now()
	m, fields, err := build(cfg, seed)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveFailure(elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("Генерация %dx%d seed=%d не удалась: %v", cfg.Width, cfg.Height, seed, err)
		s.publish(ctx, eventbus.EventTerrainFailed, eventbus.TerrainEvent{
			Generation: s.Generation(),
			Seed:       seed,
			Width:      cfg.Width,
			Height:     cfg.Height,
			Error:      err.Error(),
		})
		return nil, err
	}

	color := ColorFromConfig(cfg.Color)
	if color == (Color{}) {
		color = ColorGreen
	}

	next := &Terrain{
		ID:        uuid.NewString(),
		Seed:      seed,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Color:     color,
		Mesh:      m,
		CreatedAt: time.Now().UTC(),
		Elapsed:   elapsed,
	}

	s.mu.Lock()
	s.generation++
	next.Generation = s.generation
	previous := s.current
	s.current = next
	s.mu.Unlock()

	s.metrics.ObserveSuccess(elapsed, m.VertexCount(), m.TriangleCount(), fields)
	span.SetAttributes(
		attribute.String("terrain.id", next.ID),
		attribute.Int("terrain.vertices", m.VertexCount()),
		attribute.Int("terrain.triangles", m.TriangleCount()),
	)
	logging.LogMeshBuilt(next.ID, m.VertexCount(), m.TriangleCount(), elapsed)

	if previous != nil {
		s.publish(ctx, eventbus.EventTerrainDiscarded, previous.event())
	}
	s.publish(ctx, eventbus.EventTerrainGenerated, next.event())

	return next, nil
}

func build(cfg config.TerrainConfig, seed uint32) (*mesh.Mesh, int, error) {
	expr, err := cfg.BuildExpression(seed)
	if err != nil {
		return nil, 0, fmt.Errorf("выражение рельефа: %w", err)
	}
	sampler, err := terrain.NewSampler(expr)
	if err != nil {
		return nil, 0, fmt.Errorf("сэмплер рельефа: %w", err)
	}
	m, err := mesh.Build(cfg.Width, cfg.Height, sampler)
	if err != nil {
		return nil, 0, fmt.Errorf("меш рельефа: %w", err)
	}
	return m, expr.FieldCount(), nil
}

// Current возвращает текущий рельеф
func (s *Scene) Current() (*Terrain, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != nil
}

// Generation — число успешных генераций с момента создания сцены
func (s *Scene) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Clear удаляет текущий рельеф
func (s *Scene) Clear(ctx context.Context) error {
	s.genMu.Lock()
	defer s.genMu.Unlock()

	s.mu.Lock()
	previous := s.current
	s.current = nil
	s.mu.Unlock()

	if previous == nil {
		return ErrNoTerrain
	}
	s.metrics.Reset()
	s.publish(ctx, eventbus.EventTerrainDiscarded, previous.event())
	return nil
}

func (s *Scene) publish(ctx context.Context, eventType string, te eventbus.TerrainEvent) {
	if s.bus == nil {
		return
	}
	ev, err := eventbus.NewTerrainEnvelope(eventSource, eventType, te)
	if err == nil {
		err = s.bus.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn("Не удалось опубликовать %s: %v", eventType, err)
	}
}

func (t *Terrain) event() eventbus.TerrainEvent {
	return eventbus.TerrainEvent{
		TerrainID:  t.ID,
		Generation: t.Generation,
		Seed:       t.Seed,
		Width:      t.Width,
		Height:     t.Height,
		Vertices:   t.Mesh.VertexCount(),
		Triangles:  t.Mesh.TriangleCount(),
		DurationMS: float64(t.Elapsed.Microseconds()) / 1000,
	}
}
