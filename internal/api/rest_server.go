package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/annel0/terrain-gen/internal/config"
	"github.com/annel0/terrain-gen/internal/logging"
	"github.com/annel0/terrain-gen/internal/mesh"
	"github.com/annel0/terrain-gen/internal/middleware"
	"github.com/annel0/terrain-gen/internal/scene"
	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer представляет REST API сервер сцены рельефа
type RestServer struct {
	router     *gin.Engine
	httpServer *http.Server
	scene       *scene.Scene
	terrain     config.TerrainConfig
	maxVertices uint64
	port        string
	metrics    *ServerMetrics
	logger     *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port    string               // адрес для запуска сервера
	Scene   *scene.Scene         // сцена с текущим рельефом
	Terrain config.TerrainConfig // базовая конфигурация генерации
	// Registry для HTTP метрик и /metrics; nil — отдельный реестр
	Registry *prometheus.Registry
	Logger   *logging.Logger
	// MaxVertices предел width*height для генерации; 0 — config.DefaultMaxVertices
	MaxVertices int
}

// NewRestServer создает новый REST API сервер
func NewRestServer(cfg Config) *RestServer {
	if cfg.Port == "" {
		cfg.Port = ":8088"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetAPILogger()
	}
	if cfg.MaxVertices <= 0 {
		cfg.MaxVertices = config.DefaultMaxVertices
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	loggerMw := middleware.NewRequestLogger(cfg.Logger)
	router.Use(loggerMw.Handler())

	router.Use(otelgin.Middleware("terrain_api"))

	promMw := middleware.NewPrometheusMiddleware("terrain_api", cfg.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, cfg.Registry)

	server := &RestServer{
		router: router,
		httpServer: &http.Server{
			Addr:              cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		scene:       cfg.Scene,
		terrain:     cfg.Terrain,
		maxVertices: uint64(cfg.MaxVertices),
		port:        cfg.Port,
		metrics:     NewServerMetrics(),
		logger:      cfg.Logger,
	}

	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.Use(corsMiddleware())

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)

		terrain := api.Group("/terrain")
		terrain.POST("/generate", rs.handleGenerate)
		terrain.GET("", rs.handleGetTerrain)
		terrain.GET("/mesh", rs.handleGetMesh)
		terrain.DELETE("", rs.handleDeleteTerrain)
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// GenerateRequest переопределения базовой конфигурации; все поля необязательны
type GenerateRequest struct {
	Seed   *uint32             `json:"seed"`
	Width  *int                `json:"width"`
	Height *int                `json:"height"`
	Color  *config.ColorConfig `json:"color"`
}

// apply возвращает копию base с переопределениями запроса
func (r GenerateRequest) apply(base config.TerrainConfig) config.TerrainConfig {
	if r.Seed != nil {
		base = base.WithSeed(*r.Seed)
	}
	if r.Width != nil {
		base.Width = *r.Width
	}
	if r.Height != nil {
		base.Height = *r.Height
	}
	if r.Color != nil {
		base.Color = *r.Color
	}
	return base
}

// TerrainSummary описание рельефа без буферов
type TerrainSummary struct {
	ID         string             `json:"id"`
	Generation uint64             `json:"generation"`
	Seed       uint32             `json:"seed"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Vertices   int                `json:"vertices"`
	Triangles  int                `json:"triangles"`
	Color      config.ColorConfig `json:"color"`
	BoundsMin  mgl32.Vec3         `json:"bounds_min"`
	BoundsMax  mgl32.Vec3         `json:"bounds_max"`
	CreatedAt  time.Time          `json:"created_at"`
	ElapsedMS  float64            `json:"elapsed_ms"`
}

// Summarize собирает описание рельефа
func Summarize(t *scene.Terrain) TerrainSummary {
	lo, hi := t.Mesh.Bounds()
	return TerrainSummary{
		ID:         t.ID,
		Generation: t.Generation,
		Seed:       t.Seed,
		Width:      t.Width,
		Height:     t.Height,
		Vertices:   t.Mesh.VertexCount(),
		Triangles:  t.Mesh.TriangleCount(),
		Color:      config.ColorConfig{R: t.Color.R, G: t.Color.G, B: t.Color.B, A: t.Color.A},
		BoundsMin:  lo,
		BoundsMax:  hi,
		CreatedAt:  t.CreatedAt,
		ElapsedMS:  float64(t.Elapsed.Microseconds()) / 1000,
	}
}

// handleGenerate генерирует новый рельеф и заменяет текущий
func (rs *RestServer) handleGenerate(c *gin.Context) {
	var req GenerateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: "Неверный формат запроса",
			})
			return
		}
	}

	tc := req.apply(rs.terrain)
	if err := mesh.CheckGrid(tc.Width, tc.Height, rs.maxVertices); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("Недопустимый размер сетки: %v", err),
		})
		return
	}

	t, err := rs.scene.Regenerate(c.Request.Context(), tc)
	if err != nil {
		c.JSON(generateErrorStatus(err), GenericResponse{
			Success: false,
			Message: fmt.Sprintf("Генерация не удалась: %v", err),
		})
		return
	}

	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Рельеф сгенерирован",
		Data:    Summarize(t),
	})
}

// generateErrorStatus — ошибки входных данных дают 400, остальные 500
func generateErrorStatus(err error) int {
	switch {
	case errors.Is(err, mesh.ErrInvalidDimensions),
		errors.Is(err, mesh.ErrGridTooLarge),
		errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleGetTerrain возвращает описание текущего рельефа
func (rs *RestServer) handleGetTerrain(c *gin.Context) {
	t, ok := rs.scene.Current()
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: "Рельеф не сгенерирован",
		})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Текущий рельеф",
		Data:    Summarize(t),
	})
}

// handleGetMesh отдаёт буферы меша; при Accept-Encoding: zstd сжимает поток
func (rs *RestServer) handleGetMesh(c *gin.Context) {
	t, ok := rs.scene.Current()
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: "Рельеф не сгенерирован",
		})
		return
	}

	c.Header("Content-Type", "application/octet-stream")
	c.Header("X-Terrain-ID", t.ID)

	if !strings.Contains(c.GetHeader("Accept-Encoding"), "zstd") {
		c.Status(http.StatusOK)
		if err := EncodeTerrain(c.Writer, t); err != nil {
			rs.logger.Error("Ошибка отправки меша %s: %v", t.ID, err)
		}
		return
	}

	c.Header("Content-Encoding", "zstd")
	c.Status(http.StatusOK)
	enc, err := zstd.NewWriter(c.Writer)
	if err != nil {
		rs.logger.Error("Ошибка создания zstd: %v", err)
		return
	}
	if err := EncodeTerrain(enc, t); err != nil {
		rs.logger.Error("Ошибка отправки меша %s: %v", t.ID, err)
	}
	if err := enc.Close(); err != nil {
		rs.logger.Error("Ошибка завершения zstd потока: %v", err)
	}
}

// handleDeleteTerrain убирает рельеф со сцены
func (rs *RestServer) handleDeleteTerrain(c *gin.Context) {
	if err := rs.scene.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: "Рельеф не сгенерирован",
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleStats обрабатывает запрос статистики сервера
func (rs *RestServer) handleStats(c *gin.Context) {
	cpuUsage, err := rs.metrics.GetCPUUsage()
	if err != nil {
		cpuUsage = -1
	}
	rss, err := rs.metrics.GetRSS()
	if err != nil {
		rss = -1
	}

	stats := map[string]interface{}{
		"uptime":       rs.metrics.GetUptime(),
		"memory_mb":    rs.metrics.GetMemoryUsage(),
		"rss_mb":       rss,
		"cpu_percent":  cpuUsage,
		"memory_stats": rs.metrics.GetDetailedMemoryStats(),
		"generation":   rs.scene.Generation(),
	}
	if t, ok := rs.scene.Current(); ok {
		stats["terrain_id"] = t.ID
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика сервера",
		Data:    stats,
	})
}

// handleHealth проверка здоровья сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// Start запускает REST сервер; блокирует до остановки
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API сервер запущен на %s", rs.port)

	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop останавливает REST сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.httpServer.Shutdown(ctx)
}
