package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/terrain-gen/internal/api"
	"github.com/annel0/terrain-gen/internal/config"
	"github.com/annel0/terrain-gen/internal/eventbus"
	"github.com/annel0/terrain-gen/internal/logging"
	"github.com/annel0/terrain-gen/internal/metrics"
	"github.com/annel0/terrain-gen/internal/observability"
	"github.com/annel0/terrain-gen/internal/scene"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (или ENV TERRAIN_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// === ЛОГИРОВАНИЕ ===
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if cfg.Logging.File {
		if err := logging.InitDefaultLogger("terrain-server"); err != nil {
			log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
		}
	}
	logging.SetDefaultLevel(level)
	logging.GetLoggerManager().SetFileless(!cfg.Logging.File)
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🏔️ Запуск сервера генерации рельефа...")

	ctx := context.Background()

	// === ТРАССИРОВКА ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		os.Exit(1)
	}

	// === МЕТРИКИ ===
	reg := metrics.NewRegistry()
	genMetrics := metrics.NewGenerationMetrics(reg)

	// === ШИНА СОБЫТИЙ ===
	bus, err := eventbus.New(cfg.EventBus.URL, cfg.EventBus.Stream, cfg.EventBus.Retention, cfg.EventBus.Buffer)
	if err != nil {
		logging.Error("❌ Ошибка подключения к шине событий: %v", err)
		os.Exit(1)
	}
	if cfg.EventBus.URL != "" {
		logging.Info("📨 JetStream шина: %s (stream %s)", cfg.EventBus.URL, cfg.EventBus.Stream)
	} else {
		logging.Info("📨 In-memory шина событий (буфер %d)", cfg.EventBus.Buffer)
	}
	reg.MustRegister(eventbus.NewStatsCollector(bus))

	listener, err := eventbus.StartLoggingListener(bus)
	if err != nil {
		logging.Warn("Не удалось запустить логирование событий: %v", err)
	}

	// === СЦЕНА ===
	sc := scene.New(scene.Options{
		Bus:     bus,
		Metrics: genMetrics,
		Logger:  logging.GetSceneLogger(),
	})

	if cfg.Server.GenerateOnStart {
		if t, err := sc.Regenerate(ctx, cfg.Terrain); err != nil {
			logging.Error("❌ Стартовая генерация не удалась: %v", err)
		} else {
			logging.Info("✅ Стартовый рельеф %s: %d вершин, seed=%d", t.ID, t.Mesh.VertexCount(), t.Seed)
		}
	}

	// === REST API ===
	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	restServer := api.NewRestServer(api.Config{
		Port:        restPort,
		Scene:       sc,
		Terrain:     cfg.Terrain,
		Registry:    reg,
		Logger:      logging.GetAPILogger(),
		MaxVertices: cfg.Server.GetMaxVertices(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- restServer.Start()
	}()

	metricsServer := metrics.StartHTTP(fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()), reg)

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)
	logging.Info("💡 Примеры использования REST API:")
	logging.Info("   curl -X POST http://localhost%s/api/terrain/generate -d '{\"seed\":42}'", restPort)
	logging.Info("   curl -H 'Accept-Encoding: zstd' http://localhost%s/api/terrain/mesh -o terrain.tgm.zst", restPort)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
	case err := <-errCh:
		if err != nil {
			logging.Error("❌ REST API остановлен с ошибкой: %v", err)
		}
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logging.Debug("Остановка REST API...")
	if err := restServer.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}

	if listener != nil {
		listener.Unsubscribe()
	}
	if err := bus.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия шины событий: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки OpenTelemetry: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}
