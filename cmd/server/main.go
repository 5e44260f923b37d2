package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/worldedit/internal/api"
	"github.com/annel0/worldedit/internal/clipboard"
	"github.com/annel0/worldedit/internal/config"
	"github.com/annel0/worldedit/internal/editor"
	"github.com/annel0/worldedit/internal/engine"
	"github.com/annel0/worldedit/internal/eventbus"
	"github.com/annel0/worldedit/internal/history"
	"github.com/annel0/worldedit/internal/journal"
	"github.com/annel0/worldedit/internal/logging"
	"github.com/annel0/worldedit/internal/metrics"
	"github.com/annel0/worldedit/internal/notify"
	"github.com/annel0/worldedit/internal/observability"
	"github.com/annel0/worldedit/internal/pattern"
	"github.com/annel0/worldedit/internal/region"
	"github.com/annel0/worldedit/internal/selection"
	"github.com/annel0/worldedit/internal/session"
	"github.com/annel0/worldedit/internal/storage"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/annel0/worldedit/internal/world/block"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// worldHandle открытый мир и функция его закрытия
type worldHandle struct {
	store world.Store
	close func() error
}

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $WORLDEDIT_CONFIG)")
	demo := flag.Bool("demo", false, "выполнить пробную правку после запуска")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	if cfg.Logging.Dir != "" {
		logging.SetLogDir(cfg.Logging.Dir)
	}
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	if cfg.Logging.Level != "" {
		logging.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	}

	logging.Info("🧱 Запуск сервера правок мира...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТРАССИРОВКА ===
	shutdownTelemetry := func(context.Context) error { return nil }
	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err = observability.InitTelemetry(ctx, observability.Options{
			ServiceName: cfg.Telemetry.GetServiceName(),
			Endpoint:    cfg.Telemetry.GetEndpoint(),
			Insecure:    cfg.Telemetry.Insecure,
		})
		if err != nil {
			log.Fatalf("❌ Ошибка инициализации OpenTelemetry: %v", err)
		}
		logging.Info("🔭 Трассировка OpenTelemetry включена")
	}

	// === МИР ===
	wh, err := openWorld(ctx, &cfg.World)
	if err != nil {
		logging.Error("❌ Ошибка открытия мира: %v", err)
		log.Fatalf("❌ Ошибка открытия мира: %v", err)
	}
	worlds := world.NewRegistry()
	if err := worlds.Register(wh.store); err != nil {
		log.Fatalf("❌ Ошибка регистрации мира: %v", err)
	}

	// === СЕССИИ ===
	notifier := notify.LogNotifier{}
	sessions := session.NewRegistry(
		selection.NewManager(region.QuickHull{}),
		clipboard.NewManager(),
		history.NewManager(cfg.Editor.GetHistorySize(), notifier),
	)

	// === ШИНА СОБЫТИЙ ===
	bus, err := openBus(&cfg.EventBus)
	if err != nil {
		logging.Error("❌ Ошибка подключения к шине событий: %v", err)
		log.Fatalf("❌ Ошибка подключения к шине событий: %v", err)
	}
	publisher := eventbus.NewPublisher(bus, hostname(), 0)
	busLog, err := eventbus.StartLoggingListener(bus)
	if err != nil {
		logging.Warn("Не удалось подписать логгер на шину: %v", err)
	}

	// === ЖУРНАЛ ===
	store, err := journal.Open(ctx, journal.Config{
		Backend:  cfg.Journal.GetBackend(),
		URI:      cfg.Journal.URI,
		Database: cfg.Journal.Database,
		DSN:      cfg.Journal.DSN,
		Addr:     cfg.Journal.Addr,
		Password: cfg.Journal.Password,
		DB:       cfg.Journal.DB,
		PerActor: cfg.Journal.PerActor,
	})
	if err != nil {
		logging.Error("❌ Ошибка открытия журнала правок: %v", err)
		log.Fatalf("❌ Ошибка открытия журнала правок: %v", err)
	}
	recorder := journal.NewRecorder(store, 0, 0)
	logging.Info("📒 Журнал правок: %s", cfg.Journal.GetBackend())

	// === МЕТРИКИ ===
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		eventbus.NewStatsCollector(bus),
	)
	engineMetrics, err := metrics.NewEngineMetrics("worldedit", registry)
	if err != nil {
		log.Fatalf("❌ Ошибка регистрации метрик движка: %v", err)
	}

	// === ДВИЖОК И РЕДАКТОР ===
	eng := engine.New(engine.Config{
		MaxConcurrent: cfg.Editor.GetMaxConcurrent(),
		TickInterval:  cfg.Editor.GetTickInterval(),
	}, sessions.History, notifier, engineMetrics, publisher, recorder)
	eng.Start()

	edit := editor.New(editor.Config{NearMaxRadius: cfg.Editor.GetReplaceNearMaxRadius()},
		eng, sessions, worlds, pattern.NewParser(block.Default()))
	if *demo {
		go runDemo(ctx, edit, wh.store)
	}

	// === HTTP ===
	statusAddr := fmt.Sprintf(":%d", cfg.Server.GetStatusPort())
	statusServer, err := api.NewStatusServer(api.Config{
		Addr:     statusAddr,
		Service:  cfg.Telemetry.GetServiceName(),
		Registry: registry,
		Engine:   eng,
		Sessions: sessions,
		Worlds:   worlds,
		Journal:  store,
		Bus:      bus,
	})
	if err != nil {
		log.Fatalf("❌ Ошибка создания статусного API: %v", err)
	}
	if err := statusServer.Start(); err != nil {
		log.Fatalf("❌ Ошибка запуска статусного API: %v", err)
	}

	metricsServer := startMetricsServer(fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()), registry)

	logging.Info("✅ Сервер правок запущен")
	logging.Info("   🌍 Мир: %s [%d, %d) (%s)", wh.store.Name(), wh.store.MinHeight(), wh.store.MaxHeight(), cfg.World.GetBackend())
	logging.Info("   ⚙️  Параллельных правок: %d, история: %d", cfg.Editor.GetMaxConcurrent(), cfg.Editor.GetHistorySize())
	logging.Info("   ❤️  Health check: http://localhost%s/health", statusAddr)
	logging.Info("   📈 Метрики: http://localhost:%d/metrics", cfg.Server.GetMetricsPort())

	<-ctx.Done()
	logging.Info("📡 Получен сигнал завершения, остановка сервера...")

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if n := eng.Shutdown(); n > 0 {
		logging.Info("🛑 Отменено правок в очереди: %d", n)
	}
	if err := eng.WaitIdle(shutdownCtx); err != nil {
		logging.Warn("Не дождались завершения правок: %v", err)
	}

	if err := statusServer.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки статусного API: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}

	recorder.Close()
	if err := store.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия журнала: %v", err)
	}

	publisher.Close()
	if busLog != nil {
		busLog.Unsubscribe()
	}
	if err := bus.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия шины событий: %v", err)
	}

	if err := wh.close(); err != nil {
		logging.Error("❌ Ошибка закрытия мира: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки трассировки: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
	if err := logging.CloseComponentLoggers(); err != nil {
		logging.Error("❌ Ошибка закрытия логов компонентов: %v", err)
	}
}

// openWorld открывает мир выбранного бэкенда и при необходимости генерирует ландшафт
func openWorld(ctx context.Context, cfg *config.WorldConfig) (*worldHandle, error) {
	minY, maxY := cfg.GetHeights()
	var wh *worldHandle

	switch cfg.GetBackend() {
	case "badger":
		bw, err := storage.OpenBadgerWorld(cfg.GetDataPath(), cfg.GetName(), minY, maxY)
		if err != nil {
			return nil, err
		}
		wh = &worldHandle{store: bw, close: bw.Close}
	default:
		mw := world.NewMemoryWorld(cfg.GetName(), minY, maxY)
		wh = &worldHandle{store: mw, close: func() error { mw.Close(); return nil }}
	}

	if cfg.Generate > 0 {
		r := cfg.Generate
		logging.Info("🏔️  Генерация ландшафта радиусом %d (seed %d)...", r, cfg.Seed)
		gen := world.NewTerrainGenerator(cfg.Seed)
		if err := gen.Generate(ctx, wh.store, vec.Vec3{X: -r, Z: -r}, vec.Vec3{X: r, Z: r}); err != nil {
			_ = wh.close()
			return nil, fmt.Errorf("генерация ландшафта: %w", err)
		}
	}
	return wh, nil
}

// openBus подключается к JetStream, если задан URL, иначе использует шину в памяти
func openBus(cfg *config.EventBusConfig) (eventbus.EventBus, error) {
	url := cfg.GetURL()
	if url == "" {
		logging.Info("📨 Шина событий: в памяти процесса")
		return eventbus.NewMemoryBus(1024), nil
	}
	bus, err := eventbus.NewJetStreamBus(url, cfg.GetStream(), cfg.GetRetention())
	if err != nil {
		return nil, err
	}
	logging.Info("📨 Шина событий: NATS JetStream %s (stream %s)", url, cfg.GetStream())
	return bus, nil
}

// runDemo выкладывает платформу 9x9 от имени временного актора
func runDemo(ctx context.Context, edit *editor.Editor, w world.Store) {
	actor := uuid.New()
	y := min(w.MaxHeight()-1, 100)
	if err := edit.SetShape(actor, "cuboid"); err != nil {
		logging.Warn("Пробная правка: %v", err)
		return
	}
	for i, pos := range []vec.Vec3{{X: -4, Y: y, Z: -4}, {X: 4, Y: y, Z: 4}} {
		if err := edit.SetPoint(actor, i, world.Location{World: w, Pos: pos}); err != nil {
			logging.Warn("Пробная правка: %v", err)
			return
		}
	}
	fut, err := edit.Set(actor, "stone,glass")
	if err != nil {
		logging.Warn("Пробная правка: %v", err)
		return
	}
	cs, err := fut.Wait(ctx)
	if err != nil {
		logging.Warn("Пробная правка не выполнена: %v", err)
		return
	}
	logging.Info("🧪 Пробная правка актора %s: изменено ячеек %d", actor, cs.Len())
}

func startMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ Ошибка сервера метрик: %v", err)
		}
	}()
	return srv
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "worldedit"
}
