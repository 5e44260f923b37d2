// Package api статусный HTTP API сервера правок.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/annel0/worldedit/internal/eventbus"
	"github.com/annel0/worldedit/internal/journal"
	"github.com/annel0/worldedit/internal/logging"
	"github.com/annel0/worldedit/internal/middleware"
	"github.com/annel0/worldedit/internal/session"
	"github.com/annel0/worldedit/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// EngineStatus то, что API читает у движка правок
type EngineStatus interface {
	QueueDepth() int
	ActiveCount() int
}

// Config содержит зависимости статусного сервера.
// Nil-зависимости допустимы: соответствующие разделы ответа пропускаются.
type Config struct {
	Addr     string               // адрес, например ":8088"
	Service  string               // namespace HTTP-метрик и имя сервиса в трассировке
	Registry *prometheus.Registry // nil - регистр по умолчанию
	Engine   EngineStatus
	Sessions *session.Registry
	Worlds   *world.Registry
	Journal  journal.Store
	Bus      eventbus.EventBus
}

// StatusServer gin-сервер с маршрутами /health, /api/status, /api/actors и /metrics
type StatusServer struct {
	cfg        Config
	router     *gin.Engine
	metrics    *ServerMetrics
	httpServer *http.Server
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewStatusServer создает сервер и настраивает маршруты
func NewStatusServer(cfg Config) (*StatusServer, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}
	if cfg.Service == "" {
		cfg.Service = "worldedit"
	}

	router := gin.New()        // без стандартного logger
	router.Use(gin.Recovery()) // добавим только recovery
	router.Use(otelgin.Middleware(cfg.Service))
	router.Use(middleware.NewRequestLogger(nil).Handler())

	promMw, err := middleware.NewPrometheusMiddleware(cfg.Service, cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("регистрация HTTP-метрик: %w", err)
	}
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	s := &StatusServer{
		cfg:     cfg,
		router:  router,
		metrics: NewServerMetrics(),
	}
	s.setupRoutes()
	return s, nil
}

// Handler возвращает http.Handler сервера
func (s *StatusServer) Handler() http.Handler { return s.router }

func (s *StatusServer) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/actors", s.handleActors)
		api.GET("/actors/:id", s.handleActor)
		api.GET("/actors/:id/journal", s.handleJournal)
	}
}

// handleHealth проверка состояния сервера
func (s *StatusServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (s *StatusServer) handleStatus(c *gin.Context) {
	data := gin.H{"server": s.metrics.Snapshot()}
	if s.cfg.Engine != nil {
		data["engine"] = gin.H{
			"queued": s.cfg.Engine.QueueDepth(),
			"active": s.cfg.Engine.ActiveCount(),
		}
	}
	if s.cfg.Worlds != nil {
		data["worlds"] = s.cfg.Worlds.Names()
	}
	if s.cfg.Sessions != nil {
		data["actors"] = len(s.cfg.Sessions.Actors())
	}
	if s.cfg.Bus != nil {
		st := s.cfg.Bus.Metrics()
		data["eventbus"] = gin.H{
			"published": st.Published,
			"consumed":  st.Consumed,
			"dropped":   st.Dropped,
		}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Статус сервера", Data: data})
}

func (s *StatusServer) handleActors(c *gin.Context) {
	if s.cfg.Sessions == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Message: "Реестр сессий не подключен"})
		return
	}
	actors := s.cfg.Sessions.Actors()
	out := make([]session.Summary, 0, len(actors))
	for _, id := range actors {
		if sum, ok := s.cfg.Sessions.Describe(id); ok {
			out = append(out, sum)
		}
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список акторов",
		Data:    gin.H{"actors": out, "total": len(out)},
	})
}

func (s *StatusServer) handleActor(c *gin.Context) {
	if s.cfg.Sessions == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Message: "Реестр сессий не подключен"})
		return
	}
	actor, ok := parseActor(c)
	if !ok {
		return
	}
	sum, found := s.cfg.Sessions.Describe(actor)
	if !found {
		c.JSON(http.StatusNotFound, GenericResponse{Message: "Актор не найден"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Сводка актора", Data: sum})
}

func (s *StatusServer) handleJournal(c *gin.Context) {
	if s.cfg.Journal == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Message: "Журнал правок не подключен"})
		return
	}
	actor, ok := parseActor(c)
	if !ok {
		return
	}
	limit := journal.DefaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, GenericResponse{Message: "limit должен быть числом от 1 до 1000"})
			return
		}
		limit = n
	}

	entries, err := s.cfg.Journal.Recent(c.Request.Context(), actor, limit)
	if err != nil {
		logging.Error("api: чтение журнала %s: %v", actor, err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Message: "Внутренняя ошибка сервера"})
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Журнал правок",
		Data:    gin.H{"entries": entries, "total": len(entries)},
	})
}

// parseActor разбирает :id; "console" означает консоль (uuid.Nil)
func parseActor(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Param("id")
	if strings.EqualFold(raw, "console") {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "Некорректный идентификатор актора"})
		return uuid.Nil, false
	}
	return id, true
}

// Start запускает сервер в отдельной горутине
func (s *StatusServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ Ошибка статусного API: %v", err)
		}
	}()
	logging.Info("✅ Статусный API запущен на http://localhost%s", s.cfg.Addr)
	return nil
}

// Stop останавливает сервер, дожидаясь текущих запросов
func (s *StatusServer) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	logging.Info("🛑 Остановка статусного API...")
	return s.httpServer.Shutdown(ctx)
}
