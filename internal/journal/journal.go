// Package journal ведет аудит завершенных правок: кто, что, где и с каким итогом.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Статусы записей журнала
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// DefaultRecentLimit сколько записей отдает Recent при limit <= 0
const DefaultRecentLimit = 20

// ErrClosed хранилище закрыто
var ErrClosed = errors.New("journal store is closed")

// Entry одна запись журнала
type Entry struct {
	TaskID     uuid.UUID `json:"task_id"`
	Actor      uuid.UUID `json:"actor"`
	Kind       string    `json:"kind"`
	Name       string    `json:"name"`
	World      string    `json:"world"`
	Bounds     string    `json:"bounds"`
	Status     string    `json:"status"`
	Changed    int       `json:"changed"`
	Error      string    `json:"error,omitempty"`
	QueuedAt   time.Time `json:"queued_at"`
	DurationMs int64     `json:"duration_ms"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Store хранилище записей.
// Recent возвращает записи актора от новых к старым.
type Store interface {
	Append(ctx context.Context, entries []Entry) error
	Recent(ctx context.Context, actor uuid.UUID, limit int) ([]Entry, error)
	Close() error
}

// Config выбор и настройки бэкенда
type Config struct {
	Backend  string // memory | mongo | maria | redis
	URI      string // MongoDB
	Database string // MongoDB
	DSN      string // MariaDB/MySQL
	Addr     string // Redis
	Password string // Redis
	DB       int    // Redis
	PerActor int    // Лимит записей на актора для memory и redis
	TTL      time.Duration
}

// Open создает хранилище по конфигурации. Пустой Backend означает memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryStore(cfg.PerActor), nil
	case "mongo", "mongodb":
		return NewMongoStore(ctx, MongoConfig{URI: cfg.URI, Database: cfg.Database})
	case "maria", "mariadb", "mysql":
		return NewMariaStore(ctx, cfg.DSN)
	case "redis":
		return NewRedisStore(ctx, &RedisConfig{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PerActor: cfg.PerActor,
			TTL:      cfg.TTL,
		})
	default:
		return nil, fmt.Errorf("неизвестный бэкенд журнала %q", cfg.Backend)
	}
}

func recentLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}
