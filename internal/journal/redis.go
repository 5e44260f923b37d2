package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/annel0/worldedit/internal/logging"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс ключей списков
	PerActor  int           // Длина списка актора
	TTL       time.Duration // Время жизни списка после последней записи
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "worldedit:journal:",
		PerActor:  DefaultPerActor,
		TTL:       24 * time.Hour,
	}
}

// RedisStore хранит последние записи каждого актора в списке Redis (новые слева)
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	perActor  int
	ttl       time.Duration
}

// NewRedisStore создает хранилище и проверяет подключение. Пустые поля берутся из DefaultRedisConfig.
func NewRedisStore(ctx context.Context, cfg *RedisConfig) (*RedisStore, error) {
	def := DefaultRedisConfig()
	if cfg == nil {
		cfg = def
	}
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}
	if cfg.PerActor <= 0 {
		cfg.PerActor = def.PerActor
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("🔴 Журнал правок подключен к Redis %s", cfg.Addr)
	return &RedisStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		perActor:  cfg.PerActor,
		ttl:       cfg.TTL,
	}, nil
}

func (s *RedisStore) key(actor uuid.UUID) string {
	return s.keyPrefix + actor.String()
}

// Append пишет пачку одним пайплайном и обрезает списки до perActor
func (s *RedisStore) Append(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	touched := make(map[uuid.UUID]struct{})
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			logging.Warn("journal: запись задачи %s не сериализована: %v", e.TaskID, err)
			continue
		}
		pipe.LPush(ctx, s.key(e.Actor), data)
		touched[e.Actor] = struct{}{}
	}
	for actor := range touched {
		pipe.LTrim(ctx, s.key(actor), 0, int64(s.perActor-1))
		pipe.Expire(ctx, s.key(actor), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, actor uuid.UUID, limit int) ([]Entry, error) {
	items, err := s.client.LRange(ctx, s.key(actor), 0, int64(recentLimit(limit)-1)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	out := make([]Entry, 0, len(items))
	for _, item := range items {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			logging.Warn("journal: битая запись в %s: %v", s.key(actor), err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Close закрывает соединение с Redis
func (s *RedisStore) Close() error {
	return s.client.Close()
}
