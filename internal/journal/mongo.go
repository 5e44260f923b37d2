package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig настройки подключения к MongoDB
type MongoConfig struct {
	URI        string // mongodb://localhost:27017
	Database   string // worldedit
	Collection string // edit_journal
}

// MongoStore реализует Store на MongoDB
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

type mongoEntry struct {
	TaskID     string    `bson:"task_id"`
	Actor      string    `bson:"actor"`
	Kind       string    `bson:"kind"`
	Name       string    `bson:"name"`
	World      string    `bson:"world"`
	Bounds     string    `bson:"bounds"`
	Status     string    `bson:"status"`
	Changed    int       `bson:"changed"`
	Error      string    `bson:"error,omitempty"`
	QueuedAt   time.Time `bson:"queued_at"`
	DurationMs int64     `bson:"duration_ms"`
	RecordedAt time.Time `bson:"recorded_at"`
}

// NewMongoStore подключается к MongoDB и создает индексы
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "worldedit"
	}
	if cfg.Collection == "" {
		cfg.Collection = "edit_journal"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB не отвечает: %w", err)
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	actorIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "actor", Value: 1}, {Key: "recorded_at", Value: -1}},
		Options: options.Index().SetName("actor_recorded"),
	}
	taskIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "task_id", Value: 1}},
		Options: options.Index().SetName("task_id"),
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{actorIdx, taskIdx}); err != nil {
		return fmt.Errorf("не удалось создать индексы журнала: %w", err)
	}
	return nil
}

func (s *MongoStore) Append(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.ctxTimeout)
	defer cancel()

	docs := make([]interface{}, len(entries))
	for i, e := range entries {
		docs[i] = mongoEntry{
			TaskID:     e.TaskID.String(),
			Actor:      e.Actor.String(),
			Kind:       e.Kind,
			Name:       e.Name,
			World:      e.World,
			Bounds:     e.Bounds,
			Status:     e.Status,
			Changed:    e.Changed,
			Error:      e.Error,
			QueuedAt:   e.QueuedAt.UTC(),
			DurationMs: e.DurationMs,
			RecordedAt: e.RecordedAt.UTC(),
		}
	}
	if _, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false)); err != nil {
		return fmt.Errorf("ошибка записи %d записей журнала: %w", len(entries), err)
	}
	return nil
}

func (s *MongoStore) Recent(ctx context.Context, actor uuid.UUID, limit int) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.ctxTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "recorded_at", Value: -1}}).
		SetLimit(int64(recentLimit(limit)))
	cur, err := s.collection.Find(ctx, bson.M{"actor": actor.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала актора %s: %w", actor, err)
	}
	var docs []mongoEntry
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("ошибка разбора журнала: %w", err)
	}

	out := make([]Entry, 0, len(docs))
	for _, d := range docs {
		taskID, err := uuid.Parse(d.TaskID)
		if err != nil {
			return nil, fmt.Errorf("некорректный task_id %q: %w", d.TaskID, err)
		}
		out = append(out, Entry{
			TaskID:     taskID,
			Actor:      actor,
			Kind:       d.Kind,
			Name:       d.Name,
			World:      d.World,
			Bounds:     d.Bounds,
			Status:     d.Status,
			Changed:    d.Changed,
			Error:      d.Error,
			QueuedAt:   d.QueuedAt,
			DurationMs: d.DurationMs,
			RecordedAt: d.RecordedAt,
		})
	}
	return out, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.ctxTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
