package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// MariaStore реализует Store для MariaDB/MySQL.
// Записи хранятся в таблице edit_journal.
type MariaStore struct {
	db *sql.DB
}

// NewMariaStore подключается к базе и создает таблицу, если ее нет.
//
// Параметры:
//
//	dsn - строка подключения (user:pass@tcp(host:port)/dbname); parseTime включается принудительно
func NewMariaStore(ctx context.Context, dsn string) (*MariaStore, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("некорректный DSN MariaDB: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}
	db := sql.OpenDB(connector)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	s := &MariaStore{db: db}
	if err := s.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}
	return s, nil
}

func (s *MariaStore) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS edit_journal (
			id          BIGINT       AUTO_INCREMENT PRIMARY KEY,
			task_id     CHAR(36)     NOT NULL,
			actor       CHAR(36)     NOT NULL,
			kind        VARCHAR(32)  NOT NULL,
			name        VARCHAR(128) NOT NULL,
			world       VARCHAR(64)  NOT NULL,
			bounds      VARCHAR(128) NOT NULL,
			status      VARCHAR(16)  NOT NULL,
			changed     INT          NOT NULL,
			error       TEXT,
			queued_at   DATETIME(3)  NOT NULL,
			duration_ms BIGINT       NOT NULL,
			recorded_at DATETIME(3)  NOT NULL,
			INDEX idx_actor_recorded (actor, recorded_at)
		) ENGINE=InnoDB
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка создания таблицы edit_journal: %w", err)
	}
	return nil
}

// Append пишет пачку записей одной транзакцией
func (s *MariaStore) Append(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edit_journal
			(task_id, actor, kind, name, world, bounds, status, changed, error, queued_at, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		var errText sql.NullString
		if e.Error != "" {
			errText = sql.NullString{String: e.Error, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			e.TaskID.String(), e.Actor.String(), e.Kind, e.Name, e.World, e.Bounds,
			e.Status, e.Changed, errText, e.QueuedAt.UTC(), e.DurationMs, e.RecordedAt.UTC())
		if err != nil {
			return fmt.Errorf("ошибка записи задачи %s: %w", e.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

func (s *MariaStore) Recent(ctx context.Context, actor uuid.UUID, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, actor, kind, name, world, bounds, status, changed, error, queued_at, duration_ms, recorded_at
		FROM edit_journal WHERE actor = ? ORDER BY recorded_at DESC, id DESC LIMIT ?
	`, actor.String(), recentLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала актора %s: %w", actor, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e               Entry
			taskID, actorID string
			errText         sql.NullString
		)
		if err := rows.Scan(&taskID, &actorID, &e.Kind, &e.Name, &e.World, &e.Bounds,
			&e.Status, &e.Changed, &errText, &e.QueuedAt, &e.DurationMs, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("ошибка разбора строки журнала: %w", err)
		}
		if e.TaskID, err = uuid.Parse(taskID); err != nil {
			return nil, fmt.Errorf("некорректный task_id %q: %w", taskID, err)
		}
		if e.Actor, err = uuid.Parse(actorID); err != nil {
			return nil, fmt.Errorf("некорректный actor %q: %w", actorID, err)
		}
		e.Error = errText.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close закрывает соединение с базой данных
func (s *MariaStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
