// Package notify доставляет акторам пользовательские уведомления.
package notify

import (
	"fmt"
	"sync"

	"github.com/annel0/worldedit/internal/logging"
	"github.com/google/uuid"
)

// Level важность уведомления
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notifier получатель уведомлений. Реализации должны быть потокобезопасны.
type Notifier interface {
	Notify(actor uuid.UUID, level Level, msg string)
}

// Notifyf форматирует и отправляет уведомление; nil-получатель допустим
func Notifyf(n Notifier, actor uuid.UUID, level Level, format string, args ...interface{}) {
	if n == nil || actor == uuid.Nil {
		return
	}
	n.Notify(actor, level, fmt.Sprintf(format, args...))
}

// LogNotifier пишет уведомления в лог процесса
type LogNotifier struct{}

func (LogNotifier) Notify(actor uuid.UUID, level Level, msg string) {
	switch level {
	case LevelError:
		logging.Error("[notify] %s: %s", actor, msg)
	case LevelWarn:
		logging.Warn("[notify] %s: %s", actor, msg)
	default:
		logging.Info("[notify] %s: %s", actor, msg)
	}
}

// Message запись Recorder
type Message struct {
	Actor uuid.UUID
	Level Level
	Text  string
}

// Recorder хранит последние уведомления каждого актора в памяти
type Recorder struct {
	mu    sync.Mutex
	limit int
	byID  map[uuid.UUID][]Message
}

// NewRecorder создает Recorder, хранящий до limit сообщений на актора
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 20
	}
	return &Recorder{limit: limit, byID: make(map[uuid.UUID][]Message)}
}

func (r *Recorder) Notify(actor uuid.UUID, level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := append(r.byID[actor], Message{Actor: actor, Level: level, Text: msg})
	if len(list) > r.limit {
		list = list[len(list)-r.limit:]
	}
	r.byID[actor] = list
}

// Messages возвращает копию сообщений актора
func (r *Recorder) Messages(actor uuid.UUID) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.byID[actor]...)
}

// Forget удаляет сообщения актора
func (r *Recorder) Forget(actor uuid.UUID) {
	r.mu.Lock()
	delete(r.byID, actor)
	r.mu.Unlock()
}

// Multi рассылает уведомление нескольким получателям
type Multi []Notifier

func (m Multi) Notify(actor uuid.UUID, level Level, msg string) {
	for _, n := range m {
		n.Notify(actor, level, msg)
	}
}
