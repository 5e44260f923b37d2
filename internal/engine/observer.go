package engine

import (
	"time"

	"github.com/annel0/worldedit/internal/history"
	"github.com/annel0/worldedit/internal/operation"
	"github.com/google/uuid"
)

// Task сведения о задаче для наблюдателей
type Task struct {
	ID        uuid.UUID
	Op        operation.Operation
	QueuedAt  time.Time
	StartedAt time.Time
	// Duration время выполнения; заполнено в OnCompleted и OnFailed
	Duration time.Duration
}

// Observer получает события жизненного цикла задач.
// Вызовы идут из горутин движка и не должны блокироваться надолго.
type Observer interface {
	OnQueued(t Task)
	OnStarted(t Task)
	OnCompleted(t Task, cs *history.ChangeSet)
	OnFailed(t Task, err error)
	OnCancelled(t Task)
}

// NopObserver пустая реализация для встраивания
type NopObserver struct{}

func (NopObserver) OnQueued(Task)                        {}
func (NopObserver) OnStarted(Task)                       {}
func (NopObserver) OnCompleted(Task, *history.ChangeSet) {}
func (NopObserver) OnFailed(Task, error)                 {}
func (NopObserver) OnCancelled(Task)                     {}
