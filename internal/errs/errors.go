// Package errs описывает таксономию ошибок редактора.
//
// ValidationError возникает синхронно при разборе и построении, до постановки в очередь.
// ExecutionError возникает асинхронно при выполнении операции.
// ErrCancelled означает, что операция не успела стартовать до остановки движка.
// ErrNothingToUndo/ErrNothingToRedo не являются сбоями: это уведомления о пустой истории.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError описывает некорректный ввод: синтаксис шаблона, геометрию, проценты.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Invalid создает ValidationError с форматированной причиной
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation проверяет, что в цепочке есть ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ExecutionError оборачивает сбой фазы сканирования/изменения операции.
type ExecutionError struct {
	Operation string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("operation %s failed: %v", e.Operation, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsExecution проверяет, что в цепочке есть ExecutionError
func IsExecution(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}

var (
	// ErrCancelled возвращается операциям, снятым с очереди при остановке движка.
	ErrCancelled = errors.New("operation cancelled: engine shut down before start")

	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// IsHistoryNoOp сообщает, что undo/redo не выполнялся из-за пустого стека
func IsHistoryNoOp(err error) bool {
	return errors.Is(err, ErrNothingToUndo) || errors.Is(err, ErrNothingToRedo)
}
