package logging

import (
	"errors"
	"fmt"
	"sync"
)

// Компонентные логгеры процесса, по одному на имя
var components = struct {
	sync.Mutex
	loggers map[string]*Logger
}{loggers: make(map[string]*Logger)}

// GetComponentLogger возвращает логгер компонента, создавая его файл при первом обращении.
// Если файл создать не удалось, логгер пишет только в консоль.
func GetComponentLogger(component string) *Logger {
	components.Lock()
	defer components.Unlock()

	if l, ok := components.loggers[component]; ok {
		return l
	}
	l, err := NewLogger(component)
	if err != nil {
		l = &Logger{
			component:       component,
			consoleLogger:   current().consoleLoggerOrStd(),
			minConsoleLevel: INFO,
			minFileLevel:    ERROR + 1,
		}
	}
	components.loggers[component] = l
	return l
}

// SetComponentLevel меняет уровни уже созданного логгера компонента
func SetComponentLevel(component string, console, file LogLevel) error {
	components.Lock()
	l, ok := components.loggers[component]
	components.Unlock()
	if !ok {
		return fmt.Errorf("логгер компонента %s не создан", component)
	}
	l.SetLevels(console, file)
	return nil
}

// CloseComponentLoggers закрывает файлы всех компонентных логгеров
func CloseComponentLoggers() error {
	components.Lock()
	defer components.Unlock()

	var errs []error
	for name, l := range components.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	components.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}
