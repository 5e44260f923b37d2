// Package editor команды уровня пользователя: выделение, заполнение, замена,
// копирование, вырезание, вставка, отмена и повтор.
//
// Ошибки разбора и проверки (errs.ValidationError) возвращаются сразу и в очередь
// не попадают; ошибки выполнения приходят через Future.
package editor

import (
	"context"

	"github.com/annel0/worldedit/internal/engine"
	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/history"
	"github.com/annel0/worldedit/internal/operation"
	"github.com/annel0/worldedit/internal/pattern"
	"github.com/annel0/worldedit/internal/region"
	"github.com/annel0/worldedit/internal/selection"
	"github.com/annel0/worldedit/internal/session"
	"github.com/annel0/worldedit/internal/world"
	"github.com/annel0/worldedit/internal/world/block"
	"github.com/google/uuid"
)

// Config параметры команд
type Config struct {
	// NearMaxRadius предел радиуса ReplaceNear; <= 0 означает operation.DefaultNearMaxRadius
	NearMaxRadius float64
}

// Editor фасад над движком, реестром сессий и мирами
type Editor struct {
	cfg      Config
	engine   *engine.Engine
	sessions *session.Registry
	worlds   *world.Registry
	parser   *pattern.Parser
}

// New создает фасад. parser == nil использует реестр блоков по умолчанию.
func New(cfg Config, eng *engine.Engine, sessions *session.Registry, worlds *world.Registry, parser *pattern.Parser) *Editor {
	if parser == nil {
		parser = pattern.NewParser(block.Default())
	}
	if cfg.NearMaxRadius <= 0 {
		cfg.NearMaxRadius = operation.DefaultNearMaxRadius
	}
	return &Editor{cfg: cfg, engine: eng, sessions: sessions, worlds: worlds, parser: parser}
}

// Selection выделение актора (создается при первом обращении)
func (e *Editor) Selection(actor uuid.UUID) *selection.Builder {
	e.sessions.Touch(actor)
	return e.sessions.Selections.Get(actor)
}

// SetShape меняет форму выделения по имени
func (e *Editor) SetShape(actor uuid.UUID, name string) error {
	s, err := selection.ParseShape(name)
	if err != nil {
		return err
	}
	e.Selection(actor).SetShape(s)
	return nil
}

// SetPoint записывает точку выделения по индексу
func (e *Editor) SetPoint(actor uuid.UUID, index int, loc world.Location) error {
	return e.Selection(actor).SetPoint(index, loc)
}

// AddPoint добавляет точку выделения
func (e *Editor) AddPoint(actor uuid.UUID, loc world.Location) error {
	return e.Selection(actor).AddPoint(loc)
}

func (e *Editor) RemoveLastPoint(actor uuid.UUID) bool {
	return e.Selection(actor).RemoveLastPoint()
}

func (e *Editor) SetHeightOverride(actor uuid.UUID, minY, maxY int) error {
	return e.Selection(actor).SetHeightOverride(minY, maxY)
}

func (e *Editor) ClearHeightOverride(actor uuid.UUID) {
	e.Selection(actor).ClearHeightOverride()
}

func (e *Editor) ClearSelection(actor uuid.UUID) {
	e.Selection(actor).Clear()
}

// selected возвращает готовый регион актора и хранилище его мира
func (e *Editor) selected(actor uuid.UUID) (region.Region, world.Store, error) {
	r := e.Selection(actor).Region()
	if r == nil {
		return nil, nil, errs.Invalid("selection", "make a complete selection first")
	}
	store, err := e.worlds.Resolve(r.World())
	if err != nil {
		return nil, nil, errs.Invalid("world", "%v", err)
	}
	return r, store, nil
}

func (e *Editor) storeAt(loc world.Location) (world.Store, error) {
	store, err := e.worlds.Resolve(loc.World)
	if err != nil {
		return nil, errs.Invalid("world", "%v", err)
	}
	return store, nil
}

// Set заполняет выделение шаблоном
func (e *Editor) Set(actor uuid.UUID, patternText string) (*engine.Future, error) {
	r, store, err := e.selected(actor)
	if err != nil {
		return nil, err
	}
	p, err := e.parser.ParsePattern(patternText)
	if err != nil {
		return nil, err
	}
	op, err := operation.NewSet(actor, store, r, p)
	if err != nil {
		return nil, err
	}
	return e.engine.Submit(op), nil
}

// Replace заменяет в выделении ячейки под маской
func (e *Editor) Replace(actor uuid.UUID, maskText, patternText string) (*engine.Future, error) {
	r, store, err := e.selected(actor)
	if err != nil {
		return nil, err
	}
	m, p, err := e.parseReplace(maskText, patternText)
	if err != nil {
		return nil, err
	}
	op, err := operation.NewReplace(actor, store, r, m, p)
	if err != nil {
		return nil, err
	}
	return e.engine.Submit(op), nil
}

// ReplaceNear заменяет ячейки под маской в шаре вокруг позиции актора; выделение не нужно
func (e *Editor) ReplaceNear(actor uuid.UUID, at world.Location, radius float64, maskText, patternText string) (*engine.Future, error) {
	store, err := e.storeAt(at)
	if err != nil {
		return nil, err
	}
	m, p, err := e.parseReplace(maskText, patternText)
	if err != nil {
		return nil, err
	}
	op, err := operation.NewReplaceNear(actor, store, at.Pos.Center(), radius, e.cfg.NearMaxRadius, m, p)
	if err != nil {
		return nil, err
	}
	e.sessions.Touch(actor)
	return e.engine.Submit(op), nil
}

func (e *Editor) parseReplace(maskText, patternText string) (*pattern.Mask, *pattern.Pattern, error) {
	m, err := e.parser.ParseMask(maskText)
	if err != nil {
		return nil, nil, err
	}
	p, err := e.parser.ParsePattern(patternText)
	if err != nil {
		return nil, nil, err
	}
	return m, p, nil
}

// Copy копирует выделение в буфер актора; at позиция актора
func (e *Editor) Copy(actor uuid.UUID, at world.Location) (*engine.Future, error) {
	op, _, _, err := e.newCopy(actor, at)
	if err != nil {
		return nil, err
	}
	return e.engine.Submit(op), nil
}

func (e *Editor) newCopy(actor uuid.UUID, at world.Location) (*operation.Copy, region.Region, world.Store, error) {
	r, store, err := e.selected(actor)
	if err != nil {
		return nil, nil, nil, err
	}
	op, err := operation.NewCopy(actor, store, r, at.Pos, e.sessions.Clipboards)
	if err != nil {
		return nil, nil, nil, err
	}
	return op, r, store, nil
}

// Cut копирует выделение и затем заполняет его воздухом.
// Итоговый Future несет набор изменений заполнения; при сбое копирования мир не меняется.
func (e *Editor) Cut(actor uuid.UUID, at world.Location) (*engine.Future, error) {
	cp, r, store, err := e.newCopy(actor, at)
	if err != nil {
		return nil, err
	}
	erase, err := operation.NewSet(actor, store, r, pattern.Single(block.Air))
	if err != nil {
		return nil, err
	}
	copied := e.engine.Submit(cp.ForCut())
	return engine.Then(copied, func(*history.ChangeSet) *engine.Future {
		return e.engine.Submit(erase)
	}), nil
}

// Paste вставляет буфер актора так, чтобы точка привязки совпала с at
func (e *Editor) Paste(actor uuid.UUID, at world.Location, pasteAir bool) (*engine.Future, error) {
	clip, ok := e.sessions.Clipboards.Get(actor)
	if !ok {
		return nil, errs.Invalid("clipboard", "your clipboard is empty")
	}
	store, err := e.storeAt(at)
	if err != nil {
		return nil, err
	}
	op, err := operation.NewPaste(actor, store, clip, at.Pos, pasteAir)
	if err != nil {
		return nil, err
	}
	e.sessions.Touch(actor)
	return e.engine.Submit(op), nil
}

// Undo откатывает последнюю правку актора
func (e *Editor) Undo(ctx context.Context, actor uuid.UUID) (*history.ChangeSet, error) {
	e.sessions.Touch(actor)
	return e.sessions.History.Undo(ctx, actor)
}

// Redo повторяет последнюю откатанную правку актора
func (e *Editor) Redo(ctx context.Context, actor uuid.UUID) (*history.ChangeSet, error) {
	e.sessions.Touch(actor)
	return e.sessions.History.Redo(ctx, actor)
}

// ClearHistory очищает стеки undo/redo актора
func (e *Editor) ClearHistory(actor uuid.UUID) {
	e.sessions.History.Clear(actor)
}

// Disconnect удаляет все состояние актора
func (e *Editor) Disconnect(actor uuid.UUID) {
	e.sessions.Disconnect(actor)
}
