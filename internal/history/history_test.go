package history

import (
	"context"
	"errors"
	"testing"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/notify"
	"github.com/annel0/worldedit/internal/vec"
	"github.com/annel0/worldedit/internal/world"
	"github.com/annel0/worldedit/internal/world/block"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	stone = block.MustParse("stone")
	dirt  = block.MustParse("dirt")
	glass = block.MustParse("glass")
)

// applyEdit пишет desc в ячейки и возвращает набор изменений, как это делают операции
func applyEdit(t *testing.T, w world.Store, desc block.Descriptor, cells ...vec.Vec3) *ChangeSet {
	t.Helper()
	cs := NewChangeSet(w, "test")
	err := w.RunExclusive(context.Background(), func() error {
		for _, c := range cells {
			old, err := w.Cell(c)
			if err != nil {
				return err
			}
			if old == desc {
				continue
			}
			require.NoError(t, cs.Record(c, old, desc))
			if err := w.SetCell(c, desc, false); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	cs.Freeze()
	return cs
}

func snapshot(t *testing.T, w world.Store, cells ...vec.Vec3) []block.Descriptor {
	t.Helper()
	out := make([]block.Descriptor, len(cells))
	for i, c := range cells {
		d, err := w.Cell(c)
		require.NoError(t, err)
		out[i] = d
	}
	return out
}

func TestHeadCopiesPrefix(t *testing.T) {
	w := world.NewMemoryWorld("w", 0, 16)
	defer w.Close()
	cs := applyEdit(t, w, stone, vec.Vec3{X: 0}, vec.Vec3{X: 1}, vec.Vec3{X: 2})

	head := cs.Head(2)
	require.Len(t, head, 2)
	assert.Equal(t, cs.Changes()[:2], head)
	head[0].New = dirt
	assert.Equal(t, stone, cs.Changes()[0].New, "Head возвращает копию")

	assert.Len(t, cs.Head(10), 3)
	assert.Empty(t, cs.Head(0))
	assert.Empty(t, cs.Head(-1))
}

func TestUndoRedoRoundTrip(t *testing.T) {
	w := world.NewMemoryWorld("w", 0, 64)
	defer w.Close()
	ctx := context.Background()

	cells := []vec.Vec3{{X: 0}, {X: 1}, {X: 2}, {X: 1, Y: 1}}
	applyEdit(t, w, dirt, cells[:2]...)
	pre := snapshot(t, w, cells...)

	// Одна ячейка меняется дважды: порядок воспроизведения важен
	cs := applyEdit(t, w, stone, cells...)
	assert.ErrorIs(t, cs.Record(vec.Vec3{}, stone, glass), ErrFrozen, "Запись в зафиксированный набор")
	post := snapshot(t, w, cells...)

	n, err := cs.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, cs.Len(), n)
	assert.Equal(t, pre, snapshot(t, w, cells...), "Undo восстанавливает состояние до правки")

	_, err = cs.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, post, snapshot(t, w, cells...), "Redo восстанавливает состояние после правки")

	_, err = cs.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, pre, snapshot(t, w, cells...))
}

func TestReplayOrderForRepeatedCell(t *testing.T) {
	w := world.NewMemoryWorld("w", 0, 64)
	defer w.Close()
	ctx := context.Background()

	pos := vec.Vec3{X: 5}
	cs := NewChangeSet(w, "double")
	require.NoError(t, cs.Record(pos, block.Air, stone))
	require.NoError(t, cs.Record(pos, stone, dirt))
	require.NoError(t, w.SetCell(pos, dirt, false))

	_, err := cs.Undo(ctx)
	require.NoError(t, err)
	d, _ := w.Cell(pos)
	assert.True(t, d.IsAir(), "Обратный порядок дает самое старое значение")

	_, err = cs.Redo(ctx)
	require.NoError(t, err)
	d, _ = w.Cell(pos)
	assert.Equal(t, dirt, d, "Прямой порядок дает самое новое значение")

	assert.ErrorIs(t, cs.Record(pos, dirt, glass), ErrFrozen)
}

func TestCapacityEvictsOldest(t *testing.T) {
	w := world.NewMemoryWorld("w", 0, 64)
	defer w.Close()
	m := NewManager(3, nil)
	actor := uuid.New()

	var sets []*ChangeSet
	for i := 0; i < 4; i++ {
		cs := applyEdit(t, w, stone, vec.Vec3{X: i})
		sets = append(sets, cs)
		m.Record(actor, cs)
	}

	assert.Equal(t, sets[1:], m.UndoStack(actor), "Остаются три последних набора")
	undo, redo := m.Depth(actor)
	assert.Equal(t, 3, undo)
	assert.Equal(t, 0, redo)
}

func TestRecordClearsRedoAndIgnoresEmpty(t *testing.T) {
	w := world.NewMemoryWorld("w", 0, 64)
	defer w.Close()
	ctx := context.Background()
	m := NewManager(10, nil)
	actor := uuid.New()

	m.Record(actor, NewChangeSet(w, "empty"))
	assert.Equal(t, 0, m.Len(), "Пустой набор не создает историю")
	m.Record(uuid.Nil, applyEdit(t, w, stone, vec.Vec3{X: 9}))
	assert.Equal(t, 0, m.Len(), "Правки без актора не записываются")

	m.Record(actor, applyEdit(t, w, stone, vec.Vec3{X: 1}))
	m.Record(actor, applyEdit(t, w, dirt, vec.Vec3{X: 2}))
	_, err := m.Undo(ctx, actor)
	require.NoError(t, err)
	undo, redo := m.Depth(actor)
	assert.Equal(t, 1, undo)
	assert.Equal(t, 1, redo)

	m.Record(actor, applyEdit(t, w, glass, vec.Vec3{X: 3}))
	undo, redo = m.Depth(actor)
	assert.Equal(t, 2, undo)
	assert.Equal(t, 0, redo, "Новая правка очищает redo")
}

func TestUndoRedoThroughManager(t *testing.T) {
	w := world.NewMemoryWorld("w", 0, 64)
	defer w.Close()
	ctx := context.Background()
	rec := notify.NewRecorder(10)
	m := NewManager(10, rec)
	actor := uuid.New()

	pos := vec.Vec3{X: 7, Y: 7}
	m.Record(actor, applyEdit(t, w, stone, pos))

	_, err := m.Undo(ctx, actor)
	require.NoError(t, err)
	d, _ := w.Cell(pos)
	assert.True(t, d.IsAir())

	_, err = m.Undo(ctx, actor)
	assert.ErrorIs(t, err, errs.ErrNothingToUndo)
	assert.True(t, errs.IsHistoryNoOp(err))

	_, err = m.Redo(ctx, actor)
	require.NoError(t, err)
	d, _ = w.Cell(pos)
	assert.Equal(t, stone, d)

	_, err = m.Redo(ctx, actor)
	assert.ErrorIs(t, err, errs.ErrNothingToRedo)

	msgs := rec.Messages(actor)
	require.Len(t, msgs, 4)
	assert.Equal(t, "Undo successful (1 changes).", msgs[0].Text)
	assert.Equal(t, "Nothing to undo.", msgs[1].Text)

	_, err = m.Undo(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNothingToUndo, "Неизвестный актор")
}

// failingStore отказывает после заданного числа записей
type failingStore struct {
	*world.MemoryWorld
	allowed int
}

var errDisk = errors.New("disk full")

func (f *failingStore) SetCell(pos vec.Vec3, d block.Descriptor, notifyPhysics bool) error {
	if f.allowed <= 0 {
		return errDisk
	}
	f.allowed--
	return f.MemoryWorld.SetCell(pos, d, notifyPhysics)
}

func TestFailedUndoKeepsPartialEffects(t *testing.T) {
	mem := world.NewMemoryWorld("w", 0, 64)
	defer mem.Close()
	store := &failingStore{MemoryWorld: mem, allowed: 3}
	ctx := context.Background()
	rec := notify.NewRecorder(10)
	m := NewManager(10, rec)
	actor := uuid.New()

	cells := []vec.Vec3{{X: 0}, {X: 1}, {X: 2}}
	cs := applyEdit(t, store, stone, cells...)
	m.Record(actor, cs)

	store.allowed = 2
	_, err := m.Undo(ctx, actor)
	require.Error(t, err)
	assert.True(t, errs.IsExecution(err))
	assert.ErrorIs(t, err, errDisk)

	// Обратный порядок: X=2 и X=1 откатились, X=0 остался
	got := snapshot(t, store, cells...)
	assert.Equal(t, []block.Descriptor{stone, block.Air, block.Air}, got)

	undo, redo := m.Depth(actor)
	assert.Equal(t, 0, undo)
	assert.Equal(t, 0, redo, "Неудачный набор не переносится в redo")
	assert.Equal(t, notify.LevelError, rec.Messages(actor)[0].Level)
}

func TestClearAndRemove(t *testing.T) {
	w := world.NewMemoryWorld("w", 0, 64)
	defer w.Close()
	m := NewManager(0, nil)
	assert.Equal(t, DefaultCapacity, m.Capacity())
	actor := uuid.New()

	m.Record(actor, applyEdit(t, w, stone, vec.Vec3{}))
	m.Clear(actor)
	undo, _ := m.Depth(actor)
	assert.Equal(t, 0, undo)
	assert.Equal(t, 1, m.Len())

	m.Remove(actor)
	assert.Equal(t, 0, m.Len())
}
