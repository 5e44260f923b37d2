package notify

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRecorderKeepsLastMessages(t *testing.T) {
	r := NewRecorder(2)
	actor := uuid.New()

	Notifyf(r, actor, LevelInfo, "one")
	Notifyf(r, actor, LevelWarn, "two %d", 2)
	Notifyf(r, actor, LevelError, "three")
	Notifyf(r, uuid.Nil, LevelInfo, "консоль не получает уведомлений")

	msgs := r.Messages(actor)
	assert.Len(t, msgs, 2)
	assert.Equal(t, "two 2", msgs[0].Text)
	assert.Equal(t, LevelError, msgs[1].Level)
	assert.Empty(t, r.Messages(uuid.Nil))

	r.Forget(actor)
	assert.Empty(t, r.Messages(actor))
}

func TestMultiFansOut(t *testing.T) {
	a, b := NewRecorder(5), NewRecorder(5)
	actor := uuid.New()
	Notifyf(Multi{a, b, LogNotifier{}}, actor, LevelInfo, "hi")
	assert.Len(t, a.Messages(actor), 1)
	assert.Len(t, b.Messages(actor), 1)
}
