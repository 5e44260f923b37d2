package eventbus

import (
	"context"

	"github.com/annel0/worldedit/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог
func StartLoggingListener(bus EventBus) (Subscription, error) {
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		edit, err := DecodeEdit(ev.Payload)
		if err != nil {
			logging.Warn("[EventBus] %s %s: не удалось декодировать (%v)", ev.ID, ev.EventType, err)
			return
		}
		logging.Debug("[EventBus] %s %s task=%s actor=%s changed=%d size=%dB",
			ev.ID, ev.EventType, edit.TaskID, edit.Actor, edit.Changed, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logging.Info("🪵 LoggingListener: подписка на события правок активирована")
	return sub, nil
}
