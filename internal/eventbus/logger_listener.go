package eventbus

import (
	"context"

	"github.com/annel0/terrain-gen/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus) (Subscription, error) {
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		te, err := DecodeTerrainEvent(ev)
		if err != nil {
			logging.Debug("[EventBus] %s %s src=%s size=%dB", ev.ID, ev.EventType, ev.Source, len(ev.Payload))
			return
		}
		if te.Error != "" {
			logging.Warn("[EventBus] %s gen=%d seed=%d %dx%d: %s", ev.EventType, te.Generation, te.Seed, te.Width, te.Height, te.Error)
			return
		}
		logging.Debug("[EventBus] %s terrain=%s gen=%d seed=%d verts=%d tris=%d",
			ev.EventType, te.TerrainID, te.Generation, te.Seed, te.Vertices, te.Triangles)
	})
	if err != nil {
		return nil, err
	}
	logging.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
