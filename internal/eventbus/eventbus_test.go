package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []*Envelope
}

func (r *recorder) handle(_ context.Context, ev *Envelope) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

func TestMemoryBus_DeliversInOrder(t *testing.T) {
	bus := NewMemoryBus(16)
	rec := &recorder{}
	_, err := bus.Subscribe(context.Background(), Filter{}, rec.handle)
	require.NoError(t, err)

	for _, typ := range []string{EventTerrainGenerated, EventTerrainDiscarded, EventTerrainGenerated} {
		ev, err := NewTerrainEnvelope("test", typ, TerrainEvent{Generation: 1})
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), ev))
	}

	// Close дожидается доставки
	require.NoError(t, bus.Close())
	assert.Equal(t, []string{EventTerrainGenerated, EventTerrainDiscarded, EventTerrainGenerated}, rec.types())

	stats := bus.Metrics()
	assert.Equal(t, uint64(3), stats.Published)
	assert.Equal(t, uint64(3), stats.Consumed)
}

func TestMemoryBus_Filter(t *testing.T) {
	bus := NewMemoryBus(8)
	rec := &recorder{}
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventTerrainDiscarded}}, rec.handle)
	require.NoError(t, err)

	for _, typ := range []string{EventTerrainGenerated, EventTerrainDiscarded} {
		ev, _ := NewTerrainEnvelope("test", typ, TerrainEvent{})
		require.NoError(t, bus.Publish(context.Background(), ev))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, []string{EventTerrainDiscarded}, rec.types())
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(8)
	rec := &recorder{}
	sub, err := bus.Subscribe(context.Background(), Filter{}, rec.handle)
	require.NoError(t, err)
	sub.Unsubscribe()

	ev, _ := NewTerrainEnvelope("test", EventTerrainGenerated, TerrainEvent{})
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Close())

	assert.Empty(t, rec.types())
}

func TestMemoryBus_Closed(t *testing.T) {
	bus := NewMemoryBus(1)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	ev, _ := NewTerrainEnvelope("test", EventTerrainGenerated, TerrainEvent{})
	assert.ErrorIs(t, bus.Publish(context.Background(), ev), ErrBusClosed)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})
	require.NoError(t, err)

	low := func() *Envelope {
		ev, _ := NewTerrainEnvelope("test", EventTerrainGenerated, TerrainEvent{})
		return ev
	}

	require.NoError(t, bus.Publish(context.Background(), low()))
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("обработчик не запустился")
	}
	require.NoError(t, bus.Publish(context.Background(), low())) // занимает буфер
	require.NoError(t, bus.Publish(context.Background(), low())) // отброшено

	assert.Equal(t, uint64(1), bus.Metrics().Dropped)
	close(release)
	require.NoError(t, bus.Close())
}

func TestTerrainEnvelopeRoundTrip(t *testing.T) {
	in := TerrainEvent{TerrainID: "abc", Generation: 2, Seed: 7, Width: 4, Height: 4, Vertices: 54, Triangles: 18}
	ev, err := NewTerrainEnvelope("scene", EventTerrainGenerated, in)
	require.NoError(t, err)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "abc", ev.Metadata["terrain_id"])
	out, err := DecodeTerrainEvent(ev)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	failed, _ := NewTerrainEnvelope("scene", EventTerrainFailed, TerrainEvent{Error: "boom"})
	assert.Greater(t, failed.Priority, ev.Priority)
}

func TestStatsCollector(t *testing.T) {
	bus := NewMemoryBus(4)
	ev, _ := NewTerrainEnvelope("test", EventTerrainGenerated, TerrainEvent{})
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Close())

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewStatsCollector(bus)))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range mfs {
		m := mf.GetMetric()[0]
		if m.GetCounter() != nil {
			values[mf.GetName()] = m.GetCounter().GetValue()
		} else {
			values[mf.GetName()] = m.GetGauge().GetValue()
		}
	}
	assert.Equal(t, 1.0, values["eventbus_messages_published_total"])
	assert.Equal(t, 0.0, values["eventbus_messages_dropped_total"])
	assert.Equal(t, 0.0, values["eventbus_messages_inflight"])
}

func TestNew_MemoryWithoutURL(t *testing.T) {
	bus, err := New("", "", 0, 4)
	require.NoError(t, err)
	require.NoError(t, bus.Close())
}
