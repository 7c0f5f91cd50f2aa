package eventbus

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrBusClosed шина уже закрыта
var ErrBusClosed = errors.New("eventbus: шина закрыта")

// Типы событий жизненного цикла рельефа
const (
	EventTerrainGenerated = "TerrainGenerated"
	EventTerrainDiscarded = "TerrainDiscarded"
	EventTerrainFailed    = "TerrainFailed"
)

// TerrainEvent — полезная нагрузка событий рельефа
type TerrainEvent struct {
	TerrainID  string  `json:"terrain_id,omitempty"`
	Generation uint64  `json:"generation"`
	Seed       uint32  `json:"seed"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Vertices   int     `json:"vertices,omitempty"`
	Triangles  int     `json:"triangles,omitempty"`
	DurationMS float64 `json:"duration_ms,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// NewTerrainEnvelope упаковывает событие рельефа в конверт
func NewTerrainEnvelope(source, eventType string, ev TerrainEvent) (*Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}

	priority := 3
	if eventType == EventTerrainFailed {
		priority = 7
	}

	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  priority,
		Payload:   payload,
		Metadata:  map[string]string{"terrain_id": ev.TerrainID},
	}, nil
}

// DecodeTerrainEvent разбирает полезную нагрузку события рельефа
func DecodeTerrainEvent(ev *Envelope) (TerrainEvent, error) {
	var te TerrainEvent
	err := json.Unmarshal(ev.Payload, &te)
	return te, err
}
