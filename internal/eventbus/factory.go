package eventbus

import "time"

// New выбирает реализацию шины: JetStream при заданном URL, иначе in-memory
func New(url, stream string, retentionHours, buffer int) (EventBus, error) {
	if url == "" {
		return NewMemoryBus(buffer), nil
	}
	jb, err := NewJetStreamBus(url, stream, hours(retentionHours))
	if err != nil {
		return nil, err
	}
	return jb, nil
}

func hours(h int) time.Duration {
	if h <= 0 {
		return 0
	}
	return time.Duration(h) * time.Hour
}
