package alerts

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher writes alerts to a logger; used when no bus is configured
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a publisher writing to logger
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, key string, payload []byte) error {
	p.logger.Info().
		Str("symbol", key).
		RawJSON("alert", payload).
		Msg("🔔 Price alert")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
