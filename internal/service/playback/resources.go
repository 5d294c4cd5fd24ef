package playback

import (
	"context"
	"log/slog"
)

// Resources are acquired when playback enters the foreground and released
// when it stops.
type Resources interface {
	Acquire(ctx context.Context) error
	Release()
}

// logResources stands in for an audio device and only logs.
type logResources struct {
	logger *slog.Logger
}

// NewLogResources returns Resources that log acquisition and release.
func NewLogResources(logger *slog.Logger) Resources {
	return &logResources{logger: logger.With("component", "playback_resources")}
}

func (r *logResources) Acquire(ctx context.Context) error {
	r.logger.Info("foreground resources acquired")
	return nil
}

func (r *logResources) Release() {
	r.logger.Info("foreground resources released")
}
