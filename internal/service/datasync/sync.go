package datasync

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Summary is the output payload of a completed sync.
type Summary struct {
	Steps    int           `json:"steps"`
	Duration time.Duration `json:"duration"`
}

// runSteps performs steps simulated sync steps, waiting delay after each.
// It stops early with ctx.Err() once ctx is done.
func runSteps(ctx context.Context, log *slog.Logger, steps int, delay time.Duration) ([]byte, error) {
	started := time.Now()
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for i := 1; i <= steps; i++ {
		log.Debug("syncing data", "step", i, "total", steps)

		if i > 1 {
			timer.Reset(delay)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return json.Marshal(Summary{Steps: steps, Duration: time.Since(started)})
}
