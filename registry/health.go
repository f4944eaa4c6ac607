package registry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartHealthLoop runs a periodic health probe against every registered
// provider until ctx is cancelled or Close is called. The fanout engine
// never consults this loop's results directly (§4.8): an unhealthy
// provider is still attempted on every fanout, and its failure simply
// counts against its own metrics, which lets flapping providers recover
// without manual intervention. Grounded on the teacher's
// llm/router/router.go HealthChecker background loop.
func (r *Registry) StartHealthLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	r.healthCancel = cancel

	go func() {
		// Probe once immediately so health state isn't empty at startup.
		r.HealthCheckAll(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				results := r.HealthCheckAll(ctx)
				for name, healthy := range results {
					if !healthy {
						r.logger.Warn("provider health probe failed", zap.String("provider", name))
					}
				}
			}
		}
	}()
}
