package sale

import (
	"context"
	"log"
	"time"
)

// RunSweeper calls Sweep every interval until ctx is done.
func RunSweeper(ctx context.Context, svc Service, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := svc.Sweep(ctx)
			if err != nil {
				log.Printf("⚠️ Sale sweep failed: %v", err)
				continue
			}
			if result != (SweepResult{}) {
				log.Printf("🧹 Sale sweep: settled=%d promoted=%d deleted=%d skipped=%d",
					result.Settled, result.Promoted, result.Deleted, result.Skipped)
			}
		}
	}
}
