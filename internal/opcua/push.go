package opcua

import (
	"context"
	"time"
)

// startPushLoop launches the periodic value-push timer in its own
// goroutine. Stop cancels it via b.stopPush.
func (b *Bridge) startPushLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	b.stopPush = cancel
	b.pushDone = make(chan struct{})

	go func() {
		defer close(b.pushDone)
		ticker := time.NewTicker(b.cfg.PublishInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.pushOnce()
			}
		}
	}()
}
