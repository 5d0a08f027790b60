package opcua

import (
	"time"

	"go.uber.org/zap"

	"github.com/edgeflow/modgate/internal/project"
)

// tearDownDelay gives in-flight client reads/writes a brief window to settle
// before the namespace-2 node tree is removed and rebuilt.
const tearDownDelay = 2 * time.Second

// ReloadTagsAsync tears down every namespace-2 node and rebuilds the tree
// from p on a separate goroutine, so the caller returns at once. Node
// removal holds the bridge lock, so the push loop and client writes wait
// for it to finish. onDone is called with the rebuild error, if any, once
// finished.
func (b *Bridge) ReloadTagsAsync(p *project.Project, onDone func(error)) {
	go func() {
		b.mu.Lock()
		for path, entry := range b.nodes {
			if err := b.srv.RemoveNode(entry.id); err != nil {
				b.log.Warn("opc ua: failed to remove node during reload", zap.String("path", path), zap.Error(err))
			}
		}
		b.nodes = make(map[string]*nodeEntry)
		b.arrayMeta = make(map[string]arrayInfo)
		b.mu.Unlock()

		time.Sleep(tearDownDelay)

		err := b.buildNodeTree(p)
		if onDone != nil {
			onDone(err)
		}
	}()
}
