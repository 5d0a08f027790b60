package opcua

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gopcua/opcua/ua"
	"go.uber.org/zap"
)

var writeArraySuffixRe = regexp.MustCompile(`^(.*) \[(\d+)\]$`)

// onClientWrite is installed as the server's post-write callback. It
// extracts the tag-path from the node id, ignores writes the push loop
// itself just issued (feedback-loop guard), and otherwise routes the value
// to the runtime monitor's write-router.
func (b *Bridge) onClientWrite(id *ua.NodeID, value *ua.Variant) bool {
	path := id.StringID()
	if path == "" {
		return false
	}

	b.mu.RLock()
	_, suppress := b.updating[path]
	b.mu.RUnlock()
	if suppress {
		return false
	}

	// Array tags expose a single aggregate node (nodes.go), so an ordinary
	// client write lands here with no "[i]" suffix and a whole-array
	// value; elementIndex -1 tells the router to decompose it. A
	// suffixed identifier (e.g. a caller using IndexRange-style addressing)
	// is also honored as a single-element write, per spec §4.11 steps 2-3.
	basePath, index, isArrayElement := splitArrayIndex(path)
	targetPath := path
	elementIndex := -1
	if isArrayElement {
		targetPath = basePath
		elementIndex = index
	}

	channel, device, tag, ok := splitTreePath(targetPath)
	if !ok {
		b.log.Warn("opc ua: write to unroutable node", zap.String("path", path))
		return false
	}

	if b.router == nil {
		return false
	}
	return b.router(channel, device, tag, value.Value(), elementIndex)
}

func splitArrayIndex(path string) (base string, index int, ok bool) {
	m := writeArraySuffixRe.FindStringSubmatch(path)
	if m == nil {
		return path, 0, false
	}
	idx, _ := strconv.Atoi(m[2])
	return m[1], idx, true
}

// splitTreePath splits a dotted "Channel.Device[.Group...].Tag" path into
// its channel, device, and tag-name components (the final segment).
func splitTreePath(path string) (channel, device, tag string, ok bool) {
	segments := strings.Split(path, ".")
	if len(segments) < 3 {
		return "", "", "", false
	}
	return segments[0], segments[1], segments[len(segments)-1], true
}
