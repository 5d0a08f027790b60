package opcua

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gopcua/opcua/ua"
	"go.uber.org/zap"

	"github.com/edgeflow/modgate/internal/mbmap"
	"github.com/edgeflow/modgate/internal/project"
)

var arrayPathRe = regexp.MustCompile(`^(.*) \[(\d+)\]$`)

// buildNodeTree traverses the project, lazily creating folder nodes for
// every tree-path prefix and a variable node for every tag. Array tags get
// one aggregate node; their constituent elements are tracked in
// b.arrayMeta so the push loop can reassemble them from per-element buffer
// entries.
func (b *Bridge) buildNodeTree(p *project.Project) error {
	for _, ref := range p.WalkTags() {
		segments := strings.Split(ref.TreePath, ".")
		b.ensureFolders(segments[:len(segments)-1])

		mapped, err := mbmap.MapTag(ref.Tag.Address, ref.Tag.DataType, ref.Device.DataAccess.ZeroBased, ref.Device.DataAccess.ZeroBasedBit, ref.Device.DataAccess.Func05, ref.Device.DataAccess.Func06)
		if err != nil {
			b.log.Warn("opc ua: skipping unmappable tag", zap.String("tag", ref.TreePath), zap.Error(err))
			continue
		}

		variantType := mapped.DataType.Canonical
		if ref.Tag.Scaling != nil && ref.Tag.Scaling.Kind != project.ScalingNone && ref.Tag.Scaling.ScaledType != "" {
			variantType = ref.Tag.Scaling.ScaledType
		}

		id := ua.NewStringNodeID(b.ns, ref.TreePath)
		accessLevel := ua.AccessLevelTypeCurrentRead
		if ref.Tag.Access == "RW" {
			accessLevel |= ua.AccessLevelTypeCurrentWrite
		}

		entry := &nodeEntry{id: id, variant: variantType}
		if mapped.DataType.IsArray {
			entry.arrayLen = mapped.ArrayElementCount
			b.mu.Lock()
			b.arrayMeta[ref.TreePath] = arrayInfo{elementCount: mapped.ArrayElementCount, canonical: variantType}
			b.mu.Unlock()
		}

		b.mu.Lock()
		b.nodes[ref.TreePath] = entry
		b.mu.Unlock()

		if err := b.srv.AddVariableNode(b.ns, parentPath(segments), ref.Tag.Name, id, zeroValueFor(variantType, entry.arrayLen), accessLevel, ref.Tag.Description); err != nil {
			b.log.Warn("opc ua: failed to add variable node", zap.String("tag", ref.TreePath), zap.Error(err))
		}
	}
	return nil
}

// ensureFolders creates (and caches) folder nodes for every path prefix,
// reusing previously created folders.
func (b *Bridge) ensureFolders(segments []string) {
	var built []string
	for _, seg := range segments {
		built = append(built, seg)
		path := strings.Join(built, ".")

		b.mu.RLock()
		_, exists := b.nodes[path]
		b.mu.RUnlock()
		if exists {
			continue
		}

		id := ua.NewStringNodeID(b.ns, path)
		if err := b.srv.AddFolderNode(b.ns, parentPath(built), seg, id); err != nil {
			b.log.Warn("opc ua: failed to add folder node", zap.String("path", path), zap.Error(err))
			continue
		}
		b.mu.Lock()
		b.nodes[path] = &nodeEntry{id: id}
		b.mu.Unlock()
	}
}

func parentPath(segments []string) string {
	if len(segments) <= 1 {
		return ""
	}
	return strings.Join(segments[:len(segments)-1], ".")
}

func zeroValueFor(canonical string, arrayLen int) interface{} {
	v := zeroScalar(canonical)
	if arrayLen == 0 {
		return v
	}
	return make([]interface{}, arrayLen)
}

func zeroScalar(canonical string) interface{} {
	switch canonical {
	case "bool":
		return false
	case "float32", "float64":
		return 0.0
	case "int16", "int32", "int64":
		return int64(0)
	default:
		return uint64(0)
	}
}

// pushOnce snapshots the buffer and writes every value into its node,
// aggregating array-element paths into their parent array node.
func (b *Bridge) pushOnce() {
	snap := b.buf.Snapshot()
	aggregates := make(map[string]map[int]interface{})

	b.mu.RLock()
	meta := make(map[string]arrayInfo, len(b.arrayMeta))
	for k, v := range b.arrayMeta {
		meta[k] = v
	}
	b.mu.RUnlock()

	for path, entry := range snap {
		if m := arrayPathRe.FindStringSubmatch(path); m != nil {
			base := m[1]
			idx, _ := strconv.Atoi(m[2])
			if _, ok := aggregates[base]; !ok {
				aggregates[base] = make(map[int]interface{})
			}
			aggregates[base][idx] = entry.Value
			continue
		}
		b.writeNode(path, entry.Value)
	}

	for base, info := range meta {
		values := aggregates[base]
		out := make([]interface{}, info.elementCount)
		for i := 0; i < info.elementCount; i++ {
			if v, ok := values[i]; ok {
				out[i] = v
			} else {
				out[i] = zeroScalar(info.canonical)
			}
		}
		b.writeNode(base, out)
	}
}

func (b *Bridge) writeNode(path string, value interface{}) {
	b.mu.RLock()
	entry, ok := b.nodes[path]
	b.mu.RUnlock()
	if !ok || entry.id == nil {
		return
	}

	b.mu.Lock()
	b.updating[path] = struct{}{}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.updating, path)
		b.mu.Unlock()
	}()

	variant, err := ua.NewVariant(value)
	if err != nil {
		b.log.Warn("opc ua: failed to build variant", zap.String("path", path), zap.Error(err))
		return
	}
	if err := b.srv.SetVariableValue(entry.id, variant); err != nil {
		b.log.Warn("opc ua: failed to write node", zap.String("path", path), zap.Error(err))
	}
}
