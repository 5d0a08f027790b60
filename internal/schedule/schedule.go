// Package schedule groups due tags into contiguous read batches bounded by
// a maximum register (or coil) count per request.
package schedule

import (
	"sort"

	"github.com/edgeflow/modgate/internal/mbmap"
)

// DueTag is the minimal shape group_reads needs from a canonical tag.
type DueTag struct {
	TreePath      string
	UnitID        int
	AddressType   mbmap.AddressType
	Offset        int
	RegisterCount int
}

// Batch is one merged, contiguous (or near-contiguous) read request.
type Batch struct {
	UnitID       int
	AddressType  mbmap.AddressType
	FunctionCode int
	Start        int
	Count        int
	Tags         []DueTag
}

type bucketKey struct {
	unitID int
	typ    mbmap.AddressType
}

// GroupReads buckets tags by (unit-id, address-type), sorts each bucket by
// start address, then greedily merges tags into batches so that every
// batch's span (end - start + 1) stays within maxRegsPerBatch. A small gap
// between adjacent tags is tolerated as long as the span still fits,
// trading a few unused registers read for fewer requests.
func GroupReads(due []DueTag, maxRegsPerBatch int) []Batch {
	buckets := map[bucketKey][]DueTag{}
	var order []bucketKey
	for _, tag := range due {
		k := bucketKey{tag.UnitID, tag.AddressType}
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], tag)
	}

	var batches []Batch
	for _, k := range order {
		tags := buckets[k]
		sort.Slice(tags, func(i, j int) bool { return tags[i].Offset < tags[j].Offset })

		var cur *Batch
		for _, tag := range tags {
			tagEnd := tag.Offset + tag.RegisterCount - 1
			if cur != nil {
				span := tagEnd - cur.Start + 1
				if span <= maxRegsPerBatch {
					if tagEnd > cur.Start+cur.Count-1 {
						cur.Count = tagEnd - cur.Start + 1
					}
					cur.Tags = append(cur.Tags, tag)
					continue
				}
				batches = append(batches, *cur)
				cur = nil
			}
			cur = &Batch{
				UnitID:       k.unitID,
				AddressType:  k.typ,
				FunctionCode: k.typ.FunctionCodeForRead(),
				Start:        tag.Offset,
				Count:        tag.RegisterCount,
				Tags:         []DueTag{tag},
			}
		}
		if cur != nil {
			batches = append(batches, *cur)
		}
	}
	return batches
}
