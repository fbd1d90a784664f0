package halfedge

import "github.com/Faultbox/subdiv/internal/parallel"

// keyHalfEdge pairs an edge key with the half-edge that produced it.
type keyHalfEdge struct {
	key  EdgeKey
	edge int32
}

// radixSort sorts items by key with a stable LSD radix sort, one byte per
// pass. Passes whose byte is identical across all keys are skipped. tmp must
// have the same length as items; the returned slice is whichever of the two
// holds the result.
func radixSort(pool *parallel.WorkerPool, items, tmp []keyHalfEdge, grain int) []keyHalfEdge {
	n := len(items)
	if n < 2 {
		return items
	}

	blocks := parallel.Blocks(pool, n, grain)

	// bits that differ from the first key, per block then merged
	diffs := make([]uint64, len(blocks))
	first := uint64(items[0].key)
	parallel.ForBlocks(pool, blocks, func(block, begin, end int) {
		var d uint64
		for _, it := range items[begin:end] {
			d |= uint64(it.key) ^ first
		}
		diffs[block] = d
	})
	var diff uint64
	for _, d := range diffs {
		diff |= d
	}

	hist := make([][256]int, len(blocks))
	src, dst := items, tmp
	for pass := 0; pass < 8; pass++ {
		shift := uint(pass * 8)
		if (diff>>shift)&0xff == 0 {
			continue
		}

		parallel.ForBlocks(pool, blocks, func(block, begin, end int) {
			h := &hist[block]
			*h = [256]int{}
			for _, it := range src[begin:end] {
				h[(uint64(it.key)>>shift)&0xff]++
			}
		})

		// bucket-major, block-minor offsets keep the sort stable
		offset := 0
		for bucket := 0; bucket < 256; bucket++ {
			for block := range hist {
				c := hist[block][bucket]
				hist[block][bucket] = offset
				offset += c
			}
		}

		parallel.ForBlocks(pool, blocks, func(block, begin, end int) {
			h := &hist[block]
			for _, it := range src[begin:end] {
				b := (uint64(it.key) >> shift) & 0xff
				dst[h[b]] = it
				h[b]++
			}
		})

		src, dst = dst, src
	}
	return src
}
