package parallel

// DefaultGrain is the smallest range handed to one task by For.
const DefaultGrain = 4096

// For splits [0, n) into contiguous ranges of at least grain items and calls
// fn(begin, end) for each, in parallel on pool. It returns after every range
// has completed. A nil pool, or a range that fits in one grain, runs inline.
func For(pool *WorkerPool, n, grain int, fn func(begin, end int)) {
	ForBlocks(pool, Blocks(pool, n, grain), func(_, begin, end int) {
		fn(begin, end)
	})
}

// Blocks returns the [begin, end) ranges For would use for n items. Phases
// that need per-block scratch (histograms, partial sums) size it from this.
func Blocks(pool *WorkerPool, n, grain int) [][2]int {
	if n <= 0 {
		return nil
	}
	if grain <= 0 {
		grain = DefaultGrain
	}
	if pool == nil || n <= grain {
		return [][2]int{{0, n}}
	}
	tasks := (n + grain - 1) / grain
	// a few tasks per worker keeps stealing useful without flooding the queues
	if maxTasks := pool.Workers() * 4; tasks > maxTasks {
		tasks = maxTasks
	}
	step := (n + tasks - 1) / tasks

	blocks := make([][2]int, 0, tasks)
	for begin := 0; begin < n; begin += step {
		blocks = append(blocks, [2]int{begin, min(begin+step, n)})
	}
	return blocks
}

// ForBlocks runs fn once per block returned by Blocks, passing the block
// index so callers can address per-block scratch.
func ForBlocks(pool *WorkerPool, blocks [][2]int, fn func(block, begin, end int)) {
	switch {
	case len(blocks) == 0:
		return
	case pool == nil || len(blocks) == 1:
		for i, b := range blocks {
			fn(i, b[0], b[1])
		}
		return
	}

	work := make([]func(), len(blocks))
	for i, b := range blocks {
		idx, begin, end := i, b[0], b[1]
		work[i] = func() { fn(idx, begin, end) }
	}
	pool.ExecuteAll(work)
}

// ExclusiveScan returns the exclusive prefix sum of in and the total.
// out[i] = in[0] + ... + in[i-1].
func ExclusiveScan(pool *WorkerPool, in []uint32, grain int) ([]uint32, uint64) {
	out := make([]uint32, len(in))
	blocks := Blocks(pool, len(in), grain)

	// pass 1: per-block sums
	sums := make([]uint64, len(blocks))
	ForBlocks(pool, blocks, func(block, begin, end int) {
		var s uint64
		for _, v := range in[begin:end] {
			s += uint64(v)
		}
		sums[block] = s
	})

	// block offsets, serial over a handful of blocks
	offsets := make([]uint64, len(blocks))
	var total uint64
	for i, s := range sums {
		offsets[i] = total
		total += s
	}

	// pass 2: local scan seeded with the block offset
	ForBlocks(pool, blocks, func(block, begin, end int) {
		acc := offsets[block]
		for i := begin; i < end; i++ {
			out[i] = uint32(acc)
			acc += uint64(in[i])
		}
	})

	return out, total
}
