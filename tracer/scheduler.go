package tracer

import "math"

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split frame into blocks of variable height and assign to the pool
	// of tracers using feedback collected from previous frames.
	//
	// This function returns the block height assignment for each tracer
	// in the input list.
	Schedule(tracers []Tracer, frameH uint32) []uint32
}

// The naive scheduler splits the frame rows proportionally to each tracer's
// speed estimate.
type naiveScheduler struct {
}

// Create a new naive scheduler instance.
func NaiveScheduler() BlockScheduler {
	return &naiveScheduler{}
}

func (sch *naiveScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	weights := make([]float64, len(tracers))
	for idx, tr := range tracers {
		weights[idx] = float64(tr.Speed())
	}
	return distributeRows(weights, frameH)
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent frames is approximately the same.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance
func PerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// Split frame into blocks of variable height and assign to the pool
// of tracers using feedback collected from previous frames.
//
// This function returns the block height assignment for each tracer in the
// input list. When previous frame information is available the scheduler
// uses the following formula for estimating the workload for tracer w and frame i+1:
// w_i, f_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i-1 / time,i-1)
func (sch *perfectScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	weights := make([]float64, len(tracers))

	// If this is the first time we try to schedule or the number of tracers
	// has changed we need to reset the block assignments
	useStats := len(sch.blockAssignment) == len(tracers)
	if useStats {
		for idx, tr := range tracers {
			stats := tr.Stats()
			if stats.BlockH == 0 || stats.RenderTime <= 0 {
				useStats = false
				break
			}
			weights[idx] = float64(stats.BlockH) / float64(stats.RenderTime)
		}
	}

	if !useStats {
		for idx, tr := range tracers {
			weights[idx] = float64(tr.Speed())
		}
	}

	sch.blockAssignment = distributeRows(weights, frameH)
	return sch.blockAssignment
}

// Split frameH rows proportionally to the supplied weights. Each tracer gets
// at least one row as long as there are enough rows to go around.
func distributeRows(weights []float64, frameH uint32) []uint32 {
	assignment := make([]uint32, len(weights))
	if len(weights) == 0 {
		return assignment
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		for idx := range weights {
			weights[idx] = 1
		}
		total = float64(len(weights))
	}

	scaler := float64(frameH) / total
	var scheduledRows uint32 = 0
	for idx, w := range weights {
		assignment[idx] = uint32(math.Max(1.0, math.Floor(w*scaler)))
		scheduledRows += assignment[idx]
	}

	// In case rows don't add up to the frame height append the missing ones
	// to the first tracer or trim the excess from the last ones
	if scheduledRows <= frameH {
		assignment[0] += frameH - scheduledRows
		return assignment
	}
	excess := scheduledRows - frameH
	for idx := len(assignment) - 1; idx >= 0 && excess > 0; idx-- {
		trim := assignment[idx]
		if trim > excess {
			trim = excess
		}
		assignment[idx] -= trim
		excess -= trim
	}
	return assignment
}
