// Package sampling holds the pure time-to-frame alignment math: per-word
// sample timestamps at a fixed cadence and millisecond-to-frame-index
// mapping with boundary clamping.
package sampling

// SampleTimes returns the millisecond timestamps to sample within one word's
// span. The set starts at beginMS, adds beginMS+k*intervalMS while strictly
// below endMS, and finishes with endMS unless it is already present. A
// degenerate span (begin == end) yields exactly one sample. No two
// consecutive interior samples are farther apart than intervalMS, and
// neither endpoint is ever duplicated.
func SampleTimes(beginMS, endMS, intervalMS int64) []int64 {
	times := []int64{beginMS}
	if intervalMS > 0 {
		for t := beginMS + intervalMS; t < endMS; t += intervalMS {
			times = append(times, t)
		}
	}
	if times[len(times)-1] != endMS {
		times = append(times, endMS)
	}
	return times
}

// FrameIndex maps a millisecond timestamp to a frame index:
// floor(t/1000 * fps), clamped to [0, totalFrames-1]. Timestamps beyond the
// end of the video land on the last valid frame instead of failing.
func FrameIndex(tMS int64, fps float64, totalFrames int) int {
	idx := int(float64(tMS) / 1000.0 * fps)
	if idx >= totalFrames {
		idx = totalFrames - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}
