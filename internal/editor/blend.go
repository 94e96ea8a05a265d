package editor

import "github.com/Faultbox/midgard-terrain/pkg/math"

// blend combines src with the brush value v at weight a. mean is the
// weighted average used by OpAverage.
func blend(op Operation, src, v, a, mean float32) float32 {
	switch op {
	case OpAdd:
		return src + v*a
	case OpSubtract:
		return src - v*a
	case OpMultiply:
		return src * math.Mix(1, v, a)
	case OpDivide:
		d := math.Mix(1, v, a)
		if d == 0 {
			return src
		}
		return src / d
	case OpReplace:
		return math.Mix(src, v, a)
	case OpAverage:
		return math.Mix(src, mean, a)
	}
	return src
}

// weightedMean accumulates an alpha-weighted average.
type weightedMean struct {
	sum    float64
	weight float64
}

func (w *weightedMean) add(v, a float32) {
	w.sum += float64(v) * float64(a)
	w.weight += float64(a)
}

func (w *weightedMean) value() float32 {
	if w.weight == 0 {
		return 0
	}
	return float32(w.sum / w.weight)
}
