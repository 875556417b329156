package privacy

import (
	"math"
	"math/rand"
)

// laplace draws one sample from the Laplace distribution centered at zero
// with the given scale, using inverse transform sampling.
func laplace(r *rand.Rand, scale float64) float64 {
	// u uniform in (-0.5, 0.5); the open bounds keep Log finite
	u := r.Float64() - 0.5
	for u == -0.5 || u == 0.5 {
		u = r.Float64() - 0.5
	}
	if u < 0 {
		return scale * math.Log(1+2*u)
	}
	return -scale * math.Log(1-2*u)
}

// clamp restricts v to [lo, hi]. Clamping is pure post-processing and
// carries no privacy cost.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
