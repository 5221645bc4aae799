// Package perturb implements the general-position enforcement loop's
// perturbation driver (component D): a deterministic-seed random
// translation of the cut mesh, applied whenever the kernel reports a
// general-position violation.
package perturb

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// FixedSeed is the thread-local RNG seed, kept as an implementation
// constant rather than exposed configuration so that two dispatches of the
// same inputs are byte-identical (spec §5, §9).
const FixedSeed = 1

// MaxAttempts bounds the number of perturbation retries before the
// dispatch is aborted (spec §4.D: MAX = 8).
const MaxAttempts = 8

// Epsilon0 scales the cut-mesh AABB diagonal to produce the per-component
// perturbation magnitude (spec §4.D).
const Epsilon0 = 1e-4

// Driver produces successive perturbation vectors for one dispatch. It is
// not safe for concurrent use; create one Driver per dispatch, matching
// spec §5's "thread-local generator with a fixed seed" model.
type Driver struct {
	rnd     *rand.Rand
	attempt int
}

// NewDriver returns a Driver seeded with FixedSeed, ready to produce the
// first perturbation.
func NewDriver() *Driver {
	return &Driver{rnd: rand.New(rand.NewSource(FixedSeed))}
}

// Attempt returns the number of perturbations already produced (k in spec
// §4.D).
func (d *Driver) Attempt() int { return d.attempt }

// Exhausted reports whether MaxAttempts perturbations have already been
// produced; the orchestrator must abort the dispatch rather than call Next
// again.
func (d *Driver) Exhausted() bool { return d.attempt >= MaxAttempts }

// Next consumes one attempt and returns a translation vector delta whose
// three components are each uniform(-1,1) * (Epsilon0 * aabbDiagonal). It
// panics if called after Exhausted reports true, since the caller is
// required to check first (spec §4.D: "if k == MAX, abort").
func (d *Driver) Next(aabbDiagonal float64) r3.Vec {
	if d.Exhausted() {
		panic("perturb: Next called after MaxAttempts attempts exhausted")
	}
	eps := Epsilon0 * aabbDiagonal
	delta := r3.Vec{
		X: (d.rnd.Float64()*2 - 1) * eps,
		Y: (d.rnd.Float64()*2 - 1) * eps,
		Z: (d.rnd.Float64()*2 - 1) * eps,
	}
	d.attempt++
	return delta
}

// Translate applies delta to every vertex of verts, returning a new slice
// (the source mesh S is never perturbed; this is only ever called on the
// cut mesh's user-supplied vertex array, per spec §4.D).
func Translate(verts []r3.Vec, delta r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(verts))
	for i, v := range verts {
		out[i] = r3.Add(v, delta)
	}
	return out
}

// AABBDiagonal returns the Euclidean length of the bounding-box diagonal of
// verts.
func AABBDiagonal(verts []r3.Vec) float64 {
	if len(verts) == 0 {
		return 0
	}
	min, max := verts[0], verts[0]
	for _, v := range verts[1:] {
		min = r3.Vec{X: minf(min.X, v.X), Y: minf(min.Y, v.Y), Z: minf(min.Z, v.Z)}
		max = r3.Vec{X: maxf(max.X, v.X), Y: maxf(max.Y, v.Y), Z: maxf(max.Z, v.Z)}
	}
	return r3.Norm(r3.Sub(max, min))
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
