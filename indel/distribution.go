package indel

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// DistKind names one of the five indel length laws the configuration
// accepts (§6's insertion_distribution/deletion_distribution option).
type DistKind string

const (
	NegBin DistKind = "NEG_BIN"
	Zipf   DistKind = "ZIPF"
	Lav    DistKind = "LAV"
	Geo    DistKind = "GEO"
	User   DistKind = "USER"
)

// LengthDist draws indel event lengths. Param1/Param2 hold the up-to-two
// numeric parameters each distribution kind takes; UserPMF holds the
// explicit probability vector for USER (indexed from length 1).
type LengthDist struct {
	Kind   DistKind
	Param1 float64
	Param2 float64
	UserPMF []float64

	zipf    *rand.Zipf
	lavPMF  []float64 // cumulative, built lazily on first draw
	lavLmax int
}

// expRandSource adapts a *math/rand.Rand to the golang.org/x/exp/rand.Source
// interface gonum's distuv package expects (Uint64/Seed(uint64)), so the
// same RNG driving the rest of the simulation can seed distuv draws too.
type expRandSource struct{ rng *rand.Rand }

func (s expRandSource) Uint64() uint64   { return s.rng.Uint64() }
func (s expRandSource) Seed(seed uint64) { s.rng.Seed(int64(seed)) }

// NewLengthDist validates and constructs a length distribution.
func NewLengthDist(kind DistKind, p1, p2 float64, userPMF []float64) (*LengthDist, error) {
	d := &LengthDist{Kind: kind, Param1: p1, Param2: p2, UserPMF: userPMF}
	switch kind {
	case NegBin:
		if p1 <= 0 || p2 <= 0 || p2 >= 1 {
			return nil, fmt.Errorf("indel: NEG_BIN needs r>0 and p in (0,1), got r=%v p=%v", p1, p2)
		}
	case Zipf:
		if p1 <= 1 || p2 < 1 {
			return nil, fmt.Errorf("indel: ZIPF needs s>1 and v>=1, got s=%v v=%v", p1, p2)
		}
	case Lav:
		if p1 <= 0 || p2 < 1 {
			return nil, fmt.Errorf("indel: LAV needs a>0 and Lmax>=1, got a=%v Lmax=%v", p1, p2)
		}
	case Geo:
		if p1 <= 0 || p1 >= 1 {
			return nil, fmt.Errorf("indel: GEO needs p in (0,1), got p=%v", p1)
		}
	case User:
		if len(userPMF) == 0 {
			return nil, fmt.Errorf("indel: USER distribution needs a non-empty probability vector")
		}
	default:
		return nil, fmt.Errorf("indel: unknown indel distribution kind %q", kind)
	}
	return d, nil
}

// maxRejectionAttempts is AliSim's rejection-loop bound for drawing a
// strictly positive indel length (§4.4).
const maxRejectionAttempts = 1000

// Draw samples a single positive length, retrying up to
// maxRejectionAttempts times when the underlying law returns a
// non-positive value (possible for NEG_BIN, whose support starts at 0;
// drawGeometric already shifts GEO to start at 1).
func (d *LengthDist) Draw(rng *rand.Rand) (int, error) {
	for attempt := 0; attempt < maxRejectionAttempts; attempt++ {
		k := d.drawOnce(rng)
		if k > 0 {
			return k, nil
		}
	}
	return 0, fmt.Errorf("indel: failed to draw a positive indel length from %s after %d attempts", d.Kind, maxRejectionAttempts)
}

func (d *LengthDist) drawOnce(rng *rand.Rand) int {
	switch d.Kind {
	case NegBin:
		return d.drawNegBin(rng)
	case Zipf:
		return d.drawZipf(rng)
	case Lav:
		return d.drawLavalette(rng)
	case Geo:
		return d.drawGeometric(rng)
	default: // User
		return d.drawUser(rng)
	}
}

// drawNegBin draws from NegativeBinomial(r=Param1, p=Param2) via the
// standard Gamma-Poisson mixture: X|lambda ~ Poisson(lambda), lambda ~
// Gamma(r, rate=p/(1-p)). gonum's distuv package has no native
// NegativeBinomial, so this composes two distributions it does have
// (Gamma and Poisson), the same construction js-arias-phygeo uses
// distuv.Gamma for (gamma.Quantile-based category discretization).
func (d *LengthDist) drawNegBin(rng *rand.Rand) int {
	rate := d.Param2 / (1 - d.Param2)
	gamma := distuv.Gamma{Alpha: d.Param1, Beta: rate, Src: expRandSource{rng}}
	lambda := gamma.Rand()
	poisson := distuv.Poisson{Lambda: lambda, Src: expRandSource{rng}}
	return int(math.Round(poisson.Rand()))
}

// drawZipf uses math/rand's own Zipf generator (math/rand.NewZipf),
// which is exactly this law: it is a named stdlib utility rather than a
// gap the ecosystem needs to fill, so reaching for it isn't a
// standard-library fallback in the DESIGN.md sense. Param1 is the Zipf
// "s" exponent (>1), Param2 is "v" (>=1); the generator is built on the
// first draw, bound to that draw's rng, and reused unchanged afterwards.
func (d *LengthDist) drawZipf(rng *rand.Rand) int {
	if d.zipf == nil {
		d.zipf = rand.NewZipf(rng, d.Param1, d.Param2, 1<<30)
	}
	return int(d.zipf.Uint64()) + 1
}

// drawGeometric draws from the geometric distribution (number of failures
// before the first success, support {0,1,2,...}) via inverse-transform
// sampling: gonum's distuv package has no native Geometric, so this uses
// the standard closed-form inverse CDF, k = floor(log(U)/log(1-p)), for
// U ~ Uniform(0,1). AliSim's indel lengths are 1-based, so we add 1.
func (d *LengthDist) drawGeometric(rng *rand.Rand) int {
	u := rng.Float64()
	k := int(math.Floor(math.Log(u) / math.Log(1-d.Param1)))
	return k + 1
}

// drawLavalette implements the Lavalette/Zipf-Mandelbrot-style law
// AliSim/INDELible use for indel lengths: P(k) proportional to
// (k*(Lmax-k+1))^(-a) for k in [1, Lmax]. The exact formula wasn't
// present in the retrieved original_source excerpt (see SPEC_FULL.md §3);
// this is the documented convention for "LAV" in that family of
// simulators. There is no closed-form inverse CDF, so the cumulative
// table is built once per distribution instance and searched linearly
// (Lmax is always a small, user-configured cap).
func (d *LengthDist) drawLavalette(rng *rand.Rand) int {
	lmax := int(d.Param2)
	if d.lavPMF == nil || d.lavLmax != lmax {
		d.lavPMF = buildLavalettePMF(d.Param1, lmax)
		d.lavLmax = lmax
	}
	r := rng.Float64()
	for k, cum := range d.lavPMF {
		if r <= cum {
			return k + 1
		}
	}
	return lmax
}

func buildLavalettePMF(a float64, lmax int) []float64 {
	weights := make([]float64, lmax)
	total := 0.0
	for k := 1; k <= lmax; k++ {
		w := math.Pow(float64(k*(lmax-k+1)), -a)
		weights[k-1] = w
		total += w
	}
	cum := make([]float64, lmax)
	running := 0.0
	for i, w := range weights {
		running += w / total
		cum[i] = running
	}
	return cum
}

// drawUser samples from the explicit per-length probability vector
// (index 0 -> length 1), normalizing defensively if it doesn't already
// sum to 1.
func (d *LengthDist) drawUser(rng *rand.Rand) int {
	total := 0.0
	for _, p := range d.UserPMF {
		total += p
	}
	r := rng.Float64() * total
	running := 0.0
	for i, p := range d.UserPMF {
		running += p
		if r <= running {
			return i + 1
		}
	}
	return len(d.UserPMF)
}

// EstimateMean draws n samples and averages them, the "estimated once
// from L draws of the deletion distribution" step §4.3 uses to compute
// <D> for R_del.
func (d *LengthDist) EstimateMean(rng *rand.Rand, n int) (float64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("indel: EstimateMean needs n > 0, got %d", n)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		k, err := d.Draw(rng)
		if err != nil {
			return 0, err
		}
		sum += float64(k)
	}
	return sum / float64(n), nil
}
