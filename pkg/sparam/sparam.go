package sparam

import (
	"math"
	"math/cmplx"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// PortPair keys one scattering entry: the wave leaving Out when In is
// driven.
type PortPair struct {
	Out string
	In  string
}

// String renders the pair as "out,in".
func (p PortPair) String() string { return p.Out + "," + p.In }

// ParsePortPair reads an "o2,o1" or "o2@0,o1@0" key. Mode suffixes after
// '@' are dropped.
func ParsePortPair(key string) (PortPair, error) {
	parts := strings.Split(key, ",")
	if len(parts) != 2 {
		return PortPair{}, errors.New(errors.ErrCodeInvalidFormat,
			"port pair %q: want \"out,in\"", key)
	}
	out := normalizePort(parts[0])
	in := normalizePort(parts[1])
	if out == "" || in == "" {
		return PortPair{}, errors.New(errors.ErrCodeInvalidFormat,
			"port pair %q has an empty port name", key)
	}
	return PortPair{Out: out, In: in}, nil
}

func normalizePort(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return name
}

// Matrix holds S-parameter series sampled on a shared wavelength grid.
// Entries may be sparse; operations that need the full matrix say so.
type Matrix struct {
	Wavelengths []float64 // µm, strictly ascending
	Ports       []string
	Data        map[PortPair][]complex128
}

// New returns an empty matrix over the given grid and port set.
func New(wavelengths []float64, ports []string) (*Matrix, error) {
	if len(wavelengths) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no wavelengths")
	}
	for i, wl := range wavelengths {
		if math.IsNaN(wl) || math.IsInf(wl, 0) || wl <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"wavelength %g must be positive and finite", wl)
		}
		if i > 0 && wl <= wavelengths[i-1] {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"wavelengths must be strictly ascending, got %g after %g", wl, wavelengths[i-1])
		}
	}
	if len(ports) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no ports")
	}
	seen := make(map[string]bool, len(ports))
	for _, p := range ports {
		if p == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "empty port name")
		}
		if seen[p] {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate port %q", p)
		}
		seen[p] = true
	}

	wls := make([]float64, len(wavelengths))
	copy(wls, wavelengths)
	ps := make([]string, len(ports))
	copy(ps, ports)
	return &Matrix{Wavelengths: wls, Ports: ps, Data: make(map[PortPair][]complex128)}, nil
}

func (m *Matrix) checkPort(name string) error {
	for _, p := range m.Ports {
		if p == name {
			return nil
		}
	}
	return errors.New(errors.ErrCodePortNotFound, "matrix has no port %q", name)
}

// Set stores the series for S[out,in]. The series length must match the
// wavelength grid.
func (m *Matrix) Set(out, in string, values []complex128) error {
	if err := m.checkPort(out); err != nil {
		return err
	}
	if err := m.checkPort(in); err != nil {
		return err
	}
	if len(values) != len(m.Wavelengths) {
		return errors.New(errors.ErrCodeInvalidInput,
			"S[%s,%s] has %d samples, want %d", out, in, len(values), len(m.Wavelengths))
	}
	if m.Data == nil {
		m.Data = make(map[PortPair][]complex128)
	}
	vs := make([]complex128, len(values))
	copy(vs, values)
	m.Data[PortPair{Out: out, In: in}] = vs
	return nil
}

// Get returns a copy of the stored series for S[out,in].
func (m *Matrix) Get(out, in string) ([]complex128, error) {
	vs, ok := m.Data[PortPair{Out: out, In: in}]
	if !ok {
		return nil, errors.New(errors.ErrCodeResultNotFound, "no S[%s,%s] entry", out, in)
	}
	out2 := make([]complex128, len(vs))
	copy(out2, vs)
	return out2, nil
}

// Magnitude returns |S[out,in]| per wavelength.
func (m *Matrix) Magnitude(out, in string) ([]float64, error) {
	vs, ok := m.Data[PortPair{Out: out, In: in}]
	if !ok {
		return nil, errors.New(errors.ErrCodeResultNotFound, "no S[%s,%s] entry", out, in)
	}
	mags := make([]float64, len(vs))
	for i, v := range vs {
		mags[i] = cmplx.Abs(v)
	}
	return mags, nil
}

// MagnitudeDB returns 20 log10 |S[out,in]| per wavelength.
func (m *Matrix) MagnitudeDB(out, in string) ([]float64, error) {
	mags, err := m.Magnitude(out, in)
	if err != nil {
		return nil, err
	}
	for i, v := range mags {
		mags[i] = 20 * math.Log10(v)
	}
	return mags, nil
}

// Phase returns the phase of S[out,in] in radians per wavelength.
func (m *Matrix) Phase(out, in string) ([]float64, error) {
	vs, ok := m.Data[PortPair{Out: out, In: in}]
	if !ok {
		return nil, errors.New(errors.ErrCodeResultNotFound, "no S[%s,%s] entry", out, in)
	}
	phases := make([]float64, len(vs))
	for i, v := range vs {
		phases[i] = cmplx.Phase(v)
	}
	return phases, nil
}

// At returns every stored entry linearly interpolated at wl. Wavelengths
// outside the grid are an error, not an extrapolation.
func (m *Matrix) At(wl float64) (map[PortPair]complex128, error) {
	if math.IsNaN(wl) || math.IsInf(wl, 0) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "wavelength %g is not finite", wl)
	}
	n := len(m.Wavelengths)
	if n == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "matrix has no wavelength grid")
	}

	var (
		i     int
		t     float64
		exact = -1
	)
	switch {
	case wl == m.Wavelengths[n-1]:
		exact = n - 1
	case n == 1:
		return nil, m.outOfRange(wl)
	default:
		i = floats.Within(m.Wavelengths, wl)
		if i < 0 {
			return nil, m.outOfRange(wl)
		}
		t = (wl - m.Wavelengths[i]) / (m.Wavelengths[i+1] - m.Wavelengths[i])
	}

	out := make(map[PortPair]complex128, len(m.Data))
	for pair, vs := range m.Data {
		if exact >= 0 {
			out[pair] = vs[exact]
			continue
		}
		out[pair] = vs[i] + complex(t, 0)*(vs[i+1]-vs[i])
	}
	return out, nil
}

func (m *Matrix) outOfRange(wl float64) error {
	return errors.New(errors.ErrCodeInvalidInput,
		"wavelength %g outside grid [%g, %g]", wl, m.Wavelengths[0], m.Wavelengths[len(m.Wavelengths)-1])
}

// CheckReciprocal verifies S[a,b] matches S[b,a] within an absolute
// tolerance for every pair stored in both directions, reporting the worst
// mismatch.
func (m *Matrix) CheckReciprocal(tol float64) error {
	var (
		worst float64
		wp    PortPair
		wi    int
	)
	for pair, vs := range m.Data {
		if pair.Out >= pair.In {
			continue
		}
		rev, ok := m.Data[PortPair{Out: pair.In, In: pair.Out}]
		if !ok {
			continue
		}
		for i := range vs {
			if d := cmplx.Abs(vs[i] - rev[i]); d > worst {
				worst, wp, wi = d, pair, i
			}
		}
	}
	if worst > tol {
		return errors.New(errors.ErrCodeInvalidInput,
			"non-reciprocal: |S[%s,%s] - S[%s,%s]| = %g at %g um exceeds %g",
			wp.Out, wp.In, wp.In, wp.Out, worst, m.Wavelengths[wi], tol)
	}
	return nil
}

// CheckPassive verifies the total scattered power per driven port stays at
// or below unity within tol, over all wavelengths. Missing entries count
// as zero.
func (m *Matrix) CheckPassive(tol float64) error {
	var (
		worst   float64
		worstIn string
		wi      int
	)
	for _, in := range m.Ports {
		for i := range m.Wavelengths {
			var power float64
			for _, out := range m.Ports {
				if vs, ok := m.Data[PortPair{Out: out, In: in}]; ok {
					a := cmplx.Abs(vs[i])
					power += a * a
				}
			}
			if power > worst {
				worst, worstIn, wi = power, in, i
			}
		}
	}
	if worst > 1+tol {
		return errors.New(errors.ErrCodeInvalidInput,
			"not passive: driving %s at %g um scatters power %g", worstIn, m.Wavelengths[wi], worst)
	}
	return nil
}

// Pairs returns every stored port pair, sorted by out then in.
func (m *Matrix) Pairs() []PortPair {
	pairs := make([]PortPair, 0, len(m.Data))
	for p := range m.Data {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Out != pairs[j].Out {
			return pairs[i].Out < pairs[j].Out
		}
		return pairs[i].In < pairs[j].In
	})
	return pairs
}
