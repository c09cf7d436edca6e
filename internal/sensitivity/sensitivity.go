// Package sensitivity holds present value curve sensitivities: per curve name, the
// list of (time, value) pairs a price reacts to.
package sensitivity

import (
	"math"
	"sort"
)

// Point is the sensitivity to the curve at one time
type Point struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// Sensitivity maps curve names to points, separately for yield curves and price index curves.
// Values are immutable: every operation returns a new Sensitivity.
type Sensitivity struct {
	Yield map[string][]Point `json:"yield,omitempty"`
	Price map[string][]Point `json:"price,omitempty"`
}

// New returns an empty sensitivity
func New() Sensitivity {
	return Sensitivity{}
}

// OfYield returns a sensitivity to a single yield curve
func OfYield(curveName string, points ...Point) Sensitivity {
	return Sensitivity{Yield: map[string][]Point{curveName: append([]Point(nil), points...)}}
}

// OfPrice returns a sensitivity to a single price index curve
func OfPrice(curveName string, points ...Point) Sensitivity {
	return Sensitivity{Price: map[string][]Point{curveName: append([]Point(nil), points...)}}
}

// IsEmpty reports whether there is no entry at all
func (s Sensitivity) IsEmpty() bool {
	return len(s.Yield) == 0 && len(s.Price) == 0
}

// Plus concatenates the point lists per curve over the union of curve names
func (s Sensitivity) Plus(other Sensitivity) Sensitivity {
	return Sensitivity{
		Yield: plusMap(s.Yield, other.Yield),
		Price: plusMap(s.Price, other.Price),
	}
}

// MultipliedBy scales every value
func (s Sensitivity) MultipliedBy(factor float64) Sensitivity {
	return Sensitivity{
		Yield: mapPoints(s.Yield, func(p Point) Point { return Point{Time: p.Time, Value: p.Value * factor} }),
		Price: mapPoints(s.Price, func(p Point) Point { return Point{Time: p.Time, Value: p.Value * factor} }),
	}
}

// Clean sorts every list by time and sums entries at equal times
func (s Sensitivity) Clean() Sensitivity {
	return Sensitivity{
		Yield: cleanMap(s.Yield),
		Price: cleanMap(s.Price),
	}
}

// CurveNames returns the yield and price curve names, sorted
func (s Sensitivity) CurveNames() []string {
	names := make([]string, 0, len(s.Yield)+len(s.Price))
	for name := range s.Yield {
		names = append(names, name)
	}
	for name := range s.Price {
		if _, dup := s.Yield[name]; !dup {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Total sums the values against one yield curve
func (s Sensitivity) Total(curveName string) float64 {
	total := 0.0
	for _, p := range s.Yield[curveName] {
		total += p.Value
	}
	return total
}

// Equal compares the cleaned forms: same curves, same times, values within tol.
// A curve whose cleaned list is empty counts as absent.
func (s Sensitivity) Equal(other Sensitivity, tol float64) bool {
	return equalMap(cleanMap(s.Yield), cleanMap(other.Yield), tol) &&
		equalMap(cleanMap(s.Price), cleanMap(other.Price), tol)
}

func plusMap(a, b map[string][]Point) map[string][]Point {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string][]Point, len(a)+len(b))
	for name, pts := range a {
		out[name] = append([]Point(nil), pts...)
	}
	for name, pts := range b {
		merged := make([]Point, 0, len(out[name])+len(pts))
		merged = append(merged, out[name]...)
		out[name] = append(merged, pts...)
	}
	return out
}

func mapPoints(m map[string][]Point, f func(Point) Point) map[string][]Point {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string][]Point, len(m))
	for name, pts := range m {
		mapped := make([]Point, len(pts))
		for i, p := range pts {
			mapped[i] = f(p)
		}
		out[name] = mapped
	}
	return out
}

func cleanMap(m map[string][]Point) map[string][]Point {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string][]Point, len(m))
	for name, pts := range m {
		sorted := append([]Point(nil), pts...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
		cleaned := make([]Point, 0, len(sorted))
		for _, p := range sorted {
			if n := len(cleaned); n > 0 && cleaned[n-1].Time == p.Time {
				cleaned[n-1].Value += p.Value
				continue
			}
			cleaned = append(cleaned, p)
		}
		if len(cleaned) > 0 {
			out[name] = cleaned
		}
	}
	return out
}

func equalMap(a, b map[string][]Point, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for name, pa := range a {
		pb, ok := b[name]
		if !ok || len(pa) != len(pb) {
			return false
		}
		for i := range pa {
			if math.Abs(pa[i].Time-pb[i].Time) > tol || math.Abs(pa[i].Value-pb[i].Value) > tol {
				return false
			}
		}
	}
	return true
}
