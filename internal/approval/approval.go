// Package approval decides which role levels may approve work routed through a
// department, from an ordered table of tier bands.
package approval

import (
	"fmt"
	"math"
	"sort"

	"github.com/frahmantamala/staff-management/internal"
)

// Range is an inclusive integer interval.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func Between(min, max int) Range { return Range{Min: min, Max: max} }

// AtLeast is an interval without an upper bound.
func AtLeast(min int) Range { return Range{Min: min, Max: math.MaxInt} }

func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) Unbounded() bool {
	return r.Max == math.MaxInt
}

type Band struct {
	Label      string `json:"label"`
	Tier       Range  `json:"tier"`
	Qualifying Range  `json:"qualifying"`
}

// DefaultBands is the approval table used by the service. Appending a band here
// is the only change needed to support a new tier.
var DefaultBands = []Band{
	{Label: "STAFF", Tier: Between(10, 15), Qualifying: Between(10, 15)},
	{Label: "SENIOR", Tier: Between(20, 25), Qualifying: Between(20, 35)},
	{Label: "LEAD", Tier: Between(30, 35), Qualifying: Between(30, 39)},
	{Label: "SUPERVISOR/MANAGER", Tier: Between(40, 45), Qualifying: Between(40, 49)},
	{Label: "EXECUTIVE", Tier: Between(50, 50), Qualifying: AtLeast(50)},
}

type RoleLevel struct {
	RoleID int64  `json:"role_id"`
	Name   string `json:"name,omitempty"`
	Level  int    `json:"level"`
}

type Result struct {
	Tier       int         `json:"tier"`
	Band       *Band       `json:"band,omitempty"`
	Qualifying []RoleLevel `json:"qualifying"`
}

type Matcher struct {
	bands []Band
}

// NewMatcher rejects tables that are unordered, overlapping or not monotonic.
func NewMatcher(bands []Band) (*Matcher, error) {
	for i, b := range bands {
		if b.Tier.Min > b.Tier.Max || b.Qualifying.Min > b.Qualifying.Max {
			return nil, fmt.Errorf("band %q: empty range", b.Label)
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		if b.Tier.Min <= prev.Tier.Max {
			return nil, fmt.Errorf("band %q: tier range overlaps or precedes band %q", b.Label, prev.Label)
		}
		if b.Qualifying.Min < prev.Qualifying.Min || b.Qualifying.Max < prev.Qualifying.Max {
			return nil, fmt.Errorf("band %q: qualifying range is lower than band %q", b.Label, prev.Label)
		}
	}
	cp := make([]Band, len(bands))
	copy(cp, bands)
	return &Matcher{bands: cp}, nil
}

// MustNewMatcher panics on an invalid table; for package-level defaults.
func MustNewMatcher(bands []Band) *Matcher {
	m, err := NewMatcher(bands)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Matcher) Bands() []Band {
	cp := make([]Band, len(m.bands))
	copy(cp, m.bands)
	return cp
}

func (m *Matcher) BandFor(tier int) (Band, bool) {
	for _, b := range m.bands {
		if b.Tier.Contains(tier) {
			return b, true
		}
	}
	return Band{}, false
}

// Match returns the roles whose level qualifies at tier, ordered by level.
// A tier outside every band yields an empty result and a warning-level error;
// callers should still render the result.
func (m *Matcher) Match(tier int, roles []RoleLevel) (Result, error) {
	result := Result{Tier: tier, Qualifying: make([]RoleLevel, 0)}

	band, ok := m.BandFor(tier)
	if !ok {
		return result, internal.NewWarning(
			fmt.Sprintf("no approval band configured for tier %d", tier),
			internal.ErrCodeNoApprovalBand,
		)
	}
	result.Band = &band

	for _, r := range roles {
		if band.Qualifying.Contains(r.Level) {
			result.Qualifying = append(result.Qualifying, r)
		}
	}
	sort.SliceStable(result.Qualifying, func(i, j int) bool {
		if result.Qualifying[i].Level != result.Qualifying[j].Level {
			return result.Qualifying[i].Level < result.Qualifying[j].Level
		}
		return result.Qualifying[i].RoleID < result.Qualifying[j].RoleID
	})

	return result, nil
}

// CanApprove reports whether a role level may approve at tier.
func (m *Matcher) CanApprove(tier, level int) bool {
	band, ok := m.BandFor(tier)
	return ok && band.Qualifying.Contains(level)
}

// BandsFor lists the bands in which a role level may approve, lowest tier first.
func (m *Matcher) BandsFor(level int) []Band {
	out := make([]Band, 0)
	for _, b := range m.bands {
		if b.Qualifying.Contains(level) {
			out = append(out, b)
		}
	}
	return out
}
