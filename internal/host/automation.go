package host

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidAutomation is returned for malformed automation or block-size lists.
var ErrInvalidAutomation = errors.New("host: invalid automation")

// Breakpoint sets the mix to Mix at Time seconds.
type Breakpoint struct {
	Time float64
	Mix  float64
}

// Automation is a mix envelope sorted by time. Between breakpoints the
// mix is interpolated linearly; outside them it holds the nearest value.
type Automation []Breakpoint

// ParseAutomation parses "time:mix" pairs separated by commas, for
// example "0:0,2:1,4.5:0.3". An empty string yields no automation.
func ParseAutomation(s string) (Automation, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var a Automation
	for field := range strings.SplitSeq(s, ",") {
		ts, ms, ok := strings.Cut(strings.TrimSpace(field), ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not time:mix", ErrInvalidAutomation, field)
		}

		t, err := strconv.ParseFloat(strings.TrimSpace(ts), 64)
		if err != nil || t < 0 {
			return nil, fmt.Errorf("%w: bad time %q", ErrInvalidAutomation, ts)
		}
		m, err := strconv.ParseFloat(strings.TrimSpace(ms), 64)
		if err != nil || m < 0 || m > 1 {
			return nil, fmt.Errorf("%w: bad mix %q", ErrInvalidAutomation, ms)
		}

		a = append(a, Breakpoint{Time: t, Mix: m})
	}

	slices.SortStableFunc(a, func(x, y Breakpoint) int {
		switch {
		case x.Time < y.Time:
			return -1
		case x.Time > y.Time:
			return 1
		}
		return 0
	})

	return a, nil
}

// At returns the mix value at time t. It reports false when a is empty.
func (a Automation) At(t float64) (float64, bool) {
	if len(a) == 0 {
		return 0, false
	}
	if t <= a[0].Time {
		return a[0].Mix, true
	}

	for i := 1; i < len(a); i++ {
		next := a[i]
		if t >= next.Time {
			continue
		}
		prev := a[i-1]
		frac := (t - prev.Time) / (next.Time - prev.Time)
		return prev.Mix + frac*(next.Mix-prev.Mix), true
	}

	return a[len(a)-1].Mix, true
}

// ParseBlockSizes parses a comma-separated list of positive block sizes.
func ParseBlockSizes(s string) ([]int, error) {
	var sizes []int
	for field := range strings.SplitSeq(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: bad block size %q", ErrInvalidAutomation, field)
		}
		sizes = append(sizes, n)
	}

	if len(sizes) == 0 {
		return nil, fmt.Errorf("%w: empty block size list", ErrInvalidAutomation)
	}

	return sizes, nil
}
