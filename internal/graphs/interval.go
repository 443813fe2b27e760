package graphs

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

type Interval string

const (
	Interval24Hours Interval = "24hours"
	Interval1Month  Interval = "1month"
	Interval3Months Interval = "3months"
	IntervalAll     Interval = "all"
)

var (
	ErrUnknownInterval = errors.New("unknown interval")
	ErrDisabled        = errors.New("interval selector is disabled")
)

// AllIntervals lists every interval in display order.
var AllIntervals = []Interval{Interval24Hours, Interval1Month, Interval3Months, IntervalAll}

var labels = map[Interval]string{
	Interval24Hours: "24 Hours",
	Interval1Month:  "1 Month",
	Interval3Months: "3 Months",
	IntervalAll:     "All data",
}

func ParseInterval(s string) (Interval, error) {
	i := Interval(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := labels[i]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownInterval, s)
	}
	return i, nil
}

// Label returns the human label, or the raw value for unknown intervals.
func (i Interval) Label() string {
	if l, ok := labels[i]; ok {
		return l
	}
	return string(i)
}

const day = 24 * time.Hour

// Window returns the earliest sample time covered by i. A month is 30 days.
// IntervalAll yields the zero time.
func (i Interval) Window(now time.Time) time.Time {
	switch i {
	case Interval24Hours:
		return now.Add(-day)
	case Interval1Month:
		return now.Add(-30 * day)
	case Interval3Months:
		return now.Add(-90 * day)
	default:
		return time.Time{}
	}
}

// Option is one row of the selector as a view renders it.
type Option struct {
	Interval Interval `json:"interval"`
	Label    string   `json:"label"`
	Active   bool     `json:"active"`
	Disabled bool     `json:"disabled"`
}

// Selector is the graph interval picker. The active interval only changes
// through Select.
type Selector struct {
	mu       sync.Mutex
	options  []Interval
	active   Interval
	disabled bool
	onChange func(Interval)
}

// NewSelector builds a selector over options with initial as the active
// interval. initial must be one of options.
func NewSelector(options []Interval, initial Interval, onChange func(Interval)) (*Selector, error) {
	if len(options) == 0 {
		options = AllIntervals
	}
	opts := make([]Interval, 0, len(options))
	for _, o := range options {
		if _, ok := labels[o]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownInterval, o)
		}
		opts = append(opts, o)
	}
	if !contains(opts, initial) {
		return nil, fmt.Errorf("%w: initial %q is not an option", ErrUnknownInterval, initial)
	}
	return &Selector{options: opts, active: initial, onChange: onChange}, nil
}

func (s *Selector) Active() Interval {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Selector) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

func (s *Selector) SetDisabled(disabled bool) {
	s.mu.Lock()
	s.disabled = disabled
	s.mu.Unlock()
}

// Select makes i the active interval and reports whether it changed.
// A disabled selector rejects every selection; selecting the active interval
// is a no-op and does not invoke the callback.
func (s *Selector) Select(i Interval) (bool, error) {
	s.mu.Lock()
	if s.disabled {
		s.mu.Unlock()
		return false, ErrDisabled
	}
	if !contains(s.options, i) {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %q", ErrUnknownInterval, i)
	}
	if s.active == i {
		s.mu.Unlock()
		return false, nil
	}
	s.active = i
	cb := s.onChange
	s.mu.Unlock()

	if cb != nil {
		cb(i)
	}
	return true, nil
}

func (s *Selector) Options() []Option {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Option, 0, len(s.options))
	for _, o := range s.options {
		out = append(out, Option{
			Interval: o,
			Label:    o.Label(),
			Active:   o == s.active,
			Disabled: s.disabled,
		})
	}
	return out
}

func contains(list []Interval, i Interval) bool {
	for _, o := range list {
		if o == i {
			return true
		}
	}
	return false
}
