// Package lags resolves lag specifications and turns series into the
// feature tables consumed by regression-based forecasting models.
//
// A lag is an offset, in time steps, relative to the predicted time step.
// Target and past covariate lags are strictly negative. Future covariate
// lags may also reference the predicted step (0) and later steps.
package lags

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrInvalidLags is returned for malformed lag specifications.
	ErrInvalidLags = errors.New("lags: invalid specification")
	// ErrNoLags is returned when no lag kind is specified at all.
	ErrNoLags = errors.New("lags: at least one of target, past or future covariate lags is required")
)

// Kind identifies which series a lag specification applies to.
type Kind int

const (
	Target Kind = iota
	Past
	Future
)

func (k Kind) String() string {
	switch k {
	case Target:
		return "lags"
	case Past:
		return "lags_past_covariates"
	case Future:
		return "lags_future_covariates"
	}
	return "unknown"
}

type form int

const (
	formNone form = iota
	formCount
	formList
	formTuple
)

// Spec is a lag specification as provided by a caller: a count, an explicit
// list or a (past, future) tuple. The zero value means "not used".
type Spec struct {
	form   form
	count  int
	list   []int
	past   int
	future int
}

// Count uses the last n steps, from lag -1 backward.
func Count(n int) Spec { return Spec{form: formCount, count: n} }

// List uses the given lags.
func List(lags ...int) Spec { return Spec{form: formList, list: append([]int(nil), lags...)} }

// Tuple uses past steps before the predicted step and future steps from
// the predicted step onward. Only valid for future covariates.
func Tuple(past, future int) Spec { return Spec{form: formTuple, past: past, future: future} }

// IsZero reports whether the specification is unset.
func (s Spec) IsZero() bool { return s.form == formNone }

// String renders the specification as given by the caller.
func (s Spec) String() string {
	switch s.form {
	case formCount:
		return strconv.Itoa(s.count)
	case formList:
		return formatInts(s.list)
	case formTuple:
		return fmt.Sprintf("(%d, %d)", s.past, s.future)
	}
	return "None"
}

func formatInts(v []int) string {
	parts := make([]string, len(v))
	for i, l := range v {
		parts[i] = strconv.Itoa(l)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Resolve expands the specification into a sorted list of unique lags for
// the given kind. An unset specification resolves to nil.
func (s Spec) Resolve(kind Kind) ([]int, error) {
	switch s.form {
	case formNone:
		return nil, nil
	case formCount:
		if s.count <= 0 {
			return nil, fmt.Errorf("%w: %s count must be > 0, got %d", ErrInvalidLags, kind, s.count)
		}
		if kind == Future {
			return nil, fmt.Errorf("%w: %s takes a (past, future) tuple or a list, got an integer", ErrInvalidLags, kind)
		}
		out := make([]int, s.count)
		for i := range out {
			out[i] = -s.count + i
		}
		return out, nil
	case formList:
		if len(s.list) == 0 {
			return nil, fmt.Errorf("%w: %s list is empty", ErrInvalidLags, kind)
		}
		if kind != Future {
			for _, l := range s.list {
				if l >= 0 {
					return nil, fmt.Errorf("%w: %s must all be < 0, got %d", ErrInvalidLags, kind, l)
				}
			}
		}
		return uniqueSorted(s.list), nil
	case formTuple:
		if kind != Future {
			return nil, fmt.Errorf("%w: %s does not accept a tuple", ErrInvalidLags, kind)
		}
		if s.past < 0 || s.future < 0 || s.past+s.future == 0 {
			return nil, fmt.Errorf("%w: %s tuple needs non-negative values, not both zero, got %s", ErrInvalidLags, kind, s)
		}
		out := make([]int, 0, s.past+s.future)
		for l := -s.past; l < s.future; l++ {
			out = append(out, l)
		}
		return out, nil
	}
	return nil, ErrInvalidLags
}

func uniqueSorted(in []int) []int {
	cp := append([]int(nil), in...)
	sort.Ints(cp)
	out := cp[:0]
	for i, v := range cp {
		if i == 0 || v != cp[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// Set holds resolved lags for every series kind.
type Set struct {
	Target []int
	Past   []int
	Future []int
}

// NewSet resolves the three specifications. At least one must be set.
func NewSet(target, past, future Spec) (Set, error) {
	var (
		s   Set
		err error
	)
	if s.Target, err = target.Resolve(Target); err != nil {
		return Set{}, err
	}
	if s.Past, err = past.Resolve(Past); err != nil {
		return Set{}, err
	}
	if s.Future, err = future.Resolve(Future); err != nil {
		return Set{}, err
	}
	if len(s.Target)+len(s.Past)+len(s.Future) == 0 {
		return Set{}, ErrNoLags
	}
	return s, nil
}

// MinLag returns the most negative lag across all kinds (0 if none is negative).
func (s Set) MinLag() int {
	m := 0
	for _, ls := range [][]int{s.Target, s.Past, s.Future} {
		if len(ls) > 0 && ls[0] < m {
			m = ls[0]
		}
	}
	return m
}

// MaxFutureLag returns the largest future covariate lag, or -1 if none.
func (s Set) MaxFutureLag() int {
	if len(s.Future) == 0 {
		return -1
	}
	return s.Future[len(s.Future)-1]
}
