package model

import (
	"fmt"
	"slices"

	"github.com/tvwenger/bayes-zeeman-hi/internal/physics"
)

// SiteKind classifies a registered quantity.
type SiteKind string

const (
	// KindFree is a standardized random variable supplied by the sampler.
	KindFree SiteKind = "free"

	// KindDeterministic is a physical quantity computed from free variables.
	KindDeterministic SiteKind = "deterministic"
)

// DimCloud is the dimension name of per-cloud quantities.
const DimCloud = "cloud"

// Quantity is a named value registered on a Trace.
// Scalars have no Dims and a single value.
type Quantity struct {
	Name   string    `json:"name"`
	Kind   SiteKind  `json:"kind"`
	Dims   []string  `json:"dims,omitempty"`
	Values []float64 `json:"values"`
}

// Scalar reports whether q has no dimensions.
func (q Quantity) Scalar() bool {
	return len(q.Dims) == 0
}

// Observation is a Normal observation site: Observed ~ Normal(Mu, Sigma),
// independently per element.
type Observation struct {
	Name     string    `json:"name"`
	Mu       []float64 `json:"mu"`
	Sigma    []float64 `json:"sigma"`
	Observed []float64 `json:"observed"`
}

// LogLikelihood sums the Normal log density over all elements.
func (o Observation) LogLikelihood() float64 {
	var ll float64
	for i, x := range o.Observed {
		ll += physics.NormalLogPDF(x, o.Mu[i], o.Sigma[i])
	}
	return ll
}

// Trace is the explicit model context of one evaluation: priors,
// deterministics and observation sites are registered on it by name.
//
// A Trace belongs to a single evaluation and is not safe for concurrent
// mutation. Registered values are copied, so callers may reuse their slices.
type Trace struct {
	quantities   map[string]Quantity
	order        []string
	observations map[string]Observation
	obsOrder     []string
}

// NewTrace creates an empty trace.
func NewTrace() *Trace {
	return &Trace{
		quantities:   make(map[string]Quantity),
		observations: make(map[string]Observation),
	}
}

// Register adds a quantity. Names are unique across quantities and
// observations.
func (t *Trace) Register(q Quantity) error {
	if t.has(q.Name) {
		return fmt.Errorf("register %q: %w", q.Name, ErrDuplicateSite)
	}
	q.Values = slices.Clone(q.Values)
	q.Dims = slices.Clone(q.Dims)
	t.quantities[q.Name] = q
	t.order = append(t.order, q.Name)
	return nil
}

// Observe adds an observation site. Mu, Sigma and Observed must be parallel.
func (t *Trace) Observe(o Observation) error {
	if t.has(o.Name) {
		return fmt.Errorf("observe %q: %w", o.Name, ErrDuplicateSite)
	}
	if len(o.Mu) != len(o.Observed) || len(o.Sigma) != len(o.Observed) {
		return fmt.Errorf("observe %q: mu/sigma/observed lengths %d/%d/%d differ",
			o.Name, len(o.Mu), len(o.Sigma), len(o.Observed))
	}
	o.Mu = slices.Clone(o.Mu)
	o.Sigma = slices.Clone(o.Sigma)
	o.Observed = slices.Clone(o.Observed)
	t.observations[o.Name] = o
	t.obsOrder = append(t.obsOrder, o.Name)
	return nil
}

func (t *Trace) has(name string) bool {
	_, q := t.quantities[name]
	_, o := t.observations[name]
	return q || o
}

// Lookup returns the quantity registered under name.
func (t *Trace) Lookup(name string) (Quantity, bool) {
	q, ok := t.quantities[name]
	return q, ok
}

// Values returns the values of a registered quantity.
func (t *Trace) Values(name string) ([]float64, error) {
	q, ok := t.quantities[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownSite)
	}
	return q.Values, nil
}

// Scalar returns the value of a registered scalar quantity.
func (t *Trace) Scalar(name string) (float64, error) {
	q, ok := t.quantities[name]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownSite)
	}
	if !q.Scalar() || len(q.Values) != 1 {
		return 0, fmt.Errorf("%q is not a scalar (dims %v)", name, q.Dims)
	}
	return q.Values[0], nil
}

// Names returns quantity names in registration order.
func (t *Trace) Names() []string {
	return slices.Clone(t.order)
}

// Quantities returns all quantities in registration order.
func (t *Trace) Quantities() []Quantity {
	out := make([]Quantity, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.quantities[name])
	}
	return out
}

// Observation returns the observation site registered under name.
func (t *Trace) Observation(name string) (Observation, bool) {
	o, ok := t.observations[name]
	return o, ok
}

// Observations returns observation sites in registration order.
func (t *Trace) Observations() []Observation {
	out := make([]Observation, 0, len(t.obsOrder))
	for _, name := range t.obsOrder {
		out = append(out, t.observations[name])
	}
	return out
}

// LogLikelihood sums the log likelihood of every observation site.
func (t *Trace) LogLikelihood() float64 {
	var ll float64
	for _, name := range t.obsOrder {
		ll += t.observations[name].LogLikelihood()
	}
	return ll
}
