package neat

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// The attribute specs describe how a single gene attribute is initialized,
// mutated and clamped. Gene types hold the values; the specs live on the
// genome config, assembled from the per-attribute config parameters.

// FloatAttributeSpec governs a continuous attribute such as a connection
// weight or a node bias.
type FloatAttributeSpec struct {
	InitMean    float64
	InitStdev   float64
	InitType    string // "gaussian"/"normal" or "uniform"
	MinValue    float64
	MaxValue    float64
	MutatePower float64
	MutateRate  float64
	ReplaceRate float64
}

// Validate reports a configuration error if the init type is not a known
// distribution. name is the config parameter prefix, e.g. "bias".
func (s FloatAttributeSpec) Validate(name string) error {
	t := strings.ToLower(s.InitType)
	if strings.Contains(t, "gauss") || strings.Contains(t, "normal") || strings.Contains(t, "uniform") {
		return nil
	}
	return fmt.Errorf("config error: unknown %s_init_type %q (expected gaussian/normal or uniform)", name, s.InitType)
}

// Init draws a fresh attribute value. Gaussian draws are clamped to
// [MinValue, MaxValue]; uniform draws cover the init range intersected with
// the clamp bounds.
func (s FloatAttributeSpec) Init(rng *rand.Rand) float64 {
	t := strings.ToLower(s.InitType)
	if strings.Contains(t, "uniform") {
		lo := math.Max(s.MinValue, s.InitMean-2*s.InitStdev)
		hi := math.Min(s.MaxValue, s.InitMean+2*s.InitStdev)
		if hi < lo {
			hi = lo
		}
		return lo + rng.Float64()*(hi-lo)
	}
	// Validation only admits gaussian/normal beyond this point.
	return clamp(s.InitMean+rng.NormFloat64()*s.InitStdev, s.MinValue, s.MaxValue)
}

// Mutate returns the attribute's next value: perturbed by a zero-mean
// gaussian of MutatePower at MutateRate, freshly re-drawn at ReplaceRate,
// unchanged otherwise.
func (s FloatAttributeSpec) Mutate(value float64, rng *rand.Rand) float64 {
	r := rng.Float64()
	if r < s.MutateRate {
		return clamp(value+rng.NormFloat64()*s.MutatePower, s.MinValue, s.MaxValue)
	}
	if r < s.MutateRate+s.ReplaceRate {
		return s.Init(rng)
	}
	return value
}

// BoolAttributeSpec governs a boolean attribute (the connection enabled
// flag).
type BoolAttributeSpec struct {
	Default        string // "true", "false", "random"/"none", or 1/0/yes/no/on/off
	MutateRate     float64
	RateToTrueAdd  float64
	RateToFalseAdd float64
}

// Validate reports a configuration error for an unrecognized default string.
func (s BoolAttributeSpec) Validate(name string) error {
	switch strings.ToLower(strings.TrimSpace(s.Default)) {
	case "1", "on", "yes", "true", "0", "off", "no", "false", "random", "none":
		return nil
	}
	return fmt.Errorf("config error: unknown %s_default %q", name, s.Default)
}

// Init returns the configured default, resolving "random"/"none" to a coin
// flip.
func (s BoolAttributeSpec) Init(rng *rand.Rand) bool {
	switch strings.ToLower(strings.TrimSpace(s.Default)) {
	case "1", "on", "yes", "true":
		return true
	case "random", "none":
		return rng.Float64() < 0.5
	}
	return false
}

// Mutate re-draws the value at the effective mutation rate. The additive
// rates skew how often each state is reconsidered; the redraw itself is a
// fair coin, so a triggered mutation may keep the current value.
func (s BoolAttributeSpec) Mutate(value bool, rng *rand.Rand) bool {
	rate := s.MutateRate
	if value {
		rate += s.RateToFalseAdd
	} else {
		rate += s.RateToTrueAdd
	}
	if rate > 0 && rng.Float64() < rate {
		return rng.Float64() < 0.5
	}
	return value
}

// StringAttributeSpec governs a categorical attribute chosen from a fixed
// options list (activation and aggregation function names).
type StringAttributeSpec struct {
	Default    string // an option name, or "random"/"none"
	MutateRate float64
	Options    []string
}

// Validate reports a configuration error when the options list is empty or
// the default names a value outside it.
func (s StringAttributeSpec) Validate(name string) error {
	if len(s.Options) == 0 {
		return fmt.Errorf("config error: %s_options is empty", name)
	}
	d := strings.ToLower(s.Default)
	if d == "random" || d == "none" || d == "" {
		return nil
	}
	for _, opt := range s.Options {
		if opt == s.Default {
			return nil
		}
	}
	return fmt.Errorf("config error: %s_default %q is not among %s_options %v", name, s.Default, name, s.Options)
}

// Init returns the configured default, or a uniformly chosen option when the
// default is "random"/"none".
func (s StringAttributeSpec) Init(rng *rand.Rand) string {
	d := strings.ToLower(s.Default)
	if d == "random" || d == "none" || d == "" {
		return s.Options[rng.IntN(len(s.Options))]
	}
	return s.Default
}

// Mutate re-draws uniformly from the options at MutateRate; the draw may
// land on the current value.
func (s StringAttributeSpec) Mutate(value string, rng *rand.Rand) string {
	if s.MutateRate > 0 && rng.Float64() < s.MutateRate {
		return s.Options[rng.IntN(len(s.Options))]
	}
	return value
}
