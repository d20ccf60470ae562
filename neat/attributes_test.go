package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatAttributeSpecValidate(t *testing.T) {
	spec := FloatAttributeSpec{InitType: "gaussian"}
	assert.NoError(t, spec.Validate("bias"))

	// Distribution names match loosely, the way config files spell them.
	for _, it := range []string{"normal", "uniform", "Gaussian", "gauss"} {
		spec.InitType = it
		assert.NoError(t, spec.Validate("bias"), "init type %q", it)
	}

	spec.InitType = "triangular"
	err := spec.Validate("bias")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bias_init_type")
}

func TestFloatAttributeSpecInitGaussianClamped(t *testing.T) {
	// A huge stdev against tight bounds: every draw must come back clamped.
	spec := FloatAttributeSpec{
		InitMean:  0.0,
		InitStdev: 1000.0,
		InitType:  "gaussian",
		MinValue:  -1.0,
		MaxValue:  1.0,
	}
	rng := newTestRand(1)
	for i := 0; i < 100; i++ {
		v := spec.Init(rng)
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestFloatAttributeSpecInitUniformRange(t *testing.T) {
	// Uniform draws cover mean +/- 2 stdev, intersected with the clamp
	// bounds.
	spec := FloatAttributeSpec{
		InitMean:  0.0,
		InitStdev: 2.0,
		InitType:  "uniform",
		MinValue:  -30.0,
		MaxValue:  30.0,
	}
	rng := newTestRand(2)
	for i := 0; i < 200; i++ {
		v := spec.Init(rng)
		assert.GreaterOrEqual(t, v, -4.0)
		assert.Less(t, v, 4.0)
	}

	// Bounds tighter than the init range win.
	spec.MinValue, spec.MaxValue = -1.0, 1.0
	for i := 0; i < 200; i++ {
		v := spec.Init(rng)
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestFloatAttributeSpecMutate(t *testing.T) {
	rng := newTestRand(3)

	// One uniform draw decides the outcome: perturb below MutateRate,
	// replace below MutateRate+ReplaceRate, keep otherwise. With zero
	// mutate power a triggered perturbation leaves the value untouched,
	// which makes the partition observable.
	perturbOnly := FloatAttributeSpec{
		InitType:    "gaussian",
		MinValue:    -100.0,
		MaxValue:    100.0,
		MutatePower: 0.0,
		MutateRate:  1.0,
	}
	assert.Equal(t, 42.0, perturbOnly.Mutate(42.0, rng))

	// Replacement re-inits; a degenerate uniform init pins the new value.
	replaceOnly := FloatAttributeSpec{
		InitMean:    5.0,
		InitStdev:   0.0,
		InitType:    "uniform",
		MinValue:    -100.0,
		MaxValue:    100.0,
		ReplaceRate: 1.0,
	}
	assert.Equal(t, 5.0, replaceOnly.Mutate(42.0, rng))

	noChange := FloatAttributeSpec{InitType: "gaussian", MinValue: -100.0, MaxValue: 100.0}
	assert.Equal(t, 42.0, noChange.Mutate(42.0, rng))
}

func TestFloatAttributeSpecMutateClamps(t *testing.T) {
	spec := FloatAttributeSpec{
		InitType:    "gaussian",
		MinValue:    -1.0,
		MaxValue:    1.0,
		MutatePower: 50.0,
		MutateRate:  1.0,
	}
	rng := newTestRand(4)
	for i := 0; i < 100; i++ {
		v := spec.Mutate(0.0, rng)
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestBoolAttributeSpecValidate(t *testing.T) {
	for _, d := range []string{"1", "on", "Yes", "true", "0", "off", "no", "False", "random", "none"} {
		spec := BoolAttributeSpec{Default: d}
		assert.NoError(t, spec.Validate("enabled"), "default %q", d)
	}

	spec := BoolAttributeSpec{Default: "maybe"}
	err := spec.Validate("enabled")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enabled_default")
}

func TestBoolAttributeSpecInit(t *testing.T) {
	rng := newTestRand(5)

	for _, d := range []string{"1", "on", "yes", "True"} {
		spec := BoolAttributeSpec{Default: d}
		assert.True(t, spec.Init(rng), "default %q", d)
	}
	for _, d := range []string{"0", "off", "no", "false"} {
		spec := BoolAttributeSpec{Default: d}
		assert.False(t, spec.Init(rng), "default %q", d)
	}

	// "random" resolves to a coin flip; both faces must show up.
	spec := BoolAttributeSpec{Default: "random"}
	seen := map[bool]int{}
	for i := 0; i < 100; i++ {
		seen[spec.Init(rng)]++
	}
	assert.Positive(t, seen[true])
	assert.Positive(t, seen[false])
}

func TestBoolAttributeSpecMutate(t *testing.T) {
	rng := newTestRand(6)

	// Zero rates never touch the value.
	frozen := BoolAttributeSpec{}
	for i := 0; i < 50; i++ {
		assert.False(t, frozen.Mutate(false, rng))
		assert.True(t, frozen.Mutate(true, rng))
	}

	// The additive rate applies only to the matching state: with only
	// rate_to_true_add set, a true value is never reconsidered while a
	// false one is redrawn (and the redraw is a fair coin, so both faces
	// appear).
	skewed := BoolAttributeSpec{RateToTrueAdd: 1.0}
	seen := map[bool]int{}
	for i := 0; i < 100; i++ {
		assert.True(t, skewed.Mutate(true, rng))
		seen[skewed.Mutate(false, rng)]++
	}
	assert.Positive(t, seen[true])
	assert.Positive(t, seen[false])
}

func TestStringAttributeSpecValidate(t *testing.T) {
	spec := StringAttributeSpec{Default: "sigmoid", Options: []string{"sigmoid", "tanh"}}
	assert.NoError(t, spec.Validate("activation"))

	spec.Default = "random"
	assert.NoError(t, spec.Validate("activation"))

	spec.Default = "relu"
	err := spec.Validate("activation")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not among")

	spec = StringAttributeSpec{Default: "sigmoid"}
	err = spec.Validate("activation")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "activation_options is empty")
}

func TestStringAttributeSpecInit(t *testing.T) {
	rng := newTestRand(7)

	spec := StringAttributeSpec{Default: "sigmoid", Options: []string{"sigmoid", "tanh"}}
	assert.Equal(t, "sigmoid", spec.Init(rng))

	spec.Default = "random"
	seen := map[string]int{}
	for i := 0; i < 100; i++ {
		seen[spec.Init(rng)]++
	}
	assert.Positive(t, seen["sigmoid"])
	assert.Positive(t, seen["tanh"])
}

func TestStringAttributeSpecMutate(t *testing.T) {
	rng := newTestRand(8)

	spec := StringAttributeSpec{MutateRate: 0.0, Options: []string{"sigmoid", "tanh"}}
	for i := 0; i < 50; i++ {
		assert.Equal(t, "sigmoid", spec.Mutate("sigmoid", rng))
	}

	// A triggered redraw picks uniformly among all options, including the
	// current value.
	spec.MutateRate = 1.0
	spec.Options = []string{"tanh"}
	assert.Equal(t, "tanh", spec.Mutate("sigmoid", rng))
}

func TestAttributeSpecsCallableOnAccessorResults(t *testing.T) {
	// The config accessors return specs by value; Init/Mutate/Validate must be
	// callable directly on those temporaries.
	config := newTestConfig(t)
	rng := newTestRand(7)
	gc := &config.Genome

	require.NoError(t, gc.biasAttr().Validate("bias"))
	bias := gc.biasAttr().Init(rng)
	assert.GreaterOrEqual(t, bias, gc.BiasMinValue)
	assert.LessOrEqual(t, bias, gc.BiasMaxValue)

	weight := gc.weightAttr().Mutate(0.0, rng)
	assert.GreaterOrEqual(t, weight, gc.WeightMinValue)
	assert.LessOrEqual(t, weight, gc.WeightMaxValue)

	require.NoError(t, gc.enabledAttr().Validate("enabled"))
	_ = gc.enabledAttr().Mutate(true, rng)

	act := gc.activationAttr().Init(rng)
	assert.Contains(t, gc.ActivationOptions, act)
	agg := gc.aggregationAttr().Mutate(gc.AggregationDefault, rng)
	assert.Contains(t, gc.AggregationOptions, agg)
}
