package neat

import (
	"fmt"
	"math"
)

// AggregationType defines the signature shared by all aggregation functions.
// Aggregations reduce a node's weighted inputs to a single value.
type AggregationType func(inputs []float64) float64

// aggregationFunctions maps function names to implementations.
var aggregationFunctions = map[string]AggregationType{
	"product": ProductAggregation,
	"sum":     SumAggregation,
	"max":     MaxAggregation,
	"min":     MinAggregation,
	"maxabs":  MaxAbsAggregation,
	"median":  MedianAggregation,
	"mean":    MeanAggregation,
}

// GetAggregation retrieves an aggregation function by name.
func GetAggregation(name string) (AggregationType, error) {
	if fn, ok := aggregationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown aggregation function: %s", name)
}

// RegisterAggregation adds a user-defined aggregation function to the
// registry. Like RegisterActivation, it must be called before configuration
// loading so that option validation can resolve the name.
func RegisterAggregation(name string, fn AggregationType) error {
	if fn == nil {
		return fmt.Errorf("aggregation function %q is nil", name)
	}
	if _, exists := aggregationFunctions[name]; exists {
		return fmt.Errorf("aggregation function %q is already registered", name)
	}
	aggregationFunctions[name] = fn
	return nil
}

// --- Built-in aggregation functions ---

// ProductAggregation multiplies the inputs together, yielding 1.0 when empty.
func ProductAggregation(inputs []float64) float64 {
	product := 1.0
	for _, v := range inputs {
		product *= v
	}
	return product
}

// SumAggregation adds the inputs.
func SumAggregation(inputs []float64) float64 {
	return Sum(inputs)
}

// MaxAggregation returns the largest input.
func MaxAggregation(inputs []float64) float64 {
	return MaxFloat(inputs)
}

// MinAggregation returns the smallest input.
func MinAggregation(inputs []float64) float64 {
	return MinFloat(inputs)
}

// MaxAbsAggregation returns the input with the largest magnitude, keeping
// its sign.
func MaxAbsAggregation(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0.0
	}
	result := inputs[0]
	for _, v := range inputs[1:] {
		if math.Abs(v) > math.Abs(result) {
			result = v
		}
	}
	return result
}

// MedianAggregation returns the median input.
func MedianAggregation(inputs []float64) float64 {
	return Median(inputs)
}

// MeanAggregation returns the average input.
func MeanAggregation(inputs []float64) float64 {
	return Mean(inputs)
}
