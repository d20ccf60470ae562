package neat

import (
	"fmt"
	"math"
)

// ActivationType defines the signature shared by all node activation functions.
type ActivationType func(x float64) float64

// activationFunctions maps function names to implementations. Genomes store
// the name; the function itself is resolved at phenotype-construction time.
var activationFunctions = map[string]ActivationType{
	"sigmoid":  SigmoidActivation,
	"tanh":     TanhActivation,
	"sin":      SinActivation,
	"gauss":    GaussActivation,
	"relu":     ReLUActivation,
	"elu":      ELUActivation,
	"lelu":     LeakyReLUActivation,
	"selu":     SELUActivation,
	"softplus": SoftplusActivation,
	"identity": IdentityActivation,
	"clamped":  ClampedActivation,
	"inv":      InvActivation,
	"log":      LogActivation,
	"exp":      ExpActivation,
	"abs":      AbsActivation,
	"hat":      HatActivation,
	"square":   SquareActivation,
	"cube":     CubeActivation,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationType, error) {
	if fn, ok := activationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function: %s", name)
}

// RegisterActivation adds a user-defined activation function to the registry
// so that configuration files may refer to it by name. Registering must
// happen before the configuration is loaded, since option validation resolves
// names eagerly.
func RegisterActivation(name string, fn ActivationType) error {
	if fn == nil {
		return fmt.Errorf("activation function %q is nil", name)
	}
	if _, exists := activationFunctions[name]; exists {
		return fmt.Errorf("activation function %q is already registered", name)
	}
	activationFunctions[name] = fn
	return nil
}

// --- Built-in activation functions ---

// SigmoidActivation is a steepened logistic sigmoid.
func SigmoidActivation(x float64) float64 {
	z := clamp(5.0*x, -60.0, 60.0)
	return 1.0 / (1.0 + math.Exp(-z))
}

// TanhActivation is a steepened hyperbolic tangent.
func TanhActivation(x float64) float64 {
	z := clamp(2.5*x, -60.0, 60.0)
	return math.Tanh(z)
}

// SinActivation is a periodic sine response.
func SinActivation(x float64) float64 {
	z := clamp(5.0*x, -60.0, 60.0)
	return math.Sin(z)
}

// GaussActivation is a narrow Gaussian bump centered at zero.
func GaussActivation(x float64) float64 {
	z := clamp(x, -3.4, 3.4)
	return math.Exp(-5.0 * z * z)
}

// ReLUActivation is the rectified linear unit.
func ReLUActivation(x float64) float64 {
	if x > 0.0 {
		return x
	}
	return 0.0
}

// ELUActivation is the exponential linear unit.
func ELUActivation(x float64) float64 {
	if x > 0.0 {
		return x
	}
	return math.Exp(x) - 1.0
}

// LeakyReLUActivation is a rectifier with a small negative-side slope.
func LeakyReLUActivation(x float64) float64 {
	if x > 0.0 {
		return x
	}
	return 0.005 * x
}

// SELUActivation is the self-normalizing exponential linear unit.
func SELUActivation(x float64) float64 {
	const (
		lam   = 1.0507009873554804934193349852946
		alpha = 1.6732632423543772848170429916717
	)
	if x > 0.0 {
		return lam * x
	}
	return lam * alpha * (math.Exp(x) - 1.0)
}

// SoftplusActivation is a smooth approximation of the rectifier.
func SoftplusActivation(x float64) float64 {
	z := clamp(5.0*x, -60.0, 60.0)
	return 0.2 * math.Log(1.0+math.Exp(z))
}

// IdentityActivation passes the input through unchanged.
func IdentityActivation(x float64) float64 {
	return x
}

// ClampedActivation clamps the input to [-1, 1].
func ClampedActivation(x float64) float64 {
	return clamp(x, -1.0, 1.0)
}

// InvActivation returns the reciprocal, with 0 mapped to 0.
func InvActivation(x float64) float64 {
	if x == 0.0 {
		return 0.0
	}
	return 1.0 / x
}

// LogActivation is the natural logarithm with the input floored at 1e-7.
func LogActivation(x float64) float64 {
	return math.Log(math.Max(1e-7, x))
}

// ExpActivation is e^x with the input clamped to avoid overflow.
func ExpActivation(x float64) float64 {
	return math.Exp(clamp(x, -60.0, 60.0))
}

// AbsActivation returns the absolute value.
func AbsActivation(x float64) float64 {
	return math.Abs(x)
}

// HatActivation is a triangular pulse centered at zero.
func HatActivation(x float64) float64 {
	return math.Max(0.0, 1.0-math.Abs(x))
}

// SquareActivation returns x squared.
func SquareActivation(x float64) float64 {
	return x * x
}

// CubeActivation returns x cubed.
func CubeActivation(x float64) float64 {
	return x * x * x
}
