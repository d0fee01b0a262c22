package physics

import "math"

var (
	logSqrt2Pi = 0.5 * math.Log(2*math.Pi)
	log6       = math.Log(6)
)

// NormalLogPDF is the log density of Normal(mu, sigma) at x.
func NormalLogPDF(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return -0.5*z*z - math.Log(sigma) - logSqrt2Pi
}

// HalfNormalLogPDF is the log density of HalfNormal(sigma=1) at x.
// Returns -Inf for x < 0.
func HalfNormalLogPDF(x float64) float64 {
	if x < 0 {
		return math.Inf(-1)
	}
	return math.Ln2 - logSqrt2Pi - 0.5*x*x
}

// HalfNormalDLogPDF is the derivative of HalfNormalLogPDF on its support.
func HalfNormalDLogPDF(x float64) float64 {
	return -x
}

// ChiSquared1LogPDF is the log density of ChiSquared(nu=1) at x.
// Returns -Inf for x <= 0.
func ChiSquared1LogPDF(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	// log Gamma(1/2) = log(sqrt(pi))
	return -0.5*math.Ln2 - 0.5*math.Log(math.Pi) - 0.5*math.Log(x) - 0.5*x
}

// ChiSquared1DLogPDF is the derivative of ChiSquared1LogPDF on its support.
func ChiSquared1DLogPDF(x float64) float64 {
	return -0.5 - 0.5/x
}

// Beta22LogPDF is the log density of Beta(2, 2) at x: log(6 x (1-x)).
// Returns -Inf outside [0, 1] and at the endpoints.
func Beta22LogPDF(x float64) float64 {
	if x <= 0 || x >= 1 {
		return math.Inf(-1)
	}
	return log6 + math.Log(x) + math.Log1p(-x)
}

// Beta22DLogPDF is the derivative of Beta22LogPDF on the open interval (0, 1).
func Beta22DLogPDF(x float64) float64 {
	return 1/x - 1/(1-x)
}
