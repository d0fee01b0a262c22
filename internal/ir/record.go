package ir

// Run identifies one batch of evaluations of a single model.
// Tokens are UUIDv7 in production, so runs sort by creation time.
type Run struct {
	Token         string    `json:"token"`
	ModelName     string    `json:"model_name"`
	ModelHash     string    `json:"model_hash"`
	Spec          ModelSpec `json:"spec"`
	EngineVersion string    `json:"engine_version"`
	IRVersion     string    `json:"ir_version"`
	DataHash      string    `json:"data_hash,omitempty"` // empty for runs recorded before it was kept
}

// QuantityRecord is one named model quantity of a recorded evaluation.
type QuantityRecord struct {
	Name   string    `json:"name"`
	Kind   string    `json:"kind"` // "free" or "deterministic"
	Values []float64 `json:"values"`
}

// EvaluationRecord is the persisted form of one forward-model evaluation.
//
// ID is EvaluationID(ModelHash, Draws); Seq is the engine's logical clock
// value and orders evaluations within a run.
type EvaluationRecord struct {
	ID            string           `json:"id"`
	RunToken      string           `json:"run_token"`
	Seq           int64            `json:"seq"`
	Draws         Draws            `json:"draws"`
	Quantities    []QuantityRecord `json:"quantities"`
	LogLikelihood float64          `json:"log_likelihood"`
	LogPrior      float64          `json:"log_prior"`
}

// Quantity returns the values of the named quantity.
func (r EvaluationRecord) Quantity(name string) ([]float64, bool) {
	for _, q := range r.Quantities {
		if q.Name == name {
			return q.Values, true
		}
	}
	return nil, false
}
