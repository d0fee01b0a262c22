package testutil

// DefaultRunToken is used when a scenario names no run token.
const DefaultRunToken = "test-run-default"

// FixedRunGenerator hands out one run token forever, so every run a test
// records lands under the same token and snapshots stay byte-identical.
type FixedRunGenerator struct {
	token string
}

// NewFixedRunGenerator returns a generator for token, or for
// DefaultRunToken when token is empty.
func NewFixedRunGenerator(token string) *FixedRunGenerator {
	if token == "" {
		token = DefaultRunToken
	}
	return &FixedRunGenerator{token: token}
}

// Generate implements engine.RunTokenGenerator.
func (g *FixedRunGenerator) Generate() string {
	return g.token
}
