package engine

import (
	"sync"

	"github.com/google/uuid"
)

// RunTokenGenerator names a new run. An Evaluator calls Generate once.
type RunTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator names runs with UUIDv7 tokens. Their leading timestamp
// makes the store's token order the order runs were started in.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7. It panics only if the system
// random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a fixed list of tokens, one per call. The sample
// command uses it to append to a run named on the command line.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
}

// NewFixedGenerator returns a generator for tokens, in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next token. It panics once the list is used up,
// since a caller starting an unplanned run is misconfigured.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.tokens) == 0 {
		panic("engine: FixedGenerator has no tokens left")
	}
	token := g.tokens[0]
	g.tokens = g.tokens[1:]
	return token
}
