package table

import (
	"math/rand"

	"github.com/lox/holdem-core/internal/gameid"
)

// generateHandID produces a new sortable, unguessable hand identifier
// using the table's own RNG so hand IDs reproduce under a seeded RNG
// the same way card shuffles do.
func generateHandID(rng *rand.Rand) string {
	return gameid.GenerateWithRandSource(rng)
}
