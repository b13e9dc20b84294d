// Package unique synthesizes collision-checked placeholder tax-ID and phone
// values for OAuth-created accounts. The values are syntactically valid only;
// no real-world check-digit validation is performed.
package unique

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/users"
)

// maxAttempts bounds the generate-check-retry loop. Exhausting the budget
// surfaces as a conflict, never as a fallback to a non-unique value.
const maxAttempts = 10

// Rand is the source of candidate randomness. *math/rand.Rand satisfies it;
// tests substitute a deterministic source to force collisions.
type Rand interface {
	Intn(n int) int
	Int63n(n int64) int64
}

type Generator struct {
	repo users.Repository
	rnd  Rand
}

func NewGenerator(repo users.Repository, rnd Rand) *Generator {
	return &Generator{repo: repo, rnd: rnd}
}

// TaxID returns a free synthetic tax-ID: three zero-padded 3-digit groups
// and one 2-digit group, concatenated without separators.
func (g *Generator) TaxID(ctx context.Context) (string, error) {
	return g.generate(ctx, g.newTaxIDCandidate, g.repo.FindByTaxID)
}

// Phone returns a free synthetic phone: "+55" followed by 11 digits.
func (g *Generator) Phone(ctx context.Context) (string, error) {
	return g.generate(ctx, g.newPhoneCandidate, g.repo.FindByPhone)
}

func (g *Generator) newTaxIDCandidate() string {
	return fmt.Sprintf("%03d%03d%03d%02d",
		g.rnd.Intn(1000), g.rnd.Intn(1000), g.rnd.Intn(1000), g.rnd.Intn(100))
}

func (g *Generator) newPhoneCandidate() string {
	n := 10_000_000_000 + g.rnd.Int63n(90_000_000_000)
	return fmt.Sprintf("+55%d", n)
}

// generate runs the bounded generate-then-check loop against the directory.
func (g *Generator) generate(ctx context.Context, candidate func() string,
	lookup func(ctx context.Context, value string) (*models.User, error)) (string, error) {

	for attempt := 0; attempt < maxAttempts; attempt++ {
		value := candidate()

		_, err := lookup(ctx, value)
		if errors.Is(err, common.ErrNotFound) {
			return value, nil
		}
		if err != nil {
			return "", common.Transientf("directory lookup: %v", err)
		}
		// value taken, retry
	}

	return "", common.Conflictf("unique value exhausted")
}
