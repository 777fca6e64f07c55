package simulation

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/matchmaker/internal/domain/model"
)

// generator builds units: a solo entrant or a whole group. It is not safe
// for concurrent use; every producer owns one.
type generator struct {
	cfg Config
	rng *rand.Rand
}

func newGenerator(cfg Config, stream uint64) *generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &generator{cfg: cfg, rng: rand.New(rand.NewPCG(seed, stream))}
}

// next returns one unit. Enqueue times are left to the receiver.
func (g *generator) next() []model.Entrant {
	if g.rng.IntN(100) < g.cfg.GroupChance {
		return g.group()
	}
	return []model.Entrant{{ID: uuid.NewString(), Skill: g.skill()}}
}

func (g *generator) group() []model.Entrant {
	size := g.between(g.cfg.MinGroupSize, g.cfg.MaxGroupSize)
	avg := g.skill()
	half := g.cfg.GroupSpread / 2
	id := model.GroupID(uuid.NewString())

	members := make([]model.Entrant, size)
	for i := range members {
		members[i] = model.Entrant{
			ID:    uuid.NewString(),
			Skill: g.clamp(avg - half + g.rng.IntN(g.cfg.GroupSpread+1)),
			Group: id,
		}
	}
	return members
}

func (g *generator) skill() int {
	return g.between(g.cfg.MinSkill, g.cfg.MaxSkill)
}

func (g *generator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.IntN(hi-lo+1)
}

func (g *generator) clamp(skill int) int {
	return max(g.cfg.MinSkill, min(g.cfg.MaxSkill, skill))
}
