package rebalance_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchmaker/internal/domain/fairness"
	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/internal/domain/rebalance"
	"github.com/okian/matchmaker/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var seq int

func entrants(group model.GroupID, skills ...int) []model.Entrant {
	out := make([]model.Entrant, len(skills))
	for i, s := range skills {
		seq++
		out[i] = model.Entrant{ID: fmt.Sprintf("e%d", seq), Skill: s, Group: group}
	}
	return out
}

func repeat(skill, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = skill
	}
	return out
}

func concat(parts ...[]model.Entrant) []model.Entrant {
	var out []model.Entrant
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// splitGroups reports whether any group has members on both sides.
func splitGroups(first, second []model.Entrant) bool {
	left := map[model.GroupID]bool{}
	for _, e := range first {
		if e.Group != model.NoGroup {
			left[e.Group] = true
		}
	}
	for _, e := range second {
		if left[e.Group] {
			return true
		}
	}
	return false
}

func sortedIDs(es []model.Entrant) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	slices.Sort(out)
	return out
}

func TestBest(t *testing.T) {
	Convey("Given a rebalancer", t, func() {
		r := rebalance.New()

		Convey("When both teams already have equal skill", func() {
			first := entrants(model.NoGroup, repeat(500, 6)...)
			second := entrants(model.NoGroup, repeat(500, 6)...)
			res := r.Best(first, second)

			Convey("Then every split is tried and the original is kept", func() {
				So(res.Candidates, ShouldEqual, 924)
				So(res.Legal, ShouldEqual, 924)
				So(res.Before, ShouldEqual, 0)
				So(res.After, ShouldEqual, 0)
				So(res.Changed, ShouldBeFalse)
				So(res.First, ShouldResemble, first)
				So(res.Second, ShouldResemble, second)
			})
		})

		Convey("When low and high solo entrants sit on opposite teams", func() {
			first := entrants(model.NoGroup, repeat(100, 6)...)
			second := entrants(model.NoGroup, repeat(900, 6)...)
			res := r.Best(first, second)

			Convey("Then they are mixed into an even split", func() {
				So(res.Before, ShouldEqual, 4800)
				So(res.After, ShouldEqual, 0)
				So(res.Changed, ShouldBeTrue)
				So(res.First, ShouldHaveLength, 6)
				So(res.Second, ShouldHaveLength, 6)
				So(model.SkillSum(res.First), ShouldEqual, 3000)
				So(model.SkillSum(res.Second), ShouldEqual, 3000)
				So(sortedIDs(concat(res.First, res.Second)), ShouldResemble, sortedIDs(concat(first, second)))
			})
		})

		Convey("When only splitting a group would lower the difference", func() {
			first := concat(entrants("G1", 1000, 1000, 1000), entrants(model.NoGroup, 0, 0, 0))
			second := entrants(model.NoGroup, repeat(400, 6)...)
			res := r.Best(first, second)

			Convey("Then the group stays together and the difference is unchanged", func() {
				So(res.Before, ShouldEqual, 600)
				So(res.After, ShouldEqual, 600)
				So(res.Legal, ShouldBeLessThan, res.Candidates)
				So(splitGroups(res.First, res.Second), ShouldBeFalse)
			})
		})

		Convey("When groups can be swapped as units", func() {
			first := concat(entrants("G1", 100, 100), entrants(model.NoGroup, 900, 900, 900, 900))
			second := concat(entrants("G2", 900, 900), entrants(model.NoGroup, 100, 100, 100, 100))
			res := r.Best(first, second)

			Convey("Then the best legal split is found", func() {
				So(res.Before, ShouldEqual, 1600)
				So(res.After, ShouldEqual, 0)
				So(res.Changed, ShouldBeTrue)
				So(splitGroups(res.First, res.Second), ShouldBeFalse)
				So(sortedIDs(concat(res.First, res.Second)), ShouldResemble, sortedIDs(concat(first, second)))
			})
		})

		Convey("When one team is a single group", func() {
			first := entrants("G1", repeat(900, 6)...)
			second := entrants(model.NoGroup, repeat(100, 6)...)
			res := r.Best(first, second)

			Convey("Then only the original split and its mirror are legal", func() {
				So(res.Legal, ShouldEqual, 2)
				So(res.After, ShouldEqual, res.Before)
				So(res.Changed, ShouldBeFalse)
			})
		})

		Convey("When the teams are larger than the search limit", func() {
			size := rebalance.MaxTeamSize + 1
			first := entrants(model.NoGroup, repeat(100, size)...)
			second := entrants(model.NoGroup, repeat(900, size)...)
			res := r.Best(first, second)

			Convey("Then no split is enumerated and the teams are kept", func() {
				So(res.Candidates, ShouldEqual, 0)
				So(res.Changed, ShouldBeFalse)
				So(res.After, ShouldEqual, res.Before)
				So(res.First, ShouldResemble, first)
				So(res.Second, ShouldResemble, second)
			})
		})

		Convey("When the teams are exactly at the search limit", func() {
			first := entrants(model.NoGroup, repeat(100, rebalance.MaxTeamSize)...)
			second := entrants(model.NoGroup, repeat(900, rebalance.MaxTeamSize)...)
			res := r.Best(first, second)

			Convey("Then every split is searched", func() {
				So(res.Candidates, ShouldEqual, rebalance.Binomial(2*rebalance.MaxTeamSize, rebalance.MaxTeamSize))
				So(res.After, ShouldEqual, 0)
			})
		})
	})
}

func TestRebalance(t *testing.T) {
	Convey("Given a ready match with lopsided teams", t, func() {
		rules := &model.Rules{Capacity: 6, PlayerTolerance: 1000, TeamTolerance: 10000, Fairness: fairness.NewPolicy(25, 4, time.Second)}
		t1, t2 := model.NewTeam(rules), model.NewTeam(rules)
		for _, e := range entrants(model.NoGroup, repeat(100, 6)...) {
			t1.AddEntrant(e)
		}
		for _, e := range entrants(model.NoGroup, repeat(900, 6)...) {
			t2.AddEntrant(e)
		}
		m := model.NewMatch(rules)
		So(m.SetFirst(t1), ShouldBeNil)
		So(m.SetSecond(t2), ShouldBeNil)

		Convey("When it is rebalanced", func() {
			res, err := rebalance.New().Rebalance(context.Background(), m)
			So(err, ShouldBeNil)

			Convey("Then the teams hold the chosen split", func() {
				diff, err := m.SkillDifference()
				So(err, ShouldBeNil)
				So(diff, ShouldEqual, 0)
				So(res.After, ShouldEqual, diff)
				So(t1.Size(), ShouldEqual, 6)
				So(t2.Size(), ShouldEqual, 6)
			})
		})
	})

	Convey("Given a match without teams", t, func() {
		rules := &model.Rules{Capacity: 6, Fairness: fairness.NewPolicy(25, 4, time.Second)}
		m := model.NewMatch(rules)

		Convey("Then rebalancing fails with ErrIncompleteMatch", func() {
			_, err := rebalance.New().Rebalance(context.Background(), m)
			So(errors.Is(err, rebalance.ErrIncompleteMatch), ShouldBeTrue)
		})
	})
}
