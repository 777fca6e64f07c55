package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/matchmaker/internal/app"
	"github.com/okian/matchmaker/internal/domain/matchmaking"
	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type collector struct {
	mu      sync.Mutex
	reports []matchmaking.Report
}

func (c *collector) Announce(_ context.Context, r matchmaking.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, r)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reports)
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func solo(id string, skill int) model.Entrant {
	return model.Entrant{ID: id, Skill: skill}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it is not started", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
			So(svc.GetStats()["teamSize"], ShouldEqual, 6)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		rules := service.DefaultRules()
		rules.Capacity = 3
		svc := service.New(
			service.WithRules(rules),
			service.WithMinGroupSize(3),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithEscalationPeriod(50*time.Millisecond),
		)

		Convey("Then the options are applied", func() {
			stats := svc.GetStats()
			So(stats["teamSize"], ShouldEqual, 3)
			So(stats["queueSize"], ShouldEqual, 50_000)
			So(stats["dedupeSize"], ShouldEqual, 25_000)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("When starting the service", func() {
			err := svc.Start(context.Background())

			Convey("Then it is marked as started", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, true)
				So(svc.Start(context.Background()), ShouldBeNil)
			})

			Convey("Then stopping marks it as stopped and rejects entrants", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
				err := svc.Enqueue(context.Background(), solo("late", 500))
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				svc.Stop()
			})
		})
	})
}

func TestService_Enqueue(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithAnnouncer(&collector{}))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When the same entrant is enqueued twice", func() {
			So(svc.Enqueue(ctx, solo("p1", 500)), ShouldBeNil)
			err := svc.Enqueue(ctx, solo("p1", 500))

			Convey("Then the second attempt is a duplicate", func() {
				So(errors.Is(err, service.ErrDuplicate), ShouldBeTrue)
				So(svc.Stats().Waiting, ShouldEqual, 1)
			})
		})

		Convey("When a group repeats a waiting id", func() {
			So(svc.Enqueue(ctx, solo("p2", 500)), ShouldBeNil)
			err := svc.Enqueue(ctx,
				model.Entrant{ID: "g1", Skill: 500, Group: "G"},
				model.Entrant{ID: "p2", Skill: 500, Group: "G"},
			)

			Convey("Then the whole group is rejected and its other ids are released", func() {
				So(errors.Is(err, service.ErrDuplicate), ShouldBeTrue)
				So(svc.Enqueue(ctx, solo("g1", 500)), ShouldBeNil)
			})
		})

		Convey("When a unit is malformed", func() {
			Convey("Then empty units are rejected", func() {
				So(errors.Is(svc.Enqueue(ctx), service.ErrInvalidEntrant), ShouldBeTrue)
			})
			Convey("Then several solos in one unit are rejected", func() {
				err := svc.Enqueue(ctx, solo("a", 1), solo("b", 1))
				So(errors.Is(err, service.ErrInvalidEntrant), ShouldBeTrue)
			})
			Convey("Then mixed groups are rejected", func() {
				err := svc.Enqueue(ctx,
					model.Entrant{ID: "x", Group: "G1"},
					model.Entrant{ID: "y", Group: "G2"},
				)
				So(errors.Is(err, service.ErrInvalidEntrant), ShouldBeTrue)
			})
			Convey("Then missing ids are rejected", func() {
				So(errors.Is(svc.Enqueue(ctx, solo("", 1)), service.ErrInvalidEntrant), ShouldBeTrue)
			})
			Convey("Then groups below the minimum group size are rejected", func() {
				err := svc.Enqueue(ctx, model.Entrant{ID: "lone", Skill: 500, Group: "G3"})
				So(errors.Is(err, service.ErrInvalidEntrant), ShouldBeTrue)
				So(svc.Enqueue(ctx, solo("lone", 500)), ShouldBeNil)
			})
		})
	})
}

func TestService_Matchmaking(t *testing.T) {
	Convey("Given a started service with a collecting announcer", t, func() {
		ctx := context.Background()
		col := &collector{}
		svc := service.New(service.WithAnnouncer(col))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a group and ten solos of similar skill are enqueued", func() {
			So(svc.Enqueue(ctx,
				model.Entrant{ID: "g1", Skill: 500, Group: "G1"},
				model.Entrant{ID: "g2", Skill: 510, Group: "G1"},
			), ShouldBeNil)
			for i := range 10 {
				So(svc.Enqueue(ctx, solo(fmt.Sprintf("s%d", i), 500+i)), ShouldBeNil)
			}

			Convey("Then one match is announced and every id is released", func() {
				So(eventually(func() bool { return col.count() == 1 }), ShouldBeTrue)
				So(eventually(func() bool { return svc.Stats().Waiting == 0 }), ShouldBeTrue)

				stats := svc.Stats()
				So(stats.MatchesFinalized, ShouldEqual, 1)
				So(stats.QueuedEntrants, ShouldEqual, 0)
				So(svc.GetStats()["matchesFinalized"], ShouldEqual, int64(1))

				So(svc.Enqueue(ctx, solo("s0", 500)), ShouldBeNil)
			})
		})
	})
}

func TestService_EnqueueTime(t *testing.T) {
	Convey("Given a started service with a fixed clock", t, func() {
		ctx := context.Background()
		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		col := &collector{}
		svc := service.New(
			service.WithAnnouncer(col),
			service.WithClock(func() time.Time { return now }),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When entrants arrive carrying enqueue times from the past", func() {
			for i := range 12 {
				e := solo(fmt.Sprintf("t%d", i), 500)
				e.EnqueuedAt = now.Add(-time.Hour)
				So(svc.Enqueue(ctx, e), ShouldBeNil)
			}

			Convey("Then every entrant is stamped with the time it was accepted", func() {
				So(eventually(func() bool { return col.count() == 1 }), ShouldBeTrue)
				col.mu.Lock()
				defer col.mu.Unlock()
				r := col.reports[0]
				So(r.OldestWait, ShouldEqual, time.Duration(0))
				for _, side := range [][]model.Entrant{r.First, r.Second} {
					for _, e := range side {
						So(e.EnqueuedAt.Equal(now), ShouldBeTrue)
					}
				}
			})
		})
	})
}

func TestService_Concurrency(t *testing.T) {
	Convey("Given producers enqueueing concurrently", t, func() {
		ctx := context.Background()
		col := &collector{}
		svc := service.New(service.WithAnnouncer(col))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		var wg sync.WaitGroup
		for p := range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 60 {
					_ = svc.Enqueue(ctx, solo(fmt.Sprintf("p%d-%d", p, i), 500))
				}
			}()
		}
		wg.Wait()

		Convey("Then all entrants end up in matches", func() {
			So(eventually(func() bool { return col.count() == 20 }), ShouldBeTrue)
			svc.UpdateMetrics()
		})
	})
}
