package main

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchmaker/internal/config"
	"github.com/okian/matchmaker/pkg/metrics"
)

func TestConfigMapping(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When building engine rules", func() {
			rules := rulesFromConfig(cfg)

			convey.Convey("Then the tolerances and fairness policy follow the config", func() {
				convey.So(rules.Capacity, convey.ShouldEqual, 6)
				convey.So(rules.PlayerTolerance, convey.ShouldEqual, 200)
				convey.So(rules.TeamTolerance, convey.ShouldEqual, 100)
				convey.So(rules.Fairness.MaxLevel(), convey.ShouldEqual, 4)
				convey.So(rules.Fairness.Bonus(2), convey.ShouldEqual, 50)
				convey.So(rules.Fairness.Interval(), convey.ShouldEqual, 5*time.Second)
			})
		})

		convey.Convey("When building the simulation config", func() {
			sc := simulationFromConfig(cfg)

			convey.Convey("Then groups span the configured sizes", func() {
				convey.So(sc.Producers, convey.ShouldEqual, 4)
				convey.So(sc.EntrantsPerProducer, convey.ShouldEqual, 250)
				convey.So(sc.MinGroupSize, convey.ShouldEqual, 2)
				convey.So(sc.MaxGroupSize, convey.ShouldEqual, 6)
				convey.So(sc.Interval, convey.ShouldEqual, 250*time.Millisecond)
			})
		})
	})
}

func TestMetricsServer(t *testing.T) {
	convey.Convey("Given the metrics server handler", t, func() {
		srv := newMetricsServer(":0")
		metrics.RecordTeamCompleted()

		convey.Convey("Then /metrics exposes the matchmaker collectors", func() {
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
			body, _ := io.ReadAll(rec.Body)
			convey.So(rec.Code, convey.ShouldEqual, 200)
			convey.So(strings.Contains(string(body), "matchmaker_engine_teams_completed_total"), convey.ShouldBeTrue)
		})

		convey.Convey("Then /healthz answers ok", func() {
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
			convey.So(rec.Code, convey.ShouldEqual, 200)
			convey.So(rec.Body.String(), convey.ShouldEqual, "ok")
		})

		convey.Convey("Then system metrics can be refreshed", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
