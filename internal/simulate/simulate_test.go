package simulate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vigil/internal/adapters/http/api"
	"github.com/okian/vigil/internal/adapters/transport"
	"github.com/okian/vigil/internal/app"
	"github.com/okian/vigil/internal/simulate"
	"github.com/okian/vigil/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	settings := app.DefaultSettings()
	settings.TickInterval = 50 * time.Millisecond
	settings.Classifier.TickInterval = settings.TickInterval

	svc := app.New(transport.NewLog(logger.Get()), app.WithSettings(settings), app.WithWorkerCount(1))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop(context.Background())
	})
	return srv
}

func TestParseScenario(t *testing.T) {
	Convey("Scenario names are validated", t, func() {
		sc, err := simulate.ParseScenario("multiface")
		So(err, ShouldBeNil)
		So(sc, ShouldEqual, simulate.ScenarioMultiFace)

		sc, err = simulate.ParseScenario("")
		So(err, ShouldBeNil)
		So(sc, ShouldEqual, simulate.Scenario(""))

		_, err = simulate.ParseScenario("juggling")
		So(errors.Is(err, simulate.ErrUnknownScenario), ShouldBeTrue)
	})

	Convey("Calm candidates expect nothing", t, func() {
		So(simulate.ScenarioCalm.Expected(), ShouldBeEmpty)
		So(simulate.ScenarioEnvironment.Expected(), ShouldHaveLength, 6)
		So(simulate.ScenarioGazeAway.Expected(), ShouldHaveLength, 1)
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running vigild", t, func() {
		srv := newServer(t)
		out := filepath.Join(t.TempDir(), "report.json")

		Convey("A rotating run sees every scripted violation", func() {
			results, err := simulate.Run(context.Background(), &simulate.Config{
				BaseURL:        srv.URL,
				Candidates:     4,
				Duration:       1500 * time.Millisecond,
				SampleInterval: 50 * time.Millisecond,
				Timeout:        2 * time.Second,
				OutputFile:     out,
			})

			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 4)
			for _, r := range results {
				So(r.Error, ShouldBeEmpty)
				So(r.SessionID, ShouldNotBeEmpty)
				So(r.Missing, ShouldBeEmpty)
				if r.Scenario == simulate.ScenarioCalm {
					So(r.Violations, ShouldBeEmpty)
				}
			}

			_, statErr := os.Stat(out)
			So(statErr, ShouldBeNil)
		})
	})

	Convey("Given no service", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		Convey("The health check fails the run", func() {
			_, err := simulate.Run(context.Background(), &simulate.Config{BaseURL: srv.URL, Candidates: 1})
			So(errors.Is(err, simulate.ErrUnhealthy), ShouldBeTrue)
		})
	})
}
