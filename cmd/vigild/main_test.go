package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/vigil/internal/adapters/transport"
	"github.com/okian/vigil/internal/app"
	"github.com/okian/vigil/internal/config"
	"github.com/okian/vigil/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestBuildTransport(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("When no sink is configured", func() {
			sink, closeSinks, err := buildTransport(ctx, cfg, logger.Get())
			defer closeSinks()

			convey.Convey("Then violations fall back to the log sink", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sink.Name(), convey.ShouldEqual, "log")
			})
		})

		convey.Convey("When an HTTP endpoint is configured", func() {
			cfg.TransportHTTPURL = "http://127.0.0.1:1/violations"

			sink, closeSinks, err := buildTransport(ctx, cfg, logger.Get())
			defer closeSinks()

			convey.Convey("Then the HTTP sink is used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sink.Name(), convey.ShouldEqual, "http")
				multi, ok := sink.(*transport.Multi)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(multi.Len(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the HTTP endpoint is malformed", func() {
			cfg.TransportHTTPURL = "ftp://example.com"

			_, _, err := buildTransport(ctx, cfg, logger.Get())

			convey.Convey("Then construction fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the daemon handler", t, func() {
		svc := app.New(transport.NewLog(logger.Get()))
		srv := httptest.NewServer(newHandler(svc, logger.Get()))
		defer srv.Close()

		convey.Convey("Then metrics are served on /healthz", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then the API description is served", func() {
			resp, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then stats are served on /stats", func() {
			resp, err := http.Get(srv.URL + "/stats")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})
	})
}
