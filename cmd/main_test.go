package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"wardline/internal/adapters/http/api"
	"wardline/internal/adapters/repository"
	"wardline/internal/adapters/ws"
	app "wardline/internal/app"
	"wardline/internal/config"
	"wardline/internal/domain/model"
	"wardline/pkg/logger"

	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type memoryHistory struct{}

func (memoryHistory) TopScores(context.Context, int) ([]model.LeaderboardEntry, error) {
	return nil, nil
}
func (memoryHistory) RecordScore(context.Context, string, int, time.Time) error { return nil }
func (memoryHistory) RecordSession(context.Context, string, int, time.Time, time.Time) error {
	return nil
}
func (memoryHistory) ArchiveSnapshot(model.Snapshot, time.Time) (string, error) { return "", nil }

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("WARDLINE_ADDR", ":8080")
			_ = os.Setenv("WARDLINE_CLAIM_TTL_MS", "5000")
			defer func() {
				_ = os.Unsetenv("WARDLINE_ADDR")
				_ = os.Unsetenv("WARDLINE_CLAIM_TTL_MS")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ClaimTTLMS, convey.ShouldEqual, 5000)
			})
		})

		convey.Convey("When wiring the full HTTP surface", func() {
			svc := app.New(repository.NewMemoryStore(), memoryHistory{},
				app.WithSpawnInterval(time.Hour, time.Hour))
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()

			mux := http.NewServeMux()
			wsServer := ws.NewServer(svc, ws.NewHub())
			mux.HandleFunc("/ws", wsServer.Handler())
			api.NewServer(svc, svc).Register(mux)

			convey.Convey("Then the stats endpoint responds", func() {
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			})

			convey.Convey("Then the health endpoint serves metrics", func() {
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			})

			convey.Convey("Then a plain GET on the ws endpoint is rejected", func() {
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}
