package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"wardline/internal/adapters/http/api"
	"wardline/internal/domain/model"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeDeps struct {
	entries []model.LeaderboardEntry
	err     error
}

func (f *fakeDeps) Leaderboard(context.Context) ([]model.LeaderboardEntry, error) {
	return f.entries, f.err
}

type fakeStats struct{}

func (fakeStats) Stats() map[string]interface{} {
	return map[string]interface{}{"openTasks": 3, "activePlayers": 2}
}

func newMux(deps *fakeDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, fakeStats{}).Register(mux)
	return mux
}

func TestLeaderboardEndpoint(t *testing.T) {
	Convey("Given a leaderboard with three entries", t, func() {
		deps := &fakeDeps{entries: []model.LeaderboardEntry{
			{Name: "Ada", Score: 120},
			{Name: "Grace", Score: 90},
			{Name: "Edsger", Score: 40},
		}}
		mux := newMux(deps)

		Convey("When fetched without a limit", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))

			Convey("Then all entries are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got []model.LeaderboardEntry
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(len(got), ShouldEqual, 3)
				So(got[0].Name, ShouldEqual, "Ada")
			})
		})

		Convey("When fetched with a limit", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=2", nil))

			Convey("Then the result is truncated", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got []model.LeaderboardEntry
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(len(got), ShouldEqual, 2)
			})
		})

		Convey("When the limit is not a positive integer", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=zero", nil))

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the limit exceeds the maximum", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=1000", nil))

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posted to", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/leaderboard", nil))

			Convey("Then it is not found", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})

	Convey("Given a failing leaderboard backend", t, func() {
		mux := newMux(&fakeDeps{err: errors.New("db offline")})

		Convey("When fetched", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))

			Convey("Then the failure surfaces as 500", func() {
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given the sidecar API", t, func() {
		mux := newMux(&fakeDeps{})

		Convey("When stats are fetched", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

			Convey("Then the coordinator stats come back as JSON", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got map[string]interface{}
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got["openTasks"], ShouldEqual, 3)
			})
		})
	})
}

func TestHealthEndpoint(t *testing.T) {
	Convey("Given the sidecar API", t, func() {
		mux := newMux(&fakeDeps{})

		Convey("When the health endpoint is fetched", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then metrics exposition is served", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "wardline")
			})
		})
	})
}
