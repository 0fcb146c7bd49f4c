package config_test

import (
	"context"
	"testing"

	"wardline/internal/config"

	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.RedisAddr, convey.ShouldEqual, "")
			convey.So(cfg.HistoryPath, convey.ShouldEqual, "wardline.db")
			convey.So(cfg.SpawnMinMS, convey.ShouldEqual, 3000)
			convey.So(cfg.SpawnMaxMS, convey.ShouldEqual, 7000)
			convey.So(cfg.ClaimTTLMS, convey.ShouldEqual, 15000)
			convey.So(cfg.MaxTasksFloor, convey.ShouldEqual, 4)
			convey.So(cfg.TasksPerPlayer, convey.ShouldEqual, 2)
			convey.So(cfg.RoomTaskCap, convey.ShouldEqual, 2)
			convey.So(cfg.LeaderboardSize, convey.ShouldEqual, 10)
			convey.So(len(cfg.Rooms), convey.ShouldEqual, 4)
		})

		convey.Convey("Then the default rooms parse cleanly", func() {
			rooms, err := cfg.RoomList()
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(rooms), convey.ShouldEqual, 4)
			convey.So(rooms[0].ID, convey.ShouldEqual, "ward-1")
			convey.So(rooms[0].Name, convey.ShouldEqual, "Ward 1")
			convey.So(rooms[2].ID, convey.ShouldEqual, "icu")
		})
	})
}

func TestConfig_RoomList(t *testing.T) {
	convey.Convey("Given a config with custom rooms", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When a room spec is malformed", func() {
			cfg.Rooms = []string{"icu"}
			_, err := cfg.RoomList()

			convey.Convey("Then parsing fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When two rooms share an id", func() {
			cfg.Rooms = []string{"icu:ICU", "icu:Other ICU"}
			_, err := cfg.RoomList()

			convey.Convey("Then parsing fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
