package logger_test

import (
	"context"
	"errors"
	"testing"

	"wardline/pkg/logger"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFieldConstructors(t *testing.T) {
	Convey("Given the field constructors", t, func() {
		Convey("String builds a string field", func() {
			f := logger.String("k", "v")
			So(f.Key, ShouldEqual, "k")
			So(f.Value, ShouldEqual, "v")
		})

		Convey("Int builds an int field", func() {
			f := logger.Int("n", 7)
			So(f.Key, ShouldEqual, "n")
			So(f.Value, ShouldEqual, 7)
		})

		Convey("Float64 builds a float field", func() {
			f := logger.Float64("x", 1.5)
			So(f.Value, ShouldEqual, 1.5)
		})

		Convey("Error uses the conventional error key", func() {
			err := errors.New("boom")
			f := logger.Error(err)
			So(f.Key, ShouldEqual, "error")
			So(f.Value, ShouldEqual, err)
		})
	})
}

func TestInitAndLevels(t *testing.T) {
	Convey("Given an initialized global logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("Get returns a usable logger", func() {
			l := logger.Get()
			So(l, ShouldNotBeNil)
			// Should not panic.
			l.Info(context.Background(), "hello", logger.String("k", "v"))
			l.Named("sub").Debug(context.Background(), "quiet")
		})

		Convey("SetLevelString accepts known levels", func() {
			So(logger.SetLevelString("debug"), ShouldBeNil)
			So(logger.SetLevelString("warn"), ShouldBeNil)
			So(logger.SetLevelString("info"), ShouldBeNil)
		})

		Convey("SetLevelString rejects unknown levels", func() {
			So(logger.SetLevelString("shout"), ShouldNotBeNil)
		})
	})
}
