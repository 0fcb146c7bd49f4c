package model_test

import (
	"encoding/json"
	"testing"
	"time"

	model "wardline/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTaskSerialization(t *testing.T) {
	Convey("Given a task", t, func() {
		task := model.Task{
			ID:        "task-1",
			RoomID:    "icu",
			Symptom:   "hypoxia",
			Label:     "Patient is short of breath",
			Action:    "give_oxygen",
			Tier:      "urgent",
			ExpiresAt: time.Now().Add(12 * time.Second).UTC(),
		}

		Convey("It round-trips through JSON for store persistence", func() {
			b, err := json.Marshal(task)
			So(err, ShouldBeNil)

			var got model.Task
			So(json.Unmarshal(b, &got), ShouldBeNil)
			So(got.ID, ShouldEqual, task.ID)
			So(got.Action, ShouldEqual, task.Action)
			So(got.ExpiresAt.Equal(task.ExpiresAt), ShouldBeTrue)
		})
	})
}

func TestTaskViewHidesAction(t *testing.T) {
	Convey("Given a task view for broadcast", t, func() {
		view := model.TaskView{
			ID:      "task-1",
			RoomID:  "icu",
			Symptom: "hypoxia",
			Label:   "Patient is short of breath",
			Tier:    "urgent",
		}

		Convey("The encoded form never carries the correct action", func() {
			b, err := json.Marshal(view)
			So(err, ShouldBeNil)
			So(string(b), ShouldNotContainSubstring, "give_oxygen")
			So(string(b), ShouldNotContainSubstring, `"action"`)
		})
	})
}

func TestSnapshotZeroValue(t *testing.T) {
	Convey("Given an empty snapshot", t, func() {
		var snap model.Snapshot

		Convey("It encodes with empty collections and zero team score", func() {
			b, err := json.Marshal(snap)
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"team_score":0`)
		})
	})
}
