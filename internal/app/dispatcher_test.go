package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/vigil/internal/adapters/mq/queue"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/registry"
	"github.com/okian/vigil/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

type stubSnapshotter struct {
	img []byte
	err error
}

func (s stubSnapshotter) Snapshot(context.Context) ([]byte, error) { return s.img, s.err }

var testIdentity = Identity{SubjectID: "user-1", AssessmentID: "exam-1"}

func TestDispatcherThrottle(t *testing.T) {
	Convey("Given a dispatcher on a fake clock", t, func() {
		ctx := context.Background()
		fc := clock.NewFake(time.Unix(1_700_000_000, 0))
		log := &violationLog{}
		d := NewDispatcher(testIdentity, registry.New(), nil,
			WithDispatcherClock(fc),
			WithObserver(log.observe),
		)

		Convey("A camera kind repeated after 2000ms is dropped and after 6000ms is sent", func() {
			d.Dispatch(ctx, model.KindGazeAway, nil, false)
			fc.Advance(2000 * time.Millisecond)
			d.Dispatch(ctx, model.KindGazeAway, nil, false)
			So(log.all(), ShouldHaveLength, 1)

			fc.Advance(4000 * time.Millisecond)
			d.Dispatch(ctx, model.KindGazeAway, nil, false)
			So(log.all(), ShouldHaveLength, 2)
		})

		Convey("Environmental kinds use the shorter interval", func() {
			d.Dispatch(ctx, model.KindTabSwitch, nil, false)
			fc.Advance(500 * time.Millisecond)
			d.Dispatch(ctx, model.KindTabSwitch, nil, false)
			fc.Advance(500 * time.Millisecond)
			d.Dispatch(ctx, model.KindTabSwitch, nil, false)
			So(log.all(), ShouldHaveLength, 2)
			So(d.Throttle(model.KindTabSwitch), ShouldEqual, time.Second)
			So(d.Throttle(model.KindMultiFace), ShouldEqual, 5*time.Second)
		})

		Convey("Kinds are throttled independently", func() {
			d.Dispatch(ctx, model.KindGazeAway, nil, false)
			d.Dispatch(ctx, model.KindMultiFace, nil, false)
			So(log.all(), ShouldHaveLength, 2)
			So(d.Counts(), ShouldResemble, map[model.Kind]int{model.KindGazeAway: 1, model.KindMultiFace: 1})
		})
	})
}

func TestDispatcherRecord(t *testing.T) {
	Convey("Given a dispatcher", t, func() {
		ctx := context.Background()
		fc := clock.NewFake(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
		log := &violationLog{}

		Convey("Missing identity makes dispatch a no-op", func() {
			d := NewDispatcher(Identity{SubjectID: "user-1"}, registry.New(), nil, WithObserver(log.observe))
			d.Dispatch(ctx, model.KindTabSwitch, nil, false)
			So(log.all(), ShouldBeEmpty)
		})

		Convey("Unknown kinds are ignored", func() {
			d := NewDispatcher(testIdentity, registry.New(), nil, WithObserver(log.observe))
			d.Dispatch(ctx, model.Kind("SNEEZE"), nil, false)
			So(log.all(), ShouldBeEmpty)
		})

		Convey("The record carries identity, time, an id and a copy of the metadata", func() {
			d := NewDispatcher(testIdentity, registry.New(), nil, WithObserver(log.observe), WithDispatcherClock(fc))
			md := map[string]any{"reason": "visibilityHidden"}
			d.Dispatch(ctx, model.KindTabSwitch, md, false)
			md["reason"] = "mutated"

			got := log.all()
			So(got, ShouldHaveLength, 1)
			v := got[0]
			So(v.ID, ShouldHaveLength, 36)
			So(v.Kind, ShouldEqual, model.KindTabSwitch)
			So(v.SubjectID, ShouldEqual, "user-1")
			So(v.AssessmentID, ShouldEqual, "exam-1")
			So(v.Timestamp, ShouldEqual, fc.Now())
			So(v.Metadata["reason"], ShouldEqual, "visibilityHidden")
		})

		Convey("Snapshots are attached only when requested", func() {
			d := NewDispatcher(testIdentity, registry.New(), nil,
				WithObserver(log.observe),
				WithSnapshotter(stubSnapshotter{img: []byte("jpeg")}),
			)
			d.Dispatch(ctx, model.KindMultiFace, nil, true)
			d.Dispatch(ctx, model.KindTabSwitch, nil, false)

			got := log.all()
			So(got, ShouldHaveLength, 2)
			So(got[0].Snapshot, ShouldResemble, []byte("jpeg"))
			So(got[1].Snapshot, ShouldBeNil)
		})

		Convey("A failed snapshot still sends the violation", func() {
			d := NewDispatcher(testIdentity, registry.New(), nil,
				WithObserver(log.observe),
				WithSnapshotter(stubSnapshotter{err: errors.New("no frame")}),
			)
			d.Dispatch(ctx, model.KindFaceMismatch, map[string]any{"similarity": 0.1}, true)

			got := log.all()
			So(got, ShouldHaveLength, 1)
			So(got[0].Snapshot, ShouldBeNil)
		})

		Convey("A full queue drops delivery but the observer still sees the violation", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(1))
			d := NewDispatcher(testIdentity, registry.New(), q, WithObserver(log.observe))
			d.Dispatch(ctx, model.KindTabSwitch, nil, false)
			d.Dispatch(ctx, model.KindFocusLost, nil, false)

			So(log.all(), ShouldHaveLength, 2)
			So(q.Len(), ShouldEqual, 1)
		})
	})
}
