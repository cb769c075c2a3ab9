package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/vigil/internal/domain/classifier"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSession(t *testing.T) {
	Convey("Given a session with fake devices", t, func() {
		ctx := context.Background()
		fc := clock.NewFake(time.Unix(1_700_000_000, 0))
		cam := &fakeCamera{ready: true}
		tr := &fakeTracker{
			faces: []model.Face{{Box: model.Box{W: 120, H: 120}, Confidence: 0.95}},
			mesh:  gridMesh(),
		}
		log := &violationLog{}
		settings := DefaultSettings()
		settings.TickInterval = time.Hour

		s := NewSession(testIdentity, Devices{Camera: cam, Tracker: tr}, settings, nil,
			WithSessionID("session-1"),
			WithClock(fc),
			WithSessionObserver(log.observe),
		)

		Convey("It reports its identity", func() {
			So(s.ID(), ShouldEqual, "session-1")
			So(s.Identity(), ShouldResemble, testIdentity)
		})

		Convey("Enroll captures the reference once", func() {
			So(s.Enroll(ctx), ShouldBeNil)
			So(s.Stats().Enrolled, ShouldBeTrue)
			So(errors.Is(s.Enroll(ctx), classifier.ErrReferenceSet), ShouldBeTrue)

			Convey("and teardown clears it", func() {
				s.Teardown()
				So(s.Stats().Enrolled, ShouldBeFalse)
				So(s.Enroll(ctx), ShouldBeNil)
			})
		})

		Convey("Enroll needs a frame and a face", func() {
			cam.ready = false
			So(errors.Is(s.Enroll(ctx), ErrNoFrame), ShouldBeTrue)
			cam.ready = true
			tr.faces = nil
			So(errors.Is(s.Enroll(ctx), ErrNoFace), ShouldBeTrue)
		})

		Convey("Browser signals flow through the dispatcher to the observer", func() {
			env := s.Environment()
			env.FullscreenChanged(ctx, true)
			env.FullscreenChanged(ctx, false)
			env.VisibilityChanged(ctx, true)
			fc.Advance(60 * time.Millisecond)

			got := log.all()
			So(got, ShouldHaveLength, 3)
			So(got[0].Kind, ShouldEqual, model.KindFullscreenEnabled)
			So(got[1].Kind, ShouldEqual, model.KindFullscreenExit)
			So(got[2].Kind, ShouldEqual, model.KindTabSwitch)
			So(got[2].SubjectID, ShouldEqual, "user-1")

			stats := s.Stats()
			So(stats.Hidden, ShouldBeTrue)
			So(stats.Violations["TAB_SWITCH"], ShouldEqual, 1)
		})

		Convey("Start and Stop drive sampling", func() {
			So(s.Start(ctx), ShouldBeNil)
			So(s.Stats().Sampling, ShouldBeTrue)
			s.Stop()
			So(s.Stats().Sampling, ShouldBeFalse)
			So(cam.closedCount(), ShouldEqual, 1)
		})

		Convey("A failed start reports through the observer", func() {
			cam.openErr = ErrPermissionDenied
			So(s.Start(ctx), ShouldNotBeNil)
			got := log.all()
			So(got, ShouldHaveLength, 1)
			So(got[0].Kind, ShouldEqual, model.KindCameraDenied)
		})
	})
}
