package facestream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/vigil/internal/app"
	"github.com/okian/vigil/internal/domain/environment"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStreamCamera(t *testing.T) {
	Convey("Given a stream on a fake clock", t, func() {
		ctx := context.Background()
		fc := clock.NewFake(time.Unix(1_700_000_000, 0))
		s := New(WithClock(fc), WithStaleAfter(time.Second))

		Convey("No frame is ready before the first sample", func() {
			So(s.Open(ctx), ShouldBeNil)
			_, ok := s.Frame()
			So(ok, ShouldBeFalse)
		})

		Convey("The newest sample wins", func() {
			So(s.Push(&Sample{Width: 640, Faces: []model.Face{{Confidence: 0.4}}}), ShouldBeNil)
			So(s.Push(&Sample{Width: 1280, Faces: []model.Face{{Confidence: 0.9}}}), ShouldBeNil)

			f, ok := s.Frame()
			So(ok, ShouldBeTrue)
			So(f.Seq, ShouldEqual, 2)
			So(f.Width, ShouldEqual, 1280)

			faces, err := s.Detect(ctx, f)
			So(err, ShouldBeNil)
			So(faces[0].Confidence, ShouldEqual, 0.9)
		})

		Convey("Stale samples are not served", func() {
			So(s.Push(&Sample{}), ShouldBeNil)
			fc.Advance(1500 * time.Millisecond)
			_, ok := s.Frame()
			So(ok, ShouldBeFalse)
		})

		Convey("Open reflects the browser's camera status", func() {
			s.SetCameraStatus(CameraDenied, "NotAllowedError")
			err := s.Open(ctx)
			So(errors.Is(err, app.ErrPermissionDenied), ShouldBeTrue)
			So(s.Opened(), ShouldBeFalse)

			s.SetCameraStatus(CameraError, "NotReadableError")
			So(errors.Is(s.Open(ctx), ErrCameraFailed), ShouldBeTrue)

			s.SetCameraStatus(CameraGranted, "")
			So(s.Open(ctx), ShouldBeNil)
			So(s.Opened(), ShouldBeTrue)
			So(s.Close(), ShouldBeNil)
			So(s.Opened(), ShouldBeFalse)
		})
	})
}

func TestStreamTracker(t *testing.T) {
	Convey("Given a stream", t, func() {
		ctx := context.Background()
		s := New()

		Convey("Load fails after the browser reports a model failure", func() {
			So(s.Load(ctx), ShouldBeNil)
			s.SetTrackerFailed("wasm fetch failed")
			So(errors.Is(s.Load(ctx), ErrTrackerFailed), ShouldBeTrue)
			s.SetTrackerFailed("")
			So(s.Load(ctx), ShouldBeNil)
		})

		Convey("Landmarks come from the same sample", func() {
			mesh := model.Mesh{{X: 1, Y: 2}, nil}
			So(s.Push(&Sample{Faces: []model.Face{{Confidence: 1}}, Mesh: mesh}), ShouldBeNil)
			f, ok := s.Frame()
			So(ok, ShouldBeTrue)
			got, err := s.Landmarks(ctx, f, model.Face{})
			So(err, ShouldBeNil)
			So(got, ShouldResemble, mesh)
		})

		Convey("Frames from elsewhere are rejected", func() {
			_, err := s.Detect(ctx, app.Frame{Data: "not a sample"})
			So(errors.Is(err, ErrForeignFrame), ShouldBeTrue)
			_, err = s.Landmarks(ctx, app.Frame{}, model.Face{})
			So(errors.Is(err, ErrForeignFrame), ShouldBeTrue)
		})

		Convey("Invalid samples are refused", func() {
			So(errors.Is(s.Push(&Sample{Faces: []model.Face{{Confidence: 2}}}), ErrInvalidSample), ShouldBeTrue)
			So(errors.Is(s.Push(&Sample{Mesh: model.Mesh{{X: 1}}}), ErrInvalidSample), ShouldBeTrue)
		})
	})
}

func TestStreamEvidence(t *testing.T) {
	Convey("Given a stream", t, func() {
		ctx := context.Background()
		s := New()

		Convey("The last snapshot survives samples without one", func() {
			_, err := s.Snapshot(ctx)
			So(errors.Is(err, ErrNoSnapshot), ShouldBeTrue)

			So(s.Push(&Sample{Snapshot: []byte("jpeg-1")}), ShouldBeNil)
			So(s.Push(&Sample{}), ShouldBeNil)
			img, err := s.Snapshot(ctx)
			So(err, ShouldBeNil)
			So(string(img), ShouldEqual, "jpeg-1")
		})

		Convey("The viewport probe returns the last report", func() {
			_, ok := s.Viewport(ctx)
			So(ok, ShouldBeFalse)
			s.SetViewport(environment.Viewport{OuterWidth: 1280, InnerWidth: 1000})
			vp, ok := s.Viewport(ctx)
			So(ok, ShouldBeTrue)
			So(vp.InnerWidth, ShouldEqual, 1000)
		})
	})
}
