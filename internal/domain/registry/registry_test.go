package registry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/registry"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCounters(t *testing.T) {
	Convey("Given a new Registry", t, func() {
		r := registry.New()

		Convey("When bumping a kind", func() {
			So(r.Bump(model.KindGazeAway), ShouldEqual, 1)
			So(r.Bump(model.KindGazeAway), ShouldEqual, 2)

			Convey("Then other kinds are untouched", func() {
				So(r.Count(model.KindFaceMismatch), ShouldEqual, 0)
			})

			Convey("And resetting returns it to zero", func() {
				r.Reset(model.KindGazeAway)
				So(r.Count(model.KindGazeAway), ShouldEqual, 0)
				So(r.Bump(model.KindGazeAway), ShouldEqual, 1)
			})
		})

		Convey("When resetting an unknown kind", func() {
			r.Reset(model.KindIdle)

			Convey("Then the counter never goes negative", func() {
				So(r.Count(model.KindIdle), ShouldEqual, 0)
			})
		})
	})
}

func TestThrottle(t *testing.T) {
	Convey("Given a registry and a 5 s interval", t, func() {
		r := registry.New()
		t0 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
		interval := 5 * time.Second

		Convey("When the first emission is requested", func() {
			So(r.ShouldEmit(model.KindMultiFace, t0, interval), ShouldBeTrue)

			Convey("Then 2 s later it is throttled", func() {
				So(r.ShouldEmit(model.KindMultiFace, t0.Add(2*time.Second), interval), ShouldBeFalse)
			})

			Convey("Then a throttled attempt does not extend the window", func() {
				So(r.ShouldEmit(model.KindMultiFace, t0.Add(4*time.Second), interval), ShouldBeFalse)
				So(r.ShouldEmit(model.KindMultiFace, t0.Add(5*time.Second), interval), ShouldBeTrue)
			})

			Convey("Then 6 s later it fires again", func() {
				So(r.ShouldEmit(model.KindMultiFace, t0.Add(6*time.Second), interval), ShouldBeTrue)
			})

			Convey("Then a timestamp in the past is throttled", func() {
				So(r.ShouldEmit(model.KindMultiFace, t0.Add(-time.Hour), interval), ShouldBeFalse)
			})

			Convey("Then other kinds are independent", func() {
				So(r.ShouldEmit(model.KindGazeAway, t0, interval), ShouldBeTrue)
			})
		})

		Convey("When ResetAll is called", func() {
			r.ShouldEmit(model.KindMultiFace, t0, interval)
			r.Bump(model.KindGazeAway)
			r.PushMovement(1)
			r.ResetAll()

			So(r.ShouldEmit(model.KindMultiFace, t0, interval), ShouldBeTrue)
			So(r.Count(model.KindGazeAway), ShouldEqual, 0)
			So(r.MovementSamples(), ShouldEqual, 0)
		})
	})
}

func TestMovementWindow(t *testing.T) {
	Convey("Given the default 10-sample window", t, func() {
		r := registry.New()

		Convey("When fewer than 10 samples are pushed", func() {
			var full bool
			for i := 0; i < 9; i++ {
				_, full = r.PushMovement(1)
			}
			So(full, ShouldBeFalse)
		})

		Convey("When more than 10 samples are pushed", func() {
			var avg float64
			var full bool
			for i := 1; i <= 15; i++ {
				avg, full = r.PushMovement(float64(i))
			}

			Convey("Then it never exceeds 10 and averages the newest", func() {
				So(r.MovementSamples(), ShouldEqual, 10)
				So(full, ShouldBeTrue)
				So(avg, ShouldAlmostEqual, 10.5, 1e-9) // 6..15
			})

			Convey("And clearing requires 10 fresh pushes", func() {
				r.ClearMovement()
				So(r.MovementSamples(), ShouldEqual, 0)
				for i := 0; i < 9; i++ {
					_, full = r.PushMovement(0)
				}
				So(full, ShouldBeFalse)
				_, full = r.PushMovement(0)
				So(full, ShouldBeTrue)
			})
		})

		Convey("When a custom size is configured", func() {
			r := registry.New(registry.WithWindowSize(3))
			r.PushMovement(1)
			r.PushMovement(2)
			_, full := r.PushMovement(3)
			So(full, ShouldBeTrue)
			So(registry.New(registry.WithWindowSize(-1)).MovementSamples(), ShouldEqual, 0)
		})
	})
}

func TestRollingWindow(t *testing.T) {
	Convey("Given a raw RollingWindow", t, func() {
		w := registry.NewRollingWindow(0)

		So(w.Cap(), ShouldEqual, 1)
		So(w.Average(), ShouldEqual, 0)
		w.Push(4)
		w.Push(8)
		So(w.Len(), ShouldEqual, 1)
		So(w.Average(), ShouldEqual, 8)
	})
}

func TestRegistryConcurrency(t *testing.T) {
	Convey("Given concurrent writers on distinct kinds", t, func() {
		r := registry.New()
		kinds := []model.Kind{model.KindGazeAway, model.KindFaceMismatch, model.KindTabSwitch}
		var wg sync.WaitGroup

		for _, k := range kinds {
			wg.Add(1)
			go func(k model.Kind) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					r.Bump(k)
					r.ShouldEmit(k, time.Now(), time.Millisecond)
					r.PushMovement(float64(i))
				}
			}(k)
		}
		wg.Wait()

		for _, k := range kinds {
			So(r.Count(k), ShouldEqual, 100)
		}
		So(r.MovementSamples(), ShouldEqual, 10)
	})
}
