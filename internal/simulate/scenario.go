package simulate

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/okian/vigil/internal/adapters/facestream"
	"github.com/okian/vigil/internal/adapters/http/api"
	"github.com/okian/vigil/internal/domain/model"
)

// Scenario is a scripted candidate behaviour.
type Scenario string

// Scenarios.
const (
	// ScenarioCalm keeps one face in frame and touches nothing.
	ScenarioCalm Scenario = "calm"
	// ScenarioMultiFace has a second person join the frame.
	ScenarioMultiFace Scenario = "multiface"
	// ScenarioEnvironment switches tabs, copies, pastes and leaves fullscreen.
	ScenarioEnvironment Scenario = "environment"
	// ScenarioGazeAway keeps looking to the side of the screen.
	ScenarioGazeAway Scenario = "gaze"
)

// gazeAwayOffset is the iris shift, in eye widths, of ScenarioGazeAway.
const gazeAwayOffset = 0.35

// Scenarios returns every scenario in rotation order.
func Scenarios() []Scenario {
	return []Scenario{ScenarioCalm, ScenarioMultiFace, ScenarioEnvironment, ScenarioGazeAway}
}

// ParseScenario validates s. The empty string selects rotation.
func ParseScenario(s string) (Scenario, error) {
	if s == "" {
		return "", nil
	}
	for _, sc := range Scenarios() {
		if string(sc) == s {
			return sc, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScenario, s)
}

// Expected lists the violation kinds the scenario must produce.
func (s Scenario) Expected() []model.Kind {
	switch s {
	case ScenarioMultiFace:
		return []model.Kind{model.KindMultiFace}
	case ScenarioGazeAway:
		return []model.Kind{model.KindGazeAway}
	case ScenarioEnvironment:
		return []model.Kind{
			model.KindFullscreenEnabled,
			model.KindTabSwitch,
			model.KindCopyRestrict,
			model.KindPasteAttempt,
			model.KindRightClick,
			model.KindFullscreenExit,
		}
	default:
		return nil
	}
}

// step is one scripted signal followed by a pause.
type step struct {
	msg   api.ClientMessage
	pause time.Duration
}

// script returns the environment signals a scenario sends once streaming
// has started.
func (s Scenario) script() []step {
	if s != ScenarioEnvironment {
		return nil
	}
	yes, no := true, false
	return []step{
		{msg: api.ClientMessage{Type: "fullscreen", Fullscreen: &yes}},
		{msg: api.ClientMessage{Type: "visibility", Hidden: &yes}, pause: hiddenFor},
		{msg: api.ClientMessage{Type: "visibility", Hidden: &no}},
		{msg: api.ClientMessage{Type: "copy"}},
		{msg: api.ClientMessage{Type: "paste"}},
		{msg: api.ClientMessage{Type: "contextmenu", Metadata: map[string]any{"x": 120, "y": 340}}},
		{msg: api.ClientMessage{Type: "fullscreen", Fullscreen: &no}},
	}
}

// sample builds the detection result for frame n.
func (s Scenario) sample(n int) *facestream.Sample {
	face := candidateFace(n)
	faces := []model.Face{face}
	if s == ScenarioMultiFace {
		faces = append(faces, model.Face{
			Box:        model.Box{X: 420, Y: 90, W: 150, H: 170},
			Confidence: 0.8 + jitter(0.15),
		})
	}
	gaze := 0.0
	if s == ScenarioGazeAway {
		gaze = gazeAwayOffset
	}
	return &facestream.Sample{Width: 640, Height: 480, Faces: faces, Mesh: meshFor(face.Box, n, gaze)}
}

// candidateFace is a centred face that sways from side to side between
// frames, enough that the head never reads as static.
func candidateFace(n int) model.Face {
	sway := float64(n%2) * 8
	return model.Face{
		Box:        model.Box{X: 220 + sway, Y: 120 + jitter(4), W: 200, H: 230},
		Confidence: 0.9 + jitter(0.09),
	}
}

// jitter returns a random value in [0, max) using crypto/rand.
func jitter(maxVal float64) float64 {
	const resolution = 1_000_000
	n, err := rand.Int(rand.Reader, big.NewInt(resolution))
	if err != nil {
		return 0
	}
	return float64(n.Int64()) / resolution * maxVal
}
