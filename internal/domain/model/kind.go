// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned by ParseKind for names outside the closed set.
var ErrUnknownKind = errors.New("unknown violation kind")

// Kind identifies a violation type. The set is closed.
type Kind string

// Camera-derived kinds.
const (
	KindMultiFace     Kind = "MULTI_FACE"
	KindGazeAway      Kind = "GAZE_AWAY"
	KindSpoofDetected Kind = "SPOOF_DETECTED"
	KindFaceMismatch  Kind = "FACE_MISMATCH"
	KindCameraDenied  Kind = "CAMERA_DENIED"
	KindCameraError   Kind = "CAMERA_ERROR"
)

// Browser-environment kinds.
const (
	KindTabSwitch         Kind = "TAB_SWITCH"
	KindFocusLost         Kind = "FOCUS_LOST"
	KindFullscreenExit    Kind = "FULLSCREEN_EXIT"
	KindFullscreenEnabled Kind = "FULLSCREEN_ENABLED"
	KindFullscreenRefused Kind = "FULLSCREEN_REFUSED"
	KindDevtoolsOpen      Kind = "DEVTOOLS_OPEN"
	KindCopyRestrict      Kind = "COPY_RESTRICT"
	KindScreenshotAttempt Kind = "SCREENSHOT_ATTEMPT"
	KindPasteAttempt      Kind = "PASTE_ATTEMPT"
	KindRightClick        Kind = "RIGHT_CLICK"
	KindIdle              Kind = "IDLE"
)

var kinds = map[Kind]bool{ //nolint:gochecknoglobals // closed lookup table
	KindMultiFace:         false,
	KindGazeAway:          false,
	KindSpoofDetected:     false,
	KindFaceMismatch:      false,
	KindCameraDenied:      false,
	KindCameraError:       false,
	KindTabSwitch:         true,
	KindFocusLost:         true,
	KindFullscreenExit:    true,
	KindFullscreenEnabled: true,
	KindFullscreenRefused: true,
	KindDevtoolsOpen:      true,
	KindCopyRestrict:      true,
	KindScreenshotAttempt: true,
	KindPasteAttempt:      true,
	KindRightClick:        true,
	KindIdle:              true,
}

// Valid reports whether k belongs to the closed set.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Environmental reports whether k originates from browser signals rather
// than the camera. Environmental kinds use the shorter throttle interval.
func (k Kind) Environmental() bool {
	return kinds[k]
}

func (k Kind) String() string { return string(k) }

// ParseKind converts a wire name into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Kinds returns every kind in the closed set.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	return out
}
