package model

import (
	"encoding/base64"
	"time"
)

// Direction is a categorical gaze direction.
type Direction string

// Gaze directions.
const (
	DirectionCenter Direction = "center"
	DirectionLeft   Direction = "left"
	DirectionRight  Direction = "right"
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionAway   Direction = "away"
)

// GazeReading is the derived gaze of one sample.
type GazeReading struct {
	Direction  Direction
	Confidence float64
}

// Violation is a dispatched violation record. It is not mutated after
// construction; Metadata must be treated as read-only by receivers.
type Violation struct {
	ID           string
	Kind         Kind
	Timestamp    time.Time
	SubjectID    string
	AssessmentID string
	Metadata     map[string]any
	Snapshot     []byte
}

// Payload is the transport wire shape of a violation.
type Payload struct {
	EventType      string         `json:"eventType"`
	Timestamp      string         `json:"timestamp"`
	AssessmentID   string         `json:"assessmentId"`
	UserID         string         `json:"userId"`
	Metadata       map[string]any `json:"metadata"`
	SnapshotBase64 string         `json:"snapshotBase64,omitempty"`
}

// timestampLayout is ISO-8601 with millisecond precision in UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Payload converts v into its wire shape.
func (v Violation) Payload() Payload {
	p := Payload{
		EventType:    string(v.Kind),
		Timestamp:    v.Timestamp.UTC().Format(timestampLayout),
		AssessmentID: v.AssessmentID,
		UserID:       v.SubjectID,
		Metadata:     v.Metadata,
	}
	if p.Metadata == nil {
		p.Metadata = map[string]any{}
	}
	if len(v.Snapshot) > 0 {
		p.SnapshotBase64 = base64.StdEncoding.EncodeToString(v.Snapshot)
	}
	return p
}

// Intent is a declared violation that has not yet passed the dispatcher's
// throttle.
type Intent struct {
	Kind         Kind
	Metadata     map[string]any
	WantSnapshot bool
}
