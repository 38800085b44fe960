// Package skeleton describes what a skeleton sensor delivers: frames of
// per-slot tracking state with 3-D joint positions in sensor-normalized
// coordinates.
package skeleton

import (
	"context"
	"fmt"
	"time"
)

// JointID identifies one skeletal joint.
type JointID int

// Joints reported by the sensor.
const (
	HipCenter JointID = iota
	Spine
	ShoulderCenter
	Head
	ShoulderLeft
	ElbowLeft
	WristLeft
	HandLeft
	ShoulderRight
	ElbowRight
	WristRight
	HandRight
	HipLeft
	KneeLeft
	AnkleLeft
	FootLeft
	HipRight
	KneeRight
	AnkleRight
	FootRight
	jointCount
)

var jointNames = [jointCount]string{
	"hip_center", "spine", "shoulder_center", "head",
	"shoulder_left", "elbow_left", "wrist_left", "hand_left",
	"shoulder_right", "elbow_right", "wrist_right", "hand_right",
	"hip_left", "knee_left", "ankle_left", "foot_left",
	"hip_right", "knee_right", "ankle_right", "foot_right",
}

func (j JointID) String() string {
	if j < 0 || j >= jointCount {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// MarshalText lets JointID be a JSON object key.
func (j JointID) MarshalText() ([]byte, error) {
	if j < 0 || j >= jointCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownJoint, int(j))
	}
	return []byte(jointNames[j]), nil
}

// UnmarshalText parses a joint name.
func (j *JointID) UnmarshalText(b []byte) error {
	id, err := ParseJoint(string(b))
	if err != nil {
		return err
	}
	*j = id
	return nil
}

// ParseJoint maps a joint name back to its id.
func ParseJoint(name string) (JointID, error) {
	for i, n := range jointNames {
		if n == name {
			return JointID(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownJoint, name)
}

// TrackingState is the sensor's confidence in a slot.
type TrackingState int

const (
	NotTracked TrackingState = iota
	PositionOnly
	Tracked
)

var stateNames = [...]string{"not_tracked", "position_only", "tracked"}

func (s TrackingState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s TrackingState) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stateNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText decodes a state name.
func (s *TrackingState) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) {
			*s = TrackingState(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownState, string(b))
}

// Vec3 is a sensor-space position. X and Y are roughly in [-1, 1] with Y up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// RawBody is one slot of a frame.
type RawBody struct {
	Slot   int              `json:"slot"`
	State  TrackingState    `json:"state"`
	Joints map[JointID]Vec3 `json:"joints,omitempty"`
}

// Frame is one sensor delivery.
type Frame struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`
	Bodies    []RawBody `json:"bodies"`
}

// Source pushes frames asynchronously. Start must not block; deliver may
// be called from any goroutine and must not be retained after Close.
type Source interface {
	Start(ctx context.Context, deliver func(Frame)) error
	Close() error
}
