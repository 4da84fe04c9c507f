package model

import (
	"maps"
	"time"
)

// DeviceState is the opaque state payload returned by the platform. Fields vary by device type.
type DeviceState map[string]any

// Device is one entry of the home device list, with its latest known state under Data.
type Device struct {
	DeviceID  string      `json:"deviceId"`
	Token     string      `json:"token"`
	Type      DeviceType  `json:"type"`
	Name      string      `json:"name"`
	ModelName string      `json:"modelName"`
	Data      DeviceState `json:"data,omitempty"`
}

// WithData returns a copy of the device carrying data.
func (d Device) WithData(data DeviceState) Device {
	d.Data = data
	return d
}

// Snapshot maps device id to the device and its latest known state.
type Snapshot map[string]Device

// Unavailable is the state assigned to a device whose state could not be fetched and has never been seen.
func Unavailable() DeviceState {
	return DeviceState{"available": false}
}

// Available reports whether the state holds real data rather than the unavailable marker.
func (s DeviceState) Available() bool {
	v, ok := s["available"]
	return !ok || v != false
}

// MergeState shallow merges next over prev. Neither input is modified.
func MergeState(prev, next DeviceState) DeviceState {
	out := make(DeviceState, len(prev)+len(next))
	maps.Copy(out, prev)
	maps.Copy(out, next)
	return out
}

type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"error"`
}

// Notification is what every sink receives after a poll cycle: either a snapshot or a failure.
type Notification struct {
	Kind     NotificationKind `json:"type"`
	Snapshot Snapshot         `json:"payload,omitempty"`
	Failure  *Failure         `json:"failure,omitempty"`
	Time     time.Time        `json:"time"`
}

func NewSnapshotNotification(s Snapshot) Notification {
	return Notification{
		Kind:     SensorData,
		Snapshot: s,
		Time:     time.Now(),
	}
}

func NewFailureNotification(kind FailureKind) Notification {
	return Notification{
		Kind: FetchError,
		Failure: &Failure{
			Kind:    kind,
			Message: FailureMessages[kind],
		},
		Time: time.Now(),
	}
}
