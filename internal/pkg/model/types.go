package model

type NotificationKind string

func (k NotificationKind) String() string {
	return string(k)
}

const (
	SensorData NotificationKind = "SENSOR_DATA"
	FetchError NotificationKind = "FETCH_ERROR"
)

type FailureKind string

func (k FailureKind) String() string {
	return string(k)
}

const (
	AuthFailure              FailureKind = "AuthFailure"
	ApiFailure               FailureKind = "ApiFailure"
	NoMatchingDevicesFailure FailureKind = "NoMatchingDevicesFailure"
	CriticalFailure          FailureKind = "CriticalFailure"
	// PartialFailure degrades a single device and is never published.
	PartialFailure FailureKind = "PartialFailure"
)

// Messages shown on the dashboard for each published failure kind.
var FailureMessages = map[FailureKind]string{
	AuthFailure:              "Authentication Failed. Check logs.",
	ApiFailure:               "Could not fetch device data.",
	NoMatchingDevicesFailure: "No matching devices found.",
	CriticalFailure:          "A critical error occurred. Check logs.",
}

type DeviceType string

func (t DeviceType) String() string {
	return string(t)
}

// DeviceTypeTHSensor reports temperature and humidity. Other types are passed through as
// the platform names them.
const DeviceTypeTHSensor DeviceType = "THSensor"

// StateMethod returns the api method used to query the live state of a device type.
func (t DeviceType) StateMethod() string {
	return string(t) + ".getState"
}
