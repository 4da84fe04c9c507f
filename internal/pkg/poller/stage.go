package poller

type Stage string

func (s Stage) String() string {
	return string(s)
}

const (
	Idle           Stage = "idle"
	Authenticating Stage = "authenticating"
	ListingDevices Stage = "listing_devices"
	FetchingStates Stage = "fetching_states"
	Publishing     Stage = "publishing"
)
