package model

type RegisterDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

type RegisterMessage struct {
	Tilda             string         `json:"~"`
	Name              string         `json:"name"`
	ID                string         `json:"unique_id"`
	StateTopic        string         `json:"state_topic"`
	ValueTemplate     string         `json:"value_template,omitempty"`
	JsonAttrTopic     string         `json:"json_attributes_topic,omitempty"`
	UnitOfMeasurement string         `json:"unit_of_measurement,omitempty"`
	Device            RegisterDevice `json:"device"`
}
