package models

// SensorReading is one temperature and humidity sample from a storage-area
// sensor. Field tags follow the monitor backend's JSON keys.
type SensorReading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	LastUpdate  string  `json:"lastUpdate"`
	Connected   bool    `json:"connected"`
	Email       string  `json:"email,omitempty"`
}

// Disconnected is the substitute reading shown while no sensor data is
// available.
func Disconnected() SensorReading {
	return SensorReading{LastUpdate: "Never", Connected: false}
}
