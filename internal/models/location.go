package models

// LocationRecord is the canonical resolved location every widget reads.
type LocationRecord struct {
	Name      string  `json:"name" yaml:"name"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Region    string  `json:"region,omitempty" yaml:"region,omitempty"`
}

// IsZero reports whether no location has ever been resolved into r.
func (r LocationRecord) IsZero() bool {
	return r.Name == ""
}

// KnownPlace is one entry of the fixed reference table.
type KnownPlace struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Region    string  `json:"region"`
}

// Record converts the place into a LocationRecord.
func (p KnownPlace) Record() LocationRecord {
	return LocationRecord{
		Name:      p.Name,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Region:    p.Region,
	}
}

// Position is a device geolocation fix.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
