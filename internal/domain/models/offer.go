package models

import "time"

// Location carries the out-of-band locality hints attached to an
// observation. City/Neighborhood are already resolved by the collaborator;
// the core never geocodes, so an observation with coordinates but no
// resolved city is excluded from regional aggregation.
type Location struct {
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
	City         string  `json:"city,omitempty"`
	Neighborhood string  `json:"neighborhood,omitempty"`
}

// RawObservation is one screen-change event from the capture layer.
// It lives only long enough to be parsed.
type RawObservation struct {
	Timestamp time.Time `json:"timestamp"`
	DriverID  string    `json:"driver_id"`
	PackageID string    `json:"package_id,omitempty"`
	Text      string    `json:"text"`
	Location  *Location `json:"location,omitempty"`
}

// ParsedOffer is the structured result of parsing one observation.
// Price is always present and positive; every other numeric field is
// best-effort, with zero meaning "not found". Created once, never mutated.
type ParsedOffer struct {
	Timestamp        time.Time
	Platform         Platform
	Price            float64
	DistanceKm       float64
	EstimatedTimeMin float64
	PickupDistanceKm float64
	PickupTimeMin    float64
	Rating           float64
	RawText          string
	ExtractionScore  int
}

// PricePerKm returns the fare per ride kilometer, or 0 when the ride
// distance is unknown.
func (o *ParsedOffer) PricePerKm() float64 {
	if o.DistanceKm <= 0 {
		return 0
	}
	return o.Price / o.DistanceKm
}

// RideSnapshot is the session-scoped projection of an offer kept in the
// driver's history buffer. Only WasAccepted is ever flipped in place.
type RideSnapshot struct {
	Timestamp        time.Time
	Price            float64
	DistanceKm       float64
	EstimatedTimeMin float64
	PricePerKm       float64
	Platform         Platform
	WasAccepted      bool
}

// SnapshotFromOffer projects a ParsedOffer into its session snapshot.
func SnapshotFromOffer(o *ParsedOffer) *RideSnapshot {
	return &RideSnapshot{
		Timestamp:        o.Timestamp,
		Price:            o.Price,
		DistanceKm:       o.DistanceKm,
		EstimatedTimeMin: o.EstimatedTimeMin,
		PricePerKm:       o.PricePerKm(),
		Platform:         o.Platform,
	}
}

// OfferRecord is the archived, region-tagged form of a parsed offer used by
// the statistics read path. The bucket counters are derived from these, not
// the other way around.
type OfferRecord struct {
	Timestamp    time.Time
	Platform     Platform
	Price        float64
	DistanceKm   float64
	PickupKm     float64
	TimeMin      int
	Rating       float64
	City         string
	Neighborhood string
	DriverID     string
}
