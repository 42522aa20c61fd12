package models

// Request models for the demand read API. Validation tags are enforced by
// the shared request reader; defaults apply before validation.

// TopRegionsRequest ranks cities, or one city's neighborhoods when City is
// set.
type TopRegionsRequest struct {
	City string `query:"city" json:"city"`
	N    int    `query:"n" json:"n" default:"5" validate:"gte=1,lte=50"`
	At   string `query:"at" json:"at"` // RFC3339 or unix seconds; empty means now
}

// TrendRequest asks for the 120-minute demand direction of a region.
type TrendRequest struct {
	City         string `query:"city" json:"city" validate:"required"`
	Neighborhood string `query:"neighborhood" json:"neighborhood"`
	At           string `query:"at" json:"at"`
}

// RegionalStatsRequest asks for the 1h/3h/today counts of a city.
type RegionalStatsRequest struct {
	City string `query:"city" json:"city" validate:"required"`
	At   string `query:"at" json:"at"`
}

// BucketRequest asks for the live counter document of a region.
type BucketRequest struct {
	City         string `query:"city" json:"city" validate:"required"`
	Neighborhood string `query:"neighborhood" json:"neighborhood"`
}

// SessionStatsRequest asks for one driver's live session statistics.
type SessionStatsRequest struct {
	DriverID string `query:"driver_id" json:"driver_id" validate:"required"`
}

// AcceptOfferRequest flags the driver's latest offer from a platform as
// accepted.
type AcceptOfferRequest struct {
	DriverID string `json:"driver_id" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=uber 99"`
}
