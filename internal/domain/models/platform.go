package models

// Platform identifies the ride-hailing app a screen text was captured from.
// Kept as a closed enumeration so that adding a platform forces every
// consuming switch to be revisited at compile time.
type Platform int

const (
	PlatformUnknown Platform = iota
	PlatformUber
	Platform99
)

// String returns the wire/label form of the platform.
func (p Platform) String() string {
	switch p {
	case PlatformUber:
		return "uber"
	case Platform99:
		return "99"
	case PlatformUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// ParsePlatform converts a raw label to a Platform. Anything unrecognized
// maps to PlatformUnknown.
func ParsePlatform(s string) Platform {
	switch s {
	case "uber":
		return PlatformUber
	case "99":
		return Platform99
	default:
		return PlatformUnknown
	}
}
