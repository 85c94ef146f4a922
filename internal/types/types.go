// README: Common value objects shared across modules.
package types

// ID identifies an order, bid, user, or payment record.
type ID = string

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Address is a named location attached to an order.
type Address struct {
	Name       string     `json:"name"`
	Coordinate Coordinate `json:"coordinate"`
}

// HasCoordinate reports whether the address carries a usable position.
// A zero coordinate is treated as absent; orders created through the
// geocoding fallback never store (0, 0).
func (a Address) HasCoordinate() bool {
	return a.Coordinate.Latitude != 0 || a.Coordinate.Longitude != 0
}
