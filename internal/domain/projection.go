package domain

import "encoding/json"

// Point is one account placed on the 2D projection plane.
type Point struct {
	AccountID AccountID
	X         float64
	Y         float64
}

// Projection is the rendered 2D view of a cluster.
// Spec holds a Vega-Lite document; both fields are immutable once built.
type Projection struct {
	Points []Point
	Spec   json.RawMessage
}
