package projection

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/labeldesk/internal/domain"
)

const (
	vegaLiteSchema = "https://vega.github.io/schema/vega-lite/v5.json"
	pointColor     = "#00acee"
	pointSize      = 100
)

type vlSpec struct {
	Schema   string     `json:"$schema"`
	Title    string     `json:"title"`
	Width    int        `json:"width"`
	Height   int        `json:"height"`
	Data     vlData     `json:"data"`
	Mark     vlMark     `json:"mark"`
	Params   []vlParam  `json:"params"`
	Encoding vlEncoding `json:"encoding"`
}

type vlData struct {
	Values []vlDatum `json:"values"`
}

// user_id is a string: JavaScript numbers lose precision above 2^53.
type vlDatum struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	UserID string  `json:"user_id"`
}

type vlMark struct {
	Type  string `json:"type"`
	Size  int    `json:"size"`
	Color string `json:"color"`
}

type vlParam struct {
	Name   string `json:"name"`
	Select string `json:"select"`
	Bind   string `json:"bind"`
}

type vlEncoding struct {
	X       vlField   `json:"x"`
	Y       vlField   `json:"y"`
	Tooltip []vlField `json:"tooltip"`
}

type vlField struct {
	Field string `json:"field"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

// buildSpec renders an interactive Vega-Lite scatter plot of the points.
func buildSpec(cid domain.ClusterID, points []domain.Point, width, height int) (json.RawMessage, error) {
	values := make([]vlDatum, len(points))
	for i, p := range points {
		values[i] = vlDatum{X: p.X, Y: p.Y, UserID: p.AccountID.String()}
	}

	spec := vlSpec{
		Schema: vegaLiteSchema,
		Title:  fmt.Sprintf("t-SNE Visualization for cluster %s", cid),
		Width:  width,
		Height: height,
		Data:   vlData{Values: values},
		Mark:   vlMark{Type: "circle", Size: pointSize, Color: pointColor},
		Params: []vlParam{{Name: "grid", Select: "interval", Bind: "scales"}},
		Encoding: vlEncoding{
			X:       vlField{Field: "x", Type: "quantitative", Title: "x"},
			Y:       vlField{Field: "y", Type: "quantitative", Title: "y"},
			Tooltip: []vlField{{Field: "user_id", Type: "nominal", Title: "user_id"}},
		},
	}

	b, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("marshal vega-lite spec: %w", err)
	}
	return b, nil
}
