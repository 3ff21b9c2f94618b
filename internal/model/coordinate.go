package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Coordinate is a WGS84 position picked on the map.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point returns the coordinate as a go-geom point (x = longitude, y = latitude).
func (c Coordinate) Point() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat}).SetSRID(4326)
}

// CoordinateFromPoint converts a go-geom point back into a Coordinate.
func CoordinateFromPoint(p *geom.Point) Coordinate {
	return Coordinate{Lat: p.Y(), Lng: p.X()}
}

// MarkerFeature encodes the map marker as a GeoJSON feature. picked reports
// whether the position came from a map click or is still the default center.
func MarkerFeature(c Coordinate, picked bool) ([]byte, error) {
	f := &geojson.Feature{
		Geometry: c.Point(),
		Properties: map[string]any{
			"picked": picked,
		},
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, eris.Wrap(err, "model: encode marker")
	}
	return data, nil
}
