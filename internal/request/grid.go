package request

import (
	"fmt"
	"math"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
)

// fractional steps below this are treated as rounding noise
const stepEpsilon = 1e-9

// GridSpec describes a bounding box divided into DLat by DLon cells.
type GridSpec struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
	DLat, DLon     float64
	Time           domain.TimeBounds
}

// GridShape is the number of rows (latitudes) and columns (longitudes).
type GridShape struct {
	Lats int `json:"lats"`
	Lons int `json:"lons"`
}

// Len returns the number of cells in the grid.
func (s GridShape) Len() int { return s.Lats * s.Lons }

// Grid expands a bounding box into ceil((max-min)/d) cells per axis, the last
// cell of each axis truncated at max. Cells are latitude-major.
// A degenerate axis (min == max) contributes one point row or column.
func Grid(p domain.Parameter, spec GridSpec, opts domain.FetchingOptions) (domain.BatchRequest, GridShape, error) {
	corner := domain.AreaCell(spec.LatMin, spec.LatMax, spec.LonMin, spec.LonMax, spec.Time)
	if err := domain.ValidateCell(corner); err != nil {
		return domain.BatchRequest{}, GridShape{}, err
	}
	if spec.LonMin > spec.LonMax {
		return domain.BatchRequest{}, GridShape{}, &domain.ValidationError{
			Field: "lon_min", Value: spec.LonMin, Reason: fmt.Sprintf("must not exceed lon_max %v for a grid", spec.LonMax),
		}
	}

	lats, err := axisBounds("d_lat", spec.LatMin, spec.LatMax, spec.DLat)
	if err != nil {
		return domain.BatchRequest{}, GridShape{}, err
	}
	lons, err := axisBounds("d_lon", spec.LonMin, spec.LonMax, spec.DLon)
	if err != nil {
		return domain.BatchRequest{}, GridShape{}, err
	}

	cells := make([]domain.Cell, 0, len(lats)*len(lons))
	for _, la := range lats {
		for _, lo := range lons {
			cells = append(cells, domain.AreaCell(la[0], la[1], lo[0], lo[1], spec.Time))
		}
	}
	if opts.VariationType == "" || opts.VariationType == domain.VariationAuto {
		opts.VariationType = domain.VariationSpatial
	}
	req, err := FromCells(p, cells, opts)
	if err != nil {
		return domain.BatchRequest{}, GridShape{}, err
	}
	return req, GridShape{Lats: len(lats), Lons: len(lons)}, nil
}

func axisBounds(field string, lo, hi, d float64) ([][2]float64, error) {
	if !(d > 0) || math.IsInf(d, 0) {
		return nil, &domain.ValidationError{Field: field, Value: d, Reason: "grid step must be positive"}
	}
	if lo == hi {
		return [][2]float64{{lo, hi}}, nil
	}
	n := max(int(math.Ceil((hi-lo)/d-stepEpsilon)), 1)
	out := make([][2]float64, n)
	for i := range out {
		a := lo + float64(i)*d
		out[i] = [2]float64{a, math.Min(a+d, hi)}
	}
	return out, nil
}

// UnflattenGrid reshapes latitude-major values into [lat][lon].
func UnflattenGrid[T any](values []T, shape GridShape) ([][]T, error) {
	if len(values) != shape.Len() {
		return nil, fmt.Errorf("%w: %d values for a %dx%d grid", ErrResultShape, len(values), shape.Lats, shape.Lons)
	}
	out := make([][]T, shape.Lats)
	for i := range out {
		out[i] = values[i*shape.Lons : (i+1)*shape.Lons : (i+1)*shape.Lons]
	}
	return out, nil
}
