// Package request shapes scalar, array, grid, time-series and axis inputs
// into flat batch requests, and reshapes the flat results back.
//
// Every builder validates its output before returning it, so a request
// produced here never carries out-of-range bounds or zero cells.
package request

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/couchcryptid/fetchclimate-client/internal/hash"
)

// ErrResultShape is returned when a result does not line up with its request.
var ErrResultShape = errors.New("result does not match request")

// CellArrays holds parallel per-cell bounds. Nil hour and day arrays leave
// those bounds unspecified; every non-nil array must have the same length.
type CellArrays struct {
	LatMin, LatMax   []float64
	LonMin, LonMax   []float64
	HourMin, HourMax []int
	DayMin, DayMax   []int
	YearMin, YearMax []int
}

// Len returns the length of the latitude arrays.
func (a CellArrays) Len() int { return len(a.LatMin) }

// Cells zips the arrays into cells.
func (a CellArrays) Cells() ([]domain.Cell, error) {
	n := len(a.LatMin)
	lengths := []struct {
		name     string
		got      int
		optional bool
	}{
		{"lat_max", len(a.LatMax), false},
		{"lon_min", len(a.LonMin), false},
		{"lon_max", len(a.LonMax), false},
		{"hour_min", len(a.HourMin), a.HourMin == nil},
		{"hour_max", len(a.HourMax), a.HourMax == nil},
		{"day_min", len(a.DayMin), a.DayMin == nil},
		{"day_max", len(a.DayMax), a.DayMax == nil},
		{"year_min", len(a.YearMin), false},
		{"year_max", len(a.YearMax), false},
	}
	for _, l := range lengths {
		if !l.optional && l.got != n {
			return nil, lengthError(l.name, l.got, n)
		}
	}

	cells := make([]domain.Cell, n)
	for i := range cells {
		cells[i] = domain.Cell{
			LatMin: a.LatMin[i], LatMax: a.LatMax[i],
			LonMin: a.LonMin[i], LonMax: a.LonMax[i],
			HourMin: at(a.HourMin, i), HourMax: at(a.HourMax, i),
			DayMin: at(a.DayMin, i), DayMax: at(a.DayMax, i),
			YearMin: a.YearMin[i], YearMax: a.YearMax[i],
		}
	}
	return cells, nil
}

func at(arr []int, i int) int {
	if arr == nil {
		return domain.Unspecified
	}
	return arr[i]
}

func lengthError(name string, got, want int) error {
	return &domain.ValidationError{
		Field:  name,
		Value:  got,
		Reason: fmt.Sprintf("array length must equal lat_min length %d", want),
	}
}

// Single promotes one cell to a one-cell batch.
func Single(p domain.Parameter, c domain.Cell, opts domain.FetchingOptions) (domain.BatchRequest, error) {
	return FromCells(p, []domain.Cell{c}, opts)
}

// FromCells builds a batch from an ordered cell list.
func FromCells(p domain.Parameter, cells []domain.Cell, opts domain.FetchingOptions) (domain.BatchRequest, error) {
	req := domain.NewBatchRequest(p, cells, opts)
	if err := domain.ValidateRequest(req); err != nil {
		return domain.BatchRequest{}, err
	}
	return req, nil
}

// FromArrays builds a batch from parallel bound arrays.
func FromArrays(p domain.Parameter, a CellArrays, opts domain.FetchingOptions) (domain.BatchRequest, error) {
	cells, err := a.Cells()
	if err != nil {
		return domain.BatchRequest{}, err
	}
	return FromCells(p, cells, opts)
}

// Parse extracts the per-cell values of a final result. A failed result
// yields a *domain.ProcessingError.
func Parse(res domain.Result) ([]domain.ParameterValue, error) {
	if !res.Succeeded() {
		return nil, &domain.ProcessingError{RequestHash: hash.Request(res.Request), Message: res.Message}
	}
	if len(res.Values) != res.Request.Len() {
		return nil, fmt.Errorf("%w: %d values for %d cells", ErrResultShape, len(res.Values), res.Request.Len())
	}
	return res.Values, nil
}
