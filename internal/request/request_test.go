package request

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
)

var climatology = domain.DefaultTimeBounds(1961, 1990)

func TestSingle(t *testing.T) {
	req, err := Single(domain.Temperature, domain.PointCell(47.6, -122.3, climatology), domain.FetchingOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, req.Len())
	assert.Equal(t, domain.DefaultOptions(), req.Options)

	_, err = Single(domain.Temperature, domain.PointCell(90.0001, 0, climatology), domain.FetchingOptions{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFromCells_Empty(t *testing.T) {
	_, err := FromCells(domain.Temperature, nil, domain.FetchingOptions{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFromArrays(t *testing.T) {
	a := CellArrays{
		LatMin: []float64{10, 20}, LatMax: []float64{10, 21},
		LonMin: []float64{30, 40}, LonMax: []float64{30, 41},
		YearMin: []int{1961, 1971}, YearMax: []int{1970, 1980},
	}

	t.Run("nil hours and days are unspecified", func(t *testing.T) {
		req, err := FromArrays(domain.Precipitation, a, domain.FetchingOptions{})
		require.NoError(t, err)
		want := []domain.Cell{
			{LatMin: 10, LatMax: 10, LonMin: 30, LonMax: 30, YearMin: 1961, YearMax: 1970,
				HourMin: domain.Unspecified, HourMax: domain.Unspecified, DayMin: domain.Unspecified, DayMax: domain.Unspecified},
			{LatMin: 20, LatMax: 21, LonMin: 40, LonMax: 41, YearMin: 1971, YearMax: 1980,
				HourMin: domain.Unspecified, HourMax: domain.Unspecified, DayMin: domain.Unspecified, DayMax: domain.Unspecified},
		}
		if diff := cmp.Diff(want, req.Cells); diff != "" {
			t.Errorf("cells mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		bad := a
		bad.LonMax = []float64{30}
		_, err := FromArrays(domain.Precipitation, bad, domain.FetchingOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Contains(t, err.Error(), "lon_max")
	})

	t.Run("mismatched optional array", func(t *testing.T) {
		bad := a
		bad.DayMin = []int{1}
		_, err := FromArrays(domain.Precipitation, bad, domain.FetchingOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "day_min")
	})
}

func TestParse(t *testing.T) {
	req, err := Single(domain.Temperature, domain.PointCell(0, 0, climatology), domain.FetchingOptions{})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		vals := []domain.ParameterValue{{Value: 300, Uncertainty: 1, Provenance: "CRU_CL_2_0"}}
		got, err := Parse(domain.Result{Request: req, Values: vals, Status: domain.StatusSuccess})
		require.NoError(t, err)
		assert.Equal(t, vals, got)
	})

	t.Run("failed result", func(t *testing.T) {
		_, err := Parse(domain.Result{Request: req, Status: domain.StatusFailed, Message: "no data"})
		var perr *domain.ProcessingError
		require.True(t, errors.As(err, &perr))
		assert.Len(t, perr.RequestHash, 40)
		assert.Equal(t, "no data", perr.Message)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := Parse(domain.Result{Request: req, Status: domain.StatusSuccess})
		assert.ErrorIs(t, err, ErrResultShape)
	})
}
