package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/couchcryptid/fetchclimate-client/internal/mockservice"
)

// setupEnv points the CLI at an in-process mock service and a fresh cache.
func setupEnv(t *testing.T, opts ...mockservice.Option) *mockservice.Service {
	t.Helper()
	svc := mockservice.New(opts...)
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	t.Setenv("FETCHCLIMATE_URL", srv.URL)
	t.Setenv("FETCHCLIMATE_CACHE_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("MAPBOX_ENABLED", "false")
	t.Setenv("MAPBOX_TOKEN", "")
	t.Setenv("KAFKA_BROKERS", "")
	return svc
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func decodeRows(t *testing.T, out string) []valueRow {
	t.Helper()
	var rows []valueRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows), out)
	return rows
}

func TestParams(t *testing.T) {
	out, err := run(t, "params")
	require.NoError(t, err)
	assert.Contains(t, out, "FC_TEMPERATURE")
	assert.Contains(t, out, "K -> Celsius")
}

func TestParams_JSON(t *testing.T) {
	out, err := run(t, "params", "-o", "json")
	require.NoError(t, err)

	var rows []parameterRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, len(domain.Parameters()))
}

func TestFetchPoint(t *testing.T) {
	svc := setupEnv(t)

	out, err := run(t, "fetch", "FC_TEMPERATURE", "--lat", "47.6", "--lon", "-122.3", "-o", "json")
	require.NoError(t, err)

	rows := decodeRows(t, out)
	require.Len(t, rows, 1)
	cell := domain.PointCell(47.6, -122.3, domain.DefaultTimeBounds(1961, 1990))
	want := mockservice.Value(domain.Temperature, cell)
	assert.InDelta(t, want.Value-273.15, rows[0].Value, 1e-6)
	assert.Equal(t, "Celsius", rows[0].Unit)
	assert.Equal(t, mockservice.Provenance, rows[0].Provenance)
	assert.Equal(t, 1, svc.Calls())

	// The second run is answered from the disk cache.
	_, err = run(t, "fetch", "FC_TEMPERATURE", "--lat", "47.6", "--lon", "-122.3", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Calls())
}

func TestFetchArea_Table(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "fetch", "FC_PRECIPITATION",
		"--lat-min", "10", "--lat-max", "12", "--lon-min", "20", "--lon-max", "22",
		"--day-min", "1", "--day-max", "31")
	require.NoError(t, err)
	assert.Contains(t, out, "LAT")
	assert.Contains(t, out, "10..12")
	assert.Contains(t, out, "1961-1990")
	assert.Contains(t, out, "1-31")
	assert.Contains(t, out, "mm/month")
}

func TestFetchPending(t *testing.T) {
	svc := setupEnv(t, mockservice.WithPending(1, 0, false))

	_, err := run(t, "fetch", "FC_ELEVATION", "--lat", "1", "--lon", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, svc.Calls())
	assert.Equal(t, 1, svc.StatusSubmissions())
}

func TestGrid(t *testing.T) {
	svc := setupEnv(t)

	out, err := run(t, "grid", "FC_ELEVATION",
		"--lat-min", "10", "--lat-max", "12", "--lon-min", "0", "--lon-max", "3",
		"--d-lat", "1", "--d-lon", "1", "-o", "json")
	require.NoError(t, err)

	rows := decodeRows(t, out)
	require.Len(t, rows, 6)
	assert.Equal(t, "0,0", rows[0].Label)
	assert.Equal(t, "1,2", rows[5].Label)
	assert.Equal(t, 11.0, rows[5].LatMin)
	assert.Equal(t, 2.0, rows[5].LonMin)
	assert.Equal(t, 1, svc.Calls(), "the grid is one batch")
}

func TestSeriesYearly(t *testing.T) {
	svc := setupEnv(t)

	out, err := run(t, "series", "yearly", "FC_TEMPERATURE", "--lat", "1", "--lon", "2",
		"--year-min", "1961", "--year-max", "1990", "--step", "10", "-o", "json")
	require.NoError(t, err)

	rows := decodeRows(t, out)
	require.Len(t, rows, 3)
	assert.Equal(t, "1961-1970", rows[0].Label)
	assert.Equal(t, "1981-1990", rows[2].Label)
	assert.Equal(t, 1970, rows[0].YearMax)
	assert.Equal(t, 1, svc.Calls())
}

func TestSeriesSeasonly(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "series", "seasonly", "FC_TEMPERATURE", "--lat", "1", "--lon", "2",
		"--day-min", "1", "--day-max", "365", "--step", "100", "-o", "json")
	require.NoError(t, err)

	rows := decodeRows(t, out)
	require.Len(t, rows, 4)
	assert.Equal(t, "301-365", rows[3].Label)
}

func TestCacheStatsAndClear(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "fetch", "FC_TEMPERATURE", "--lat", "1", "--lon", "2")
	require.NoError(t, err)

	out, err := run(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Entries:   1")

	out, err = run(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared")

	out, err = run(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Entries:   0")
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		is   error
	}{
		{"latitude out of range", []string{"fetch", "FC_TEMPERATURE", "--lat", "90.0001", "--lon", "0"}, domain.ErrValidation},
		{"unknown parameter", []string{"fetch", "FC_NOPE", "--lat", "1", "--lon", "2"}, domain.ErrValidation},
		{"place without mapbox", []string{"fetch", "FC_TEMPERATURE", "--place", "Seattle"}, errPlacesDisabled},
		{"no location", []string{"fetch", "FC_TEMPERATURE"}, nil},
		{"publish without kafka", []string{"--publish", "fetch", "FC_TEMPERATURE", "--lat", "1", "--lon", "2"}, nil},
		{"bad output", []string{"-o", "xml", "params"}, nil},
		{"bad variation", []string{"fetch", "FC_TEMPERATURE", "--lat", "1", "--lon", "2", "--variation", "weekly"}, nil},
		{"lat without lon", []string{"fetch", "FC_TEMPERATURE", "--lat", "1"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := setupEnv(t)

			_, err := run(t, tt.args...)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			assert.Equal(t, 0, svc.Calls())
		})
	}
}

func TestFetchServiceFailure(t *testing.T) {
	setupEnv(t, mockservice.WithFailure("no data"))

	_, err := run(t, "fetch", "FC_TEMPERATURE", "--lat", "1", "--lon", "2")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProcessingFailed)
}
