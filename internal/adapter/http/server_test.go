package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/fetchclimate-client/internal/adapter/http"
	"github.com/couchcryptid/fetchclimate-client/internal/adapter/rest"
	"github.com/couchcryptid/fetchclimate-client/internal/cache"
	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/couchcryptid/fetchclimate-client/internal/mockservice"
	"github.com/couchcryptid/fetchclimate-client/internal/observability"
	"github.com/couchcryptid/fetchclimate-client/internal/processing"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type errFetcher struct {
	err error
}

func (f errFetcher) Process(context.Context, domain.BatchRequest) (domain.Result, error) {
	return domain.Result{}, f.err
}

type fakePlaces struct {
	place domain.Place
	err   error
}

func (f fakePlaces) ResolvePlace(context.Context, string) (domain.Place, error) { return f.place, f.err }

func (f fakePlaces) DescribeLocation(context.Context, float64, float64) (domain.Place, error) {
	return f.place, f.err
}

type climateBody struct {
	RequestHash string `json:"request_hash"`
	Parameter   string `json:"parameter"`
	ClientUnit  string `json:"client_unit"`
	Place       *struct {
		Name string `json:"name"`
	} `json:"place"`
	Shape *struct {
		Lats int `json:"lats"`
		Lons int `json:"lons"`
	} `json:"shape"`
	Cells []struct {
		LatMin      float64 `json:"lat_min"`
		LonMin      float64 `json:"lon_min"`
		YearMin     int     `json:"year_min"`
		Value       float64 `json:"value"`
		Uncertainty float64 `json:"uncertainty"`
		Provenance  string  `json:"provenance"`
		ClientValue float64 `json:"client_value"`
	} `json:"cells"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClimateServer(t *testing.T, svc *mockservice.Service, opts ...httpadapter.Option) *httpadapter.Server {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	c, err := cache.NewDiskCache(t.TempDir(), 0, discardLogger(), metrics)
	require.NoError(t, err)
	client := processing.New(svc, c, discardLogger(), metrics)
	return httpadapter.NewServer(":0", client, client, discardLogger(), opts...)
}

func get(t *testing.T, srv http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeClimate(t *testing.T, rec *httptest.ResponseRecorder) climateBody {
	t.Helper()
	var body climateBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthzReturns200(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, errFetcher{}, discardLogger())
	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, errFetcher{}, discardLogger())
	rec := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{err: rest.ErrServiceUnreachable}, errFetcher{}, discardLogger())
	rec := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, errFetcher{}, discardLogger())
	rec := get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestParametersEndpoint(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, errFetcher{}, discardLogger())
	rec := get(t, srv, "/v1/parameters")
	require.Equal(t, http.StatusOK, rec.Code)

	var params []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &params))
	assert.Len(t, params, len(domain.Parameters()))
}

func TestClimate_Point(t *testing.T) {
	svc := mockservice.New()
	srv := newClimateServer(t, svc)

	rec := get(t, srv, "/v1/climate?parameter=FC_TEMPERATURE&lat=47.6&lon=-122.3")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeClimate(t, rec)
	assert.Equal(t, "FC_TEMPERATURE", body.Parameter)
	assert.Len(t, body.RequestHash, 40)
	require.Len(t, body.Cells, 1)

	cell := domain.PointCell(47.6, -122.3, domain.DefaultTimeBounds(1961, 1990))
	want := mockservice.Value(domain.Temperature, cell)
	assert.InDelta(t, want.Value, body.Cells[0].Value, 1e-9)
	assert.InDelta(t, want.Value-273.15, body.Cells[0].ClientValue, 1e-9)
	assert.Equal(t, mockservice.Provenance, body.Cells[0].Provenance)
	assert.Equal(t, 1961, body.Cells[0].YearMin)
	assert.Nil(t, body.Shape)
}

func TestClimate_CachedOnSecondCall(t *testing.T) {
	svc := mockservice.New()
	srv := newClimateServer(t, svc)

	target := "/v1/climate?parameter=FC_PRECIPITATION&lat_min=10&lat_max=12&lon_min=20&lon_max=22&year_min=1970&year_max=1980"
	first := get(t, srv, target)
	second := get(t, srv, target)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)

	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, svc.Calls())
}

func TestClimate_Grid(t *testing.T) {
	svc := mockservice.New()
	srv := newClimateServer(t, svc)

	rec := get(t, srv, "/v1/climate?parameter=FC_ELEVATION&lat_min=10&lat_max=12&lon_min=0&lon_max=3&d_lat=1&d_lon=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeClimate(t, rec)
	require.NotNil(t, body.Shape)
	assert.Equal(t, 2, body.Shape.Lats)
	assert.Equal(t, 3, body.Shape.Lons)
	require.Len(t, body.Cells, 6)
	assert.Equal(t, 10.0, body.Cells[0].LatMin)
	assert.Equal(t, 2.0, body.Cells[2].LonMin)
	assert.Equal(t, 11.0, body.Cells[3].LatMin)
	assert.Equal(t, 1, svc.Calls())
}

func TestClimate_Place(t *testing.T) {
	svc := mockservice.New()
	places := fakePlaces{place: domain.Place{Name: "Seattle", Lat: 47.6, Lon: -122.3}}
	srv := newClimateServer(t, svc, httpadapter.WithPlaces(places))

	rec := get(t, srv, "/v1/climate?parameter=FC_TEMPERATURE&place=Seattle")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeClimate(t, rec)
	require.NotNil(t, body.Place)
	assert.Equal(t, "Seattle", body.Place.Name)
	require.Len(t, body.Cells, 1)
	assert.Equal(t, 47.6, body.Cells[0].LatMin)
}

func TestClimate_PlaceErrors(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := newClimateServer(t, mockservice.New())
		rec := get(t, srv, "/v1/climate?parameter=FC_TEMPERATURE&place=Seattle")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("not found", func(t *testing.T) {
		places := fakePlaces{err: fmt.Errorf("%w: %q", domain.ErrPlaceNotFound, "Atlantis")}
		srv := newClimateServer(t, mockservice.New(), httpadapter.WithPlaces(places))
		rec := get(t, srv, "/v1/climate?parameter=FC_TEMPERATURE&place=Atlantis")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestClimate_PointDescribesLocation(t *testing.T) {
	svc := mockservice.New()
	places := fakePlaces{place: domain.Place{Name: "Seattle", Lat: 47.6, Lon: -122.3}}
	srv := newClimateServer(t, svc, httpadapter.WithPlaces(places))

	rec := get(t, srv, "/v1/climate?parameter=FC_TEMPERATURE&lat=47.6038&lon=-122.3301")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeClimate(t, rec)
	require.NotNil(t, body.Place)
	assert.Equal(t, "Seattle", body.Place.Name)
	require.Len(t, body.Cells, 1)
	assert.Equal(t, 47.6038, body.Cells[0].LatMin)
}

func TestClimate_PointWithoutLocationName(t *testing.T) {
	t.Run("lookup disabled", func(t *testing.T) {
		srv := newClimateServer(t, mockservice.New())
		rec := get(t, srv, "/v1/climate?parameter=FC_TEMPERATURE&lat=1&lon=2")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Nil(t, decodeClimate(t, rec).Place)
	})
	t.Run("lookup fails", func(t *testing.T) {
		places := fakePlaces{err: domain.ErrPlaceNotFound}
		srv := newClimateServer(t, mockservice.New(), httpadapter.WithPlaces(places))
		rec := get(t, srv, "/v1/climate?parameter=FC_TEMPERATURE&lat=1&lon=2")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decodeClimate(t, rec)
		assert.Nil(t, body.Place)
		assert.Len(t, body.Cells, 1)
	})
}

func TestClimate_BadQueries(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"unknown parameter", "/v1/climate?parameter=NOPE&lat=1&lon=2"},
		{"missing parameter", "/v1/climate?lat=1&lon=2"},
		{"missing lon", "/v1/climate?parameter=FC_TEMPERATURE&lat=1"},
		{"non-numeric lat", "/v1/climate?parameter=FC_TEMPERATURE&lat=north&lon=2"},
		{"non-integer year", "/v1/climate?parameter=FC_TEMPERATURE&lat=1&lon=2&year_min=x"},
		{"latitude out of range", "/v1/climate?parameter=FC_TEMPERATURE&lat=90.0001&lon=2"},
		{"inverted years", "/v1/climate?parameter=FC_TEMPERATURE&lat=1&lon=2&year_min=1990&year_max=1961"},
		{"bad variation", "/v1/climate?parameter=FC_TEMPERATURE&lat=1&lon=2&variation=weekly"},
		{"missing area bounds", "/v1/climate?parameter=FC_TEMPERATURE&lat_min=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mockservice.New()
			srv := newClimateServer(t, svc)

			rec := get(t, srv, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, 0, svc.Calls(), "invalid queries never reach the service")

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestClimate_ProcessingFailure(t *testing.T) {
	srv := newClimateServer(t, mockservice.New(mockservice.WithFailure("no data for region")))

	rec := get(t, srv, "/v1/climate?parameter=FC_TEMPERATURE&lat=1&lon=2")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "no data for region")
}

func TestClimate_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"timeout", processing.ErrTimeout, http.StatusGatewayTimeout},
		{"unreachable", fmt.Errorf("send: %w", rest.ErrServiceUnreachable), http.StatusBadGateway},
		{"circuit open", rest.ErrCircuitOpen, http.StatusBadGateway},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httpadapter.NewServer(":0", &mockReadiness{}, errFetcher{err: tt.err}, discardLogger())
			rec := get(t, srv, "/v1/climate?parameter=FC_TEMPERATURE&lat=1&lon=2")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
