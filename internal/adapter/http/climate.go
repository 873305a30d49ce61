package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/couchcryptid/fetchclimate-client/internal/adapter/rest"
	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/couchcryptid/fetchclimate-client/internal/hash"
	"github.com/couchcryptid/fetchclimate-client/internal/processing"
	"github.com/couchcryptid/fetchclimate-client/internal/request"
)

// Default climatology window when year bounds are omitted.
const (
	defaultYearMin = 1961
	defaultYearMax = 1990
)

var errBadQuery = errors.New("bad query")

type climateResponse struct {
	RequestHash string             `json:"request_hash"`
	Parameter   string             `json:"parameter"`
	NativeUnit  string             `json:"native_unit"`
	ClientUnit  string             `json:"client_unit"`
	Place       *domain.Place      `json:"place,omitempty"`
	Shape       *request.GridShape `json:"shape,omitempty"`
	Cells       []climateCell      `json:"cells"`
}

type climateCell struct {
	domain.Cell
	domain.ParameterValue
	ClientValue float64 `json:"client_value"`
}

type parameterInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	NativeUnit  string `json:"native_unit"`
	ClientUnit  string `json:"client_unit"`
	Coverage    string `json:"coverage"`
}

func handleParameters(w http.ResponseWriter, _ *http.Request) {
	params := domain.Parameters()
	out := make([]parameterInfo, len(params))
	for i, p := range params {
		out[i] = parameterInfo{
			ID:          p.ID,
			Description: p.Description,
			NativeUnit:  p.NativeUnit,
			ClientUnit:  p.ClientUnit,
			Coverage:    string(p.Coverage),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleClimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req, shape, place, err := s.buildRequest(r, q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.fetcher.Process(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	values, err := request.Parse(res)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := climateResponse{
		RequestHash: hash.Request(req),
		Parameter:   req.Parameter.ID,
		NativeUnit:  req.Parameter.NativeUnit,
		ClientUnit:  req.Parameter.ClientUnit,
		Place:       place,
		Shape:       shape,
		Cells:       make([]climateCell, len(values)),
	}
	for i, v := range values {
		resp.Cells[i] = climateCell{
			Cell:           req.Cells[i],
			ParameterValue: v,
			ClientValue:    req.Parameter.Convert(v.Value),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// buildRequest turns query parameters into a batch request. A d_lat/d_lon
// pair splits the bounding box into a grid; place resolves to a point.
func (s *Server) buildRequest(r *http.Request, q url.Values) (domain.BatchRequest, *request.GridShape, *domain.Place, error) {
	var zero domain.BatchRequest

	p, err := domain.LookupParameter(q.Get("parameter"))
	if err != nil {
		return zero, nil, nil, fmt.Errorf("%w: %w", errBadQuery, err)
	}

	qp := queryParser{q: q}
	t := domain.TimeBounds{
		YearMin: qp.int("year_min", defaultYearMin),
		YearMax: qp.int("year_max", defaultYearMax),
		DayMin:  qp.int("day_min", domain.Unspecified),
		DayMax:  qp.int("day_max", domain.Unspecified),
		HourMin: qp.int("hour_min", domain.Unspecified),
		HourMax: qp.int("hour_max", domain.Unspecified),
	}

	opts := domain.DefaultOptions()
	if src := q.Get("source"); src != "" {
		opts.DataSource = domain.DataSource(src)
	}
	if opts.VariationType, err = domain.ParseVariationType(q.Get("variation")); err != nil {
		return zero, nil, nil, fmt.Errorf("%w: %w", errBadQuery, err)
	}

	switch {
	case q.Get("place") != "":
		if qp.err != nil {
			return zero, nil, nil, qp.err
		}
		if s.places == nil {
			return zero, nil, nil, fmt.Errorf("%w: place lookup is not enabled", errBadQuery)
		}
		pl, err := s.places.ResolvePlace(r.Context(), q.Get("place"))
		if err != nil {
			return zero, nil, nil, err
		}
		req, err := request.Single(p, domain.PlaceCell(pl, t), opts)
		return req, nil, &pl, err

	case q.Has("lat") || q.Has("lon"):
		lat, lon := qp.float("lat"), qp.float("lon")
		if qp.err != nil {
			return zero, nil, nil, qp.err
		}
		req, err := request.Single(p, domain.PointCell(lat, lon, t), opts)
		if err != nil {
			return zero, nil, nil, err
		}
		return req, nil, s.describe(r, lat, lon), nil

	case q.Has("d_lat") || q.Has("d_lon"):
		spec := request.GridSpec{
			LatMin: qp.float("lat_min"),
			LatMax: qp.float("lat_max"),
			LonMin: qp.float("lon_min"),
			LonMax: qp.float("lon_max"),
			DLat:   qp.float("d_lat"),
			DLon:   qp.float("d_lon"),
			Time:   t,
		}
		if qp.err != nil {
			return zero, nil, nil, qp.err
		}
		req, shape, err := request.Grid(p, spec, opts)
		return req, &shape, nil, err

	default:
		c := domain.AreaCell(qp.float("lat_min"), qp.float("lat_max"), qp.float("lon_min"), qp.float("lon_max"), t)
		if qp.err != nil {
			return zero, nil, nil, qp.err
		}
		req, err := request.Single(p, c, opts)
		return req, nil, nil, err
	}
}

// describe names the location of a point query. Lookup failures only drop
// the place from the response.
func (s *Server) describe(r *http.Request, lat, lon float64) *domain.Place {
	if s.places == nil {
		return nil
	}
	pl, err := s.places.DescribeLocation(r.Context(), lat, lon)
	if err != nil {
		s.logger.Debug("reverse geocode failed", "lat", lat, "lon", lon, "error", err)
		return nil
	}
	return &pl
}

// queryParser records the first conversion error so a handler can check once.
type queryParser struct {
	q   url.Values
	err error
}

func (p *queryParser) float(key string) float64 {
	s := p.q.Get(key)
	if s == "" {
		p.fail(fmt.Errorf("%w: missing %s", errBadQuery, key))
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(fmt.Errorf("%w: %s must be a number", errBadQuery, key))
	}
	return v
}

func (p *queryParser) int(key string, def int) int {
	s := p.q.Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.fail(fmt.Errorf("%w: %s must be an integer", errBadQuery, key))
	}
	return v
}

func (p *queryParser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

// statusFor maps a fetch error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadQuery), errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPlaceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrProcessingFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, processing.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, rest.ErrServiceUnreachable), errors.Is(err, rest.ErrCircuitOpen):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("climate query failed", "error", err, "status", status)
	} else {
		s.logger.Debug("climate query rejected", "error", err, "status", status)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
