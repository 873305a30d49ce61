// Package wire encodes requests and responses exchanged with the FetchClimate
// service, and the result entries stored in the disk cache.
//
// A body is a block of "#key=value" metadata lines followed by a CSV table
// with a header row and one row per cell:
//
//	#parameter=FC_TEMPERATURE
//	#coverage=any
//	#provenance_hint=ANY
//	#variation_type=Auto
//	lat_min,lat_max,lon_min,lon_max,hour_min,hour_max,day_min,day_max,year_min,year_max
//	47.6,47.6,-122.3,-122.3,-999,-999,-999,-999,1961,1990
//
// Final results add value, uncertainty and provenance columns and the
// processing_status metadata key. Pending status responses have metadata only.
package wire

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
)

// ContentType tags every body posted to the service.
const ContentType = "text/csv; header=present"

// Metadata keys.
const (
	KeyParameter         = "parameter"
	KeyCoverage          = "coverage"
	KeyProvenanceHint    = "provenance_hint"
	KeyVariationType     = "variation_type"
	KeyProcessingStatus  = "processing_status"
	KeyMessage           = "message"
	KeyStatus            = "status"
	KeyRequestHash       = "request_hash"
	KeyExpectedTimeMS    = "expected_calculation_time_ms"
	KeyResendFullRequest = "resend_full_request"
)

const statusPending = "pending"

// Array names of the request table, in column order.
var cellColumns = []string{
	"lat_min", "lat_max", "lon_min", "lon_max",
	"hour_min", "hour_max", "day_min", "day_max",
	"year_min", "year_max",
}

var resultColumns = []string{"value", "uncertainty", "provenance"}

// ErrMalformed is returned for bodies that cannot be decoded.
var ErrMalformed = errors.New("malformed body")

// Submission is what a client posts: either a full request or a status
// object asking the service to resume a pending computation.
type Submission struct {
	Request *domain.BatchRequest
	Status  *domain.StatusResponse
}

// EncodeRequest serializes a batch request.
func EncodeRequest(req domain.BatchRequest) ([]byte, error) {
	var buf bytes.Buffer
	writeMeta(&buf, requestMeta(req))
	if err := writeTable(&buf, req.Cells, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeResult serializes a final result with its originating request.
func EncodeResult(res domain.Result) ([]byte, error) {
	if len(res.Values) != 0 && len(res.Values) != len(res.Request.Cells) {
		return nil, fmt.Errorf("encode result: %d values for %d cells", len(res.Values), len(res.Request.Cells))
	}
	meta := requestMeta(res.Request)
	status := res.Status
	if status == "" {
		status = domain.StatusSuccess
	}
	meta[KeyProcessingStatus] = string(status)
	if res.Message != "" {
		meta[KeyMessage] = res.Message
	}

	var values []domain.ParameterValue
	if len(res.Values) > 0 {
		values = res.Values
	}

	var buf bytes.Buffer
	writeMeta(&buf, meta)
	if err := writeTable(&buf, res.Request.Cells, values); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeStatus serializes a pending status response. The same shape is used
// by the service to report progress and by the client to resume by hash.
func EncodeStatus(s domain.StatusResponse) []byte {
	var buf bytes.Buffer
	writeMeta(&buf, map[string]string{
		KeyStatus:            statusPending,
		KeyRequestHash:       s.RequestHash,
		KeyExpectedTimeMS:    strconv.FormatInt(s.ExpectedCalculationTime.Milliseconds(), 10),
		KeyResendFullRequest: strconv.FormatBool(s.ResendFullRequest),
	})
	return buf.Bytes()
}

// DecodeResponse parses a service response into a final or pending Response.
func DecodeResponse(body []byte) (domain.Response, error) {
	meta, rest, err := readMeta(body)
	if err != nil {
		return domain.Response{}, err
	}
	if meta[KeyStatus] == statusPending {
		s, err := statusFromMeta(meta)
		if err != nil {
			return domain.Response{}, err
		}
		return domain.PendingResponse(s), nil
	}
	res, err := resultFromParts(meta, rest)
	if err != nil {
		return domain.Response{}, err
	}
	return domain.FinalResponse(res), nil
}

// DecodeResult parses a final result body.
func DecodeResult(body []byte) (domain.Result, error) {
	meta, rest, err := readMeta(body)
	if err != nil {
		return domain.Result{}, err
	}
	if meta[KeyStatus] == statusPending {
		return domain.Result{}, fmt.Errorf("%w: expected a final result, got a pending status", ErrMalformed)
	}
	return resultFromParts(meta, rest)
}

// DecodeSubmission parses a body posted by a client.
func DecodeSubmission(body []byte) (Submission, error) {
	meta, rest, err := readMeta(body)
	if err != nil {
		return Submission{}, err
	}
	if meta[KeyStatus] == statusPending {
		s, err := statusFromMeta(meta)
		if err != nil {
			return Submission{}, err
		}
		return Submission{Status: &s}, nil
	}
	req, _, err := requestFromParts(meta, rest)
	if err != nil {
		return Submission{}, err
	}
	return Submission{Request: &req}, nil
}

func requestMeta(req domain.BatchRequest) map[string]string {
	vt := req.Options.VariationType
	if vt == "" {
		vt = domain.VariationAuto
	}
	return map[string]string{
		KeyParameter:      req.Parameter.ID,
		KeyCoverage:       string(req.Parameter.Coverage),
		KeyProvenanceHint: req.ProvenanceHint(),
		KeyVariationType:  string(vt),
	}
}

var metaEscaper = strings.NewReplacer("\r", " ", "\n", " ")

// writeMeta writes keys in a fixed order so equal inputs encode identically.
func writeMeta(buf *bytes.Buffer, meta map[string]string) {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "#%s=%s\n", k, metaEscaper.Replace(meta[k]))
	}
}

func readMeta(body []byte) (map[string]string, []byte, error) {
	meta := make(map[string]string)
	rest := body
	for len(rest) > 0 && rest[0] == '#' {
		line, tail, _ := bytes.Cut(rest, []byte("\n"))
		rest = tail
		key, value, ok := strings.Cut(strings.TrimRight(string(line[1:]), "\r"), "=")
		if !ok {
			return nil, nil, fmt.Errorf("%w: metadata line %q has no '='", ErrMalformed, line)
		}
		meta[strings.TrimSpace(key)] = value
	}
	return meta, rest, nil
}

func statusFromMeta(meta map[string]string) (domain.StatusResponse, error) {
	ms, err := strconv.ParseInt(meta[KeyExpectedTimeMS], 10, 64)
	if err != nil || ms < 0 {
		return domain.StatusResponse{}, fmt.Errorf("%w: bad %s %q", ErrMalformed, KeyExpectedTimeMS, meta[KeyExpectedTimeMS])
	}
	resend := false
	if v := meta[KeyResendFullRequest]; v != "" {
		resend, err = strconv.ParseBool(v)
		if err != nil {
			return domain.StatusResponse{}, fmt.Errorf("%w: bad %s %q", ErrMalformed, KeyResendFullRequest, v)
		}
	}
	return domain.StatusResponse{
		ExpectedCalculationTime: time.Duration(ms) * time.Millisecond,
		RequestHash:             meta[KeyRequestHash],
		ResendFullRequest:       resend,
	}, nil
}

func resultFromParts(meta map[string]string, table []byte) (domain.Result, error) {
	req, values, err := requestFromParts(meta, table)
	if err != nil {
		return domain.Result{}, err
	}
	status := domain.ProcessingStatus(meta[KeyProcessingStatus])
	switch status {
	case domain.StatusSuccess, domain.StatusFailed:
	case "":
		return domain.Result{}, fmt.Errorf("%w: missing %s", ErrMalformed, KeyProcessingStatus)
	default:
		return domain.Result{}, fmt.Errorf("%w: unknown %s %q", ErrMalformed, KeyProcessingStatus, status)
	}
	if status == domain.StatusSuccess && len(values) != len(req.Cells) {
		return domain.Result{}, fmt.Errorf("%w: %d values for %d cells", ErrMalformed, len(values), len(req.Cells))
	}
	return domain.Result{Request: req, Values: values, Status: status, Message: meta[KeyMessage]}, nil
}

func requestFromParts(meta map[string]string, table []byte) (domain.BatchRequest, []domain.ParameterValue, error) {
	p, err := domain.LookupParameter(meta[KeyParameter])
	if err != nil {
		p = domain.Parameter{ID: meta[KeyParameter]}
	}
	if c := meta[KeyCoverage]; c != "" {
		p.Coverage = domain.Coverage(c)
	}
	vt, err := domain.ParseVariationType(meta[KeyVariationType])
	if err != nil {
		return domain.BatchRequest{}, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	cells, values, err := readTable(table)
	if err != nil {
		return domain.BatchRequest{}, nil, err
	}
	opts := domain.FetchingOptions{DataSource: domain.DataSource(meta[KeyProvenanceHint]), VariationType: vt}
	return domain.NewBatchRequest(p, cells, opts), values, nil
}

func writeTable(buf *bytes.Buffer, cells []domain.Cell, values []domain.ParameterValue) error {
	w := csv.NewWriter(buf)
	header := cellColumns
	if values != nil {
		header = append(append([]string{}, cellColumns...), resultColumns...)
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, c := range cells {
		row := []string{
			formatFloat(c.LatMin), formatFloat(c.LatMax), formatFloat(c.LonMin), formatFloat(c.LonMax),
			strconv.Itoa(c.HourMin), strconv.Itoa(c.HourMax),
			strconv.Itoa(c.DayMin), strconv.Itoa(c.DayMax),
			strconv.Itoa(c.YearMin), strconv.Itoa(c.YearMax),
		}
		if values != nil {
			v := values[i]
			row = append(row, formatFloat(v.Value), formatFloat(v.Uncertainty), v.Provenance)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write cell %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}

func readTable(table []byte) ([]domain.Cell, []domain.ParameterValue, error) {
	r := csv.NewReader(bytes.NewReader(table))
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range cellColumns {
		if _, ok := index[name]; !ok {
			return nil, nil, fmt.Errorf("%w: missing column %q", ErrMalformed, name)
		}
	}
	_, hasValues := index["value"]

	var cells []domain.Cell
	var values []domain.ParameterValue
	for row := 0; ; row++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, row, err)
		}
		p := rowParser{rec: rec, index: index}
		cells = append(cells, domain.Cell{
			LatMin: p.float("lat_min"), LatMax: p.float("lat_max"),
			LonMin: p.float("lon_min"), LonMax: p.float("lon_max"),
			HourMin: p.int("hour_min"), HourMax: p.int("hour_max"),
			DayMin: p.int("day_min"), DayMax: p.int("day_max"),
			YearMin: p.int("year_min"), YearMax: p.int("year_max"),
		})
		if hasValues {
			values = append(values, domain.ParameterValue{
				Value:       p.float("value"),
				Uncertainty: p.float("uncertainty"),
				Provenance:  p.string("provenance"),
			})
		}
		if p.err != nil {
			return nil, nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, row, p.err)
		}
	}
	return cells, values, nil
}

// rowParser keeps the first conversion error so rows decode in one pass.
type rowParser struct {
	rec   []string
	index map[string]int
	err   error
}

func (p *rowParser) string(col string) string {
	i, ok := p.index[col]
	if !ok || i >= len(p.rec) {
		return ""
	}
	return p.rec[i]
}

func (p *rowParser) float(col string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.string(col)), 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", col, err)
	}
	return v
}

func (p *rowParser) int(col string) int {
	v, err := strconv.Atoi(strings.TrimSpace(p.string(col)))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", col, err)
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
