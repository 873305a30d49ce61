package wire

import (
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() domain.BatchRequest {
	t := domain.DefaultTimeBounds(1961, 1990)
	return domain.NewBatchRequest(domain.Precipitation, []domain.Cell{
		domain.PointCell(47.6, -122.3, t),
		domain.AreaCell(-10.5, 10.25, 100, 120, domain.TimeBounds{YearMin: 2000, YearMax: 2000, DayMin: 1, DayMax: 31, HourMin: 0, HourMax: 24}),
	}, domain.FetchingOptions{DataSource: domain.CRUCL20, VariationType: domain.VariationSpatial})
}

func TestEncodeRequest_Layout(t *testing.T) {
	body, err := EncodeRequest(testRequest())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "#coverage=any", lines[0])
	assert.Equal(t, "#parameter=FC_PRECIPITATION", lines[1])
	assert.Equal(t, "#provenance_hint=CRU_CL_2_0", lines[2])
	assert.Equal(t, "#variation_type=Spatial", lines[3])
	assert.Equal(t, "lat_min,lat_max,lon_min,lon_max,hour_min,hour_max,day_min,day_max,year_min,year_max", lines[4])
	assert.Equal(t, "47.6,47.6,-122.3,-122.3,-999,-999,-999,-999,1961,1990", lines[5])
	assert.Equal(t, "-10.5,10.25,100,120,0,24,1,31,2000,2000", lines[6])
}

func TestDecodeSubmission_Request(t *testing.T) {
	req := testRequest()
	body, err := EncodeRequest(req)
	require.NoError(t, err)

	sub, err := DecodeSubmission(body)
	require.NoError(t, err)
	require.NotNil(t, sub.Request)
	assert.Nil(t, sub.Status)
	if diff := cmp.Diff(req, *sub.Request); diff != "" {
		t.Errorf("decoded request mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeResponse_Final(t *testing.T) {
	req := testRequest()
	res := domain.Result{
		Request: req,
		Values: []domain.ParameterValue{
			{Value: 92.5, Uncertainty: 4.1, Provenance: "CRU CL 2.0"},
			{Value: 210, Uncertainty: 17.25, Provenance: "GHCNv2, \"station\" mean"},
		},
		Status: domain.StatusSuccess,
	}
	body, err := EncodeResult(res)
	require.NoError(t, err)

	resp, err := DecodeResponse(body)
	require.NoError(t, err)
	assert.False(t, resp.IsPending())

	got, ok := resp.Final()
	require.True(t, ok)
	if diff := cmp.Diff(res, got); diff != "" {
		t.Errorf("decoded result mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeResponse_FailedWithoutValues(t *testing.T) {
	res := domain.Result{Request: testRequest(), Status: domain.StatusFailed, Message: "data source\nunavailable"}
	body, err := EncodeResult(res)
	require.NoError(t, err)

	got, err := DecodeResult(body)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, "data source unavailable", got.Message)
	assert.Empty(t, got.Values)
	assert.Len(t, got.Request.Cells, 2)
}

func TestDecodeResponse_Pending(t *testing.T) {
	body := EncodeStatus(domain.StatusResponse{
		ExpectedCalculationTime: 1500 * time.Millisecond,
		RequestHash:             "abc123",
		ResendFullRequest:       true,
	})

	resp, err := DecodeResponse(body)
	require.NoError(t, err)
	require.True(t, resp.IsPending())

	s, ok := resp.Pending()
	require.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, s.ExpectedCalculationTime)
	assert.Equal(t, "abc123", s.RequestHash)
	assert.True(t, s.ResendFullRequest)

	_, err = DecodeResult(body)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeSubmission_Status(t *testing.T) {
	sub, err := DecodeSubmission(EncodeStatus(domain.StatusResponse{RequestHash: "deadbeef"}))
	require.NoError(t, err)
	require.NotNil(t, sub.Status)
	assert.Equal(t, "deadbeef", sub.Status.RequestHash)
	assert.False(t, sub.Status.ResendFullRequest)
}

func TestDecodeResponse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"html error page", "<html>Service Unavailable</html>"},
		{"bad metadata", "#parameter\nlat_min\n"},
		{"missing status", "#parameter=FC_TEMPERATURE\n" + strings.Join(cellColumns, ",") + "\n"},
		{"bad expected time", "#status=pending\n#expected_calculation_time_ms=soon\n"},
		{"bad number", "#processing_status=success\n" + strings.Join(cellColumns, ",") + "\nx,1,1,1,1,1,1,1,1,1\n"},
		{"value count mismatch", "#processing_status=success\n" + strings.Join(cellColumns, ",") + "\n1,1,1,1,1,1,1,1,1,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResponse([]byte(tt.body))
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestEncodeResult_ValueCountMismatch(t *testing.T) {
	_, err := EncodeResult(domain.Result{
		Request: testRequest(),
		Values:  []domain.ParameterValue{{Value: 1}},
		Status:  domain.StatusSuccess,
	})
	require.Error(t, err)
}
