package domain

import (
	"math"
	"time"
)

// ParameterValue is the service's answer for one cell, in the parameter's native unit.
type ParameterValue struct {
	Value       float64 `json:"value"`
	Uncertainty float64 `json:"uncertainty"`
	Provenance  string  `json:"provenance"`
}

// ToClientUnit converts the value and its uncertainty to the client unit of p.
// Uncertainty is a spread, so only the scale applies to it.
func (v ParameterValue) ToClientUnit(p Parameter) ParameterValue {
	return ParameterValue{
		Value:       p.Convert(v.Value),
		Uncertainty: v.Uncertainty * math.Abs(p.scale()),
		Provenance:  v.Provenance,
	}
}

// Values extracts the value column of a result slice.
func Values(vs []ParameterValue) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = v.Value
	}
	return out
}

// Uncertainties extracts the uncertainty column of a result slice.
func Uncertainties(vs []ParameterValue) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = v.Uncertainty
	}
	return out
}

// Provenances extracts the provenance column of a result slice.
func Provenances(vs []ParameterValue) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Provenance
	}
	return out
}

// ProcessingStatus is the application-level outcome reported by the service.
type ProcessingStatus string

// Processing outcomes.
const (
	StatusSuccess ProcessingStatus = "success"
	StatusFailed  ProcessingStatus = "failed"
)

// Result is a final response: the originating request plus one value per cell.
type Result struct {
	Request BatchRequest
	Values  []ParameterValue
	Status  ProcessingStatus
	Message string
}

// Succeeded reports whether the service computed the request.
func (r Result) Succeeded() bool { return r.Status == StatusSuccess }

// StatusResponse tells the client a computation is still running.
type StatusResponse struct {
	ExpectedCalculationTime time.Duration
	RequestHash             string
	ResendFullRequest       bool
}

// Response is either a final Result or a pending StatusResponse.
type Response struct {
	result  *Result
	pending *StatusResponse
}

// FinalResponse wraps a result.
func FinalResponse(r Result) Response { return Response{result: &r} }

// PendingResponse wraps a status response.
func PendingResponse(s StatusResponse) Response { return Response{pending: &s} }

// IsPending reports whether the service is still computing.
func (r Response) IsPending() bool { return r.pending != nil }

// Final returns the result when the response is final.
func (r Response) Final() (Result, bool) {
	if r.result == nil {
		return Result{}, false
	}
	return *r.result, true
}

// Pending returns the status when the response is pending.
func (r Response) Pending() (StatusResponse, bool) {
	if r.pending == nil {
		return StatusResponse{}, false
	}
	return *r.pending, true
}
