// Package mockservice is an in-process stand-in for the FetchClimate compute
// service. It speaks the same wire protocol, answers with deterministic
// synthetic values and can keep a request pending for a number of polls.
package mockservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/couchcryptid/fetchclimate-client/internal/hash"
	"github.com/couchcryptid/fetchclimate-client/internal/wire"
)

// Provenance tags every synthetic value.
const Provenance = "MOCK"

// ErrUnknownHash is returned for a status resubmission the service never saw.
var ErrUnknownHash = errors.New("unknown request hash")

// Service answers submissions. The zero value is not usable; call New.
type Service struct {
	pendingPolls int
	wait         time.Duration
	resendFull   bool
	failMessage  string
	logger       *slog.Logger

	calls    atomic.Int64
	statuses atomic.Int64

	mu       sync.Mutex
	requests map[string]domain.BatchRequest
	polls    map[string]int
}

// Option configures a Service.
type Option func(*Service)

// WithPending keeps each new request pending for polls answers, each asking
// the client to wait for wait. resendFull controls whether the client must
// resend the full request or only the status.
func WithPending(polls int, wait time.Duration, resendFull bool) Option {
	return func(s *Service) {
		s.pendingPolls = polls
		s.wait = wait
		s.resendFull = resendFull
	}
}

// WithFailure makes every final answer a failed result carrying message.
func WithFailure(message string) Option {
	return func(s *Service) { s.failMessage = message }
}

// WithLogger logs each submission.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service.
func New(opts ...Option) *Service {
	s := &Service{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		requests: make(map[string]domain.BatchRequest),
		polls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calls returns how many submissions the service has answered.
func (s *Service) Calls() int { return int(s.calls.Load()) }

// StatusSubmissions returns how many submissions were status resends.
func (s *Service) StatusSubmissions() int { return int(s.statuses.Load()) }

// Send lets the service act as an in-process transport.
func (s *Service) Send(_ context.Context, body []byte) ([]byte, error) {
	return s.Handle(body)
}

// Handle answers one submission body.
func (s *Service) Handle(body []byte) ([]byte, error) {
	s.calls.Add(1)
	sub, err := wire.DecodeSubmission(body)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		h   string
		req domain.BatchRequest
	)
	if sub.Status != nil {
		s.statuses.Add(1)
		h = sub.Status.RequestHash
		var ok bool
		if req, ok = s.requests[h]; !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownHash, h)
		}
	} else {
		req = *sub.Request
		h = hash.Request(req)
		s.requests[h] = req
	}

	s.logger.Debug("submission", "request_hash", h, "cells", req.Len(), "status_resend", sub.Status != nil)

	if s.polls[h] < s.pendingPolls {
		s.polls[h]++
		return wire.EncodeStatus(domain.StatusResponse{
			ExpectedCalculationTime: s.wait,
			RequestHash:             h,
			ResendFullRequest:       s.resendFull,
		}), nil
	}
	delete(s.polls, h)

	if s.failMessage != "" {
		return wire.EncodeResult(domain.Result{Request: req, Status: domain.StatusFailed, Message: s.failMessage})
	}
	values := make([]domain.ParameterValue, len(req.Cells))
	for i, c := range req.Cells {
		values[i] = Value(req.Parameter, c)
	}
	return wire.EncodeResult(domain.Result{Request: req, Values: values, Status: domain.StatusSuccess})
}

// ServeHTTP exposes the service at any path, accepting POST only.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	out, err := s.Handle(body)
	if err != nil {
		s.logger.Warn("rejecting submission", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", wire.ContentType)
	_, _ = w.Write(out)
}

// Value is the synthetic answer for one cell, in the parameter's native unit.
// It depends only on the cell centre and window, so equal cells always agree.
func Value(p domain.Parameter, c domain.Cell) domain.ParameterValue {
	lat := (c.LatMin + c.LatMax) / 2
	lon := (c.LonMin + c.LonMax) / 2
	year := float64(c.YearMin+c.YearMax) / 2

	base := 288.15 - 30*math.Abs(math.Sin(lat*math.Pi/180)) + 0.01*lon + 0.002*(year-1975)
	if p.Offset == 0 {
		base = 100 + lat + lon/10
	}
	spread := (c.LatMax - c.LatMin) + (c.LonMax - c.LonMin)
	return domain.ParameterValue{
		Value:       round(base),
		Uncertainty: round(0.5 + 0.01*spread),
		Provenance:  Provenance,
	}
}

// round keeps synthetic values short on the wire.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
