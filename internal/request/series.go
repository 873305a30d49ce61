package request

import (
	"fmt"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
)

// Interval is an inclusive integer range.
type Interval struct {
	Min, Max int
}

// Split divides [lo, hi] into ceil((hi-lo+1)/step) inclusive sub-intervals.
// The last one is truncated at hi rather than padded.
func Split(lo, hi, step int) ([]Interval, error) {
	if step <= 0 {
		return nil, &domain.ValidationError{Field: "step", Value: step, Reason: "must be positive"}
	}
	if lo > hi {
		return nil, &domain.ValidationError{Field: "min", Value: lo, Reason: fmt.Sprintf("must not exceed max %d", hi)}
	}
	n := (hi - lo + step) / step
	out := make([]Interval, n)
	for i := range out {
		a := lo + i*step
		out[i] = Interval{Min: a, Max: min(a+step-1, hi)}
	}
	return out, nil
}

// SeriesAxis selects the time axis a series varies along.
type SeriesAxis int

// Series axes.
const (
	Yearly SeriesAxis = iota
	Seasonly
	Hourly
)

func (a SeriesAxis) String() string {
	switch a {
	case Yearly:
		return "yearly"
	case Seasonly:
		return "seasonly"
	case Hourly:
		return "hourly"
	default:
		return fmt.Sprintf("SeriesAxis(%d)", int(a))
	}
}

func (a SeriesAxis) variation() domain.VariationType {
	switch a {
	case Seasonly:
		return domain.VariationSeasonly
	case Hourly:
		return domain.VariationHourly
	default:
		return domain.VariationYearly
	}
}

// DayCap is the last day of year a day-axis split may reach: 366 when the
// window is a single leap year, 365 otherwise.
func DayCap(yearMin, yearMax int) int {
	if yearMin == yearMax && domain.IsLeapYear(yearMin) {
		return 366
	}
	return 365
}

// TimeSeries splits one time axis of base into steps, holding the location
// and the other axes constant. The returned intervals index the cells.
//
// Unspecified day bounds resolve to [1, DayCap] and unspecified hour bounds
// to [0, 24] before splitting.
func TimeSeries(p domain.Parameter, base domain.Cell, axis SeriesAxis, step int, opts domain.FetchingOptions) (domain.BatchRequest, []Interval, error) {
	if err := domain.ValidateCell(base); err != nil {
		return domain.BatchRequest{}, nil, err
	}

	var (
		intervals []Interval
		err       error
		set       func(c *domain.Cell, iv Interval)
	)
	switch axis {
	case Yearly:
		intervals, err = Split(base.YearMin, base.YearMax, step)
		set = func(c *domain.Cell, iv Interval) { c.YearMin, c.YearMax = iv.Min, iv.Max }
	case Seasonly:
		dayCap := DayCap(base.YearMin, base.YearMax)
		lo, hi := resolve(base.DayMin, 1), resolve(base.DayMax, dayCap)
		hi = min(hi, dayCap)
		if lo > hi {
			return domain.BatchRequest{}, nil, &domain.ValidationError{
				Field: "day_min", Value: lo, Reason: fmt.Sprintf("must not exceed %d for years %d-%d", hi, base.YearMin, base.YearMax),
			}
		}
		intervals, err = Split(lo, hi, step)
		set = func(c *domain.Cell, iv Interval) { c.DayMin, c.DayMax = iv.Min, iv.Max }
	case Hourly:
		intervals, err = Split(resolve(base.HourMin, domain.MinHour), resolve(base.HourMax, domain.MaxHour), step)
		set = func(c *domain.Cell, iv Interval) { c.HourMin, c.HourMax = iv.Min, iv.Max }
	default:
		return domain.BatchRequest{}, nil, &domain.ValidationError{Field: "axis", Value: axis, Reason: "must be yearly, seasonly or hourly"}
	}
	if err != nil {
		return domain.BatchRequest{}, nil, err
	}

	cells := make([]domain.Cell, len(intervals))
	for i, iv := range intervals {
		c := base
		set(&c, iv)
		cells[i] = c
	}
	if opts.VariationType == "" || opts.VariationType == domain.VariationAuto {
		opts.VariationType = axis.variation()
	}
	req, err := FromCells(p, cells, opts)
	if err != nil {
		return domain.BatchRequest{}, nil, err
	}
	return req, intervals, nil
}

func resolve(v, def int) int {
	if v == domain.Unspecified {
		return def
	}
	return v
}
