package processing

import (
	"context"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/couchcryptid/fetchclimate-client/internal/request"
)

// Each fetch below shapes its input into one batch, makes exactly one
// Process call and reshapes the values. A failed result surfaces as a
// *domain.ProcessingError.

// FetchClimate returns the value for a single cell.
func (c *Client) FetchClimate(ctx context.Context, p domain.Parameter, cell domain.Cell, opts domain.FetchingOptions) (domain.ParameterValue, error) {
	req, err := request.Single(p, cell, opts)
	if err != nil {
		return domain.ParameterValue{}, err
	}
	vals, err := c.processValues(ctx, req)
	if err != nil {
		return domain.ParameterValue{}, err
	}
	return vals[0], nil
}

// FetchClimateBatch returns one value per cell, in order.
func (c *Client) FetchClimateBatch(ctx context.Context, p domain.Parameter, cells []domain.Cell, opts domain.FetchingOptions) ([]domain.ParameterValue, error) {
	req, err := request.FromCells(p, cells, opts)
	if err != nil {
		return nil, err
	}
	return c.processValues(ctx, req)
}

// FetchClimateArrays returns one value per index of the parallel arrays.
func (c *Client) FetchClimateArrays(ctx context.Context, p domain.Parameter, a request.CellArrays, opts domain.FetchingOptions) ([]domain.ParameterValue, error) {
	req, err := request.FromArrays(p, a, opts)
	if err != nil {
		return nil, err
	}
	return c.processValues(ctx, req)
}

// FetchClimateGrid returns values indexed [lat][lon].
func (c *Client) FetchClimateGrid(ctx context.Context, p domain.Parameter, spec request.GridSpec, opts domain.FetchingOptions) ([][]domain.ParameterValue, error) {
	req, shape, err := request.Grid(p, spec, opts)
	if err != nil {
		return nil, err
	}
	vals, err := c.processValues(ctx, req)
	if err != nil {
		return nil, err
	}
	return request.UnflattenGrid(vals, shape)
}

// Series is a time series: Values[i] covers Intervals[i].
type Series struct {
	Axis      request.SeriesAxis
	Intervals []request.Interval
	Values    []domain.ParameterValue
}

// FetchClimateYearly splits the year range of base into step-year windows.
func (c *Client) FetchClimateYearly(ctx context.Context, p domain.Parameter, base domain.Cell, step int, opts domain.FetchingOptions) (Series, error) {
	return c.fetchSeries(ctx, p, base, request.Yearly, step, opts)
}

// FetchClimateSeasonly splits the day range of base into step-day windows.
func (c *Client) FetchClimateSeasonly(ctx context.Context, p domain.Parameter, base domain.Cell, step int, opts domain.FetchingOptions) (Series, error) {
	return c.fetchSeries(ctx, p, base, request.Seasonly, step, opts)
}

// FetchClimateHourly splits the hour range of base into step-hour windows.
func (c *Client) FetchClimateHourly(ctx context.Context, p domain.Parameter, base domain.Cell, step int, opts domain.FetchingOptions) (Series, error) {
	return c.fetchSeries(ctx, p, base, request.Hourly, step, opts)
}

func (c *Client) fetchSeries(ctx context.Context, p domain.Parameter, base domain.Cell, axis request.SeriesAxis, step int, opts domain.FetchingOptions) (Series, error) {
	req, intervals, err := request.TimeSeries(p, base, axis, step, opts)
	if err != nil {
		return Series{}, err
	}
	vals, err := c.processValues(ctx, req)
	if err != nil {
		return Series{}, err
	}
	return Series{Axis: axis, Intervals: intervals, Values: vals}, nil
}

// AxesResult holds flat values in the order described by Layout.
type AxesResult struct {
	Layout request.Layout
	Values []domain.ParameterValue
}

// FetchClimateAxes fetches point values over coordinate axes and time windows.
func (c *Client) FetchClimateAxes(ctx context.Context, p domain.Parameter, lat, lon request.Axis, times []domain.TimeBounds, opts domain.FetchingOptions) (AxesResult, error) {
	req, layout, err := request.FromAxes(p, lat, lon, times, opts)
	if err != nil {
		return AxesResult{}, err
	}
	vals, err := c.processValues(ctx, req)
	if err != nil {
		return AxesResult{}, err
	}
	return AxesResult{Layout: layout, Values: vals}, nil
}

func (c *Client) processValues(ctx context.Context, req domain.BatchRequest) ([]domain.ParameterValue, error) {
	res, err := c.Process(ctx, req)
	if err != nil {
		return nil, err
	}
	return request.Parse(res)
}
