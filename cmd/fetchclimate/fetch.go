package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/couchcryptid/fetchclimate-client/internal/observability"
	"github.com/couchcryptid/fetchclimate-client/internal/processing"
	"github.com/couchcryptid/fetchclimate-client/internal/request"
)

func newFetchCmd(root *rootOptions) *cobra.Command {
	var (
		tf   timeFlags
		pf   pointFlags
		area areaFlags
	)
	cmd := &cobra.Command{
		Use:   "fetch PARAMETER",
		Short: "Fetch one value for a point, an area or a named place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := lookupParameter(args[0])
			if err != nil {
				return err
			}
			opts, err := tf.options()
			if err != nil {
				return err
			}

			a, err := newApp(root, observability.NewUnregisteredMetrics(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			var cell domain.Cell
			flags := cmd.Flags()
			switch {
			case pf.place != "":
				if a.places == nil {
					return errPlacesDisabled
				}
				place, err := a.places.ResolvePlace(cmd.Context(), pf.place)
				if err != nil {
					return err
				}
				a.logger.Info("resolved place", "query", pf.place, "address", place.Address, "lat", place.Lat, "lon", place.Lon)
				cell = domain.PlaceCell(place, tf.bounds())
			case flags.Changed("lat"):
				cell = domain.PointCell(pf.lat, pf.lon, tf.bounds())
			case flags.Changed("lat-min"):
				cell = domain.AreaCell(area.latMin, area.latMax, area.lonMin, area.lonMax, tf.bounds())
			default:
				return fmt.Errorf("one of --lat/--lon, --lat-min/--lat-max/--lon-min/--lon-max or --place is required")
			}

			v, err := a.client.FetchClimate(cmd.Context(), p, cell, opts)
			if err != nil {
				return err
			}
			return printRows(cmd.OutOrStdout(), root.output, []valueRow{newRow("", p, cell, v)})
		},
	}
	tf.register(cmd)
	pf.register(cmd, true)
	area.register(cmd)
	cmd.MarkFlagsMutuallyExclusive("lat", "lat-min")
	return cmd
}

func newGridCmd(root *rootOptions) *cobra.Command {
	var (
		tf         timeFlags
		area       areaFlags
		dLat, dLon float64
	)
	cmd := &cobra.Command{
		Use:   "grid PARAMETER",
		Short: "Fetch a lat/lon grid of cells in one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := lookupParameter(args[0])
			if err != nil {
				return err
			}
			opts, err := tf.options()
			if err != nil {
				return err
			}
			spec := request.GridSpec{
				LatMin: area.latMin, LatMax: area.latMax,
				LonMin: area.lonMin, LonMax: area.lonMax,
				DLat: dLat, DLon: dLon,
				Time: tf.bounds(),
			}
			// Built up front for the cell bounds; the fetch below builds the same request.
			req, shape, err := request.Grid(p, spec, opts)
			if err != nil {
				return err
			}

			a, err := newApp(root, observability.NewUnregisteredMetrics(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			grid, err := a.client.FetchClimateGrid(cmd.Context(), p, spec, opts)
			if err != nil {
				return err
			}
			rows := make([]valueRow, 0, shape.Len())
			for i := range grid {
				for j, v := range grid[i] {
					rows = append(rows, newRow(fmt.Sprintf("%d,%d", i, j), p, req.Cells[i*shape.Lons+j], v))
				}
			}
			return printRows(cmd.OutOrStdout(), root.output, rows)
		},
	}
	tf.register(cmd)
	area.register(cmd)
	cmd.Flags().Float64Var(&dLat, "d-lat", 1, "latitude step in degrees")
	cmd.Flags().Float64Var(&dLon, "d-lon", 1, "longitude step in degrees")
	_ = cmd.MarkFlagRequired("lat-min")
	return cmd
}

func newSeriesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Fetch a time series at one location",
	}
	cmd.AddCommand(
		newSeriesAxisCmd(root, request.Yearly, 10),
		newSeriesAxisCmd(root, request.Seasonly, 30),
		newSeriesAxisCmd(root, request.Hourly, 1),
	)
	return cmd
}

func newSeriesAxisCmd(root *rootOptions, axis request.SeriesAxis, defaultStep int) *cobra.Command {
	var (
		tf   timeFlags
		pf   pointFlags
		step int
	)
	cmd := &cobra.Command{
		Use:   axis.String() + " PARAMETER",
		Short: fmt.Sprintf("Split the %s range into steps and fetch each", axis),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := lookupParameter(args[0])
			if err != nil {
				return err
			}
			opts, err := tf.options()
			if err != nil {
				return err
			}

			a, err := newApp(root, observability.NewUnregisteredMetrics(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			base := domain.PointCell(pf.lat, pf.lon, tf.bounds())
			switch {
			case pf.place != "":
				if a.places == nil {
					return errPlacesDisabled
				}
				place, err := a.places.ResolvePlace(cmd.Context(), pf.place)
				if err != nil {
					return err
				}
				base = domain.PlaceCell(place, tf.bounds())
			case !cmd.Flags().Changed("lat"):
				return fmt.Errorf("--lat/--lon or --place is required")
			}

			// Built for the per-interval cell bounds; the fetch builds the same request.
			req, _, err := request.TimeSeries(p, base, axis, step, opts)
			if err != nil {
				return err
			}
			s, err := fetchSeries(cmd.Context(), a.client, axis, p, base, step, opts)
			if err != nil {
				return err
			}

			rows := make([]valueRow, len(s.Values))
			for i, iv := range s.Intervals {
				rows[i] = newRow(fmt.Sprintf("%d-%d", iv.Min, iv.Max), p, req.Cells[i], s.Values[i])
			}
			return printRows(cmd.OutOrStdout(), root.output, rows)
		},
	}
	tf.register(cmd)
	pf.register(cmd, true)
	cmd.Flags().IntVar(&step, "step", defaultStep, "interval length along the series axis")
	return cmd
}

func fetchSeries(ctx context.Context, c *processing.Client, axis request.SeriesAxis, p domain.Parameter, base domain.Cell, step int, opts domain.FetchingOptions) (processing.Series, error) {
	switch axis {
	case request.Yearly:
		return c.FetchClimateYearly(ctx, p, base, step, opts)
	case request.Seasonly:
		return c.FetchClimateSeasonly(ctx, p, base, step, opts)
	default:
		return c.FetchClimateHourly(ctx, p, base, step, opts)
	}
}
