package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
)

// timeFlags bind the climatology window and fetching options.
type timeFlags struct {
	yearMin, yearMax int
	dayMin, dayMax   int
	hourMin, hourMax int
	source           string
	variation        string
}

func (f *timeFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.yearMin, "year-min", 1961, "first year of the averaging window")
	fs.IntVar(&f.yearMax, "year-max", 1990, "last year of the averaging window")
	fs.IntVar(&f.dayMin, "day-min", domain.Unspecified, "first day of year (default: whole year)")
	fs.IntVar(&f.dayMax, "day-max", domain.Unspecified, "last day of year (default: whole year)")
	fs.IntVar(&f.hourMin, "hour-min", domain.Unspecified, "first hour of day (default: whole day)")
	fs.IntVar(&f.hourMax, "hour-max", domain.Unspecified, "last hour of day (default: whole day)")
	fs.StringVar(&f.source, "source", string(domain.AnySource), "preferred data source")
	fs.StringVar(&f.variation, "variation", string(domain.VariationAuto), "variation hint: auto, yearly, seasonly, hourly, spatial")
}

func (f *timeFlags) bounds() domain.TimeBounds {
	return domain.TimeBounds{
		YearMin: f.yearMin, YearMax: f.yearMax,
		DayMin: f.dayMin, DayMax: f.dayMax,
		HourMin: f.hourMin, HourMax: f.hourMax,
	}
}

func (f *timeFlags) options() (domain.FetchingOptions, error) {
	v, err := domain.ParseVariationType(f.variation)
	if err != nil {
		return domain.FetchingOptions{}, err
	}
	return domain.FetchingOptions{DataSource: domain.DataSource(f.source), VariationType: v}, nil
}

// areaFlags bind a latitude/longitude box.
type areaFlags struct {
	latMin, latMax float64
	lonMin, lonMax float64
}

func (f *areaFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Float64Var(&f.latMin, "lat-min", 0, "southern edge in degrees")
	fs.Float64Var(&f.latMax, "lat-max", 0, "northern edge in degrees")
	fs.Float64Var(&f.lonMin, "lon-min", 0, "western edge in degrees")
	fs.Float64Var(&f.lonMax, "lon-max", 0, "eastern edge in degrees")
	cmd.MarkFlagsRequiredTogether("lat-min", "lat-max", "lon-min", "lon-max")
}

// pointFlags bind a single location, given either as coordinates or a place name.
type pointFlags struct {
	lat, lon float64
	place    string
}

func (f *pointFlags) register(cmd *cobra.Command, withPlace bool) {
	fs := cmd.Flags()
	fs.Float64Var(&f.lat, "lat", 0, "latitude in degrees")
	fs.Float64Var(&f.lon, "lon", 0, "longitude in degrees")
	cmd.MarkFlagsRequiredTogether("lat", "lon")
	if withPlace {
		fs.StringVar(&f.place, "place", "", `place name resolved with Mapbox, e.g. "Seattle, WA"`)
		cmd.MarkFlagsMutuallyExclusive("place", "lat")
	}
}

// lookupParameter resolves the PARAMETER argument.
func lookupParameter(id string) (domain.Parameter, error) {
	p, err := domain.LookupParameter(id)
	if err != nil {
		return domain.Parameter{}, fmt.Errorf("%w (see fetchclimate params)", err)
	}
	return p, nil
}
