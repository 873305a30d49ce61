package domain

// Unspecified marks an hour or day bound the service should default itself.
const Unspecified = -999

// Valid coordinate and climatology bounds.
const (
	MinLat  = -90.0
	MaxLat  = 90.0
	MinLon  = -180.0
	MaxLon  = 360.0
	MinYear = 1
	MaxYear = 9999
	MinDay  = 0
	MaxDay  = 366
	MinHour = 0
	MaxHour = 24
)

// Cell is one elementary spatiotemporal sub-request of a batch.
type Cell struct {
	LatMin  float64 `json:"lat_min"`
	LatMax  float64 `json:"lat_max"`
	LonMin  float64 `json:"lon_min"`
	LonMax  float64 `json:"lon_max"`
	HourMin int     `json:"hour_min"`
	HourMax int     `json:"hour_max"`
	DayMin  int     `json:"day_min"`
	DayMax  int     `json:"day_max"`
	YearMin int     `json:"year_min"`
	YearMax int     `json:"year_max"`
}

// TimeBounds is the climatology window of a cell.
type TimeBounds struct {
	YearMin, YearMax int
	DayMin, DayMax   int
	HourMin, HourMax int
}

// DefaultTimeBounds averages over the given years with service-default day
// and hour windows.
func DefaultTimeBounds(yearMin, yearMax int) TimeBounds {
	return TimeBounds{
		YearMin: yearMin,
		YearMax: yearMax,
		DayMin:  Unspecified,
		DayMax:  Unspecified,
		HourMin: Unspecified,
		HourMax: Unspecified,
	}
}

// PointCell returns a cell for a single location.
func PointCell(lat, lon float64, t TimeBounds) Cell {
	return AreaCell(lat, lat, lon, lon, t)
}

// AreaCell returns a cell averaging over a latitude/longitude box.
func AreaCell(latMin, latMax, lonMin, lonMax float64, t TimeBounds) Cell {
	c := Cell{LatMin: latMin, LatMax: latMax, LonMin: lonMin, LonMax: lonMax}
	return c.WithTime(t)
}

// IsPoint reports whether the cell is a point fetch rather than an area average.
func (c Cell) IsPoint() bool {
	return c.LatMin == c.LatMax && c.LonMin == c.LonMax
}

// Time returns the climatology window of the cell.
func (c Cell) Time() TimeBounds {
	return TimeBounds{
		YearMin: c.YearMin, YearMax: c.YearMax,
		DayMin: c.DayMin, DayMax: c.DayMax,
		HourMin: c.HourMin, HourMax: c.HourMax,
	}
}

// WithTime returns a copy of the cell with its climatology window replaced.
func (c Cell) WithTime(t TimeBounds) Cell {
	c.YearMin, c.YearMax = t.YearMin, t.YearMax
	c.DayMin, c.DayMax = t.DayMin, t.DayMax
	c.HourMin, c.HourMax = t.HourMin, t.HourMax
	return c
}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
