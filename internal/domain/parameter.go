package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Coverage restricts a parameter to land or ocean cells.
type Coverage string

// Coverages used by the parameter catalog.
const (
	CoverageAny   Coverage = "any"
	CoverageLand  Coverage = "land"
	CoverageOcean Coverage = "ocean"
)

// Parameter describes a climate variable served by FetchClimate.
// Values arrive in NativeUnit; Scale and Offset convert them to ClientUnit.
type Parameter struct {
	ID          string
	Description string
	NativeUnit  string
	ClientUnit  string
	Coverage    Coverage
	Scale       float64
	Offset      float64
}

// Convert maps a value from the native unit to the client unit.
func (p Parameter) Convert(v float64) float64 {
	return v*p.scale() + p.Offset
}

func (p Parameter) scale() float64 {
	if p.Scale == 0 {
		return 1
	}
	return p.Scale
}

var catalog = map[string]Parameter{}

func register(p Parameter) Parameter {
	catalog[p.ID] = p
	return p
}

// Parameter catalog.
var (
	Temperature = register(Parameter{
		ID: "FC_TEMPERATURE", Description: "Air temperature near surface",
		NativeUnit: "K", ClientUnit: "Celsius", Coverage: CoverageAny, Scale: 1, Offset: -273.15,
	})
	Precipitation = register(Parameter{
		ID: "FC_PRECIPITATION", Description: "Precipitation rate",
		NativeUnit: "mm/month", ClientUnit: "mm/month", Coverage: CoverageAny, Scale: 1,
	})
	RelativeHumidity = register(Parameter{
		ID: "FC_RELATIVE_HUMIDITY", Description: "Relative humidity near surface",
		NativeUnit: "fraction", ClientUnit: "percent", Coverage: CoverageAny, Scale: 100,
	})
	Elevation = register(Parameter{
		ID: "FC_ELEVATION", Description: "Elevation above sea level",
		NativeUnit: "m", ClientUnit: "m", Coverage: CoverageAny, Scale: 1,
	})
	SoilMoisture = register(Parameter{
		ID: "FC_SOIL_MOISTURE", Description: "Soil moisture",
		NativeUnit: "mm/m", ClientUnit: "mm/m", Coverage: CoverageLand, Scale: 1,
	})
	LandAirTemperature = register(Parameter{
		ID: "FC_LAND_AIR_TEMPERATURE", Description: "Air temperature over land",
		NativeUnit: "Celsius", ClientUnit: "Celsius", Coverage: CoverageLand, Scale: 1,
	})
	LandWindSpeed = register(Parameter{
		ID: "FC_LAND_WIND_SPEED", Description: "Wind speed at 10 m over land",
		NativeUnit: "m/s", ClientUnit: "km/h", Coverage: CoverageLand, Scale: 3.6,
	})
	LandDiurnalTemperatureRange = register(Parameter{
		ID: "FC_LAND_DIURNAL_TEMPERATURE_RANGE", Description: "Diurnal temperature range over land",
		NativeUnit: "Celsius", ClientUnit: "Celsius", Coverage: CoverageLand, Scale: 1,
	})
	LandFrostDayFrequency = register(Parameter{
		ID: "FC_LAND_FROST_DAY_FREQUENCY", Description: "Ground frost frequency",
		NativeUnit: "days/month", ClientUnit: "days/month", Coverage: CoverageLand, Scale: 1,
	})
	LandWetDayFrequency = register(Parameter{
		ID: "FC_LAND_WET_DAY_FREQUENCY", Description: "Wet day frequency",
		NativeUnit: "days/month", ClientUnit: "days/month", Coverage: CoverageLand, Scale: 1,
	})
	LandSunPercentage = register(Parameter{
		ID: "FC_LAND_SUN_PERCENTAGE", Description: "Percentage of maximum possible sunshine",
		NativeUnit: "fraction", ClientUnit: "percent", Coverage: CoverageLand, Scale: 100,
	})
	OceanAirTemperature = register(Parameter{
		ID: "FC_OCEAN_AIR_TEMPERATURE", Description: "Air temperature over ocean",
		NativeUnit: "K", ClientUnit: "Celsius", Coverage: CoverageOcean, Scale: 1, Offset: -273.15,
	})
	OceanDepth = register(Parameter{
		ID: "FC_OCEAN_DEPTH", Description: "Ocean depth",
		NativeUnit: "m", ClientUnit: "m", Coverage: CoverageOcean, Scale: 1,
	})
)

// LookupParameter finds a catalog entry by its FC_* identifier (case-insensitive).
func LookupParameter(id string) (Parameter, error) {
	p, ok := catalog[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return Parameter{}, &ValidationError{Field: "parameter", Value: id, Reason: "unknown climate parameter"}
	}
	return p, nil
}

// Parameters returns the catalog sorted by identifier.
func Parameters() []Parameter {
	out := make([]Parameter, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// String implements fmt.Stringer.
func (p Parameter) String() string {
	return fmt.Sprintf("%s (%s)", p.ID, p.ClientUnit)
}
