package domain

import (
	"fmt"
	"strings"
)

// DataSource names the preferred underlying data set. AnySource lets the
// service choose per cell.
type DataSource string

// Data sources known to the service. Any other non-empty name is passed through.
const (
	AnySource        DataSource = "ANY"
	CRUCL20          DataSource = "CRU_CL_2_0"
	NCEPReanalysis1  DataSource = "NCEP_REANALYSIS_1"
	GHCNv2           DataSource = "GHCNv2"
	WorldClim        DataSource = "WORLDCLIM"
	ETOPO1           DataSource = "ETOPO1"
	GTOPO30          DataSource = "GTOPO30"
	CPCSoilMoisture  DataSource = "CPC_SOIL_MOISTURE"
	MalmstromPET     DataSource = "MALMSTROM_PET"
	HadCM3SRESA1B    DataSource = "HADCM3_SRA1B"
	NCEPOceanReanaly DataSource = "NCEP_OCEAN_REANALYSIS"
)

// VariationType hints which axis varies across the cells of a batch.
// It is advisory and never changes cell semantics.
type VariationType string

// Variation types understood by the service.
const (
	VariationAuto     VariationType = "Auto"
	VariationYearly   VariationType = "Yearly"
	VariationSeasonly VariationType = "Seasonly"
	VariationHourly   VariationType = "Hourly"
	VariationSpatial  VariationType = "Spatial"
)

// ParseVariationType maps a case-insensitive name to a VariationType.
// The empty string maps to VariationAuto.
func ParseVariationType(s string) (VariationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return VariationAuto, nil
	case "yearly":
		return VariationYearly, nil
	case "seasonly", "seasonal":
		return VariationSeasonly, nil
	case "hourly":
		return VariationHourly, nil
	case "spatial":
		return VariationSpatial, nil
	default:
		return "", fmt.Errorf("unknown variation type %q", s)
	}
}

// FetchingOptions tune how the service answers a batch.
type FetchingOptions struct {
	DataSource    DataSource
	VariationType VariationType
}

// DefaultOptions lets the service pick the data source and variation.
func DefaultOptions() FetchingOptions {
	return FetchingOptions{DataSource: AnySource, VariationType: VariationAuto}
}

// normalized fills empty fields with their defaults.
func (o FetchingOptions) normalized() FetchingOptions {
	if o.DataSource == "" {
		o.DataSource = AnySource
	}
	if o.VariationType == "" {
		o.VariationType = VariationAuto
	}
	return o
}

// BatchRequest is an ordered list of cells for one parameter. It is built
// once per call and never mutated after construction.
type BatchRequest struct {
	Parameter Parameter
	Cells     []Cell
	Options   FetchingOptions
}

// NewBatchRequest copies cells into a new request with normalized options.
func NewBatchRequest(p Parameter, cells []Cell, opts FetchingOptions) BatchRequest {
	cp := make([]Cell, len(cells))
	copy(cp, cells)
	return BatchRequest{Parameter: p, Cells: cp, Options: opts.normalized()}
}

// Len returns the number of cells.
func (r BatchRequest) Len() int { return len(r.Cells) }

// ProvenanceHint is the data source hint sent with the request.
func (r BatchRequest) ProvenanceHint() string {
	return string(r.Options.normalized().DataSource)
}
