package domain

import "fmt"

// ValidateCell checks geographic and temporal bounds of a single cell.
func ValidateCell(c Cell) error {
	if err := checkRange("lat_min", c.LatMin, MinLat, MaxLat); err != nil {
		return err
	}
	if err := checkRange("lat_max", c.LatMax, MinLat, MaxLat); err != nil {
		return err
	}
	if err := checkRange("lon_min", c.LonMin, MinLon, MaxLon); err != nil {
		return err
	}
	if err := checkRange("lon_max", c.LonMax, MinLon, MaxLon); err != nil {
		return err
	}
	if c.LatMin > c.LatMax {
		return &ValidationError{Field: "lat_min", Value: c.LatMin, Reason: fmt.Sprintf("must not exceed lat_max %v", c.LatMax)}
	}
	// Longitudes may wrap (e.g. 170..-170), so lon_min > lon_max is not rejected.

	if err := checkIntRange("year_min", c.YearMin, MinYear, MaxYear, false); err != nil {
		return err
	}
	if err := checkIntRange("year_max", c.YearMax, MinYear, MaxYear, false); err != nil {
		return err
	}
	if c.YearMin > c.YearMax {
		return &ValidationError{Field: "year_min", Value: c.YearMin, Reason: fmt.Sprintf("must not exceed year_max %d", c.YearMax)}
	}

	if err := checkIntRange("day_min", c.DayMin, MinDay, MaxDay, true); err != nil {
		return err
	}
	if err := checkIntRange("day_max", c.DayMax, MinDay, MaxDay, true); err != nil {
		return err
	}
	if c.DayMin != Unspecified && c.DayMax != Unspecified && c.DayMin > c.DayMax {
		return &ValidationError{Field: "day_min", Value: c.DayMin, Reason: fmt.Sprintf("must not exceed day_max %d", c.DayMax)}
	}

	if err := checkIntRange("hour_min", c.HourMin, MinHour, MaxHour, true); err != nil {
		return err
	}
	if err := checkIntRange("hour_max", c.HourMax, MinHour, MaxHour, true); err != nil {
		return err
	}
	if c.HourMin != Unspecified && c.HourMax != Unspecified && c.HourMin > c.HourMax {
		return &ValidationError{Field: "hour_min", Value: c.HourMin, Reason: fmt.Sprintf("must not exceed hour_max %d", c.HourMax)}
	}
	return nil
}

// ValidateCells checks every cell and rejects an empty batch.
// The index of the first bad cell is included in the error.
func ValidateCells(cells []Cell) error {
	if len(cells) == 0 {
		return &ValidationError{Field: "cells", Reason: "request must contain at least one cell"}
	}
	for i, c := range cells {
		if err := ValidateCell(c); err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}
	}
	return nil
}

// ValidateRequest checks the cells and options of a batch.
func ValidateRequest(r BatchRequest) error {
	if r.Parameter.ID == "" {
		return &ValidationError{Field: "parameter", Reason: "climate parameter is required"}
	}
	if _, err := ParseVariationType(string(r.Options.VariationType)); err != nil {
		return &ValidationError{Field: "variation_type", Value: r.Options.VariationType, Reason: "must be one of Auto, Yearly, Seasonly, Hourly, Spatial"}
	}
	return ValidateCells(r.Cells)
}

func checkRange(field string, v, lo, hi float64) error {
	if v != v || v < lo || v > hi {
		return &ValidationError{Field: field, Value: v, Reason: fmt.Sprintf("must be within [%v, %v]", lo, hi)}
	}
	return nil
}

func checkIntRange(field string, v, lo, hi int, allowUnspecified bool) error {
	if allowUnspecified && v == Unspecified {
		return nil
	}
	if v < lo || v > hi {
		reason := fmt.Sprintf("must be within [%d, %d]", lo, hi)
		if allowUnspecified {
			reason += fmt.Sprintf(" or %d (unspecified)", Unspecified)
		}
		return &ValidationError{Field: field, Value: v, Reason: reason}
	}
	return nil
}
