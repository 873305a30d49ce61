package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// valueRow is one printed answer. Label names the series interval or grid
// position when there is one.
type valueRow struct {
	Label string `json:"label,omitempty"`
	domain.Cell
	Value       float64 `json:"value"`
	Uncertainty float64 `json:"uncertainty"`
	Provenance  string  `json:"provenance"`
	Unit        string  `json:"unit"`
}

func newRow(label string, p domain.Parameter, c domain.Cell, v domain.ParameterValue) valueRow {
	cv := v.ToClientUnit(p)
	return valueRow{
		Label:       label,
		Cell:        c,
		Value:       cv.Value,
		Uncertainty: cv.Uncertainty,
		Provenance:  cv.Provenance,
		Unit:        p.ClientUnit,
	}
}

func printRows(w io.Writer, format string, rows []valueRow) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	labelled := len(rows) > 0 && rows[0].Label != ""
	if labelled {
		fmt.Fprint(tw, "\t")
	}
	fmt.Fprintln(tw, "LAT\tLON\tYEARS\tDAYS\tHOURS\tVALUE\tUNCERTAINTY\tUNIT\tPROVENANCE")
	for _, r := range rows {
		if labelled {
			fmt.Fprintf(tw, "%s\t", r.Label)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.4f\t%.4f\t%s\t%s\n",
			span(r.LatMin, r.LatMax), span(r.LonMin, r.LonMax),
			intSpan(r.YearMin, r.YearMax), intSpan(r.DayMin, r.DayMax), intSpan(r.HourMin, r.HourMax),
			r.Value, r.Uncertainty, r.Unit, r.Provenance)
	}
	return tw.Flush()
}

func span(lo, hi float64) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	if lo == hi {
		return f(lo)
	}
	return f(lo) + ".." + f(hi)
}

func intSpan(lo, hi int) string {
	if lo == domain.Unspecified && hi == domain.Unspecified {
		return "*"
	}
	if lo == hi {
		return strconv.Itoa(lo)
	}
	return strconv.Itoa(lo) + "-" + strconv.Itoa(hi)
}
