package request

import (
	"fmt"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
)

// Axis is a coordinate variable: its values and the name of the dimension
// it is indexed by.
type Axis struct {
	Dim    string
	Values []float64
}

// LayoutMode tells how coordinates were combined.
type LayoutMode int

// Layout modes.
const (
	LayoutGrid LayoutMode = iota
	LayoutPointset
)

func (m LayoutMode) String() string {
	if m == LayoutPointset {
		return "pointset"
	}
	return "grid"
}

// Layout records the shape of an axes request so flat results can be reshaped.
// Grid cells are ordered [lat][lon][time]; pointset cells [point][time].
type Layout struct {
	Mode   LayoutMode
	Lats   int
	Lons   int
	Points int
	Times  int
}

// Len returns the number of cells the layout describes.
func (l Layout) Len() int {
	if l.Mode == LayoutPointset {
		return l.Points * l.Times
	}
	return l.Lats * l.Lons * l.Times
}

// Shape returns the dimension sizes in cell order.
func (l Layout) Shape() []int {
	if l.Mode == LayoutPointset {
		return []int{l.Points, l.Times}
	}
	return []int{l.Lats, l.Lons, l.Times}
}

// FromAxes builds point cells from coordinate axes and time windows. Axes on
// distinct dimensions form a grid (lat x lon x time); axes sharing a
// dimension are zipped into points (point x time).
func FromAxes(p domain.Parameter, lat, lon Axis, times []domain.TimeBounds, opts domain.FetchingOptions) (domain.BatchRequest, Layout, error) {
	if len(times) == 0 {
		return domain.BatchRequest{}, Layout{}, &domain.ValidationError{Field: "time", Reason: "at least one time window is required"}
	}

	var (
		cells  []domain.Cell
		layout Layout
	)
	if lat.Dim != "" && lat.Dim == lon.Dim {
		if len(lat.Values) != len(lon.Values) {
			return domain.BatchRequest{}, Layout{}, &domain.ValidationError{
				Field:  "lon",
				Value:  len(lon.Values),
				Reason: fmt.Sprintf("shares dimension %q with lat and must have its length %d", lat.Dim, len(lat.Values)),
			}
		}
		layout = Layout{Mode: LayoutPointset, Points: len(lat.Values), Times: len(times)}
		cells = make([]domain.Cell, 0, layout.Len())
		for i := range lat.Values {
			for _, t := range times {
				cells = append(cells, domain.PointCell(lat.Values[i], lon.Values[i], t))
			}
		}
	} else {
		layout = Layout{Mode: LayoutGrid, Lats: len(lat.Values), Lons: len(lon.Values), Times: len(times)}
		cells = make([]domain.Cell, 0, layout.Len())
		for _, la := range lat.Values {
			for _, lo := range lon.Values {
				for _, t := range times {
					cells = append(cells, domain.PointCell(la, lo, t))
				}
			}
		}
	}

	req, err := FromCells(p, cells, opts)
	if err != nil {
		return domain.BatchRequest{}, Layout{}, err
	}
	return req, layout, nil
}
