package domain

import (
	"context"
	"errors"
)

// ErrPlaceNotFound is returned when a geocoder has no match for a query.
var ErrPlaceNotFound = errors.New("place not found")

// Place is a named location resolved by a geocoding provider.
type Place struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Relevance float64 `json:"relevance"` // 0.0–1.0 provider confidence score
}

// PlaceResolver maps place names to coordinates and back.
type PlaceResolver interface {
	// ResolvePlace converts a free-text place name to coordinates.
	ResolvePlace(ctx context.Context, query string) (Place, error)

	// DescribeLocation names the place at the given coordinates.
	DescribeLocation(ctx context.Context, lat, lon float64) (Place, error)
}

// PlaceCell returns a point cell at the resolved place.
func PlaceCell(p Place, t TimeBounds) Cell {
	return PointCell(p.Lat, p.Lon, t)
}
