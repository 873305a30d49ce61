// Package domain models requests to and results from the FetchClimate
// distributed climate-data service.
//
// # Cells and Batches
//
// A request is an ordered list of elementary cells. Each cell is a
// latitude/longitude box (or a point when min == max) combined with a
// climatology window:
//
//	years  1..9999    inclusive, averaged over every year in the range
//	days   0..366     inclusive day-of-year window repeated each year
//	hours  0..24      inclusive hour-of-day window repeated each day
//
// Day and hour bounds may be set to [Unspecified] (-999), in which case the
// service applies its own default window (the whole year or day). Cell order
// is significant: result i always belongs to cell i.
//
// # Parameters and Units
//
// Parameters are identified by the service's FC_* names (see [Parameters]).
// The service answers in the parameter's native unit; [ParameterValue.ToClientUnit]
// rescales to the fixed client unit listed in the catalog.
//
// # Responses
//
// The service either returns a final [Result] or, when a computation exceeds
// its inline threshold, a [StatusResponse] telling the client how long to
// wait and whether to resend the full request or only the status object.
// [Response] is the tagged union of both shapes.
//
// # Validation
//
// Bounds are checked by [ValidateCell] before any request is built. Failures
// are [*ValidationError] values that match [ErrValidation] and name the
// offending field and its valid range.
package domain
