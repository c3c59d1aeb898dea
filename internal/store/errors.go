package store

import "errors"

// Error taxonomy shared by the scoring core and its data collaborators.
// Everything except ErrUpstreamUnavailable is recoverable per player or per row.
var (
	// ErrMissingData means a player has no usable game log, position or DVP row
	ErrMissingData = errors.New("missing data")

	// ErrUnrecognizedCategory means a prop category outside the known mapping
	ErrUnrecognizedCategory = errors.New("unrecognized prop category")

	// ErrDegenerateStatistics means a baseline sample with zero variance or fewer than two rows
	ErrDegenerateStatistics = errors.New("degenerate statistics")

	// ErrUpstreamUnavailable means a whole-run input (e.g. today's projections) is missing
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
