package common

import (
	"fmt"
	"time"

	"github.com/go-spatial/geom"
)

// ValidationError is returned for malformed parameters, before any network or disk I/O.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string {
	return "validation: " + e.Msg
}

// NewValidationError creates a ValidationError with a formatted message
func NewValidationError(format string, args ...interface{}) ValidationError {
	return ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// SearchParams is the filter specification of a catalog search.
// The temporal filter is the half-open interval [Start, End).
// Options are source-specific and validated by the chosen Source, not here.
type SearchParams struct {
	AOI     geom.Geometry
	Start   time.Time
	End     time.Time
	Options map[string]string
}

// NewSearchParams creates a SearchParams and validates it
func NewSearchParams(aoi geom.Geometry, start, end time.Time, options map[string]string) (SearchParams, error) {
	p := SearchParams{AOI: aoi, Start: start, End: end, Options: options}
	if err := p.Validate(); err != nil {
		return SearchParams{}, err
	}
	return p, nil
}

// Validate checks the temporal and spatial filters
func (p SearchParams) Validate() error {
	if p.AOI == nil {
		return NewValidationError("missing area of interest")
	}
	if p.Start.After(p.End) {
		return NewValidationError("start date %s comes after end date %s", p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
	}
	return nil
}

// ConversionParams is the specification of a scene conversion.
// Datasets is the ordered list of band/dataset names to extract.
// Resolution is in units of the target CRS.
// Options are writer-specific and validated by the chosen Writer.
type ConversionParams struct {
	TargetCRS  string
	Datasets   []string
	Resolution float64
	Options    map[string]string
}

// NewConversionParams creates a ConversionParams and validates it
func NewConversionParams(targetCRS string, datasets []string, resolution float64, options map[string]string) (ConversionParams, error) {
	p := ConversionParams{TargetCRS: targetCRS, Datasets: datasets, Resolution: resolution, Options: options}
	if err := p.Validate(); err != nil {
		return ConversionParams{}, err
	}
	return p, nil
}

// Validate checks the conversion target
func (p ConversionParams) Validate() error {
	if p.TargetCRS == "" {
		return NewValidationError("missing target CRS")
	}
	if len(p.Datasets) == 0 {
		return NewValidationError("missing datasets to extract")
	}
	if p.Resolution <= 0 {
		return NewValidationError("invalid resolution: %f", p.Resolution)
	}
	return nil
}

// ValidateWorkers checks a worker-pool size before any work is dispatched
func ValidateWorkers(numWorkers int) error {
	if numWorkers <= 0 {
		return NewValidationError("invalid number of workers: %d", numWorkers)
	}
	return nil
}
