package markup

import "errors"

var (
	// ErrMatchNotFound is reported when no opening tag in the text satisfies a signature.
	ErrMatchNotFound = errors.New("tag signature not found")

	// ErrRegionNotFound is reported when the head or body delimiters are absent.
	ErrRegionNotFound = errors.New("region not found")
)

// RegionError describes a missing document region.
type RegionError struct {
	Region string // "head" or "body"
}

func (e *RegionError) Error() string {
	return "<" + e.Region + ">: " + ErrRegionNotFound.Error()
}

func (e *RegionError) Unwrap() error {
	return ErrRegionNotFound
}
