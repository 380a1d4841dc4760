package liveedit

import "github.com/dpotapov/go-liveedit/markup"

// CoverageReport tells how many rendered elements can be mapped back to the source text.
type CoverageReport struct {
	Total   int
	Located int

	// Missing lists the signatures Locate could not find, in the order given.
	Missing []markup.Signature
}

// Coverage locates every signature in text.
func Coverage(text string, sigs []markup.Signature) CoverageReport {
	r := CoverageReport{Total: len(sigs)}
	for _, sig := range sigs {
		if markup.Locate(sig, text).Found {
			r.Located++
		} else {
			r.Missing = append(r.Missing, sig)
		}
	}
	return r
}
