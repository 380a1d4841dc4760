package markup

import "regexp"

// Region names the two structural regions of a document.
const (
	RegionHead = "head"
	RegionBody = "body"
)

var (
	openDelims = map[string]*regexp.Regexp{
		RegionHead: regexp.MustCompile(`(?i)<head(?:\s[^>]*)?>`),
		RegionBody: regexp.MustCompile(`(?i)<body(?:\s[^>]*)?>`),
	}
	closeDelims = map[string]*regexp.Regexp{
		RegionHead: regexp.MustCompile(`(?i)</head\s*>`),
		RegionBody: regexp.MustCompile(`(?i)</body\s*>`),
	}
)

// Bounds are the byte offsets of a region inside a text: text[Start:InnerStart] is the
// opening delimiter, text[InnerStart:InnerEnd] the interior and text[InnerEnd:End] the
// closing delimiter.
type Bounds struct {
	Start      int
	InnerStart int
	InnerEnd   int
	End        int
}

// Inner returns the interior of the region.
func (b Bounds) Inner(text string) string {
	return text[b.InnerStart:b.InnerEnd]
}

// FindRegion returns the bounds of the first opening delimiter of region and the first
// closing delimiter after it. Delimiters are matched case-insensitively and the opening
// delimiter may carry attributes.
func FindRegion(text, region string) (Bounds, error) {
	open, ok := openDelims[region]
	if !ok {
		return Bounds{}, &RegionError{Region: region}
	}

	o := open.FindStringIndex(text)
	if o == nil {
		return Bounds{}, &RegionError{Region: region}
	}

	c := closeDelims[region].FindStringIndex(text[o[1]:])
	if c == nil {
		return Bounds{}, &RegionError{Region: region}
	}

	return Bounds{
		Start:      o[0],
		InnerStart: o[1],
		InnerEnd:   o[1] + c[0],
		End:        o[1] + c[1],
	}, nil
}

// Regions is a document split into its metadata (head) and content (body) regions.
// A missing region has an empty interior and its Has flag unset.
type Regions struct {
	Head    string
	Body    string
	HasHead bool
	HasBody bool
}

// Split extracts the head and body interiors of text.
func Split(text string) Regions {
	var r Regions
	if b, err := FindRegion(text, RegionHead); err == nil {
		r.Head, r.HasHead = b.Inner(text), true
	}
	if b, err := FindRegion(text, RegionBody); err == nil {
		r.Body, r.HasBody = b.Inner(text), true
	}
	return r
}

// ExtractBody returns the interior of the body region.
func ExtractBody(text string) (string, error) {
	b, err := FindRegion(text, RegionBody)
	if err != nil {
		return "", err
	}
	return b.Inner(text), nil
}

// PatchBody replaces the interior of the body region of text with inner and returns the new
// revision. Everything outside the interior is kept byte-for-byte. When text has no body
// delimiters it is returned unchanged together with a *RegionError.
func PatchBody(text, inner string) (string, error) {
	b, err := FindRegion(text, RegionBody)
	if err != nil {
		return text, err
	}
	return text[:b.InnerStart] + inner + text[b.InnerEnd:], nil
}
