package liveedit

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dpotapov/go-liveedit/markup"
)

func TestCoverage(t *testing.T) {
	text := `<body><div class="a"><P CLASS='b'>x</P><input disabled></div></body>`
	sigs := []markup.Signature{
		{Tag: "div", Attrs: []markup.Attr{{Name: "class", Value: "a"}}},
		{Tag: "p", Attrs: []markup.Attr{{Name: "class", Value: "b"}}},
		{Tag: "input", Attrs: []markup.Attr{{Name: "disabled", Value: ""}}},
		// tbody is inserted by the parser and never appears in the source.
		{Tag: "tbody"},
		{Tag: "p", Attrs: []markup.Attr{{Name: "class", Value: "c"}}},
	}

	got := Coverage(text, sigs)
	want := CoverageReport{
		Total:   5,
		Located: 3,
		Missing: []markup.Signature{
			{Tag: "tbody"},
			{Tag: "p", Attrs: []markup.Attr{{Name: "class", Value: "c"}}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Coverage() mismatch (-want +got):\n%s", diff)
	}
}
