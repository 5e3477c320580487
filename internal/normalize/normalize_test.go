// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"apa citation", "Smith, J. et al. (2020). Deep Learning Basics. J. ML Research, 12(3), pp. 45-67.",
			"smith j 2020 deep learning basics j ml research"},
		{"diacritics", "Héllo Wörld Çà", "hello world ca"},
		{"hyphen and apostrophe in names", "Jean-Pierre O'Brien", "jean-pierre obrien"},
		{"hyphen next to digit", "COVID-19 cases", "covid 19 cases"},
		{"volume and issue markers", "vol. 5, no. 3", ""},
		{"issue word", "Issue 7 of the series", "of the series"},
		{"page range en dash", "pages 101–110 appear", "pages appear"},
		{"collapse whitespace", "  multiple \t spaces\n", "multiple spaces"},
		{"compound word", "State-of-the-Art Methods", "state-of-the-art methods"},
		{"no alone is kept", "No Free Lunch", "no free lunch"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextIdempotent(t *testing.T) {
	inputs := []string{
		"Smith, J. et al. (2020). Deep Learning Basics. J. ML Research, 12(3), pp. 45-67.",
		"et et al al",
		"vol vol 3 3",
		"İstanbul Üniversitesi",
		"a--b -c- d-",
		"Ñandú’s “quoted” title — with dashes",
		"pp. pp. 4-5",
		"Nature 2019;567(7748):305-307",
	}
	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), "Text not idempotent for %q", in)
	}
}

func TestDOI(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"10.1145/1234567.1234568", "10.1145/1234567.1234568", true},
		{"https://doi.org/10.1000/XYZ123", "10.1000/xyz123", true},
		{"http://dx.doi.org/10.1000/abc", "10.1000/abc", true},
		{"https://doi-org.sid2nomade-1.grenet.fr/10.1016/j.x.2020.01.001", "10.1016/j.x.2020.01.001", true},
		{"https://onlinelibrary.wiley.com/doi/full/10.1002/abc.123", "10.1002/abc.123", true},
		{"https://dl.acm.org/doi/10.1145/3290605.3300233", "10.1145/3290605.3300233", true},
		{"doi:10.1000/abc.", "10.1000/abc", true},
		{"10.1/X", "10.1/x", true},
		{"https://doi.org/10.1000%2Fabc", "10.1000/abc", true},
		{"  No DOI ", "", false},
		{"", "", false},
		{"not a doi", "", false},
		{"2301.07041", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := DOI(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("DOI(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFindDOI(t *testing.T) {
	got, ok := FindDOI("Smith (2020). Title. https://doi.org/10.1000/ABC.123.")
	assert.True(t, ok)
	assert.Equal(t, "10.1000/abc.123", got)

	_, ok = FindDOI("Smith (2020). Title without identifiers.")
	assert.False(t, ok)
}

func TestHALID(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"hal-01234567", "hal-01234567", true},
		{"hal-01234567v2", "hal-01234567", true},
		{"HAL-01234567", "hal-01234567", true},
		{"https://hal.science/hal-01234567v1/document", "hal-01234567", true},
		{"https://inria.hal.science/inria-00123456", "inria-00123456", true},
		{"https://hal.archives-ouvertes.fr/tel-04012345", "tel-04012345", true},
		{"no hal id", "", false},
		{"", "", false},
		{"hal", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := HALID(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("HALID(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFindHALID(t *testing.T) {
	got, ok := FindHALID("Dupont, J. (2019). Titre. Available at hal-01234567v3.")
	assert.True(t, ok)
	assert.Equal(t, "hal-01234567", got)

	got, ok = FindHALID("see https://hal.science/halshs-00012345")
	assert.True(t, ok)
	assert.Equal(t, "halshs-00012345", got)

	_, ok = FindHALID("COVID-19 and the 2020-2021 pandemic")
	assert.False(t, ok)
}

func TestSurname(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Smith, John", "smith"},
		{"John Smith", "smith"},
		{"J. Smith", "smith"},
		{"Smith J.", "smith"},
		{"Smith JR", "smith"},
		{"John SMITH", "smith"},
		{"SMITH John", "smith"},
		{"Jean-Pierre DUPONT", "dupont"},
		{"J.-P. Sartre", "sartre"},
		{"García Márquez, Gabriel", "garcia marquez"},
		{"Müller", "muller"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Surname(tt.input); got != tt.want {
				t.Errorf("Surname(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestYear(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"Smith (2020). Title. Journal 1999.", 2020, true},
		{"Nature 2019; 12", 2019, true},
		{"Doe (2021a) Another", 2021, true},
		{"no year here 123", 0, false},
		{"serial 12020", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Year(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Year(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestJaccardAndContainment(t *testing.T) {
	assert.InDelta(t, 0.5, Jaccard([]string{"a", "b", "c"}, []string{"b", "c", "d"}), 1e-9)
	assert.Equal(t, 0.0, Jaccard(nil, []string{"a"}))
	assert.InDelta(t, 1.0, Containment([]string{"b", "c"}, []string{"a", "b", "c"}), 1e-9)
	assert.InDelta(t, 0.5, Containment([]string{"b", "z", "b"}, []string{"b"}), 1e-9)
}
