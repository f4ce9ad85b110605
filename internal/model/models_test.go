package model

import (
	"testing"
	"time"
)

func TestLocationKey(t *testing.T) {
	cases := []struct {
		loc  Location
		want string
	}{
		{Location{City: "Austin", State: "TX"}, "austin|tx"},
		{Location{City: " AUSTIN ", State: "tx"}, "austin|tx"},
		{Location{City: "", State: "TX"}, "|tx"},
		{Location{City: "Boise", State: ""}, "boise|"},
		{Location{}, ""},
		{Location{City: "  ", State: "\t"}, ""},
	}
	for _, c := range cases {
		if got := c.loc.Key(); got != c.want {
			t.Errorf("Key(%+v) = %q, want %q", c.loc, got, c.want)
		}
	}
}

func TestCandidateDedupKey(t *testing.T) {
	a := Candidate{Name: "Gates Scholarship", ApplicationURL: "https://www.Example.org/apply/"}
	b := Candidate{Name: "gates scholarship (copy)", ApplicationURL: "http://example.org/apply#top"}
	if a.DedupKey() != b.DedupKey() {
		t.Errorf("same application URL should dedup: %q vs %q", a.DedupKey(), b.DedupKey())
	}

	c := Candidate{Name: "  Local  Rotary Award ", Organization: "Rotary"}
	d := Candidate{Name: "local rotary award", Organization: "ROTARY"}
	if c.DedupKey() != d.DedupKey() {
		t.Errorf("name|org fallback should be case-insensitive: %q vs %q", c.DedupKey(), d.DedupKey())
	}

	if (Candidate{}).DedupKey() != "" {
		t.Error("empty candidate should have empty dedup key")
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"":                              "",
		"not a url":                     "",
		"https://WWW.Foo.org/":          "foo.org",
		"https://foo.org/a/b/?x=1#frag": "foo.org/a/b?x=1",
		"http://foo.org/a":              "foo.org/a",
	}
	for in, want := range cases {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*3600)
	in := time.Date(2026, 5, 31, 22, 30, 0, 0, loc) // 2026-06-01T04:30Z
	got := DateOf(in)
	want := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOf = %s, want %s", got, want)
	}
}
