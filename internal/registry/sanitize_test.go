package registry

import "testing"

func TestSanitizeReplacesIllegalRuns(t *testing.T) {
	cases := map[string]string{
		"get-forecast":    "get_forecast",
		"get.forecast.v2": "get_forecast_v2",
		"getForecast":     "getForecast",
		"a//b":            "a_b",
		"":                "_",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizePrefixesLeadingDigit(t *testing.T) {
	got := Sanitize("123tool")
	if got != "_123tool" {
		t.Errorf("expected leading-digit prefix, got %q", got)
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	inputs := []string{"get-forecast", "123tool", "a//b//c", "already_valid"}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestDisambiguateAppendsSuffix(t *testing.T) {
	taken := map[string]bool{}

	first := Disambiguate("get_forecast", taken)
	second := Disambiguate("get_forecast", taken)
	third := Disambiguate("get_forecast", taken)

	if first != "get_forecast" {
		t.Errorf("first occurrence should keep the base title, got %q", first)
	}
	if second != "get_forecast_2" {
		t.Errorf("expected _2 suffix, got %q", second)
	}
	if third != "get_forecast_3" {
		t.Errorf("expected _3 suffix, got %q", third)
	}
}
