package erp

import (
	"strconv"
	"strings"
)

// iso2ToNumeric maps ISO-3166 alpha-2 codes to the numeric codes the legacy
// store keeps in its Land field. Only codes that occur in this integration
// are listed.
var iso2ToNumeric = map[string]int{
	"DE": 276,
	"AT": 40,
	"BE": 56,
	"BG": 100,
	"CH": 756,
	"CY": 196,
	"CZ": 203,
	"DK": 208,
	"EE": 233,
	"ES": 724,
	"FI": 246,
	"FR": 250,
	"GB": 826,
	"GR": 300,
	"HR": 191,
	"HU": 348,
	"IE": 372,
	"IT": 380,
	"LT": 440,
	"LU": 442,
	"LV": 428,
	"MT": 470,
	"NL": 528,
	"PL": 616,
	"PT": 620,
	"RO": 642,
	"SE": 752,
	"SI": 705,
	"SK": 703,
	"US": 840,
}

var numericToISO2 = func() map[int]string {
	m := make(map[int]string, len(iso2ToNumeric))
	for code, n := range iso2ToNumeric {
		m[n] = code
	}
	return m
}()

// CountryNumeric converts an ISO alpha-2 country code to the legacy numeric
// code. Already-numeric input passes through; unknown codes yield (0, false).
func CountryNumeric(code string) (int, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(code); err == nil {
		return n, true
	}
	n, ok := iso2ToNumeric[code]
	return n, ok
}

// CountryAlpha2 converts a legacy numeric country code back to the ISO
// alpha-2 code; unknown codes yield ("", false).
func CountryAlpha2(numeric int) (string, bool) {
	code, ok := numericToISO2[numeric]
	return code, ok
}
