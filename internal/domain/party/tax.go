package party

import "strings"

// Legacy tax categories on the address header. Category 1 is domestic
// taxation, 2 is the Swiss special case, 3 is export / intra-community
// supply.
const (
	TaxCategoryDomestic = 1
	TaxCategorySwiss    = 2
	TaxCategoryExport   = 3
)

// euCountryCodes are the EU member states relevant for intra-community
// supply. GB is out since Brexit, CH was never in.
var euCountryCodes = map[string]bool{
	"AT": true, "BE": true, "BG": true, "CY": true, "CZ": true,
	"DE": true, "DK": true, "EE": true, "ES": true, "FI": true,
	"FR": true, "GR": true, "HR": true, "HU": true, "IE": true,
	"IT": true, "LT": true, "LU": true, "LV": true, "MT": true,
	"NL": true, "PL": true, "PT": true, "RO": true, "SE": true,
	"SI": true, "SK": true,
}

// IsEUCountry reports whether the ISO alpha-2 code is an EU member state.
func IsEUCountry(code string) bool {
	return euCountryCodes[strings.ToUpper(strings.TrimSpace(code))]
}

// ResolveTaxCategory maps the shipping country and VAT id presence to the
// legacy tax category. EU customers without a VAT id are taxed like
// domestic ones; with a VAT id the supply is intra-community.
func ResolveTaxCategory(countryCode, vatID string) int {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	hasVatID := strings.TrimSpace(vatID) != ""

	switch {
	case code == "DE":
		return TaxCategoryDomestic
	case code == "CH":
		return TaxCategorySwiss
	case euCountryCodes[code]:
		if hasVatID {
			return TaxCategoryExport
		}
		return TaxCategoryDomestic
	default:
		return TaxCategoryExport
	}
}
