package main

import "strings"

const unknownCountryCode = "XX"

// euCountryCodes maps ISO 3166-1 alpha-2 codes of the EU member states to the
// country names used in the directory.
var euCountryCodes = map[string]string{
	"AT": "Austria",
	"BE": "Belgium",
	"BG": "Bulgaria",
	"HR": "Croatia",
	"CY": "Cyprus",
	"CZ": "Czech Republic",
	"DK": "Denmark",
	"EE": "Estonia",
	"FI": "Finland",
	"FR": "France",
	"DE": "Germany",
	"GR": "Greece",
	"HU": "Hungary",
	"IE": "Ireland",
	"IT": "Italy",
	"LV": "Latvia",
	"LT": "Lithuania",
	"LU": "Luxembourg",
	"MT": "Malta",
	"NL": "Netherlands",
	"PL": "Poland",
	"PT": "Portugal",
	"RO": "Romania",
	"SK": "Slovakia",
	"SI": "Slovenia",
	"ES": "Spain",
	"SE": "Sweden",
}

var euCountryNames = func() map[string]string {
	byName := make(map[string]string, len(euCountryCodes))
	for code, name := range euCountryCodes {
		byName[name] = code
	}
	return byName
}()

// countryNameForCode returns the directory name for an ISO code. Unknown codes
// are returned unchanged so that no information is lost.
func countryNameForCode(code string) string {
	code = strings.TrimSpace(code)
	if name, ok := euCountryCodes[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}

func countryCodeForName(name string) string {
	if code, ok := euCountryNames[name]; ok {
		return code
	}
	return unknownCountryCode
}
