// Package delivery maps a district/area selection to a flat delivery fee.
package delivery

import "strings"

// Zone classifies a delivery address for pricing.
type Zone string

const (
	ZoneUndetermined Zone = "undetermined"
	ZoneSpecial      Zone = "special"
	ZoneInsideDhaka  Zone = "inside_dhaka"
	ZoneOutsideDhaka Zone = "outside_dhaka"
)

// Flat fees per zone.
const (
	FeeUndetermined int64 = 0
	FeeSpecial      int64 = 90
	FeeInsideDhaka  int64 = 70
	FeeOutsideDhaka int64 = 130
)

// Quote is the outcome of a fee lookup.
type Quote struct {
	Zone Zone  `json:"zone"`
	Fee  int64 `json:"fee"`
}

type rule struct {
	zone  Zone
	fee   int64
	match func(district, area string) bool
}

// Order matters: special zones win over the plain Dhaka rate even when the
// area sits inside Dhaka district.
var rules = []rule{
	{zone: ZoneUndetermined, fee: FeeUndetermined, match: func(district, area string) bool {
		return district == "" && area == ""
	}},
	{zone: ZoneSpecial, fee: FeeSpecial, match: isSpecialZone},
	{zone: ZoneInsideDhaka, fee: FeeInsideDhaka, match: func(district, _ string) bool {
		return district == "Dhaka"
	}},
	{zone: ZoneOutsideDhaka, fee: FeeOutsideDhaka, match: func(string, string) bool {
		return true
	}},
}

var specialAreaSubstrings = []string{"Savar", "Keraniganj"}

func isSpecialZone(district, area string) bool {
	if district == "Gazipur" || area == "Demra" {
		return true
	}
	for _, s := range specialAreaSubstrings {
		if strings.Contains(area, s) {
			return true
		}
	}
	return false
}

// QuoteFor evaluates the rule table for the selection. Surrounding whitespace
// is ignored; matching is otherwise exact and case-sensitive.
func QuoteFor(district, area string) Quote {
	district = strings.TrimSpace(district)
	area = strings.TrimSpace(area)
	for _, r := range rules {
		if r.match(district, area) {
			return Quote{Zone: r.zone, Fee: r.fee}
		}
	}
	return Quote{Zone: ZoneOutsideDhaka, Fee: FeeOutsideDhaka}
}

// Fee is QuoteFor(district, area).Fee.
func Fee(district, area string) int64 {
	return QuoteFor(district, area).Fee
}
