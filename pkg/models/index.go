package models

import "fmt"

// DayCount names an accrual convention. Year fractions are resolved upstream; the
// name travels with the index for reporting only.
type DayCount string

// Day count conventions
const (
	Act360    DayCount = "ACT/360"
	Act365F   DayCount = "ACT/365F"
	Thirty360 DayCount = "30/360"
)

// RateIndex identifies an ibor or overnight index. Comparable so it can key a map.
type RateIndex struct {
	Name        string   `json:"name" yaml:"name"`
	Currency    Currency `json:"currency" yaml:"currency"`
	TenorMonths int      `json:"tenor_months" yaml:"tenor_months"`
	SpotLagDays int      `json:"spot_lag_days" yaml:"spot_lag_days"`
	DayCount    DayCount `json:"day_count" yaml:"day_count"`
	Calendar    string   `json:"calendar" yaml:"calendar"`
	IsOvernight bool     `json:"is_overnight" yaml:"is_overnight"`
}

// String returns the index name
func (i RateIndex) String() string {
	return i.Name
}

// PriceIndex identifies an inflation index
type PriceIndex struct {
	Name     string   `json:"name" yaml:"name"`
	Currency Currency `json:"currency" yaml:"currency"`
	Region   string   `json:"region" yaml:"region"`
}

// String returns the index name
func (p PriceIndex) String() string {
	return p.Name
}

// Common indices
var (
	EURIBOR3M  = RateIndex{Name: "EURIBOR3M", Currency: EUR, TenorMonths: 3, SpotLagDays: 2, DayCount: Act360, Calendar: "TARGET"}
	EURIBOR6M  = RateIndex{Name: "EURIBOR6M", Currency: EUR, TenorMonths: 6, SpotLagDays: 2, DayCount: Act360, Calendar: "TARGET"}
	ESTR       = RateIndex{Name: "ESTR", Currency: EUR, SpotLagDays: 0, DayCount: Act360, Calendar: "TARGET", IsOvernight: true}
	SOFR       = RateIndex{Name: "SOFR", Currency: USD, SpotLagDays: 0, DayCount: Act360, Calendar: "USGS", IsOvernight: true}
	USDLIBOR3M = RateIndex{Name: "USDLIBOR3M", Currency: USD, TenorMonths: 3, SpotLagDays: 2, DayCount: Act360, Calendar: "USNY"}

	EUHICPX = PriceIndex{Name: "EUHICPX", Currency: EUR, Region: "EU"}
	USCPI   = PriceIndex{Name: "USCPI", Currency: USD, Region: "US"}
)

var knownRateIndices = map[string]RateIndex{
	EURIBOR3M.Name:  EURIBOR3M,
	EURIBOR6M.Name:  EURIBOR6M,
	ESTR.Name:       ESTR,
	SOFR.Name:       SOFR,
	USDLIBOR3M.Name: USDLIBOR3M,
}

var knownPriceIndices = map[string]PriceIndex{
	EUHICPX.Name: EUHICPX,
	USCPI.Name:   USCPI,
}

// LookupRateIndex returns a predefined rate index by name
func LookupRateIndex(name string) (RateIndex, error) {
	idx, ok := knownRateIndices[name]
	if !ok {
		return RateIndex{}, fmt.Errorf("unknown rate index %q", name)
	}
	return idx, nil
}

// LookupPriceIndex returns a predefined price index by name
func LookupPriceIndex(name string) (PriceIndex, error) {
	idx, ok := knownPriceIndices[name]
	if !ok {
		return PriceIndex{}, fmt.Errorf("unknown price index %q", name)
	}
	return idx, nil
}
