package domain

import "strings"

type StoreID string

const (
	StoreDjakSport   StoreID = "djaksport"
	StorePlaneta     StoreID = "planeta"
	StoreSportVision StoreID = "sportvision"
	StoreNSport      StoreID = "nsport"
	StoreBuzz        StoreID = "buzz"
	StoreOfficeShoes StoreID = "officeshoes"
	StoreIntersport  StoreID = "intersport"
	StoreTref        StoreID = "tref"
)

// KnownStores is the closed set of sources the importer accepts.
var KnownStores = []StoreID{
	StoreDjakSport,
	StorePlaneta,
	StoreSportVision,
	StoreNSport,
	StoreBuzz,
	StoreOfficeShoes,
	StoreIntersport,
	StoreTref,
}

func (s StoreID) Valid() bool {
	for _, k := range KnownStores {
		if s == k {
			return true
		}
	}
	return false
}

// ParseStore normalizes raw input and reports whether it names a known store.
func ParseStore(raw string) (StoreID, bool) {
	s := StoreID(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}
