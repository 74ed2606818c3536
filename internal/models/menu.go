package models

// Function is the service a user picked from the root menu.
type Function string

// Function constants double as the utterances that select them.
const (
	FunctionItems  Function = "검사항목"
	FunctionCycles Function = "검사주기"
)

// Domain is the top-level category of a query.
type Domain string

// Domain constants
const (
	DomainFood      Domain = "식품"
	DomainLivestock Domain = "축산"
)

// BusinessType is the sub-classification used by cycle lookups.
type BusinessType string

// Business type constants
const (
	BusinessFoodManufacturing      BusinessType = "식품제조가공업"
	BusinessFoodInstantSale        BusinessType = "즉석판매제조가공업"
	BusinessLivestockManufacturing BusinessType = "축산물제조가공업"
	BusinessLivestockInstantSale   BusinessType = "축산물즉석판매제조가공업"
)

// Domains lists the supported domains in menu order.
var Domains = []Domain{DomainFood, DomainLivestock}

var businessTypesByDomain = map[Domain][]BusinessType{
	DomainFood:      {BusinessFoodManufacturing, BusinessFoodInstantSale},
	DomainLivestock: {BusinessLivestockManufacturing, BusinessLivestockInstantSale},
}

// ParseFunction reports whether s names a lookup function.
func ParseFunction(s string) (Function, bool) {
	switch Function(s) {
	case FunctionItems, FunctionCycles:
		return Function(s), true
	}
	return "", false
}

// ParseDomain reports whether s names a domain.
func ParseDomain(s string) (Domain, bool) {
	d := Domain(s)
	if d.Valid() {
		return d, true
	}
	return "", false
}

// ParseBusinessType reports whether s names any known business type.
func ParseBusinessType(s string) (BusinessType, bool) {
	for _, types := range businessTypesByDomain {
		for _, bt := range types {
			if string(bt) == s {
				return bt, true
			}
		}
	}
	return "", false
}

// Valid reports whether d is one of the supported domains.
func (d Domain) Valid() bool {
	return d == DomainFood || d == DomainLivestock
}

// BusinessTypesFor returns the business types offered under d.
func BusinessTypesFor(d Domain) []BusinessType {
	types := businessTypesByDomain[d]
	out := make([]BusinessType, len(types))
	copy(out, types)
	return out
}

// BelongsTo reports whether bt is an allowed business type for d.
func (bt BusinessType) BelongsTo(d Domain) bool {
	for _, t := range businessTypesByDomain[d] {
		if t == bt {
			return true
		}
	}
	return false
}

// IsManufacturing reports whether bt files a product manufacturing report.
func (bt BusinessType) IsManufacturing() bool {
	return bt == BusinessFoodManufacturing || bt == BusinessLivestockManufacturing
}
