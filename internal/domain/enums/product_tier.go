package enums

import "strings"

// ProductTier is the purchasable unit named in checkout metadata. Season
// tiers unlock a single season; the director tier is the lifetime bundle.
type ProductTier string

const (
	TierSeason1  ProductTier = "season1"
	TierSeason2  ProductTier = "season2"
	TierSeason3  ProductTier = "season3"
	TierSeason4  ProductTier = "season4"
	TierDirector ProductTier = "director"
)

func ParseProductTier(raw string) (ProductTier, bool) {
	switch ProductTier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierSeason1:
		return TierSeason1, true
	case TierSeason2:
		return TierSeason2, true
	case TierSeason3:
		return TierSeason3, true
	case TierSeason4:
		return TierSeason4, true
	case TierDirector:
		return TierDirector, true
	default:
		return "", false
	}
}

// EntitlementKeys lists every key a completed purchase of the tier grants.
// The director bundle writes the full-access key plus season one.
func (t ProductTier) EntitlementKeys() []EntitlementKey {
	switch t {
	case TierSeason1:
		return []EntitlementKey{EntitlementSeason1}
	case TierSeason2:
		return []EntitlementKey{EntitlementSeason2}
	case TierSeason3:
		return []EntitlementKey{EntitlementSeason3}
	case TierSeason4:
		return []EntitlementKey{EntitlementSeason4}
	case TierDirector:
		return []EntitlementKey{EntitlementFullAccess, EntitlementSeason1}
	default:
		return nil
	}
}
