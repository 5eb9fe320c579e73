package enums

import "strings"

type EntitlementKey string

const (
	EntitlementSeason1    EntitlementKey = "season1"
	EntitlementSeason2    EntitlementKey = "season2"
	EntitlementSeason3    EntitlementKey = "season3"
	EntitlementSeason4    EntitlementKey = "season4"
	EntitlementFullAccess EntitlementKey = "full_access"
)

// DefaultEntitlementKey is the key checked when a caller does not name one.
const DefaultEntitlementKey = EntitlementSeason1

func ParseEntitlementKey(raw string) (EntitlementKey, bool) {
	switch EntitlementKey(strings.ToLower(strings.TrimSpace(raw))) {
	case EntitlementSeason1:
		return EntitlementSeason1, true
	case EntitlementSeason2:
		return EntitlementSeason2, true
	case EntitlementSeason3:
		return EntitlementSeason3, true
	case EntitlementSeason4:
		return EntitlementSeason4, true
	case EntitlementFullAccess:
		return EntitlementFullAccess, true
	default:
		return "", false
	}
}
