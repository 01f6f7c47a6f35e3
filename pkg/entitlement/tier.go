package entitlement

import "fmt"

// Tier is an ordered subscription level. The integer backing value is the
// rank: a higher value is always a more generous tier, so comparisons never
// need an external rank table.
type Tier int

const (
	TierFree Tier = iota
	TierStarter
	TierPro
	TierEnterprise
)

var tierNames = map[Tier]string{
	TierFree:       "free",
	TierStarter:    "starter",
	TierPro:        "pro",
	TierEnterprise: "enterprise",
}

// Tiers returns all known tiers in ascending order.
func Tiers() []Tier {
	return []Tier{TierFree, TierStarter, TierPro, TierEnterprise}
}

// ParseTier converts a tier name into a Tier.
func ParseTier(s string) (Tier, error) {
	for t, name := range tierNames {
		if name == s {
			return t, nil
		}
	}
	return TierFree, fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	_, ok := tierNames[t]
	return ok
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Compare returns -1, 0 or 1 as t is ranked below, equal to, or above other.
func (t Tier) Compare(other Tier) int {
	switch {
	case t < other:
		return -1
	case t > other:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether t is ranked at or above other.
func (t Tier) AtLeast(other Tier) bool {
	return t >= other
}

// MarshalText implements encoding.TextMarshaler so tiers serialize as their
// names in JSON payloads and audit rows.
func (t Tier) MarshalText() ([]byte, error) {
	name, ok := tierNames[t]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTier, int(t))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
