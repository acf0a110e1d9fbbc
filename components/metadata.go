package components

import "fmt"

// String returns the display name for a HunterType.
func (t HunterType) String() string {
	names := HunterTypeNames()
	if int(t) < len(names) {
		return names[t]
	}
	return "Unknown"
}

// HunterTypeNames returns the display names for all hunter types.
// The order matches the HunterType constants.
func HunterTypeNames() []string {
	return []string{"solo", "group"}
}

// ParseHunterType maps a display name back to its HunterType.
func ParseHunterType(name string) (HunterType, bool) {
	for i, n := range HunterTypeNames() {
		if n == name {
			return HunterType(i), true
		}
	}
	return 0, false
}

// String returns the display name for an Intent.
func (i Intent) String() string {
	names := IntentNames()
	if int(i) < len(names) {
		return names[i]
	}
	return "Unknown"
}

// IntentNames returns the display names for all intents.
func IntentNames() []string {
	return []string{"wander", "follow", "forage", "engage", "flee"}
}

// MarshalText encodes the type by name.
func (t HunterType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name.
func (t *HunterType) UnmarshalText(b []byte) error {
	v, ok := ParseHunterType(string(b))
	if !ok {
		return fmt.Errorf("unknown hunter type %q", b)
	}
	*t = v
	return nil
}
