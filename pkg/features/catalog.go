package features

import "github.com/Dreta/Beacon/pkg/perception"

var catalog = []Descriptor{
	{
		Kind:      KindIdentify,
		Name:      "Object Identification",
		Icon:      "magnifyingglass",
		Priority:  0,
		Conflicts: []Kind{KindTrafficLight},
		Fields:    []perception.Field{perception.FieldSelected, perception.FieldDetections},
		New:       newIdentify,
	},
	{
		Kind:      KindTrafficLight,
		Name:      "Traffic Light Detection",
		Icon:      "light.beacon.max.fill",
		Priority:  0,
		Conflicts: []Kind{KindIdentify},
		Fields:    []perception.Field{perception.FieldTrafficLight},
		New:       newTrafficLight,
	},
	{
		Kind:     KindSelectedHaptics,
		Name:     "Object Haptics",
		Icon:     "hand.tap",
		Priority: 1,
		New:      newSelectedHaptics,
	},
	{
		Kind:     KindProximityHaptics,
		Name:     "Proximity Haptics",
		Icon:     "sensor.tag.radiowaves.forward",
		Priority: 1,
		Fields:   []perception.Field{perception.FieldCentralDistance},
		New:      newProximityHaptics,
	},
}

// DefaultEnabled is the feature set enabled at startup.
var DefaultEnabled = []Kind{KindSelectedHaptics, KindProximityHaptics}

// Catalog returns every known feature variant.
func Catalog() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the descriptor for kind.
func Lookup(kind Kind) (Descriptor, bool) {
	for _, d := range catalog {
		if d.Kind == kind {
			return d, true
		}
	}
	return Descriptor{}, false
}
