package addressplan

import "fmt"

// Zone is one of the three availability-zone positions of a topology.
type Zone int

const (
	ZoneA Zone = iota
	ZoneB
	ZoneC
)

// ZoneCount is fixed; topologies always span exactly three zones.
const ZoneCount = 3

// Zones lists every zone in topology order.
var Zones = [ZoneCount]Zone{ZoneA, ZoneB, ZoneC}

var zoneLetters = map[Zone]string{
	ZoneA: "a",
	ZoneB: "b",
	ZoneC: "c",
}

// Index returns the zone position (0..2).
func (z Zone) Index() int { return int(z) }

// Letter returns the suffix appended to a region name to form the AZ name, e.g. "a".
func (z Zone) Letter() string {
	if l, ok := zoneLetters[z]; ok {
		return l
	}
	return fmt.Sprintf("zone(%d)", int(z))
}

func (z Zone) String() string { return z.Letter() }

func (z Zone) MarshalText() ([]byte, error) { return []byte(z.Letter()), nil }

// Valid reports whether z is one of the three known zones.
func (z Zone) Valid() bool {
	_, ok := zoneLetters[z]
	return ok
}

// ZoneFromLetter resolves "a", "b" or "c".
func ZoneFromLetter(letter string) (Zone, error) {
	for z, l := range zoneLetters {
		if l == letter {
			return z, nil
		}
	}
	return 0, &ConfigurationError{Field: "zone", Value: letter, Reason: "must be one of a, b, c"}
}
