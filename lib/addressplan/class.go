package addressplan

// SubnetClass decides both the address offset of a subnet and its egress routing.
type SubnetClass int

const (
	Public SubnetClass = iota
	Private
)

// Classes lists the subnet classes in layout order.
var Classes = [2]SubnetClass{Public, Private}

// Valid reports whether c is Public or Private.
func (c SubnetClass) Valid() bool { return c == Public || c == Private }

// Offset is the first subnet index of the class. Public owns 0..2, Private 3..5.
func (c SubnetClass) Offset() int {
	if c == Private {
		return ZoneCount
	}
	return 0
}

func (c SubnetClass) String() string {
	switch c {
	case Public:
		return "public"
	case Private:
		return "private"
	default:
		return "unknown"
	}
}

// MarshalText lets descriptors serialize the class by name.
func (c SubnetClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// SubnetIndex maps (class, zone) to its slot in the disjoint index range 0..5.
func SubnetIndex(class SubnetClass, zone Zone) int {
	return class.Offset() + zone.Index()
}

// MaxSubnetIndex is the highest index any (class, zone) pair can take.
const MaxSubnetIndex = 2*ZoneCount - 1
