package addressplan

import (
	"fmt"
	"net/netip"
)

// Multiplier is 2^(24-maskBits): 24 -> 1, 23 -> 2, 22 -> 4, 21 -> 8, 20 -> 16.
// The caller validates maskBits.
func Multiplier(maskBits int) int {
	return 1 << (24 - maskBits)
}

// DeriveIpv4 returns 10.0.<index*multiplier>.0/<maskBits> for the (class, zone) slot.
func DeriveIpv4(class SubnetClass, zone Zone, maskBits int) (netip.Prefix, error) {
	if err := ValidateMaskBits(maskBits); err != nil {
		return netip.Prefix{}, err
	}
	if err := validateSlot(class, zone); err != nil {
		return netip.Prefix{}, err
	}
	third := SubnetIndex(class, zone) * Multiplier(maskBits)
	base := Ipv4Base.Addr().As4()
	addr := netip.AddrFrom4([4]byte{base[0], base[1], byte(third), 0})
	return netip.PrefixFrom(addr, maskBits), nil
}

func validateSlot(class SubnetClass, zone Zone) error {
	if !class.Valid() {
		return &ConfigurationError{Field: "class", Value: int(class), Reason: "unknown subnet class"}
	}
	if !zone.Valid() {
		return &ConfigurationError{Field: "zone", Value: int(zone), Reason: "unknown zone"}
	}
	return nil
}

// DeriveIpv6 replaces the zero nibble pair following the VPC /56 with the two hex
// digits of the subnet index and returns the resulting /64, so that
// 2600:1f18:6a2b:ce00::/56 becomes 2600:1f18:6a2b:ce03::/64 for index 3.
// The /56 prefix bits are kept as is.
func DeriveIpv6(vpcBlock netip.Prefix, class SubnetClass, zone Zone) (netip.Prefix, error) {
	if err := ValidateIpv6Base(vpcBlock); err != nil {
		return netip.Prefix{}, err
	}
	if err := validateSlot(class, zone); err != nil {
		return netip.Prefix{}, err
	}
	raw := vpcBlock.Addr().As16()
	raw[ipv6IndexByte] = byte(SubnetIndex(class, zone))
	return netip.PrefixFrom(netip.AddrFrom16(raw), Ipv6SubnetPrefixLen), nil
}

// Ipv4Cidr derives the IPv4 block of a slot in this space.
func (s AddressSpace) Ipv4Cidr(class SubnetClass, zone Zone) (netip.Prefix, error) {
	if !s.Valid() {
		return netip.Prefix{}, &PreconditionError{Op: "derive ipv4", Reason: "address space was not validated"}
	}
	return DeriveIpv4(class, zone, s.ipv4MaskBits)
}

// Ipv6Cidr derives the IPv6 block of a slot. It fails when the /56 is not known yet.
func (s AddressSpace) Ipv6Cidr(class SubnetClass, zone Zone) (netip.Prefix, error) {
	base, ok := s.Ipv6Base()
	if !ok {
		return netip.Prefix{}, &PreconditionError{
			Op:     "derive ipv6",
			Reason: fmt.Sprintf("no ipv6 base known for %s subnet in zone %s", class, zone),
		}
	}
	return DeriveIpv6(base, class, zone)
}
