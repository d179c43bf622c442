package addressplan

import (
	"fmt"
	"net/netip"
)

const (
	MinIpv4MaskBits     = 20
	MaxIpv4MaskBits     = 24
	DefaultIpv4MaskBits = 22

	// Ipv6VpcPrefixLen is the size of the block AWS assigns to a VPC.
	Ipv6VpcPrefixLen = 56
	// Ipv6SubnetPrefixLen is the size of every derived subnet block.
	Ipv6SubnetPrefixLen = 64

	// ipv6IndexByte is the byte right after the /56, where the subnet index goes.
	ipv6IndexByte = Ipv6VpcPrefixLen / 8
)

// Ipv4Base is the root IPv4 allocation of every topology.
var Ipv4Base = netip.MustParsePrefix("10.0.0.0/16")

// AddressSpace is the validated root allocation a topology is planned over.
type AddressSpace struct {
	ipv4MaskBits int
	ipv6Base     netip.Prefix
}

// NewAddressSpace validates the mask size and the optional externally assigned /56.
// maskBits 0 selects DefaultIpv4MaskBits. A zero ipv6Base means the block is only
// known once AWS assigns it.
func NewAddressSpace(maskBits int, ipv6Base netip.Prefix) (AddressSpace, error) {
	if maskBits == 0 {
		maskBits = DefaultIpv4MaskBits
	}
	if err := ValidateMaskBits(maskBits); err != nil {
		return AddressSpace{}, err
	}
	if ipv6Base.IsValid() {
		if err := ValidateIpv6Base(ipv6Base); err != nil {
			return AddressSpace{}, err
		}
	}
	return AddressSpace{ipv4MaskBits: maskBits, ipv6Base: ipv6Base}, nil
}

// ParseIpv6Base parses a configured /56. An empty block yields the zero prefix,
// meaning AWS assigns the block at deploy time. The shape is checked by NewAddressSpace.
func ParseIpv6Base(block string) (netip.Prefix, error) {
	if block == "" {
		return netip.Prefix{}, nil
	}
	p, err := netip.ParsePrefix(block)
	if err != nil {
		return netip.Prefix{}, &ConfigurationError{Field: "ipv6Block", Value: block, Reason: err.Error()}
	}
	return p, nil
}

// ValidateMaskBits rejects sizes outside [MinIpv4MaskBits, MaxIpv4MaskBits]. Values are never clamped.
func ValidateMaskBits(maskBits int) error {
	if maskBits < MinIpv4MaskBits || maskBits > MaxIpv4MaskBits {
		return &ConfigurationError{
			Field:  "ipv4MaskBits",
			Value:  maskBits,
			Reason: fmt.Sprintf("must be within [%d,%d]", MinIpv4MaskBits, MaxIpv4MaskBits),
		}
	}
	return nil
}

// ValidateIpv6Base checks the /56 shape the IPv6 derivation relies on: an IPv6
// prefix of exactly 56 bits, written as "...00::/56", i.e. with no bits set past the prefix.
func ValidateIpv6Base(block netip.Prefix) error {
	op := "ipv6 base"
	switch {
	case !block.IsValid():
		return &PreconditionError{Op: op, Reason: "block is not a valid prefix"}
	case !block.Addr().Is6() || block.Addr().Is4In6():
		return &PreconditionError{Op: op, Reason: fmt.Sprintf("%s is not an IPv6 block", block)}
	case block.Bits() != Ipv6VpcPrefixLen:
		return &PreconditionError{Op: op, Reason: fmt.Sprintf("%s is not a /%d", block, Ipv6VpcPrefixLen)}
	}
	raw := block.Addr().As16()
	if raw[ipv6IndexByte] != 0 {
		return &PreconditionError{Op: op, Reason: fmt.Sprintf("%s does not end in a zero nibble pair", block)}
	}
	if block.Masked() != block {
		return &PreconditionError{Op: op, Reason: fmt.Sprintf("%s has bits set past the /%d", block, Ipv6VpcPrefixLen)}
	}
	return nil
}

// Valid reports whether the space came out of NewAddressSpace.
func (s AddressSpace) Valid() bool { return s.ipv4MaskBits != 0 }

func (s AddressSpace) Ipv4MaskBits() int { return s.ipv4MaskBits }

func (s AddressSpace) Ipv4Base() netip.Prefix { return Ipv4Base }

// Ipv6Base returns the VPC /56 and whether it is known at planning time.
func (s AddressSpace) Ipv6Base() (netip.Prefix, bool) {
	return s.ipv6Base, s.ipv6Base.IsValid()
}

// Multiplier returns how many /24s a single subnet spans.
func (s AddressSpace) Multiplier() int { return Multiplier(s.ipv4MaskBits) }
