package topology

import (
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/apparentlymart/go-cidr/cidr"
	"github.com/samber/lo"

	"github.com/trufnetwork/netplan/lib/addressplan"
)

const defaultName = "vpc"

// SubnetDescriptor is the planned shape of one subnet. The subnet ID only exists
// once the subnet is provisioned and is carried by the rendering layer.
type SubnetDescriptor struct {
	Name     string                  `json:"name" yaml:"name"`
	Zone     addressplan.Zone        `json:"zone" yaml:"zone"`
	Class    addressplan.SubnetClass `json:"class" yaml:"class"`
	Index    int                     `json:"index" yaml:"index"`
	Ipv4Cidr netip.Prefix            `json:"ipv4Cidr" yaml:"ipv4Cidr"`
	Ipv6Cidr netip.Prefix            `json:"ipv6Cidr,omitzero" yaml:"ipv6Cidr"`

	layout *Layout
}

// HasIpv6Cidr is false when the VPC /56 is only assigned at deploy time.
func (d SubnetDescriptor) HasIpv6Cidr() bool { return d.Ipv6Cidr.IsValid() }

// ZoneIndex is the zone position (0..2).
func (d SubnetDescriptor) ZoneIndex() int { return d.Zone.Index() }

// AvailabilityZone returns the AZ name inside region, e.g. "eu-central-1b".
func (d SubnetDescriptor) AvailabilityZone(region string) string {
	return region + d.Zone.Letter()
}

type options struct {
	name string
}

type Option func(*options)

// WithName sets the prefix every planned entity is named after.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Layout is a planned topology. Subnets and route tables never change after Plan;
// a different mask size means planning a new Layout.
type Layout struct {
	name        string
	space       addressplan.AddressSpace
	subnets     []SubnetDescriptor
	routeTables []RouteTable

	mu     sync.Mutex
	gate   *AccessGate
	groups map[string]*SecurityGroup
}

// Plan derives the six subnets (public a,b,c then private a,b,c) of space together
// with one route table per subnet. The space is validated before anything is derived.
func Plan(space addressplan.AddressSpace, opts ...Option) (*Layout, error) {
	o := options{name: defaultName}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		return nil, &addressplan.ConfigurationError{Field: "name", Value: o.name, Reason: "must not be empty"}
	}
	if err := addressplan.ValidateMaskBits(space.Ipv4MaskBits()); err != nil {
		return nil, err
	}

	l := &Layout{
		name:   o.name,
		space:  space,
		groups: map[string]*SecurityGroup{},
	}
	for _, class := range addressplan.Classes {
		for _, zone := range addressplan.Zones {
			d, err := l.describe(class, zone)
			if err != nil {
				return nil, fmt.Errorf("planning %s subnet in zone %s: %w", class, zone, err)
			}
			l.subnets = append(l.subnets, d)
			l.routeTables = append(l.routeTables, RouteTable{
				Name:   d.Name,
				Subnet: d,
				Policy: PolicyFor(class),
			})
		}
	}
	return l, nil
}

func (l *Layout) describe(class addressplan.SubnetClass, zone addressplan.Zone) (SubnetDescriptor, error) {
	d := SubnetDescriptor{
		Name:  fmt.Sprintf("%s-%s-%s", l.name, zone.Letter(), class),
		Zone:  zone,
		Class: class,
		Index: addressplan.SubnetIndex(class, zone),

		layout: l,
	}
	v4, err := l.space.Ipv4Cidr(class, zone)
	if err != nil {
		return SubnetDescriptor{}, err
	}
	d.Ipv4Cidr = v4
	if _, known := l.space.Ipv6Base(); known {
		v6, err := l.space.Ipv6Cidr(class, zone)
		if err != nil {
			return SubnetDescriptor{}, err
		}
		d.Ipv6Cidr = v6
	}
	return d, nil
}

func (l *Layout) Name() string { return l.name }

func (l *Layout) Space() addressplan.AddressSpace { return l.space }

// Subnets returns all six descriptors in layout order.
func (l *Layout) Subnets() []SubnetDescriptor {
	return append([]SubnetDescriptor(nil), l.subnets...)
}

func (l *Layout) Public() []SubnetDescriptor { return l.ofClass(addressplan.Public) }

func (l *Layout) Private() []SubnetDescriptor { return l.ofClass(addressplan.Private) }

func (l *Layout) ofClass(class addressplan.SubnetClass) []SubnetDescriptor {
	return lo.Filter(l.subnets, func(d SubnetDescriptor, _ int) bool { return d.Class == class })
}

// FirstPrivate is the private subnet of zone a, where the access gate lives.
func (l *Layout) FirstPrivate() SubnetDescriptor { return l.Private()[0] }

func (l *Layout) RouteTables() []RouteTable {
	return append([]RouteTable(nil), l.routeTables...)
}

// Contains reports whether d is one of this layout's subnets. Descriptors planned by
// another Layout never match, even when name and address space are the same.
func (l *Layout) Contains(d SubnetDescriptor) bool {
	return d.layout == l && lo.Contains(l.subnets, d)
}

// Replaces reports whether deploying l over other changes any subnet block, which
// means every subnet has to be replaced rather than updated.
func (l *Layout) Replaces(other *Layout) bool {
	if other == nil || len(other.subnets) != len(l.subnets) {
		return true
	}
	for i, d := range l.subnets {
		o := other.subnets[i]
		if d.Ipv4Cidr != o.Ipv4Cidr || d.Ipv6Cidr != o.Ipv6Cidr {
			return true
		}
	}
	return false
}

// Verify checks that the subnets are pairwise disjoint and contained in the VPC blocks.
func (l *Layout) Verify() error {
	v4 := lo.Map(l.subnets, func(d SubnetDescriptor, _ int) netip.Prefix { return d.Ipv4Cidr })
	if err := verifyNoOverlap(l.space.Ipv4Base(), v4); err != nil {
		return fmt.Errorf("ipv4 layout of %s: %w", l.name, err)
	}
	base, known := l.space.Ipv6Base()
	if !known {
		return nil
	}
	v6 := lo.Map(l.subnets, func(d SubnetDescriptor, _ int) netip.Prefix { return d.Ipv6Cidr })
	if err := verifyNoOverlap(base, v6); err != nil {
		return fmt.Errorf("ipv6 layout of %s: %w", l.name, err)
	}
	return nil
}

func verifyNoOverlap(parent netip.Prefix, blocks []netip.Prefix) error {
	_, parentNet, err := net.ParseCIDR(parent.String())
	if err != nil {
		return err
	}
	nets := make([]*net.IPNet, 0, len(blocks))
	for _, b := range blocks {
		_, n, err := net.ParseCIDR(b.String())
		if err != nil {
			return err
		}
		nets = append(nets, n)
	}
	return cidr.VerifyNoOverlap(nets, parentNet)
}
