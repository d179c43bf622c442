package topology

import "github.com/trufnetwork/netplan/lib/addressplan"

// Destination is the CIDR a route matches.
type Destination string

const (
	DefaultIpv4Route Destination = "0.0.0.0/0"
	DefaultIpv6Route Destination = "::/0"
)

// Target is the shared gateway a route sends traffic to.
type Target int

const (
	InternetGateway Target = iota
	EgressOnlyGateway
)

func (t Target) String() string {
	switch t {
	case InternetGateway:
		return "internet-gateway"
	case EgressOnlyGateway:
		return "egress-only-gateway"
	default:
		return "unknown"
	}
}

func (t Target) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

type Route struct {
	Destination Destination `json:"destination" yaml:"destination"`
	Target      Target      `json:"target" yaml:"target"`
}

// IsIpv6 reports whether the route matches IPv6 traffic.
func (r Route) IsIpv6() bool { return r.Destination == DefaultIpv6Route }

// RoutingPolicy is the set of default routes installed for a subnet class.
type RoutingPolicy struct {
	Class  addressplan.SubnetClass `json:"class" yaml:"class"`
	Routes []Route                 `json:"routes" yaml:"routes"`
}

// PolicyFor returns the egress policy of a class. Public subnets reach the internet
// over both protocols through the internet gateway. Private subnets only get an IPv6
// default route through the egress-only gateway; there is no NAT, so no IPv4 path.
func PolicyFor(class addressplan.SubnetClass) RoutingPolicy {
	if class == addressplan.Private {
		return RoutingPolicy{
			Class: class,
			Routes: []Route{
				{Destination: DefaultIpv6Route, Target: EgressOnlyGateway},
			},
		}
	}
	return RoutingPolicy{
		Class: class,
		Routes: []Route{
			{Destination: DefaultIpv4Route, Target: InternetGateway},
			{Destination: DefaultIpv6Route, Target: InternetGateway},
		},
	}
}

func (p RoutingPolicy) HasIpv4Default() bool { return p.has(DefaultIpv4Route) }

func (p RoutingPolicy) HasIpv6Default() bool { return p.has(DefaultIpv6Route) }

func (p RoutingPolicy) has(d Destination) bool {
	for _, r := range p.Routes {
		if r.Destination == d {
			return true
		}
	}
	return false
}

// RouteTable is the per-subnet table; each one is associated with exactly one subnet.
type RouteTable struct {
	Name   string           `json:"name" yaml:"name"`
	Subnet SubnetDescriptor `json:"-" yaml:"-"`
	Policy RoutingPolicy    `json:"policy" yaml:"policy"`
}
