package topology

import (
	"fmt"
	"slices"
	"sync"

	"github.com/trufnetwork/netplan/lib/addressplan"
)

const (
	ProtocolTCP = "tcp"
	// SSHPort is the only port the access gate ever opens.
	SSHPort uint16 = 22
	MinPort uint16 = 0
	MaxPort uint16 = 65535
	anyIpv4        = "0.0.0.0/0"
	anyIpv6        = "::/0"
)

type Direction int

const (
	Ingress Direction = iota
	Egress
)

func (d Direction) String() string {
	if d == Egress {
		return "egress"
	}
	return "ingress"
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// PeerKind says what a rule's peer is. Peers stay symbolic until rendered, because
// the VPC IPv6 block and group IDs are usually only known at deploy time.
type PeerKind int

const (
	PeerAnyIpv4 PeerKind = iota
	PeerAnyIpv6
	PeerVpcIpv4
	PeerVpcIpv6
	PeerGroup
)

type Peer struct {
	Kind PeerKind
	// Group names the referenced security group when Kind is PeerGroup.
	Group string
}

func AnyIpv4() Peer { return Peer{Kind: PeerAnyIpv4} }
func AnyIpv6() Peer { return Peer{Kind: PeerAnyIpv6} }
func VpcIpv4() Peer { return Peer{Kind: PeerVpcIpv4} }
func VpcIpv6() Peer { return Peer{Kind: PeerVpcIpv6} }

// GroupPeer references another security group by identity instead of by CIDR.
func GroupPeer(name string) Peer { return Peer{Kind: PeerGroup, Group: name} }

func (p Peer) IsIpv6() bool { return p.Kind == PeerAnyIpv6 || p.Kind == PeerVpcIpv6 }

// Resolve renders the peer against space. The VPC IPv6 block renders as
// "<vpc-ipv6>" while it is unknown, a group as "sg:<name>".
func (p Peer) Resolve(space addressplan.AddressSpace) string {
	switch p.Kind {
	case PeerAnyIpv4:
		return anyIpv4
	case PeerAnyIpv6:
		return anyIpv6
	case PeerVpcIpv4:
		return space.Ipv4Base().String()
	case PeerVpcIpv6:
		if base, ok := space.Ipv6Base(); ok {
			return base.String()
		}
		return "<vpc-ipv6>"
	case PeerGroup:
		return "sg:" + p.Group
	default:
		return "unknown"
	}
}

// Rule is a single TCP port-range rule of a security group.
type Rule struct {
	Name      string
	Direction Direction
	Protocol  string
	FromPort  uint16
	ToPort    uint16
	Peer      Peer
}

// SecurityGroupSpec describes a "standard" group: explicit ingress ports on both
// protocols and unrestricted egress.
type SecurityGroupSpec struct {
	Name                string
	Description         string
	AllowedIngressPorts []uint16
	// PublicIngress opens the ports to the whole internet instead of only the VPC.
	PublicIngress bool
}

// SecurityGroup is the handle of a group built against a Layout.
type SecurityGroup struct {
	name        string
	description string
	owner       *Layout

	mu      sync.Mutex
	ingress []Rule
	egress  []Rule
}

// BuildSecurityGroup turns spec into rules: per port one IPv4 and one IPv6 TCP
// ingress rule, plus exactly one IPv4 and one IPv6 egress rule over all ports.
// An empty port set yields a group that accepts no inbound traffic.
func (l *Layout) BuildSecurityGroup(spec SecurityGroupSpec) (*SecurityGroup, error) {
	if spec.Name == "" {
		return nil, &addressplan.ConfigurationError{Field: "security group name", Value: spec.Name, Reason: "must not be empty"}
	}

	ports := slices.Clone(spec.AllowedIngressPorts)
	slices.Sort(ports)
	ports = slices.Compact(ports)

	source4, source6 := VpcIpv4(), VpcIpv6()
	if spec.PublicIngress {
		source4, source6 = AnyIpv4(), AnyIpv6()
	}

	g := &SecurityGroup{
		name:        spec.Name,
		description: spec.Description,
		owner:       l,
	}
	if g.description == "" {
		g.description = spec.Name
	}
	for _, port := range ports {
		g.ingress = append(g.ingress,
			Rule{Name: fmt.Sprintf("%s-ipv4-%d", spec.Name, port), Direction: Ingress, Protocol: ProtocolTCP, FromPort: port, ToPort: port, Peer: source4},
			Rule{Name: fmt.Sprintf("%s-ipv6-%d", spec.Name, port), Direction: Ingress, Protocol: ProtocolTCP, FromPort: port, ToPort: port, Peer: source6},
		)
	}
	g.egress = []Rule{
		{Name: spec.Name + "-ipv4", Direction: Egress, Protocol: ProtocolTCP, FromPort: MinPort, ToPort: MaxPort, Peer: AnyIpv4()},
		{Name: spec.Name + "-ipv6", Direction: Egress, Protocol: ProtocolTCP, FromPort: MinPort, ToPort: MaxPort, Peer: AnyIpv6()},
	}

	if err := l.register(g); err != nil {
		return nil, err
	}
	return g, nil
}

func (l *Layout) register(g *SecurityGroup) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.groups[g.name]; dup {
		return &addressplan.ConfigurationError{Field: "security group name", Value: g.name, Reason: "already used in this topology"}
	}
	l.groups[g.name] = g
	return nil
}

func (g *SecurityGroup) Name() string { return g.name }

func (g *SecurityGroup) Description() string { return g.description }

// Owner is the layout the group was built against.
func (g *SecurityGroup) Owner() *Layout { return g.owner }

func (g *SecurityGroup) IngressRules() []Rule {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.ingress)
}

func (g *SecurityGroup) EgressRules() []Rule {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.egress)
}

func (g *SecurityGroup) addIngress(r Rule) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ingress = append(g.ingress, r)
}
