package topology

import (
	"sync"

	"github.com/trufnetwork/netplan/lib/addressplan"
)

// AccessGate is the EC2 Instance Connect endpoint of a layout. It reaches other
// groups only through explicit grants; nothing in the topology opens SSH publicly.
type AccessGate struct {
	layout *Layout
	subnet SubnetDescriptor
	group  *SecurityGroup

	mu        sync.Mutex
	grants    []Grant
	granted   map[*SecurityGroup]Rule
	finalized bool
}

// Grant records that Group accepts port 22 from the gate.
type Grant struct {
	Group *SecurityGroup
	Rule  Rule
}

// Anchor places the access gate in subnet, which must be the layout's first private
// subnet. The gate gets its own group whose only rule is egress to the VPC IPv4 block.
// Anchoring again returns the existing gate.
func (l *Layout) Anchor(subnet SubnetDescriptor) (*AccessGate, error) {
	if !l.Contains(subnet) {
		return nil, &addressplan.PreconditionError{Op: "anchor", Reason: "subnet " + subnet.Name + " does not belong to topology " + l.name}
	}
	if subnet != l.FirstPrivate() {
		return nil, &addressplan.PreconditionError{Op: "anchor", Reason: "access gate must sit in the first private subnet, got " + subnet.Name}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gate != nil {
		return l.gate, nil
	}

	name := l.name + "-eic"
	if _, dup := l.groups[name]; dup {
		return nil, &addressplan.ConfigurationError{Field: "security group name", Value: name, Reason: "reserved for the access gate"}
	}
	group := &SecurityGroup{
		name:        name,
		description: "EC2 Instance Connect endpoint of " + l.name,
		owner:       l,
		egress: []Rule{
			{Name: name + "-ipv4", Direction: Egress, Protocol: ProtocolTCP, FromPort: MinPort, ToPort: MaxPort, Peer: VpcIpv4()},
		},
	}
	l.groups[name] = group
	l.gate = &AccessGate{
		layout:  l,
		subnet:  subnet,
		group:   group,
		granted: map[*SecurityGroup]Rule{},
	}
	return l.gate, nil
}

// AccessGate returns the anchored gate, if any.
func (l *Layout) AccessGate() (*AccessGate, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gate, l.gate != nil
}

// GrantIngressFor grants group port 22 from the anchored gate.
func (l *Layout) GrantIngressFor(group *SecurityGroup) (Rule, error) {
	gate, _ := l.AccessGate()
	return gate.GrantIngressFor(group)
}

func (g *AccessGate) Subnet() SubnetDescriptor { return g.subnet }

// Group is the gate's own security group; grants reference it as their source.
func (g *AccessGate) Group() *SecurityGroup { return g.group }

// GrantIngressFor adds one TCP 22 ingress rule to group with the gate's group as
// source. Granting a group twice returns the rule of the first grant. Failed calls
// change nothing.
func (g *AccessGate) GrantIngressFor(group *SecurityGroup) (Rule, error) {
	const op = "grant ingress"
	if g == nil {
		return Rule{}, &addressplan.PreconditionError{Op: op, Reason: "access gate has not been anchored"}
	}
	if group == nil {
		return Rule{}, &addressplan.PreconditionError{Op: op, Reason: "no security group given"}
	}
	if group.owner != g.layout {
		return Rule{}, &addressplan.PreconditionError{Op: op, Reason: "security group " + group.name + " belongs to another topology"}
	}
	if group == g.group {
		return Rule{}, &addressplan.PreconditionError{Op: op, Reason: "access gate cannot grant itself"}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.granted[group]; ok {
		return r, nil
	}
	if g.finalized {
		return Rule{}, &addressplan.PreconditionError{Op: op, Reason: "access gate is finalized"}
	}

	r := Rule{
		Name:      group.name + "-eic",
		Direction: Ingress,
		Protocol:  ProtocolTCP,
		FromPort:  SSHPort,
		ToPort:    SSHPort,
		Peer:      GroupPeer(g.group.name),
	}
	group.addIngress(r)
	g.granted[group] = r
	g.grants = append(g.grants, Grant{Group: group, Rule: r})
	return r, nil
}

// Grants returns the grants recorded so far, in call order.
func (g *AccessGate) Grants() []Grant {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Grant(nil), g.grants...)
}

// Finalize closes the gate for new grants and returns the final grant list.
// Repeating an existing grant stays allowed.
func (g *AccessGate) Finalize() []Grant {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.finalized = true
	return append([]Grant(nil), g.grants...)
}
