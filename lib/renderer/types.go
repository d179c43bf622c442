package renderer

import (
	"strconv"

	"github.com/samber/lo"

	"github.com/trufnetwork/netplan/lib/addressplan"
	"github.com/trufnetwork/netplan/lib/topology"
)

// TemplateName represents a known template filename.
type TemplateName string

const (
	TplLayoutReport TemplateName = "layout_report.md.tmpl"
)

// LayoutReport is the printable form of a layout. Empty IPv6 fields mean the /56
// is assigned at deploy time.
type LayoutReport struct {
	Name           string      `json:"name" yaml:"name"`
	Ipv4Cidr       string      `json:"ipv4Cidr" yaml:"ipv4Cidr"`
	Ipv6Cidr       string      `json:"ipv6Cidr,omitempty" yaml:"ipv6Cidr,omitempty"`
	Ipv4MaskBits   int         `json:"ipv4MaskBits" yaml:"ipv4MaskBits"`
	Subnets        []SubnetRow `json:"subnets" yaml:"subnets"`
	SecurityGroups []GroupRow  `json:"securityGroups,omitempty" yaml:"securityGroups,omitempty"`
	AccessGate     *GateRow    `json:"accessGate,omitempty" yaml:"accessGate,omitempty"`
}

type SubnetRow struct {
	Name     string   `json:"name" yaml:"name"`
	Zone     string   `json:"zone" yaml:"zone"`
	Class    string   `json:"class" yaml:"class"`
	Index    int      `json:"index" yaml:"index"`
	Ipv4Cidr string   `json:"ipv4Cidr" yaml:"ipv4Cidr"`
	Ipv6Cidr string   `json:"ipv6Cidr,omitempty" yaml:"ipv6Cidr,omitempty"`
	Routes   []string `json:"routes" yaml:"routes"`
}

type GroupRow struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Ingress     []RuleRow `json:"ingress" yaml:"ingress"`
	Egress      []RuleRow `json:"egress" yaml:"egress"`
}

type RuleRow struct {
	Name     string `json:"name" yaml:"name"`
	Protocol string `json:"protocol" yaml:"protocol"`
	Ports    string `json:"ports" yaml:"ports"`
	Peer     string `json:"peer" yaml:"peer"`
}

type GateRow struct {
	Subnet string   `json:"subnet" yaml:"subnet"`
	Group  string   `json:"group" yaml:"group"`
	Grants []string `json:"grants" yaml:"grants"`
}

// NewLayoutReport describes layout and the given groups, in the order passed.
func NewLayoutReport(layout *topology.Layout, groups []*topology.SecurityGroup) LayoutReport {
	space := layout.Space()
	report := LayoutReport{
		Name:         layout.Name(),
		Ipv4Cidr:     space.Ipv4Base().String(),
		Ipv4MaskBits: space.Ipv4MaskBits(),
	}
	if base, known := space.Ipv6Base(); known {
		report.Ipv6Cidr = base.String()
	}

	for _, rt := range layout.RouteTables() {
		d := rt.Subnet
		row := SubnetRow{
			Name:     d.Name,
			Zone:     d.Zone.Letter(),
			Class:    d.Class.String(),
			Index:    d.Index,
			Ipv4Cidr: d.Ipv4Cidr.String(),
			Routes: lo.Map(rt.Policy.Routes, func(r topology.Route, _ int) string {
				return string(r.Destination) + " -> " + r.Target.String()
			}),
		}
		if d.HasIpv6Cidr() {
			row.Ipv6Cidr = d.Ipv6Cidr.String()
		}
		report.Subnets = append(report.Subnets, row)
	}

	ruleRows := func(rules []topology.Rule) []RuleRow {
		return lo.Map(rules, func(r topology.Rule, _ int) RuleRow {
			return RuleRow{Name: r.Name, Protocol: r.Protocol, Ports: ports(r), Peer: r.Peer.Resolve(space)}
		})
	}
	for _, g := range groups {
		report.SecurityGroups = append(report.SecurityGroups, GroupRow{
			Name:        g.Name(),
			Description: g.Description(),
			Ingress:     ruleRows(g.IngressRules()),
			Egress:      ruleRows(g.EgressRules()),
		})
	}

	if gate, ok := layout.AccessGate(); ok {
		report.AccessGate = &GateRow{
			Subnet: gate.Subnet().Name,
			Group:  gate.Group().Name(),
			Grants: lo.Map(gate.Grants(), func(g topology.Grant, _ int) string { return g.Group.Name() }),
		}
	}
	return report
}

// InZone keeps only the subnets of zone. Groups and the gate are zone independent.
func (r LayoutReport) InZone(zone addressplan.Zone) LayoutReport {
	r.Subnets = lo.Filter(r.Subnets, func(s SubnetRow, _ int) bool { return s.Zone == zone.Letter() })
	return r
}

func ports(r topology.Rule) string {
	if r.FromPort == r.ToPort {
		return strconv.Itoa(int(r.FromPort))
	}
	return strconv.Itoa(int(r.FromPort)) + "-" + strconv.Itoa(int(r.ToPort))
}
