// Package planfile reads the TOML description of a network plan used by the
// netplan CLI.
package planfile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"

	"github.com/trufnetwork/netplan/config"
	"github.com/trufnetwork/netplan/lib/topology"
)

// File is a network plan:
//
//	name = "main"
//	ipv4_mask_bits = 22
//	ipv6_block = "2600:1f18:6a2b:ce00::/56"
//
//	[[security_groups]]
//	name = "web"
//	ports = [80, 443]
//	public = true
//	eic = true
type File struct {
	Name           string  `toml:"name" validate:"omitempty,max=64"`
	Ipv4MaskBits   int     `toml:"ipv4_mask_bits" validate:"omitempty,min=20,max=24"`
	Ipv6Block      string  `toml:"ipv6_block" validate:"omitempty,cidrv6"`
	SecurityGroups []Group `toml:"security_groups" validate:"dive"`
}

type Group struct {
	Name        string   `toml:"name" validate:"required"`
	Description string   `toml:"description"`
	Ports       []uint16 `toml:"ports" validate:"dive,min=1"`
	Public      bool     `toml:"public"`
	// Eic grants SSH from the Instance Connect endpoint.
	Eic bool `toml:"eic"`
}

// Load reads and validates the plan at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("plan file %s does not exist", path)
		}
		return nil, fmt.Errorf("reading plan file %s: %w", path, err)
	}
	f, err := Decode(string(data))
	if err != nil {
		return nil, fmt.Errorf("plan file %s: %w", path, err)
	}
	return f, nil
}

// Decode parses a plan. Unknown keys are rejected so typos do not go unnoticed.
func Decode(data string) (*File, error) {
	var f File
	meta, err := toml.Decode(data, &f)
	if err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := lo.Map(undecoded, func(k toml.Key, _ int) string { return k.String() })
		return nil, fmt.Errorf("unknown keys in plan: %s", strings.Join(keys, ", "))
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) Validate() error {
	return config.ValidateStruct(f)
}

// Plan builds the layout, anchors the access gate and builds every group with
// its grant. The returned groups start with the gate's group, then follow file order.
func (f *File) Plan() (*topology.Layout, []*topology.SecurityGroup, error) {
	settings := config.NetworkSettings{
		Name:         lo.Ternary(f.Name == "", "vpc", f.Name),
		Ipv4MaskBits: f.Ipv4MaskBits,
		Ipv6Block:    f.Ipv6Block,
	}
	space, err := settings.AddressSpace()
	if err != nil {
		return nil, nil, err
	}
	layout, err := topology.Plan(space, topology.WithName(settings.Name))
	if err != nil {
		return nil, nil, err
	}
	gate, err := layout.Anchor(layout.FirstPrivate())
	if err != nil {
		return nil, nil, err
	}

	groups := []*topology.SecurityGroup{gate.Group()}
	for _, spec := range f.SecurityGroups {
		g, err := layout.BuildSecurityGroup(topology.SecurityGroupSpec{
			Name:                spec.Name,
			Description:         spec.Description,
			AllowedIngressPorts: spec.Ports,
			PublicIngress:       spec.Public,
		})
		if err != nil {
			return nil, nil, err
		}
		if spec.Eic {
			if _, err := gate.GrantIngressFor(g); err != nil {
				return nil, nil, err
			}
		}
		groups = append(groups, g)
	}
	gate.Finalize()
	return layout, groups, nil
}
