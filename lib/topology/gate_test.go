package topology_test

import (
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trufnetwork/netplan/lib/addressplan"
	"github.com/trufnetwork/netplan/lib/topology"
)

func anchoredLayout(t *testing.T) (*topology.Layout, *topology.AccessGate) {
	t.Helper()
	l := mustPlan(t, 22, netip.Prefix{})
	gate, err := l.Anchor(l.FirstPrivate())
	require.NoError(t, err)
	return l, gate
}

func TestAnchor_GateGroup(t *testing.T) {
	l, gate := anchoredLayout(t)

	assert.Equal(t, l.FirstPrivate(), gate.Subnet())
	assert.Equal(t, "vpc-eic", gate.Group().Name())
	assert.Empty(t, gate.Group().IngressRules())

	egress := gate.Group().EgressRules()
	require.Len(t, egress, 1, "the gate only talks to the vpc ipv4 block")
	assert.Equal(t, topology.VpcIpv4(), egress[0].Peer)

	again, err := l.Anchor(l.FirstPrivate())
	require.NoError(t, err)
	assert.Same(t, gate, again)

	got, ok := l.AccessGate()
	assert.True(t, ok)
	assert.Same(t, gate, got)
}

func TestAnchor_Preconditions(t *testing.T) {
	l := mustPlan(t, 22, netip.Prefix{})
	other := mustPlan(t, 22, netip.Prefix{}, topology.WithName("other"))

	_, err := l.Anchor(l.Public()[0])
	assert.ErrorIs(t, err, addressplan.ErrPrecondition)

	_, err = l.Anchor(l.Private()[1])
	assert.ErrorIs(t, err, addressplan.ErrPrecondition)

	_, err = l.Anchor(other.FirstPrivate())
	assert.ErrorIs(t, err, addressplan.ErrPrecondition)

	_, ok := l.AccessGate()
	assert.False(t, ok)
}

func TestAnchor_TwinLayoutSubnetIsForeign(t *testing.T) {
	l := mustPlan(t, 22, netip.Prefix{})
	twin := mustPlan(t, 22, netip.Prefix{})
	require.Equal(t, l.FirstPrivate().Name, twin.FirstPrivate().Name)

	assert.False(t, l.Contains(twin.FirstPrivate()))
	_, err := l.Anchor(twin.FirstPrivate())
	assert.ErrorIs(t, err, addressplan.ErrPrecondition)
	_, ok := l.AccessGate()
	assert.False(t, ok)

	_, err = l.Anchor(l.FirstPrivate())
	assert.NoError(t, err)
}

func TestGrantIngressFor_FanOut(t *testing.T) {
	l, gate := anchoredLayout(t)
	app, err := l.BuildSecurityGroup(topology.SecurityGroupSpec{Name: "app", AllowedIngressPorts: []uint16{8080}})
	require.NoError(t, err)
	db, err := l.BuildSecurityGroup(topology.SecurityGroupSpec{Name: "db"})
	require.NoError(t, err)

	r1, err := gate.GrantIngressFor(app)
	require.NoError(t, err)
	r2, err := gate.GrantIngressFor(db)
	require.NoError(t, err)

	for _, r := range []topology.Rule{r1, r2} {
		assert.Equal(t, topology.SSHPort, r.FromPort)
		assert.Equal(t, topology.SSHPort, r.ToPort)
		assert.Equal(t, topology.GroupPeer(gate.Group().Name()), r.Peer)
	}
	assert.NotEqual(t, r1.Name, r2.Name)

	appIngress := app.IngressRules()
	require.Len(t, appIngress, 3)
	assert.Equal(t, r1, appIngress[2])

	dbIngress := db.IngressRules()
	require.Len(t, dbIngress, 1, "granting app must not touch db")
	assert.Equal(t, r2, dbIngress[0])

	assert.Len(t, gate.Grants(), 2)
}

func TestGrantIngressFor_Idempotent(t *testing.T) {
	l, gate := anchoredLayout(t)
	g, err := l.BuildSecurityGroup(topology.SecurityGroupSpec{Name: "jump"})
	require.NoError(t, err)

	first, err := gate.GrantIngressFor(g)
	require.NoError(t, err)
	second, err := l.GrantIngressFor(g)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, g.IngressRules(), 1)
	assert.Len(t, gate.Grants(), 1)
}

func TestGrantIngressFor_Preconditions(t *testing.T) {
	l := mustPlan(t, 22, netip.Prefix{})
	g, err := l.BuildSecurityGroup(topology.SecurityGroupSpec{Name: "app"})
	require.NoError(t, err)

	_, err = l.GrantIngressFor(g)
	assert.ErrorIs(t, err, addressplan.ErrPrecondition, "not anchored yet")

	gate, err := l.Anchor(l.FirstPrivate())
	require.NoError(t, err)

	other := mustPlan(t, 22, netip.Prefix{}, topology.WithName("other"))
	foreign, err := other.BuildSecurityGroup(topology.SecurityGroupSpec{Name: "app"})
	require.NoError(t, err)

	_, err = gate.GrantIngressFor(foreign)
	assert.ErrorIs(t, err, addressplan.ErrPrecondition)
	assert.Empty(t, foreign.IngressRules(), "a failed grant leaves the group untouched")

	_, err = gate.GrantIngressFor(nil)
	assert.ErrorIs(t, err, addressplan.ErrPrecondition)

	_, err = gate.GrantIngressFor(gate.Group())
	assert.ErrorIs(t, err, addressplan.ErrPrecondition)

	assert.Empty(t, gate.Grants())
}

func TestFinalize(t *testing.T) {
	l, gate := anchoredLayout(t)
	a, err := l.BuildSecurityGroup(topology.SecurityGroupSpec{Name: "a"})
	require.NoError(t, err)
	b, err := l.BuildSecurityGroup(topology.SecurityGroupSpec{Name: "b"})
	require.NoError(t, err)

	_, err = gate.GrantIngressFor(a)
	require.NoError(t, err)

	final := gate.Finalize()
	require.Len(t, final, 1)
	assert.Same(t, a, final[0].Group)

	_, err = gate.GrantIngressFor(a)
	assert.NoError(t, err, "repeating a grant after finalize is a no-op")

	_, err = gate.GrantIngressFor(b)
	assert.ErrorIs(t, err, addressplan.ErrPrecondition)
	assert.Empty(t, b.IngressRules())
}

func TestGrantIngressFor_Concurrent(t *testing.T) {
	l, gate := anchoredLayout(t)
	groups := make([]*topology.SecurityGroup, 16)
	for i := range groups {
		g, err := l.BuildSecurityGroup(topology.SecurityGroupSpec{Name: "g" + string(rune('a'+i))})
		require.NoError(t, err)
		groups[i] = g
	}

	var wg sync.WaitGroup
	for _, g := range groups {
		for range 2 {
			wg.Add(1)
			go func(g *topology.SecurityGroup) {
				defer wg.Done()
				_, err := gate.GrantIngressFor(g)
				assert.NoError(t, err)
			}(g)
		}
	}
	wg.Wait()

	assert.Len(t, gate.Grants(), len(groups))
	for _, g := range groups {
		assert.Len(t, g.IngressRules(), 1)
	}
}
