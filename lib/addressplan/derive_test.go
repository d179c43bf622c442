package addressplan_test

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"testing"

	"github.com/apparentlymart/go-cidr/cidr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trufnetwork/netplan/lib/addressplan"
)

var testIpv6Base = netip.MustParsePrefix("2600:1f18:6a2b:ce00::/56")

func TestSubnetIndex_DisjointRanges(t *testing.T) {
	seen := map[int]bool{}
	for _, class := range addressplan.Classes {
		for _, zone := range addressplan.Zones {
			idx := addressplan.SubnetIndex(class, zone)
			assert.False(t, seen[idx], "index %d assigned twice", idx)
			seen[idx] = true
		}
	}
	assert.Len(t, seen, 6)

	assert.Equal(t, 0, addressplan.SubnetIndex(addressplan.Public, addressplan.ZoneA))
	assert.Equal(t, 2, addressplan.SubnetIndex(addressplan.Public, addressplan.ZoneC))
	assert.Equal(t, 3, addressplan.SubnetIndex(addressplan.Private, addressplan.ZoneA))
	assert.Equal(t, addressplan.MaxSubnetIndex, addressplan.SubnetIndex(addressplan.Private, addressplan.ZoneC))
}

func TestMultiplier(t *testing.T) {
	want := map[int]int{24: 1, 23: 2, 22: 4, 21: 8, 20: 16}
	for bits, m := range want {
		assert.Equal(t, m, addressplan.Multiplier(bits), "mask bits %d", bits)
	}
}

func TestDeriveIpv4_Example(t *testing.T) {
	cases := []struct {
		class addressplan.SubnetClass
		zone  addressplan.Zone
		want  string
	}{
		{addressplan.Public, addressplan.ZoneA, "10.0.0.0/22"},
		{addressplan.Public, addressplan.ZoneB, "10.0.4.0/22"},
		{addressplan.Public, addressplan.ZoneC, "10.0.8.0/22"},
		{addressplan.Private, addressplan.ZoneA, "10.0.12.0/22"},
		{addressplan.Private, addressplan.ZoneB, "10.0.16.0/22"},
		{addressplan.Private, addressplan.ZoneC, "10.0.20.0/22"},
	}
	for _, c := range cases {
		got, err := addressplan.DeriveIpv4(c.class, c.zone, 22)
		require.NoError(t, err)
		assert.Equal(t, c.want, got.String(), "%s/%s", c.class, c.zone)
	}
}

func TestDeriveIpv4_NetworkAddressForEveryMask(t *testing.T) {
	for bits := addressplan.MinIpv4MaskBits; bits <= addressplan.MaxIpv4MaskBits; bits++ {
		m := addressplan.Multiplier(bits)
		for _, class := range addressplan.Classes {
			for _, zone := range addressplan.Zones {
				got, err := addressplan.DeriveIpv4(class, zone, bits)
				require.NoError(t, err)

				i := addressplan.SubnetIndex(class, zone)
				assert.Equal(t, fmt.Sprintf("10.0.%d.0/%d", i*m, bits), got.String())
				assert.Equal(t, got, got.Masked(), "derived block must be a network address")
				assert.True(t, addressplan.Ipv4Base.Contains(got.Addr()))
			}
		}
	}
}

func TestDeriveIpv4_PairwiseDisjoint(t *testing.T) {
	for bits := addressplan.MinIpv4MaskBits; bits <= addressplan.MaxIpv4MaskBits; bits++ {
		var blocks []netip.Prefix
		for _, class := range addressplan.Classes {
			for _, zone := range addressplan.Zones {
				p, err := addressplan.DeriveIpv4(class, zone, bits)
				require.NoError(t, err)
				blocks = append(blocks, p)
			}
		}
		for i := range blocks {
			for j := i + 1; j < len(blocks); j++ {
				assert.False(t, blocks[i].Overlaps(blocks[j]), "mask %d: %s overlaps %s", bits, blocks[i], blocks[j])
			}
		}
	}
}

func TestDeriveIpv4_RejectsOutOfRangeMask(t *testing.T) {
	for _, bits := range []int{0, 19, 25, 32} {
		_, err := addressplan.DeriveIpv4(addressplan.Public, addressplan.ZoneA, bits)
		require.Error(t, err, "mask bits %d", bits)
		assert.ErrorIs(t, err, addressplan.ErrConfiguration)

		var cfgErr *addressplan.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "ipv4MaskBits", cfgErr.Field)
	}
}

func TestDerive_RejectsUnknownClass(t *testing.T) {
	for _, class := range []addressplan.SubnetClass{-1, 2, 7} {
		assert.False(t, class.Valid())

		_, err := addressplan.DeriveIpv4(class, addressplan.ZoneA, 22)
		require.Error(t, err, "class %d", class)
		var cfgErr *addressplan.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "class", cfgErr.Field)

		_, err = addressplan.DeriveIpv6(testIpv6Base, class, addressplan.ZoneA)
		assert.ErrorIs(t, err, addressplan.ErrConfiguration, "class %d", class)
	}
}

func TestDeriveIpv6_SubstitutesIndexByte(t *testing.T) {
	got, err := addressplan.DeriveIpv6(testIpv6Base, addressplan.Public, addressplan.ZoneA)
	require.NoError(t, err)
	assert.Equal(t, "2600:1f18:6a2b:ce00::/64", got.String())

	got, err = addressplan.DeriveIpv6(testIpv6Base, addressplan.Private, addressplan.ZoneB)
	require.NoError(t, err)
	assert.Equal(t, "2600:1f18:6a2b:ce04::/64", got.String())

	got, err = addressplan.DeriveIpv6(testIpv6Base, addressplan.Private, addressplan.ZoneC)
	require.NoError(t, err)
	assert.Equal(t, "2600:1f18:6a2b:ce05::/64", got.String())
}

func TestDeriveIpv6_OnlyIndexByteDiffers(t *testing.T) {
	base := testIpv6Base.Addr().As16()
	for _, class := range addressplan.Classes {
		for _, zone := range addressplan.Zones {
			got, err := addressplan.DeriveIpv6(testIpv6Base, class, zone)
			require.NoError(t, err)
			raw := got.Addr().As16()

			assert.Equal(t, base[:7], raw[:7], "the /56 prefix must be kept")
			assert.Equal(t, byte(addressplan.SubnetIndex(class, zone)), raw[7])
			assert.Equal(t, base[8:], raw[8:])
			assert.Equal(t, addressplan.Ipv6SubnetPrefixLen, got.Bits())
			assert.True(t, testIpv6Base.Contains(got.Addr()))
		}
	}
}

// The deploy-time rendering selects Fn::Cidr(/56, n, 64)[index], which is the same
// as splitting the /56 into /64s and picking the index-th one.
func TestDeriveIpv6_MatchesCidrSubnetting(t *testing.T) {
	_, parent, err := net.ParseCIDR(testIpv6Base.String())
	require.NoError(t, err)

	for _, class := range addressplan.Classes {
		for _, zone := range addressplan.Zones {
			got, err := addressplan.DeriveIpv6(testIpv6Base, class, zone)
			require.NoError(t, err)

			want, err := cidr.Subnet(parent, addressplan.Ipv6SubnetPrefixLen-addressplan.Ipv6VpcPrefixLen, addressplan.SubnetIndex(class, zone))
			require.NoError(t, err)
			assert.Equal(t, want.String(), got.String())
		}
	}
}

func TestDeriveIpv6_RejectsUnexpectedShape(t *testing.T) {
	cases := []string{
		"2600:1f18:6a2b:ce00::/48", // wrong size
		"2600:1f18:6a2b:ce00::/64", // already a subnet
		"10.0.0.0/16",              // not ipv6
		"::ffff:10.0.0.0/120",      // mapped ipv4
		"2600:1f18:6a2b:ce10::/60", // wrong size, non-zero nibble
	}
	for _, c := range cases {
		_, err := addressplan.DeriveIpv6(netip.MustParsePrefix(c), addressplan.Public, addressplan.ZoneA)
		assert.ErrorIs(t, err, addressplan.ErrPrecondition, c)
	}

	_, err := addressplan.DeriveIpv6(netip.Prefix{}, addressplan.Public, addressplan.ZoneA)
	assert.ErrorIs(t, err, addressplan.ErrPrecondition)
}

func TestValidateIpv6Base_NonZeroTrailingByte(t *testing.T) {
	p := netip.PrefixFrom(netip.MustParseAddr("2600:1f18:6a2b:ce12::"), 56)
	err := addressplan.ValidateIpv6Base(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero nibble pair")

	p = netip.PrefixFrom(netip.MustParseAddr("2600:1f18:6a2b:ce00::1"), 56)
	err = addressplan.ValidateIpv6Base(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "past the /56")
}

// Blocks whose text form is compressed ("2600:1f18:6a2b::/56") have no literal
// "00::/56" to substitute but must derive the same way.
func TestDeriveIpv6_CompressedBase(t *testing.T) {
	got, err := addressplan.DeriveIpv6(netip.MustParsePrefix("2600:1f18:6a2b::/56"), addressplan.Private, addressplan.ZoneA)
	require.NoError(t, err)
	assert.Equal(t, "2600:1f18:6a2b:3::/64", got.String())
}

func TestZoneFromLetter(t *testing.T) {
	z, err := addressplan.ZoneFromLetter("b")
	require.NoError(t, err)
	assert.Equal(t, addressplan.ZoneB, z)
	assert.Equal(t, 1, z.Index())

	_, err = addressplan.ZoneFromLetter("d")
	assert.ErrorIs(t, err, addressplan.ErrConfiguration)
	assert.False(t, addressplan.Zone(3).Valid())
}
