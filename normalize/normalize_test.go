package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techsift/techsift/entity"
	"github.com/techsift/techsift/grammar"
	"github.com/techsift/techsift/platform"
)

func record(recType string, kv ...string) grammar.RawRecord {
	rec := grammar.NewRawRecord(recType)
	for i := 0; i+1 < len(kv); i += 2 {
		rec.Set(kv[i], kv[i+1])
	}
	return rec
}

func TestNormalizeInterfaceBriefRow(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.CiscoIOS, "show ip interface brief",
		[]grammar.RawRecord{record("interface",
			"interface", "GigabitEthernet0/1",
			"ip_address", "10.10.1.1",
			"status", "up",
			"protocol", "up",
		)})
	require.Empty(t, diags)
	require.Len(t, ents, 1)

	iface, ok := ents[0].(entity.Interface)
	require.True(t, ok)
	assert.Equal(t, "GigabitEthernet0/1", iface.Name)
	assert.Equal(t, "10.10.1.1/32", iface.Address.String())
	assert.Equal(t, entity.StatusUp, iface.Status)
	assert.Equal(t, entity.StatusUp, iface.Protocol)
	assert.Nil(t, iface.VendorExtra)
}

func TestNormalizeInterfaceKeepsUnmappedFields(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.CiscoIOS, "show running-config",
		[]grammar.RawRecord{record("interface",
			"interface", "GigabitEthernet0/2",
			"ip_address", "192.0.2.1",
			"netmask", "255.255.255.0",
			"description", "uplink",
			"duplex", "full",
			"mtu", "9000",
		)})
	require.Empty(t, diags)
	require.Len(t, ents, 1)

	iface := ents[0].(entity.Interface)
	assert.Equal(t, "192.0.2.1/24", iface.Address.String())
	assert.Equal(t, "uplink", iface.Description)
	// Fields the mapping does not model survive as vendor extras.
	assert.Equal(t, "full", iface.VendorExtra["duplex"])
	assert.Equal(t, "9000", iface.VendorExtra["mtu"])
}

func TestNormalizeInterfaceShutdownMeansDown(t *testing.T) {
	n := New()
	ents, _ := n.Normalize(platform.CiscoIOS, "show running-config",
		[]grammar.RawRecord{record("interface",
			"interface", "GigabitEthernet0/3",
			"shutdown", "true",
		)})
	require.Len(t, ents, 1)
	assert.Equal(t, entity.StatusDown, ents[0].(entity.Interface).Status)
}

func TestNormalizeDropsRecordWithoutIdentity(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.CiscoIOS, "show ip interface brief",
		[]grammar.RawRecord{record("interface", "status", "up")})
	assert.Empty(t, ents)
	require.Len(t, diags, 1)
	assert.Equal(t, entity.DiagEntityDropped, diags[0].Kind)
	assert.Equal(t, entity.SeverityWarning, diags[0].Severity)
	assert.Equal(t, "show ip interface brief", diags[0].Command)
}

func TestNormalizeBadAddressKeepsEntity(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.CiscoIOS, "show ip interface brief",
		[]grammar.RawRecord{record("interface",
			"interface", "GigabitEthernet0/4",
			"ip_address", "10.10.999.1",
			"status", "up",
		)})
	// The entity survives with the bad value demoted to an extra.
	require.Len(t, ents, 1)
	iface := ents[0].(entity.Interface)
	assert.False(t, iface.Address.IsValid())
	assert.Equal(t, "10.10.999.1", iface.VendorExtra["ip_address"])
	require.Len(t, diags, 1)
	assert.Equal(t, entity.DiagValidationError, diags[0].Kind)
}

func TestNormalizeSecondaryAddresses(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.CiscoIOS, "show ip interface brief",
		[]grammar.RawRecord{record("interface",
			"interface", "Vlan10",
			"ip_address", "10.0.10.1, 10.0.11.1",
		)})
	require.Empty(t, diags)
	iface := ents[0].(entity.Interface)
	assert.Equal(t, "10.0.10.1/32", iface.Address.String())
	assert.Equal(t, "10.0.11.1", iface.VendorExtra["secondary_addresses"])
}

func TestNormalizeBandwidthAndSpeed(t *testing.T) {
	n := New()
	ents, _ := n.Normalize(platform.CiscoIOS, "show running-config",
		[]grammar.RawRecord{record("interface",
			"interface", "GigabitEthernet0/5",
			"bandwidth_kbit", "10000",
		)})
	assert.Equal(t, int64(10_000_000), ents[0].(entity.Interface).SpeedBps)

	ents, _ = n.Normalize(platform.CiscoNXOS, "show interface brief",
		[]grammar.RawRecord{record("interface",
			"interface", "Eth1/1",
			"speed", "10G(D)",
			"port_channel", "--",
		)})
	iface := ents[0].(entity.Interface)
	assert.Equal(t, int64(10_000_000_000), iface.SpeedBps)
	assert.Empty(t, iface.PortChannel)
}

func TestNormalizeRouteClassfulDestination(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.CiscoIOS, "show ip route",
		[]grammar.RawRecord{
			record("route", "protocol", "O", "destination", "10.0.0.0", "next_hop", "10.10.1.2", "admin_distance", "110", "metric", "20"),
			record("route", "protocol", "C", "destination", "198.51.100.0/30", "interface", "GigabitEthernet0/0"),
		})
	require.Empty(t, diags)
	require.Len(t, ents, 2)

	r := ents[0].(entity.Route)
	assert.Equal(t, "10.0.0.0/8", r.Destination.String())
	assert.Equal(t, "10.10.1.2", r.NextHop.String())
	assert.Equal(t, "110", r.AdminDistance)

	r = ents[1].(entity.Route)
	assert.Equal(t, "198.51.100.0/30", r.Destination.String())
	assert.Equal(t, "GigabitEthernet0/0", r.Interface)
}

func TestNormalizeASARouteUsesNetmask(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.CiscoASA, "show running-config",
		[]grammar.RawRecord{record("route",
			"interface", "outside",
			"destination", "0.0.0.0",
			"netmask", "0.0.0.0",
			"next_hop", "203.0.113.1",
		)})
	require.Empty(t, diags)
	r := ents[0].(entity.Route)
	assert.Equal(t, "static", r.Protocol)
	assert.Equal(t, "0.0.0.0/0", r.Destination.String())
	assert.Equal(t, "outside", r.Interface)
}

func TestNormalizeIOSACLWildcardSource(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.CiscoIOS, "show running-config",
		[]grammar.RawRecord{
			record("acl", "acl", "MGMT-IN", "action", "permit", "protocol", "tcp",
				"source", "10.10.0.0 0.0.255.255", "destination", "host 10.10.1.1", "dest_port", "eq 22"),
			record("acl", "acl", "MGMT-IN", "action", "deny", "protocol", "ip",
				"source", "any", "destination", "any"),
		})
	require.Empty(t, diags)
	require.Len(t, ents, 2)

	first := ents[0].(entity.AclRule)
	assert.Equal(t, 1, first.Line)
	assert.Equal(t, "10.10.0.0/16", first.Source)
	assert.Equal(t, "10.10.1.1/32", first.Destination)
	assert.Equal(t, "22", first.DestPort)

	second := ents[1].(entity.AclRule)
	assert.Equal(t, 2, second.Line)
	assert.Equal(t, "any", second.Source)
}

func TestNormalizeIOSACLNonContiguousWildcard(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.CiscoIOS, "show running-config",
		[]grammar.RawRecord{record("acl",
			"acl", "ODD", "action", "permit", "protocol", "ip",
			"source", "10.0.0.0 0.0.255.0", "destination", "any",
		)})
	// The rule survives with the literal term and a diagnostic.
	require.Len(t, ents, 1)
	assert.Equal(t, "10.0.0.0 0.0.255.0", ents[0].(entity.AclRule).Source)
	require.Len(t, diags, 1)
	assert.Equal(t, entity.DiagValidationError, diags[0].Kind)
}

func TestNormalizeUnknownRecordType(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.CiscoIOS, "show version",
		[]grammar.RawRecord{record("mystery", "a", "b")})
	assert.Empty(t, ents)
	require.Len(t, diags, 1)
	assert.Equal(t, entity.DiagEntityDropped, diags[0].Kind)
}

func TestNormalizeDeviceFact(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.CiscoIOS, "show version",
		[]grammar.RawRecord{record("version",
			"os", "C2960X Software (C2960X-UNIVERSALK9-M)",
			"version", "15.2(2)E7",
			"hostname", "core-sw-01",
			"model", "WS-C2960X-48TS-L ",
			"serial", "FOC1912345A",
			"uptime", "2 years, 11 weeks, 5 days",
			"config_register", "0xF",
		)})
	require.Empty(t, diags)
	fact := ents[0].(entity.DeviceFact)
	assert.Equal(t, "core-sw-01", fact.Hostname)
	assert.Equal(t, "15.2(2)E7", fact.Version)
	assert.Equal(t, "WS-C2960X-48TS-L", fact.Model)
	assert.Equal(t, "0xF", fact.VendorExtra["config_register"])
}

func TestNormalizePaloSecurityRule(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.PaloAlto, "config",
		[]grammar.RawRecord{
			record("security_rule",
				"name", "allow-web", "action", "allow",
				"from_zone", "untrust", "to_zone", "trust",
				"source", "any", "destination", "web-srv",
				"service", "tcp-8443", "application", "web-browsing, ssl"),
			record("security_rule",
				"name", "deny-rest", "action", "deny",
				"source", "any", "destination", "any", "disabled", "yes"),
		})
	require.Empty(t, diags)
	require.Len(t, ents, 2)

	rule := ents[0].(entity.AclRule)
	assert.Equal(t, "allow-web", rule.ACL)
	assert.Equal(t, 1, rule.Line)
	assert.Equal(t, "tcp-8443", rule.DestPort)
	assert.Equal(t, "untrust", rule.VendorExtra["from_zone"])
	assert.Equal(t, "web-browsing, ssl", rule.VendorExtra["application"])

	rule = ents[1].(entity.AclRule)
	assert.Equal(t, 2, rule.Line)
	assert.True(t, rule.Inactive)
}

func TestNormalizePaloNATRule(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.PaloAlto, "config",
		[]grammar.RawRecord{record("nat_rule",
			"name", "outbound-snat",
			"from_zone", "trust", "to_zone", "untrust",
			"source", "any", "destination", "any", "service", "any",
			"translation", "dynamic-ip-and-port/interface-address/interface=ethernet1/1",
		)})
	require.Empty(t, diags)
	nat := ents[0].(entity.NatRule)
	assert.Equal(t, "outbound-snat", nat.Name)
	assert.Equal(t, "from trust to untrust", nat.Options)
	assert.Contains(t, nat.Translated, "ethernet1/1")
}

func TestNormalizePaloAddressObject(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.PaloAlto, "config",
		[]grammar.RawRecord{
			record("address_object", "name", "web-srv", "member_type", "ip-netmask", "value", "10.50.0.80/32"),
			record("service_object", "name", "tcp-8443", "protocol", "tcp", "port", "8443"),
		})
	require.Empty(t, diags)

	addr := ents[0].(entity.AddressObject)
	assert.Equal(t, "address", addr.ObjectType)
	assert.Equal(t, "ip-netmask", addr.MemberType)

	svc := ents[1].(entity.AddressObject)
	assert.Equal(t, "service", svc.ObjectType)
	assert.Equal(t, "8443", svc.Port)
}

func TestNormalizeCryptoTunnel(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.CiscoASA, "show running-config",
		[]grammar.RawRecord{record("crypto",
			"map_name", "outside_map", "sequence", "10",
			"match_acl", "VPN-TRAFFIC", "peer", "198.51.100.77",
			"transform_set", "ESP-AES-SHA", "crypto_interface", "outside",
		)})
	require.Empty(t, diags)
	tun := ents[0].(entity.CryptoTunnel)
	assert.Equal(t, "outside_map", tun.MapName)
	assert.Equal(t, "198.51.100.77", tun.Peer.String())
	assert.Equal(t, "outside", tun.Interface)
}

func TestNormalizeNeighbor(t *testing.T) {
	n := New()
	ents, diags := n.Normalize(platform.CiscoIOS, "show cdp neighbors detail",
		[]grammar.RawRecord{record("neighbor",
			"device", "dist-sw-02.example.net",
			"local_interface", "GigabitEthernet1/0/49",
			"remote_interface", "TenGigabitEthernet1/1/1",
			"remote_address", "10.10.0.2",
			"remote_platform", "cisco WS-C3850-24XS",
			"remote_capability", "Switch IGMP",
		)})
	require.Empty(t, diags)
	link := ents[0].(entity.NeighborLink)
	assert.Equal(t, "dist-sw-02.example.net", link.Device)
	assert.Equal(t, "10.10.0.2", link.RemoteAddress.String())
	assert.Equal(t, "cisco WS-C3850-24XS", link.RemotePlatform)
}
