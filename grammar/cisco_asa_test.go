package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asaMachine(t *testing.T, command string) *Machine {
	t.Helper()
	for _, def := range ciscoASADefinitions() {
		if def.Command == command {
			return def.Machine
		}
	}
	t.Fatalf("no ASA definition for %q", command)
	return nil
}

func TestASAShowVersion(t *testing.T) {
	text := `Cisco Adaptive Security Appliance Software Version 9.8(2)
Device Manager Version 7.8(2)

Compiled on Wed 09-Aug-17 12:21 PDT by builders

fw01 up 187 days 3 hours
Hardware:   ASA5516, 8192 MB RAM, CPU Atom C2000 series 2416 MHz, 1 CPU (8 cores)
Serial Number: JAD20440AB1
`
	records, err := asaMachine(t, "show version").Run(text)
	require.NoError(t, err)
	require.Len(t, records, 1)

	get := func(k string) string { v, _ := records[0].Get(k); return v }
	assert.Equal(t, "Cisco Adaptive Security Appliance", get("os"))
	assert.Equal(t, "9.8(2)", get("version"))
	assert.Equal(t, "fw01", get("hostname"))
	assert.Equal(t, "187 days 3 hours", get("uptime"))
	assert.Equal(t, "ASA5516", get("model"))
	assert.Equal(t, "JAD20440AB1", get("serial"))
}

func TestASARunningConfig(t *testing.T) {
	text := `ASA Version 9.8(2)
!
hostname fw01
domain-name corp.example.com
!
interface GigabitEthernet1/1
 nameif outside
 security-level 0
 ip address 203.0.113.10 255.255.255.248 standby 203.0.113.11
!
interface GigabitEthernet1/2
 nameif inside
 security-level 100
 ip address 10.1.0.1 255.255.255.0
!
object network WEB-SRV
 host 10.1.0.80
 description primary web server
object network DMZ-NET
 subnet 10.2.0.0 255.255.255.0
object-group network BLOCKED
 network-object 198.51.100.0 255.255.255.0
 network-object host 192.0.2.15
!
access-list OUTSIDE_IN remark Web server publishing
access-list OUTSIDE_IN extended permit tcp any object WEB-SRV eq https
access-list OUTSIDE_IN extended deny ip object-group BLOCKED any log disable
!
route outside 0.0.0.0 0.0.0.0 203.0.113.9 1
!
nat (inside,outside) source static WEB-SRV WEB-SRV-PUB
!
crypto map OUTSIDE_MAP 10 match address VPN-TRAFFIC
crypto map OUTSIDE_MAP 10 set peer 198.51.100.77
crypto map OUTSIDE_MAP 10 set ikev1 transform-set ESP-AES-SHA
crypto map OUTSIDE_MAP interface outside
`
	records, err := asaMachine(t, "show running-config").Run(text)
	require.NoError(t, err)

	byType := map[string][]RawRecord{}
	for _, r := range records {
		byType[r.Type] = append(byType[r.Type], r)
	}

	require.Len(t, byType["device"], 1)
	dev := byType["device"][0]
	hostname, _ := dev.Get("hostname")
	assert.Equal(t, "fw01", hostname)
	// ASA Version precedes hostname; the stash carries it onto the
	// device record.
	version, _ := dev.Get("version")
	assert.Equal(t, "9.8(2)", version)
	domain, _ := dev.Get("domain")
	assert.Equal(t, "corp.example.com", domain)

	require.Len(t, byType["interface"], 2)
	outside := byType["interface"][0]
	get := func(r RawRecord, k string) string { v, _ := r.Get(k); return v }
	assert.Equal(t, "outside", get(outside, "nameif"))
	assert.Equal(t, "0", get(outside, "security_level"))
	assert.Equal(t, "203.0.113.10", get(outside, "ip_address"))
	assert.Equal(t, "203.0.113.11", get(outside, "standby"))

	require.Len(t, byType["object_network"], 2)
	assert.Equal(t, "WEB-SRV", get(byType["object_network"][0], "name"))
	assert.Equal(t, "10.1.0.80", get(byType["object_network"][0], "host"))
	assert.Equal(t, "10.2.0.0 255.255.255.0", get(byType["object_network"][1], "subnet"))

	require.Len(t, byType["object_group"], 1)
	group := byType["object_group"][0]
	assert.Equal(t, "network", get(group, "group_type"))
	assert.Equal(t, "198.51.100.0 255.255.255.0; host 192.0.2.15", get(group, "member"))

	require.Len(t, byType["acl_remark"], 1)
	require.Len(t, byType["acl"], 2)
	assert.Equal(t, "permit", get(byType["acl"][0], "action"))
	assert.Equal(t, "tcp any object WEB-SRV eq https", get(byType["acl"][0], "body"))

	require.Len(t, byType["route"], 1)
	route := byType["route"][0]
	assert.Equal(t, "outside", get(route, "interface"))
	assert.Equal(t, "203.0.113.9", get(route, "next_hop"))
	assert.Equal(t, "1", get(route, "admin_distance"))

	require.Len(t, byType["nat"], 1)

	require.Len(t, byType["crypto"], 1)
	crypto := byType["crypto"][0]
	assert.Equal(t, "OUTSIDE_MAP", get(crypto, "map_name"))
	assert.Equal(t, "10", get(crypto, "sequence"))
	assert.Equal(t, "VPN-TRAFFIC", get(crypto, "match_acl"))
	assert.Equal(t, "198.51.100.77", get(crypto, "peer"))
	assert.Equal(t, "ikev1", get(crypto, "ike_version"))
	assert.Equal(t, "ESP-AES-SHA", get(crypto, "transform_set"))
	assert.Equal(t, "outside", get(crypto, "crypto_interface"))
}

func TestASADefinitionsValidate(t *testing.T) {
	for _, def := range ciscoASADefinitions() {
		require.NotNil(t, def.Machine, def.Command)
		assert.NoError(t, def.Machine.Validate(), def.Command)
	}
}
