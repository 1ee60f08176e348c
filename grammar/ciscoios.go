package grammar

import (
	"regexp"

	"github.com/techsift/techsift/platform"
)

// Shared sub-patterns for Cisco ACL syntax. An address term is
// "host A.B.C.D", "any", a network/wildcard pair, or a bare address
// (standard ACLs). Alternation order matters: the pair form must be
// tried before the bare form.
const (
	ipv4Pat    = `\d{1,3}(?:\.\d{1,3}){3}`
	aclAddrPat = `host\s+` + ipv4Pat + `|any|` + ipv4Pat + `\s+` + ipv4Pat + `|` + ipv4Pat
	aclPortPat = `(?:eq|gt|lt|neq)\s+\S+|range\s+\S+\s+\S+`
)

var (
	iosVersionLine = regexp.MustCompile(`^(?:Cisco )?IOS.*Software.*,\s*(?P<os>[^,]+),\s*Version\s+(?P<version>[^,]+),`)
	iosUptimeLine  = regexp.MustCompile(`^(?P<hostname>\S+)\s+uptime is\s+(?P<uptime>.+)$`)
	iosSerialLine  = regexp.MustCompile(`^(?:Processor board ID|System serial number\s*:)\s*(?P<serial>\S+)`)
	iosModelLine   = regexp.MustCompile(`^[Cc]isco\s+(?P<model>\S+)\s+\(.*\)\s+processor`)

	iosIPIntBriefHeader = regexp.MustCompile(`^Interface\s+IP-Address\s+OK\?`)
	iosIPIntBriefRow    = regexp.MustCompile(`^(?P<interface>\S+)\s+(?P<ip_address>\S+)\s+(?P<ok>\S+)\s+(?P<method>\S+)\s+(?P<status>.+?)\s+(?P<protocol>\S+)\s*$`)

	iosIntHeader = regexp.MustCompile(`^(?P<interface>\S+) is (?P<status>[a-z][a-z ]*?(?:down|up|reset)), line protocol is (?P<protocol>\S+)`)
	iosIntDesc   = regexp.MustCompile(`^\s+Description:\s*(?P<description>.+)$`)
	iosIntAddr   = regexp.MustCompile(`^\s+Internet address is\s+(?P<ip_cidr>\S+)`)
	iosIntBW     = regexp.MustCompile(`^\s+MTU\s+(?P<mtu>\d+)\s+bytes,\s+BW\s+(?P<bandwidth_kbit>\d+)\s+[Kk]bit`)

	iosRouteVia   = regexp.MustCompile(`^(?P<protocol>[A-Z][A-Za-z0-9*]{0,4})\s+(?P<destination>` + ipv4Pat + `(?:/\d+)?)\s+\[(?P<admin_distance>\d+)/(?P<metric>\d+)\]\s+via\s+(?P<next_hop>` + ipv4Pat + `)(?:,\s*(?P<age>[\w:.]+))?(?:,\s*(?P<interface>\S+))?\s*$`)
	iosRouteConn  = regexp.MustCompile(`^(?P<protocol>[A-Z]\*?)\s+(?P<destination>` + ipv4Pat + `(?:/\d+)?)\s+is directly connected,\s+(?P<interface>\S+)\s*$`)
	iosRouteCont  = regexp.MustCompile(`^\s+\[\d+/\d+\]\s+via\s+(?P<alt_next_hop>` + ipv4Pat + `)`)
	iosRouteMask  = regexp.MustCompile(`is (?:variably )?subnetted`)
	iosRouteNoise = regexp.MustCompile(`^(?:Codes:|\s{5,}\S|Gateway of last resort)`)

	iosHostname        = regexp.MustCompile(`^hostname\s+(?P<hostname>\S+)\s*$`)
	iosIfaceStart      = regexp.MustCompile(`^interface\s+(?P<interface>\S+)\s*$`)
	iosIfaceDesc       = regexp.MustCompile(`^\s+description\s+(?P<description>.+)$`)
	iosIfaceIP         = regexp.MustCompile(`^\s+ip address\s+(?P<ip_address>` + ipv4Pat + `)\s+(?P<netmask>` + ipv4Pat + `)`)
	iosIfaceAccessVLAN = regexp.MustCompile(`^\s+switchport access vlan\s+(?P<vlan>\d+)`)
	iosIfaceNativeVLAN = regexp.MustCompile(`^\s+switchport trunk native vlan\s+(?P<native_vlan>\d+)`)
	iosIfaceMode       = regexp.MustCompile(`^\s+switchport mode\s+(?P<mode>\S+)`)
	iosIfaceChannel    = regexp.MustCompile(`^\s+channel-group\s+(?P<port_channel>\d+)`)
	iosIfaceShutdown   = regexp.MustCompile(`^\s+(?P<shutdown>shutdown)\s*$`)
	iosBlockEnd        = regexp.MustCompile(`^(?:!|end)\s*$`)

	iosACLRemark = regexp.MustCompile(`^access-list\s+(?P<acl>\S+)\s+remark\s+(?P<remark>.+)$`)
	iosACLEntry  = regexp.MustCompile(`^access-list\s+(?P<acl>\S+)\s+(?P<action>permit|deny)\s+(?:(?P<protocol>[a-z]\S*)\s+)??(?P<source>` + aclAddrPat + `)(?:\s+(?P<source_port>` + aclPortPat + `))?(?:\s+(?P<destination>` + aclAddrPat + `))?(?:\s+(?P<dest_port>` + aclPortPat + `|established))?(?:\s+(?P<options>.*))?$`)

	cdpDevice    = regexp.MustCompile(`^Device ID:\s*(?P<device>\S+)`)
	cdpAddress   = regexp.MustCompile(`^\s+IPv?4? ?[Aa]ddress(?: \(default\))?:\s*(?P<remote_address>\S+)`)
	cdpPlatform  = regexp.MustCompile(`^Platform:\s*(?P<remote_platform>[^,]+),\s*Capabilities:\s*(?P<remote_capability>.+?)\s*$`)
	cdpInterface = regexp.MustCompile(`^Interface:\s*(?P<local_interface>[^,]+),\s*Port ID \(outgoing port\):\s*(?P<remote_interface>.+?)\s*$`)
)

func ciscoIOSDefinitions() []*Definition {
	return []*Definition{
		{
			Platform: platform.CiscoIOS,
			Command:  "show version",
			Machine:  ciscoVersionMachine(iosVersionLine),
		},
		{
			Platform: platform.CiscoIOS,
			Command:  "show ip interface brief",
			Machine: &Machine{
				Start: "preamble",
				States: []State{
					{
						Name:      "preamble",
						OnNoMatch: NoMatchSkip,
						Rules: []Rule{
							{Pattern: iosIPIntBriefHeader, Action: ActionSkip, Next: "rows"},
						},
					},
					{
						Name:      "rows",
						OnNoMatch: NoMatchFail,
						Rules: []Rule{
							{Pattern: iosIPIntBriefRow, Action: ActionStart, RecordType: "interface"},
						},
					},
				},
			},
		},
		{
			Platform: platform.CiscoIOS,
			Command:  "show interfaces",
			Machine: &Machine{
				Start: "scan",
				States: []State{
					{
						Name:      "scan",
						OnNoMatch: NoMatchSkip,
						Rules: []Rule{
							{Pattern: iosIntHeader, Action: ActionStart, RecordType: "interface"},
							{Pattern: iosIntDesc, Action: ActionSet},
							{Pattern: iosIntAddr, Action: ActionSet},
							{Pattern: iosIntBW, Action: ActionSet},
						},
					},
				},
			},
		},
		{
			Platform: platform.CiscoIOS,
			Command:  "show ip route",
			Machine: &Machine{
				Start: "scan",
				States: []State{
					{
						Name:      "scan",
						OnNoMatch: NoMatchSkip,
						Rules: []Rule{
							// Equal-cost paths wrap onto their own lines;
							// keep them on the record instead of minting a
							// half-empty one. Must precede the indented-noise
							// skip, which would otherwise eat them.
							{Pattern: iosRouteCont, Action: ActionAppend, Separator: ", "},
							{Pattern: iosRouteNoise, Action: ActionSkip},
							{Pattern: iosRouteMask, Action: ActionSkip},
							{Pattern: iosRouteConn, Action: ActionStart, RecordType: "route"},
							{Pattern: iosRouteVia, Action: ActionStart, RecordType: "route"},
						},
					},
				},
			},
		},
		{
			Platform: platform.CiscoIOS,
			Command:  "show running-config",
			Machine:  ciscoIOSRunningConfigMachine(),
		},
		{
			Platform: platform.CiscoIOS,
			Command:  "show cdp neighbors detail",
			Machine:  cdpNeighborsMachine(),
		},
	}
}

// ciscoVersionMachine builds the single-record "show version" scanner
// shared by the IOS-like platforms, keyed on each platform's version
// banner line.
func ciscoVersionMachine(banner *regexp.Regexp) *Machine {
	return &Machine{
		Start: "scan",
		States: []State{
			{
				Name:      "scan",
				OnNoMatch: NoMatchSkip,
				Rules: []Rule{
					{Pattern: banner, Action: ActionStart, RecordType: "version"},
					{Pattern: iosUptimeLine, Action: ActionSet},
					{Pattern: iosSerialLine, Action: ActionSet},
					{Pattern: iosModelLine, Action: ActionSet},
				},
			},
		},
	}
}

func ciscoIOSRunningConfigMachine() *Machine {
	configRules := []Rule{
		{Pattern: iosHostname, Action: ActionStart, RecordType: "device"},
		{Pattern: iosIfaceStart, Action: ActionStart, RecordType: "interface", Next: "iface"},
		{Pattern: iosACLRemark, Action: ActionStash, Separator: " | "},
		{Pattern: iosACLEntry, Action: ActionStart, RecordType: "acl"},
	}
	ifaceRules := []Rule{
		{Pattern: iosIfaceStart, Action: ActionStart, RecordType: "interface"},
		{Pattern: iosIfaceDesc, Action: ActionSet},
		{Pattern: iosIfaceIP, Action: ActionSet},
		{Pattern: iosIfaceAccessVLAN, Action: ActionSet},
		{Pattern: iosIfaceNativeVLAN, Action: ActionSet},
		{Pattern: iosIfaceMode, Action: ActionSet},
		{Pattern: iosIfaceChannel, Action: ActionSet},
		{Pattern: iosIfaceShutdown, Action: ActionSet},
		{Pattern: iosBlockEnd, Action: ActionEmit, Next: "config"},
	}
	// Top-level lines can follow an interface block without a "!"
	// separator; carry the config-state start rules into the iface
	// state so they still open their records.
	ifaceRules = append(ifaceRules,
		Rule{Pattern: iosHostname, Action: ActionStart, RecordType: "device", Next: "config"},
		Rule{Pattern: iosACLRemark, Action: ActionStash, Separator: " | ", Next: "config"},
		Rule{Pattern: iosACLEntry, Action: ActionStart, RecordType: "acl", Next: "config"},
	)
	return &Machine{
		Start: "config",
		States: []State{
			{Name: "config", OnNoMatch: NoMatchSkip, Rules: configRules},
			{Name: "iface", OnNoMatch: NoMatchSkip, Rules: ifaceRules},
		},
	}
}

func cdpNeighborsMachine() *Machine {
	return &Machine{
		Start: "scan",
		States: []State{
			{
				Name:      "scan",
				OnNoMatch: NoMatchSkip,
				Rules: []Rule{
					{Pattern: cdpDevice, Action: ActionStart, RecordType: "neighbor"},
					{Pattern: cdpAddress, Action: ActionSet},
					{Pattern: cdpPlatform, Action: ActionSet},
					{Pattern: cdpInterface, Action: ActionSet},
				},
			},
		},
	}
}
