package grammar

import (
	"regexp"

	"github.com/techsift/techsift/platform"
)

var (
	nxosBanner      = regexp.MustCompile(`^(?P<os>Cisco Nexus Operating System \(NX-OS\) Software)`)
	nxosVersionLine = regexp.MustCompile(`^\s*(?:NXOS|system):\s+version\s+(?P<version>\S+)`)
	nxosDeviceName  = regexp.MustCompile(`^\s*Device name:\s+(?P<hostname>\S+)`)
	nxosChassis     = regexp.MustCompile(`^\s+cisco\s+(?P<model>Nexus\S*(?:\s+\S+)*?)\s+[Cc]hassis`)
	nxosSerial      = regexp.MustCompile(`^\s+Processor Board ID\s+(?P<serial>\S+)`)
	nxosUptime      = regexp.MustCompile(`^\s*Kernel uptime is\s+(?P<uptime>.+)$`)

	// "show interface brief" is a set of columnar sub-tables. The row
	// shapes are distinct enough to match per interface family; the
	// free-text Reason column is non-greedy between fixed neighbors.
	nxosBriefEth  = regexp.MustCompile(`^(?P<interface>Eth[\d/.]+)\s+(?P<vlan>\S+)\s+(?P<type>\S+)\s+(?P<mode>\S+)\s+(?P<status>\S+)\s+(?P<reason>\S.*?)\s+(?P<speed>\S+)\s+(?P<port_channel>\S+)\s*$`)
	nxosBriefPo   = regexp.MustCompile(`^(?P<interface>Po\d+)\s+(?P<vlan>\S+)\s+(?P<type>\S+)\s+(?P<mode>\S+)\s+(?P<status>\S+)\s+(?P<reason>\S.*?)\s+(?P<speed>\S+)(?:\s+(?P<protocol>\S+))?\s*$`)
	nxosBriefVlan = regexp.MustCompile(`^(?P<interface>Vlan\d+)\s+(?P<secondary_vlan>\S+)\s+(?P<status>\S+)\s+(?P<reason>\S.*?)\s*$`)
	nxosBriefMgmt = regexp.MustCompile(`^(?P<interface>mgmt\d+)\s+(?P<vrf>\S+)\s+(?P<status>\S+)\s+(?P<ip_address>\S+)\s+(?P<speed>\S+)\s+(?P<mtu>\S+)\s*$`)
)

func ciscoNXOSDefinitions() []*Definition {
	return []*Definition{
		{
			Platform: platform.CiscoNXOS,
			Command:  "show version",
			Machine: &Machine{
				Start: "scan",
				States: []State{
					{
						Name:      "scan",
						OnNoMatch: NoMatchSkip,
						Rules: []Rule{
							{Pattern: nxosBanner, Action: ActionStart, RecordType: "version"},
							{Pattern: nxosVersionLine, Action: ActionSet},
							{Pattern: nxosDeviceName, Action: ActionSet},
							{Pattern: nxosChassis, Action: ActionSet},
							{Pattern: nxosSerial, Action: ActionSet},
							{Pattern: nxosUptime, Action: ActionSet},
						},
					},
				},
			},
		},
		{
			Platform: platform.CiscoNXOS,
			Command:  "show interface brief",
			Machine: &Machine{
				Start: "scan",
				States: []State{
					{
						Name:      "scan",
						OnNoMatch: NoMatchSkip,
						Rules: []Rule{
							{Pattern: nxosBriefMgmt, Action: ActionStart, RecordType: "interface"},
							{Pattern: nxosBriefEth, Action: ActionStart, RecordType: "interface"},
							{Pattern: nxosBriefPo, Action: ActionStart, RecordType: "interface"},
							{Pattern: nxosBriefVlan, Action: ActionStart, RecordType: "interface"},
						},
					},
				},
			},
		},
		{
			Platform: platform.CiscoNXOS,
			Command:  "show running-config",
			// NX-OS running configurations share the IOS block shape
			// (interface stanzas, hostname, numbered ACLs).
			Machine: ciscoIOSRunningConfigMachine(),
		},
		{
			Platform: platform.CiscoNXOS,
			Command:  "show cdp neighbors detail",
			Machine:  cdpNeighborsMachine(),
		},
	}
}
