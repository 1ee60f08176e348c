package grammar

import (
	"regexp"

	"github.com/techsift/techsift/platform"
)

var (
	asaVersionLine = regexp.MustCompile(`^(?P<os>Cisco Adaptive Security Appliance) Software Version (?P<version>\S+)`)
	asaUptimeLine  = regexp.MustCompile(`^(?P<hostname>[\w.\-]+) up (?P<uptime>.+)$`)
	asaHardware    = regexp.MustCompile(`^Hardware:\s+(?P<model>[^,]+),`)
	asaSerialLine  = regexp.MustCompile(`^Serial Number:\s+(?P<serial>\S+)`)

	asaConfigVersion = regexp.MustCompile(`^ASA Version (?P<version>\S+)`)
	asaHostname      = regexp.MustCompile(`^hostname (?P<hostname>\S+)`)
	asaDomainName    = regexp.MustCompile(`^domain-name (?P<domain>\S+)`)

	asaIfaceStart    = regexp.MustCompile(`^interface (?P<interface>\S+)`)
	asaIfaceNameif   = regexp.MustCompile(`^\s+nameif (?P<nameif>\S+)`)
	asaIfaceSecLevel = regexp.MustCompile(`^\s+security-level (?P<security_level>\d+)`)
	asaIfaceAddr     = regexp.MustCompile(`^\s+ip address (?P<ip_address>` + ipv4Pat + `) (?P<netmask>` + ipv4Pat + `)(?: standby (?P<standby>` + ipv4Pat + `))?`)
	asaIfaceDesc     = regexp.MustCompile(`^\s+description (?P<description>.+)$`)
	asaIfaceVLAN     = regexp.MustCompile(`^\s+vlan (?P<vlan>\d+)`)
	asaIfaceShut     = regexp.MustCompile(`^\s+(?P<shutdown>shutdown)\s*$`)
	asaBlockEnd      = regexp.MustCompile(`^!`)

	asaRoute = regexp.MustCompile(`^route (?P<interface>\S+) (?P<destination>` + ipv4Pat + `) (?P<netmask>` + ipv4Pat + `) (?P<next_hop>` + ipv4Pat + `)(?: (?P<admin_distance>\d+))?\s*$`)

	// Extended ACL bodies mix literal addresses with object and
	// object-group references; the tail past the action is kept raw and
	// token-walked during normalization.
	asaACLRemark = regexp.MustCompile(`^access-list (?P<acl>\S+) remark (?P<remark>.+)$`)
	asaACLEntry  = regexp.MustCompile(`^access-list (?P<acl>\S+) extended (?P<action>permit|deny) (?P<body>.+)$`)
	asaACLStd    = regexp.MustCompile(`^access-list (?P<acl>\S+) standard (?P<action>permit|deny) (?P<body>.+)$`)

	asaObjectNet   = regexp.MustCompile(`^object network (?P<name>\S+)\s*$`)
	asaObjectSvc   = regexp.MustCompile(`^object service (?P<name>\S+)\s*$`)
	asaObjectGroup = regexp.MustCompile(`^object-group (?P<group_type>\S+) (?P<name>\S+)(?: (?P<protocol>\S+))?\s*$`)
	asaObjHost     = regexp.MustCompile(`^\s+host (?P<host>\S+)\s*$`)
	asaObjSubnet   = regexp.MustCompile(`^\s+subnet (?P<subnet>` + ipv4Pat + ` ` + ipv4Pat + `)\s*$`)
	asaObjRange    = regexp.MustCompile(`^\s+range (?P<range>\S+ \S+)\s*$`)
	asaObjFQDN     = regexp.MustCompile(`^\s+fqdn (?:v4 |v6 )?(?P<fqdn>\S+)\s*$`)
	asaObjService  = regexp.MustCompile(`^\s+service (?P<service>.+)$`)
	asaObjDesc     = regexp.MustCompile(`^\s+description (?P<description>.+)$`)
	asaObjNetObj   = regexp.MustCompile(`^\s+network-object (?P<member>.+)$`)
	asaObjPortObj  = regexp.MustCompile(`^\s+port-object (?P<member>.+)$`)
	asaObjSvcObj   = regexp.MustCompile(`^\s+service-object (?P<member>.+)$`)
	asaObjGrpObj   = regexp.MustCompile(`^\s+group-object (?P<member>\S+)\s*$`)

	asaNAT = regexp.MustCompile(`^nat (?P<body>.+)$`)

	asaCryptoMatch = regexp.MustCompile(`^crypto map (?P<map_name>\S+) (?P<sequence>\d+) match address (?P<match_acl>\S+)`)
	asaCryptoPeer  = regexp.MustCompile(`^crypto map \S+ \d+ set peer (?P<peer>\S+)`)
	asaCryptoTSet  = regexp.MustCompile(`^crypto map \S+ \d+ set (?P<ike_version>ikev[12]) transform-set (?P<transform_set>.+)$`)
	asaCryptoIface = regexp.MustCompile(`^crypto map \S+ interface (?P<crypto_interface>\S+)`)
)

// asaConfigStartRules are the top-of-stanza rules for the ASA running
// configuration. The interface and object states repeat them so that a
// stanza terminated by a new top-level line is emitted without losing
// that line.
func asaConfigStartRules() []Rule {
	return []Rule{
		{Pattern: asaConfigVersion, Action: ActionStash},
		{Pattern: asaHostname, Action: ActionStart, RecordType: "device"},
		{Pattern: asaDomainName, Action: ActionSet},
		{Pattern: asaIfaceStart, Action: ActionStart, RecordType: "interface", Next: "iface"},
		{Pattern: asaRoute, Action: ActionStart, RecordType: "route"},
		{Pattern: asaACLRemark, Action: ActionStart, RecordType: "acl_remark"},
		{Pattern: asaACLEntry, Action: ActionStart, RecordType: "acl"},
		{Pattern: asaACLStd, Action: ActionStart, RecordType: "acl"},
		{Pattern: asaObjectNet, Action: ActionStart, RecordType: "object_network", Next: "object"},
		{Pattern: asaObjectSvc, Action: ActionStart, RecordType: "object_service", Next: "object"},
		{Pattern: asaObjectGroup, Action: ActionStart, RecordType: "object_group", Next: "object"},
		{Pattern: asaNAT, Action: ActionStart, RecordType: "nat"},
		{Pattern: asaCryptoMatch, Action: ActionStart, RecordType: "crypto"},
		{Pattern: asaCryptoPeer, Action: ActionSet},
		{Pattern: asaCryptoTSet, Action: ActionSet},
		{Pattern: asaCryptoIface, Action: ActionSet},
	}
}

func asaRunningConfigMachine() *Machine {
	ifaceRules := []Rule{
		{Pattern: asaIfaceNameif, Action: ActionSet},
		{Pattern: asaIfaceSecLevel, Action: ActionSet},
		{Pattern: asaIfaceAddr, Action: ActionSet},
		{Pattern: asaIfaceDesc, Action: ActionSet},
		{Pattern: asaIfaceVLAN, Action: ActionSet},
		{Pattern: asaIfaceShut, Action: ActionSet},
		{Pattern: asaBlockEnd, Action: ActionEmit, Next: "config"},
	}
	objectRules := []Rule{
		{Pattern: asaObjHost, Action: ActionSet},
		{Pattern: asaObjSubnet, Action: ActionSet},
		{Pattern: asaObjRange, Action: ActionSet},
		{Pattern: asaObjFQDN, Action: ActionSet},
		{Pattern: asaObjService, Action: ActionSet},
		{Pattern: asaObjDesc, Action: ActionSet},
		{Pattern: asaObjNetObj, Action: ActionAppend, Separator: "; "},
		{Pattern: asaObjPortObj, Action: ActionAppend, Separator: "; "},
		{Pattern: asaObjSvcObj, Action: ActionAppend, Separator: "; "},
		{Pattern: asaObjGrpObj, Action: ActionAppend, Separator: "; "},
		{Pattern: asaBlockEnd, Action: ActionEmit, Next: "config"},
	}
	for _, r := range asaConfigStartRules() {
		if r.Next == "" {
			r.Next = "config"
		}
		ifaceRules = append(ifaceRules, r)
		objectRules = append(objectRules, r)
	}
	return &Machine{
		Start: "config",
		States: []State{
			{Name: "config", OnNoMatch: NoMatchSkip, Rules: asaConfigStartRules()},
			{Name: "iface", OnNoMatch: NoMatchSkip, Rules: ifaceRules},
			{Name: "object", OnNoMatch: NoMatchSkip, Rules: objectRules},
		},
	}
}

func ciscoASADefinitions() []*Definition {
	return []*Definition{
		{
			Platform: platform.CiscoASA,
			Command:  "show version",
			Machine: &Machine{
				Start: "scan",
				States: []State{
					{
						Name:      "scan",
						OnNoMatch: NoMatchSkip,
						Rules: []Rule{
							{Pattern: asaVersionLine, Action: ActionStart, RecordType: "version"},
							{Pattern: asaHardware, Action: ActionSet},
							{Pattern: asaSerialLine, Action: ActionSet},
							{Pattern: asaUptimeLine, Action: ActionSet},
						},
					},
				},
			},
		},
		{
			Platform: platform.CiscoASA,
			Command:  "show running-config",
			Machine:  asaRunningConfigMachine(),
		},
	}
}
