// Package entity defines the vendor-independent canonical records
// produced by the parsing pipeline, plus the diagnostics collected
// along the way. The field sets of each kind form a stable schema
// that downstream exporters depend on; renaming or retyping a
// canonical field is a breaking change.
package entity

import (
	"net/netip"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies a canonical entity kind.
type Kind string

// Canonical entity kinds.
const (
	KindInterface     Kind = "interface"
	KindRoute         Kind = "route"
	KindAclRule       Kind = "acl_rule"
	KindNeighborLink  Kind = "neighbor_link"
	KindNatRule       Kind = "nat_rule"
	KindAddressObject Kind = "address_object"
	KindCryptoTunnel  Kind = "crypto_tunnel"
	KindDeviceFact    Kind = "device_fact"
)

// Kinds returns all canonical kinds in stable order.
func Kinds() []Kind {
	return []Kind{
		KindInterface,
		KindRoute,
		KindAclRule,
		KindNeighborLink,
		KindNatRule,
		KindAddressObject,
		KindCryptoTunnel,
		KindDeviceFact,
	}
}

// Status is the canonical three-state operational status.
type Status int

// Status values. StatusUnknown covers vendor strings that map to
// neither up nor down.
const (
	StatusUnknown Status = iota
	StatusUp
	StatusDown
)

func (s Status) String() string {
	switch s {
	case StatusUp:
		return "up"
	case StatusDown:
		return "down"
	default:
		return "unknown"
	}
}

// Entity is implemented by every canonical record. Columns and Row
// together form the enumerable tabular contract for exporters:
// Columns is fixed per kind, Row returns values positionally aligned
// with Columns.
type Entity interface {
	Kind() Kind
	Columns() []string
	Row() []string
	Extra() map[string]string
}

// Interface is a canonical network interface.
type Interface struct {
	Name          string
	Description   string
	Status        Status
	Protocol      Status
	Address       netip.Prefix // zero value means absent
	VLAN          string
	Mode          string
	SpeedBps      int64 // 0 means absent
	PortChannel   string
	Zone          string
	SecurityLevel string
	VendorExtra   map[string]string
}

// Kind implements Entity.
func (Interface) Kind() Kind { return KindInterface }

// Columns implements Entity.
func (Interface) Columns() []string {
	return []string{
		"name", "description", "status", "protocol", "address",
		"vlan", "mode", "speed_bps", "port_channel", "zone",
		"security_level", "vendor_extra",
	}
}

// Row implements Entity.
func (e Interface) Row() []string {
	return []string{
		e.Name, e.Description, e.Status.String(), e.Protocol.String(),
		prefixString(e.Address), e.VLAN, e.Mode, int64String(e.SpeedBps),
		e.PortChannel, e.Zone, e.SecurityLevel, extraString(e.VendorExtra),
	}
}

// Extra implements Entity.
func (e Interface) Extra() map[string]string { return e.VendorExtra }

// Route is a canonical routing table or static route entry.
type Route struct {
	Protocol      string
	Destination   netip.Prefix
	NextHop       netip.Addr
	Interface     string
	AdminDistance string
	Metric        string
	VendorExtra   map[string]string
}

// Kind implements Entity.
func (Route) Kind() Kind { return KindRoute }

// Columns implements Entity.
func (Route) Columns() []string {
	return []string{
		"protocol", "destination", "next_hop", "interface",
		"admin_distance", "metric", "vendor_extra",
	}
}

// Row implements Entity.
func (e Route) Row() []string {
	return []string{
		e.Protocol, prefixString(e.Destination), addrString(e.NextHop),
		e.Interface, e.AdminDistance, e.Metric, extraString(e.VendorExtra),
	}
}

// Extra implements Entity.
func (e Route) Extra() map[string]string { return e.VendorExtra }

// AclRule is a canonical access-control entry. Source and Destination
// hold CIDR notation where the vendor form was convertible, otherwise
// the literal token (`any`, an object name).
type AclRule struct {
	ACL         string
	Line        int
	Action      string
	Protocol    string
	Source      string
	SourcePort  string
	Destination string
	DestPort    string
	Remark      string
	Inactive    bool
	LogDisabled bool
	VendorExtra map[string]string
}

// Kind implements Entity.
func (AclRule) Kind() Kind { return KindAclRule }

// Columns implements Entity.
func (AclRule) Columns() []string {
	return []string{
		"acl", "line", "action", "protocol", "source", "source_port",
		"destination", "dest_port", "remark", "inactive", "log_disabled",
		"vendor_extra",
	}
}

// Row implements Entity.
func (e AclRule) Row() []string {
	return []string{
		e.ACL, strconv.Itoa(e.Line), e.Action, e.Protocol, e.Source,
		e.SourcePort, e.Destination, e.DestPort, e.Remark,
		boolString(e.Inactive), boolString(e.LogDisabled),
		extraString(e.VendorExtra),
	}
}

// Extra implements Entity.
func (e AclRule) Extra() map[string]string { return e.VendorExtra }

// NeighborLink is a canonical L2 adjacency (CDP/LLDP style).
type NeighborLink struct {
	LocalInterface   string
	Device           string
	RemoteInterface  string
	RemotePlatform   string
	RemoteAddress    netip.Addr
	RemoteCapability string
	VendorExtra      map[string]string
}

// Kind implements Entity.
func (NeighborLink) Kind() Kind { return KindNeighborLink }

// Columns implements Entity.
func (NeighborLink) Columns() []string {
	return []string{
		"local_interface", "device", "remote_interface",
		"remote_platform", "remote_address", "remote_capability",
		"vendor_extra",
	}
}

// Row implements Entity.
func (e NeighborLink) Row() []string {
	return []string{
		e.LocalInterface, e.Device, e.RemoteInterface, e.RemotePlatform,
		addrString(e.RemoteAddress), e.RemoteCapability,
		extraString(e.VendorExtra),
	}
}

// Extra implements Entity.
func (e NeighborLink) Extra() map[string]string { return e.VendorExtra }

// NatRule is a canonical address translation rule.
type NatRule struct {
	Name        string
	Source      string
	Destination string
	Translated  string
	Service     string
	Options     string
	VendorExtra map[string]string
}

// Kind implements Entity.
func (NatRule) Kind() Kind { return KindNatRule }

// Columns implements Entity.
func (NatRule) Columns() []string {
	return []string{
		"name", "source", "destination", "translated", "service",
		"options", "vendor_extra",
	}
}

// Row implements Entity.
func (e NatRule) Row() []string {
	return []string{
		e.Name, e.Source, e.Destination, e.Translated, e.Service,
		e.Options, extraString(e.VendorExtra),
	}
}

// Extra implements Entity.
func (e NatRule) Extra() map[string]string { return e.VendorExtra }

// AddressObject is a canonical named network or service object.
type AddressObject struct {
	Name        string
	ObjectType  string // network, service, protocol group, ...
	MemberType  string // host, subnet, range, fqdn, port-object, ...
	Value       string
	Protocol    string
	Port        string
	Description string
	VendorExtra map[string]string
}

// Kind implements Entity.
func (AddressObject) Kind() Kind { return KindAddressObject }

// Columns implements Entity.
func (AddressObject) Columns() []string {
	return []string{
		"name", "object_type", "member_type", "value", "protocol",
		"port", "description", "vendor_extra",
	}
}

// Row implements Entity.
func (e AddressObject) Row() []string {
	return []string{
		e.Name, e.ObjectType, e.MemberType, e.Value, e.Protocol,
		e.Port, e.Description, extraString(e.VendorExtra),
	}
}

// Extra implements Entity.
func (e AddressObject) Extra() map[string]string { return e.VendorExtra }

// CryptoTunnel is a canonical IPsec crypto-map entry.
type CryptoTunnel struct {
	MapName      string
	Sequence     string
	MatchACL     string
	Peer         netip.Addr
	IKEVersion   string
	TransformSet string
	Interface    string
	VendorExtra  map[string]string
}

// Kind implements Entity.
func (CryptoTunnel) Kind() Kind { return KindCryptoTunnel }

// Columns implements Entity.
func (CryptoTunnel) Columns() []string {
	return []string{
		"map_name", "sequence", "match_acl", "peer", "ike_version",
		"transform_set", "interface", "vendor_extra",
	}
}

// Row implements Entity.
func (e CryptoTunnel) Row() []string {
	return []string{
		e.MapName, e.Sequence, e.MatchACL, addrString(e.Peer),
		e.IKEVersion, e.TransformSet, e.Interface,
		extraString(e.VendorExtra),
	}
}

// Extra implements Entity.
func (e CryptoTunnel) Extra() map[string]string { return e.VendorExtra }

// DeviceFact carries identity facts about the device itself, pulled
// from version output or the running configuration.
type DeviceFact struct {
	Hostname    string
	OS          string
	Version     string
	Model       string
	Serial      string
	Uptime      string
	VendorExtra map[string]string
}

// Kind implements Entity.
func (DeviceFact) Kind() Kind { return KindDeviceFact }

// Columns implements Entity.
func (DeviceFact) Columns() []string {
	return []string{
		"hostname", "os", "version", "model", "serial", "uptime",
		"vendor_extra",
	}
}

// Row implements Entity.
func (e DeviceFact) Row() []string {
	return []string{
		e.Hostname, e.OS, e.Version, e.Model, e.Serial, e.Uptime,
		extraString(e.VendorExtra),
	}
}

// Extra implements Entity.
func (e DeviceFact) Extra() map[string]string { return e.VendorExtra }

// ColumnsFor returns the stable column list for a kind, or nil for an
// unknown kind.
func ColumnsFor(kind Kind) []string {
	switch kind {
	case KindInterface:
		return Interface{}.Columns()
	case KindRoute:
		return Route{}.Columns()
	case KindAclRule:
		return AclRule{}.Columns()
	case KindNeighborLink:
		return NeighborLink{}.Columns()
	case KindNatRule:
		return NatRule{}.Columns()
	case KindAddressObject:
		return AddressObject{}.Columns()
	case KindCryptoTunnel:
		return CryptoTunnel{}.Columns()
	case KindDeviceFact:
		return DeviceFact{}.Columns()
	default:
		return nil
	}
}

func prefixString(p netip.Prefix) string {
	if !p.IsValid() {
		return ""
	}
	return p.String()
}

func addrString(a netip.Addr) string {
	if !a.IsValid() {
		return ""
	}
	return a.String()
}

func int64String(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return ""
}

// extraString renders vendor extras as "k=v" pairs in key order so
// export output is deterministic.
func extraString(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(m[k])
	}
	return sb.String()
}
