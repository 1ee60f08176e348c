// Package normalize maps grammar-level raw records onto the canonical
// entity schema. Each (platform, record type) pair has a mapping that
// consumes the fields it understands and coerces them (status enums,
// netip addresses, wildcard masks to CIDR, bandwidth to bits/sec); any
// field the mapping does not consume is preserved verbatim in the
// entity's vendor extras, so normalization never loses data.
package normalize

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strconv"
	"strings"

	"github.com/techsift/techsift/entity"
	"github.com/techsift/techsift/grammar"
	"github.com/techsift/techsift/platform"
)

// Normalizer converts raw records into canonical entities.
type Normalizer struct {
	logger *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) { n.logger = l }
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{logger: slog.Default()}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize maps one section's raw records to entities. A record
// missing its identity field is dropped with a diagnostic; value
// coercion failures downgrade the field (kept raw in vendor extras)
// and record a validation diagnostic, keeping the entity.
func (n *Normalizer) Normalize(p platform.Platform, command string, records []grammar.RawRecord) ([]entity.Entity, []entity.Diagnostic) {
	var (
		entities []entity.Entity
		diags    []entity.Diagnostic
		acls     = make(aclCounter)
	)
	for _, rec := range records {
		ent, ds := n.one(p, command, rec, acls)
		diags = append(diags, ds...)
		if ent != nil {
			entities = append(entities, ent)
		}
	}
	return entities, diags
}

func (n *Normalizer) one(p platform.Platform, command string, rec grammar.RawRecord, acls aclCounter) (entity.Entity, []entity.Diagnostic) {
	switch rec.Type {
	case "version", "device":
		return n.deviceFact(rec)
	case "interface":
		return n.interfaceEntity(p, command, rec)
	case "route":
		return n.route(p, command, rec)
	case "neighbor":
		return n.neighbor(command, rec)
	case "acl":
		return n.aclRule(p, command, rec, acls)
	case "acl_remark":
		return n.aclRemark(command, rec, acls)
	case "object_network", "object_service", "object_group":
		return n.asaObject(command, rec)
	case "nat":
		return n.asaNAT(command, rec)
	case "crypto":
		return n.cryptoTunnel(command, rec)
	case "security_rule":
		return n.paloSecurityRule(command, rec, acls)
	case "nat_rule":
		return n.paloNATRule(command, rec)
	case "address_object", "service_object":
		return n.paloObject(command, rec)
	default:
		n.logger.Debug("unmapped record type", "platform", p, "command", command, "type", rec.Type)
		return nil, []entity.Diagnostic{{
			Kind:     entity.DiagEntityDropped,
			Severity: entity.SeverityWarning,
			Message:  fmt.Sprintf("no mapping for record type %q", rec.Type),
			Command:  command,
		}}
	}
}

func dropDiag(command, what string) []entity.Diagnostic {
	return []entity.Diagnostic{{
		Kind:     entity.DiagEntityDropped,
		Severity: entity.SeverityWarning,
		Message:  what,
		Command:  command,
	}}
}

func validationDiag(command, msg string) entity.Diagnostic {
	return entity.Diagnostic{
		Kind:     entity.DiagValidationError,
		Severity: entity.SeverityWarning,
		Message:  msg,
		Command:  command,
	}
}

func (n *Normalizer) deviceFact(rec grammar.RawRecord) (entity.Entity, []entity.Diagnostic) {
	f := newFields(rec)
	fact := entity.DeviceFact{
		Hostname: f.take("hostname"),
		OS:       f.take("os"),
		Version:  f.take("version"),
		Model:    strings.TrimSpace(f.take("model")),
		Serial:   f.take("serial"),
		Uptime:   f.take("uptime"),
	}
	fact.VendorExtra = f.extra()
	return fact, nil
}

func (n *Normalizer) interfaceEntity(p platform.Platform, command string, rec grammar.RawRecord) (entity.Entity, []entity.Diagnostic) {
	f := newFields(rec)
	name := f.take("interface")
	if name == "" {
		return nil, dropDiag(command, "interface record without a name")
	}
	var diags []entity.Diagnostic
	e := entity.Interface{
		Name:        name,
		Description: f.take("description"),
		VLAN:        f.take("vlan"),
		Mode:        f.take("mode"),
	}

	if f.has("status") {
		e.Status = parseStatus(f.take("status"))
	} else if f.has("shutdown") {
		f.take("shutdown")
		e.Status = entity.StatusDown
	}
	if f.has("protocol") {
		e.Protocol = parseStatus(f.take("protocol"))
	}

	var secondary string

	// Addressing comes in three vendor shapes: ready-made CIDR,
	// address plus dotted mask, or a bare address.
	switch {
	case f.has("ip_cidr"):
		raw := f.take("ip_cidr")
		if pfx, err := netip.ParsePrefix(raw); err == nil {
			e.Address = pfx
		} else {
			diags = append(diags, validationDiag(command, fmt.Sprintf("interface %s: bad address %q", name, raw)))
			f.used["ip_cidr"] = false
		}
	case f.has("ip_address") && f.has("netmask"):
		addr, mask := f.take("ip_address"), f.take("netmask")
		if pfx, err := maskedPrefix(addr, mask); err == nil {
			e.Address = pfx
		} else {
			diags = append(diags, validationDiag(command, fmt.Sprintf("interface %s: %v", name, err)))
			f.used["ip_address"], f.used["netmask"] = false, false
		}
	case f.has("ip_address"):
		raw := f.take("ip_address")
		first, rest, multi := strings.Cut(raw, ", ")
		if first != "" && !strings.EqualFold(first, "unassigned") && first != "--" {
			if pfx, err := parseAddrOrPrefix(first); err == nil {
				e.Address = pfx
			} else {
				diags = append(diags, validationDiag(command, fmt.Sprintf("interface %s: bad address %q", name, first)))
				f.used["ip_address"] = false
			}
		}
		if multi && rest != "" {
			secondary = rest
		}
	}

	if kbit := f.take("bandwidth_kbit"); kbit != "" {
		if n, err := strconv.ParseInt(kbit, 10, 64); err == nil {
			e.SpeedBps = n * 1000
		}
	}
	if f.has("speed") {
		e.SpeedBps = speedToBps(f.take("speed"))
	}

	if pc := f.take("port_channel"); pc != "" && pc != "--" {
		e.PortChannel = pc
	}
	if p == platform.CiscoASA {
		e.Zone = f.take("nameif")
		e.SecurityLevel = f.take("security_level")
	}

	e.VendorExtra = f.extra()
	if secondary != "" {
		if e.VendorExtra == nil {
			e.VendorExtra = make(map[string]string)
		}
		e.VendorExtra["secondary_addresses"] = secondary
	}
	return e, diags
}

// parseAddrOrPrefix accepts "A.B.C.D/n" or a bare host address.
func parseAddrOrPrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		return netip.ParsePrefix(s)
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(a, a.BitLen()), nil
}

func (n *Normalizer) route(p platform.Platform, command string, rec grammar.RawRecord) (entity.Entity, []entity.Diagnostic) {
	f := newFields(rec)
	dest := f.take("destination")
	if dest == "" {
		return nil, dropDiag(command, "route record without a destination")
	}
	var diags []entity.Diagnostic
	e := entity.Route{
		Protocol:      f.take("protocol"),
		Interface:     f.take("interface"),
		AdminDistance: f.take("admin_distance"),
		Metric:        f.take("metric"),
	}
	if p == platform.CiscoASA {
		e.Protocol = "static"
	}

	if mask, ok := rec.Get("netmask"); ok {
		f.take("netmask")
		pfx, err := maskedPrefix(dest, mask)
		if err != nil {
			return nil, dropDiag(command, fmt.Sprintf("route %s: %v", dest, err))
		}
		e.Destination = pfx
	} else {
		pfx, err := parsePrefixOrHost(dest)
		if err != nil {
			return nil, dropDiag(command, fmt.Sprintf("route: bad destination %q", dest))
		}
		e.Destination = pfx
	}

	if hop := f.take("next_hop"); hop != "" {
		if a, err := netip.ParseAddr(hop); err == nil {
			e.NextHop = a
		} else {
			diags = append(diags, validationDiag(command, fmt.Sprintf("route %s: bad next hop %q", dest, hop)))
		}
	}
	e.VendorExtra = f.extra()
	return e, diags
}

func (n *Normalizer) neighbor(command string, rec grammar.RawRecord) (entity.Entity, []entity.Diagnostic) {
	f := newFields(rec)
	device := f.take("device")
	if device == "" {
		return nil, dropDiag(command, "neighbor record without a device id")
	}
	var diags []entity.Diagnostic
	e := entity.NeighborLink{
		Device:           device,
		LocalInterface:   f.take("local_interface"),
		RemoteInterface:  f.take("remote_interface"),
		RemotePlatform:   strings.TrimSpace(f.take("remote_platform")),
		RemoteCapability: f.take("remote_capability"),
	}
	if addr := f.take("remote_address"); addr != "" {
		if a, err := netip.ParseAddr(addr); err == nil {
			e.RemoteAddress = a
		} else {
			diags = append(diags, validationDiag(command, fmt.Sprintf("neighbor %s: bad address %q", device, addr)))
		}
	}
	e.VendorExtra = f.extra()
	return e, diags
}

func (n *Normalizer) aclRule(p platform.Platform, command string, rec grammar.RawRecord, acls aclCounter) (entity.Entity, []entity.Diagnostic) {
	if p == platform.CiscoASA {
		return n.asaACL(command, rec, acls)
	}
	f := newFields(rec)
	acl := f.take("acl")
	if acl == "" {
		return nil, dropDiag(command, "acl record without an acl name")
	}
	var diags []entity.Diagnostic
	e := entity.AclRule{
		ACL:      acl,
		Line:     acls.next(acl),
		Action:   f.take("action"),
		Protocol: f.take("protocol"),
		Remark:   f.take("remark"),
	}

	var d entity.Diagnostic
	var ok bool
	e.Source, d, ok = aclAddress(command, acl, f.take("source"))
	if !ok {
		diags = append(diags, d)
	}
	e.Destination, d, ok = aclAddress(command, acl, f.take("destination"))
	if !ok {
		diags = append(diags, d)
	}
	if sp := f.take("source_port"); sp != "" {
		e.SourcePort = portSpec(sp)
	}
	if dp := f.take("dest_port"); dp != "" {
		e.DestPort = portSpec(dp)
	}
	if opts := f.take("options"); opts != "" {
		e.VendorExtra = map[string]string{"options": opts}
	}
	for k, v := range f.extra() {
		if e.VendorExtra == nil {
			e.VendorExtra = make(map[string]string)
		}
		e.VendorExtra[k] = v
	}
	return e, diags
}

// aclAddress converts an IOS ACL address term to canonical form:
// "host A" to A/32, "A wildcard" to CIDR by wildcard inversion, bare
// addresses to /32, "any" kept literal. Terms that cannot convert
// (non-contiguous wildcards) are kept verbatim with a diagnostic.
func aclAddress(command, acl, term string) (string, entity.Diagnostic, bool) {
	term = strings.TrimSpace(term)
	if term == "" || term == "any" {
		return term, entity.Diagnostic{}, true
	}
	parts := strings.Fields(term)
	switch {
	case len(parts) == 2 && parts[0] == "host":
		return parts[1] + "/32", entity.Diagnostic{}, true
	case len(parts) == 2:
		pfx, err := wildcardToPrefix(parts[0], parts[1])
		if err != nil {
			return term, validationDiag(command, fmt.Sprintf("acl %s: %v", acl, err)), false
		}
		return pfx.String(), entity.Diagnostic{}, true
	case len(parts) == 1:
		if _, err := netip.ParseAddr(parts[0]); err == nil {
			return parts[0] + "/32", entity.Diagnostic{}, true
		}
	}
	return term, entity.Diagnostic{}, true
}

func (n *Normalizer) aclRemark(command string, rec grammar.RawRecord, acls aclCounter) (entity.Entity, []entity.Diagnostic) {
	f := newFields(rec)
	acl := f.take("acl")
	if acl == "" {
		return nil, dropDiag(command, "acl remark without an acl name")
	}
	e := entity.AclRule{
		ACL:    acl,
		Line:   acls.next(acl),
		Action: "remark",
		Remark: f.take("remark"),
	}
	e.VendorExtra = f.extra()
	return e, nil
}

func (n *Normalizer) cryptoTunnel(command string, rec grammar.RawRecord) (entity.Entity, []entity.Diagnostic) {
	f := newFields(rec)
	name := f.take("map_name")
	if name == "" {
		return nil, dropDiag(command, "crypto map record without a name")
	}
	var diags []entity.Diagnostic
	e := entity.CryptoTunnel{
		MapName:      name,
		Sequence:     f.take("sequence"),
		MatchACL:     f.take("match_acl"),
		IKEVersion:   f.take("ike_version"),
		TransformSet: f.take("transform_set"),
		Interface:    f.take("crypto_interface"),
	}
	if peer := f.take("peer"); peer != "" {
		if a, err := netip.ParseAddr(peer); err == nil {
			e.Peer = a
		} else {
			diags = append(diags, validationDiag(command, fmt.Sprintf("crypto map %s: bad peer %q", name, peer)))
		}
	}
	e.VendorExtra = f.extra()
	return e, diags
}
