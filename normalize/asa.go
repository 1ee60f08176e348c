package normalize

import (
	"fmt"
	"strings"

	"github.com/techsift/techsift/entity"
	"github.com/techsift/techsift/grammar"
)

// asaProtocols are the protocol keywords an extended ACL can open
// with. Anything else in protocol position is an object reference.
var asaProtocols = map[string]bool{
	"ip": true, "tcp": true, "udp": true, "icmp": true, "icmp6": true,
	"esp": true, "ah": true, "gre": true, "eigrp": true, "ospf": true,
	"sctp": true, "pim": true, "igmp": true,
}

// asaACL walks the token stream of an ASA extended ACL body. ASA
// entries mix literal addresses (with real netmasks, not wildcards)
// and object/object-group references, so the shape is discovered
// positionally: protocol term, source address term, optional port
// term, destination address term, optional port term, trailing
// options.
func (n *Normalizer) asaACL(command string, rec grammar.RawRecord, acls aclCounter) (entity.Entity, []entity.Diagnostic) {
	f := newFields(rec)
	acl := f.take("acl")
	if acl == "" {
		return nil, dropDiag(command, "acl record without an acl name")
	}
	e := entity.AclRule{
		ACL:    acl,
		Line:   acls.next(acl),
		Action: f.take("action"),
	}
	var diags []entity.Diagnostic

	toks := strings.Fields(f.take("body"))
	pos := 0

	// Protocol term.
	if pos < len(toks) {
		switch {
		case asaProtocols[toks[pos]]:
			e.Protocol = toks[pos]
			pos++
		case toks[pos] == "object-group" || toks[pos] == "object":
			// Could be a protocol group or the source term; a
			// protocol group is followed by another address term.
			if pos+2 < len(toks) && isASAAddrStart(toks[pos+2]) {
				e.Protocol = toks[pos] + " " + toks[pos+1]
				pos += 2
			}
		}
	}

	var addrs, ports []string
	for pos < len(toks) {
		tok := toks[pos]
		switch {
		case tok == "any", tok == "any4", tok == "any6":
			addrs = append(addrs, tok)
			pos++
		case tok == "host" && pos+1 < len(toks):
			addrs = append(addrs, toks[pos+1]+"/32")
			pos += 2
		case tok == "object" || tok == "object-group":
			if pos+1 < len(toks) {
				addrs = append(addrs, tok+" "+toks[pos+1])
				pos += 2
			} else {
				pos++
			}
		case tok == "interface" && pos+1 < len(toks):
			addrs = append(addrs, "interface "+toks[pos+1])
			pos += 2
		case looksLikeIPv4(tok) && pos+1 < len(toks) && looksLikeIPv4(toks[pos+1]):
			pfx, err := maskedPrefix(tok, toks[pos+1])
			if err != nil {
				addrs = append(addrs, tok+" "+toks[pos+1])
				diags = append(diags, validationDiag(command, fmt.Sprintf("acl %s: %v", acl, err)))
			} else {
				addrs = append(addrs, pfx.String())
			}
			pos += 2
		case tok == "eq" || tok == "gt" || tok == "lt" || tok == "neq":
			if pos+1 < len(toks) {
				ports = append(ports, portSpec(tok+" "+toks[pos+1]))
				pos += 2
			} else {
				pos++
			}
		case tok == "range" && pos+2 < len(toks):
			ports = append(ports, toks[pos+1]+"-"+toks[pos+2])
			pos += 3
		case tok == "inactive":
			e.Inactive = true
			pos++
		case tok == "log":
			// "log [level] [interval n] [disable]"
			rest := strings.Join(toks[pos:], " ")
			if strings.Contains(rest, "disable") {
				e.LogDisabled = true
			}
			pos = len(toks)
		default:
			// Unrecognized trailing tokens are kept raw.
			if e.VendorExtra == nil {
				e.VendorExtra = make(map[string]string)
			}
			e.VendorExtra["options"] = strings.Join(toks[pos:], " ")
			pos = len(toks)
		}
	}

	if len(addrs) > 0 {
		e.Source = addrs[0]
	}
	if len(addrs) > 1 {
		e.Destination = addrs[1]
	}
	// A port before the destination belongs to the source; ASA rarely
	// uses source ports, so a single port term is the destination's.
	switch len(ports) {
	case 1:
		e.DestPort = ports[0]
	case 2:
		e.SourcePort, e.DestPort = ports[0], ports[1]
	}

	for k, v := range f.extra() {
		if e.VendorExtra == nil {
			e.VendorExtra = make(map[string]string)
		}
		e.VendorExtra[k] = v
	}
	return e, diags
}

func isASAAddrStart(tok string) bool {
	switch tok {
	case "any", "any4", "any6", "host", "object", "object-group", "interface":
		return true
	}
	return looksLikeIPv4(tok)
}

func looksLikeIPv4(s string) bool {
	dots := 0
	for _, r := range s {
		switch {
		case r == '.':
			dots++
		case r < '0' || r > '9':
			return false
		}
	}
	return dots == 3
}

func (n *Normalizer) asaObject(command string, rec grammar.RawRecord) (entity.Entity, []entity.Diagnostic) {
	f := newFields(rec)
	name := f.take("name")
	if name == "" {
		return nil, dropDiag(command, "object record without a name")
	}
	e := entity.AddressObject{
		Name:        name,
		Description: f.take("description"),
	}
	switch rec.Type {
	case "object_network":
		e.ObjectType = "network"
	case "object_service":
		e.ObjectType = "service"
	case "object_group":
		e.ObjectType = "group:" + f.take("group_type")
		e.Protocol = f.take("protocol")
	}

	// One value-bearing field per object; groups accumulate members.
	switch {
	case f.has("host"):
		e.MemberType, e.Value = "host", f.take("host")
	case f.has("subnet"):
		e.MemberType = "subnet"
		parts := strings.Fields(f.take("subnet"))
		if len(parts) == 2 {
			if pfx, err := maskedPrefix(parts[0], parts[1]); err == nil {
				e.Value = pfx.String()
			} else {
				e.Value = strings.Join(parts, " ")
			}
		}
	case f.has("range"):
		e.MemberType = "range"
		e.Value = strings.ReplaceAll(f.take("range"), " ", "-")
	case f.has("fqdn"):
		e.MemberType, e.Value = "fqdn", f.take("fqdn")
	case f.has("service"):
		e.MemberType = "service"
		e.Value = f.take("service")
	case f.has("member"):
		e.MemberType = "members"
		e.Value = f.take("member")
	}

	e.VendorExtra = f.extra()
	return e, nil
}

// asaNAT walks a twice-NAT body: "(real,mapped) source static|dynamic
// REAL MAPPED [destination static MAPPED REAL] [service S1 S2]".
func (n *Normalizer) asaNAT(command string, rec grammar.RawRecord) (entity.Entity, []entity.Diagnostic) {
	f := newFields(rec)
	body := f.take("body")
	if body == "" {
		return nil, dropDiag(command, "nat record without a body")
	}
	e := entity.NatRule{}

	toks := strings.Fields(body)
	pos := 0
	if pos < len(toks) && strings.HasPrefix(toks[pos], "(") {
		e.Name = strings.Trim(toks[pos], "()")
		pos++
	}
	var opts []string
	for pos < len(toks) {
		switch toks[pos] {
		case "source":
			if pos+3 < len(toks) {
				opts = append(opts, "source "+toks[pos+1])
				e.Source = toks[pos+2]
				e.Translated = toks[pos+3]
				pos += 4
			} else {
				pos = len(toks)
			}
		case "destination":
			if pos+3 < len(toks) {
				e.Destination = toks[pos+2] + " -> " + toks[pos+3]
				pos += 4
			} else {
				pos = len(toks)
			}
		case "service":
			if pos+2 < len(toks) {
				e.Service = toks[pos+1] + " -> " + toks[pos+2]
				pos += 3
			} else if pos+1 < len(toks) {
				e.Service = toks[pos+1]
				pos += 2
			} else {
				pos++
			}
		default:
			opts = append(opts, toks[pos])
			pos++
		}
	}
	e.Options = strings.Join(opts, " ")
	e.VendorExtra = f.extra()

	if e.Source == "" && e.Name == "" {
		return nil, dropDiag(command, fmt.Sprintf("nat rule %q has no identity", body))
	}
	return e, nil
}
