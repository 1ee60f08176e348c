package grammar

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/techsift/techsift/platform"
)

// Palo Alto configurations are a single XML document, not a line
// stream, so this grammar is a ParseFunc over a small node tree
// instead of a Machine.

type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
	Text     string     `xml:",chardata"`
}

func (n *xmlNode) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n *xmlNode) child(tag string) *xmlNode {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == tag {
			return &n.Children[i]
		}
	}
	return nil
}

func (n *xmlNode) children(tag string) []*xmlNode {
	var out []*xmlNode
	for i := range n.Children {
		if n.Children[i].XMLName.Local == tag {
			out = append(out, &n.Children[i])
		}
	}
	return out
}

// find returns the first descendant with the given tag, depth-first.
// PAN-OS nests the interesting subtrees at varying depths depending on
// whether the export came from a firewall or a Panorama template, so
// lookups search rather than walk fixed paths.
func (n *xmlNode) find(tag string) *xmlNode {
	if n.XMLName.Local == tag {
		return n
	}
	for i := range n.Children {
		if m := n.Children[i].find(tag); m != nil {
			return m
		}
	}
	return nil
}

func (n *xmlNode) text() string {
	return strings.TrimSpace(n.Text)
}

// memberList joins <member> children, or falls back to the element
// text for single-valued fields.
func (n *xmlNode) memberList() string {
	members := n.children("member")
	if len(members) == 0 {
		return n.text()
	}
	vals := make([]string, 0, len(members))
	for _, m := range members {
		if v := m.text(); v != "" {
			vals = append(vals, v)
		}
	}
	return strings.Join(vals, ", ")
}

func parsePaloAltoConfig(text string) ([]RawRecord, error) {
	var root xmlNode
	if err := xml.Unmarshal([]byte(text), &root); err != nil {
		return nil, fmt.Errorf("decode panos config: %w", err)
	}

	var records []RawRecord

	if sys := root.find("system"); sys != nil {
		if hn := sys.child("hostname"); hn != nil && hn.text() != "" {
			rec := NewRawRecord("device")
			rec.Set("hostname", hn.text())
			records = append(records, rec)
		}
	}

	if network := root.find("network"); network != nil {
		if iface := network.child("interface"); iface != nil {
			for _, family := range iface.Children {
				records = append(records, paloInterfaces(&family, family.XMLName.Local)...)
			}
		}
	}

	if policies := root.find("rulebase"); policies != nil {
		if sec := policies.find("security"); sec != nil {
			records = append(records, paloSecurityRules(sec)...)
		}
		if nat := policies.find("nat"); nat != nil {
			records = append(records, paloNATRules(nat)...)
		}
	}

	if vsys := root.find("vsys"); vsys != nil {
		records = append(records, paloObjects(vsys)...)
	} else {
		records = append(records, paloObjects(&root)...)
	}

	return records, nil
}

func paloInterfaces(family *xmlNode, ifaceType string) []RawRecord {
	var out []RawRecord
	for _, entry := range family.children("entry") {
		rec := NewRawRecord("interface")
		rec.Set("interface", entry.attr("name"))
		rec.Set("type", ifaceType)

		// Addressing sits directly under the entry for vlan and
		// loopback interfaces, under <layer3> for ethernet. Lookups
		// stay shallow so a parent never picks up its units' fields.
		scope := entry
		if l3 := entry.child("layer3"); l3 != nil {
			scope = l3
		}
		if ip := scope.child("ip"); ip != nil {
			var addrs []string
			for _, e := range ip.children("entry") {
				if v := e.attr("name"); v != "" {
					addrs = append(addrs, v)
				}
			}
			rec.Set("ip_address", strings.Join(addrs, ", "))
		}
		if c := entry.child("comment"); c != nil {
			rec.Set("description", c.text())
		}
		if tag := entry.child("tag"); tag != nil && tag.text() != "" {
			rec.Set("vlan", tag.text())
		}
		out = append(out, rec)

		// Layer 3 subinterfaces carry their own addressing.
		if units := scope.child("units"); units != nil {
			out = append(out, paloInterfaces(units, ifaceType)...)
		}
	}
	return out
}

func paloSecurityRules(sec *xmlNode) []RawRecord {
	rules := sec.find("rules")
	if rules == nil {
		return nil
	}
	var out []RawRecord
	for _, entry := range rules.children("entry") {
		rec := NewRawRecord("security_rule")
		rec.Set("name", entry.attr("name"))
		for _, f := range [...][2]string{
			{"action", "action"},
			{"from_zone", "from"},
			{"to_zone", "to"},
			{"source", "source"},
			{"destination", "destination"},
			{"service", "service"},
			{"application", "application"},
		} {
			if n := entry.child(f[1]); n != nil {
				rec.Set(f[0], n.memberList())
			}
		}
		if d := entry.child("disabled"); d != nil {
			rec.Set("disabled", d.text())
		}
		out = append(out, rec)
	}
	return out
}

func paloNATRules(nat *xmlNode) []RawRecord {
	rules := nat.find("rules")
	if rules == nil {
		return nil
	}
	var out []RawRecord
	for _, entry := range rules.children("entry") {
		rec := NewRawRecord("nat_rule")
		rec.Set("name", entry.attr("name"))
		for _, f := range [...][2]string{
			{"from_zone", "from"},
			{"to_zone", "to"},
			{"source", "source"},
			{"destination", "destination"},
			{"service", "service"},
		} {
			if n := entry.child(f[1]); n != nil {
				rec.Set(f[0], n.memberList())
			}
		}
		if st := entry.child("source-translation"); st != nil {
			rec.Set("translation", paloTranslation(st))
		}
		if dt := entry.child("destination-translation"); dt != nil {
			rec.Set("dest_translation", paloTranslation(dt))
		}
		out = append(out, rec)
	}
	return out
}

// paloTranslation flattens a translation subtree into "path=value"
// pairs, keeping the full structure without modeling every NAT mode.
func paloTranslation(n *xmlNode) string {
	var parts []string
	var walk func(node *xmlNode, path string)
	walk = func(node *xmlNode, path string) {
		if len(node.Children) == 0 {
			if v := node.text(); v != "" {
				parts = append(parts, path+"="+v)
			}
			return
		}
		for i := range node.Children {
			c := &node.Children[i]
			p := c.XMLName.Local
			if path != "" {
				p = path + "/" + p
			}
			walk(c, p)
		}
	}
	walk(n, "")
	return strings.Join(parts, " ")
}

func paloObjects(scope *xmlNode) []RawRecord {
	var out []RawRecord
	if addr := scope.find("address"); addr != nil {
		for _, entry := range addr.children("entry") {
			rec := NewRawRecord("address_object")
			rec.Set("name", entry.attr("name"))
			for _, kind := range []string{"ip-netmask", "ip-range", "fqdn"} {
				if n := entry.child(kind); n != nil {
					rec.Set("member_type", kind)
					rec.Set("value", n.text())
					break
				}
			}
			if d := entry.child("description"); d != nil {
				rec.Set("description", d.text())
			}
			out = append(out, rec)
		}
	}
	if svc := scope.find("service"); svc != nil {
		for _, entry := range svc.children("entry") {
			rec := NewRawRecord("service_object")
			rec.Set("name", entry.attr("name"))
			if proto := entry.child("protocol"); proto != nil && len(proto.Children) > 0 {
				p := &proto.Children[0]
				rec.Set("protocol", p.XMLName.Local)
				if port := p.child("port"); port != nil {
					rec.Set("port", port.text())
				}
			}
			out = append(out, rec)
		}
	}
	return out
}

func paloAltoDefinitions() []*Definition {
	return []*Definition{
		{
			Platform: platform.PaloAlto,
			Command:  "config",
			Parse:    parsePaloAltoConfig,
		},
	}
}
