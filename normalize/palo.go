package normalize

import (
	"strings"

	"github.com/techsift/techsift/entity"
	"github.com/techsift/techsift/grammar"
)

// Palo Alto security rules land in the ACL table: the rule name keys
// the entry and zones travel as vendor extras since the canonical
// schema has no zone columns on ACL rules.
func (n *Normalizer) paloSecurityRule(command string, rec grammar.RawRecord, acls aclCounter) (entity.Entity, []entity.Diagnostic) {
	f := newFields(rec)
	name := f.take("name")
	if name == "" {
		return nil, dropDiag(command, "security rule without a name")
	}
	e := entity.AclRule{
		ACL:         name,
		Line:        acls.next("security"),
		Action:      f.take("action"),
		Source:      f.take("source"),
		Destination: f.take("destination"),
		DestPort:    f.take("service"),
	}
	if d := f.take("disabled"); strings.EqualFold(d, "yes") {
		e.Inactive = true
	}
	e.VendorExtra = f.extra()
	return e, nil
}

func (n *Normalizer) paloNATRule(command string, rec grammar.RawRecord) (entity.Entity, []entity.Diagnostic) {
	f := newFields(rec)
	name := f.take("name")
	if name == "" {
		return nil, dropDiag(command, "nat rule without a name")
	}
	e := entity.NatRule{
		Name:        name,
		Source:      f.take("source"),
		Destination: f.take("destination"),
		Service:     f.take("service"),
		Translated:  f.take("translation"),
	}
	var opts []string
	if from := f.take("from_zone"); from != "" {
		opts = append(opts, "from "+from)
	}
	if to := f.take("to_zone"); to != "" {
		opts = append(opts, "to "+to)
	}
	e.Options = strings.Join(opts, " ")
	if dt := f.take("dest_translation"); dt != "" {
		if e.Translated == "" {
			e.Translated = dt
		} else {
			e.Translated += "; " + dt
		}
	}
	e.VendorExtra = f.extra()
	return e, nil
}

func (n *Normalizer) paloObject(command string, rec grammar.RawRecord) (entity.Entity, []entity.Diagnostic) {
	f := newFields(rec)
	name := f.take("name")
	if name == "" {
		return nil, dropDiag(command, "object without a name")
	}
	e := entity.AddressObject{
		Name:        name,
		MemberType:  f.take("member_type"),
		Value:       f.take("value"),
		Protocol:    f.take("protocol"),
		Port:        f.take("port"),
		Description: f.take("description"),
	}
	switch rec.Type {
	case "address_object":
		e.ObjectType = "address"
	case "service_object":
		e.ObjectType = "service"
	}
	e.VendorExtra = f.extra()
	return e, nil
}
