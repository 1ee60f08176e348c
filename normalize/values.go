package normalize

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/techsift/techsift/entity"
	"github.com/techsift/techsift/grammar"
)

// fields wraps a raw record and tracks which keys a mapping consumed,
// so everything left over can be carried as vendor extras instead of
// being silently dropped.
type fields struct {
	rec  grammar.RawRecord
	used map[string]bool
}

func newFields(rec grammar.RawRecord) *fields {
	return &fields{rec: rec, used: make(map[string]bool)}
}

// take returns the value for key and marks it consumed. Absent keys
// return "".
func (f *fields) take(key string) string {
	v, ok := f.rec.Get(key)
	if ok {
		f.used[key] = true
	}
	return v
}

func (f *fields) has(key string) bool {
	_, ok := f.rec.Get(key)
	return ok
}

// extra returns the unconsumed fields, or nil when the mapping
// covered everything.
func (f *fields) extra() map[string]string {
	var out map[string]string
	for _, k := range f.rec.Keys() {
		if f.used[k] {
			continue
		}
		v, _ := f.rec.Get(k)
		if v == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[k] = v
	}
	return out
}

// parseStatus maps vendor status strings onto the three-state model.
// Anything unrecognized stays unknown rather than guessing.
func parseStatus(s string) entity.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "connected":
		return entity.StatusUp
	case "down", "notconnect", "notconnec", "disabled", "err-disabled",
		"errdisabled", "administratively down", "admin down", "sfpabsent",
		"noopermembers", "linkflaperrdisabled":
		return entity.StatusDown
	default:
		return entity.StatusUnknown
	}
}

// maskToBits converts a dotted-quad subnet mask to a prefix length.
func maskToBits(mask string) (int, error) {
	a, err := netip.ParseAddr(mask)
	if err != nil || !a.Is4() {
		return 0, fmt.Errorf("bad netmask %q", mask)
	}
	b := a.As4()
	bits := 0
	seenZero := false
	for _, octet := range b {
		for i := 7; i >= 0; i-- {
			if octet&(1<<i) != 0 {
				if seenZero {
					return 0, fmt.Errorf("non-contiguous netmask %q", mask)
				}
				bits++
			} else {
				seenZero = true
			}
		}
	}
	return bits, nil
}

// wildcardToPrefix converts an address plus Cisco wildcard mask into
// CIDR form by inverting the wildcard octets. 0.0.0.0 is an exact
// host (/32) and 255.255.255.255 matches everything (/0). A wildcard
// whose inversion is not a contiguous mask has no CIDR equivalent.
func wildcardToPrefix(addr, wildcard string) (netip.Prefix, error) {
	w, err := netip.ParseAddr(wildcard)
	if err != nil || !w.Is4() {
		return netip.Prefix{}, fmt.Errorf("bad wildcard %q", wildcard)
	}
	wb := w.As4()
	for i := range wb {
		wb[i] = ^wb[i]
	}
	inverted := netip.AddrFrom4(wb)
	bits, err := maskToBits(inverted.String())
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("wildcard %q has no prefix form", wildcard)
	}
	a, err := netip.ParseAddr(addr)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("bad address %q", addr)
	}
	return netip.PrefixFrom(a, bits), nil
}

// maskedPrefix converts address + dotted netmask into a prefix.
func maskedPrefix(addr, mask string) (netip.Prefix, error) {
	bits, err := maskToBits(mask)
	if err != nil {
		return netip.Prefix{}, err
	}
	a, err := netip.ParseAddr(addr)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("bad address %q", addr)
	}
	return netip.PrefixFrom(a, bits), nil
}

// parsePrefixOrHost parses "A.B.C.D/n" or a bare address. A bare
// IPv4 network address gets its classful length, a host address /32;
// this mirrors how IOS prints routes without masks.
func parsePrefixOrHost(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		return netip.ParsePrefix(s)
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	if a.Is4() {
		if bits := classfulBits(a); bits != 32 {
			masked, errM := a.Prefix(bits)
			if errM == nil && masked.Addr() == a {
				return netip.PrefixFrom(a, bits), nil
			}
		}
	}
	return netip.PrefixFrom(a, a.BitLen()), nil
}

func classfulBits(a netip.Addr) int {
	first := a.As4()[0]
	switch {
	case first < 128:
		return 8
	case first < 192:
		return 16
	case first < 224:
		return 24
	default:
		return 32
	}
}

// speedToBps parses interface speed notations into bits per second:
// "10000" Kbit bandwidth values (handled by the caller), and brief
// column values like "10G(D)", "1000", "auto".
func speedToBps(s string) int64 {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "auto" || s == "--" {
		return 0
	}
	mult := int64(1_000_000) // bare numbers are Mbit/s
	switch {
	case strings.HasSuffix(s, "G"):
		mult = 1_000_000_000
		s = strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "M"):
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "T"):
		mult = 1_000_000_000_000
		s = strings.TrimSuffix(s, "T")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n * mult
}

// portSpec normalizes ACL port expressions: "eq 443" becomes "443",
// "range 1024 2048" becomes "1024-2048", other operators keep their
// operator ("gt 1023").
func portSpec(s string) string {
	parts := strings.Fields(s)
	switch {
	case len(parts) == 2 && parts[0] == "eq":
		return parts[1]
	case len(parts) == 3 && parts[0] == "range":
		return parts[1] + "-" + parts[2]
	default:
		return s
	}
}

// aclCounter counts per-ACL rule positions so each AclRule carries a line
// number even when the vendor output has none.
type aclCounter map[string]int

func (c aclCounter) next(acl string) int {
	c[acl]++
	return c[acl]
}
