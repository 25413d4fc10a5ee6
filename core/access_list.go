package core

import (
	"fmt"
	"net/netip"
	"strings"
)

// AccessList decides which client addresses may use the API.
// Deny entries win over allow entries; an empty allow list allows everyone not denied.
type AccessList struct {
	allow []netip.Prefix
	deny  []netip.Prefix
}

// NewAccessList parses CIDRs or bare IPs. It returns nil when both lists are empty.
func NewAccessList(allow, deny []string) (*AccessList, error) {
	acl := &AccessList{}

	var err error
	if acl.allow, err = parsePrefixes(allow); err != nil {
		return nil, fmt.Errorf("invalid allowed CIDRs: %w", err)
	}
	if acl.deny, err = parsePrefixes(deny); err != nil {
		return nil, fmt.Errorf("invalid denied CIDRs: %w", err)
	}

	if len(acl.allow) == 0 && len(acl.deny) == 0 {
		return nil, nil
	}
	return acl, nil
}

func parsePrefixes(list []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %q", raw)
			}
			out = append(out, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid IP %q", raw)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// Allows reports whether ip may connect. A nil list allows everything.
func (a *AccessList) Allows(ip string) bool {
	if a == nil {
		return true
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, p := range a.deny {
		if p.Contains(addr) {
			return false
		}
	}

	if len(a.allow) == 0 {
		return true
	}
	for _, p := range a.allow {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
