// Package domain resolves host names to IP addresses.
package domain

import (
	"context"
	"maps"
	"net"
	"net/netip"
	"slices"

	"github.com/pkg/errors"
)

var ErrDomainNotFound = errors.New("domain not found")

type Lookuper interface {
	LookupIP(ctx context.Context, domain string) (addrs []netip.Addr, err error)
}

type mapLookuper struct {
	set map[string][]netip.Addr
}

var _ Lookuper = (*mapLookuper)(nil)

func NewMapLookuper(set map[string][]netip.Addr) *mapLookuper {
	if set == nil {
		set = make(map[string][]netip.Addr)
	}
	clone := make(map[string][]netip.Addr, len(set))
	for domain, addrs := range set {
		if len(addrs) == 0 {
			continue
		}
		clone[domain] = slices.Clone(addrs)
	}
	return &mapLookuper{set: clone}
}

func (m *mapLookuper) LookupIP(ctx context.Context, domain string) (addrs []netip.Addr, err error) {
	addrs, ok := m.set[domain]
	if !ok {
		return nil, ErrDomainNotFound
	}
	return slices.Clone(addrs), nil
}

func (m *mapLookuper) Set(domain string, addrs []netip.Addr) {
	if len(addrs) == 0 {
		return
	}
	m.set[domain] = slices.Clone(addrs)
}

func (m *mapLookuper) Del(domain string) { delete(m.set, domain) }

func (m *mapLookuper) Domains() []string {
	return slices.Sorted(maps.Keys(m.set))
}

type resolverLookuper struct {
	r *net.Resolver
}

var _ Lookuper = (*resolverLookuper)(nil)

// NewResolverLookuper resolves names through r, or the system resolver if r is nil.
func NewResolverLookuper(r *net.Resolver) *resolverLookuper {
	if r == nil {
		r = net.DefaultResolver
	}
	return &resolverLookuper{r: r}
}

func (rl *resolverLookuper) LookupIP(ctx context.Context, domain string) ([]netip.Addr, error) {
	addrs, err := rl.r.LookupNetIP(ctx, "ip4", domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, errors.Wrapf(ErrDomainNotFound, "%s", domain)
		}
		return nil, errors.Wrapf(err, "resolving %s", domain)
	}
	if len(addrs) == 0 {
		return nil, errors.Wrapf(ErrDomainNotFound, "%s", domain)
	}

	for i, addr := range addrs {
		addrs[i] = addr.Unmap()
	}
	return addrs, nil
}
