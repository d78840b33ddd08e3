package dnscache

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Resolver turns a hostname into an address. The cache performs a single
// resolution attempt per miss and never retries on its own.
type Resolver interface {
	Resolve(ctx context.Context, hostname, recordType string) (string, error)
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(ctx context.Context, hostname, recordType string) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, hostname, recordType string) (string, error) {
	return f(ctx, hostname, recordType)
}

// NetResolver resolves hostnames through the standard library resolver.
type NetResolver struct {
	resolver *net.Resolver
}

// NewNetResolver creates a NetResolver using the default system resolver.
func NewNetResolver() *NetResolver {
	return &NetResolver{
		resolver: net.DefaultResolver,
	}
}

// Resolve returns the first address of the requested family. AAAA requests
// resolve to IPv6 addresses, everything else to IPv4.
func (r *NetResolver) Resolve(ctx context.Context, hostname, recordType string) (string, error) {
	var network = "ip4"
	if recordType == "AAAA" {
		network = "ip6"
	}

	addrs, err := r.resolver.LookupIP(ctx, network, hostname)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", hostname, err)
	}

	if len(addrs) == 0 {
		return "", fmt.Errorf("no %s addresses found for %s", recordType, hostname)
	}

	return addrs[0].String(), nil
}

// ChainResolver tries each resolver in order and returns the first success.
// If every resolver fails, the last error is returned.
type ChainResolver []Resolver

// Resolve walks the chain until one resolver produces an address.
func (c ChainResolver) Resolve(ctx context.Context, hostname, recordType string) (string, error) {
	if len(c) == 0 {
		return "", errors.New("no resolvers configured")
	}

	var lastErr error
	for _, resolver := range c {
		ip, err := resolver.Resolve(ctx, hostname, recordType)
		if err == nil {
			return ip, nil
		}
		lastErr = err
	}

	return "", lastErr
}
