// Package loadbalance spreads ledger calls over several ledger addresses.
//
// Dial Target(addrs) and the connection resolves every address up front
// and round-robins calls over the ones that are ready.
package loadbalance

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/resolver"
	"google.golang.org/grpc/serviceconfig"
)

const Name = "ledger"

func init() {
	resolver.Register(Builder{})
}

// Target is the dial target for a fixed set of ledger addresses
func Target(addrs []string) string {
	return Name + ":///" + strings.Join(addrs, ",")
}

// Builder fulfills gRPC's resolver.Builder for the ledger scheme
type Builder struct{}

var _ resolver.Builder = Builder{}

func (Builder) Build(target resolver.Target, cc resolver.ClientConn, _ resolver.BuildOptions) (resolver.Resolver, error) {
	r := &Resolver{clientConn: cc}
	for _, addr := range strings.Split(target.Endpoint(), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			r.addrs = append(r.addrs, addr)
		}
	}
	if len(r.addrs) == 0 {
		return nil, errors.New("ledger resolver: no addresses")
	}

	r.serviceConfig = cc.ParseServiceConfig(
		fmt.Sprintf(`{"loadBalancingConfig":[{"%s":{}}]}`, Name),
	)
	r.ResolveNow(resolver.ResolveNowOptions{})
	return r, nil
}

func (Builder) Scheme() string {
	return Name
}

// Resolver hands the connection its fixed address list
type Resolver struct {
	clientConn    resolver.ClientConn
	addrs         []string
	serviceConfig *serviceconfig.ParseResult
}

var _ resolver.Resolver = (*Resolver)(nil)

func (r *Resolver) ResolveNow(resolver.ResolveNowOptions) {
	addrs := make([]resolver.Address, 0, len(r.addrs))
	for _, addr := range r.addrs {
		addrs = append(addrs, resolver.Address{Addr: addr})
	}
	// update state to inform the load balancer what servers it can choose from
	if err := r.clientConn.UpdateState(resolver.State{
		Addresses:     addrs,
		ServiceConfig: r.serviceConfig,
	}); err != nil {
		r.clientConn.ReportError(err)
	}
}

func (r *Resolver) Close() {}
