package loadbalance_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/resolver"
	"google.golang.org/grpc/serviceconfig"

	"transactions/internal/loadbalance"
)

func TestResolver(t *testing.T) {
	clientConn := &clientConn{}
	target := resolver.Target{URL: url.URL{Scheme: loadbalance.Name, Path: "/localhost:9001, localhost:9002"}}

	r, err := loadbalance.Builder{}.Build(target, clientConn, resolver.BuildOptions{})
	require.NoError(t, err)
	defer r.Close()

	wantState := resolver.State{
		Addresses: []resolver.Address{
			{Addr: "localhost:9001"},
			{Addr: "localhost:9002"},
		},
	}
	require.Equal(t, wantState, clientConn.state)

	// reset state and check that it works again
	clientConn.state.Addresses = nil
	r.ResolveNow(resolver.ResolveNowOptions{})
	require.Equal(t, wantState, clientConn.state)
}

func TestResolverNeedsAddresses(t *testing.T) {
	target := resolver.Target{URL: url.URL{Scheme: loadbalance.Name, Path: "/"}}
	_, err := loadbalance.Builder{}.Build(target, &clientConn{}, resolver.BuildOptions{})
	require.Error(t, err)
}

func TestTarget(t *testing.T) {
	require.Equal(t, "ledger:///a:1,b:2", loadbalance.Target([]string{"a:1", "b:2"}))
}

type clientConn struct {
	resolver.ClientConn
	state resolver.State
}

func (c *clientConn) UpdateState(state resolver.State) error {
	c.state = state
	return nil
}

func (c *clientConn) ReportError(err error) {}

func (c *clientConn) ParseServiceConfig(config string) *serviceconfig.ParseResult {
	return nil
}
