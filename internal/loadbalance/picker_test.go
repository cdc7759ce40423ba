package loadbalance_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/balancer"
	"google.golang.org/grpc/balancer/base"
	"google.golang.org/grpc/resolver"

	"transactions/internal/loadbalance"
)

func TestPickerRoundRobins(t *testing.T) {
	picker, subConns := setupTest(3)
	info := balancer.PickInfo{FullMethodName: "/ledger.v1.Ledger/AdjustBalance"}

	for i := 0; i < 6; i++ {
		gotPickResult, err := picker.Pick(info)
		require.NoError(t, err)
		// addresses are picked in sorted order, cycling
		require.Same(t, subConns[i%3], gotPickResult.SubConn)
	}
}

func TestPickerWithoutReadyConns(t *testing.T) {
	picker, _ := setupTest(0)
	_, err := picker.Pick(balancer.PickInfo{})
	require.ErrorIs(t, err, balancer.ErrNoSubConnAvailable)
}

func setupTest(n int) (balancer.Picker, []*subConn) {
	var subConns []*subConn
	buildInfo := base.PickerBuildInfo{
		ReadySCs: make(map[balancer.SubConn]base.SubConnInfo),
	}
	for i := 0; i < n; i++ {
		addr := resolver.Address{Addr: fmt.Sprintf("localhost:900%d", i)}
		sc := &subConn{addrs: []resolver.Address{addr}}
		buildInfo.ReadySCs[sc] = base.SubConnInfo{Address: addr}
		subConns = append(subConns, sc)
	}
	return loadbalance.PickerBuilder{}.Build(buildInfo), subConns
}

// subConn implements balancer.SubConn
type subConn struct {
	balancer.SubConn
	addrs []resolver.Address
}

func (s *subConn) UpdateAddresses(addrs []resolver.Address) {
	s.addrs = addrs
}

func (s *subConn) Connect() {}
