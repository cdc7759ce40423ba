package loadbalance

import (
	"sort"
	"sync/atomic"

	"google.golang.org/grpc/balancer"
	"google.golang.org/grpc/balancer/base"
)

func init() {
	balancer.Register(
		base.NewBalancerBuilder(Name, PickerBuilder{}, base.Config{}),
	)
}

// PickerBuilder builds a Picker over the ready ledger connections
type PickerBuilder struct{}

var _ base.PickerBuilder = PickerBuilder{}

func (PickerBuilder) Build(info base.PickerBuildInfo) balancer.Picker {
	if len(info.ReadySCs) == 0 {
		return base.NewErrPicker(balancer.ErrNoSubConnAvailable)
	}

	type ready struct {
		addr string
		conn balancer.SubConn
	}
	var conns []ready
	for conn, sc := range info.ReadySCs {
		conns = append(conns, ready{addr: sc.Address.Addr, conn: conn})
	}
	// stable order so calls rotate through addresses as listed
	sort.Slice(conns, func(i, j int) bool { return conns[i].addr < conns[j].addr })

	p := &Picker{}
	for _, c := range conns {
		p.subConns = append(p.subConns, c.conn)
	}
	return p
}

// Picker round-robins calls over its connections
type Picker struct {
	subConns []balancer.SubConn
	current  uint64
}

var _ balancer.Picker = (*Picker)(nil)

func (p *Picker) Pick(balancer.PickInfo) (balancer.PickResult, error) {
	cur := atomic.AddUint64(&p.current, 1) - 1
	return balancer.PickResult{SubConn: p.subConns[cur%uint64(len(p.subConns))]}, nil
}
