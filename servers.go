package redis

// Servers provides the list of endpoint addresses ("host:port").
// New connections are bound to these addresses in round-robin order.
type Servers interface {
	List() []string
}

// StaticServers is a fixed server list.
type StaticServers struct {
	addrs []string
}

// NewStaticServers returns a Servers implementation over a fixed list.
func NewStaticServers(addrs ...string) *StaticServers {
	return &StaticServers{addrs: append([]string(nil), addrs...)}
}

// List returns the configured addresses.
func (s *StaticServers) List() []string {
	return s.addrs
}
