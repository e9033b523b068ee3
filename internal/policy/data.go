package policy

// Hosts that have requested that their content be removed from the proxy.
var DefaultBlockedHosts = []string{
	"vger.cloud",
	"warpengineer.space",
	"michaelnordmeyer.com",
}

// Ports that the proxied servers can be hosted on.
func DefaultAllowedPorts() map[int]struct{} {
	ports := map[int]struct{}{
		70:   {},
		77:   {},
		79:   {},
		300:  {},
		301:  {},
		3000: {},
		3333: {},
		1900: {},
		5699: {},
		8070: {},
	}
	for p := 1960; p <= 2020; p++ {
		ports[p] = struct{}{}
	}
	for p := 7000; p <= 7099; p++ {
		ports[p] = struct{}{}
	}
	return ports
}

// Decision is the admission outcome for one (host, port) pair.
type Decision struct {
	allowed bool
	reason  string
}

func (d Decision) Allowed() bool { return d.allowed }

func (d Decision) Reason() string { return d.reason }
