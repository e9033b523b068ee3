package policy

import (
	"fmt"
	"regexp"
)

/*
Responsibilities

- Enforce the blocked-host list (hosts that opted out of proxying)
- Enforce the allowed-port set

Admission checks run at request construction, before any connection
attempt. Policy never inspects response content.
*/

type Checker struct {
	blockedHosts []*regexp.Regexp
	allowedPorts map[int]struct{}
}

// NewChecker compiles the blocked-host list into suffix-matching patterns.
// A blocked host also blocks all of its subdomains and tolerates a
// trailing dot in the requested name.
func NewChecker(blockedHosts []string, allowedPorts map[int]struct{}) (Checker, error) {
	patterns := make([]*regexp.Regexp, 0, len(blockedHosts))
	for _, host := range blockedHosts {
		pattern, err := regexp.Compile(fmt.Sprintf(`(?i)^(?:.+\.)?%s\.?$`, regexp.QuoteMeta(host)))
		if err != nil {
			return Checker{}, &PolicyError{
				Message: fmt.Sprintf("cannot compile pattern for host %q: %v", host, err),
				Cause:   ErrCauseBadPattern,
			}
		}
		patterns = append(patterns, pattern)
	}
	return Checker{
		blockedHosts: patterns,
		allowedPorts: allowedPorts,
	}, nil
}

// Admit decides whether the gateway may open a connection to host:port.
func (c *Checker) Admit(host string, port int) Decision {
	for _, pattern := range c.blockedHosts {
		if pattern.MatchString(host) {
			return Decision{
				allowed: false,
				reason: "This host has kindly requested that their content " +
					"not be accessed via web proxy.",
			}
		}
	}
	if _, ok := c.allowedPorts[port]; !ok {
		return Decision{
			allowed: false,
			reason:  fmt.Sprintf("Proxied content is disabled over port %d.", port),
		}
	}
	return Decision{allowed: true}
}
