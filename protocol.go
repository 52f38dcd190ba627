package igd

import (
	"fmt"
	"strings"
)

// Protocol is the transport protocol of a port mapping.
type Protocol int

const (
	TCP Protocol = iota + 1
	UDP
)

// String returns the literal the gateway expects in NewProtocol.
func (p Protocol) String() string {
	switch p {
	case TCP:
		return "TCP"
	case UDP:
		return "UDP"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

func (p Protocol) valid() bool {
	return p == TCP || p == UDP
}

// ParseProtocol accepts "tcp" or "udp" in any case.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToUpper(s) {
	case "TCP":
		return TCP, nil
	case "UDP":
		return UDP, nil
	default:
		return 0, fmt.Errorf("invalid protocol: %q", s)
	}
}

// Set implements pflag.Value.
func (p *Protocol) Set(s string) error {
	v, err := ParseProtocol(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Type implements pflag.Value.
func (p *Protocol) Type() string { return "protocol" }
