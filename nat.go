package igd

import (
	"context"
	"math"
	"math/rand"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

// NAT is a port mapping service offered by the local gateway.
type NAT interface {
	// Type returns the kind of NAT port mapping service that is used
	Type() string

	// GetDeviceAddress returns the internal address of the gateway device.
	GetDeviceAddress() (addr net.IP, err error)

	// GetExternalAddress returns the external address of the gateway device.
	GetExternalAddress(ctx context.Context) (addr net.IP, err error)

	// GetInternalAddress returns the address of the local host.
	GetInternalAddress() (addr net.IP, err error)

	// AddPortMapping maps a port on the local host to an external port.
	// An externalPort of 0 picks a random one, an internalPort of 0 reuses
	// the external port. A zero lease requests a permanent mapping.
	AddPortMapping(ctx context.Context, protocol Protocol, externalPort, internalPort int, description string, lease time.Duration) (mappedExternalPort int, err error)

	// DeletePortMapping removes a port mapping.
	DeletePortMapping(ctx context.Context, protocol Protocol, externalPort int) (err error)
}

// DiscoverGateway attempts to find a gateway device, trying UPnP IGD and
// NAT-PMP in parallel and returning whichever answers first.
func DiscoverGateway(ctx context.Context, cfg Config) (NAT, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.DiscoveryTimeout)
	defer cancel()

	select {
	case nat := <-discoverUPNP(ctx, cfg):
		log.Debugf("igd: using %s", nat.Type())
		return nat, nil
	case nat := <-discoverNATPMP(ctx):
		log.Debugf("igd: using %s", nat.Type())
		return nat, nil
	case <-ctx.Done():
		return nil, errNoNATFound
	}
}

func randomPort() int {
	return rand.Intn(math.MaxUint16-10000) + 10000
}

// pickExternalPort applies the NAT.AddPortMapping port defaults.
func pickExternalPort(externalPort, internalPort int) (int, int) {
	if externalPort == 0 {
		externalPort = randomPort()
	}
	if internalPort == 0 {
		internalPort = externalPort
	}
	return externalPort, internalPort
}

// internalAddressFor returns the address of the local interface whose
// subnet contains gw.
func internalAddressFor(gw net.IP) (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			return nil, err
		}

		for _, addr := range addrs {
			switch x := addr.(type) {
			case *net.IPNet:
				if x.Contains(gw) {
					return x.IP, nil
				}
			}
		}
	}

	return nil, errNoInternalAddress
}
