package igd

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/netip"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	_ NAT = (*upnpNAT)(nil)
)

func discoverUPNP(ctx context.Context, cfg Config) <-chan NAT {
	res := make(chan NAT, 1)
	go func() {
		gateways, err := DiscoverIGDs(ctx, cfg)
		if err != nil {
			log.Debugf("igd: UPnP discovery failed: %v", err)
			return
		}

		client := NewClient(cfg.NewTransport())
		for _, gw := range gateways {
			// only offer gateways that actually answer control requests
			if _, err := client.GetExternalIP(ctx, gw); err != nil {
				log.Warnf("igd: skipping gateway %s: %v", gw, err)
				continue
			}
			res <- NewUPNP(client, gw)
			return
		}
	}()
	return res
}

type upnpNAT struct {
	c  *Client
	gw Gateway
}

// NewUPNP returns a NAT that drives gw through c.
func NewUPNP(c *Client, gw Gateway) NAT {
	return &upnpNAT{c: c, gw: gw}
}

func (u *upnpNAT) Type() string { return "UPNP (WANIPConnection:1)" }

func (u *upnpNAT) GetDeviceAddress() (net.IP, error) {
	return u.gw.ip(), nil
}

func (u *upnpNAT) GetInternalAddress() (net.IP, error) {
	return internalAddressFor(u.gw.ip())
}

func (u *upnpNAT) GetExternalAddress(ctx context.Context) (net.IP, error) {
	ip, err := u.c.GetExternalIP(ctx, u.gw)
	if err != nil {
		return nil, err
	}
	return net.IP(ip.AsSlice()), nil
}

func (u *upnpNAT) AddPortMapping(ctx context.Context, protocol Protocol, externalPort, internalPort int, description string, lease time.Duration) (int, error) {
	if externalPort < 0 || externalPort > math.MaxUint16 || internalPort < 0 || internalPort > math.MaxUint16 {
		return 0, fmt.Errorf("port out of range: %d -> %d", externalPort, internalPort)
	}
	if lease < 0 || lease/time.Second > math.MaxUint32 {
		return 0, fmt.Errorf("lease out of range: %s", lease)
	}
	ip, err := u.GetInternalAddress()
	if err != nil {
		return 0, err
	}
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return 0, errNoInternalAddress
	}

	leaseSeconds := uint32(lease / time.Second)
	random := externalPort == 0

	numTries := 1
	if random {
		numTries = 3
	}
	for i := 0; i < numTries; i++ {
		ext, in := pickExternalPort(externalPort, internalPort)
		internal := netip.AddrPortFrom(addr.Unmap(), uint16(in))
		err = u.c.AddPort(ctx, u.gw, protocol, uint16(ext), internal, leaseSeconds, description)
		if err == nil {
			return ext, nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	if random && IsInvalidResponse(err) {
		return 0, fmt.Errorf("%w: %v", errNoAvailableExternalPort, err)
	}
	return 0, err
}

func (u *upnpNAT) DeletePortMapping(ctx context.Context, protocol Protocol, externalPort int) error {
	if externalPort <= 0 || externalPort > math.MaxUint16 {
		return fmt.Errorf("port out of range: %d", externalPort)
	}
	return u.c.RemovePort(ctx, u.gw, protocol, uint16(externalPort))
}
