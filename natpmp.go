package igd

import (
	"context"
	"math"
	"net"
	"strings"
	"time"

	"github.com/jackpal/gateway"
	natpmp "github.com/jackpal/go-nat-pmp"
	log "github.com/sirupsen/logrus"
)

var (
	_ NAT = (*natpmpNAT)(nil)
)

// NAT-PMP has no permanent mappings, a zero lease asks for the longest one.
const natpmpMaxLifetime = math.MaxInt32

func discoverNATPMP(ctx context.Context) <-chan NAT {
	res := make(chan NAT, 1)

	ip, err := gateway.DiscoverGateway()
	if err != nil {
		log.Debugf("igd: no default gateway for NAT-PMP: %v", err)
		return res
	}
	go discoverNATPMPWithAddr(ctx, res, ip)

	return res
}

func discoverNATPMPWithAddr(ctx context.Context, c chan NAT, ip net.IP) {
	client := natpmp.NewClient(ip)
	if _, err := client.GetExternalAddress(); err != nil {
		log.Debugf("igd: NAT-PMP probe of %s failed: %v", ip, err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	c <- &natpmpNAT{client, ip}
}

type natpmpNAT struct {
	c       *natpmp.Client
	gateway net.IP
}

func (n *natpmpNAT) GetDeviceAddress() (addr net.IP, err error) {
	return n.gateway, nil
}

func (n *natpmpNAT) GetInternalAddress() (addr net.IP, err error) {
	return internalAddressFor(n.gateway)
}

func (n *natpmpNAT) GetExternalAddress(ctx context.Context) (addr net.IP, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := n.c.GetExternalAddress()
	if err != nil {
		return nil, err
	}

	d := res.ExternalIPAddress
	ip := net.IPv4(d[0], d[1], d[2], d[3])
	if ip.IsUnspecified() {
		return nil, errNoExternalAddress
	}
	return ip, nil
}

func natpmpProtocol(p Protocol) string {
	return strings.ToLower(p.String())
}

func natpmpLifetime(lease time.Duration) int {
	if lease <= 0 || lease/time.Second > natpmpMaxLifetime {
		return natpmpMaxLifetime
	}
	return int(lease / time.Second)
}

func (n *natpmpNAT) AddPortMapping(ctx context.Context, protocol Protocol, externalPort int, internalPort int, description string, lease time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	externalPort, internalPort = pickExternalPort(externalPort, internalPort)

	res, err := n.c.AddPortMapping(natpmpProtocol(protocol), internalPort, externalPort, natpmpLifetime(lease))
	if err != nil {
		return 0, err
	}
	return int(res.MappedExternalPort), nil
}

// DeletePortMapping asks for a zero lifetime. NAT-PMP identifies mappings by
// internal port, which is assumed to equal externalPort.
func (n *natpmpNAT) DeletePortMapping(ctx context.Context, protocol Protocol, externalPort int) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = n.c.AddPortMapping(natpmpProtocol(protocol), externalPort, 0, 0)
	return err
}

func (n *natpmpNAT) Type() string {
	return "NAT-PMP"
}
