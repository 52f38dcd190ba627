package igd

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/huin/goupnp"
	"github.com/huin/goupnp/dcps/internetgateway1"
	"github.com/koron/go-ssdp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	urnInternetGatewayDevice1 = "urn:schemas-upnp-org:device:InternetGatewayDevice:1"
	urnInternetGatewayDevice2 = "urn:schemas-upnp-org:device:InternetGatewayDevice:2"
)

var searchTargets = []string{
	urnInternetGatewayDevice1,
	urnInternetGatewayDevice2,
	internetgateway1.URN_WANIPConnection_1,
}

// Search sends SSDP M-SEARCH requests for gateway devices and returns the
// distinct description locations that answered within wait.
func Search(ctx context.Context, wait time.Duration) ([]string, error) {
	waitSec := int(wait / time.Second)
	if waitSec < 1 {
		waitSec = 1
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		locs []string
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, st := range searchTargets {
		st := st
		g.Go(func() error {
			services, err := searchCtx(ctx, st, waitSec)
			if err != nil {
				return fmt.Errorf("ssdp search %s: %w", st, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, s := range services {
				if s.Location == "" || seen[s.Location] {
					continue
				}
				log.Debugf("igd: %s answered at %s (%s)", s.Type, s.Location, s.Server)
				seen[s.Location] = true
				locs = append(locs, s.Location)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return locs, nil
}

// searchCtx runs the blocking ssdp.Search and gives up when ctx is done.
func searchCtx(ctx context.Context, st string, waitSec int) ([]ssdp.Service, error) {
	type result struct {
		services []ssdp.Service
		err      error
	}
	res := make(chan result, 1)
	go func() {
		services, err := ssdp.Search(st, waitSec, "")
		res <- result{services, err}
	}()
	select {
	case r := <-res:
		return r.services, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GatewayFromLocation fetches the device description at location and returns
// the control endpoint of its first WANIPConnection:1 service.
func GatewayFromLocation(ctx context.Context, location string) (Gateway, error) {
	loc, err := url.Parse(location)
	if err != nil {
		return Gateway{}, err
	}
	root, err := goupnp.DeviceByURLCtx(ctx, loc)
	if err != nil {
		return Gateway{}, fmt.Errorf("fetch device description: %w", err)
	}

	var control *url.URL
	root.Device.VisitServices(func(srv *goupnp.Service) {
		if control == nil && srv.ServiceType == internetgateway1.URN_WANIPConnection_1 {
			u := srv.ControlURL.URL
			control = &u
		}
	})
	if control == nil {
		return Gateway{}, errNoWANIPConnection
	}
	addr, err := resolveHostPort(ctx, control)
	if err != nil {
		return Gateway{}, err
	}
	return Gateway{Addr: addr, ControlPath: control.RequestURI()}, nil
}

func resolveHostPort(ctx context.Context, u *url.URL) (netip.AddrPort, error) {
	port := uint16(80)
	if p := u.Port(); p != "" {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return netip.AddrPort{}, fmt.Errorf("control URL port: %w", err)
		}
		port = uint16(n)
	}
	if ip, err := netip.ParseAddr(u.Hostname()); err == nil {
		return netip.AddrPortFrom(ip.Unmap(), port), nil
	}
	ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip4", u.Hostname())
	if err != nil {
		return netip.AddrPort{}, err
	}
	if len(ips) == 0 {
		return netip.AddrPort{}, fmt.Errorf("no IPv4 address for %s", u.Hostname())
	}
	return netip.AddrPortFrom(ips[0].Unmap(), port), nil
}

// DiscoverIGDs searches the local network and resolves every answering
// gateway that offers WANIPConnection:1.
func DiscoverIGDs(ctx context.Context, cfg Config) ([]Gateway, error) {
	locs, err := Search(ctx, cfg.SearchWait)
	if err != nil {
		return nil, err
	}

	gateways := make([]Gateway, len(locs))
	ok := make([]bool, len(locs))
	var g errgroup.Group
	for i, loc := range locs {
		i, loc := i, loc
		g.Go(func() error {
			gw, err := GatewayFromLocation(ctx, loc)
			if err != nil {
				log.Warnf("igd: skipping device at %s: %v", loc, err)
				return nil
			}
			gateways[i], ok[i] = gw, true
			return nil
		})
	}
	_ = g.Wait()

	var out []Gateway
	seen := make(map[Gateway]bool)
	for i, gw := range gateways {
		if ok[i] && !seen[gw] {
			seen[gw] = true
			out = append(out, gw)
		}
	}
	return out, nil
}
