// Package igd is a UPnP Internet Gateway Device control point: it asks a NAT
// gateway for its external IPv4 address and adds or removes port mappings.
package igd

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Gateway locates the WANIPConnection control endpoint of an IGD.
type Gateway struct {
	Addr        netip.AddrPort
	ControlPath string
}

// URL returns the control URL requests are posted to.
func (g Gateway) URL() string {
	return "http://" + g.Addr.String() + g.ControlPath
}

func (g Gateway) String() string {
	return g.URL()
}

func (g Gateway) ip() net.IP {
	return net.IP(g.Addr.Addr().AsSlice())
}

// ParseGatewayURL builds a Gateway from a control URL such as
// http://192.168.1.1:5000/ctl/IPConn. The host must be an IP literal.
func ParseGatewayURL(s string) (Gateway, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Gateway{}, err
	}
	if u.Scheme != "http" {
		return Gateway{}, fmt.Errorf("unsupported control URL scheme %q", u.Scheme)
	}
	ip, err := netip.ParseAddr(u.Hostname())
	if err != nil {
		return Gateway{}, fmt.Errorf("control URL host: %w", err)
	}
	port := uint16(80)
	if p := u.Port(); p != "" {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return Gateway{}, fmt.Errorf("control URL port: %w", err)
		}
		port = uint16(n)
	}
	return Gateway{Addr: netip.AddrPortFrom(ip.Unmap(), port), ControlPath: u.RequestURI()}, nil
}

// Transport posts a SOAP envelope to url with the given SOAPACTION header
// and returns the response body.
type Transport interface {
	Send(ctx context.Context, url, soapAction, body string) (string, error)
}

// Client performs IGD actions over a Transport. It holds no per-call state
// and is safe for concurrent use.
type Client struct {
	transport Transport
}

func NewClient(t Transport) *Client {
	return &Client{transport: t}
}

// DefaultClient sends requests over an HTTPTransport built from DefaultConfig.
var DefaultClient = NewClient(NewHTTPTransport(DefaultConfig()))

func (c *Client) send(ctx context.Context, gw Gateway, a action) (string, error) {
	log.Debugf("igd: %s -> %s", a.name, gw.URL())
	text, err := c.transport.Send(ctx, gw.URL(), a.soapAction, a.body)
	if err != nil {
		log.Debugf("igd: %s to %s failed: %v", a.name, gw.URL(), err)
		return "", transportFailure(a.name, err)
	}
	return text, nil
}

// GetExternalIP asks the gateway for its external IPv4 address.
func (c *Client) GetExternalIP(ctx context.Context, gw Gateway) (netip.Addr, error) {
	text, err := c.send(ctx, gw, newGetExternalIPAction())
	if err != nil {
		return netip.Addr{}, err
	}
	return parseExternalIP(text)
}

// AddPort forwards externalPort/proto on the gateway to internal. Protocols
// other than TCP and UDP are rejected without contacting the gateway. A zero
// leaseDuration requests a permanent mapping. Re-adding the same
// (proto, externalPort) replaces the mapping according to the gateway's rules.
func (c *Client) AddPort(ctx context.Context, gw Gateway, proto Protocol, externalPort uint16, internal netip.AddrPort, leaseDuration uint32, description string) error {
	if !proto.valid() {
		return fmt.Errorf("igd %s: %w: %s", actionAddPortMapping, errInvalidProtocol, proto)
	}
	text, err := c.send(ctx, gw, newAddPortMappingAction(proto, externalPort, internal, leaseDuration, description))
	if err != nil {
		return err
	}
	return parseAck(text, actionAddPortMapping, ackAddPortMapping)
}

// RemovePort deletes the mapping for externalPort/proto.
func (c *Client) RemovePort(ctx context.Context, gw Gateway, proto Protocol, externalPort uint16) error {
	if !proto.valid() {
		return fmt.Errorf("igd %s: %w: %s", actionDeletePortMapping, errInvalidProtocol, proto)
	}
	text, err := c.send(ctx, gw, newDeletePortMappingAction(proto, externalPort))
	if err != nil {
		return err
	}
	return parseAck(text, actionDeletePortMapping, ackDeletePortMapping)
}

// GetExternalIP calls DefaultClient.GetExternalIP.
func GetExternalIP(ctx context.Context, gw Gateway) (netip.Addr, error) {
	return DefaultClient.GetExternalIP(ctx, gw)
}

// AddPort calls DefaultClient.AddPort.
func AddPort(ctx context.Context, gw Gateway, proto Protocol, externalPort uint16, internal netip.AddrPort, leaseDuration uint32, description string) error {
	return DefaultClient.AddPort(ctx, gw, proto, externalPort, internal, leaseDuration, description)
}

// RemovePort calls DefaultClient.RemovePort.
func RemovePort(ctx context.Context, gw Gateway, proto Protocol, externalPort uint16) error {
	return DefaultClient.RemovePort(ctx, gw, proto, externalPort)
}
