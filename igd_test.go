package igd

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testGateway = Gateway{
	Addr:        netip.MustParseAddrPort("192.168.1.1:5000"),
	ControlPath: "/ctl/IPConn",
}

func TestGatewayURL(t *testing.T) {
	assert.Equal(t, "http://192.168.1.1:5000/ctl/IPConn", testGateway.URL())
	assert.Equal(t, testGateway.URL(), testGateway.String())
}

func TestParseGatewayURL(t *testing.T) {
	gw, err := ParseGatewayURL("http://192.168.1.1:5000/ctl/IPConn")
	require.NoError(t, err)
	assert.Equal(t, testGateway, gw)

	gw, err = ParseGatewayURL("http://10.0.0.1/upnp/control?svc=wanip")
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddrPort("10.0.0.1:80"), gw.Addr)
	assert.Equal(t, "/upnp/control?svc=wanip", gw.ControlPath)

	for _, s := range []string{"https://10.0.0.1/ctl", "http://router.lan/ctl", "http://10.0.0.1:99999/ctl", "::"} {
		_, err := ParseGatewayURL(s)
		assert.Error(t, err, s)
	}
}

func TestClientGetExternalIP(t *testing.T) {
	ft := &fakeTransport{reply: fmt.Sprintf(externalIPResponse, "203.0.113.7")}
	ip, err := NewClient(ft).GetExternalIP(context.Background(), testGateway)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("203.0.113.7"), ip)

	sent := ft.requests()
	require.Len(t, sent, 1)
	assert.Equal(t, "http://192.168.1.1:5000/ctl/IPConn", sent[0].url)
	assert.Equal(t, getExternalIPSOAPAction, sent[0].soapAction)
	assert.Equal(t, getExternalIPRequest, sent[0].body)
}

func TestClientGetExternalIPInvalid(t *testing.T) {
	ft := &fakeTransport{reply: fmt.Sprintf(externalIPResponse, "300.0.0.1")}
	_, err := NewClient(ft).GetExternalIP(context.Background(), testGateway)

	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, InvalidResponse, re.Kind)
	assert.Equal(t, actionGetExternalIP, re.Action)
}

func TestClientAddPort(t *testing.T) {
	ft := &fakeTransport{reply: addPortMappingResponse}
	c := NewClient(ft)

	err := c.AddPort(context.Background(), testGateway, TCP, 51413, netip.MustParseAddrPort("192.168.1.42:51413"), 0, "test")
	require.NoError(t, err)

	sent := ft.requests()
	require.Len(t, sent, 1)
	assert.Equal(t, addPortMappingSOAPAction, sent[0].soapAction)
	for _, e := range []string{
		"<NewProtocol>TCP</NewProtocol>",
		"<NewExternalPort>51413</NewExternalPort>",
		"<NewInternalClient>192.168.1.42</NewInternalClient>",
		"<NewInternalPort>51413</NewInternalPort>",
		"<NewLeaseDuration>0</NewLeaseDuration>",
		"<NewEnabled>1</NewEnabled>",
	} {
		assert.Contains(t, sent[0].body, e)
	}

	ft.reply = faultResponse
	err = c.AddPort(context.Background(), testGateway, TCP, 51413, netip.MustParseAddrPort("192.168.1.42:51413"), 0, "test")
	assert.True(t, IsInvalidResponse(err))
}

func TestClientRemovePort(t *testing.T) {
	ft := &fakeTransport{reply: deletePortMappingResponse}
	c := NewClient(ft)
	require.NoError(t, c.RemovePort(context.Background(), testGateway, UDP, 500))

	sent := ft.requests()
	require.Len(t, sent, 1)
	assert.Equal(t, delPortMappingSOAPAction, sent[0].soapAction)
	assert.Contains(t, sent[0].body, "<NewProtocol>UDP</NewProtocol>")

	ft.reply = addPortMappingResponse
	err := c.RemovePort(context.Background(), testGateway, UDP, 500)
	require.Error(t, err)
	assert.True(t, IsInvalidResponse(err))
	assert.False(t, IsTransportFailure(err))
}

func TestClientRejectsUnknownProtocol(t *testing.T) {
	ft := &fakeTransport{reply: addPortMappingResponse}
	c := NewClient(ft)

	err := c.AddPort(context.Background(), testGateway, Protocol(0), 51413, netip.MustParseAddrPort("192.168.1.42:51413"), 0, "test")
	assert.ErrorIs(t, err, errInvalidProtocol)

	err = c.RemovePort(context.Background(), testGateway, Protocol(7), 500)
	assert.ErrorIs(t, err, errInvalidProtocol)

	assert.Empty(t, ft.requests())
}

func TestClientTransportFailure(t *testing.T) {
	cause := errors.New("connection refused")
	c := NewClient(&fakeTransport{err: cause})

	_, err := c.GetExternalIP(context.Background(), testGateway)
	assert.True(t, IsTransportFailure(err))
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInvalidResponse)

	err = c.AddPort(context.Background(), testGateway, TCP, 1, netip.MustParseAddrPort("10.0.0.2:1"), 0, "")
	assert.ErrorIs(t, err, cause)

	err = c.RemovePort(context.Background(), testGateway, TCP, 1)
	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, TransportFailure, re.Kind)
	assert.Equal(t, actionDeletePortMapping, re.Action)
	assert.Contains(t, err.Error(), "transport failure")
}

func TestClientCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(&fakeTransport{reply: addPortMappingResponse}).GetExternalIP(ctx, testGateway)
	assert.True(t, IsTransportFailure(err))
	assert.ErrorIs(t, err, context.Canceled)
}
