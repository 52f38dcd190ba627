package igd

import (
	"encoding/xml"
	"fmt"
	"net/netip"
	"strings"
)

const (
	actionGetExternalIP      = "GetExternalIPAddress"
	actionAddPortMapping     = "AddPortMapping"
	actionDeletePortMapping  = "DeletePortMapping"
	ackAddPortMapping        = "u:AddPortMappingResponse"
	ackDeletePortMapping     = "u:DeletePortMappingResponse"
	getExternalIPSOAPAction  = `"urn:schemas-upnp-org:service:WANIPConnection:1#GetExternalIPAddress"`
	addPortMappingSOAPAction = `"urn:schemas-upnp-org:service:WANIPConnection:1#AddPortMapping"`
	delPortMappingSOAPAction = `"urn:schemas-upnp-org:service:WANIPConnection:1#DeletePortMapping"`
)

const getExternalIPRequest = `<SOAP-ENV:Envelope SOAP-ENV:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/" xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
    <SOAP-ENV:Body>
        <m:GetExternalIPAddress xmlns:m="urn:schemas-upnp-org:service:WANIPConnection:1">
        </m:GetExternalIPAddress>
    </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

// Placeholders in order: protocol, external port, internal client, internal port,
// lease duration, description.
const addPortMappingRequest = `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
<s:Body>
    <u:AddPortMapping xmlns:u="urn:schemas-upnp-org:service:WANIPConnection:1">
        <NewProtocol>%s</NewProtocol>
        <NewExternalPort>%d</NewExternalPort>
        <NewInternalClient>%s</NewInternalClient>
        <NewInternalPort>%d</NewInternalPort>
        <NewLeaseDuration>%d</NewLeaseDuration>
        <NewPortMappingDescription>%s</NewPortMappingDescription>
        <NewEnabled>1</NewEnabled>
        <NewRemoteHost></NewRemoteHost>
    </u:AddPortMapping>
</s:Body>
</s:Envelope>
`

const deletePortMappingRequest = `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
  <s:Body>
    <u:DeletePortMapping xmlns:u="urn:schemas-upnp-org:service:WANIPConnection:1">
      <NewProtocol>%s</NewProtocol>
      <NewExternalPort>%d</NewExternalPort>
      <NewRemoteHost></NewRemoteHost>
    </u:DeletePortMapping>
  </s:Body>
</s:Envelope>
`

// action is a single SOAP request: the SOAPACTION header value and the envelope.
type action struct {
	name       string
	soapAction string
	body       string
}

func newGetExternalIPAction() action {
	return action{
		name:       actionGetExternalIP,
		soapAction: getExternalIPSOAPAction,
		body:       getExternalIPRequest,
	}
}

func newAddPortMappingAction(proto Protocol, externalPort uint16, internal netip.AddrPort, leaseDuration uint32, description string) action {
	return action{
		name:       actionAddPortMapping,
		soapAction: addPortMappingSOAPAction,
		body: fmt.Sprintf(addPortMappingRequest,
			proto, externalPort, internal.Addr().Unmap(), internal.Port(),
			leaseDuration, escapeText(description)),
	}
}

func newDeletePortMappingAction(proto Protocol, externalPort uint16) action {
	return action{
		name:       actionDeletePortMapping,
		soapAction: delPortMappingSOAPAction,
		body:       fmt.Sprintf(deletePortMappingRequest, proto, externalPort),
	}
}

func escapeText(s string) string {
	if !strings.ContainsAny(s, "<>&'\"\r\n\t") {
		return s
	}
	var b strings.Builder
	// strings.Builder never fails
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
