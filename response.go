package igd

import (
	"net/netip"
	"regexp"
	"strconv"
	"strings"
)

var externalIPPattern = regexp.MustCompile(`<NewExternalIPAddress>(\d+\.\d+\.\d+\.\d+)</NewExternalIPAddress>`)

// parseExternalIP extracts the NewExternalIPAddress value from a
// GetExternalIPAddress response.
func parseExternalIP(text string) (netip.Addr, error) {
	m := externalIPPattern.FindStringSubmatch(text)
	if len(m) != 2 || m[1] == "" {
		return netip.Addr{}, invalidResponse(actionGetExternalIP)
	}
	// octets may carry leading zeros, e.g. 192.168.001.010
	var octets [4]byte
	for i, p := range strings.Split(m[1], ".") {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return netip.Addr{}, invalidResponse(actionGetExternalIP)
		}
		octets[i] = byte(n)
	}
	return netip.AddrFrom4(octets), nil
}

// parseAck reports success iff the response element tag occurs in text.
// SOAP faults lack the tag and are therefore invalid responses.
func parseAck(text, name, tag string) error {
	if !strings.Contains(text, tag) {
		return invalidResponse(name)
	}
	return nil
}
