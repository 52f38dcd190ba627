package main

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	igd "github.com/nknorg/go-igd"
)

const (
	logLevelFlag  = "log-level"
	gatewayFlag   = "gateway"
	locationFlag  = "location"
	timeoutFlag   = "timeout"
	retryFlag     = "retry"
	searchFlag    = "search-wait"
	externalFlag  = "external-port"
	internalFlag  = "internal"
	protoFlag     = "proto"
	leaseFlag     = "lease"
	descFlag      = "description"
	defaultDesc   = "igdc"
	defaultSearch = 2 * time.Second
)

var (
	logLevel     string
	gatewayURL   string
	locationURL  string
	timeout      time.Duration
	retryFor     time.Duration
	searchWait   time.Duration
	externalPort uint16
	internalAddr string
	proto        = igd.TCP
	lease        time.Duration
	forwardLease time.Duration
	description  string

	rootCmd = &cobra.Command{
		Use:           "igdc",
		Short:         "UPnP IGD port mapping client",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
	}
)

func init() {
	cfg := igd.DefaultConfig()
	rootCmd.PersistentFlags().StringVarP(&logLevel, logLevelFlag, "l", "warn", "sets the log level")
	rootCmd.PersistentFlags().StringVarP(&gatewayURL, gatewayFlag, "g", "", "control URL of the gateway's WANIPConnection service, e.g. http://192.168.1.1:5000/ctl/IPConn")
	rootCmd.PersistentFlags().StringVar(&locationURL, locationFlag, "", "URL of the gateway's root device description")
	rootCmd.PersistentFlags().DurationVar(&timeout, timeoutFlag, cfg.RequestTimeout, "timeout of a single request to the gateway")
	rootCmd.PersistentFlags().DurationVar(&retryFor, retryFlag, 0, "keep retrying failed requests for this long (0 disables retries)")
	rootCmd.PersistentFlags().DurationVar(&searchWait, searchFlag, defaultSearch, "how long to wait for SSDP answers")

	rootCmd.AddCommand(discoverCmd, externalIPCmd, addCmd, removeCmd, forwardCmd, versionCmd)
}

func config() igd.Config {
	cfg := igd.DefaultConfig()
	cfg.RequestTimeout = timeout
	cfg.SearchWait = searchWait
	cfg.Retry.MaxElapsedTime = retryFor
	return cfg
}

func newClient() *igd.Client {
	return igd.NewClient(config().NewTransport())
}

// selectGateway resolves the gateway from --gateway, then --location, and
// falls back to SSDP discovery.
func selectGateway(ctx context.Context) (igd.Gateway, error) {
	if gatewayURL != "" {
		return igd.ParseGatewayURL(gatewayURL)
	}
	if locationURL != "" {
		return igd.GatewayFromLocation(ctx, locationURL)
	}
	gateways, err := igd.DiscoverIGDs(ctx, config())
	if err != nil {
		return igd.Gateway{}, err
	}
	if len(gateways) == 0 {
		return igd.Gateway{}, fmt.Errorf("no UPnP gateway found, use --%s", gatewayFlag)
	}
	log.Infof("using gateway %s", gateways[0])
	return gateways[0], nil
}

// internalAddress parses --internal, filling in the local address facing gw
// and the external port when they are omitted.
func internalAddress(gw igd.Gateway, s string, port uint16) (netip.AddrPort, error) {
	if s == "" {
		ip, err := localAddrFor(gw)
		if err != nil {
			return netip.AddrPort{}, err
		}
		return netip.AddrPortFrom(ip, port), nil
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap, nil
	}
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("invalid --%s %q: want ip or ip:port", internalFlag, s)
	}
	return netip.AddrPortFrom(ip, port), nil
}

// localAddrFor returns the local address the kernel routes gw through.
func localAddrFor(gw igd.Gateway) (netip.Addr, error) {
	conn, err := net.Dial("udp4", gw.Addr.String())
	if err != nil {
		return netip.Addr{}, err
	}
	defer conn.Close()
	ap, err := netip.ParseAddrPort(conn.LocalAddr().String())
	if err != nil {
		return netip.Addr{}, err
	}
	return ap.Addr().Unmap(), nil
}
