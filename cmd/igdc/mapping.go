package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	addCmd = &cobra.Command{
		Use:   "add",
		Short: "adds a port mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, err := selectGateway(cmd.Context())
			if err != nil {
				return err
			}
			internal, err := internalAddress(gw, internalAddr, externalPort)
			if err != nil {
				return err
			}
			secs, err := leaseSeconds(lease)
			if err != nil {
				return err
			}
			if err := newClient().AddPort(cmd.Context(), gw, proto, externalPort, internal, secs, description); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d/%s -> %s\n", externalPort, proto, internal)
			return nil
		},
	}

	removeCmd = &cobra.Command{
		Use:   "remove",
		Short: "removes a port mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, err := selectGateway(cmd.Context())
			if err != nil {
				return err
			}
			return newClient().RemovePort(cmd.Context(), gw, proto, externalPort)
		},
	}
)

func init() {
	for _, c := range []*cobra.Command{addCmd, removeCmd, forwardCmd} {
		mappingFlags(c.Flags())
		_ = c.MarkFlagRequired(externalFlag)
	}
	for _, c := range []*cobra.Command{addCmd, forwardCmd} {
		c.Flags().StringVar(&internalAddr, internalFlag, "", "internal ip[:port] to forward to (default: local address facing the gateway, same port)")
		c.Flags().StringVar(&description, descFlag, defaultDesc, "description of the mapping")
	}
	addCmd.Flags().DurationVar(&lease, leaseFlag, 0, "lease duration (0 requests a permanent mapping)")
	forwardCmd.Flags().DurationVar(&forwardLease, leaseFlag, time.Hour, "lease duration, renewed at half-life")
}

func mappingFlags(fs *pflag.FlagSet) {
	fs.VarP(&proto, protoFlag, "p", "protocol, tcp or udp")
	fs.Uint16VarP(&externalPort, externalFlag, "e", 0, "external port")
}

func leaseSeconds(d time.Duration) (uint32, error) {
	if d < 0 || d/time.Second > 1<<32-1 {
		return 0, fmt.Errorf("invalid --%s %s", leaseFlag, d)
	}
	return uint32(d / time.Second), nil
}
