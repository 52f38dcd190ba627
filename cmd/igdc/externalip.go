package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var externalIPCmd = &cobra.Command{
	Use:   "external-ip",
	Short: "prints the gateway's external IPv4 address",
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := selectGateway(cmd.Context())
		if err != nil {
			return err
		}
		ip, err := newClient().GetExternalIP(cmd.Context(), gw)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ip)
		return nil
	},
}
