package main

import (
	"fmt"

	"github.com/spf13/cobra"

	igd "github.com/nknorg/go-igd"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "lists UPnP gateways on the local network",
	RunE: func(cmd *cobra.Command, args []string) error {
		gateways, err := igd.DiscoverIGDs(cmd.Context(), config())
		if err != nil {
			return err
		}
		if len(gateways) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no gateways found")
			return nil
		}
		for _, gw := range gateways {
			fmt.Fprintln(cmd.OutOrStdout(), gw.URL())
		}
		return nil
	},
}
