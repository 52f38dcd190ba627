package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var forwardCmd = &cobra.Command{
	Use:   "forward",
	Short: "maps a port until interrupted, renewing the lease",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gw, err := selectGateway(ctx)
		if err != nil {
			return err
		}
		internal, err := internalAddress(gw, internalAddr, externalPort)
		if err != nil {
			return err
		}
		secs, err := leaseSeconds(forwardLease)
		if err != nil {
			return err
		}
		client := newClient()
		if err := client.AddPort(ctx, gw, proto, externalPort, internal, secs, description); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "forwarding %d/%s -> %s, interrupt to stop\n", externalPort, proto, internal)

		defer func() {
			// ctx is already cancelled here
			rctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := client.RemovePort(rctx, gw, proto, externalPort); err != nil {
				log.Errorf("failed to remove mapping %d/%s: %v", externalPort, proto, err)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d/%s\n", externalPort, proto)
		}()

		if secs == 0 {
			<-ctx.Done()
			return nil
		}
		ticker := time.NewTicker(forwardLease / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := client.AddPort(ctx, gw, proto, externalPort, internal, secs, description); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					log.Warnf("failed to renew mapping %d/%s: %v", externalPort, proto, err)
					continue
				}
				log.Debugf("renewed mapping %d/%s", externalPort, proto)
			}
		}
	},
}
