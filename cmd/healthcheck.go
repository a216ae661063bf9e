package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theapemachine/busrpc/broker"
	"github.com/theapemachine/busrpc/config"
	"github.com/theapemachine/busrpc/health"
	"github.com/theapemachine/busrpc/healthhandler"
	"github.com/theapemachine/busrpc/producer"
	"github.com/theapemachine/busrpc/wire"
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Call the Health/CHECK resource and print its snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealthcheck(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}

// runHealthcheck drives one producer.Client.Call against the running
// process's Health resource, exiting non-zero when the snapshot reports
// Unhealthy.
func runHealthcheck(ctx context.Context) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	conn := broker.New(cfg.Broker)
	defer conn.Close()

	client := producer.NewClient(producer.New(conn, cfg.Broker))

	callCtx, cancel := context.WithTimeout(ctx, cfg.Broker.TimeoutOrDefault()+5*time.Second)
	defer cancel()

	reply, err := client.Call(callCtx, cfg.Queue, &wire.BusMessage{
		Type:     wire.Infra,
		Resource: healthhandler.Resource,
		Action:   "CHECK",
	})
	if err != nil {
		return err
	}

	var snap health.Snapshot
	if err := json.Unmarshal([]byte(reply), &snap); err != nil {
		return fmt.Errorf("healthcheck: decode snapshot: %w", err)
	}

	fmt.Printf("status=%s db=%s\n", snap.Status, snap.DB)
	if snap.Status == health.Unhealthy {
		return fmt.Errorf("healthcheck: unhealthy")
	}
	return nil
}
