package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	charmlog "github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theapemachine/busrpc/broker"
	"github.com/theapemachine/busrpc/config"
	"github.com/theapemachine/busrpc/consumer"
	"github.com/theapemachine/busrpc/crudhandler"
	"github.com/theapemachine/busrpc/entity"
	"github.com/theapemachine/busrpc/health"
	"github.com/theapemachine/busrpc/healthhandler"
	"github.com/theapemachine/busrpc/metrics"
	"github.com/theapemachine/busrpc/router"
	"github.com/theapemachine/busrpc/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the busrpc consumer process",
	Long:  longServe,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe wires config, store, handlers and router into a Consumer and
// blocks until SIGINT/SIGTERM, per SPEC_FULL.md's CLI surface.
func runServe(ctx context.Context) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if err := cfg.ValidateResources(); err != nil {
		return err
	}

	logger := charmlog.Default()
	conn := broker.New(cfg.Broker)

	var prober health.Prober
	handlers := make([]router.Handler, 0, len(cfg.Resources)+1)

	for _, res := range cfg.Resources {
		st, err := newRecordStore(res)
		if err != nil {
			return err
		}
		handlers = append(handlers, crudhandler.New[*entity.Record](res.Name, st))
		if prober == nil {
			prober = st
		}
	}
	if prober == nil {
		prober = noopProber{}
	}
	handlers = append(handlers, healthhandler.New(prober))

	r, err := router.New(handlers...)
	if err != nil {
		return err
	}

	sink := metrics.NewPrometheus(prometheus.DefaultRegisterer)
	c := consumer.New(conn, cfg.Queue, r, consumer.WithLogger(logger), consumer.WithMetrics(sink))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutdown signal received")
		cancel()
	}()

	logger.Info("busrpcd serving", "queue", cfg.Queue, "resources", len(cfg.Resources))
	return c.Run(runCtx)
}

// newRecordStore builds the store backend named by res.Store.
func newRecordStore(res config.Resource) (store.Store[*entity.Record], error) {
	switch res.Store {
	case config.StoreBolt:
		path := fmt.Sprintf("%s.db", res.Name)
		return store.OpenBolt[*entity.Record](path, res.Name, entity.NewRecord)
	default:
		return store.NewMemory[*entity.Record](), nil
	}
}

type noopProber struct{}

func (noopProber) Ping(context.Context) error { return nil }

var longServe = `
Run busrpcd as a consumer: declare the configured request queue, route
incoming requests to the resources listed in config.yml, and reply on
each request's replyTo queue.
`
