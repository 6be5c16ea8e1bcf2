// Command gateway wires the B2BUA call engine, the clock/timing service,
// the media relay plane, the CDR emitter, the Prometheus exporter, and the
// management API into one process, following the teacher's
// services/signaling/app.SwitchBoard lifecycle: build every subsystem,
// register SIP request handlers, start listening, and unwind cleanly on
// signal.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emiago/sipgo"
	"github.com/emiago/sipgo/sip"

	"github.com/redfire/gateway/internal/api"
	"github.com/redfire/gateway/internal/b2bua"
	"github.com/redfire/gateway/internal/clock"
	"github.com/redfire/gateway/internal/codec"
	"github.com/redfire/gateway/internal/config"
	"github.com/redfire/gateway/internal/events"
	"github.com/redfire/gateway/internal/logging"
	"github.com/redfire/gateway/internal/metrics"
	"github.com/redfire/gateway/internal/sipstack"
)

var log = logging.Component("app")

func main() {
	cfg := config.Load()
	if err := cfg.CompileRouting(); err != nil {
		log.Error("invalid routing config", "error", err)
		os.Exit(1)
	}
	store := config.NewStore(cfg)

	if err := run(store); err != nil {
		log.Error("gateway exited with error", "error", err)
		os.Exit(1)
	}
}

func run(store *config.Store) error {
	snap := store.Load()

	ua, err := sipgo.NewUA()
	if err != nil {
		return fmt.Errorf("app: create user agent: %w", err)
	}
	defer ua.Close()

	uas, err := sipgo.NewServer(ua)
	if err != nil {
		return fmt.Errorf("app: create server: %w", err)
	}
	uac, err := sipgo.NewClient(ua)
	if err != nil {
		return fmt.Errorf("app: create client: %w", err)
	}

	host, port := splitBindAddr(snap.SIP.Bind)
	localContact := sip.Uri{Scheme: "sip", User: "gateway", Host: host, Port: port}
	dialogUA := &sipgo.DialogUA{Client: uac, ContactHDR: sip.ContactHeader{Address: localContact}}

	manager := sipstack.NewManager(uac, dialogUA, localContact)
	codecs := codec.NewRegistry()
	router := b2bua.NewRouter(store)

	metricsReg := metrics.New()

	cdrPublisher := events.NewChannelPublisher(events.NewMultiPublisher(events.NewLoggingPublisher(nil)), 256)
	defer cdrPublisher.Close()

	engine := b2bua.NewEngine(b2bua.Options{
		Manager:      manager,
		Router:       router,
		Codecs:       codecs,
		Config:       store,
		Publisher:    cdrPublisher,
		NumWorkers:   8,
		LocalContact: localContact,
		BindAddr:     host,
	})

	clockSvc := buildClockService(snap)

	uas.OnRequest(sip.INVITE, engine.HandleInvite)
	uas.OnRequest(sip.BYE, func(req *sip.Request, tx sip.ServerTransaction) {
		if err := manager.HandleBYE(req, tx); err != nil {
			log.Debug("BYE handling note", "error", err)
		}
	})
	uas.OnRequest(sip.ACK, func(req *sip.Request, tx sip.ServerTransaction) {
		if err := manager.ConfirmACK(req, tx); err != nil {
			log.Debug("ACK handling note", "error", err)
		}
	})
	uas.OnRequest(sip.CANCEL, func(req *sip.Request, tx sip.ServerTransaction) {
		if err := manager.HandleCANCEL(req, tx); err != nil {
			log.Debug("CANCEL handling note", "error", err)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go clockSvc.Run(ctx)
	defer clockSvc.Stop()

	adminSvc := api.NewService(engine, clockSvc, store)
	adminServer := api.NewServer(":9090", adminSvc)
	if err := adminServer.Start(); err != nil {
		return fmt.Errorf("app: start management API: %w", err)
	}
	defer adminServer.Stop()

	metricsSrv := &http.Server{Addr: ":9100", Handler: metricsReg.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", "error", err)
		}
	}()
	defer metricsSrv.Shutdown(context.Background())

	stop := startMetricsPump(ctx, metricsReg, engine, clockSvc, cdrPublisher)
	defer stop()

	log.Info("gateway starting", "sip_bind", snap.SIP.Bind, "management_addr", ":9090", "metrics_addr", ":9100")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- uas.ListenAndServe(ctx, "udp", snap.SIP.Bind)
	}()

	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig)
		cancel()
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("app: SIP listener: %w", err)
		}
		return nil
	}
}

// buildClockService builds the Clock & Timing Service with the internal
// oscillator fallback always present (spec.md §4.A), matching the active
// Snapshot's selection algorithm.
func buildClockService(snap *config.Snapshot) *clock.Service {
	svc := clock.NewService(
		clock.WithAlgorithm(algorithmFromName(snap.Timing.SelectionAlgorithm)),
		clock.WithHoldover(time.Duration(snap.Timing.HoldoverSeconds)*time.Second),
		clock.WithMaxFrequencyOffsetPPB(snap.Timing.MaxFrequencyOffsetPPB),
	)
	if snap.Timing.EnableInternal {
		if err := svc.AddSource(clock.NewInternalOscillator("internal")); err != nil {
			log.Error("failed to add internal clock source", "error", err)
		}
	}
	return svc
}

func algorithmFromName(s string) clock.Algorithm {
	switch s {
	case "lowest_error":
		return clock.AlgorithmLowestError
	case "most_stable":
		return clock.AlgorithmMostStable
	case "manual":
		return clock.AlgorithmManual
	default:
		return clock.AlgorithmHighestStratum
	}
}

// splitBindAddr splits a "host:port" bind address into its parts,
// defaulting to port 5060 if the address carries none.
func splitBindAddr(bind string) (string, int) {
	host, portStr, err := splitHostPort(bind)
	if err != nil {
		return bind, 5060
	}
	port := 5060
	fmt.Sscanf(portStr, "%d", &port)
	return host, port
}

func splitHostPort(hostport string) (host, port string, err error) {
	for i := len(hostport) - 1; i >= 0; i-- {
		if hostport[i] == ':' {
			return hostport[:i], hostport[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("app: no port in address %q", hostport)
}

// startMetricsPump polls the engine/clock/events counters on a short
// interval and writes them into the Prometheus gauges, the way the
// teacher's health-check loop polls transport state (services/signaling/
// transport/grpc.go's pool health loop) rather than pushing metrics
// inline on every call-engine event.
func startMetricsPump(ctx context.Context, reg *metrics.Registry, engine *b2bua.Engine, clockSvc *clock.Service, cdr *events.ChannelPublisher) func() {
	done := make(chan struct{})
	var lastDropped, lastPassthrough, lastTranscoded uint64
	go func() {
		defer close(done)
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reg.ActiveCalls.Set(float64(engine.CallCount()))

				if dropped := cdr.DropCount(); dropped > lastDropped {
					reg.CDREmitterDropped.Add(float64(dropped - lastDropped))
					lastDropped = dropped
				}

				if _, stratum, ok := clockSvc.GetSelected(); ok {
					reg.ClockStratum.Set(float64(stratum))
				}
				for _, src := range clockSvc.GetSources() {
					active := 0.0
					if src.IsActive {
						active = 1.0
					}
					reg.ClockSelectedSource.WithLabelValues(src.ID, src.Kind.String()).Set(active)
				}

				passthrough, transcoded := engine.CodecCounts()
				if passthrough > lastPassthrough {
					reg.TranscoderPassthrough.Add(float64(passthrough - lastPassthrough))
					lastPassthrough = passthrough
				}
				if transcoded > lastTranscoded {
					reg.TranscoderTranscoded.Add(float64(transcoded - lastTranscoded))
					lastTranscoded = transcoded
				}
			}
		}
	}()
	return func() { <-done }
}
