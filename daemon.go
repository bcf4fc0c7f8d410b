package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mailgun/holster/v4/syncutil"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ssgreg/repeat"

	"github.com/unitstake/poolmgr/internal/lib/ledger"
	"github.com/unitstake/poolmgr/internal/lib/misc"
	"github.com/unitstake/poolmgr/internal/lib/wallet"
)

// Daemon provides a 'little' separation in that we initialize it with data
// from the App global set up by the process startup, but the Daemon does its
// own periodic retrieval and recomputation from there.
type Daemon struct {
	logger      *slog.Logger
	ledger      *ledger.Ledger
	walletStore *wallet.Store
	signalDir   string
}

func newDaemon(signalDir string) *Daemon {
	return &Daemon{
		logger:      App.logger,
		ledger:      App.ledger,
		walletStore: App.walletStore,
		signalDir:   signalDir,
	}
}

func (d *Daemon) start(ctx context.Context, wg *sync.WaitGroup, port int) {
	d.logger.Info("Starting poolmgr daemon")

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.WalletSignalWatcher(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.MetricsRefresher(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.serveHTTP(ctx, port)
	}()
}

// WalletSignalWatcher polls the signal directory for confirmation files
// dropped by the wallet tooling and applies them to the confirmation store.
func (d *Daemon) WalletSignalWatcher(ctx context.Context) {
	defer d.logger.Info("Exiting WalletSignalWatcher")
	d.logger.Info("Starting WalletSignalWatcher", "dir", d.signalDir)

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(30 * time.Second):
			applied, err := d.ingestSignals(ctx)
			if err != nil {
				misc.Warnf(d.logger, "wallet signal ingestion failed: %v", err)
				break
			}
			if applied > 0 {
				// confirmations may have made rewards resolvable
				d.refreshClaimable(ctx)
			}
		}
	}
}

// ingestSignals retries transient directory errors with jittered backoff so a
// slow or remounting signal volume doesn't drop confirmations.
func (d *Daemon) ingestSignals(ctx context.Context) (int, error) {
	var applied int
	err := repeat.Repeat(
		repeat.Fn(func() error {
			var err error
			applied, err = d.walletStore.IngestSignalDir(d.signalDir, d.logger)
			if err != nil {
				return repeat.HintTemporary(err)
			}
			return nil
		}),
		repeat.StopOnSuccess(),
		repeat.LimitMaxTries(5),
		repeat.WithDelay(
			repeat.SetContextHintStop(),
			(&repeat.FullJitterBackoffBuilder{
				BaseDelay: 1 * time.Second,
				MaxDelay:  5 * time.Second,
			}).Set(),
		),
	)
	return applied, err
}

// MetricsRefresher pushes ledger aggregates into the prometheus gauges on an
// aligned interval.
func (d *Daemon) MetricsRefresher(ctx context.Context) {
	defer d.logger.Info("Exiting MetricsRefresher")
	d.logger.Info("Starting MetricsRefresher")

	const refreshInterval = 1 * time.Minute

	if err := d.ledger.RefreshMetrics(); err != nil {
		misc.Warnf(d.logger, "metrics refresh failed: %v", err)
	}
	d.refreshClaimable(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(durationToNextRefresh(time.Now(), refreshInterval)):
			if err := d.ledger.RefreshMetrics(); err != nil {
				misc.Warnf(d.logger, "metrics refresh failed: %v", err)
				break
			}
			d.refreshClaimable(ctx)
		}
	}
}

// refreshClaimable recomputes the total resolvable-but-unpaid reward across
// every position, fanning the per-entity scans out.
func (d *Daemon) refreshClaimable(ctx context.Context) {
	entities, err := d.ledger.Entities()
	if err != nil {
		misc.Warnf(d.logger, "claimable recompute failed listing entities: %v", err)
		return
	}

	var (
		fanOut  = syncutil.NewFanOut(10)
		totalCh = make(chan float64, 2)
	)
	for _, entity := range entities {
		if !entity.Finalized {
			continue
		}
		fanOut.Run(func(val any) error {
			e := val.(*ledger.Entity)
			contribs, err := d.ledger.Contributions(e.ID)
			if err != nil {
				return err
			}
			var subtotal float64
			for _, c := range contribs {
				reward, err := d.ledger.ClaimableReward(e.ID, c.Sender, c.Recipient)
				if err != nil {
					return err
				}
				subtotal += ledger.AmountInUnits(reward)
			}
			totalCh <- subtotal
			return nil
		}, entity)
	}
	var errs []error
	go func() {
		errs = fanOut.Wait()
		close(totalCh)
	}()
	var total float64
	for subtotal := range totalCh {
		total += subtotal
	}
	if len(errs) > 0 {
		misc.Warnf(d.logger, "claimable recompute failed: %v", errs[0])
		return
	}
	ledger.SetClaimableRewardMetric(total)
	misc.Debugf(d.logger, "claimable reward total refreshed: %.6f units", total)
}

func (d *Daemon) serveHTTP(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	misc.Infof(d.logger, "serving metrics/health on port:%d", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		misc.Errorf(d.logger, "http server error: %v", err)
	}
}

// durationToNextRefresh returns how long to wait so refreshes land on
// interval boundaries rather than drifting with processing time.
func durationToNextRefresh(now time.Time, interval time.Duration) time.Duration {
	next := now.Truncate(interval).Add(interval)
	return next.Sub(now)
}
