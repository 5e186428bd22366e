// Package claimengine assembles the Emission Claim Engine daemon: it wires
// the chain gateway, identity/audit collaborators, and engine.Engine behind
// the HTTP API, the way dcrlnd's top-level Main() wires rpcserver,
// lnwallet, and the channel router behind lnd's gRPC surface.
package claimengine

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/solmint/claimengine/build"
	"github.com/solmint/claimengine/internal/api"
	"github.com/solmint/claimengine/internal/audit"
	"github.com/solmint/claimengine/internal/config"
	"github.com/solmint/claimengine/internal/eligibility"
	"github.com/solmint/claimengine/internal/engine"
	"github.com/solmint/claimengine/internal/gateway"
	"github.com/solmint/claimengine/internal/identity"
	"github.com/solmint/claimengine/internal/streamhub"
	"github.com/solmint/claimengine/internal/txbuilder"
	"github.com/solmint/claimengine/signal"
	"gopkg.in/macaroon.v2"
)

// Daemon is the fully assembled, running process: the HTTP listener plus
// everything it takes down cleanly on Shutdown.
type Daemon struct {
	api        *api.Listener
	metrics    *http.Server
	tunables   *config.TunablesWatcher
	logRotator *build.RotatingLogWriter
}

// New assembles every collaborator named in cfg and returns a Daemon ready
// for Run. It reads the mint-authority key file and, when configured, the
// macaroon file, and starts the tunables file watcher; the log file is
// opened by the caller before New runs.
func New(cfg *config.Config, logRotator *build.RotatingLogWriter) (*Daemon, error) {
	mintAuthority, err := solana.PrivateKeyFromSolanaKeygenFile(cfg.MintAuthorityKeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading mint authority key: %w", err)
	}

	adminWallet, err := solana.PublicKeyFromBase58(cfg.AdminWallet)
	if err != nil {
		return nil, fmt.Errorf("parsing admin wallet: %w", err)
	}

	tokensPerPeriod, err := cfg.TokensPerPeriodAmount()
	if err != nil {
		return nil, err
	}

	gw := gateway.New(cfg.SolanaRPCEndpoint)
	identityClient := identity.New(cfg.IdentityBaseURL, config.CollaboratorTimeout)
	auditClient := audit.New(cfg.AuditBaseURL, config.CollaboratorTimeout)

	if cfg.MacaroonFile != "" {
		encoded, err := loadMacaroon(cfg.MacaroonFile)
		if err != nil {
			return nil, fmt.Errorf("loading macaroon: %w", err)
		}
		identityClient.WithMacaroon(encoded)
		auditClient.WithMacaroon(encoded)
	}

	tunables, err := config.WatchTunables(cfg.ConfigFile, cfg.Tunables())
	if err != nil {
		clngLog.Warnf("tunables hot-reload disabled: %v", err)
	}

	tunablesFn := cfg.Tunables
	if tunables != nil {
		tunablesFn = tunables.Get
	}

	hub := streamhub.New()

	eng := engine.New(engine.Config{
		Gateway:  gw,
		Identity: identityClient,
		Audit:    auditClient,
		EligibilityParams: eligibility.Params{
			TokensPerPeriod: tokensPerPeriod,
			InflationPeriod: cfg.InflationPeriod,
		},
		TxConfig: txbuilder.Config{
			ProtocolMintAuthority:  mintAuthority.PublicKey(),
			AdminWallet:            adminWallet,
			SplitPercentToClaimers: cfg.SplitPercentToClaimers,
		},
		MintAuthority: mintAuthority,
		PreparedTTL:   cfg.PreparedTTL,
		Updates:       hub,
	}, tunablesFn)

	server := api.NewServer(eng, hub)

	listener, err := api.Listen(cfg.ListenAddr, server)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", cfg.ListenAddr, err)
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metrics := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}

	return &Daemon{api: listener, metrics: metrics, tunables: tunables, logRotator: logRotator}, nil
}

// Run starts serving and blocks until the interceptor's shutdown channel
// closes.
func (d *Daemon) Run(interceptor *signal.Interceptor) {
	d.api.Start()

	go func() {
		if err := d.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			clngLog.Errorf("metrics server stopped serving: %v", err)
		}
	}()
	clngLog.Infof("metrics server listening on %s", d.metrics.Addr)

	<-interceptor.ShutdownChannel()
	d.Shutdown()
}

// Shutdown drains the HTTP listener and closes ancillary resources.
func (d *Daemon) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.api.Stop(ctx); err != nil {
		clngLog.Errorf("api listener shutdown: %v", err)
	}
	if err := d.metrics.Shutdown(ctx); err != nil {
		clngLog.Errorf("metrics server shutdown: %v", err)
	}
	if d.tunables != nil {
		if err := d.tunables.Close(); err != nil {
			clngLog.Errorf("tunables watcher close: %v", err)
		}
	}
	if d.logRotator != nil {
		if err := d.logRotator.Close(); err != nil {
			clngLog.Errorf("log rotator close: %v", err)
		}
	}
}

// loadMacaroon reads and validates the macaroon at path, returning it
// base64-encoded for use as a bearer credential on outbound collaborator
// requests.
func loadMacaroon(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var mac macaroon.Macaroon
	if err := mac.UnmarshalBinary(raw); err != nil {
		return "", fmt.Errorf("parsing macaroon: %w", err)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}
