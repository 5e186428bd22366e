// Package config assembles the daemon's two-layer configuration the way
// dcrlnd's config.go does: command-line flags (jessevdk/go-flags) override a
// TOML file (BurntSushi/toml), which overrides the defaults below. A subset
// of fields is additionally hot-reloadable via WatchTunables.
package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	flags "github.com/jessevdk/go-flags"
	"github.com/solmint/claimengine/internal/engine"
)

const (
	defaultConfigFilename = "claimengine.conf"

	// DefaultLogFilename, DefaultMaxLogFiles and DefaultMaxLogFileSize
	// parameterize the daemon's build.RotatingLogWriter.
	DefaultLogFilename    = "claimengine.log"
	DefaultMaxLogFiles    = 3
	DefaultMaxLogFileSize = 10

	defaultListenAddr  = "localhost:8686"
	defaultMetricsAddr = "localhost:8687"

	defaultSolanaRPCEndpoint = "https://api.mainnet-beta.solana.com"
	defaultIdentityBaseURL   = "http://localhost:9090"
	defaultAuditBaseURL      = "http://localhost:9091"

	// CollaboratorTimeout bounds every outbound identity/audit HTTP call.
	CollaboratorTimeout = 5 * time.Second

	defaultSplitPercentToClaimers = 90

	defaultRecencyWindow   = 360 * time.Second
	defaultPollInterval    = 200 * time.Millisecond
	defaultPollMaxAttempts = 20
	defaultPreparedTTL     = 5 * time.Minute
)

// Config is the fully-resolved set of knobs the daemon needs to assemble its
// collaborators. Everything except the Tunables-shaped fields requires a
// restart to change.
type Config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir    string `short:"d" long:"datadir" description:"Data directory (not read by the daemon; log files go under --logdir)"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	DebugLevel string `long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical"`

	ListenAddr  string `long:"listenaddr" description:"host:port the claims HTTP API listens on"`
	MetricsAddr string `long:"metricsaddr" description:"host:port the Prometheus /metrics endpoint listens on"`

	SolanaRPCEndpoint string `long:"solanarpcendpoint" description:"Solana JSON-RPC endpoint the chain gateway dials"`

	IdentityBaseURL string `long:"identitybaseurl" description:"Base URL of the identity registry collaborator"`
	AuditBaseURL    string `long:"auditbaseurl" description:"Base URL of the audit store collaborator"`

	MintAuthorityKeyFile string `long:"mintauthoritykeyfile" description:"Path to the protocol mint-authority keypair (JSON array of bytes)"`
	AdminWallet          string `long:"adminwallet" description:"Base58 admin wallet address receiving the claim residue"`

	SplitPercentToClaimers int64 `long:"splitpercenttoclaimers" description:"Percent of each claim minted to the claiming wallet; residue goes to the admin wallet"`

	TokensPerPeriod string        `long:"tokensperperiod" description:"Whole-unit emission amount granted per elapsed inflation period"`
	InflationPeriod time.Duration `long:"inflationperiod" description:"Fixed interval after which TokensPerPeriod more becomes claimable"`

	RecencyWindow   time.Duration `long:"recencywindow" description:"Minimum spacing enforced between two confirmed claims for the same token"`
	PollInterval    time.Duration `long:"pollinterval" description:"Interval between signatureStatus polls after submit"`
	PollMaxAttempts int           `long:"pollmaxattempts" description:"Maximum number of signatureStatus polls before ConfirmationTimeout"`
	PreparedTTL     time.Duration `long:"preparedttl" description:"Lifetime of a PreparedClaim before the registry sweep removes it"`

	MacaroonFile string `long:"macaroonfile" description:"Path to the bearer macaroon attached to outbound identity/audit requests"`
}

// Default returns the configuration's zero value populated with the
// defaults above, mirroring dcrlnd's defaultConfig().
func Default() Config {
	return Config{
		DataDir:                filepath.Join(".", "data"),
		LogDir:                 filepath.Join(".", "logs"),
		DebugLevel:             "info",
		ListenAddr:             defaultListenAddr,
		MetricsAddr:            defaultMetricsAddr,
		SolanaRPCEndpoint:      defaultSolanaRPCEndpoint,
		IdentityBaseURL:        defaultIdentityBaseURL,
		AuditBaseURL:           defaultAuditBaseURL,
		SplitPercentToClaimers: defaultSplitPercentToClaimers,
		InflationPeriod:        24 * time.Hour,
		RecencyWindow:          defaultRecencyWindow,
		PollInterval:           defaultPollInterval,
		PollMaxAttempts:        defaultPollMaxAttempts,
		PreparedTTL:            defaultPreparedTTL,
	}
}

// Load resolves flags, then a TOML file, over the defaults, the same
// precedence dcrlnd's loadConfig applies.
func Load(args []string) (*Config, error) {
	cfg := Default()

	preCfg := cfg
	parser := flags.NewParser(&preCfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	configFile := preCfg.ConfigFile
	if configFile == "" {
		configFile = defaultConfigFilename
	}

	if _, err := os.Stat(configFile); err == nil {
		if _, err := toml.DecodeFile(configFile, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configFile, err)
		}
	}

	parser = flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SplitPercentToClaimers < 0 || c.SplitPercentToClaimers > 100 {
		return fmt.Errorf("splitpercenttoclaimers must be in [0,100], got %d", c.SplitPercentToClaimers)
	}
	if c.MintAuthorityKeyFile == "" {
		return fmt.Errorf("mintauthoritykeyfile is required")
	}
	if c.AdminWallet == "" {
		return fmt.Errorf("adminwallet is required")
	}
	if c.PollMaxAttempts <= 0 {
		return fmt.Errorf("pollmaxattempts must be positive")
	}
	return nil
}

// TokensPerPeriodAmount parses TokensPerPeriod into a *big.Int, failing
// closed rather than falling back to a silent zero emission rate.
func (c *Config) TokensPerPeriodAmount() (*big.Int, error) {
	amount, ok := new(big.Int).SetString(c.TokensPerPeriod, 10)
	if !ok {
		return nil, fmt.Errorf("tokensperperiod %q is not a valid base-10 integer", c.TokensPerPeriod)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("tokensperperiod must be positive")
	}
	return amount, nil
}

// Tunables projects the hot-reloadable subset of Config into the shape
// engine.New expects.
func (c *Config) Tunables() engine.Tunables {
	return engine.Tunables{
		RecencyWindow:   c.RecencyWindow,
		PollInterval:    c.PollInterval,
		PollMaxAttempts: c.PollMaxAttempts,
	}
}
