// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/asset"
)

// Network selects the parameter set (notably the minimum-profit floor).
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// PricingMode selects how the advisory off-chain estimate is quoted.
type PricingMode string

const (
	// PricingDual buys on router A and sells on router B.
	PricingDual PricingMode = "dual"
	// PricingSingle round-trips through router A only.
	PricingSingle PricingMode = "single"
)

// WithdrawPolicy decides what happens to profits held by the strategy contract.
type WithdrawPolicy string

const (
	// WithdrawAlertOnly alerts and resets the ledger on threshold; no on-chain call.
	WithdrawAlertOnly WithdrawPolicy = "alert_only"
	// WithdrawEveryTrade appends the withdraw call to every bundle.
	WithdrawEveryTrade WithdrawPolicy = "every_trade"
	// WithdrawOnThreshold sends a separate withdraw bundle once the threshold is crossed.
	WithdrawOnThreshold WithdrawPolicy = "on_threshold"
)

// ExecutionMode selects how signed transactions reach the chain.
type ExecutionMode string

const (
	ExecutionBundle ExecutionMode = "bundle"
	ExecutionDirect ExecutionMode = "direct"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Network   NetworkConfig   `mapstructure:"network"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Contracts ContractsConfig `mapstructure:"contracts"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // set at runtime
}

// NetworkConfig holds the RPC endpoints. Endpoints are tried in order and the
// first successful answer wins.
type NetworkConfig struct {
	Name           Network       `mapstructure:"name"`
	ChainID        uint64        `mapstructure:"chain_id"`
	RPCURLs        []string      `mapstructure:"rpc_urls"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// WalletConfig holds the signing key. Only ever read from the environment.
type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}

// ContractsConfig holds the on-chain addresses the loop talks to.
type ContractsConfig struct {
	Strategy string `mapstructure:"strategy"`
	RouterA  string `mapstructure:"router_a"`
	RouterB  string `mapstructure:"router_b"`
	FactoryA string `mapstructure:"factory_a"`
	FactoryB string `mapstructure:"factory_b"`
	TokenIn  string `mapstructure:"token_in"`
	TokenOut string `mapstructure:"token_out"`
}

func (c ContractsConfig) StrategyAddress() common.Address { return common.HexToAddress(c.Strategy) }
func (c ContractsConfig) RouterAAddress() common.Address  { return common.HexToAddress(c.RouterA) }
func (c ContractsConfig) RouterBAddress() common.Address  { return common.HexToAddress(c.RouterB) }
func (c ContractsConfig) FactoryAAddress() common.Address { return common.HexToAddress(c.FactoryA) }
func (c ContractsConfig) FactoryBAddress() common.Address { return common.HexToAddress(c.FactoryB) }
func (c ContractsConfig) TokenInAddress() common.Address  { return common.HexToAddress(c.TokenIn) }
func (c ContractsConfig) TokenOutAddress() common.Address { return common.HexToAddress(c.TokenOut) }

// StrategyConfig holds the decision-loop parameters. Amounts are decimal
// strings in tokenIn units and converted once with Amounts.
type StrategyConfig struct {
	TradeSize         string         `mapstructure:"trade_size"`
	MinProfitMainnet  string         `mapstructure:"min_profit_mainnet"`
	MinProfitTestnet  string         `mapstructure:"min_profit_testnet"`
	WithdrawThreshold string         `mapstructure:"withdraw_threshold"`
	PollInterval      time.Duration  `mapstructure:"poll_interval"`
	TokenInDecimals   uint8          `mapstructure:"token_in_decimals"`
	TokenOutDecimals  uint8          `mapstructure:"token_out_decimals"`
	TokenInSymbol     string         `mapstructure:"token_in_symbol"`
	TokenOutSymbol    string         `mapstructure:"token_out_symbol"`
	PricingMode       PricingMode    `mapstructure:"pricing_mode"`
	WithdrawPolicy    WithdrawPolicy `mapstructure:"withdraw_policy"`
}

// ExecutionConfig configures signing and submission.
type ExecutionConfig struct {
	Mode                  ExecutionMode `mapstructure:"mode"`
	RelayURL              string        `mapstructure:"relay_url"`
	RelayAuthKey          string        `mapstructure:"relay_auth_key"`
	SimulateBundle        bool          `mapstructure:"simulate_bundle"`
	InclusionPollInterval time.Duration `mapstructure:"inclusion_poll_interval"`
	InclusionMaxPolls     int           `mapstructure:"inclusion_max_polls"`
	FallbackGasLimit      uint64        `mapstructure:"fallback_gas_limit"`
	WithdrawGasLimit      uint64        `mapstructure:"withdraw_gas_limit"`
	PriorityFeeGwei       string        `mapstructure:"priority_fee_gwei"`
}

// NotifyConfig configures operator alerts.
type NotifyConfig struct {
	Driver        string `mapstructure:"driver"` // log, smtp, webhook
	RatePerMinute int    `mapstructure:"rate_per_minute"`
	WebhookURL    string `mapstructure:"webhook_url"`
	SMTPHost      string `mapstructure:"smtp_host"`
	SMTPPort      int    `mapstructure:"smtp_port"`
	SMTPUser      string `mapstructure:"smtp_user"`
	SMTPPassword  string `mapstructure:"smtp_password"`
	EmailTo       string `mapstructure:"email_to"`
}

// JournalConfig configures the metrics record sink.
type JournalConfig struct {
	Driver      string `mapstructure:"driver"` // csv, postgres
	TradesPath  string `mapstructure:"trades_path"`
	DebugPath   string `mapstructure:"debug_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"` // zipkin, otlp-grpc, otlp-http, console
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig configures the health/status HTTP server.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Amounts are the strategy parameters in canonical base units.
type Amounts struct {
	TradeSize         *big.Int
	MinProfit         *big.Int
	WithdrawThreshold *big.Int
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext("read config"), apperror.WithCause(err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("unmarshal config"), apperror.WithCause(err))
	}
	cfg.Network.RPCURLs = splitList(cfg.Network.RPCURLs)
	cfg.applyExecutionDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Flashbots relay endpoints by chain. Other chains have no public bundle
// relay, so they default to direct submission.
var flashbotsRelays = map[uint64]string{
	asset.ChainIDEthereum: "https://relay.flashbots.net",
	asset.ChainIDSepolia:  "https://relay-sepolia.flashbots.net",
}

// applyExecutionDefaults picks the submission path from the chain id when
// the operator left it unset.
func (c *Config) applyExecutionDefaults() {
	relay, hasRelay := flashbotsRelays[c.Network.ChainID]
	if c.Execution.Mode == "" {
		c.Execution.Mode = ExecutionDirect
		if hasRelay {
			c.Execution.Mode = ExecutionBundle
		}
	}
	if c.Execution.Mode == ExecutionBundle && c.Execution.RelayURL == "" {
		c.Execution.RelayURL = relay
	}
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Network
	v.BindEnv("network.name", "ARB_NETWORK", "NETWORK")
	v.BindEnv("network.chain_id", "ARB_CHAIN_ID", "CHAIN_ID")
	v.BindEnv("network.rpc_urls", "ARB_RPC_URLS", "RPC_URL")

	// Wallet
	v.BindEnv("wallet.private_key", "ARB_PRIVATE_KEY", "PRIVATE_KEY")

	// Contracts
	v.BindEnv("contracts.strategy", "ARB_STRATEGY_CONTRACT", "ARBITRAGE_CONTRACT")
	v.BindEnv("contracts.router_a", "ARB_ROUTER_A", "UNISWAP_ROUTER_L2")
	v.BindEnv("contracts.router_b", "ARB_ROUTER_B", "SUSHI_ROUTER_L2")
	v.BindEnv("contracts.factory_a", "ARB_FACTORY_A", "UNISWAP_FACTORY_L2")
	v.BindEnv("contracts.factory_b", "ARB_FACTORY_B", "SUSHI_FACTORY_L2")
	v.BindEnv("contracts.token_in", "ARB_TOKEN_IN", "TOKEN0_ADDRESS")
	v.BindEnv("contracts.token_out", "ARB_TOKEN_OUT", "TOKEN1_ADDRESS")

	// Strategy
	v.BindEnv("strategy.trade_size", "ARB_TRADE_SIZE")
	v.BindEnv("strategy.withdraw_threshold", "ARB_WITHDRAW_THRESHOLD")
	v.BindEnv("strategy.withdraw_policy", "ARB_WITHDRAW_POLICY")
	v.BindEnv("strategy.pricing_mode", "ARB_PRICING_MODE")
	v.BindEnv("strategy.poll_interval", "ARB_POLL_INTERVAL")
	v.BindEnv("strategy.min_profit_mainnet", "ARB_MIN_PROFIT_MAINNET")
	v.BindEnv("strategy.min_profit_testnet", "ARB_MIN_PROFIT_TESTNET")
	v.BindEnv("strategy.token_in_decimals", "ARB_TOKEN_IN_DECIMALS")
	v.BindEnv("strategy.token_out_decimals", "ARB_TOKEN_OUT_DECIMALS")
	v.BindEnv("strategy.token_in_symbol", "ARB_TOKEN_IN_SYMBOL")
	v.BindEnv("strategy.token_out_symbol", "ARB_TOKEN_OUT_SYMBOL")

	// Execution
	v.BindEnv("execution.mode", "ARB_EXECUTION_MODE")
	v.BindEnv("execution.relay_url", "ARB_RELAY_URL", "FLASHBOTS_RELAY_URL")
	v.BindEnv("execution.relay_auth_key", "ARB_RELAY_AUTH_KEY", "FLASHBOTS_AUTH_KEY")

	// Notify
	v.BindEnv("notify.driver", "ARB_NOTIFY_DRIVER")
	v.BindEnv("notify.webhook_url", "ARB_NOTIFY_WEBHOOK_URL", "SLACK_WEBHOOK_URL")
	v.BindEnv("notify.smtp_user", "ARB_SMTP_USER", "EMAIL_USER")
	v.BindEnv("notify.smtp_password", "ARB_SMTP_PASSWORD", "EMAIL_PASS")
	v.BindEnv("notify.email_to", "ARB_EMAIL_TO", "EMAIL_TO")

	// Journal
	v.BindEnv("journal.driver", "ARB_JOURNAL_DRIVER")
	v.BindEnv("journal.postgres_dsn", "ARB_POSTGRES_DSN", "DATABASE_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "arbitrage-executor")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("network.name", string(NetworkMainnet))
	v.SetDefault("network.chain_id", asset.ChainIDArbitrum)
	v.SetDefault("network.request_timeout", "10s")

	v.SetDefault("strategy.trade_size", "0.05")
	v.SetDefault("strategy.min_profit_mainnet", "0.0001")
	v.SetDefault("strategy.min_profit_testnet", "0.00001")
	v.SetDefault("strategy.withdraw_threshold", "0.2")
	v.SetDefault("strategy.poll_interval", "60s")
	v.SetDefault("strategy.token_in_decimals", 18)
	v.SetDefault("strategy.token_out_decimals", 18)
	v.SetDefault("strategy.token_in_symbol", "TOKEN0")
	v.SetDefault("strategy.token_out_symbol", "TOKEN1")
	v.SetDefault("strategy.pricing_mode", string(PricingDual))
	v.SetDefault("strategy.withdraw_policy", string(WithdrawAlertOnly))

	v.SetDefault("execution.simulate_bundle", true)
	v.SetDefault("execution.inclusion_poll_interval", "2s")
	v.SetDefault("execution.inclusion_max_polls", 15)
	v.SetDefault("execution.fallback_gas_limit", 500000)
	v.SetDefault("execution.withdraw_gas_limit", 120000)
	v.SetDefault("execution.priority_fee_gwei", "0.01")

	v.SetDefault("notify.driver", "log")
	v.SetDefault("notify.rate_per_minute", 30)
	v.SetDefault("notify.smtp_host", "smtp.gmail.com")
	v.SetDefault("notify.smtp_port", 587)

	v.SetDefault("journal.driver", "csv")
	v.SetDefault("journal.trades_path", "metrics.csv")
	v.SetDefault("journal.debug_path", "debug.csv")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "arbitrage-executor")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)

	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", 8081)
}

// Validate checks required values. Every failure is a CodeConfigurationError
// so the caller can exit with status 1.
func (c *Config) Validate() error {
	if len(c.Network.RPCURLs) == 0 {
		return configErr("network.rpc_urls is required")
	}
	switch c.Network.Name {
	case NetworkMainnet, NetworkTestnet:
	default:
		return configErr(fmt.Sprintf("network.name must be mainnet or testnet, got %q", c.Network.Name))
	}

	if c.Wallet.PrivateKey == "" {
		return configErr("wallet.private_key is required (set PRIVATE_KEY)")
	}

	addrs := map[string]string{
		"contracts.strategy":  c.Contracts.Strategy,
		"contracts.router_a":  c.Contracts.RouterA,
		"contracts.token_in":  c.Contracts.TokenIn,
		"contracts.token_out": c.Contracts.TokenOut,
	}
	if c.Strategy.PricingMode == PricingDual {
		addrs["contracts.router_b"] = c.Contracts.RouterB
	}
	for key, val := range addrs {
		if !common.IsHexAddress(val) {
			return configErr(fmt.Sprintf("invalid %s: %q", key, val))
		}
	}

	switch c.Strategy.PricingMode {
	case PricingDual, PricingSingle:
	default:
		return configErr(fmt.Sprintf("unknown strategy.pricing_mode %q", c.Strategy.PricingMode))
	}
	switch c.Strategy.WithdrawPolicy {
	case WithdrawAlertOnly, WithdrawEveryTrade, WithdrawOnThreshold:
	default:
		return configErr(fmt.Sprintf("unknown strategy.withdraw_policy %q", c.Strategy.WithdrawPolicy))
	}
	if c.Strategy.PollInterval <= 0 {
		return configErr("strategy.poll_interval must be positive")
	}

	// Gas cost is booked against profit one to one, so token_in has to be
	// the wrapped gas coin.
	if c.Strategy.TokenInDecimals != 18 {
		return configErr(fmt.Sprintf("strategy.token_in_decimals must be 18, got %d: token_in must be the wrapped native gas token", c.Strategy.TokenInDecimals))
	}
	if wrapped, ok := asset.WrappedNative(c.Network.ChainID); ok && c.Contracts.TokenInAddress() != wrapped {
		return configErr(fmt.Sprintf("contracts.token_in must be the wrapped native token %s on chain %d", wrapped.Hex(), c.Network.ChainID))
	}

	amounts, err := c.Amounts()
	if err != nil {
		return err
	}
	if amounts.TradeSize.Sign() <= 0 {
		return configErr("strategy.trade_size must be positive")
	}
	if amounts.MinProfit.Sign() < 0 {
		return configErr("minimum profit cannot be negative")
	}
	if amounts.WithdrawThreshold.Sign() <= 0 {
		return configErr("strategy.withdraw_threshold must be positive")
	}

	switch c.Execution.Mode {
	case ExecutionBundle:
		if c.Execution.RelayURL == "" {
			return configErr("execution.relay_url is required in bundle mode")
		}
		for chainID, url := range flashbotsRelays {
			if c.Execution.RelayURL == url && chainID != c.Network.ChainID {
				return configErr(fmt.Sprintf("execution.relay_url %s serves chain %d, not %d", url, chainID, c.Network.ChainID))
			}
		}
	case ExecutionDirect:
	default:
		return configErr(fmt.Sprintf("unknown execution.mode %q", c.Execution.Mode))
	}
	if c.Execution.InclusionMaxPolls <= 0 || c.Execution.InclusionPollInterval <= 0 {
		return configErr("execution inclusion polling must be positive")
	}

	switch c.Notify.Driver {
	case "log":
	case "webhook":
		if c.Notify.WebhookURL == "" {
			return configErr("notify.webhook_url is required for the webhook driver")
		}
	case "smtp":
		if c.Notify.SMTPUser == "" || c.Notify.EmailTo == "" {
			return configErr("notify.smtp_user and notify.email_to are required for the smtp driver")
		}
	default:
		return configErr(fmt.Sprintf("unknown notify.driver %q", c.Notify.Driver))
	}

	switch c.Journal.Driver {
	case "csv":
	case "postgres":
		if c.Journal.PostgresDSN == "" {
			return configErr("journal.postgres_dsn is required for the postgres driver")
		}
	default:
		return configErr(fmt.Sprintf("unknown journal.driver %q", c.Journal.Driver))
	}

	return nil
}

// MinProfit returns the floor string for the selected network.
func (c *Config) MinProfit() string {
	if c.Network.Name == NetworkTestnet {
		return c.Strategy.MinProfitTestnet
	}
	return c.Strategy.MinProfitMainnet
}

// Amounts converts the decimal strategy parameters into tokenIn base units.
func (c *Config) Amounts() (Amounts, error) {
	dec := c.Strategy.TokenInDecimals

	trade, err := asset.ParseUnits(c.Strategy.TradeSize, dec)
	if err != nil {
		return Amounts{}, configErr("strategy.trade_size: " + err.Error())
	}
	floor, err := asset.ParseUnits(c.MinProfit(), dec)
	if err != nil {
		return Amounts{}, configErr("strategy.min_profit: " + err.Error())
	}
	threshold, err := asset.ParseUnits(c.Strategy.WithdrawThreshold, dec)
	if err != nil {
		return Amounts{}, configErr("strategy.withdraw_threshold: " + err.Error())
	}

	return Amounts{TradeSize: trade, MinProfit: floor, WithdrawThreshold: threshold}, nil
}

func configErr(msg string) error {
	return apperror.New(apperror.CodeConfigurationError, apperror.WithContext(msg))
}

// splitList accepts both YAML lists and a comma separated env value.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
