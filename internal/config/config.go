package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Mainnet deployment addresses used when none are configured.
const (
	DefaultFactory = "0x1F98431c8aD98523631AE4a59f267346ea31F984"
	DefaultWETH9   = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	DefaultManager = "0xC36442b4a4522E871399CD717aBDD847Ab11FE88"
)

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	RPCURL       string
	Factory      string
	Manager      string
	Owner        string
	Token0       string
	Token1       string
	Fees         []string
	TickLower    int32
	TickUpper    int32
	Amount0      string
	Amount1      string
	Amount0Min   string
	Amount1Min   string
	Raw          bool
	BlockNumber  uint64
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
	LogFile      string
}

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	Scenario    string
	Factory     string
	WETH9       string
	Manager     string
	ChainID     uint64
	LogsOut     string
	ReceiptsOut string
	PGDSN       string
	LogLevel    string
	LogFile     string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := load(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("factory", DefaultFactory)
		v.SetDefault("manager", DefaultManager)
		v.SetDefault("fee", []string{"3000"})
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		RPCURL:       v.GetString("rpc"),
		Factory:      v.GetString("factory"),
		Manager:      v.GetString("manager"),
		Owner:        v.GetString("owner"),
		Token0:       v.GetString("token0"),
		Token1:       v.GetString("token1"),
		Fees:         getStringSlice(v, "fee"),
		TickLower:    v.GetInt32("tick-lower"),
		TickUpper:    v.GetInt32("tick-upper"),
		Amount0:      v.GetString("amount0"),
		Amount1:      v.GetString("amount1"),
		Amount0Min:   v.GetString("amount0-min"),
		Amount1Min:   v.GetString("amount1-min"),
		Raw:          v.GetBool("raw"),
		BlockNumber:  v.GetUint64("block"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
		LogFile:      v.GetString("log-file"),
	}

	return cfg, nil
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := load(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("factory", DefaultFactory)
		v.SetDefault("weth9", DefaultWETH9)
		v.SetDefault("manager", DefaultManager)
		v.SetDefault("chain-id", uint64(1))
		v.SetDefault("logs-out", "./data/sim_logs.jsonl")
		v.SetDefault("receipts-out", "./data/sim_receipts.jsonl")
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		Scenario:    v.GetString("scenario"),
		Factory:     v.GetString("factory"),
		WETH9:       v.GetString("weth9"),
		Manager:     v.GetString("manager"),
		ChainID:     v.GetUint64("chain-id"),
		LogsOut:     v.GetString("logs-out"),
		ReceiptsOut: v.GetString("receipts-out"),
		PGDSN:       v.GetString("pg-dsn"),
		LogLevel:    v.GetString("log-level"),
		LogFile:     v.GetString("log-file"),
	}

	return cfg, nil
}

func load(cfgFile string, flags *pflag.FlagSet, defaults func(v *viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("PERIPHERY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
