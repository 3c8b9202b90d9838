package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultPollInterval = 30 * time.Second

// Config carries the startup inputs of the sale client. All chain-facing
// values are opaque strings supplied by the operator.
type Config struct {
	// ChainEndpoint is the LCD REST endpoint of the chain node.
	ChainEndpoint string
	// ChainID is the chain the wallet is asked to authorize.
	ChainID string
	// StakingDenom is the native micro denomination, e.g. "ujuno".
	StakingDenom string
	// SaleContract is the token sale contract address.
	SaleContract string
	// TokenContract is the cw20 contract address of the sale token.
	TokenContract string
	// WalletBridge is the endpoint of the local wallet bridge daemon.
	WalletBridge string
	// PollInterval is how often price and balances are re-queried.
	PollInterval time.Duration
	// ListenAddr is the dashboard listen address, empty disables it.
	ListenAddr string
	// JournalDir is where the purchase/balance WAL lives.
	JournalDir string
}

// ConfigTmp is the yaml form of Config; the setup wizard also marshals it.
type ConfigTmp struct {
	ChainEndpoint string        `yaml:"chain_endpoint"`
	ChainID       string        `yaml:"chain_id"`
	StakingDenom  string        `yaml:"staking_denom"`
	SaleContract  string        `yaml:"sale_contract"`
	TokenContract string        `yaml:"token_contract"`
	WalletBridge  string        `yaml:"wallet_bridge"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	ListenAddr    string        `yaml:"listen_addr"`
	JournalDir    string        `yaml:"journal_dir"`
}

// Get loads the configuration from the yaml file passed via --config, or from
// CLI flags when no file is given.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	endpoint := flag.String("endpoint", "", "chain LCD endpoint, example: https://lcd.juno.example")
	chainID := flag.String("chainid", "", "chain id, example: juno-1")
	denom := flag.String("denom", "ujuno", "native staking denom")
	saleContract := flag.String("salecontract", "", "token sale contract address")
	tokenContract := flag.String("tokencontract", "", "cw20 token contract address")
	bridge := flag.String("walletbridge", "http://localhost:8465", "wallet bridge endpoint")
	pollInterval := flag.Duration("pollinterval", defaultPollInterval, "price/balance poll interval")
	listen := flag.String("listen", ":8089", "dashboard listen address")
	journalDir := flag.String("journaldir", "", "journal WAL directory")

	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	conf := Config{
		ChainEndpoint: *endpoint,
		ChainID:       *chainID,
		StakingDenom:  *denom,
		SaleContract:  *saleContract,
		TokenContract: *tokenContract,
		WalletBridge:  *bridge,
		PollInterval:  *pollInterval,
		ListenAddr:    *listen,
		JournalDir:    *journalDir,
	}

	return conf, conf.validate()
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("incorrect yaml config %s: %w", path, err)
	}

	conf := Config{
		ChainEndpoint: tmp.ChainEndpoint,
		ChainID:       tmp.ChainID,
		StakingDenom:  tmp.StakingDenom,
		SaleContract:  tmp.SaleContract,
		TokenContract: tmp.TokenContract,
		WalletBridge:  tmp.WalletBridge,
		PollInterval:  tmp.PollInterval,
		ListenAddr:    tmp.ListenAddr,
		JournalDir:    tmp.JournalDir,
	}
	if conf.StakingDenom == "" {
		conf.StakingDenom = "ujuno"
	}
	if conf.PollInterval == 0 {
		conf.PollInterval = defaultPollInterval
	}

	return conf, conf.validate()
}

func (c Config) validate() error {
	var missing []string
	if c.ChainEndpoint == "" {
		missing = append(missing, "chain_endpoint")
	}
	if c.ChainID == "" {
		missing = append(missing, "chain_id")
	}
	if c.SaleContract == "" {
		missing = append(missing, "sale_contract")
	}
	if c.TokenContract == "" {
		missing = append(missing, "token_contract")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config params: %s", strings.Join(missing, ", "))
	}
	return nil
}
