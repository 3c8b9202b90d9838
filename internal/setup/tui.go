// Package setup provides the interactive terminal wizard that generates a
// sale client configuration file.
package setup

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/poodlabs/junosale/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the resulting
// yaml config next to the binary.
func RunTUI() error {
	var (
		endpoint        string
		chainID         string
		denom           string
		saleContract    string
		tokenContract   string
		bridge          string
		pollIntervalStr string
		listenAddr      string
		confirm         bool
	)

	// defaults
	denom = "ujuno"
	bridge = "http://localhost:8465"
	pollIntervalStr = "30s"
	listenAddr = ":8089"

	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("JUNOSALE CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Point the client at your chain and sale contract.\n"))

	// chain
	fmt.Println(stepStyle.Render("STEP 1: CHAIN"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("LCD Endpoint").
				Description("REST endpoint of a chain node (e.g. https://lcd.uni.juno.deuslabs.fi)").
				Value(&endpoint).
				Validate(validateURL),
			huh.NewInput().
				Title("Chain ID").
				Description("Chain the wallet authorizes (e.g. uni-3)").
				Value(&chainID).
				Validate(notEmpty("chain id")),
			huh.NewInput().
				Title("Staking Denom").
				Description("Native micro denomination (e.g. ujuno)").
				Value(&denom).
				Validate(notEmpty("denom")),
		),
	).Run()
	if err != nil {
		return err
	}

	// contracts
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("JUNOSALE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: CONTRACTS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sale Contract").
				Description("Address of the token sale contract").
				Value(&saleContract).
				Validate(notEmpty("sale contract")),
			huh.NewInput().
				Title("Token Contract").
				Description("Address of the cw20 token being sold").
				Value(&tokenContract).
				Validate(notEmpty("token contract")),
		),
	).Run()
	if err != nil {
		return err
	}

	// wallet and timing
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("JUNOSALE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: WALLET AND TIMING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Wallet Bridge").
				Description("Endpoint of the local wallet bridge daemon").
				Value(&bridge).
				Validate(validateURL),
			huh.NewInput().
				Title("Poll Interval").
				Description("Duration string (e.g. 30s, 1m, 5m)").
				Value(&pollIntervalStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
			huh.NewInput().
				Title("Dashboard Address").
				Description("Listen address for the web dashboard, empty to disable").
				Value(&listenAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("JUNOSALE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Endpoint: %s\nChain: %s\nDenom: %s\nSale: %s\nToken: %s\nBridge: %s\nInterval: %s\n",
		endpoint, chainID, denom, saleContract, tokenContract, bridge, pollIntervalStr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	pollInterval, _ := time.ParseDuration(pollIntervalStr)

	cfgTmp := config.ConfigTmp{
		ChainEndpoint: endpoint,
		ChainID:       chainID,
		StakingDenom:  denom,
		SaleContract:  saleContract,
		TokenContract: tokenContract,
		WalletBridge:  bridge,
		PollInterval:  pollInterval,
		ListenAddr:    listenAddr,
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting client...", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func notEmpty(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		return nil
	}
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be a valid http(s) URL")
	}
	return nil
}
