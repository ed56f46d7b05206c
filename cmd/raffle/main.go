// Command raffle inspects, enters and verifies the Raffle contract on the
// network selected by RAFFLE_NETWORK.
//
// Usage:
//
//	raffle status
//	raffle enter [-value 0.01]
//	raffle verify -source Raffle.sol [-compiler v0.8.7+commit.e28d00a7] [-optimize] [-runs 200]
//	raffle watch [-addr :8080]
//	raffle version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"raffle/chain"
	"raffle/config"
	"raffle/internal/logging"
	"raffle/orchestrator"
	"raffle/raffle"
	"raffle/verify"
)

var errUsage = errors.New("usage: raffle <status|enter|verify|watch|version> [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	if cmd == "version" {
		fmt.Fprintln(out, BuildInfo())
		return nil
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	switch cmd {
	case "status":
		return runStatus(ctx, cfg, logger, out)
	case "enter":
		return runEnter(ctx, cfg, logger, args, out)
	case "verify":
		return runVerify(ctx, cfg, logger, args, out)
	case "watch":
		return runWatch(ctx, cfg, logger, args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// setup connects to the configured network. The in-process chain starts
// empty, so it gets the full deployment first.
func setup(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*orchestrator.Fixture, error) {
	env, err := orchestrator.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.IsDevelopment() {
		return orchestrator.SetupDevelopment(ctx, env, logger)
	}
	return orchestrator.SetupLive(ctx, env, logger)
}

func runStatus(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) error {
	f, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer f.Env.Close()

	s, err := f.Snapshot(ctx)
	if err != nil {
		return err
	}
	printStatus(out, cfg.Network, f.Raffle, s)
	return nil
}

func printStatus(out io.Writer, networkName string, r *raffle.Raffle, s *orchestrator.Snapshot) {
	fmt.Fprintln(out, "╔════════════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║                         RAFFLE STATUS                              ║")
	fmt.Fprintln(out, "╚════════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Network:        %s\n", networkName)
	fmt.Fprintf(out, "Contract:       %s\n", r.Address().Hex())
	fmt.Fprintf(out, "State:          %s\n", s.State)
	fmt.Fprintf(out, "Entrance fee:   %s ETH\n", raffle.FormatEther(s.EntranceFee))
	fmt.Fprintf(out, "Players:        %s\n", s.Players)
	fmt.Fprintf(out, "Pot:            %s ETH\n", raffle.FormatEther(s.Balance))
	fmt.Fprintf(out, "Recent winner:  %s\n", s.RecentWinner.Hex())
	fmt.Fprintf(out, "Last round at:  %s\n", s.LatestTimestamp)
}

func runEnter(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("enter", flag.ContinueOnError)
	value := fs.String("value", cfg.EntryValue, "Amount of ETH to pay, e.g. '0.01' (default: the entrance fee)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	cfg.EntryValue = *value

	f, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer f.Env.Close()

	amount, err := cfg.EntryWei()
	if err != nil {
		return err
	}
	if amount == nil {
		amount = f.EntranceFee
	}

	receipt, err := f.Raffle.EnterRaffle(ctx, amount)
	if err != nil {
		return fmt.Errorf("enter raffle: %w", err)
	}
	ev, err := f.Raffle.EnteredIn(receipt)
	if err != nil {
		return err
	}
	logger.Info("Entered raffle",
		zap.String("player", ev.Player.Hex()),
		zap.String("value", raffle.FormatEther(amount)),
		zap.String("tx", receipt.TxHash.Hex()))
	fmt.Fprintf(out, "Entered %s with %s ETH in %s\n", f.Raffle.Address().Hex(), raffle.FormatEther(amount), receipt.TxHash.Hex())
	return nil
}

func runVerify(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	source := fs.String("source", "", "Path to the contract source (single file or standard JSON input)")
	standardJSON := fs.Bool("standard-json", false, "Source is a solc standard JSON input")
	name := fs.String("name", "contracts/Raffle.sol:Raffle", "Fully qualified contract name")
	compiler := fs.String("compiler", "v0.8.7+commit.e28d00a7", "Solidity compiler version")
	optimize := fs.Bool("optimize", false, "Optimizer was enabled")
	runs := fs.Int("runs", 200, "Optimizer runs")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	if cfg.IsDevelopment() {
		logger.Info("Development chain detected, skipping verification", zap.String("network", cfg.Network))
		return nil
	}
	if cfg.EtherscanAPIKey == "" {
		logger.Info("ETHERSCAN_API_KEY not set, skipping verification")
		return nil
	}
	if *source == "" {
		return fmt.Errorf("%w: -source is required", errUsage)
	}
	code, err := os.ReadFile(*source)
	if err != nil {
		return err
	}

	keys, err := cfg.Keys()
	if err != nil {
		return err
	}
	env, err := chain.DialRPC(ctx, chain.RPCOptions{
		Network:        cfg.Network,
		URL:            cfg.RPCURL,
		DeploymentsDir: cfg.DeploymentsDir,
		Keys:           keys,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer env.Close()

	d, err := env.Deployment(raffle.ContractRaffle)
	if err != nil {
		return err
	}
	strArgs, err := d.StringArgs()
	if err != nil {
		return err
	}
	typed, err := verify.TypedArgs(raffle.ParsedRaffleABI(), strArgs)
	if err != nil {
		return err
	}
	encoded, err := verify.EncodeConstructorArgs(raffle.ParsedRaffleABI(), typed...)
	if err != nil {
		return err
	}

	svc, err := verify.NewEtherscan(verify.EtherscanOptions{
		APIKey:  cfg.EtherscanAPIKey,
		BaseURL: cfg.EtherscanAPIURL,
		ChainID: env.ChainID(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	format := verify.FormatSingleFile
	if *standardJSON {
		format = verify.FormatStandardJSON
	}
	outcome := verify.Contract(ctx, logger, svc, verify.Request{
		Address:         d.Address,
		ContractName:    *name,
		CompilerVersion: *compiler,
		SourceCode:      string(code),
		CodeFormat:      format,
		ConstructorArgs: encoded,
		Optimized:       *optimize,
		Runs:            *runs,
	})
	fmt.Fprintf(out, "Verification of %s: %s\n", d.Address.Hex(), outcome)
	return nil
}
