package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/near-poll/internal/adapters/contract"
	"github.com/vncsmyrnk/near-poll/internal/config"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
	"github.com/vncsmyrnk/near-poll/internal/logging"
)

const usage = `usage: pollctl [flags] <command> [arg]

commands:
  ping               ping the contract
  poll <poll_id>     show a poll
  results <poll_id>  show the results of a poll
  polls <account_id> list the polls an account created

flags:
`

func main() {
	settings, err := config.LoadSettings(logrus.StandardLogger())
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	cfg := &config.Config{Settings: *settings}

	env := flag.String("env", cfg.Env, "NEAR environment")
	contractName := flag.String("contract", cfg.ContractName, "Contract account, overrides the network default")
	nodeURL := flag.String("node-url", cfg.NodeURL, "Node RPC URL, overrides the network default")
	flag.DurationVar(&cfg.RPCTimeout, "timeout", cfg.RPCTimeout, "RPC timeout")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	log := logging.New(*env, cfg.LogLevel)

	network, err := config.Resolve(*env)
	if err != nil {
		log.Fatal(err)
	}
	if *contractName != "" {
		network.ContractName = *contractName
	}
	if *nodeURL != "" {
		network.NodeURL = *nodeURL
	}
	cfg.Env = *env
	cfg.Network = network

	method, args, err := viewCall(flag.Args())
	if err != nil {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RPCTimeout)
	defer cancel()

	backend, err := contract.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open contract")
	}
	defer backend.Close()

	raw, err := backend.Client.View(ctx, method, args)
	if err != nil {
		log.WithError(err).WithField("method", method).Fatal("view call failed")
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		log.WithError(err).Fatal("contract returned invalid JSON")
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}

// viewCall maps command line arguments to a contract view method.
func viewCall(args []string) (string, any, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("missing command")
	}

	switch cmd := args[0]; {
	case cmd == "ping" && len(args) == 1:
		return ports.MethodPing, nil, nil
	case cmd == "poll" && len(args) == 2:
		return ports.MethodShowPoll, map[string]string{"poll_id": args[1]}, nil
	case cmd == "results" && len(args) == 2:
		return ports.MethodShowResults, map[string]string{"poll_id": args[1]}, nil
	case cmd == "polls" && len(args) == 2:
		return ports.MethodShowOptions, map[string]string{"account_id": args[1]}, nil
	default:
		return "", nil, fmt.Errorf("unknown command %q", cmd)
	}
}
