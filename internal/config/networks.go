package config

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Backend selects what answers contract calls.
type Backend string

const (
	BackendNEAR     Backend = "near"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

// Network holds the settings of one NEAR environment.
type Network struct {
	Env          string   `yaml:"-"`
	Aliases      []string `yaml:"aliases"`
	NetworkID    string   `yaml:"network_id"`
	NodeURL      string   `yaml:"node_url"`
	WalletURL    string   `yaml:"wallet_url"`
	ExplorerURL  string   `yaml:"explorer_url"`
	ContractName string   `yaml:"contract_name"`
	Backend      Backend  `yaml:"backend"`
}

// Emulated reports whether contract calls are answered in-process.
func (n Network) Emulated() bool {
	return n.Backend != BackendNEAR
}

//go:embed networks.yaml
var networksYAML []byte

type networkTable struct {
	Networks map[string]Network `yaml:"networks"`
}

func loadNetworks(data []byte) (map[string]Network, error) {
	var table networkTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse networks: %w", err)
	}

	networks := make(map[string]Network)
	for env, n := range table.Networks {
		switch n.Backend {
		case BackendNEAR:
			if n.NodeURL == "" || n.WalletURL == "" {
				return nil, fmt.Errorf("network %s: node_url and wallet_url are required", env)
			}
		case BackendPostgres, BackendMemory:
		default:
			return nil, fmt.Errorf("network %s: unknown backend %q", env, n.Backend)
		}
		if n.ContractName == "" {
			return nil, fmt.Errorf("network %s: contract_name is required", env)
		}

		n.Env = env
		networks[env] = n
		for _, alias := range n.Aliases {
			networks[alias] = n
		}
	}
	return networks, nil
}

// Resolve returns the network settings for env. Unknown names are an error.
func Resolve(env string) (Network, error) {
	networks, err := loadNetworks(networksYAML)
	if err != nil {
		return Network{}, err
	}

	n, ok := networks[env]
	if !ok {
		names := make([]string, 0, len(networks))
		for name := range networks {
			names = append(names, name)
		}
		sort.Strings(names)
		return Network{}, fmt.Errorf("unknown NEAR_ENV %q, expected one of %v", env, names)
	}
	return n, nil
}
