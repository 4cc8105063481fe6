// Package contract opens the contract client selected by the configured
// network.
package contract

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/vncsmyrnk/near-poll/internal/adapters/contract/emulator"
	"github.com/vncsmyrnk/near-poll/internal/adapters/contract/near"
	"github.com/vncsmyrnk/near-poll/internal/adapters/contract/postgres"
	"github.com/vncsmyrnk/near-poll/internal/config"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

type Backend struct {
	Client ports.ContractClient
	// Node is set for networks backed by a NEAR node.
	Node *near.Client
	db   *sql.DB
}

func (b *Backend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// Open builds the contract client for cfg.Network. The sandbox backend
// applies the emulator schema before returning.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	network := cfg.Network

	switch network.Backend {
	case config.BackendNEAR:
		client, err := near.NewClient(near.Config{
			NodeURL:      network.NodeURL,
			RelayerURL:   cfg.RelayerURL,
			ContractName: network.ContractName,
			Timeout:      cfg.RPCTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create NEAR client: %w", err)
		}
		return &Backend{Client: client, Node: client}, nil

	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to reach database: %w", err)
		}
		if err := postgres.Apply(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &Backend{Client: emulator.New(network.ContractName, postgres.NewStore(db)), db: db}, nil

	case config.BackendMemory:
		return &Backend{Client: emulator.New(network.ContractName, emulator.NewMemoryStore())}, nil
	}

	return nil, fmt.Errorf("unknown contract backend %q", network.Backend)
}
