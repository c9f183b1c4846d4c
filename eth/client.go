package eth

import (
	"context"
	"tokamak-zkrollup/common"

	"github.com/ethereum/go-ethereum"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the part of an Ethereum node the Client uses
type Backend interface {
	ethereum.LogFilterer
	ethereum.BlockNumberReader
}

// ClientConfig is the configuration of the Client
type ClientConfig struct {
	// RollupAddress is the address of the rollup contract
	RollupAddress ethCommon.Address
	// Confirmations is the number of blocks on top of a block for its
	// priority operations to be read
	Confirmations uint64
}

// Client is used to read the rollup contract events from Ethereum
type Client struct {
	PriorityQueueClient
	backend Backend
	cfg     ClientConfig
}

// NewClient creates a new Client reading from backend
func NewClient(backend Backend, cfg *ClientConfig) *Client {
	return &Client{
		PriorityQueueClient: *NewPriorityQueueClient(backend, cfg.RollupAddress),
		backend:             backend,
		cfg:                 *cfg,
	}
}

// Dial connects to the Ethereum node at url and creates a new Client
func Dial(ctx context.Context, url string, cfg *ClientConfig) (*Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return NewClient(client, cfg), nil
}

// EthConfirmedBlock returns the last L1 block with enough confirmations, and
// false when the chain is not yet long enough
func (c *Client) EthConfirmedBlock(ctx context.Context) (uint64, bool, error) {
	last, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return 0, false, common.Wrap(err)
	}
	if last < c.cfg.Confirmations {
		return 0, false, nil
	}
	return last - c.cfg.Confirmations, true, nil
}

// ConfirmedPriorityOps returns the priority operations requested from the L1
// block from up to the last confirmed block, and the next block to read from
func (c *Client) ConfirmedPriorityOps(ctx context.Context, from uint64) ([]common.PriorityOp,
	uint64, error) {
	confirmed, ok, err := c.EthConfirmedBlock(ctx)
	if err != nil {
		return nil, from, common.Wrap(err)
	}
	if !ok || confirmed < from {
		return nil, from, nil
	}
	ops, err := c.PriorityOps(ctx, from, confirmed)
	if err != nil {
		return nil, from, common.Wrap(err)
	}
	return ops, confirmed + 1, nil
}
