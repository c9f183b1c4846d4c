package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"tokamak-zkrollup/blockbuilder"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/config"
	"tokamak-zkrollup/database/statedb"
	"tokamak-zkrollup/eth"
	"tokamak-zkrollup/log"
	"tokamak-zkrollup/synchronizer"
	"tokamak-zkrollup/test/debugapi"
	"tokamak-zkrollup/txprocessor"
)

// Node is the zkrollup node: a BlockBuilder fed with the priority operations
// confirmed on L1
type Node struct {
	debugAPI *debugapi.DebugAPI
	bb       *blockbuilder.BlockBuilder

	// Synchronizer, nil when no L1 node is configured
	sync *synchronizer.Synchronizer

	// General
	cfg    *config.Node
	ctx    context.Context
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewNode creates a Node
func NewNode(cfg *config.Node) (*Node, error) {
	blockNum, err := lastCheckpoint(cfg.StateDB.Path)
	if err != nil {
		return nil, common.Wrap(err)
	}
	bb, err := blockbuilder.NewBlockBuilder(cfg.StateDB.Path, blockNum, blockbuilder.Config{
		MaxBlockChunks: cfg.Block.MaxChunks,
		FeeAccountID:   common.AccountID(cfg.Block.FeeAccountID),
		TxGasLimit:     uint64(cfg.Gas.TxGasLimit),
		Keep:           cfg.StateDB.Keep,
		TxProcessorConfig: txprocessor.Config{
			CheckTimeRange: cfg.Block.CheckTimeRange,
		},
	})
	if err != nil {
		return nil, common.Wrap(fmt.Errorf("NewBlockBuilder: %w", common.Unwrap(err)))
	}

	var synchro *synchronizer.Synchronizer
	if cfg.L1.NodeURL != "" {
		ethClient, err := eth.Dial(context.Background(), cfg.L1.NodeURL, &eth.ClientConfig{
			RollupAddress: cfg.L1.RollupAddress,
			Confirmations: uint64(cfg.L1.Confirmations),
		})
		if err != nil {
			bb.StateDB().Close()
			return nil, common.Wrap(err)
		}
		synchro, err = synchronizer.NewSynchronizer(ethClient, bb, synchronizer.Config{
			StartBlock:    uint64(cfg.L1.StartBlock),
			StartSerialID: common.SerialID(cfg.L1.StartSerialID),
		})
		if err != nil {
			bb.StateDB().Close()
			return nil, common.Wrap(err)
		}
	} else {
		log.Warn("L1.NodeURL is empty, priority operations will not be synchronized")
	}

	var debugAPI *debugapi.DebugAPI
	if cfg.Debug.APIAddress != "" {
		debugAPI = debugapi.NewDebugAPI(cfg.Debug.APIAddress, bb.StateDB(), synchro)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Node{
		debugAPI: debugAPI,
		bb:       bb,
		sync:     synchro,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// lastCheckpoint returns the number of the last checkpoint stored at path,
// so that the node resumes from it
func lastCheckpoint(path string) (common.BlockNumber, error) {
	sdb, err := statedb.NewStateDB(statedb.Config{Path: path, NoLast: true,
		Type: statedb.TypeBlockBuilder})
	if err != nil {
		return 0, common.Wrap(err)
	}
	defer sdb.Close()
	return sdb.CurrentBlock(), nil
}

func (n *Node) syncLoopFn(ctx context.Context) (time.Duration, error) {
	blocks, err := n.sync.Sync(ctx)
	for _, block := range blocks {
		log.Debugw("Synchronizer.Sync block", "block", block.Number, "ops", len(block.Ops))
	}
	if err != nil {
		return n.cfg.L1.PollInterval.Duration, common.Wrap(err)
	}
	return n.cfg.L1.PollInterval.Duration, nil
}

// StartSynchronizer starts the synchronizer
func (n *Node) StartSynchronizer() {
	log.Info("Starting Synchronizer...")

	n.wg.Add(1)
	go func() {
		waitDuration := time.Duration(0)
		for {
			select {
			case <-n.ctx.Done():
				log.Info("Synchronizer done")
				n.wg.Done()
				return
			case <-time.After(waitDuration):
				var err error
				if waitDuration, err = n.syncLoopFn(n.ctx); err != nil {
					if n.ctx.Err() != nil {
						continue
					}
					if errors.Is(common.Unwrap(err), synchronizer.ErrSerialIDGap) {
						log.Warnw("Synchronizer.Sync", "err", err)
					} else {
						log.Errorw("Synchronizer.Sync", "err", err)
					}
				}
			}
		}
	}()
}

// StartDebugAPI starts the DebugAPI
func (n *Node) StartDebugAPI() {
	log.Info("Starting DebugAPI...")

	n.wg.Add(1)
	go func() {
		defer func() {
			log.Info("DebugAPI routine stopped")
			n.wg.Done()
		}()
		if err := n.debugAPI.Run(n.ctx); err != nil {
			log.Fatalw("DebugAPI.Run", "err", err)
		}
	}()
}

// Start the node
func (n *Node) Start() {
	log.Info("Starting node...")
	if n.debugAPI != nil {
		n.StartDebugAPI()
	}
	if n.sync != nil {
		n.StartSynchronizer()
	}
}

// Stop the node
func (n *Node) Stop() {
	log.Infow("Stopping node...")
	n.cancel()
	n.wg.Wait()

	// Close kv DBs
	n.bb.StateDB().Close()
}

// BlockBuilder returns the BlockBuilder of the node
func (n *Node) BlockBuilder() *blockbuilder.BlockBuilder {
	return n.bb
}
