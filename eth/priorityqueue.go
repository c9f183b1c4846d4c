package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/eth/contracts/zksync"
	"tokamak-zkrollup/log"
	"tokamak-zkrollup/metric"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const eventNewPriorityRequest = "NewPriorityRequest"

var (
	// ErrUnknownEvent is used when a log is not a NewPriorityRequest event
	ErrUnknownEvent = errors.New("log is not a NewPriorityRequest event")
	// ErrInvalidExpirationBlock is used when the expiration block of a
	// NewPriorityRequest event does not fit in a uint64
	ErrInvalidExpirationBlock = errors.New("invalid priority op expiration block")

	logNewPriorityRequest = crypto.Keccak256Hash(
		[]byte("NewPriorityRequest(address,uint64,uint8,bytes,uint256)"))

	zkSyncABI abi.ABI
)

func init() {
	var err error
	zkSyncABI, err = abi.JSON(strings.NewReader(zksync.ZkSyncABI))
	if err != nil {
		panic(fmt.Sprintf("invalid rollup contract ABI: %v", err))
	}
}

// newPriorityRequestAux is the data of the NewPriorityRequest event
type newPriorityRequestAux struct {
	Sender          ethCommon.Address
	SerialId        uint64
	OpType          uint8
	PubData         []byte
	ExpirationBlock *big.Int
}

// PriorityOpFromLog decodes a NewPriorityRequest event of the rollup
// contract into a PriorityOp
func PriorityOpFromLog(vLog types.Log) (*common.PriorityOp, error) {
	if len(vLog.Topics) == 0 || vLog.Topics[0] != logNewPriorityRequest {
		return nil, common.Wrap(ErrUnknownEvent)
	}
	var aux newPriorityRequestAux
	if err := zkSyncABI.UnpackIntoInterface(&aux, eventNewPriorityRequest, vLog.Data); err != nil {
		return nil, common.Wrap(err)
	}
	if aux.ExpirationBlock == nil || !aux.ExpirationBlock.IsUint64() {
		return nil, common.Wrap(fmt.Errorf("%w: serial id %d: %v", ErrInvalidExpirationBlock,
			aux.SerialId, aux.ExpirationBlock))
	}
	data, err := common.ParsePriorityOpFromQueueLogs(aux.PubData, aux.OpType, aux.Sender)
	if err != nil {
		return nil, common.Wrap(err)
	}
	metric.PriorityOpsParsed.Inc()
	return &common.PriorityOp{
		SerialID:      common.SerialID(aux.SerialId),
		Data:          data,
		DeadlineBlock: aux.ExpirationBlock.Uint64(),
		EthHash:       vLog.TxHash,
		EthBlock:      vLog.BlockNumber,
	}, nil
}

// PriorityQueueClient reads the priority operations requested to the rollup
// contract
type PriorityQueueClient struct {
	client  ethereum.LogFilterer
	address ethCommon.Address
}

// NewPriorityQueueClient creates a new PriorityQueueClient for the rollup
// contract at address
func NewPriorityQueueClient(client ethereum.LogFilterer,
	address ethCommon.Address) *PriorityQueueClient {
	return &PriorityQueueClient{
		client:  client,
		address: address,
	}
}

// PriorityOps returns the priority operations requested between the L1
// blocks from and to, both included, ordered as they were emitted
func (c *PriorityQueueClient) PriorityOps(ctx context.Context, from,
	to uint64) ([]common.PriorityOp, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []ethCommon.Address{c.address},
		Topics:    [][]ethCommon.Hash{{logNewPriorityRequest}},
	}
	logs, err := c.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, common.Wrap(err)
	}
	ops := make([]common.PriorityOp, 0, len(logs))
	for _, vLog := range logs {
		if vLog.Removed {
			continue
		}
		op, err := PriorityOpFromLog(vLog)
		if err != nil {
			return nil, common.Wrap(err)
		}
		ops = append(ops, *op)
	}
	log.Debugw("eth: priority ops read", "from", from, "to", to, "ops", len(ops))
	return ops, nil
}
