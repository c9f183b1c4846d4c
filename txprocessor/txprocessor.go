/*
Package txprocessor is the module that validates the L2 transactions and the L1
priority operations and applies them to the account Ledger, producing for each
one the executed operation, the fee it pays and the ordered list of account
updates it made.

Every kind of operation is handled by three functions:

  - createXOp(tx): validates the tx against the current ledger and resolves
    the account ids it touches, returning the operation.  It never mutates
    the ledger.
  - applyXTx(tx): createXOp followed by applyXOp, wrapped into an OpSuccess.
  - applyXOp(op): re-checks the account id bounds, the nonce and the
    balances, and only then writes the modified accounts back.

The handlers work on copies of the accounts returned by the Ledger, so a
rejected operation leaves the ledger untouched.  The public entry points are:

  - ExecuteTx: the L2 transactions, signed by the account owners.
  - ExecutePriorityOp: the operations requested through the L1 priority
    queue (Deposit and FullExit), which carry no L2 signature.
  - ApplyOp: replays an already built operation, used to rebuild the state
    from committed blocks, including the historical Close operations.
  - ApplyAccountUpdates: writes an update log into the ledger, used with
    common.ReversedUpdates to roll operations back.

The TxProcessor expects a single caller: neither it nor the Ledger lock.
*/
package txprocessor

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/log"
	"tokamak-zkrollup/metric"
	"tokamak-zkrollup/operation"

	ethCommon "github.com/ethereum/go-ethereum/common"
)

// Ledger is the account storage the TxProcessor reads and writes
type Ledger interface {
	// GetAccount returns the account at id or common.ErrAccountNotFound
	GetAccount(id common.AccountID) (*common.Account, error)
	// GetAccountByAddress returns the account owned by addr or
	// common.ErrAccountNotFound
	GetAccountByAddress(addr ethCommon.Address) (common.AccountID, *common.Account, error)
	InsertAccount(id common.AccountID, account *common.Account) error
	RemoveAccount(id common.AccountID) error
	NextFreeAccountID() common.AccountID
}

var (
	// ErrNonceMismatch is returned when the nonce of a tx is not the nonce
	// of its sender account
	ErrNonceMismatch = errors.New("nonce mismatch")
	// ErrNonceOverflow is returned when the nonce of an account can not be
	// incremented
	ErrNonceOverflow = errors.New("nonce overflow")
	// ErrAccountLocked is returned when the sender account has no signing
	// key set
	ErrAccountLocked = errors.New("account is locked")
	// ErrAccountIDMismatch is returned when the account id declared in the
	// tx is not the id of the resolved account
	ErrAccountIDMismatch = errors.New("account id mismatch")
	// ErrSignerMismatch is returned when the tx is not signed by the key of
	// the sender account
	ErrSignerMismatch = errors.New("tx not signed by the account key")
	// ErrAccountAlreadyExists is returned when an operation creates an
	// account at an id already in use
	ErrAccountAlreadyExists = errors.New("account already exists")
	// ErrCloseDisabled is returned when a Close tx is executed
	ErrCloseDisabled = errors.New("account closing is disabled")
	// ErrAccountNotEmpty is returned when closing an account with balance
	ErrAccountNotEmpty = errors.New("account is not empty")
	// ErrTargetNotLocked is returned when the target of a ForcedExit has a
	// signing key set
	ErrTargetNotLocked = errors.New("forced exit target account is not locked")
	// ErrAddressMismatch is returned when the address of an account is not
	// the address named by the operation
	ErrAddressMismatch = errors.New("account address mismatch")
	// ErrTxNotValidAtTime is returned when the block timestamp is outside
	// the time range of the tx
	ErrTxNotValidAtTime = errors.New("tx is not valid at the block timestamp")
	// ErrUnsupportedOp is returned for values outside the closed set of txs,
	// priority operations and operations
	ErrUnsupportedOp = errors.New("unsupported operation")
)

// Config contains the TxProcessor configuration parameters
type Config struct {
	// CheckTimeRange rejects the txs whose time range does not contain the
	// block timestamp set with SetBlockTimestamp
	CheckTimeRange bool
}

// OpSuccess is the result of an executed tx or priority operation
type OpSuccess struct {
	Fee        *common.CollectedFee
	Updates    []common.AccountUpdate
	ExecutedOp operation.Op
}

// TxProcessor represents the TxProcessor object
type TxProcessor struct {
	ledger         Ledger
	config         Config
	blockTimestamp uint64
}

// NewTxProcessor returns a new TxProcessor working on the given Ledger
func NewTxProcessor(ledger Ledger, config Config) *TxProcessor {
	return &TxProcessor{
		ledger: ledger,
		config: config,
	}
}

// Ledger returns the ledger of the TxProcessor
func (tp *TxProcessor) Ledger() Ledger {
	return tp.ledger
}

// SetBlockTimestamp sets the timestamp of the block the next txs go into
func (tp *TxProcessor) SetBlockTimestamp(ts uint64) {
	tp.blockTimestamp = ts
}

// ExecuteTx validates and applies an L2 transaction
func (tp *TxProcessor) ExecuteTx(tx common.L2Tx) (res *OpSuccess, err error) {
	defer tp.observe(tx.Type().String(), time.Now(), &err)
	switch tx := tx.(type) {
	case *common.Transfer:
		return tp.applyTransferTx(tx)
	case *common.Withdraw:
		return tp.applyWithdrawTx(tx)
	case *common.Close:
		return tp.applyCloseTx(tx)
	case *common.ChangePubKey:
		return tp.applyChangePubKeyTx(tx)
	case *common.ForcedExit:
		return tp.applyForcedExitTx(tx)
	case *common.Exchange:
		return tp.applyExchangeTx(tx)
	case *common.AddLiquidity:
		return tp.applyAddLiquidityTx(tx)
	case *common.RemoveLiquidity:
		return tp.applyRemoveLiquidityTx(tx)
	default:
		return nil, common.Wrap(fmt.Errorf("%w: tx %T", ErrUnsupportedOp, tx))
	}
}

// ExecutePriorityOp applies an operation requested through the L1 priority
// queue
func (tp *TxProcessor) ExecutePriorityOp(op common.PriorityOpData) (res *OpSuccess, err error) {
	switch op := op.(type) {
	case *common.Deposit:
		defer tp.observe(operation.TypeDeposit.String(), time.Now(), &err)
		return tp.applyDepositTx(op)
	case *common.FullExit:
		defer tp.observe(operation.TypeFullExit.String(), time.Now(), &err)
		return tp.applyFullExitTx(op)
	default:
		return nil, common.Wrap(fmt.Errorf("%w: priority op %T", ErrUnsupportedOp, op))
	}
}

// ApplyOp applies an already built operation
func (tp *TxProcessor) ApplyOp(op operation.Op) (*common.CollectedFee, []common.AccountUpdate, error) {
	switch op := op.(type) {
	case *operation.NoopOp:
		return nil, nil, nil
	case *operation.DepositOp:
		return tp.applyDepositOp(op)
	case *operation.TransferOp:
		return tp.applyTransferOp(op)
	case *operation.TransferToNewOp:
		return tp.applyTransferToNewOp(op)
	case *operation.WithdrawOp:
		return tp.applyWithdrawOp(op)
	case *operation.CloseOp:
		return tp.applyCloseOp(op)
	case *operation.FullExitOp:
		return tp.applyFullExitOp(op)
	case *operation.ChangePubKeyOp:
		return tp.applyChangePubKeyOp(op)
	case *operation.ForcedExitOp:
		return tp.applyForcedExitOp(op)
	case *operation.ExchangeOp:
		return tp.applyExchangeOp(op)
	case *operation.AddLiquidityOp:
		return tp.applyAddLiquidityOp(op)
	case *operation.RemoveLiquidityOp:
		return tp.applyRemoveLiquidityOp(op)
	default:
		return nil, nil, common.Wrap(fmt.Errorf("%w: op %T", ErrUnsupportedOp, op))
	}
}

// ApplyAccountUpdates writes the given updates, in order, into the ledger.
// Applying common.ReversedUpdates(updates) undoes updates.
func (tp *TxProcessor) ApplyAccountUpdates(updates []common.AccountUpdate) error {
	for _, u := range updates {
		switch u.Type {
		case common.AccountUpdateTypeCreate:
			account := common.NewAccount(u.Address)
			account.Nonce = u.Nonce
			if err := tp.ledger.InsertAccount(u.AccountID, account); err != nil {
				return common.Wrap(err)
			}
		case common.AccountUpdateTypeDelete:
			if err := tp.ledger.RemoveAccount(u.AccountID); err != nil {
				return common.Wrap(err)
			}
		case common.AccountUpdateTypeBalance:
			account, err := tp.getAccount(u.AccountID)
			if err != nil {
				return common.Wrap(err)
			}
			account.SetBalance(u.Token, u.NewBalance)
			account.Nonce = u.NewNonce
			if err := tp.ledger.InsertAccount(u.AccountID, account); err != nil {
				return common.Wrap(err)
			}
		case common.AccountUpdateTypeChangePubKeyHash:
			account, err := tp.getAccount(u.AccountID)
			if err != nil {
				return common.Wrap(err)
			}
			account.PubKeyHash = u.NewPubKeyHash
			account.Nonce = u.NewNonce
			if err := tp.ledger.InsertAccount(u.AccountID, account); err != nil {
				return common.Wrap(err)
			}
		default:
			return common.Wrap(fmt.Errorf("%w: account update %s", ErrUnsupportedOp, u.Type))
		}
	}
	return nil
}

// observe records the duration and the outcome of an executed operation
func (tp *TxProcessor) observe(op string, start time.Time, err *error) {
	metric.MeasureDuration(metric.OpExecutionDuration, start, op)
	if *err != nil {
		metric.RejectedOps.WithLabelValues(op).Inc()
		log.Debugw("txprocessor: operation rejected", "op", op, "err", *err)
		return
	}
	metric.AppliedOps.WithLabelValues(op).Inc()
}

// getAccount returns a copy of the account at id
func (tp *TxProcessor) getAccount(id common.AccountID) (*common.Account, error) {
	account, err := tp.ledger.GetAccount(id)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return account.Clone()
}

// accountExists returns false when the ledger has no account at id
func (tp *TxProcessor) accountExists(id common.AccountID) (bool, error) {
	_, err := tp.ledger.GetAccount(id)
	if common.Is(err, common.ErrAccountNotFound) {
		return false, nil
	} else if err != nil {
		return false, common.Wrap(err)
	}
	return true, nil
}

// resolveSigner checks the tx fields and returns the id and a copy of the
// account owned by addr, once checked that it is unlocked, that it signed tx
// and that its id is declaredID
func (tp *TxProcessor) resolveSigner(tx common.L2Tx, addr ethCommon.Address,
	declaredID common.AccountID) (common.AccountID, *common.Account, error) {
	if err := tx.CheckCorrectness(); err != nil {
		return 0, nil, common.Wrap(err)
	}
	id, account, err := tp.ledger.GetAccountByAddress(addr)
	if err != nil {
		return 0, nil, common.Wrap(err)
	}
	if err := tp.checkSigner(tx, account); err != nil {
		return 0, nil, common.Wrap(err)
	}
	if id != declaredID {
		return 0, nil, common.Wrap(fmt.Errorf("%w: tx declares %d, account is %d",
			ErrAccountIDMismatch, declaredID, id))
	}
	account, err = account.Clone()
	if err != nil {
		return 0, nil, common.Wrap(err)
	}
	return id, account, nil
}

// checkSigner checks that account is unlocked and that its key signed tx
func (tp *TxProcessor) checkSigner(tx common.L2Tx, account *common.Account) error {
	if account.IsLocked() {
		return common.Wrap(fmt.Errorf("%w: %s", ErrAccountLocked, account.Address.Hex()))
	}
	signer, err := tx.VerifySignature()
	if err != nil {
		return common.Wrap(err)
	}
	if signer != account.PubKeyHash {
		return common.Wrap(fmt.Errorf("%w: signed by %s, account key is %s", ErrSignerMismatch,
			signer, account.PubKeyHash))
	}
	return nil
}

// checkTimeRange checks tr against the block timestamp when configured to
func (tp *TxProcessor) checkTimeRange(tr common.TimeRange) error {
	if !tp.config.CheckTimeRange || tr.IsValid(tp.blockTimestamp) {
		return nil
	}
	return common.Wrap(fmt.Errorf("%w: %d not in [%d, %d]", ErrTxNotValidAtTime,
		tp.blockTimestamp, tr.ValidFrom, tr.ValidUntil))
}

// checkAccountIDs checks that every id is inside the account tree
func checkAccountIDs(ids ...common.AccountID) error {
	for _, id := range ids {
		if id > common.MaxAccountID {
			return common.Wrap(fmt.Errorf("%w: %d", common.ErrAccountIDOutOfRange, id))
		}
	}
	return nil
}

// checkTokenIDs checks that every token id is supported
func checkTokenIDs(tokens ...common.TokenID) error {
	for _, t := range tokens {
		if t > common.MaxTokenID {
			return common.Wrap(fmt.Errorf("%w: %d", common.ErrTokenIDOutOfRange, t))
		}
	}
	return nil
}

// checkNonce checks the nonce of a tx against the nonce of its sender, and
// that the sender nonce can still be incremented
func checkNonce(account *common.Account, nonce common.Nonce) error {
	if account.Nonce != nonce {
		return common.Wrap(fmt.Errorf("%w: tx nonce %d, account nonce %d", ErrNonceMismatch,
			nonce, account.Nonce))
	}
	if account.Nonce == math.MaxUint32 {
		return common.Wrap(ErrNonceOverflow)
	}
	return nil
}

// moveBalance debits debitAmount of debitToken from the account at from and
// increments its nonce, then credits creditAmount of creditToken to the
// account at to.  When from and to are the same account the credit is applied
// on top of the debit.  The accounts are written back only when every check
// has passed.  It returns the sender update followed by the recipient update.
func (tp *TxProcessor) moveBalance(from, to common.AccountID, nonce common.Nonce,
	debitToken common.TokenID, debitAmount *big.Int,
	creditToken common.TokenID, creditAmount *big.Int) ([]common.AccountUpdate, error) {
	if err := checkAccountIDs(from, to); err != nil {
		return nil, common.Wrap(err)
	}
	fromAccount, err := tp.getAccount(from)
	if err != nil {
		return nil, common.Wrap(err)
	}
	if err := checkNonce(fromAccount, nonce); err != nil {
		return nil, common.Wrap(err)
	}
	toAccount := fromAccount
	if to != from {
		if toAccount, err = tp.getAccount(to); err != nil {
			return nil, common.Wrap(err)
		}
	}

	fromOldBalance := fromAccount.GetBalance(debitToken)
	fromOldNonce := fromAccount.Nonce
	if err := fromAccount.SubBalance(debitToken, debitAmount); err != nil {
		return nil, common.Wrap(err)
	}
	fromAccount.Nonce++
	updates := []common.AccountUpdate{
		common.NewBalanceUpdate(from, debitToken, fromOldBalance,
			fromAccount.GetBalance(debitToken), fromOldNonce, fromAccount.Nonce),
	}

	toOldBalance := toAccount.GetBalance(creditToken)
	toAccount.AddBalance(creditToken, creditAmount)
	updates = append(updates, common.NewBalanceUpdate(to, creditToken, toOldBalance,
		toAccount.GetBalance(creditToken), toAccount.Nonce, toAccount.Nonce))

	if err := tp.ledger.InsertAccount(from, fromAccount); err != nil {
		return nil, common.Wrap(err)
	}
	if to != from {
		if err := tp.ledger.InsertAccount(to, toAccount); err != nil {
			return nil, common.Wrap(err)
		}
	}
	return updates, nil
}

// sum returns a new big.Int holding a + b
func sum(a, b *big.Int) *big.Int {
	return new(big.Int).Add(a, b)
}
