package operation

import (
	"tokamak-zkrollup/common"
)

// NoopOp fills unused block chunks
type NoopOp struct{}

// Type returns TypeNoop
func (op *NoopOp) Type() Type { return TypeNoop }

// Chunks returns the chunks of a noop
func (op *NoopOp) Chunks() int { return TypeNoop.Chunks() }

func (op *NoopOp) isOp() {}

// AccountIDs returns no account
func (op *NoopOp) AccountIDs() []common.AccountID { return nil }

// PublicData returns one chunk of zeros
func (op *NoopOp) PublicData() ([]byte, error) {
	return newPubDataWriter(TypeNoop).bytes()
}

func noopFromPublicData(b []byte) (*NoopOp, error) {
	if _, err := newPubDataReader(TypeNoop, b); err != nil {
		return nil, common.Wrap(err)
	}
	return &NoopOp{}, nil
}

// CloseOp removes the empty account AccountID. Only historical Close
// operations exist, new ones can not be created.
type CloseOp struct {
	Tx        *common.Close
	AccountID common.AccountID
}

// Type returns TypeClose
func (op *CloseOp) Type() Type { return TypeClose }

// Chunks returns the chunks of a close
func (op *CloseOp) Chunks() int { return TypeClose.Chunks() }

func (op *CloseOp) isOp() {}

// AccountIDs returns the removed account
func (op *CloseOp) AccountIDs() []common.AccountID {
	return []common.AccountID{op.AccountID}
}

// PublicData returns [op][accountId 4]
func (op *CloseOp) PublicData() ([]byte, error) {
	return newPubDataWriter(TypeClose).accountID(op.AccountID).bytes()
}

func closeFromPublicData(b []byte) (*CloseOp, error) {
	r, err := newPubDataReader(TypeClose, b)
	if err != nil {
		return nil, common.Wrap(err)
	}
	op := &CloseOp{Tx: &common.Close{}}
	op.AccountID = r.accountID()
	op.Tx.AccountID = op.AccountID
	return op, nil
}
