package common

import (
	"testing"

	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/stretchr/testify/require"
)

// genBJJKey returns a deterministic BabyJubJub key and the hash of its
// public key
func genBJJKey(t *testing.T, seed byte) (*babyjub.PrivateKey, PubKeyHash) {
	var sk babyjub.PrivateKey
	for i := range sk {
		sk[i] = seed + byte(i)
	}
	pkHash, err := PubKeyHashFromBabyJub(sk.Public())
	require.NoError(t, err)
	return &sk, pkHash
}
