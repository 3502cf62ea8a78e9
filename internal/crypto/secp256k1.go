package crypto

import (
	"errors"

	secp256k1ecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// ErrInvalidRecoveryID is returned by Ecrecover when v is outside {0, 1}.
// The rare x-overflow recovery IDs (2, 3) are not handled, matching the
// common-case ecrecover every production Ethereum client implements.
var ErrInvalidRecoveryID = errors.New("crypto: invalid recovery id")

// Ecrecover recovers the uncompressed 65-byte public key that produced
// sig (64 bytes R||S) over hash, given recovery id v in {0, 1}. Built on
// github.com/btcsuite/btcd/btcec/v2, since stdlib has no secp256k1
// support at all.
func Ecrecover(hash, sig []byte, v byte) ([]byte, error) {
	if len(hash) != 32 || len(sig) != 64 {
		return nil, errors.New("crypto: invalid ecrecover input length")
	}
	if v > 1 {
		return nil, ErrInvalidRecoveryID
	}

	compact := make([]byte, 65)
	compact[0] = 27 + v
	copy(compact[1:33], sig[:32])
	copy(compact[33:65], sig[32:64])

	pub, _, err := secp256k1ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, err
	}
	return pub.SerializeUncompressed(), nil
}

// PubkeyToAddressBytes derives the Ethereum-style 20-byte address from
// an uncompressed 65-byte public key: Keccak256(pubkey[1:])[12:].
func PubkeyToAddressBytes(pubkey []byte) []byte {
	h := Keccak256(pubkey[1:])
	return h[12:]
}
