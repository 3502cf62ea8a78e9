package hostapi

import (
	"errors"
	"math/big"

	"github.com/WizzyDev/solevm/core/types"
	"github.com/WizzyDev/solevm/internal/crypto"
	"github.com/WizzyDev/solevm/internal/rlp"
)

// ErrMalformedTransaction is returned by DecodeTransaction for RLP that
// does not unmarshal into the expected nine-element tuple, surfaced by
// a host as InvalidInstructionData.
var ErrMalformedTransaction = errors.New("hostapi: malformed transaction RLP")

// Transaction is the decoded form of a signed Ethereum transaction:
// `[nonce, gas_price, gas_limit, to?, value, data, v, r, s]`.
type Transaction struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       *types.Address // nil for contract creation
	Value    *big.Int
	Data     []byte
	ChainID  uint64 // 0 if the transaction carries no EIP-155 replay protection
	V        uint64
	R        *big.Int
	S        *big.Int
}

// rawTransaction is the RLP wire shape: `To` travels as a raw byte
// string (empty for contract creation) since the tuple's optional
// field has no natural encoding as a fixed-size Address.
type rawTransaction struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       []byte
	Value    *big.Int
	Data     []byte
	V        uint64
	R        *big.Int
	S        *big.Int
}

// DecodeTransaction parses a signed Ethereum transaction's RLP
// encoding, recovering chain_id from v per EIP-155 (v >= 35: chain_id
// = (v-35)/2; v in {27,28}: no replay protection, chain_id = 0).
func DecodeTransaction(data []byte) (*Transaction, error) {
	var raw rawTransaction
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return nil, ErrMalformedTransaction
	}

	tx := &Transaction{
		Nonce:    raw.Nonce,
		GasPrice: raw.GasPrice,
		GasLimit: raw.GasLimit,
		Value:    raw.Value,
		Data:     raw.Data,
		V:        raw.V,
		R:        raw.R,
		S:        raw.S,
	}
	if len(raw.To) > 0 {
		addr := types.BytesToAddress(raw.To)
		tx.To = &addr
	}
	if raw.V >= 35 {
		tx.ChainID = (raw.V - 35) / 2
	}
	return tx, nil
}

// signingPayload reconstructs the RLP payload that was hashed and
// signed to produce v/r/s: the six-tuple for pre-EIP-155 transactions,
// or the nine-tuple with (chain_id, 0, 0) appended per EIP-155.
func (tx *Transaction) signingPayload() []interface{} {
	var to []byte
	if tx.To != nil {
		to = tx.To.Bytes()
	}
	fields := []interface{}{tx.Nonce, tx.GasPrice, tx.GasLimit, to, tx.Value, tx.Data}
	if tx.ChainID != 0 {
		fields = append(fields, tx.ChainID, uint64(0), uint64(0))
	}
	return fields
}

// recoveryID returns the 0/1 secp256k1 recovery id implied by v, per
// EIP-155 (v >= 35) or the legacy convention (v in {27, 28}).
func (tx *Transaction) recoveryID() (byte, error) {
	if tx.V == 27 || tx.V == 28 {
		return byte(tx.V - 27), nil
	}
	if tx.V >= 35 {
		return byte((tx.V - 35) % 2), nil
	}
	return 0, errors.New("hostapi: unsupported recovery id")
}

// RecoverSender recovers the transaction's signing address via
// secp256k1, by reconstructing the exact payload that was signed and
// running internal/crypto.Ecrecover over its keccak256 hash.
func RecoverSender(tx *Transaction) (types.Address, error) {
	recID, err := tx.recoveryID()
	if err != nil {
		return types.Address{}, err
	}

	payload, err := rlp.EncodeToBytes(tx.signingPayload())
	if err != nil {
		return types.Address{}, err
	}
	hash := crypto.Keccak256(payload)

	sig := make([]byte, 64)
	tx.R.FillBytes(sig[0:32])
	tx.S.FillBytes(sig[32:64])

	pub, err := crypto.Ecrecover(hash, sig, recID)
	if err != nil {
		return types.Address{}, err
	}
	return types.BytesToAddress(crypto.PubkeyToAddressBytes(pub)), nil
}
