package substate

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // deprecated upstream, still required for the RIPEMD-160 precompile

	"github.com/WizzyDev/solevm/core/types"
	"github.com/WizzyDev/solevm/internal/crypto"
)

// Precompile is a native pseudo-contract: it never executes EVM
// bytecode, only Go code, and is dispatched by address instead of by
// CALL-ing into a Frame.
type Precompile interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

func wordCount(n int) uint64 { return uint64((n + 31) / 32) }

func padRight(b []byte, n int) []byte {
	if len(b) >= n {
		return b[:n]
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// ecrecoverPrecompile implements address 0x01 on top of
// internal/crypto.Ecrecover, a real secp256k1 recovery (see
// internal/crypto/secp256k1.go).
type ecrecoverPrecompile struct{}

func (ecrecoverPrecompile) RequiredGas(input []byte) uint64 { return 3000 }

func (ecrecoverPrecompile) Run(input []byte) ([]byte, error) {
	input = padRight(input, 128)
	hash := input[0:32]
	for _, b := range input[32:63] {
		if b != 0 {
			return nil, nil
		}
	}
	vByte := input[63]
	if vByte != 27 && vByte != 28 {
		return nil, nil
	}
	r, s := input[64:96], input[96:128]
	pub, err := crypto.Ecrecover(hash, append(append([]byte{}, r...), s...), vByte-27)
	if err != nil {
		return nil, nil
	}
	addr := crypto.PubkeyToAddressBytes(pub)
	result := make([]byte, 32)
	copy(result[12:], addr)
	return result, nil
}

// sha256Precompile implements address 0x02.
type sha256Precompile struct{}

func (sha256Precompile) RequiredGas(input []byte) uint64 { return 60 + 12*wordCount(len(input)) }

func (sha256Precompile) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

// ripemd160Precompile implements address 0x03.
type ripemd160Precompile struct{}

func (ripemd160Precompile) RequiredGas(input []byte) uint64 { return 600 + 120*wordCount(len(input)) }

func (ripemd160Precompile) Run(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	digest := h.Sum(nil)
	result := make([]byte, 32)
	copy(result[12:], digest)
	return result, nil
}

// identityPrecompile implements address 0x04.
type identityPrecompile struct{}

func (identityPrecompile) RequiredGas(input []byte) uint64 { return 15 + 3*wordCount(len(input)) }

func (identityPrecompile) Run(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}

// DefaultPrecompiles returns the pre-Istanbul standard precompile set
// (addresses 0x01-0x04). Everything past the standard catalog — later
// BN254/BLS/KZG families, and the Solana-specific metadata-extension
// precompile this host ecosystem defines alongside the standard four —
// is deliberately not wired here: it depends on Solana/mpl-token-metadata
// types this module has no other reason to import.
func DefaultPrecompiles() map[types.Address]Precompile {
	return map[types.Address]Precompile{
		types.BytesToAddress([]byte{1}): ecrecoverPrecompile{},
		types.BytesToAddress([]byte{2}): sha256Precompile{},
		types.BytesToAddress([]byte{3}): ripemd160Precompile{},
		types.BytesToAddress([]byte{4}): identityPrecompile{},
	}
}
