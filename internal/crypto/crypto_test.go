package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	secp256k1ecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// ---------------------------------------------------------------------------
// Keccak256
// ---------------------------------------------------------------------------

func TestKeccak256_EmptyInput(t *testing.T) {
	got := hex.EncodeToString(Keccak256())
	want := "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if got != want {
		t.Fatalf("Keccak256() = %s, want %s", got, want)
	}
}

func TestKeccak256_MultiArgMatchesConcat(t *testing.T) {
	a, b := []byte("hello, "), []byte("world")
	got := Keccak256(a, b)
	want := Keccak256(append(append([]byte{}, a...), b...))
	if !bytes.Equal(got, want) {
		t.Fatal("Keccak256(a, b) should equal Keccak256(concat(a, b))")
	}
}

// ---------------------------------------------------------------------------
// Ecrecover
// ---------------------------------------------------------------------------

func TestEcrecover_RoundTrip(t *testing.T) {
	var keyBytes [32]byte
	keyBytes[31] = 0x01
	priv, pub := btcec.PrivKeyFromBytes(keyBytes[:])

	hash := Keccak256([]byte("message to sign"))

	compact := secp256k1ecdsa.SignCompact(priv, hash, false)
	recID := compact[0] - 27
	sig := compact[1:]

	recovered, err := Ecrecover(hash, sig, recID)
	if err != nil {
		t.Fatalf("Ecrecover: %v", err)
	}

	want := pub.SerializeUncompressed()
	if !bytes.Equal(recovered, want) {
		t.Fatalf("recovered pubkey mismatch:\ngot  %x\nwant %x", recovered, want)
	}
}

func TestEcrecover_InvalidInputLengths(t *testing.T) {
	if _, err := Ecrecover(make([]byte, 31), make([]byte, 64), 0); err == nil {
		t.Fatal("expected error for short hash")
	}
	if _, err := Ecrecover(make([]byte, 32), make([]byte, 63), 0); err == nil {
		t.Fatal("expected error for short sig")
	}
}

func TestEcrecover_InvalidRecoveryID(t *testing.T) {
	if _, err := Ecrecover(make([]byte, 32), make([]byte, 64), 2); err != ErrInvalidRecoveryID {
		t.Fatalf("got %v, want ErrInvalidRecoveryID", err)
	}
}

// ---------------------------------------------------------------------------
// PubkeyToAddressBytes
// ---------------------------------------------------------------------------

func TestPubkeyToAddressBytes_Length(t *testing.T) {
	var keyBytes [32]byte
	keyBytes[31] = 0x02
	_, pub := btcec.PrivKeyFromBytes(keyBytes[:])

	addr := PubkeyToAddressBytes(pub.SerializeUncompressed())
	if len(addr) != 20 {
		t.Fatalf("address length = %d, want 20", len(addr))
	}

	want := Keccak256(pub.SerializeUncompressed()[1:])[12:]
	if !bytes.Equal(addr, want) {
		t.Fatalf("address = %x, want %x", addr, want)
	}
}
