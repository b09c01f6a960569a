// Package keys provides key pair generation for the two account key schemes.
// ED25519 keys back accounts created explicitly; ECDSA (secp256k1) keys are
// alias-derivable, so a provisional account reference exists before the account does.
package keys

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	hedera "github.com/hashgraph/hedera-sdk-go/v2"
	"golang.org/x/crypto/hkdf"
)

// Scheme identifies the signature scheme of a key pair.
type Scheme string

const (
	// SchemeED25519 is used for directly created accounts.
	SchemeED25519 Scheme = "ed25519"
	// SchemeECDSA is the secp256k1 scheme used for alias-derived accounts.
	SchemeECDSA Scheme = "ecdsa"
)

const seedKeySize = 32

// compressedSecp256k1Size is the length of a compressed secp256k1 public key.
const compressedSecp256k1Size = 33

// MinSeedLength is the shortest seed accepted by Derive.
const MinSeedLength = 32

// ErrAliasUnsupported is returned when an alias reference is requested for a key
// that cannot back one.
var ErrAliasUnsupported = errors.New("key scheme does not support alias references")

// ParseScheme converts a configuration value into a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeED25519:
		return SchemeED25519, nil
	case SchemeECDSA, "secp256k1":
		return SchemeECDSA, nil
	default:
		return "", fmt.Errorf("unknown key scheme %q", s)
	}
}

func (s Scheme) String() string { return string(s) }

// KeyPair is an immutable signing key together with its public key.
type KeyPair struct {
	scheme  Scheme
	private hedera.PrivateKey
}

// PublicKey is the verification half of a KeyPair.
type PublicKey struct {
	scheme Scheme
	key    hedera.PublicKey
}

// Generate creates a fresh random key pair for the scheme.
func Generate(scheme Scheme) (*KeyPair, error) {
	var (
		pk  hedera.PrivateKey
		err error
	)
	switch scheme {
	case SchemeED25519:
		pk, err = hedera.PrivateKeyGenerateEd25519()
	case SchemeECDSA:
		pk, err = hedera.PrivateKeyGenerateEcdsa()
	default:
		return nil, fmt.Errorf("unknown key scheme %q", scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s keypair: %w", scheme, err)
	}
	return &KeyPair{scheme: scheme, private: pk}, nil
}

// Derive deterministically derives a key pair from a seed and a label.
// The same seed and label always yield the same key; distinct labels yield distinct keys.
// Uses HKDF with SHA-256 for key derivation.
func Derive(scheme Scheme, seed []byte, label string) (*KeyPair, error) {
	if len(seed) < MinSeedLength {
		return nil, fmt.Errorf("seed must be at least %d bytes", MinSeedLength)
	}
	if label == "" {
		return nil, fmt.Errorf("label is required")
	}

	info := []byte("ledger-provisioner-" + string(scheme) + "-" + label)
	reader := hkdf.New(sha256.New, seed, nil, info)

	raw := make([]byte, seedKeySize)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return nil, fmt.Errorf("failed to derive key seed: %w", err)
	}

	var (
		pk  hedera.PrivateKey
		err error
	)
	switch scheme {
	case SchemeED25519:
		pk, err = hedera.PrivateKeyFromBytesEd25519(raw)
	case SchemeECDSA:
		// Rejects scalars outside the secp256k1 group order.
		if _, err = crypto.ToECDSA(raw); err != nil {
			return nil, fmt.Errorf("derived scalar is not a valid secp256k1 key: %w", err)
		}
		pk, err = hedera.PrivateKeyFromBytesECDSA(raw)
	default:
		return nil, fmt.Errorf("unknown key scheme %q", scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create private key: %w", err)
	}
	return &KeyPair{scheme: scheme, private: pk}, nil
}

// FromString parses an encoded private key (raw hex or DER hex) of the given scheme.
func FromString(scheme Scheme, s string) (*KeyPair, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, fmt.Errorf("private key is empty")
	}

	var (
		pk  hedera.PrivateKey
		err error
	)
	switch scheme {
	case SchemeED25519:
		pk, err = hedera.PrivateKeyFromStringEd25519(s)
	case SchemeECDSA:
		pk, err = hedera.PrivateKeyFromStringECDSA(s)
	default:
		return nil, fmt.Errorf("unknown key scheme %q", scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s private key: %w", scheme, err)
	}
	return &KeyPair{scheme: scheme, private: pk}, nil
}

// Parse parses an encoded private key and detects its scheme. DER keys carry
// their own algorithm; a raw 32-byte key is read as ED25519, as the SDK does.
func Parse(s string) (*KeyPair, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, fmt.Errorf("private key is empty")
	}

	pk, err := hedera.PrivateKeyFromString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	scheme := SchemeED25519
	if len(pk.PublicKey().BytesRaw()) == compressedSecp256k1Size {
		scheme = SchemeECDSA
	}
	return &KeyPair{scheme: scheme, private: pk}, nil
}

// Scheme returns the key scheme.
func (kp *KeyPair) Scheme() Scheme { return kp.scheme }

// Hedera returns the SDK private key used for signing.
func (kp *KeyPair) Hedera() hedera.PrivateKey { return kp.private }

// Public returns the public half of the pair.
func (kp *KeyPair) Public() PublicKey {
	return PublicKey{scheme: kp.scheme, key: kp.private.PublicKey()}
}

// PrivateKeyString returns the private key in the encoding used by the report:
// DER hex for ED25519 and raw hex for ECDSA.
func (kp *KeyPair) PrivateKeyString() string {
	if kp.scheme == SchemeECDSA {
		return kp.private.StringRaw()
	}
	return kp.private.String()
}

// Equal reports whether both pairs hold the same key.
func (kp *KeyPair) Equal(other *KeyPair) bool {
	if kp == nil || other == nil {
		return kp == other
	}
	return kp.scheme == other.scheme && kp.Public().String() == other.Public().String()
}

// AliasReference derives the provisional account reference for the public key.
// The reference becomes a real account on first funding.
func (kp *KeyPair) AliasReference() (string, error) {
	return kp.Public().AliasReference()
}

// EVMAddress returns the EIP-55 checksummed EVM address of an ECDSA key.
func (kp *KeyPair) EVMAddress() (string, error) {
	if kp.scheme != SchemeECDSA {
		return "", fmt.Errorf("evm address requires an ecdsa key, got %s", kp.scheme)
	}
	priv, err := crypto.ToECDSA(kp.private.BytesRaw())
	if err != nil {
		return "", fmt.Errorf("failed to convert private key: %w", err)
	}
	return crypto.PubkeyToAddress(priv.PublicKey).Hex(), nil
}

// Scheme returns the key scheme.
func (pk PublicKey) Scheme() Scheme { return pk.scheme }

// Hedera returns the SDK public key.
func (pk PublicKey) Hedera() hedera.PublicKey { return pk.key }

// String returns the raw hex encoding of the public key.
func (pk PublicKey) String() string { return pk.key.StringRaw() }

// AliasReference derives the provisional account reference ("0.0.<alias>") for the key.
func (pk PublicKey) AliasReference() (string, error) {
	if pk.scheme != SchemeECDSA && pk.scheme != SchemeED25519 {
		return "", ErrAliasUnsupported
	}
	id := pk.key.ToAccountID(0, 0)
	if id == nil {
		return "", ErrAliasUnsupported
	}
	return id.String(), nil
}
