package keys

import (
	"strings"
	"testing"
)

func testSeed() []byte {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	return seed
}

func TestGenerate(t *testing.T) {
	for _, scheme := range []Scheme{SchemeED25519, SchemeECDSA} {
		kp1, err := Generate(scheme)
		if err != nil {
			t.Fatalf("Generate(%s) failed: %v", scheme, err)
		}
		kp2, err := Generate(scheme)
		if err != nil {
			t.Fatalf("Generate(%s) (2nd call) failed: %v", scheme, err)
		}

		if kp1.Scheme() != scheme {
			t.Errorf("Expected scheme %s, got %s", scheme, kp1.Scheme())
		}
		if kp1.Public().String() == "" {
			t.Errorf("Expected non-empty public key for %s", scheme)
		}
		if kp1.Equal(kp2) {
			t.Errorf("Two generated %s keys are equal", scheme)
		}
	}
}

func TestGenerateUnknownScheme(t *testing.T) {
	if _, err := Generate(Scheme("rsa")); err == nil {
		t.Error("Expected error for unknown scheme, got nil")
	}
}

func TestDerive(t *testing.T) {
	seed := testSeed()

	for _, scheme := range []Scheme{SchemeED25519, SchemeECDSA} {
		kp1, err := Derive(scheme, seed, "sender")
		if err != nil {
			t.Fatalf("Derive(%s) failed: %v", scheme, err)
		}
		kp2, err := Derive(scheme, seed, "sender")
		if err != nil {
			t.Fatalf("Derive(%s) (2nd call) failed: %v", scheme, err)
		}
		if !kp1.Equal(kp2) {
			t.Errorf("Derived %s keys don't match", scheme)
		}

		kp3, err := Derive(scheme, seed, "receiver")
		if err != nil {
			t.Fatalf("Derive(%s, receiver) failed: %v", scheme, err)
		}
		if kp1.Equal(kp3) {
			t.Errorf("Different labels produced same %s key", scheme)
		}
	}
}

func TestDeriveShortSeed(t *testing.T) {
	if _, err := Derive(SchemeED25519, make([]byte, 16), "sender"); err == nil {
		t.Error("Expected error for short seed, got nil")
	}
}

func TestDeriveEmptyLabel(t *testing.T) {
	if _, err := Derive(SchemeECDSA, testSeed(), ""); err == nil {
		t.Error("Expected error for empty label, got nil")
	}
}

func TestFromStringRoundTrip(t *testing.T) {
	for _, scheme := range []Scheme{SchemeED25519, SchemeECDSA} {
		kp, err := Generate(scheme)
		if err != nil {
			t.Fatalf("Generate(%s) failed: %v", scheme, err)
		}

		parsed, err := FromString(scheme, kp.PrivateKeyString())
		if err != nil {
			t.Fatalf("FromString(%s) failed: %v", scheme, err)
		}
		if !parsed.Equal(kp) {
			t.Errorf("Parsed %s key does not match original", scheme)
		}
	}
}

func TestFromStringInvalid(t *testing.T) {
	if _, err := FromString(SchemeED25519, ""); err == nil {
		t.Error("Expected error for empty key")
	}
	if _, err := FromString(SchemeECDSA, "not-hex"); err == nil {
		t.Error("Expected error for malformed key")
	}
}

func TestAliasReference(t *testing.T) {
	kp, err := Generate(SchemeECDSA)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	alias1, err := kp.AliasReference()
	if err != nil {
		t.Fatalf("AliasReference failed: %v", err)
	}
	alias2, err := kp.AliasReference()
	if err != nil {
		t.Fatalf("AliasReference (2nd call) failed: %v", err)
	}

	if alias1 != alias2 {
		t.Errorf("Alias reference is not deterministic: %s != %s", alias1, alias2)
	}
	if !strings.HasPrefix(alias1, "0.0.") {
		t.Errorf("Expected alias in shard 0 realm 0, got %s", alias1)
	}

	other, _ := Generate(SchemeECDSA)
	alias3, _ := other.AliasReference()
	if alias1 == alias3 {
		t.Error("Different keys produced same alias reference")
	}
}

func TestEVMAddress(t *testing.T) {
	kp, err := Generate(SchemeECDSA)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	addr, err := kp.EVMAddress()
	if err != nil {
		t.Fatalf("EVMAddress failed: %v", err)
	}
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		t.Errorf("Unexpected EVM address format: %s", addr)
	}

	sdkAddr := strings.TrimPrefix(kp.Public().Hedera().ToEvmAddress(), "0x")
	if !strings.EqualFold(strings.TrimPrefix(addr, "0x"), sdkAddr) {
		t.Errorf("EVM address mismatch: go-ethereum %s, sdk %s", addr, sdkAddr)
	}

	ed, _ := Generate(SchemeED25519)
	if _, err := ed.EVMAddress(); err == nil {
		t.Error("Expected error for ed25519 EVM address")
	}
}

func TestParseScheme(t *testing.T) {
	cases := map[string]Scheme{
		"ed25519":   SchemeED25519,
		"ECDSA":     SchemeECDSA,
		"secp256k1": SchemeECDSA,
	}
	for in, want := range cases {
		got, err := ParseScheme(in)
		if err != nil {
			t.Errorf("ParseScheme(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseScheme(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseScheme("rsa"); err == nil {
		t.Error("Expected error for unknown scheme")
	}
}

func TestParseDetectsScheme(t *testing.T) {
	for _, scheme := range []Scheme{SchemeED25519, SchemeECDSA} {
		kp, err := Generate(scheme)
		if err != nil {
			t.Fatalf("Generate(%s) failed: %v", scheme, err)
		}

		parsed, err := Parse(kp.Hedera().StringDer())
		if err != nil {
			t.Fatalf("Parse(%s DER) failed: %v", scheme, err)
		}
		if parsed.Scheme() != scheme {
			t.Errorf("Parse(%s DER) scheme = %s", scheme, parsed.Scheme())
		}
		if !parsed.Equal(kp) {
			t.Errorf("Parse(%s DER) returned a different key", scheme)
		}
	}
}

func TestParseRawIsED25519(t *testing.T) {
	kp, err := Derive(SchemeED25519, testSeed(), "raw")
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	parsed, err := Parse(kp.Hedera().StringRaw())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Scheme() != SchemeED25519 || !parsed.Equal(kp) {
		t.Errorf("raw key parsed as %s", parsed.Scheme())
	}

	if _, err := Parse(""); err == nil {
		t.Error("Parse of an empty key succeeded")
	}
}
