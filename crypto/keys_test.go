package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	addr := key.PubKey().Address()
	encoded := addr.String()
	if !strings.HasPrefix(encoded, string(DropPrefix)) {
		t.Fatalf("address %q missing prefix %q", encoded, DropPrefix)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), addr.Bytes()) {
		t.Fatalf("decoded %x, want %x", decoded.Bytes(), addr.Bytes())
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not-an-address"); err == nil {
		t.Fatal("garbage address accepted")
	}
	if _, err := DecodeAddress(""); err == nil {
		t.Fatal("empty address accepted")
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.PubKey().RawAddress() != key.PubKey().RawAddress() {
		t.Fatal("restored key derives a different address")
	}
}
