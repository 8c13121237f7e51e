// Copyright 2025 Ledgerflow Authors

package sigexpand

import (
	"crypto/ed25519"
	"testing"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/ledgerflow/txengine/pkg/keys"
	"github.com/ledgerflow/txengine/pkg/types"
)

func TestExpandMatchesUniquePrefix(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("txbytes")
	sig := ed25519.Sign(priv, msg)

	sigs := types.SignatureMap{{PubKeyPrefix: pub[:4], Signature: sig, Kind: types.SigKindEd25519}}
	k := keys.NewEd25519(pub)

	pairs, err := Expand(msg, sigs, []keys.Key{k})
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected one matched pair, got %d", len(pairs))
	}
	if !pairs[0].Key.Equal(k) {
		t.Error("matched pair key mismatch")
	}
}

func TestExpandSkipsUnmatchedKey(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(nil)
	other := make([]byte, 32)
	k := keys.NewEd25519(pub)

	sigs := types.SignatureMap{{PubKeyPrefix: other[:4], Signature: make([]byte, 64), Kind: types.SigKindEd25519}}
	pairs, err := Expand([]byte("m"), sigs, []keys.Key{k})
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 0 {
		t.Fatalf("expected no matches, got %d", len(pairs))
	}
}

func TestExpandRejectsUnsupportedKind(t *testing.T) {
	k := keys.NewContractID([]byte{1, 2, 3})
	_, err := Expand([]byte("m"), nil, []keys.Key{k})
	if err == nil {
		t.Fatal("expected an error for an unsupported key variant")
	}
}

func TestAliasOfMatchesGethAddress(t *testing.T) {
	priv, err := gethcrypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	uncompressed := gethcrypto.FromECDSAPub(&priv.PublicKey)

	alias, err := AliasOf(uncompressed)
	if err != nil {
		t.Fatal(err)
	}
	if alias == ([20]byte{}) {
		t.Error("derived alias should not be the zero value for a random key")
	}

	wantAddr := gethcrypto.PubkeyToAddress(priv.PublicKey)
	if alias != [20]byte(wantAddr) {
		t.Error("derived alias must match go-ethereum's own address derivation")
	}
}

func TestCollapseFlattensKeyList(t *testing.T) {
	pub1, _, _ := ed25519.GenerateKey(nil)
	pub2, _, _ := ed25519.GenerateKey(nil)
	list := keys.NewKeyList([]keys.Key{keys.NewEd25519(pub1), keys.NewEd25519(pub2)})

	leaves := Collapse(list)
	if len(leaves) != 2 {
		t.Fatalf("expected 2 leaves, got %d", len(leaves))
	}
}
