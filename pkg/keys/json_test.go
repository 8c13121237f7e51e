// Copyright 2025 Ledgerflow Authors

package keys

import (
	"encoding/json"
	"testing"
)

func TestKeyJSONRoundTrip(t *testing.T) {
	original := NewThresholdKey(2, []Key{NewEd25519([]byte{1, 2, 3}), NewEcdsaSecp256k1([]byte{4, 5, 6})})

	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Key
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if !decoded.Equal(original) {
		t.Error("round-tripped key does not equal the original")
	}
}
