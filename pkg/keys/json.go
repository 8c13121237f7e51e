// Copyright 2025 Ledgerflow Authors

package keys

import "encoding/json"

// keyJSON is the wire shape for a Key, used by pkg/store to persist
// account keys without exposing Key's internal fields.
type keyJSON struct {
	Variant   Variant   `json:"variant"`
	Bytes     []byte    `json:"bytes,omitempty"`
	Threshold uint32    `json:"threshold,omitempty"`
	Children  []keyJSON `json:"children,omitempty"`
}

func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(toKeyJSON(k))
}

func toKeyJSON(k Key) keyJSON {
	children := make([]keyJSON, len(k.children))
	for i, c := range k.children {
		children[i] = toKeyJSON(c)
	}
	return keyJSON{Variant: k.variant, Bytes: k.bytes, Threshold: k.threshold, Children: children}
}

func (k *Key) UnmarshalJSON(data []byte) error {
	var kj keyJSON
	if err := json.Unmarshal(data, &kj); err != nil {
		return err
	}
	*k = fromKeyJSON(kj)
	return nil
}

func fromKeyJSON(kj keyJSON) Key {
	children := make([]Key, len(kj.Children))
	for i, c := range kj.Children {
		children[i] = fromKeyJSON(c)
	}
	return Key{variant: kj.Variant, bytes: kj.Bytes, threshold: kj.Threshold, children: children}
}
