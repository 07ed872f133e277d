package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/davfs/pkg/store/metadata"
)

// Serialization Strategy
// ======================
//
// BadgerDB stores raw bytes, so rows are serialized before storage. Both row
// types are encoded as JSON: the rows are small, written at human frequency
// (LOCK/PROPPATCH requests), and debuggability of the database matters more
// than encoding throughput here.

func encodeLock(lock *metadata.Lock) ([]byte, error) {
	data, err := json.Marshal(lock)
	if err != nil {
		return nil, fmt.Errorf("failed to encode lock: %w", err)
	}
	return data, nil
}

func decodeLock(data []byte) (*metadata.Lock, error) {
	var lock metadata.Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to decode lock: %w", err)
	}
	return &lock, nil
}

func encodeProperty(prop *metadata.Property) ([]byte, error) {
	data, err := json.Marshal(prop)
	if err != nil {
		return nil, fmt.Errorf("failed to encode property: %w", err)
	}
	return data, nil
}

func decodeProperty(data []byte) (*metadata.Property, error) {
	var prop metadata.Property
	if err := json.Unmarshal(data, &prop); err != nil {
		return nil, fmt.Errorf("failed to decode property: %w", err)
	}
	return &prop, nil
}
