package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ErrEmptyPayload is returned when a record carries no game state.
var ErrEmptyPayload = errors.New("save record payload is empty")

// SaveRecord is a timestamped, opaque game save. It is the unit of synchronization
// between the local device and the remote store.
//
// The JSON form uses the keys "game" and "time" so records written by the browser
// add-on stay readable.
type SaveRecord struct {
	Payload   string `json:"game"`
	Timestamp int64  `json:"time"`
}

// NewSaveRecord builds a record for payload produced at timestamp (epoch milliseconds).
func NewSaveRecord(payload string, timestamp int64) SaveRecord {
	return SaveRecord{
		Payload:   payload,
		Timestamp: timestamp,
	}
}

// NewerThan reports whether r is strictly newer than other.
func (r SaveRecord) NewerThan(other SaveRecord) bool {
	return r.Timestamp > other.Timestamp
}

// Fingerprint returns a hash of the payload, for logs and status output.
func (r SaveRecord) Fingerprint() uint64 {
	return xxhash.Sum64String(r.Payload)
}

// FingerprintHex is Fingerprint formatted for log fields.
func (r SaveRecord) FingerprintHex() string {
	return fmt.Sprintf("%016x", r.Fingerprint())
}

// Validate checks the record can be synchronized.
func (r SaveRecord) Validate() error {
	if r.Payload == "" {
		return ErrEmptyPayload
	}
	if r.Timestamp < 0 {
		return fmt.Errorf("save record timestamp must not be negative: %d", r.Timestamp)
	}
	return nil
}

// MarshalRecord encodes a record in its wire form.
func MarshalRecord(r SaveRecord) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal save record: %w", err)
	}
	return data, nil
}

// UnmarshalRecord decodes and validates a record from its wire form.
func UnmarshalRecord(data []byte) (SaveRecord, error) {
	var r SaveRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return SaveRecord{}, fmt.Errorf("unmarshal save record: %w", err)
	}
	if err := r.Validate(); err != nil {
		return SaveRecord{}, err
	}
	return r, nil
}
