package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRecordWireFormat(t *testing.T) {
	data, err := MarshalRecord(NewSaveRecord("Mi4wNDh8fDE2", 1700000000000))
	require.NoError(t, err)
	assert.JSONEq(t, `{"game":"Mi4wNDh8fDE2","time":1700000000000}`, string(data))

	// Records written by the browser add-on use the same shape.
	rec, err := UnmarshalRecord([]byte(`{"game":"abc","time":42}`))
	require.NoError(t, err)
	assert.Equal(t, SaveRecord{Payload: "abc", Timestamp: 42}, rec)
}

func TestUnmarshalRecordRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"not json":      `garbage`,
		"empty payload": `{"game":"","time":10}`,
		"missing game":  `{"time":10}`,
		"negative time": `{"game":"x","time":-1}`,
		"wrong type":    `{"game":12,"time":"soon"}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := UnmarshalRecord([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestNewerThanIsStrict(t *testing.T) {
	older := NewSaveRecord("a", 100)
	newer := NewSaveRecord("b", 200)
	tie := NewSaveRecord("c", 200)

	assert.True(t, newer.NewerThan(older))
	assert.False(t, older.NewerThan(newer))
	assert.False(t, tie.NewerThan(newer))
}

func TestFingerprintDependsOnPayloadOnly(t *testing.T) {
	a := NewSaveRecord("same", 1)
	b := NewSaveRecord("same", 2)
	c := NewSaveRecord("other", 1)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.FingerprintHex(), 16)
}
