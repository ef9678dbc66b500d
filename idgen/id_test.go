package idgen

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/sinteflake/xerrors"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		input   string
		want    ID
		wantErr bool
	}{
		{input: "0", want: 0},
		{input: "18446744073709551615", want: ID(^uint64(0))},
		{input: "1234567890123456789", want: 1234567890123456789},
		{input: "", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "0x10", wantErr: true},
		{input: "18446744073709551616", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id, err := ParseID(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestIDJSON(t *testing.T) {
	type payload struct {
		ID ID `json:"id"`
	}

	data, err := json.Marshal(payload{ID: ID(^uint64(0))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"18446744073709551615"}`, string(data))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"id":"42"}`), &p))
	assert.Equal(t, ID(42), p.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id":43}`), &p))
	assert.Equal(t, ID(43), p.ID)

	// null 不修改已有值
	p.ID = 7
	require.NoError(t, json.Unmarshal([]byte(`{"id":null}`), &p))
	assert.Equal(t, ID(7), p.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id":"abc"}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"id":1.5}`), &p))
}
