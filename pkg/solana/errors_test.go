package solana

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ybbus/jsonrpc"
)

func decodeRaw(t *testing.T, s string) interface{} {
	d := json.NewDecoder(bytes.NewBufferString(s))
	d.UseNumber()

	var raw interface{}
	require.NoError(t, d.Decode(&raw))
	return raw
}

func TestParseTransactionError(t *testing.T) {
	e, err := ParseTransactionError(decodeRaw(t, `{"InstructionError":[2,{"Custom":3}]}`))
	require.NoError(t, err)
	assert.Equal(t, TransactionErrorInstructionError, e.ErrorKey())
	require.NotNil(t, e.InstructionError())
	assert.Equal(t, 2, e.InstructionError().Index)
	assert.Equal(t, InstructionErrorCustom, e.InstructionError().ErrorKey())
	require.NotNil(t, e.InstructionError().CustomError())
	assert.Equal(t, CustomError(3), *e.InstructionError().CustomError())

	e, err = ParseTransactionError(decodeRaw(t, `{"InstructionError":[0,"InsufficientFunds"]}`))
	require.NoError(t, err)
	assert.Equal(t, TransactionErrorInstructionError, e.ErrorKey())
	assert.Equal(t, InstructionErrorInsufficientFunds, e.InstructionError().ErrorKey())
	assert.Contains(t, e.Error(), "Instruction 0")

	e, err = ParseTransactionError(decodeRaw(t, `"BlockhashNotFound"`))
	require.NoError(t, err)
	assert.Equal(t, TransactionErrorBlockhashNotFound, e.ErrorKey())
	assert.Nil(t, e.InstructionError())

	e, err = ParseTransactionError(decodeRaw(t, `{"InsufficientFundsForRent":{"account_index":1}}`))
	require.NoError(t, err)
	assert.Equal(t, TransactionErrorInsufficientFundsForRent, e.ErrorKey())

	e, err = ParseTransactionError(nil)
	assert.NoError(t, err)
	assert.Nil(t, e)

	_, err = ParseTransactionError(decodeRaw(t, `{"a":1,"b":2}`))
	assert.Error(t, err)
}

func TestParseRPCError(t *testing.T) {
	e, err := ParseRPCError(nil)
	assert.NoError(t, err)
	assert.Nil(t, e)

	e, err = ParseRPCError(&jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed",
		Data:    map[string]interface{}{"err": "BlockhashNotFound"},
	})
	require.NoError(t, err)
	assert.Equal(t, TransactionErrorBlockhashNotFound, e.ErrorKey())

	_, err = ParseRPCError(&jsonrpc.RPCError{Code: -32002, Data: "unstructured"})
	assert.Error(t, err)
}

func TestNewTransactionError(t *testing.T) {
	e := NewTransactionError(TransactionErrorDuplicateSignature)
	assert.Equal(t, TransactionErrorDuplicateSignature, e.ErrorKey())

	s, err := e.JSONString()
	require.NoError(t, err)
	assert.Equal(t, `"DuplicateSignature"`, s)
}

func TestParseJSONNumber(t *testing.T) {
	for i, c := range []interface{}{"1", 1.0, json.Number("1")} {
		v, err := parseJSONNumber(c)
		assert.NoError(t, err)
		assert.Equal(t, 1, v, i)
	}

	_, err := parseJSONNumber(true)
	assert.Error(t, err)
}

func TestNewInstructionError(t *testing.T) {
	e := NewInstructionError(1, InstructionErrorInsufficientFunds)
	assert.Equal(t, TransactionErrorInstructionError, e.ErrorKey())
	require.NotNil(t, e.InstructionError())
	assert.Equal(t, 1, e.InstructionError().Index)
	assert.Equal(t, InstructionErrorInsufficientFunds, e.InstructionError().ErrorKey())

	s, err := e.JSONString()
	require.NoError(t, err)
	assert.Equal(t, `{"InstructionError":[1,"InsufficientFunds"]}`, s)

	parsed, err := ParseTransactionError(decodeRaw(t, s))
	require.NoError(t, err)
	assert.Equal(t, e.InstructionError().ErrorKey(), parsed.InstructionError().ErrorKey())

	e = NewCustomInstructionError(0, CustomError(6))
	require.NotNil(t, e.InstructionError().CustomError())
	assert.Equal(t, CustomError(6), *e.InstructionError().CustomError())

	s, err = e.JSONString()
	require.NoError(t, err)
	assert.Equal(t, `{"InstructionError":[0,{"Custom":6}]}`, s)
}
