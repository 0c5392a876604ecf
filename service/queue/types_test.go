package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTxType(t *testing.T) {
	for _, txType := range AllTxTypes {
		parsed, err := ParseTxType(string(txType))
		require.NoError(t, err)
		assert.Equal(t, txType, parsed)
	}

	_, err := ParseTxType("mint")
	assert.Error(t, err, "types are case-sensitive")

	_, err = ParseTxType("")
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	for _, role := range AllRoles {
		parsed, err := ParseRole(string(role))
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}

	_, err := ParseRole("SUPERUSER")
	assert.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusExecuted.Terminal())
	assert.True(t, StatusAutoExecuted.Terminal())
}

func TestTransactionDue(t *testing.T) {
	after := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	txn := &PendingTransaction{ExecuteAfter: after}

	assert.False(t, txn.Due(after.Add(-time.Second)))
	assert.True(t, txn.Due(after), "boundary instant is due")
	assert.True(t, txn.Due(after.Add(time.Second)))
}

func TestIsZeroAddress(t *testing.T) {
	assert.True(t, IsZeroAddress(""))
	assert.True(t, IsZeroAddress(ZeroAddress))
	assert.False(t, IsZeroAddress("0x00000000000000000000000000000000000000c1"))
}
