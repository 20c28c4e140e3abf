package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"zusdchain/storage"
)

type record struct {
	Name   string
	Amount *big.Int
}

func TestKVRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	in := record{Name: "trove", Amount: big.NewInt(42)}
	require.NoError(t, m.KVPut([]byte("k"), &in))

	var out record
	found, err := m.KVGet([]byte("k"), &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, in.Name, out.Name)
	require.Zero(t, in.Amount.Cmp(out.Amount))
}

func TestKVGetMissingIsNotAnError(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	var out record
	found, err := m.KVGet([]byte("absent"), &out)
	require.NoError(t, err)
	require.False(t, found)
}

func TestKVGetNilOutChecksPresence(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	require.NoError(t, m.KVPut([]byte("k"), &record{Name: "x", Amount: big.NewInt(1)}))

	found, err := m.KVGet([]byte("k"), nil)
	require.NoError(t, err)
	require.True(t, found)
}

func TestKVDelete(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	require.NoError(t, m.KVPut([]byte("k"), &record{Name: "x", Amount: big.NewInt(1)}))
	require.NoError(t, m.KVDelete([]byte("k")))

	found, err := m.KVGet([]byte("k"), nil)
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, m.KVDelete([]byte("k")))
}
