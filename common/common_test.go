package common

import (
	"context"
	"math"
	"testing"

	"github.com/nspcc-dev/consensus-finalizer/authority"
	"github.com/nspcc-dev/consensus-finalizer/ledger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

const testComponent = 5

func TestBox_HasConsensusReached(t *testing.T) {
	for _, tc := range []struct {
		name    string
		winning uint64
		total   uint64
		reached bool
	}{
		{name: "no stake", winning: 0, total: 0},
		{name: "no votes", winning: 0, total: 100},
		{name: "simple majority", winning: 51, total: 100},
		{name: "exactly two thirds", winning: 2, total: 3},
		{name: "above two thirds", winning: 67, total: 100, reached: true},
		{name: "unanimous", winning: 100, total: 100, reached: true},
		{name: "inconsistent tally", winning: 101, total: 100},
		{name: "large stakes", winning: math.MaxUint64, total: math.MaxUint64, reached: true},
		{name: "large stakes below threshold", winning: math.MaxUint64 / 3 * 2, total: math.MaxUint64},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := Box{ID: 1, WinningStake: tc.winning, TotalStake: tc.total}
			require.Equal(t, tc.reached, b.HasConsensusReached())
		})
	}
}

func TestBox_WinningBallot(t *testing.T) {
	b := Box{
		ID:      42,
		Winning: Ballot{MetaMerkleRoot: util.Uint256{1}, Data: []byte("summary")},
	}
	require.EqualValues(t, 42, b.BallotID())

	res := b.WinningBallot()
	require.True(t, res.Equals(b.Winning))

	res.Data[0] = 'S'
	require.Equal(t, []byte("summary"), b.Winning.Data)
}

func TestBallot_FromStackItem(t *testing.T) {
	b := Ballot{
		MetaMerkleRoot: util.Uint256{1, 2, 3},
		SnapshotHash:   util.Uint256{4, 5, 6},
		Data:           []byte(`{"option":"A","votes":1000}`),
	}

	data, err := Serialize(&b)
	require.NoError(t, err)

	var res Ballot
	require.NoError(t, Deserialize(data, &res))
	require.True(t, b.Equals(res))

	for _, item := range []stackitem.Item{
		stackitem.Make(1),
		stackitem.NewStruct([]stackitem.Item{stackitem.Make(1)}),
		stackitem.NewStruct([]stackitem.Item{
			stackitem.NewByteArray([]byte{1}),
			stackitem.NewByteArray(make([]byte, 32)),
			stackitem.Make([]byte{}),
		}),
	} {
		require.Error(t, res.FromStackItem(item))
	}
}

func TestSerialized(t *testing.T) {
	l := ledger.New(ledger.Prm{})
	key := []byte("ballot")
	b := Ballot{MetaMerkleRoot: util.Uint256{7}}

	require.NoError(t, l.Run(context.Background(), func(tx *ledger.Tx) error {
		require.NoError(t, CreateSerialized(tx, testComponent, key, &b))
		require.ErrorIs(t, CreateSerialized(tx, testComponent, key, &b), ledger.ErrExists)

		var res Ballot
		require.NoError(t, GetSerialized(tx, testComponent, key, &res))
		require.True(t, b.Equals(res))

		b.SnapshotHash = util.Uint256{8}
		return SetSerialized(tx, testComponent, key, &b)
	}))

	tx := l.Begin()
	defer tx.Rollback()

	var res Ballot
	require.NoError(t, GetSerialized(tx, testComponent, key, &res))
	require.True(t, b.Equals(res))

	require.ErrorIs(t, GetSerialized(tx, testComponent, []byte("missing"), &res), ledger.ErrNotFound)
}

func TestCheckWitness(t *testing.T) {
	program := util.Uint160{1}
	d := authority.NewDeriver(program)
	seeds := [][]byte{[]byte("item"), {1}}

	addr, nonce, err := d.Find(seeds...)
	require.NoError(t, err)

	proof, err := d.Sign(nonce, seeds...)
	require.NoError(t, err)

	l := ledger.New(ledger.Prm{})

	t.Run("not created", func(t *testing.T) {
		tx := l.Begin()
		defer tx.Rollback()

		err := CheckWitness(tx, testComponent, addr, proof, program, seeds...)
		require.ErrorIs(t, err, authority.ErrMismatch)
	})

	tx := l.Begin()
	defer tx.Rollback()

	require.NoError(t, tx.Create(testComponent, addr[:], []byte{1}))

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, CheckWitness(tx, testComponent, addr, proof, program, seeds...))
	})

	t.Run("other component", func(t *testing.T) {
		err := CheckWitness(tx, testComponent+1, addr, proof, program, seeds...)
		require.ErrorIs(t, err, authority.ErrMismatch)
	})

	t.Run("other program", func(t *testing.T) {
		err := CheckWitness(tx, testComponent, addr, proof, util.Uint160{2}, seeds...)
		require.ErrorIs(t, err, authority.ErrMismatch)
	})

	t.Run("other seeds", func(t *testing.T) {
		otherSeeds := [][]byte{[]byte("item"), {2}}

		otherAddr, otherNonce, err := d.Find(otherSeeds...)
		require.NoError(t, err)
		require.NoError(t, tx.Create(testComponent, otherAddr[:], []byte{2}))

		err = CheckWitness(tx, testComponent, otherAddr, proof, program, otherSeeds...)
		require.ErrorIs(t, err, authority.ErrMismatch)

		err = CheckWitness(tx, testComponent, addr, proof, program, otherSeeds...)
		require.ErrorIs(t, err, authority.ErrMismatch)

		otherProof, err := d.Sign(otherNonce, otherSeeds...)
		require.NoError(t, err)
		require.NoError(t, CheckWitness(tx, testComponent, otherAddr, otherProof, program, otherSeeds...))
	})
}
