package authority

import (
	"bytes"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

var testProgram = util.Uint160{1, 2, 3, 4, 5}

func TestCreateAddress(t *testing.T) {
	seeds := [][]byte{[]byte("seed"), {1, 2, 3}}

	t.Run("deterministic", func(t *testing.T) {
		a1, nonce1, err := FindAddress(testProgram, seeds...)
		require.NoError(t, err)

		a2, nonce2, err := FindAddress(testProgram, seeds...)
		require.NoError(t, err)

		require.Equal(t, a1, a2)
		require.Equal(t, nonce1, nonce2)

		a3, err := CreateAddress(testProgram, nonce1, seeds...)
		require.NoError(t, err)
		require.Equal(t, a1, a3)
	})

	t.Run("first viable nonce", func(t *testing.T) {
		_, nonce, err := FindAddress(testProgram, seeds...)
		require.NoError(t, err)

		for n := 255; n > int(nonce); n-- {
			_, err := CreateAddress(testProgram, uint8(n), seeds...)
			require.ErrorIs(t, err, ErrOnCurve, n)
		}
	})

	t.Run("depends on inputs", func(t *testing.T) {
		a, _, err := FindAddress(testProgram, seeds...)
		require.NoError(t, err)

		other, _, err := FindAddress(util.Uint160{5, 4, 3, 2, 1}, seeds...)
		require.NoError(t, err)
		require.NotEqual(t, a, other)

		other, _, err = FindAddress(testProgram, []byte("seed"), []byte{1, 2, 4})
		require.NoError(t, err)
		require.NotEqual(t, a, other)
	})

	t.Run("off curve", func(t *testing.T) {
		var onCurveFound, offCurveFound bool

		for n := 0; n < 256 && !(onCurveFound && offCurveFound); n++ {
			a, err := CreateAddress(testProgram, uint8(n), seeds...)
			if err != nil {
				require.ErrorIs(t, err, ErrOnCurve)
				onCurveFound = true
				continue
			}

			require.False(t, onCurve(util.Uint256(a)))
			offCurveFound = true
		}

		require.True(t, onCurveFound)
		require.True(t, offCurveFound)
	})

	t.Run("seed limits", func(t *testing.T) {
		_, err := CreateAddress(testProgram, 0, make([][]byte, MaxSeeds+1)...)
		require.ErrorIs(t, err, ErrSeeds)

		_, err = CreateAddress(testProgram, 0, make([]byte, MaxSeedLen+1))
		require.ErrorIs(t, err, ErrSeeds)

		_, _, err = FindAddress(testProgram, bytes.Repeat([]byte{1}, MaxSeedLen+1))
		require.ErrorIs(t, err, ErrSeeds)
	})
}

func TestAddress_String(t *testing.T) {
	a, _, err := FindAddress(testProgram, []byte("ConsensusResult"))
	require.NoError(t, err)

	res, err := AddressFromString(a.String())
	require.NoError(t, err)
	require.Equal(t, a, res)

	res, err = AddressFromBytes(a.Bytes())
	require.NoError(t, err)
	require.Equal(t, a, res)

	_, err = AddressFromString("0OIl")
	require.Error(t, err)

	_, err = AddressFromBytes(a[:AddressSize-1])
	require.Error(t, err)
}

func TestProof(t *testing.T) {
	d := NewDeriver(testProgram)
	require.Equal(t, testProgram, d.Program())

	seeds := [][]byte{[]byte("ConsensusResult"), {42}}

	a, nonce, err := d.Find(seeds...)
	require.NoError(t, err)

	p, err := d.Sign(nonce, seeds...)
	require.NoError(t, err)
	require.Equal(t, a, p.Address())
	require.Equal(t, nonce, p.Nonce())
	require.Equal(t, testProgram, p.Program())

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, p.Verify(testProgram, seeds...))
	})

	t.Run("foreign program", func(t *testing.T) {
		require.ErrorIs(t, p.Verify(util.Uint160{9}, seeds...), ErrMismatch)

		foreign, err := NewDeriver(util.Uint160{9}).Sign(nonce, seeds...)
		if err == nil {
			require.ErrorIs(t, foreign.Verify(testProgram, seeds...), ErrMismatch)
		}
	})

	t.Run("other seeds", func(t *testing.T) {
		require.ErrorIs(t, p.Verify(testProgram, []byte("ConsensusResult"), []byte{43}), ErrMismatch)
	})

	t.Run("other nonce", func(t *testing.T) {
		for n := 0; n < int(nonce); n++ {
			other, err := d.Sign(uint8(n), seeds...)
			if err != nil {
				require.ErrorIs(t, err, ErrOnCurve)
				continue
			}

			require.NotEqual(t, a, other.Address())
			require.NoError(t, other.Verify(testProgram, seeds...))
		}
	})

	t.Run("zero", func(t *testing.T) {
		require.ErrorIs(t, Proof{}.Verify(testProgram, seeds...), ErrMismatch)
	})

	t.Run("on curve nonce", func(t *testing.T) {
		for n := 255; n > int(nonce); n-- {
			_, err := d.Sign(uint8(n), seeds...)
			require.ErrorIs(t, err, ErrOnCurve)
		}
	})
}
