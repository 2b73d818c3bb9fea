package authority

import (
	"crypto/elliptic"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

const (
	// AddressSize is a length of the derived address in bytes.
	AddressSize = 32

	// MaxSeeds is a maximum number of seeds the address can be derived from.
	MaxSeeds = 16
	// MaxSeedLen is a maximum length of the single seed in bytes.
	MaxSeedLen = 32
)

// marker separates derived addresses from any other SHA256 digests.
const marker = "DerivedAddress"

var (
	// ErrOnCurve is returned when the derivation candidate is a valid public
	// key, i.e. some private key may correspond to it.
	ErrOnCurve = errors.New("derived address lies on the curve")
	// ErrSeeds is returned on exceeding seed limits.
	ErrSeeds = errors.New("invalid seeds")
	// ErrNoNonce is returned when none of the nonces gives an address.
	ErrNoNonce = errors.New("unable to find viable nonce")
)

// Address is an address derived from the program identity and a set of
// seeds. No private key corresponds to the Address, so the only way to act on
// its behalf is to derive it again (see Deriver).
type Address [AddressSize]byte

// String returns base58 representation of the Address.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// Bytes returns a copy of the Address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// AddressFromBytes decodes Address from its binary form.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address

	if len(b) != AddressSize {
		return a, fmt.Errorf("invalid address length %d", len(b))
	}

	copy(a[:], b)

	return a, nil
}

// AddressFromString decodes Address from its base58 representation.
func AddressFromString(s string) (Address, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("decode base58: %w", err)
	}

	return AddressFromBytes(b)
}

// CreateAddress derives Address of the program from the given seeds and
// nonce. The address is SHA256 of the seeds, nonce, program identity and the
// derivation marker. CreateAddress returns ErrOnCurve if the digest is a
// valid X coordinate of the compressed secp256r1 public key.
func CreateAddress(program util.Uint160, nonce uint8, seeds ...[]byte) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Address{}, fmt.Errorf("%w: %d seeds exceed limit %d", ErrSeeds, len(seeds), MaxSeeds)
	}

	var data []byte

	for i := range seeds {
		if len(seeds[i]) > MaxSeedLen {
			return Address{}, fmt.Errorf("%w: seed #%d length %d exceeds limit %d", ErrSeeds, i, len(seeds[i]), MaxSeedLen)
		}

		data = append(data, seeds[i]...)
	}

	data = append(data, nonce)
	data = append(data, program.BytesBE()...)
	data = append(data, marker...)

	digest := hash.Sha256(data)

	if onCurve(digest) {
		return Address{}, ErrOnCurve
	}

	return Address(digest), nil
}

// FindAddress looks for the first nonce starting from 255 down to 0 for which
// CreateAddress succeeds and returns the resulting address with the nonce.
func FindAddress(program util.Uint160, seeds ...[]byte) (Address, uint8, error) {
	for nonce := 255; nonce >= 0; nonce-- {
		a, err := CreateAddress(program, uint8(nonce), seeds...)
		if err == nil {
			return a, uint8(nonce), nil
		}

		if !errors.Is(err, ErrOnCurve) {
			return Address{}, 0, err
		}
	}

	return Address{}, 0, ErrNoNonce
}

func onCurve(digest util.Uint256) bool {
	b := make([]byte, 1+util.Uint256Size)
	b[0] = 0x02
	copy(b[1:], digest[:])

	_, err := keys.NewPublicKeyFromBytes(b, elliptic.P256())

	return err == nil
}
