package consensusresult

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/consensus-finalizer/authority"
	"github.com/nspcc-dev/consensus-finalizer/common"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// seedPrefix is the first derivation seed of all consensus result addresses.
const seedPrefix = "ConsensusResult"

// ConsensusResult is the finalized outcome of the ballot.
type ConsensusResult struct {
	// ID of the finalized ballot.
	BallotID uint64

	// Winning ballot at the moment of finalization.
	Ballot common.Ballot
}

// ToStackItem converts ConsensusResult to stackitem.Struct.
func (r *ConsensusResult) ToStackItem() (stackitem.Item, error) {
	b, err := r.Ballot.ToStackItem()
	if err != nil {
		return nil, err
	}

	return stackitem.NewStruct([]stackitem.Item{
		stackitem.NewBigInteger(new(big.Int).SetUint64(r.BallotID)),
		b,
	}), nil
}

// FromStackItem restores ConsensusResult from the result of ToStackItem.
func (r *ConsensusResult) FromStackItem(item stackitem.Item) error {
	fields, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not a struct")
	}

	if len(fields) != 2 {
		return fmt.Errorf("wrong number of consensus result fields %d", len(fields))
	}

	id, err := fields[0].TryInteger()
	if err != nil {
		return fmt.Errorf("invalid ballot ID: %w", err)
	}

	if !id.IsUint64() {
		return fmt.Errorf("ballot ID %s overflows uint64", id)
	}

	r.BallotID = id.Uint64()

	err = r.Ballot.FromStackItem(fields[1])
	if err != nil {
		return fmt.Errorf("invalid ballot: %w", err)
	}

	return nil
}

// Seeds returns seeds the address of the ballot's consensus result is derived
// from: the "ConsensusResult" label and little-endian ballot ID.
func Seeds(ballotID uint64) [][]byte {
	w := io.NewBufBinWriter()
	w.WriteU64LE(ballotID)

	return [][]byte{[]byte(seedPrefix), w.Bytes()}
}

// Handle references ConsensusResult created within the current unit of work.
type Handle struct {
	// ID of the finalized ballot.
	BallotID uint64

	// Address of the ConsensusResult.
	Address authority.Address

	// Nonce the Address was derived with.
	Nonce uint8
}

// Ref is passed to the external components to reference ConsensusResult.
type Ref struct {
	// Address of the ConsensusResult.
	Address authority.Address

	// Up-to-date view of the ConsensusResult.
	Result ConsensusResult
}
