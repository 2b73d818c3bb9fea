package common

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// Ballot is an outcome of the voting.
type Ballot struct {
	// Root of the Merkle tree with the voted content.
	MetaMerkleRoot util.Uint256

	// Hash of the state snapshot the voting was performed on.
	SnapshotHash util.Uint256

	// Opaque supporting data, e.g. vote summary.
	Data []byte
}

// Clone returns deep copy of the Ballot.
func (b Ballot) Clone() Ballot {
	b.Data = bytes.Clone(b.Data)
	return b
}

// Equals checks whether two ballots are the same.
func (b Ballot) Equals(other Ballot) bool {
	return b.MetaMerkleRoot.Equals(other.MetaMerkleRoot) &&
		b.SnapshotHash.Equals(other.SnapshotHash) &&
		bytes.Equal(b.Data, other.Data)
}

// ToStackItem converts Ballot to stackitem.Struct.
func (b *Ballot) ToStackItem() (stackitem.Item, error) {
	return stackitem.NewStruct([]stackitem.Item{
		stackitem.NewByteArray(b.MetaMerkleRoot.BytesBE()),
		stackitem.NewByteArray(b.SnapshotHash.BytesBE()),
		stackitem.NewByteArray(bytes.Clone(b.Data)),
	}), nil
}

// FromStackItem restores Ballot from the result of ToStackItem.
func (b *Ballot) FromStackItem(item stackitem.Item) error {
	fields, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not a struct")
	}

	if len(fields) != 3 {
		return fmt.Errorf("wrong number of ballot fields %d", len(fields))
	}

	var err error

	b.MetaMerkleRoot, err = uint256FromItem(fields[0])
	if err != nil {
		return fmt.Errorf("invalid Merkle root: %w", err)
	}

	b.SnapshotHash, err = uint256FromItem(fields[1])
	if err != nil {
		return fmt.Errorf("invalid snapshot hash: %w", err)
	}

	data, err := fields[2].TryBytes()
	if err != nil {
		return fmt.Errorf("invalid data: %w", err)
	}

	if len(data) > 0 {
		b.Data = bytes.Clone(data)
	} else {
		b.Data = nil
	}

	return nil
}

func uint256FromItem(item stackitem.Item) (util.Uint256, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint256{}, err
	}

	return util.Uint256DecodeBytesBE(b)
}
