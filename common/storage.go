package common

import (
	"fmt"

	"github.com/nspcc-dev/consensus-finalizer/ledger"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// Serializable is a value that can be kept in the storage.
type Serializable interface {
	ToStackItem() (stackitem.Item, error)
	FromStackItem(stackitem.Item) error
}

// Serialize encodes v into binary form.
func Serialize(v Serializable) ([]byte, error) {
	item, err := v.ToStackItem()
	if err != nil {
		return nil, fmt.Errorf("convert to stack item: %w", err)
	}

	data, err := stackitem.Serialize(item)
	if err != nil {
		return nil, fmt.Errorf("serialize stack item: %w", err)
	}

	return data, nil
}

// Deserialize decodes v from data produced by Serialize.
func Deserialize(data []byte, v Serializable) error {
	item, err := stackitem.Deserialize(data)
	if err != nil {
		return fmt.Errorf("deserialize stack item: %w", err)
	}

	err = v.FromStackItem(item)
	if err != nil {
		return fmt.Errorf("convert from stack item: %w", err)
	}

	return nil
}

// GetSerialized reads the component's item and decodes it into v.
// Returns ledger.ErrNotFound if there is no such item.
func GetSerialized(tx *ledger.Tx, id int32, key []byte, v Serializable) error {
	data, err := tx.Get(id, key)
	if err != nil {
		return err
	}

	return Deserialize(data, v)
}

// SetSerialized serializes v and puts it into the component's storage.
func SetSerialized(tx *ledger.Tx, id int32, key []byte, v Serializable) error {
	data, err := Serialize(v)
	if err != nil {
		return err
	}

	return tx.Put(id, key, data)
}

// CreateSerialized serializes v and puts it into the component's storage
// only if the key is free. Returns ledger.ErrExists otherwise.
func CreateSerialized(tx *ledger.Tx, id int32, key []byte, v Serializable) error {
	data, err := Serialize(v)
	if err != nil {
		return err
	}

	return tx.Create(id, key, data)
}
