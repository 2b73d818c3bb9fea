package common

import (
	"fmt"

	"github.com/nspcc-dev/consensus-finalizer/authority"
	"github.com/nspcc-dev/consensus-finalizer/ledger"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// CheckWitness checks that proof grants authority of the program over the
// address derived from the seeds, and that the component's item under this
// address has been created within the current unit of work. Returned error
// wraps authority.ErrMismatch.
func CheckWitness(tx *ledger.Tx, id int32, addr authority.Address, proof authority.Proof, program util.Uint160, seeds ...[]byte) error {
	if proof.Address() != addr {
		return fmt.Errorf("%w: proof is for %s, not %s", authority.ErrMismatch, proof.Address(), addr)
	}

	err := proof.Verify(program, seeds...)
	if err != nil {
		return err
	}

	if !tx.Created(id, addr[:]) {
		return fmt.Errorf("%w: %s was not created within the transaction", authority.ErrMismatch, addr)
	}

	return nil
}
