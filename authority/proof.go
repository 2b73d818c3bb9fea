package authority

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/util"
)

// ErrMismatch is returned when Proof does not grant authority over the
// requested address.
var ErrMismatch = errors.New("authority mismatch")

// Deriver derives addresses of the particular program and signs on their
// behalf. Deriver must be held only by the program code creating the items
// at the derived addresses.
type Deriver struct {
	program util.Uint160
}

// NewDeriver returns Deriver of the given program.
func NewDeriver(program util.Uint160) Deriver {
	return Deriver{program: program}
}

// Program returns identity of the program.
func (d Deriver) Program() util.Uint160 {
	return d.program
}

// Find finds program address for the given seeds. See FindAddress.
func (d Deriver) Find(seeds ...[]byte) (Address, uint8, error) {
	return FindAddress(d.program, seeds...)
}

// Sign derives the program address from the given seeds and nonce and
// returns Proof of the authority over it.
func (d Deriver) Sign(nonce uint8, seeds ...[]byte) (Proof, error) {
	a, err := CreateAddress(d.program, nonce, seeds...)
	if err != nil {
		return Proof{}, fmt.Errorf("derive address: %w", err)
	}

	return Proof{
		program: d.program,
		nonce:   nonce,
		addr:    a,
	}, nil
}

// Proof is a capability to act on behalf of the derived Address. Proof can
// only be obtained from Deriver.Sign; zero value grants nothing.
type Proof struct {
	program util.Uint160
	nonce   uint8
	addr    Address
}

// Address returns the address Proof grants authority over.
func (p Proof) Address() Address {
	return p.addr
}

// Program returns identity of the program that signed Proof.
func (p Proof) Program() util.Uint160 {
	return p.program
}

// Nonce returns derivation nonce.
func (p Proof) Nonce() uint8 {
	return p.nonce
}

// Verify checks that Proof was signed by the given program and that its
// address is derived from the given seeds. Verify does not trust the address
// carried by Proof and derives it again.
func (p Proof) Verify(program util.Uint160, seeds ...[]byte) error {
	if !p.program.Equals(program) {
		return fmt.Errorf("%w: signed by %s instead of %s", ErrMismatch, p.program.StringLE(), program.StringLE())
	}

	a, err := CreateAddress(program, p.nonce, seeds...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMismatch, err)
	}

	if a != p.addr {
		return fmt.Errorf("%w: address %s is not derived from the seeds", ErrMismatch, p.addr)
	}

	return nil
}
