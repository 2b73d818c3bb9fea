package consensusresult

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/consensus-finalizer/authority"
	"github.com/nspcc-dev/consensus-finalizer/common"
	"github.com/nspcc-dev/consensus-finalizer/ledger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// CreatedEvent is a name of the notification emitted on ConsensusResult
// creation. Notification payload is an array of the ballot ID and the address.
const CreatedEvent = "ConsensusResultCreated"

var (
	// ErrAlreadyExists is returned on attempt to create the second
	// ConsensusResult for the same ballot.
	ErrAlreadyExists = errors.New("consensus result already exists")
	// ErrNotFound is returned when requested ConsensusResult is missing.
	ErrNotFound = errors.New("consensus result not found")
)

// Prm groups parameters of the Store.
type Prm struct {
	// Component ID of the Store within the Ledger.
	ID int32

	// Ledger keeping the records.
	Ledger *ledger.Ledger

	// Identity of the program the record addresses are derived for.
	Program util.Uint160
}

// Store keeps at most one ConsensusResult per ballot. Record address is
// derived from the ballot ID, so the record can be created only once.
type Store struct {
	id      int32
	l       *ledger.Ledger
	program util.Uint160
}

// NewStore constructs Store from the given parameters.
func NewStore(prm Prm) *Store {
	return &Store{
		id:      prm.ID,
		l:       prm.Ledger,
		program: prm.Program,
	}
}

// ID returns component ID of the Store.
func (s *Store) ID() int32 {
	return s.id
}

// Program returns identity of the program owning records.
func (s *Store) Program() util.Uint160 {
	return s.program
}

// Locate returns address of the ballot's ConsensusResult along with the
// derivation nonce. Result depends on the ballot ID only.
func (s *Store) Locate(ballotID uint64) (authority.Address, uint8, error) {
	return authority.FindAddress(s.program, Seeds(ballotID)...)
}

// Create puts new ConsensusResult of the ballot into the Store within the
// unit of work. Returns ErrAlreadyExists if the ballot already has one.
func (s *Store) Create(tx *ledger.Tx, ballotID uint64, ballot common.Ballot) (Handle, error) {
	addr, nonce, err := s.Locate(ballotID)
	if err != nil {
		return Handle{}, fmt.Errorf("locate consensus result: %w", err)
	}

	res := ConsensusResult{
		BallotID: ballotID,
		Ballot:   ballot.Clone(),
	}

	err = common.CreateSerialized(tx, s.id, addr[:], &res)
	if err != nil {
		if errors.Is(err, ledger.ErrExists) {
			return Handle{}, fmt.Errorf("%w: ballot %d at %s", ErrAlreadyExists, ballotID, addr)
		}

		return Handle{}, fmt.Errorf("write consensus result: %w", err)
	}

	err = tx.Notify(s.id, CreatedEvent, stackitem.NewArray([]stackitem.Item{
		stackitem.NewBigInteger(new(big.Int).SetUint64(ballotID)),
		stackitem.NewByteArray(addr.Bytes()),
	}))
	if err != nil {
		return Handle{}, fmt.Errorf("notify creation: %w", err)
	}

	return Handle{
		BallotID: ballotID,
		Address:  addr,
		Nonce:    nonce,
	}, nil
}

// Refresh reads the record referenced by the handle as it is currently
// stored within the unit of work.
func (s *Store) Refresh(tx *ledger.Tx, h Handle) (ConsensusResult, error) {
	res, err := s.Load(tx, h.Address)
	if err != nil {
		return ConsensusResult{}, err
	}

	if res.BallotID != h.BallotID {
		return ConsensusResult{}, fmt.Errorf("record at %s belongs to ballot %d instead of %d", h.Address, res.BallotID, h.BallotID)
	}

	return res, nil
}

// Load reads ConsensusResult by its address within the unit of work.
func (s *Store) Load(tx *ledger.Tx, addr authority.Address) (ConsensusResult, error) {
	var res ConsensusResult

	err := common.GetSerialized(tx, s.id, addr[:], &res)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return res, fmt.Errorf("%w: %s", ErrNotFound, addr)
		}

		return res, fmt.Errorf("read consensus result: %w", err)
	}

	return res, nil
}

// Get returns committed ConsensusResult of the ballot. Returns ErrNotFound if
// the ballot has not been finalized.
func (s *Store) Get(ballotID uint64) (ConsensusResult, error) {
	var res ConsensusResult

	addr, _, err := s.Locate(ballotID)
	if err != nil {
		return res, fmt.Errorf("locate consensus result: %w", err)
	}

	data, err := s.l.Get(s.id, addr[:])
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return res, fmt.Errorf("%w: ballot %d", ErrNotFound, ballotID)
		}

		return res, fmt.Errorf("read consensus result: %w", err)
	}

	err = common.Deserialize(data, &res)
	if err != nil {
		return res, fmt.Errorf("decode consensus result: %w", err)
	}

	return res, nil
}

// Len returns number of committed records.
func (s *Store) Len() int {
	return s.l.Len(s.id)
}
