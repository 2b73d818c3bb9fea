package proposal

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/consensus-finalizer/authority"
	"github.com/nspcc-dev/consensus-finalizer/common"
	"github.com/nspcc-dev/consensus-finalizer/consensusresult"
	"github.com/nspcc-dev/consensus-finalizer/ledger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"go.uber.org/zap"
)

// MerkleRootAddedEvent is a name of the notification emitted when consensus
// result is attached to the proposal. Notification payload is an array of the
// proposal ID, consensus result address and Merkle root.
const MerkleRootAddedEvent = "MerkleRootAdded"

var (
	// ErrProposalNotFound is returned when requested proposal is missing.
	ErrProposalNotFound = errors.New("proposal not found")
	// ErrProposalExists is returned on repeated proposal registration.
	ErrProposalExists = errors.New("proposal already exists")
	// ErrAlreadyAttached is returned when the proposal already has
	// consensus result.
	ErrAlreadyAttached = errors.New("consensus result is already attached")
	// ErrResultNotFound is returned when referenced consensus result is
	// missing.
	ErrResultNotFound = errors.New("referenced consensus result not found")
	// ErrStaleResult is returned when the referenced view of the consensus
	// result differs from the stored one.
	ErrStaleResult = errors.New("stale consensus result view")
	// ErrAuthorityMismatch is returned when the caller has no authority of
	// the referenced consensus result. It wraps authority.ErrMismatch.
	ErrAuthorityMismatch = fmt.Errorf("consensus result %w", authority.ErrMismatch)
)

// State is a state of the proposal.
type State struct {
	// Address of the attached consensus result, zero if not attached.
	ConsensusResult authority.Address

	// Merkle root of the attached consensus result.
	MetaMerkleRoot util.Uint256
}

// Attached checks whether the consensus result is attached.
func (s State) Attached() bool {
	return s.ConsensusResult != authority.Address{}
}

// ToStackItem converts State to stackitem.Struct.
func (s *State) ToStackItem() (stackitem.Item, error) {
	var res stackitem.Item = stackitem.Null{}
	if s.Attached() {
		res = stackitem.NewByteArray(s.ConsensusResult.Bytes())
	}

	return stackitem.NewStruct([]stackitem.Item{
		res,
		stackitem.NewByteArray(s.MetaMerkleRoot.BytesBE()),
	}), nil
}

// FromStackItem restores State from the result of ToStackItem.
func (s *State) FromStackItem(item stackitem.Item) error {
	fields, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not a struct")
	}

	if len(fields) != 2 {
		return fmt.Errorf("wrong number of proposal fields %d", len(fields))
	}

	s.ConsensusResult = authority.Address{}

	if _, ok := fields[0].(stackitem.Null); !ok {
		b, err := fields[0].TryBytes()
		if err != nil {
			return fmt.Errorf("invalid consensus result address: %w", err)
		}

		s.ConsensusResult, err = authority.AddressFromBytes(b)
		if err != nil {
			return fmt.Errorf("invalid consensus result address: %w", err)
		}
	}

	b, err := fields[1].TryBytes()
	if err != nil {
		return fmt.Errorf("invalid Merkle root: %w", err)
	}

	s.MetaMerkleRoot, err = util.Uint256DecodeBytesBE(b)
	if err != nil {
		return fmt.Errorf("invalid Merkle root: %w", err)
	}

	return nil
}

// Prm groups parameters of the Contract.
type Prm struct {
	// Component ID of the Contract within the Ledger.
	ID int32

	// Ledger keeping proposals.
	Ledger *ledger.Ledger

	// Store of the consensus results.
	Results *consensusresult.Store

	// Writes attachment results into the log. Defaults to no-op.
	Logger *zap.Logger
}

// Contract keeps proposals and anchors consensus results in them.
type Contract struct {
	id      int32
	l       *ledger.Ledger
	results *consensusresult.Store
	log     *zap.Logger
}

// New constructs Contract from the given parameters.
func New(prm Prm) *Contract {
	c := &Contract{
		id:      prm.ID,
		l:       prm.Ledger,
		results: prm.Results,
		log:     prm.Logger,
	}

	if c.log == nil {
		c.log = zap.NewNop()
	}

	return c
}

// Register adds new empty proposal within the unit of work.
func (c *Contract) Register(tx *ledger.Tx, id util.Uint160) error {
	err := common.CreateSerialized(tx, c.id, id.BytesBE(), new(State))
	if err != nil {
		if errors.Is(err, ledger.ErrExists) {
			return fmt.Errorf("%w: %s", ErrProposalExists, id.StringLE())
		}

		return fmt.Errorf("write proposal: %w", err)
	}

	return nil
}

// AttachConsensus attaches referenced consensus result to the proposal within
// the unit of work. The proof must be signed by the consensus result program
// for the address derived from the ballot ID of the stored record, and the
// record must be created within the same unit.
func (c *Contract) AttachConsensus(tx *ledger.Tx, id util.Uint160, ref consensusresult.Ref, proof authority.Proof) error {
	res, err := c.results.Load(tx, ref.Address)
	if err != nil {
		if errors.Is(err, consensusresult.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrResultNotFound, ref.Address)
		}

		return err
	}

	if res.BallotID != ref.Result.BallotID || !res.Ballot.Equals(ref.Result.Ballot) {
		return fmt.Errorf("%w: record at %s", ErrStaleResult, ref.Address)
	}

	err = common.CheckWitness(tx, c.results.ID(), ref.Address, proof, c.results.Program(), consensusresult.Seeds(res.BallotID)...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthorityMismatch, err)
	}

	var st State

	err = common.GetSerialized(tx, c.id, id.BytesBE(), &st)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrProposalNotFound, id.StringLE())
		}

		return fmt.Errorf("read proposal: %w", err)
	}

	if st.Attached() {
		return fmt.Errorf("%w: %s has %s", ErrAlreadyAttached, id.StringLE(), st.ConsensusResult)
	}

	st.ConsensusResult = ref.Address
	st.MetaMerkleRoot = res.Ballot.MetaMerkleRoot

	err = common.SetSerialized(tx, c.id, id.BytesBE(), &st)
	if err != nil {
		return fmt.Errorf("write proposal: %w", err)
	}

	err = tx.Notify(c.id, MerkleRootAddedEvent, stackitem.NewArray([]stackitem.Item{
		stackitem.NewByteArray(id.BytesBE()),
		stackitem.NewByteArray(ref.Address.Bytes()),
		stackitem.NewByteArray(st.MetaMerkleRoot.BytesBE()),
	}))
	if err != nil {
		return fmt.Errorf("notify attachment: %w", err)
	}

	c.log.Debug("consensus result attached",
		zap.String("proposal", id.StringLE()),
		zap.Stringer("consensus result", ref.Address))

	return nil
}

// Get returns committed state of the proposal.
func (c *Contract) Get(id util.Uint160) (State, error) {
	var st State

	data, err := c.l.Get(c.id, id.BytesBE())
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return st, fmt.Errorf("%w: %s", ErrProposalNotFound, id.StringLE())
		}

		return st, fmt.Errorf("read proposal: %w", err)
	}

	err = common.Deserialize(data, &st)
	if err != nil {
		return st, fmt.Errorf("decode proposal: %w", err)
	}

	return st, nil
}
