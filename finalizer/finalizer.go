package finalizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nspcc-dev/consensus-finalizer/authority"
	"github.com/nspcc-dev/consensus-finalizer/common"
	"github.com/nspcc-dev/consensus-finalizer/consensusresult"
	"github.com/nspcc-dev/consensus-finalizer/ledger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.uber.org/zap"
)

var (
	// ErrConsensusNotReached is returned when the ballot has not reached
	// consensus yet. Nothing is changed in this case.
	ErrConsensusNotReached = errors.New("consensus not reached")
	// ErrAlreadyExists is returned when the ballot has already been finalized
	// by this or concurrent call. Existing result can be read from the
	// consensus result store.
	ErrAlreadyExists = errors.New("ballot already finalized")
	// ErrExternalCallFailed is returned when the proposal rejects the
	// consensus result. All changes are rolled back, finalization may be
	// retried.
	ErrExternalCallFailed = errors.New("proposal call failed")
	// ErrAuthorityMismatch is returned along with ErrExternalCallFailed when
	// the proposal does not accept the consensus result authority.
	ErrAuthorityMismatch = authority.ErrMismatch
)

// Proposal anchors consensus results.
type Proposal interface {
	// AttachConsensus attaches referenced consensus result to the proposal
	// within the unit of work. The proof grants authority over the consensus
	// result.
	AttachConsensus(tx *ledger.Tx, proposal util.Uint160, ref consensusresult.Ref, proof authority.Proof) error
}

// Prm groups parameters of the Finalizer.
type Prm struct {
	// Writes finalization progress into the log. Defaults to no-op.
	Logger *zap.Logger

	// Ledger the finalization units are executed on.
	Ledger *ledger.Ledger

	// Store of the consensus results.
	Results *consensusresult.Store

	// Deriver of the consensus result authority. Must be for the program
	// of the Results.
	Deriver authority.Deriver

	// Proposal the consensus results are attached to.
	Proposal Proposal
}

// Finalizer records consensus results of the ballots and attaches them to
// the proposals.
type Finalizer struct {
	log      *zap.Logger
	l        *ledger.Ledger
	results  *consensusresult.Store
	deriver  authority.Deriver
	proposal Proposal
}

// New constructs Finalizer from the given parameters.
func New(prm Prm) *Finalizer {
	f := &Finalizer{
		log:      prm.Logger,
		l:        prm.Ledger,
		results:  prm.Results,
		deriver:  prm.Deriver,
		proposal: prm.Proposal,
	}

	if f.log == nil {
		f.log = zap.NewNop()
	}

	return f
}

// Finalize records consensus result of the ballot and attaches it to the
// given proposal. Both changes are made atomically: if any step fails, none
// of them is visible.
//
// Finalize returns ErrConsensusNotReached if the ballot has no consensus yet,
// ErrAlreadyExists if the ballot has already been finalized, and
// ErrExternalCallFailed if the proposal refused the result.
func (f *Finalizer) Finalize(ctx context.Context, box common.BallotBox, proposal util.Uint160) error {
	ballotID := box.BallotID()

	l := f.log.With(
		zap.Stringer("operation", uuid.New()),
		zap.Uint64("ballot", ballotID),
		zap.String("proposal", proposal.StringLE()),
	)

	if !box.HasConsensusReached() {
		l.Debug("consensus is not reached yet")
		return fmt.Errorf("finalize ballot %d: %w", ballotID, ErrConsensusNotReached)
	}

	winning := box.WinningBallot()

	var addr authority.Address

	err := f.l.Run(ctx, func(tx *ledger.Tx) error {
		h, err := f.results.Create(tx, ballotID, winning)
		if err != nil {
			if errors.Is(err, consensusresult.ErrAlreadyExists) {
				return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
			}

			return fmt.Errorf("create consensus result: %w", err)
		}

		proof, err := f.deriver.Sign(h.Nonce, consensusresult.Seeds(ballotID)...)
		if err != nil {
			return fmt.Errorf("sign for consensus result: %w", err)
		}

		res, err := f.results.Refresh(tx, h)
		if err != nil {
			return fmt.Errorf("refresh consensus result: %w", err)
		}

		ref := consensusresult.Ref{
			Address: h.Address,
			Result:  res,
		}

		err = f.proposal.AttachConsensus(tx, proposal, ref, proof)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrExternalCallFailed, err)
		}

		addr = h.Address

		return nil
	})
	if err != nil {
		if errors.Is(err, ledger.ErrExists) {
			err = fmt.Errorf("%w: %w", ErrAlreadyExists, err)
		}

		l.Info("ballot finalization failed", zap.Error(err))

		return fmt.Errorf("finalize ballot %d: %w", ballotID, err)
	}

	l.Info("ballot successfully finalized", zap.Stringer("consensus result", addr))

	return nil
}
