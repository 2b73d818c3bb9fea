package common

import "math/bits"

// BallotBox provides results of the voting for the particular ballot.
type BallotBox interface {
	// BallotID returns unique identifier of the ballot.
	BallotID() uint64

	// HasConsensusReached checks whether the voting has reached consensus.
	HasConsensusReached() bool

	// WinningBallot returns the winning outcome. The result is meaningful
	// only if HasConsensusReached returns true.
	WinningBallot() Ballot
}

// Box is a BallotBox with already tallied stakes. Consensus is reached when
// the winning ballot collects more than 2/3 of the total stake.
type Box struct {
	// ID of the ballot.
	ID uint64

	// Ballot with the largest stake.
	Winning Ballot

	// Stake voted for the winning ballot.
	WinningStake uint64

	// Total stake of the voters.
	TotalStake uint64
}

// BallotID implements BallotBox.
func (b *Box) BallotID() uint64 {
	return b.ID
}

// HasConsensusReached implements BallotBox.
func (b *Box) HasConsensusReached() bool {
	if b.TotalStake == 0 || b.WinningStake > b.TotalStake {
		return false
	}

	wHi, wLo := bits.Mul64(b.WinningStake, 3)
	tHi, tLo := bits.Mul64(b.TotalStake, 2)

	return wHi > tHi || wHi == tHi && wLo > tLo
}

// WinningBallot implements BallotBox. Returned Ballot is a copy.
func (b *Box) WinningBallot() Ballot {
	return b.Winning.Clone()
}
