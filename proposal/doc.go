/*
Package proposal implements the Proposal component anchoring consensus
results.

Proposal stores a slot for the consensus result. The slot is filled only once,
by AttachConsensus called with the authority of the freshly created consensus
result. Contract does not trust the caller: it reads the referenced record,
derives its address from the stored ballot ID and checks the proof against it.

# Notifications

MerkleRootAdded notification. This notification is emitted when the consensus
result is attached to the proposal.

	MerkleRootAdded
	  - name: proposal
	    type: Hash160
	  - name: consensusResult
	    type: ByteArray
	  - name: metaMerkleRoot
	    type: Hash256
*/
package proposal

/*
Storage model.

# Summary
Key-value storage format:
 - <proposal ID> -> stackitem.Serialize(State)
   proposal state, consensus result address is Null until attached
*/
