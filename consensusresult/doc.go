/*
Package consensusresult implements storage of the finalized ballot outcomes.

Each ballot has at most one consensus result. Its address is derived from the
"ConsensusResult" label and the ballot ID (see authority.FindAddress), so the
address is known in advance and the second record for the same ballot can not
be created: the place is already occupied.

# Notifications

ConsensusResultCreated notification. This notification is emitted when the
record is created by Create method.

	ConsensusResultCreated
	  - name: ballotID
	    type: Integer
	  - name: address
	    type: ByteArray
*/
package consensusresult

/*
Storage model.

# Summary
Key-value storage format:
 - <address> -> stackitem.Serialize(ConsensusResult)
   consensus result by its derived address

# Address
Address is SHA256 of the 'ConsensusResult' string, little-endian uint64 ballot
ID, derivation nonce, program identity and the derivation marker.
*/
