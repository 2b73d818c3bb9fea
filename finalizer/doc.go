/*
Package finalizer records consensus results of the ballots and propagates them
to the proposals.

Finalization is a single unit of work on the ledger:

 1. the ballot box is checked for consensus;
 2. consensus result is created at the address derived from the ballot ID;
 3. authority of the consensus result is derived;
 4. stored record is re-read;
 5. the record is attached to the proposal under the derived authority.

If any step fails, the unit is rolled back and neither the consensus result
nor the proposal change is visible. Concurrent finalizations of the same
ballot race on the consensus result creation: exactly one of them succeeds,
others fail with ErrAlreadyExists and should not be retried.
*/
package finalizer
