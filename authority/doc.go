/*
Package authority provides addresses derived from the program identity and
seeds, and proofs of the authority over them.

Derived address is not a public key, so nobody holds a private key for it.
The program acts on behalf of the address by deriving it again: Deriver.Sign
returns Proof, which the callee checks with Proof.Verify against the seeds it
computes itself.
*/
package authority
