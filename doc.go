/*
Package quorumsig provides the core primitives shared by the group account
coordination SDK: addresses, the condition format they are derived from, and
chain id validation.

A group account is a ledger account controlled by a set of signers with a
signing threshold rather than by a single private key. Its address is the
digest of a condition built from the creator identity and the creator's
sequence at creation time, which makes it deterministic without any extra
ledger round trip.
*/
package quorumsig
