/*
Package sigtest provides an in-memory ledger and key fixtures for testing
the group account coordination flows without a running node.

The fixture ledger implements the full multisig.Ledger surface: it verifies
envelope and member signatures, enforces personal sequences, runs the
threshold policy and executes accepted proposals. Policy rejections surface
as receipt codes the same way a real node reports them, so tests exercise
the deferred validation path end to end.
*/
package sigtest
