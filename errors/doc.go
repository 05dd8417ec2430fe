/*
Package errors implements the typed errors used across the SDK.

The idea is to reuse as many errors from this package as possible and define
custom package errors only when absolutely necessary. Every error kind maps
to a ledger (ABCI) response code, which allows the caller to distinguish "my
request was malformed", "the ledger rejected the business rule" and "it was
included but failed on chain".

If you want to register a custom error - use Register(code, description).
For reusing errors - use Errxxx.New and Errxxx.Newf.

There is also support for stacktraces. Please ensure you create the error
using ErrXyz.New("...") or errors.Wrap(err, "...") at the point of creation
to ensure we attach a stacktrace. If you wrap multiple times, we only record
the first wrap with the stacktrace.

Once you have an error, you can use fmt.Printf/Sprintf to get more context
	%s is just the error message
	%+v is the full stack trace
*/
package errors
