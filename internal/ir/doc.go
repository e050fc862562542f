// Package ir provides the operand value model shared by the filter model,
// the compiler and every query adapter.
//
// Filter values arrive as loosely typed JSON. They are converted once, at the
// wire boundary, into the sealed Value interface so that downstream code can
// switch exhaustively over the allowed shapes:
//
//	Null | String | Int | Float | Bool | List
//
// Objects are not operands and are rejected during conversion. Lists hold
// scalars only.
//
// The package also owns canonical JSON (RFC 8785 key ordering, NFC strings)
// and domain-separated fingerprints, used to compare compilation traces.
// ir imports nothing internal.
package ir
