// Package expr provides a thread-safe CEL environment used to compile and
// evaluate match expressions.
package expr
