package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager scopes a multi-entity mutation to one atomic unit.
// Every structural tree mutation runs through ExecTx so invariants that span
// several rows are never observably half-applied.
type TransactionManager interface {
	// ExecTx executes a function within a transaction
	ExecTx(ctx context.Context, fn TxFn) error
}
