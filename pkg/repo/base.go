package repo

import "context"

// TxRunner runs fn inside one transaction. Repositories called with txCtx
// join that transaction.
type TxRunner interface {
	ExecTx(ctx context.Context, fn func(txCtx context.Context) error) error
}
