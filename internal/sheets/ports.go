package sheets

import (
	"context"

	"financeiro/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionAppender adds one transaction below the existing rows.
	TransactionAppender interface {
		AppendTransaction(ctx context.Context, t core.Transaction) error
	}

	// Clearer removes every mirrored transaction.
	Clearer interface {
		Clear(ctx context.Context) error
	}

	// Mirror keeps a remote copy of the ledger in step with local changes.
	Mirror interface {
		TransactionAppender
		Clearer
	}
)
