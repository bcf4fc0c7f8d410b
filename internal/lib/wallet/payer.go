package wallet

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/unitstake/poolmgr/internal/lib/ledger"
	"github.com/unitstake/poolmgr/internal/lib/misc"
)

// LogPayer records payment instructions to the log. The actual value movement
// happens out of band through the wallet tooling; the ledger only needs a
// collaborator invoked after the claim state is committed.
type LogPayer struct {
	Logger *slog.Logger
}

var _ ledger.Payer = (*LogPayer)(nil)

func (p *LogPayer) Pay(ctx context.Context, to ledger.Address, amount *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	misc.Infof(p.Logger, "payment instruction: send %s to %s", ledger.FormattedUnitAmount(amount), to)
	return nil
}
