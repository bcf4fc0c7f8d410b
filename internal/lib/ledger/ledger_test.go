package ledger

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func addr(b byte) Address {
	var a Address
	a[19] = b
	return a
}

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), UnitScale)
}

// stubAuth grants capabilities to fixed accounts and lets collectors act for
// themselves.
type stubAuth struct {
	admin         Address
	operator      Address
	walletManager Address
}

func (a *stubAuth) Authorize(caller Address, capability Capability) bool {
	if caller == ZeroAddress {
		return false
	}
	if caller == a.admin {
		return true
	}
	switch capability {
	case CapOperator:
		return caller == a.operator
	case CapWalletManager:
		return caller == a.walletManager
	}
	return false
}

func (a *stubAuth) AuthorizeCollector(caller, collector Address) bool {
	return caller != ZeroAddress && caller == collector
}

// stubWallets serves confirmation sequences from a plain map.
type stubWallets map[ID]uint64

func (w stubWallets) ConfirmedSeq(validatorID ID) (uint64, error) {
	return w[validatorID], nil
}

// recordingPayer captures every payment instruction.
type recordingPayer struct {
	payments map[Address]*big.Int
}

func newRecordingPayer() *recordingPayer {
	return &recordingPayer{payments: map[Address]*big.Int{}}
}

func (p *recordingPayer) Pay(ctx context.Context, to Address, amount *big.Int) error {
	if prev, ok := p.payments[to]; ok {
		p.payments[to] = new(big.Int).Add(prev, amount)
	} else {
		p.payments[to] = new(big.Int).Set(amount)
	}
	return nil
}

type testEnv struct {
	ledger  *Ledger
	auth    *stubAuth
	wallets stubWallets
	payer   *recordingPayer
}

func newTestLedger(t *testing.T) *testEnv {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	auth := &stubAuth{admin: addr(0xa0), operator: addr(0xb0), walletManager: addr(0xc0)}
	wallets := stubWallets{}
	payer := newRecordingPayer()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	l := New(store, DefaultSettings(), auth, wallets, payer, logger)
	return &testEnv{ledger: l, auth: auth, wallets: wallets, payer: payer}
}
