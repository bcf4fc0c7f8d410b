package ledger

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	promEntityCount = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "poolmgr",
		Name:      "entity_count",
	})
	promCollectedTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "poolmgr",
		Name:      "collected_total",
	})
	promUserDebtTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "poolmgr",
		Name:      "user_debt_total",
	})
	promMaintainerDebtTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "poolmgr",
		Name:      "maintainer_debt_total",
	})
	promClaimableReward = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "poolmgr",
		Name:      "claimable_reward_total",
	})
	promDeposits = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "poolmgr",
		Name:      "deposits_total",
	})
	promCancels = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "poolmgr",
		Name:      "deposit_cancels_total",
	})
	promTransfers = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "poolmgr",
		Name:      "validator_transfers_total",
	})
	promWithdrawals = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "poolmgr",
		Name:      "withdrawals_total",
	})
)

// AmountInUnits converts base units to whole staking units for metric export.
func AmountInUnits(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), new(big.Float).SetInt(UnitScale)).Float64()
	return f
}

// SetClaimableRewardMetric is fed by the daemon's periodic recomputation.
func SetClaimableRewardMetric(units float64) {
	promClaimableReward.Set(units)
}
