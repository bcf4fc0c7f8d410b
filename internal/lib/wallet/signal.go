package wallet

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/unitstake/poolmgr/internal/lib/ledger"
	"github.com/unitstake/poolmgr/internal/lib/misc"
)

// Signal is one confirmation dropped by the wallet lifecycle tooling as a
// .json file in the signal directory.
type Signal struct {
	ValidatorID        ledger.ID `json:"validatorId"`
	ConfirmedTransfers uint64    `json:"confirmedTransfers"`
}

// IngestSignalDir applies every .json signal file in dir, removing each file
// once handled. Stale signals (sequence already surpassed) and malformed ones
// are logged and dropped, so the producer never has to care about ordering.
// Returns the number of confirmations applied.
func (s *Store) IngestSignalDir(dir string, logger *slog.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("wallet: read signal dir: %w", err)
	}
	applied := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			misc.Warnf(logger, "failed reading wallet signal %s: %v", path, err)
			continue
		}
		var sig Signal
		if err := json.Unmarshal(data, &sig); err != nil {
			misc.Warnf(logger, "dropping malformed wallet signal %s: %v", path, err)
		} else if err := s.Confirm(sig.ValidatorID, sig.ConfirmedTransfers); err != nil {
			misc.Warnf(logger, "dropping stale wallet signal %s: %v", path, err)
		} else {
			applied++
			misc.Infof(logger, "wallet confirmed validator %s through transfer %d",
				sig.ValidatorID.Short(), sig.ConfirmedTransfers)
		}
		if err := os.Remove(path); err != nil {
			misc.Warnf(logger, "failed removing wallet signal %s: %v", path, err)
		}
	}
	return applied, nil
}
