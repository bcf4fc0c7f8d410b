// Package keys holds the local signing keys used for authorizing ledger
// operations. Keys load from environment variables (POOLMGR_KEY, POOLMGR_KEY2,
// ...) holding hex-encoded ed25519 seeds, so operators keep them in .env
// files alongside the rest of the configuration.
package keys

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"

	"github.com/unitstake/poolmgr/internal/lib/misc"
)

// Signer signs arbitrary payloads with one of the locally held accounts.
type Signer interface {
	HasAccount(address string) bool
	SignBytes(ctx context.Context, payload []byte, address string) ([]byte, error)
}

func NewLocalKeyStore(log *slog.Logger) *LocalKeyStore {
	keyStore := &LocalKeyStore{
		log:  log,
		keys: map[string]ed25519.PrivateKey{},
	}
	keyStore.loadFromEnvironment()
	return keyStore
}

type LocalKeyStore struct {
	log *slog.Logger

	keys map[string]ed25519.PrivateKey
}

var _ Signer = (*LocalKeyStore)(nil)

func (lk *LocalKeyStore) HasAccount(address string) bool {
	_, found := lk.keys[address]
	return found
}

func (lk *LocalKeyStore) SignBytes(ctx context.Context, payload []byte, address string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, found := lk.keys[address]
	if !found {
		return nil, fmt.Errorf("key not found for address %s", address)
	}
	return ed25519.Sign(key, payload), nil
}

// Addresses returns every loaded account address, sorted.
func (lk *LocalKeyStore) Addresses() []string {
	addrs := make([]string, 0, len(lk.keys))
	for addr := range lk.keys {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}

// FindFirstSigner returns the first of the candidate addresses we hold a key
// for, or if none are given, the first key we hold at all.
func (lk *LocalKeyStore) FindFirstSigner(candidates []string) (string, error) {
	if len(candidates) == 0 {
		addrs := lk.Addresses()
		if len(addrs) == 0 {
			return "", fmt.Errorf("no local keys loaded")
		}
		return addrs[0], nil
	}
	for _, addr := range candidates {
		if lk.HasAccount(addr) {
			return addr, nil
		}
	}
	return "", fmt.Errorf("no local key found among %d candidate addresses", len(candidates))
}

// loadFromEnvironment loads hex seeds from environment variables (can be in
// .env files as well) starting with "POOLMGR_KEY" and adds them to the key
// map. If a seed fails to parse, a fatal error is logged and the application
// exits.
func (lk *LocalKeyStore) loadFromEnvironment() {
	var numKeys int
	for _, envVal := range os.Environ() {
		if !strings.HasPrefix(envVal, "POOLMGR_KEY") {
			continue
		}
		key := envVal[0:strings.IndexByte(envVal, '=')]
		seedHex := misc.GetSecret(key)
		if seedHex == "" {
			continue
		}
		if err := lk.addSeed(seedHex); err != nil {
			lk.log.Error(fmt.Sprintf("fatal error in key load, env var:%s, err:%v", key, err))
			os.Exit(1)
		}
		numKeys++
	}
	misc.Infof(lk.log, "loaded %d local signing keys", numKeys)
}

func (lk *LocalKeyStore) addSeed(seedHex string) error {
	seed, err := hex.DecodeString(strings.TrimPrefix(seedHex, "0x"))
	if err != nil {
		return fmt.Errorf("failed to decode key seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	privKey := ed25519.NewKeyFromSeed(seed)
	addr := AddressFromPubKey(privKey.Public().(ed25519.PublicKey))
	lk.keys[addr] = privKey
	misc.Infof(lk.log, "added signing key for address:%s", addr)
	return nil
}

// AddressFromPubKey derives the 20-byte account address from a public key as
// the low 20 bytes of its keccak256 hash, rendered 0x-hex.
func AddressFromPubKey(pubKey ed25519.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pubKey)
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[12:])
}
