package simnet

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/config"
	"github.com/govm-net/simnet/contracts"
	"github.com/govm-net/simnet/core"
	"github.com/govm-net/simnet/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestSimnet(t *testing.T, cfg *config.Config) *Simnet {
	t.Helper()
	s, err := New(cfg, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestGetAccounts(t *testing.T) {
	s := newTestSimnet(t, nil)
	accounts := s.GetAccounts()
	require.Len(t, accounts, config.DefaultWallets+1)
	assert.Equal(t, core.AccountAddress("deployer"), accounts["deployer"])
	assert.Equal(t, s.Deployer(), accounts["deployer"])
	for name, addr := range accounts {
		assert.Equal(t, config.DefaultBalance, s.GetBalance(addr), name)
	}

	// the returned map is a copy
	delete(accounts, "wallet_1")
	assert.Contains(t, s.GetAccounts(), "wallet_1")

	assert.Equal(t, uint64(1), s.BlockHeight(), "counter deployment block")
	assert.NotEmpty(t, s.ID())
}

func TestContractID(t *testing.T) {
	s := newTestSimnet(t, nil)

	id, err := s.ContractID("counter")
	require.NoError(t, err)
	assert.Equal(t, core.ContractID{Issuer: s.Deployer(), Name: "counter"}, id)

	full, err := s.ContractID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, full)
	assert.Equal(t, []core.ContractID{id}, s.Contracts())

	_, err = s.ContractID("")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = s.ContractID("bogus.counter")
	assert.ErrorIs(t, err, core.ErrInvalidPrincipal)

	// the same call through a full identifier
	res, err := s.CallPublicFn(id.String(), "increment", []cl.Value{cl.NewUInt(1)}, s.GetAccounts()["wallet_1"])
	require.NoError(t, err)
	assert.True(t, cl.Equal(cl.Ok(cl.NewUInt(2)), res.Result))

	_, err = s.GetDataVar("counter-2", "count")
	assert.ErrorIs(t, err, core.ErrContractNotFound)
}

func TestDeploy(t *testing.T) {
	s := newTestSimnet(t, nil)
	wallet1 := s.GetAccounts()["wallet_1"]

	id, err := s.Deploy("counter-wasm", "counter", map[string]any{"initial": 10, "runtime": "wasm"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), s.BlockHeight())

	res, err := s.CallPublicFn("counter-wasm", "increment", []cl.Value{cl.NewUInt(5)}, wallet1)
	require.NoError(t, err)
	assert.True(t, cl.Equal(cl.Ok(cl.NewUInt(15)), res.Result))
	assert.Equal(t, id.String(), res.Events[0].Data.ContractIdentifier)

	// the default counter is untouched
	count, err := s.GetDataVar("counter", "count")
	require.NoError(t, err)
	assert.True(t, cl.Equal(cl.NewUInt(1), count))

	_, err = s.Deploy("counter-wasm", "counter", nil)
	assert.ErrorIs(t, err, core.ErrContractExists)
	_, err = s.Deploy("token", "sip-010", nil)
	assert.ErrorIs(t, err, contracts.ErrUnknownKind)
}

func TestTransferSTX(t *testing.T) {
	s := newTestSimnet(t, nil)
	accounts := s.GetAccounts()

	res, err := s.TransferSTX(1_000_000, accounts["wallet_2"], accounts["wallet_1"])
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, types.STXTransferEvent, res.Events[0].Event)
	assert.Equal(t, config.DefaultBalance-1_000_000, s.GetBalance(accounts["wallet_1"]))
	assert.Equal(t, config.DefaultBalance+1_000_000, s.GetBalance(accounts["wallet_2"]))

	tx, events, err := s.Receipt(res.TxHash)
	require.NoError(t, err)
	assert.Equal(t, accounts["wallet_1"], tx.Sender)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(1_000_000), events[0].Data.Amount)

	_, err = s.TransferSTX(config.DefaultBalance, accounts["wallet_2"], accounts["wallet_1"])
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
}

func TestMineEmptyBlocks(t *testing.T) {
	s := newTestSimnet(t, nil)
	height, err := s.MineEmptyBlocks(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), height)
	assert.Equal(t, uint64(6), s.BlockHeight())

	res, err := s.CallPublicFn("counter", "increment", []cl.Value{cl.NewUInt(1)}, s.GetAccounts()["wallet_1"])
	require.NoError(t, err)
	assert.Equal(t, uint64(7), res.BlockHeight)

	height, err = s.MineEmptyBlocks(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), height)
}

func TestReadOnlyCall(t *testing.T) {
	s := newTestSimnet(t, nil)
	wallet1 := s.GetAccounts()["wallet_1"]

	res, err := s.CallReadOnlyFn("counter", "get-count", nil, wallet1)
	require.NoError(t, err)
	assert.True(t, cl.Equal(cl.NewUInt(1), res.Result))

	_, err = s.CallReadOnlyFn("counter", "increment", []cl.Value{cl.NewUInt(1)}, wallet1)
	assert.ErrorIs(t, err, core.ErrReadOnly)
	assert.Equal(t, uint64(1), s.BlockHeight())
}

func TestConfigErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Contracts = append(cfg.Contracts, config.Contract{Name: "broken", Kind: "counter", Params: map[string]any{"initial": "lots"}})
	_, err := New(cfg)
	assert.ErrorIs(t, err, cl.ErrSyntax)

	cfg = config.Default()
	cfg.Accounts = nil
	_, err = New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := New(nil, WithLogger(zaptest.NewLogger(t)), WithRegisterer(reg))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CallPublicFn("counter", "increment", []cl.Value{cl.NewUInt(1)}, s.GetAccounts()["wallet_1"])
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "simnet_contract_calls_total")
	assert.Contains(t, names, "simnet_blocks_mined_total")
}

func TestPersistentSession(t *testing.T) {
	cfg := config.Default()
	cfg.Network.Context = "db"
	cfg.Network.DBPath = filepath.Join(t.TempDir(), "chain.db")

	s, err := New(cfg, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	wallet1 := s.GetAccounts()["wallet_1"]
	_, err = s.CallPublicFn("counter", "increment", []cl.Value{cl.NewUInt(41)}, wallet1)
	require.NoError(t, err)
	_, err = s.TransferSTX(5, s.GetAccounts()["wallet_2"], wallet1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(cfg, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, uint64(3), s.BlockHeight())
	assert.Equal(t, config.DefaultBalance-5, s.GetBalance(wallet1), "balances are not funded twice")

	res, err := s.CallPublicFn("counter", "increment", []cl.Value{cl.NewUInt(1)}, wallet1)
	require.NoError(t, err)
	assert.True(t, cl.Equal(cl.Ok(cl.NewUInt(43)), res.Result))
}

func TestParallelSessions(t *testing.T) {
	var g errgroup.Group
	results := make([]cl.Value, 8)
	for i := range results {
		i := i
		g.Go(func() error {
			cfg := config.Default()
			if i%2 == 1 {
				cfg.Network.Context = "db"
			}
			s, err := New(cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			wallet := s.GetAccounts()[fmt.Sprintf("wallet_%d", i+1)]
			for step := 0; step <= i; step++ {
				if _, err := s.CallPublicFn("counter", "increment", []cl.Value{cl.NewUInt(1)}, wallet); err != nil {
					return err
				}
			}
			results[i], err = s.GetDataVar("counter", "count")
			return err
		})
	}
	require.NoError(t, g.Wait())

	// sessions do not share state
	for i, v := range results {
		assert.True(t, cl.Equal(cl.NewUInt(uint64(i+2)), v), "session %d got %s", i, cl.PrettyPrint(v))
	}
}

func TestDescribe(t *testing.T) {
	s := newTestSimnet(t, nil)
	rec, err := s.Describe("counter")
	require.NoError(t, err)
	assert.Equal(t, "counter", rec.Kind)
	assert.Equal(t, uint64(1), rec.DeployHeight)
	_, err = rec.ABI.Function("increment")
	assert.NoError(t, err)

	_, err = s.Describe("missing")
	assert.ErrorIs(t, err, core.ErrContractNotFound)
}

func TestFreshChainRedeploys(t *testing.T) {
	reopen := func(t *testing.T, cfg *config.Config) {
		for round := 0; round < 2; round++ {
			s, err := New(cfg, WithLogger(zaptest.NewLogger(t)))
			require.NoError(t, err, "round %d", round)
			res, err := s.CallPublicFn("counter", "increment", []cl.Value{cl.NewUInt(1)}, s.GetAccounts()["wallet_1"])
			require.NoError(t, err, "round %d", round)
			assert.True(t, cl.Equal(cl.Ok(cl.NewUInt(2)), res.Result), "round %d", round)
			require.NoError(t, s.Close())
			if cfg.Network.DBPath != "" {
				require.NoError(t, os.Remove(cfg.Network.DBPath))
			}
		}
	}

	t.Run("shared contracts dir", func(t *testing.T) {
		cfg := config.Default()
		cfg.Network.ContractsDir = t.TempDir()
		reopen(t, cfg)
	})

	t.Run("database removed", func(t *testing.T) {
		cfg := config.Default()
		cfg.Network.Context = "db"
		cfg.Network.DBPath = filepath.Join(t.TempDir(), "chain.db")
		reopen(t, cfg)
		_, err := os.Stat(cfg.Network.DBPath + ".contracts")
		assert.NoError(t, err, "records stay next to the database path")
	})
}
