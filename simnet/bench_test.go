package simnet

import (
	"sync"
	"testing"

	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/config"
	"github.com/stretchr/testify/require"
)

func benchmarkIncrement(b *testing.B, cfg *config.Config) {
	s, err := New(cfg)
	require.NoError(b, err)
	defer s.Close()
	wallet1 := s.GetAccounts()["wallet_1"]
	args := []cl.Value{cl.NewUInt(1)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.CallPublicFn("counter", "increment", args, wallet1); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkIncrementMemory(b *testing.B) {
	benchmarkIncrement(b, config.Default())
}

func BenchmarkIncrementWasm(b *testing.B) {
	cfg := config.Default()
	cfg.Contracts[0].Params["runtime"] = "wasm"
	benchmarkIncrement(b, cfg)
}

func BenchmarkIncrementDB(b *testing.B) {
	cfg := config.Default()
	cfg.Network.Context = "db"
	benchmarkIncrement(b, cfg)
}

// Calls from many goroutines are serialised by the session.
func BenchmarkIncrementConcurrent(b *testing.B) {
	s, err := New(nil)
	require.NoError(b, err)
	defer s.Close()
	accounts := s.GetAccounts()
	senders := []string{"wallet_1", "wallet_2", "wallet_3", "wallet_4"}

	b.ResetTimer()
	var wg sync.WaitGroup
	for _, name := range senders {
		wg.Add(1)
		go func(sender string) {
			defer wg.Done()
			for i := 0; i < b.N/len(senders); i++ {
				if _, err := s.CallPublicFn("counter", "increment", []cl.Value{cl.NewUInt(1)}, accounts[sender]); err != nil {
					b.Error(err)
					return
				}
			}
		}(name)
	}
	wg.Wait()
}
