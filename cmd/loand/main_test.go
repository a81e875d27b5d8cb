package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"loanft/core"
	"loanft/core/genesis"
	"loanft/crypto"
	"loanft/indexer"
	"loanft/storage"
)

func TestResolveGenesisPathPrecedence(t *testing.T) {
	lookup := func(key string) (string, bool) {
		require.Equal(t, genesisPathEnv, key)
		return "env-path", true
	}
	empty := func(string) (string, bool) { return "", false }

	require.Equal(t, "cli-path", resolveGenesisPath("  cli-path ", "cfg-path", lookup))
	require.Equal(t, "env-path", resolveGenesisPath("", "cfg-path", lookup))
	require.Equal(t, "cfg-path", resolveGenesisPath("", " cfg-path ", empty))
	require.Equal(t, "", resolveGenesisPath("", "", empty))
}

func TestDialAddressFor(t *testing.T) {
	require.Equal(t, "127.0.0.1:8545", dialAddressFor(":8545"))
	require.Equal(t, "127.0.0.1:8545", dialAddressFor("0.0.0.0:8545"))
	require.Equal(t, "10.1.2.3:9000", dialAddressFor("10.1.2.3:9000"))
	require.Equal(t, "bogus", dialAddressFor("bogus"))
}

func TestBackfillIndexReplaysGenesis(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	holder := key.PubKey().Address().String()
	spec := &genesis.GenesisSpec{
		GenesisTime: "2024-01-01T00:00:00Z",
		ChainID:     3,
		Alloc:       map[string]string{holder: "5"},
	}
	node, err := core.NewNode(storage.NewMemDB(), core.Options{Genesis: spec})
	require.NoError(t, err)
	defer node.Close()

	ix, err := indexer.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer ix.Close()

	last, err := ix.LastSequence(context.Background())
	require.NoError(t, err)
	require.Zero(t, last)

	require.NoError(t, backfillIndex(context.Background(), node, ix))
	records, err := node.EventsSince(0, 100)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	last, err = ix.LastSequence(context.Background())
	require.NoError(t, err)
	require.Equal(t, records[len(records)-1].Sequence, last)

	require.NoError(t, backfillIndex(context.Background(), node, ix))
	again, err := ix.LastSequence(context.Background())
	require.NoError(t, err)
	require.Equal(t, last, again)
}

func TestBackfillIndexRefillsDroppedRecords(t *testing.T) {
	alloc := map[string]string{}
	for i := 0; i < 3; i++ {
		key, err := crypto.GeneratePrivateKey()
		require.NoError(t, err)
		alloc[key.PubKey().Address().String()] = "5"
	}
	spec := &genesis.GenesisSpec{
		GenesisTime: "2024-01-01T00:00:00Z",
		ChainID:     3,
		Alloc:       alloc,
	}
	node, err := core.NewNode(storage.NewMemDB(), core.Options{Genesis: spec})
	require.NoError(t, err)
	defer node.Close()

	ix, err := indexer.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer ix.Close()

	ctx := context.Background()
	records, err := node.EventsSince(0, 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(records), 3)
	latest := records[len(records)-1].Sequence

	// The sink wrote everything except the second record.
	require.NoError(t, ix.IndexEvents(ctx, records[:1]))
	require.NoError(t, ix.IndexEvents(ctx, records[2:]))
	last, err := ix.LastSequence(ctx)
	require.NoError(t, err)
	require.Equal(t, latest, last)
	resume, err := ix.ResumeSequence(ctx)
	require.NoError(t, err)
	require.Equal(t, records[0].Sequence, resume)

	require.NoError(t, backfillIndex(ctx, node, ix))
	resume, err = ix.ResumeSequence(ctx)
	require.NoError(t, err)
	require.Equal(t, latest, resume)
}
