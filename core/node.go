package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"loanft/core/events"
	"loanft/core/genesis"
	"loanft/core/state"
	"loanft/core/types"
	"loanft/native/assets"
	"loanft/native/loan"
	"loanft/observability"
	"loanft/storage"
)

var (
	ErrNilTransaction  = errors.New("node: transaction must not be nil")
	ErrChainIDMismatch = errors.New("node: chain id mismatch")
	ErrInvalidSender   = errors.New("node: invalid signature")
	ErrNonceMismatch   = errors.New("node: nonce mismatch")
	ErrNoGenesis       = errors.New("node: state has no genesis and none was supplied")
)

// EventSink receives committed event records, typically an SQL indexer.
type EventSink interface {
	IndexEvents(ctx context.Context, records []*state.EventRecord) error
}

// Options configures a Node.
type Options struct {
	// ChainID, when non-zero, must match the chain id recorded at genesis.
	ChainID uint64
	// Genesis is applied when the database holds no state yet.
	Genesis *genesis.GenesisSpec
	Logger  *slog.Logger
	Now     func() int64
}

type subscriber struct {
	ch chan *state.EventRecord
}

// Node is the central controller. It validates signed transactions, applies
// them one at a time and commits their effects atomically.
type Node struct {
	db      storage.Database
	manager *state.Manager
	sp      *StateProcessor
	chainID uint64
	logger  *slog.Logger
	tracer  trace.Tracer
	txCount metric.Int64Counter
	nowFn   func() int64
	sink    EventSink

	mu sync.RWMutex
	// pubMu is taken before mu is released so records reach subscribers and
	// the sink in commit order.
	pubMu sync.Mutex

	subMu       sync.Mutex
	subscribers map[uint64]*subscriber
	nextSub     uint64
}

// NewNode opens the state stored in db, applying genesis when the database is
// empty.
func NewNode(db storage.Database, opts Options) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database must not be nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}

	manager := state.NewManager(db)
	sp := NewStateProcessor(manager)
	sp.SetNowFunc(now)

	info, ok, err := manager.GenesisInfo()
	if err != nil {
		return nil, err
	}
	if !ok {
		if opts.Genesis == nil {
			return nil, ErrNoGenesis
		}
		if err := opts.Genesis.Validate(); err != nil {
			return nil, fmt.Errorf("genesis: %w", err)
		}
		buf := &events.Buffer{}
		if err := genesis.Apply(opts.Genesis, manager, buf); err != nil {
			manager.Discard()
			return nil, fmt.Errorf("apply genesis: %w", err)
		}
		ts := opts.Genesis.GenesisTimestamp().Unix()
		for _, evt := range events.Flatten(buf.Events()) {
			if _, err := manager.AppendEvent([32]byte{}, ts, [20]byte{}, evt); err != nil {
				manager.Discard()
				return nil, err
			}
		}
		if err := manager.Commit(); err != nil {
			return nil, err
		}
		if info, _, err = manager.GenesisInfo(); err != nil {
			return nil, err
		}
		logger.Info("genesis applied", slog.Uint64("chain_id", info.ChainID), slog.Int("events", buf.Len()))
	}
	if opts.ChainID != 0 && opts.ChainID != info.ChainID {
		return nil, fmt.Errorf("%w: configured %d, stored %d", ErrChainIDMismatch, opts.ChainID, info.ChainID)
	}

	txCount, err := otel.Meter("loanft/core").Int64Counter("loanft.transactions",
		metric.WithDescription("Transactions processed by the node, by type and status."))
	if err != nil {
		return nil, fmt.Errorf("tx counter: %w", err)
	}

	return &Node{
		db:          db,
		manager:     manager,
		sp:          sp,
		chainID:     info.ChainID,
		logger:      logger,
		tracer:      otel.Tracer("loanft/core"),
		txCount:     txCount,
		nowFn:       now,
		subscribers: make(map[uint64]*subscriber),
	}, nil
}

// SetEventSink registers an optional sink fed after every commit.
func (n *Node) SetEventSink(sink EventSink) {
	n.mu.Lock()
	n.sink = sink
	n.mu.Unlock()
}

// ChainID returns the chain id transactions must be signed for.
func (n *Node) ChainID() uint64 { return n.chainID }

// ApplyTransaction validates tx and applies it atomically. Transactions with a
// bad chain id, signature or nonce are rejected without a receipt. Otherwise
// the sender's nonce is consumed and a receipt returned; when the transition
// itself fails every effect is reverted, the receipt is marked failed and the
// transition error is returned alongside it.
func (n *Node) ApplyTransaction(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}
	start := time.Now()
	ctx, span := n.tracer.Start(ctx, "node.ApplyTransaction", trace.WithAttributes(
		attribute.String("tx.type", tx.Type.String()),
		attribute.Int64("tx.nonce", int64(tx.Nonce)),
	))
	defer span.End()

	n.mu.Lock()
	res, err := n.applyLocked(tx)
	sink := n.sink
	n.pubMu.Lock()
	n.mu.Unlock()
	defer n.pubMu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		n.txCount.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", tx.Type.String()),
			attribute.String("status", "rejected")))
		n.logger.Warn("transaction rejected", slog.String("type", tx.Type.String()), slog.Any("error", err))
		return nil, err
	}
	receipt, records, applyErr := res.receipt, res.records, res.applyErr

	metrics := observability.Loan()
	metrics.RecordTx(tx.Type.String(), loan.KindLabel(applyErr), time.Since(start))
	n.txCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", tx.Type.String()),
		attribute.String("status", receipt.Status)))
	span.SetAttributes(attribute.String("tx.hash", receipt.TxHash), attribute.String("tx.status", receipt.Status))
	if applyErr != nil {
		span.SetStatus(codes.Error, applyErr.Error())
		n.logger.Warn("transaction failed",
			slog.String("tx", receipt.TxHash),
			slog.String("type", receipt.Type),
			slog.String("sender", receipt.Sender),
			slog.String("kind", receipt.ErrorKind),
			slog.String("error", applyErr.Error()))
		return receipt, applyErr
	}

	for _, evt := range res.events {
		switch e := evt.(type) {
		case events.FeeCollected:
			metrics.RecordFee(e.Amount)
		case loan.LoanCreatedEvent:
			metrics.RecordEscrowCreated()
		}
	}
	n.publish(records)
	if sink != nil && len(records) > 0 {
		if err := sink.IndexEvents(ctx, records); err != nil {
			n.logger.Warn("event sink failed; gap is refilled on next backfill",
				slog.String("tx", receipt.TxHash),
				slog.Uint64("first_sequence", records[0].Sequence),
				slog.Any("error", err))
		}
	}
	n.logger.Debug("transaction applied",
		slog.String("tx", receipt.TxHash),
		slog.String("type", receipt.Type),
		slog.String("sender", receipt.Sender),
		slog.Int("events", len(records)))
	return receipt, nil
}

type applyResult struct {
	receipt  *Receipt
	records  []*state.EventRecord
	events   []events.Event
	applyErr error
}

func (n *Node) applyLocked(tx *types.Transaction) (*applyResult, error) {
	if tx.ChainID != n.chainID {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrChainIDMismatch, tx.ChainID, n.chainID)
	}
	sender, err := tx.Sender()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSender, err)
	}
	rawHash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	var hash [32]byte
	copy(hash[:], rawHash)

	account, err := n.manager.GetAccount(sender[:])
	if err != nil {
		return nil, err
	}
	if account.Nonce != tx.Nonce {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrNonceMismatch, tx.Nonce, account.Nonce)
	}

	now := n.nowFn()
	escrow := EscrowTarget(tx, sender)
	snap := n.manager.Snapshot()
	applyErr := n.sp.ApplyTransaction(tx, sender)
	var evts []events.Event
	if applyErr != nil {
		n.manager.RevertToSnapshot(snap)
		n.sp.DropEvents()
	} else {
		evts = n.sp.TakeEvents()
	}

	// The nonce is consumed whether or not the transition succeeded.
	account, err = n.manager.GetAccount(sender[:])
	if err != nil {
		n.manager.Discard()
		return nil, err
	}
	account.Nonce++
	if err := n.manager.PutAccount(sender[:], account); err != nil {
		n.manager.Discard()
		return nil, err
	}

	receipt := newReceipt(tx, hash, sender, escrow, now, applyErr)
	records := make([]*state.EventRecord, 0, len(evts))
	for _, evt := range events.Flatten(evts) {
		rec, err := n.manager.AppendEvent(hash, now, escrow, evt)
		if err != nil {
			n.manager.Discard()
			return nil, err
		}
		records = append(records, rec)
		receipt.Events = append(receipt.Events, evt.Clone())
	}
	if err := n.manager.Commit(); err != nil {
		n.manager.Discard()
		return nil, err
	}
	return &applyResult{receipt: receipt, records: records, events: evts, applyErr: applyErr}, nil
}

// SubscribeEvents returns a channel of committed event records and a cancel
// function. A subscriber whose buffer is full when an event is published is
// dropped and its channel closed.
func (n *Node) SubscribeEvents(buffer int) (<-chan *state.EventRecord, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	sub := &subscriber{ch: make(chan *state.EventRecord, buffer)}
	n.subMu.Lock()
	id := n.nextSub
	n.nextSub++
	n.subscribers[id] = sub
	n.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.subMu.Lock()
			if current, ok := n.subscribers[id]; ok && current == sub {
				delete(n.subscribers, id)
				close(sub.ch)
			}
			n.subMu.Unlock()
		})
	}
	return sub.ch, cancel
}

func (n *Node) publish(records []*state.EventRecord) {
	if len(records) == 0 {
		return
	}
	n.subMu.Lock()
	defer n.subMu.Unlock()
	for id, sub := range n.subscribers {
		for _, rec := range records {
			select {
			case sub.ch <- rec:
				continue
			default:
			}
			n.logger.Warn("dropping slow event subscriber", slog.Uint64("subscriber", id))
			delete(n.subscribers, id)
			close(sub.ch)
			break
		}
	}
}

// Close disconnects every event subscriber. The database stays open.
func (n *Node) Close() {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	for id, sub := range n.subscribers {
		delete(n.subscribers, id)
		close(sub.ch)
	}
}

// --- Queries ---

// GetAccount returns the committed account for addr.
func (n *Node) GetAccount(addr [20]byte) (*types.Account, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.manager.GetAccount(addr[:])
}

// Balance returns the native balance of addr.
func (n *Node) Balance(addr [20]byte) (*big.Int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sp.Bank.Balance(addr)
}

// Escrow returns the loan escrow stored at addr.
func (n *Node) Escrow(addr [20]byte) (*loan.Escrow, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sp.LoanEngine.Get(addr)
}

// Escrows lists every escrow identity in creation order.
func (n *Node) Escrows() ([][20]byte, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.manager.LoanList()
}

// Registry returns the registry declared at addr.
func (n *Node) Registry(addr [20]byte) (*assets.Registry, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sp.Assets.Registry(addr)
}

// Registries lists every registry declared at genesis.
func (n *Node) Registries() ([]*assets.Registry, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.manager.AssetRegistries()
}

// OwnerOf returns the owner of a unique token.
func (n *Node) OwnerOf(registry [20]byte, id uint64) ([20]byte, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sp.Assets.OwnerOf(registry, id)
}

// TokenCount returns how many unique tokens holder owns in registry.
func (n *Node) TokenCount(registry, holder [20]byte) (uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sp.Assets.TokenCount(registry, holder)
}

// UnitsOf returns holder's balance of fungible asset id.
func (n *Node) UnitsOf(registry, holder [20]byte, id uint64) (*big.Int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sp.Assets.BalanceOf(registry, holder, id)
}

// IsApprovedForAll reports whether operator may move owner's assets.
func (n *Node) IsApprovedForAll(registry, owner, operator [20]byte) (bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sp.Assets.IsApprovedForAll(registry, owner, operator)
}

// EventsByEscrow returns the committed events recorded for an escrow.
func (n *Node) EventsByEscrow(escrow [20]byte) ([]*state.EventRecord, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.manager.EventsByEscrow(escrow)
}

// EventsSince returns up to limit committed events with a sequence greater
// than after.
func (n *Node) EventsSince(after uint64, limit int) ([]*state.EventRecord, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	latest, err := n.manager.LatestEventSequence()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	out := make([]*state.EventRecord, 0)
	for seq := after + 1; seq <= latest && len(out) < limit; seq++ {
		rec, ok, err := n.manager.EventBySequence(seq)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// LatestSequence returns the sequence of the last committed event record.
func (n *Node) LatestSequence() (uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.manager.LatestEventSequence()
}

// IsPaused reports whether module is halted.
func (n *Node) IsPaused(module string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.manager.IsPaused(module)
}
