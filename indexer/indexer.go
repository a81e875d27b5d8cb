package indexer

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"loanft/core/events"
	"loanft/core/state"
	"loanft/core/types"
	"loanft/native/loan"
)

var ErrEscrowNotIndexed = errors.New("indexer: escrow not indexed")

// Indexer mirrors committed events into SQL and maintains a queryable escrow
// projection.
type Indexer struct {
	db *gorm.DB
}

// Open connects to the named driver ("sqlite" or "postgres") and migrates the
// schema.
func Open(driver, dsn string) (*Indexer, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("indexer: dsn required")
	}
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("indexer: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the schema.
func New(db *gorm.DB) (*Indexer, error) {
	if db == nil {
		return nil, fmt.Errorf("indexer: db required")
	}
	if err := db.AutoMigrate(&EventRow{}, &EscrowRow{}); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Indexer{db: db}, nil
}

// Close releases the underlying connection pool.
func (ix *Indexer) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}
	sqlDB, err := ix.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IndexEvents stores records and folds loan events into the escrow
// projection. Records already indexed are skipped so replays are harmless.
func (ix *Indexer) IndexEvents(ctx context.Context, records []*state.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	return ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			if rec == nil || rec.Event == nil {
				continue
			}
			attrs, err := json.Marshal(rec.Event.Attributes)
			if err != nil {
				return err
			}
			row := EventRow{
				ID:         uuid.New(),
				Sequence:   rec.Sequence,
				TxHash:     "0x" + hex.EncodeToString(rec.TxHash[:]),
				Type:       rec.Event.Type,
				Escrow:     rec.Event.Attributes["escrow"],
				Attributes: string(attrs),
				OccurredAt: time.Unix(rec.Timestamp, 0).UTC(),
			}
			result := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "sequence"}}, DoNothing: true}).Create(&row)
			if result.Error != nil {
				return fmt.Errorf("insert event %d: %w", rec.Sequence, result.Error)
			}
			if result.RowsAffected == 0 {
				continue
			}
			if err := project(tx, rec); err != nil {
				return fmt.Errorf("project event %d: %w", rec.Sequence, err)
			}
		}
		return nil
	})
}

func project(tx *gorm.DB, rec *state.EventRecord) error {
	attrs := rec.Event.Attributes
	addr := attrs["escrow"]
	if addr == "" {
		return nil
	}
	switch rec.Event.Type {
	case loan.EventTypeLoanCreated:
		fee, err := decimal.NewFromString(attrs["loanFee"])
		if err != nil {
			return fmt.Errorf("loan fee: %w", err)
		}
		if err := tx.Create(&EscrowRow{
			Address:            addr,
			Borrower:           attrs["borrower"],
			CommissionWallet:   attrs["commissionWallet"],
			CollateralRegistry: attrs["collateralRegistry"],
			RequestedRegistry:  attrs["requestedRegistry"],
			InterestRegistry:   attrs["interestRegistry"],
			CollateralID:       attrs["collateralId"],
			AssetToRequestID:   attrs["assetToRequestId"],
			TimeToPay:          attrs["timeToPay"],
			Phase:              loan.PhaseCreated.String(),
			LoanFee:            fee,
			FeesCollected:      decimal.Zero,
		}).Error; err != nil {
			return err
		}
		return reproject(tx, addr, rec.Sequence)
	case loan.EventTypeBorrowOrder:
		if err := tx.Model(&EscrowRow{}).Where("address = ?", addr).Update("interest_id", attrs["interestId"]).Error; err != nil {
			return err
		}
		// A refilled gap can deliver the borrow after the lend; never regress.
		return tx.Model(&EscrowRow{}).Where("address = ? AND phase = ?", addr, loan.PhaseCreated.String()).
			Update("phase", loan.PhaseBorrowDeposited.String()).Error
	case loan.EventTypeLendingOrder:
		return tx.Model(&EscrowRow{}).Where("address = ?", addr).Updates(map[string]interface{}{
			"phase":  loan.PhaseLendDeposited.String(),
			"lender": attrs["lender"],
		}).Error
	case events.TypeFeeCollected:
		amount, err := decimal.NewFromString(attrs["amount"])
		if err != nil {
			return fmt.Errorf("fee amount: %w", err)
		}
		var row EscrowRow
		if err := tx.Where("address = ?", addr).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		return tx.Model(&row).Update("fees_collected", row.FeesCollected.Add(amount)).Error
	}
	return nil
}

// reproject folds events of addr indexed before its creation record arrived.
func reproject(tx *gorm.DB, addr string, after uint64) error {
	var rows []EventRow
	if err := tx.Where("escrow = ? AND sequence > ?", addr, after).Order("sequence ASC").Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		if row.Type == loan.EventTypeLoanCreated {
			continue
		}
		attrs := map[string]string{}
		if err := json.Unmarshal([]byte(row.Attributes), &attrs); err != nil {
			return fmt.Errorf("decode event %d: %w", row.Sequence, err)
		}
		rec := &state.EventRecord{
			Sequence: row.Sequence,
			Event:    &types.Event{Type: row.Type, Attributes: attrs},
		}
		if err := project(tx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Escrow returns the projection for addr.
func (ix *Indexer) Escrow(ctx context.Context, addr string) (*EscrowRow, error) {
	var row EscrowRow
	err := ix.db.WithContext(ctx).Where("address = ?", addr).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEscrowNotIndexed
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// EscrowFilter narrows ListEscrows. Empty fields match everything.
type EscrowFilter struct {
	Borrower string
	Lender   string
	Phase    string
	Limit    int
}

// ListEscrows returns escrows matching filter, newest first.
func (ix *Indexer) ListEscrows(ctx context.Context, filter EscrowFilter) ([]EscrowRow, error) {
	q := ix.db.WithContext(ctx).Model(&EscrowRow{})
	if filter.Borrower != "" {
		q = q.Where("borrower = ?", filter.Borrower)
	}
	if filter.Lender != "" {
		q = q.Where("lender = ?", filter.Lender)
	}
	if filter.Phase != "" {
		q = q.Where("phase = ?", filter.Phase)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []EscrowRow
	if err := q.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// EventsByEscrow returns indexed events for an escrow in log order.
func (ix *Indexer) EventsByEscrow(ctx context.Context, escrow string, limit int) ([]EventRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var rows []EventRow
	err := ix.db.WithContext(ctx).Where("escrow = ?", escrow).Order("sequence ASC").Limit(limit).Find(&rows).Error
	return rows, err
}

// LastSequence returns the highest event sequence indexed so far, or zero.
func (ix *Indexer) LastSequence(ctx context.Context) (uint64, error) {
	var row EventRow
	err := ix.db.WithContext(ctx).Order("sequence DESC").Limit(1).Find(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Sequence, nil
}

// ResumeSequence returns the end of the contiguous run of indexed sequences
// starting at 1. Backfilling from it refills any hole left by a failed write.
func (ix *Indexer) ResumeSequence(ctx context.Context) (uint64, error) {
	db := ix.db.WithContext(ctx)
	var first int64
	if err := db.Model(&EventRow{}).Where("sequence = ?", 1).Count(&first).Error; err != nil {
		return 0, err
	}
	if first == 0 {
		return 0, nil
	}
	var end sql.NullInt64
	err := db.Model(&EventRow{}).
		Select("MIN(sequence)").
		Where("NOT EXISTS (SELECT 1 FROM event_rows AS nxt WHERE nxt.sequence = event_rows.sequence + 1)").
		Scan(&end).Error
	if err != nil {
		return 0, err
	}
	if !end.Valid {
		return 0, nil
	}
	return uint64(end.Int64), nil
}

// FeesCollected sums every fee routed to wallet.
func (ix *Indexer) FeesCollected(ctx context.Context, wallet string) (decimal.Decimal, error) {
	var rows []EscrowRow
	if err := ix.db.WithContext(ctx).Where("commission_wallet = ?", wallet).Find(&rows).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.FeesCollected)
	}
	return total, nil
}
