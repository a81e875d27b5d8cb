package indexer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventRow is one committed event as stored in SQL.
type EventRow struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Sequence   uint64    `gorm:"uniqueIndex;not null" json:"sequence"`
	TxHash     string    `gorm:"index" json:"txHash"`
	Type       string    `gorm:"index;not null" json:"type"`
	Escrow     string    `gorm:"index" json:"escrow"`
	Attributes string    `gorm:"type:text" json:"attributes"`
	OccurredAt time.Time `gorm:"index" json:"occurredAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// EscrowRow is the latest known projection of a loan escrow.
type EscrowRow struct {
	Address            string          `gorm:"primaryKey" json:"address"`
	Borrower           string          `gorm:"index" json:"borrower"`
	Lender             string          `gorm:"index" json:"lender"`
	CommissionWallet   string          `gorm:"index" json:"commissionWallet"`
	CollateralRegistry string          `json:"collateralRegistry"`
	RequestedRegistry  string          `json:"requestedRegistry"`
	InterestRegistry   string          `json:"interestRegistry"`
	CollateralID       string          `json:"collateralId"`
	InterestID         string          `json:"interestId"`
	AssetToRequestID   string          `json:"assetToRequestId"`
	TimeToPay          string          `json:"timeToPay"`
	Phase              string          `gorm:"index" json:"phase"`
	LoanFee            decimal.Decimal `gorm:"type:numeric" json:"loanFee"`
	FeesCollected      decimal.Decimal `gorm:"type:numeric" json:"feesCollected"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}
