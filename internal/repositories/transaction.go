package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, item_id, item_name, item_image_ref, buyer_id, buyer_name,
	seller_id, seller_name, unit_price, requested_quantity, approved_quantity, final_total_price,
	status, verification_code, hold_ref, meetup_latitude, meetup_longitude, meetup_address,
	version, created_at, updated_at, completed_at, cancelled_at`

// transactionRow is the persisted shape of models.Transaction.
type transactionRow struct {
	ID                string          `db:"id"`
	ItemID            string          `db:"item_id"`
	ItemName          string          `db:"item_name"`
	ItemImageRef      string          `db:"item_image_ref"`
	BuyerID           string          `db:"buyer_id"`
	BuyerName         string          `db:"buyer_name"`
	SellerID          string          `db:"seller_id"`
	SellerName        string          `db:"seller_name"`
	UnitPrice         decimal.Decimal `db:"unit_price"`
	RequestedQuantity int             `db:"requested_quantity"`
	ApprovedQuantity  sql.NullInt64   `db:"approved_quantity"`
	FinalTotalPrice   decimal.Decimal `db:"final_total_price"`
	Status            string          `db:"status"`
	VerificationCode  string          `db:"verification_code"`
	HoldRef           string          `db:"hold_ref"`
	MeetupLatitude    sql.NullFloat64 `db:"meetup_latitude"`
	MeetupLongitude   sql.NullFloat64 `db:"meetup_longitude"`
	MeetupAddress     sql.NullString  `db:"meetup_address"`
	Version           int64           `db:"version"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
	CompletedAt       sql.NullTime    `db:"completed_at"`
	CancelledAt       sql.NullTime    `db:"cancelled_at"`
}

// checkStatus rejects rows written with a status outside the state machine.
func checkStatus(tx *models.Transaction) error {
	if !tx.Status.IsValid() {
		return fmt.Errorf("%w: %q in transaction %s", ErrUnknownStatus, tx.Status, tx.ID)
	}
	return nil
}

func (row transactionRow) toModel() (*models.Transaction, error) {
	tx := &models.Transaction{
		ID:                row.ID,
		ItemID:            row.ItemID,
		ItemName:          row.ItemName,
		ItemImageRef:      row.ItemImageRef,
		BuyerID:           row.BuyerID,
		BuyerName:         row.BuyerName,
		SellerID:          row.SellerID,
		SellerName:        row.SellerName,
		UnitPrice:         row.UnitPrice,
		RequestedQuantity: row.RequestedQuantity,
		Status:            models.Status(row.Status),
		VerificationCode:  row.VerificationCode,
		HoldRef:           row.HoldRef,
		Version:           row.Version,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if row.ApprovedQuantity.Valid {
		q := int(row.ApprovedQuantity.Int64)
		tx.ApprovedQuantity = &q
	}
	if row.MeetupLatitude.Valid && row.MeetupLongitude.Valid {
		tx.MeetupDetails = &models.MeetupDetails{
			Latitude:  row.MeetupLatitude.Float64,
			Longitude: row.MeetupLongitude.Float64,
			Address:   row.MeetupAddress.String,
		}
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		tx.CompletedAt = &t
	}
	if row.CancelledAt.Valid {
		t := row.CancelledAt.Time
		tx.CancelledAt = &t
	}
	return tx, checkStatus(tx)
}

// nullable columns shared by Create and CompareAndSwap.
func mutableArgs(tx *models.Transaction) (approved sql.NullInt64, lat, lon sql.NullFloat64, addr sql.NullString, completed, cancelled sql.NullTime) {
	if tx.ApprovedQuantity != nil {
		approved = sql.NullInt64{Int64: int64(*tx.ApprovedQuantity), Valid: true}
	}
	if m := tx.MeetupDetails; m != nil {
		lat = sql.NullFloat64{Float64: m.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: m.Longitude, Valid: true}
		addr = sql.NullString{String: m.Address, Valid: true}
	}
	if tx.CompletedAt != nil {
		completed = sql.NullTime{Time: *tx.CompletedAt, Valid: true}
	}
	if tx.CancelledAt != nil {
		cancelled = sql.NullTime{Time: *tx.CancelledAt, Valid: true}
	}
	return
}

// TransactionRepository persists Transaction aggregates.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new transaction. The version is reset to 1.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	const query = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        1, $19, $20, $21, $22)
	`

	approved, lat, lon, addr, completed, cancelled := mutableArgs(tx)
	args := []any{
		tx.ID, tx.ItemID, tx.ItemName, tx.ItemImageRef, tx.BuyerID, tx.BuyerName,
		tx.SellerID, tx.SellerName, tx.UnitPrice, tx.RequestedQuantity, approved, tx.FinalTotalPrice(),
		string(tx.Status), tx.VerificationCode, tx.HoldRef, lat, lon, addr,
		tx.CreatedAt, tx.UpdatedAt, completed, cancelled,
	}
	_, err := r.db.ExecContext(ctx, query, args...)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{tx.ID, tx.ItemID, tx.BuyerID, tx.SellerID, tx.RequestedQuantity, tx.Status},
		"error", err,
	)

	if err != nil {
		return err
	}
	tx.Version = 1
	return nil
}

// GetByID returns a transaction by id.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	var row transactionRow
	err := r.db.GetContext(ctx, &row, query, id)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{id},
		"result", row.Status,
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel()
}

// ListByParty returns transactions where userID is the buyer or the seller, newest first.
func (r *TransactionRepository) ListByParty(ctx context.Context, userID string) ([]models.Transaction, error) {
	const query = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC
	`

	var rows []transactionRow
	err := r.db.SelectContext(ctx, &rows, query, userID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{userID},
		"result", len(rows),
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	txs := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := row.toModel()
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, nil
}

// CompareAndSwap writes the mutable fields of tx only if the stored row still has the
// expected status and tx.Version. On success tx.Version is advanced.
func (r *TransactionRepository) CompareAndSwap(ctx context.Context, tx *models.Transaction, expected models.Status) error {
	const query = `
		UPDATE transactions
		SET approved_quantity = $1,
		    final_total_price = $2,
		    status = $3,
		    hold_ref = $4,
		    meetup_latitude = $5,
		    meetup_longitude = $6,
		    meetup_address = $7,
		    updated_at = $8,
		    completed_at = $9,
		    cancelled_at = $10,
		    version = version + 1
		WHERE id = $11 AND status = $12 AND version = $13
		RETURNING version
	`

	approved, lat, lon, addr, completed, cancelled := mutableArgs(tx)
	args := []any{
		approved, tx.FinalTotalPrice(), string(tx.Status), tx.HoldRef, lat, lon, addr,
		tx.UpdatedAt, completed, cancelled,
		tx.ID, string(expected), tx.Version,
	}

	var version int64
	err := r.db.GetContext(ctx, &version, query, args...)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{tx.ID, expected, tx.Status, tx.Version},
		"result", version,
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	tx.Version = version
	return nil
}
