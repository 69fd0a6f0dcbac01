package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
	"github.com/joseph-ayodele/receipt-digitizer/internal/category"
	"github.com/joseph-ayodele/receipt-digitizer/internal/common"
	"github.com/joseph-ayodele/receipt-digitizer/internal/receipt"
)

// StoredReceipt is a saved receipt with its row and batch ids.
type StoredReceipt struct {
	ID      string          `json:"id"`
	BatchID string          `json:"batch_id"`
	Receipt receipt.Receipt `json:"receipt"`
}

type Filter struct {
	BatchID string
	// Category keeps receipts with at least one item in that category.
	Category constants.Category
	Limit    int
}

type ReceiptRepository interface {
	// SaveBatch stores receipts in one transaction and returns their row ids.
	// Image ids are not keys; duplicates are stored as separate rows.
	SaveBatch(ctx context.Context, batchID string, receipts []receipt.Receipt) ([]string, error)
	// List returns receipts in insertion order.
	List(ctx context.Context, f Filter) ([]StoredReceipt, error)
}

type receiptRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewReceiptRepository(db *DB, logger *slog.Logger) ReceiptRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &receiptRepository{db: db, logger: logger, now: time.Now}
}

const (
	insertReceipt = `INSERT INTO receipts (id, batch_id, seq, image_id, merchant_name, transaction_date, total, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertItem = `INSERT INTO receipt_items (receipt_id, line_no, description, category, quantity, line_total, tax_status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
)

func (r *receiptRepository) SaveBatch(ctx context.Context, batchID string, receipts []receipt.Receipt) (ids []string, err error) {
	logger := common.LoggerFrom(ctx, r.logger)
	if batchID == "" {
		return nil, common.NewAppError("INVALID_BATCH", "batch id is required", common.ErrInvalidInput)
	}

	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: begin: %v", common.ErrDatabase, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				logger.Error("failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	now := r.now().UTC()
	ids = make([]string, 0, len(receipts))
	for i, rec := range receipts {
		id := uuid.New().String()
		payload, mErr := json.Marshal(rec)
		if mErr != nil {
			return nil, fmt.Errorf("encode receipt %s: %w", rec.ImageID, mErr)
		}
		if _, err = tx.ExecContext(ctx, r.db.rebind(insertReceipt),
			id, batchID, i, rec.ImageID, rec.Merchant.Name, rec.Transaction.Date,
			rec.Transaction.Total, string(payload), now,
		); err != nil {
			logger.Error("failed to insert receipt", "image_id", rec.ImageID, "error", err)
			return nil, fmt.Errorf("%w: insert receipt: %v", common.ErrDatabase, err)
		}
		for j, it := range rec.Items {
			if _, err = tx.ExecContext(ctx, r.db.rebind(insertItem),
				id, j, it.Description, string(category.Categorize(it.Description)),
				it.Quantity, it.LineTotal, string(it.TaxStatus),
			); err != nil {
				logger.Error("failed to insert receipt item", "image_id", rec.ImageID, "line", j, "error", err)
				return nil, fmt.Errorf("%w: insert item: %v", common.ErrDatabase, err)
			}
		}
		ids = append(ids, id)
	}

	if err = tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", "error", err)
		return nil, fmt.Errorf("%w: commit: %v", common.ErrDatabase, err)
	}
	logger.Info("repository.save_batch.ok", "batch_id", batchID, "receipts", len(ids))
	return ids, nil
}

func (r *receiptRepository) List(ctx context.Context, f Filter) ([]StoredReceipt, error) {
	q := `SELECT id, batch_id, payload FROM receipts`
	var where []string
	var args []any
	if f.BatchID != "" {
		where = append(where, `batch_id = ?`)
		args = append(args, f.BatchID)
	}
	if f.Category != "" {
		where = append(where, `EXISTS (SELECT 1 FROM receipt_items i WHERE i.receipt_id = receipts.id AND i.category = ?)`)
		args = append(args, string(f.Category))
	}
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	q += ` ORDER BY created_at, batch_id, seq`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(q), args...)
	if err != nil {
		r.logger.Error("failed to list receipts", "batch_id", f.BatchID, "error", err)
		return nil, fmt.Errorf("%w: list: %v", common.ErrDatabase, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed to close rows", "error", err)
		}
	}()

	out := []StoredReceipt{}
	for rows.Next() {
		var s StoredReceipt
		var payload string
		if err := rows.Scan(&s.ID, &s.BatchID, &payload); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", common.ErrDatabase, err)
		}
		if err := json.Unmarshal([]byte(payload), &s.Receipt); err != nil {
			return nil, fmt.Errorf("%w: decode receipt %s: %v", common.ErrDatabase, s.ID, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", common.ErrDatabase, err)
	}
	return out, nil
}
