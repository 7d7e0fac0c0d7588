package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procuredesk/procuredesk/internal/platform/db"
)

const undefinedTable = "42P01"

// Repository provides PostgreSQL backed persistence for requests.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const requestColumns = `id, rfq_number, po_number, entity, description, vendor,
	place_of_delivery, place_of_arrival, po_date, exp_delivery_date, date_delivered,
	mgp_eta, date_due, qty_requested::text, qty_delivered::text, qty_pending::text,
	stage, status, client_id, buyer_id, is_public, created_at, updated_at, version`

// saveRequestSQL only overwrites rows holding an older version.
const saveRequestSQL = `UPDATE requests SET rfq_number=$2, po_number=$3, entity=$4, description=$5,
	vendor=$6, place_of_delivery=$7, place_of_arrival=$8, po_date=$9, exp_delivery_date=$10,
	date_delivered=$11, mgp_eta=$12, date_due=$13, qty_requested=$14::numeric,
	qty_delivered=$15::numeric, qty_pending=$16::numeric, stage=$17, status=$18,
	buyer_id=$19, is_public=$20, updated_at=$21, version=$22
	WHERE id=$1 AND version < $22`

const upsertItemSQL = `INSERT INTO request_items (id, request_id, item_number, description,
	qty_requested, qty_delivered, unit_price, line)
	VALUES ($1,$2,$3,$4,$5::numeric,$6::numeric,$7::numeric,$8)
	ON CONFLICT (id) DO UPDATE SET item_number = EXCLUDED.item_number,
		description = EXCLUDED.description, qty_requested = EXCLUDED.qty_requested,
		qty_delivered = EXCLUDED.qty_delivered, unit_price = EXCLUDED.unit_price,
		line = EXCLUDED.line
	WHERE request_items.request_id = EXCLUDED.request_id`

func scanRequest(row pgx.Row) (RequestRow, error) {
	var r RequestRow
	var requested, delivered, pending string
	err := row.Scan(&r.ID, &r.RFQNumber, &r.PONumber, &r.Entity, &r.Description, &r.Vendor,
		&r.PlaceOfDelivery, &r.PlaceOfArrival, &r.PODate, &r.ExpDeliveryDate, &r.DateDelivered,
		&r.MGPETA, &r.DateDue, &requested, &delivered, &pending,
		&r.Stage, &r.Status, &r.ClientID, &r.BuyerID, &r.IsPublic, &r.CreatedAt, &r.UpdatedAt, &r.Version)
	r.QtyRequested = Numeric(requested)
	r.QtyDelivered = Numeric(delivered)
	r.QtyPending = Numeric(pending)
	return r, err
}

// ListRequests returns every request row, oldest first.
func (r *Repository) ListRequests(ctx context.Context) ([]RequestRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM requests ORDER BY created_at, id`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []RequestRow
	for rows.Next() {
		row, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, translate(rows.Err())
}

// ListItems returns the item rows of a request ordered by line.
func (r *Repository) ListItems(ctx context.Context, requestID string) ([]ItemRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, request_id, item_number, description,
		qty_requested::text, qty_delivered::text, COALESCE(unit_price::text, ''), line
		FROM request_items WHERE request_id = $1 ORDER BY line, id`, requestID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []ItemRow
	for rows.Next() {
		var it ItemRow
		var requested, delivered, price string
		if err := rows.Scan(&it.ID, &it.RequestID, &it.ItemNumber, &it.Description,
			&requested, &delivered, &price, &it.Line); err != nil {
			return nil, err
		}
		it.QtyRequested = Numeric(requested)
		it.QtyDelivered = Numeric(delivered)
		it.UnitPrice = Numeric(price)
		out = append(out, it)
	}
	return out, translate(rows.Err())
}

// ListFiles returns attachment rows of a request.
func (r *Repository) ListFiles(ctx context.Context, requestID string) ([]FileRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, request_id, name, url, size, type, is_public, uploaded_at
		FROM request_files WHERE request_id = $1 ORDER BY uploaded_at, id`, requestID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []FileRow
	for rows.Next() {
		var f FileRow
		if err := rows.Scan(&f.ID, &f.RequestID, &f.Name, &f.URL, &f.Size, &f.Type, &f.IsPublic, &f.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, translate(rows.Err())
}

// InsertRequest creates a request and its items, returning the stored rows.
func (r *Repository) InsertRequest(ctx context.Context, row RequestRow, items []ItemRow) (RequestRow, []ItemRow, error) {
	var saved RequestRow
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		saved, err = scanRequest(tx.QueryRow(ctx, `INSERT INTO requests (id, rfq_number, po_number, entity,
			description, vendor, place_of_delivery, place_of_arrival, po_date, exp_delivery_date,
			date_delivered, mgp_eta, date_due, qty_requested, qty_delivered, qty_pending,
			stage, status, client_id, buyer_id, is_public, created_at, updated_at, version)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14::numeric,$15::numeric,$16::numeric,$17,$18,$19,$20,$21,$22,$23,$24)
			RETURNING `+requestColumns,
			row.ID, row.RFQNumber, row.PONumber, row.Entity, row.Description, row.Vendor,
			row.PlaceOfDelivery, row.PlaceOfArrival, row.PODate, row.ExpDeliveryDate, row.DateDelivered,
			row.MGPETA, row.DateDue, numericArg(row.QtyRequested), numericArg(row.QtyDelivered), numericArg(row.QtyPending),
			row.Stage, row.Status, row.ClientID, row.BuyerID, row.IsPublic, row.CreatedAt, row.UpdatedAt, max(row.Version, 1)))
		if err != nil {
			return err
		}
		return upsertItems(ctx, tx, saved.ID, items)
	})
	if err != nil {
		return RequestRow{}, nil, fmt.Errorf("procurement: insert request: %w", translate(err))
	}
	for i := range items {
		items[i].RequestID = saved.ID
	}
	return saved, items, nil
}

// SaveRequest writes the full request snapshot: the row, its items and its
// files. Items missing from the snapshot are deleted. The row is only
// overwritten by a higher version; an older snapshot yields ErrSuperseded.
func (r *Repository) SaveRequest(ctx context.Context, req Request) error {
	row, items, files := ToRows(req)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, saveRequestSQL,
			row.ID, row.RFQNumber, row.PONumber, row.Entity, row.Description, row.Vendor,
			row.PlaceOfDelivery, row.PlaceOfArrival, row.PODate, row.ExpDeliveryDate,
			row.DateDelivered, row.MGPETA, row.DateDue, numericArg(row.QtyRequested),
			numericArg(row.QtyDelivered), numericArg(row.QtyPending), row.Stage, row.Status,
			row.BuyerID, row.IsPublic, row.UpdatedAt, row.Version)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var stored int64
			if err := tx.QueryRow(ctx, `SELECT version FROM requests WHERE id = $1`, row.ID).Scan(&stored); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrNotFound
				}
				return err
			}
			return fmt.Errorf("%w: stored version %d, snapshot version %d", ErrSuperseded, stored, row.Version)
		}
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM request_items WHERE request_id = $1 AND NOT (id = ANY($2))`, row.ID, ids); err != nil {
			return err
		}
		if err := upsertItems(ctx, tx, row.ID, items); err != nil {
			return err
		}
		for _, f := range files {
			if _, err := tx.Exec(ctx, `INSERT INTO request_files (id, request_id, name, url, size, type, is_public, uploaded_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
				ON CONFLICT (id) DO UPDATE SET url = EXCLUDED.url, is_public = EXCLUDED.is_public`,
				f.ID, row.ID, f.Name, f.URL, f.Size, f.Type, f.IsPublic, f.UploadedAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("procurement: save request %s: %w", req.ID, translate(err))
	}
	return nil
}

// upsertItems never moves an item between requests: a conflicting id owned by
// another request is left untouched.
func upsertItems(ctx context.Context, tx pgx.Tx, requestID string, items []ItemRow) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(upsertItemSQL,
			it.ID, requestID, it.ItemNumber, it.Description,
			numericArg(it.QtyRequested), numericArg(it.QtyDelivered), numericArg(it.UnitPrice), it.Line)
	}
	return tx.SendBatch(ctx, batch).Close()
}

// numericArg passes an empty numeric as SQL NULL.
func numericArg(n Numeric) any {
	if !n.Present() {
		return nil
	}
	return string(n)
}

// translate maps schema errors onto ErrTableMissing.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("%w: %s", ErrTableMissing, pgErr.Message)
	}
	return err
}
