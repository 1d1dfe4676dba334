package claims

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/revcycle/claims/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// withTx runs fn inside a transaction, reusing an ambient transaction from
// the context when one exists (the ambient owner commits in that case).
func (r *repoPG) withTx(ctx context.Context, fn func(q queryable) error) error {
	if tx := db.TxFromContext(ctx); tx != nil {
		return fn(tx)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const claimCols = `id, claim_number, external_claim_id, client_id, payer_id,
	original_claim_id, claim_type, status, total_amount_cents,
	service_start_date, service_end_date,
	submission_date, submission_method, adjudication_date,
	denial_reason, denial_details, adjustment_codes, appeal_reason,
	version, created_at, updated_at, created_by, updated_by`

func scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	err := row.Scan(&c.ID, &c.ClaimNumber, &c.ExternalClaimID, &c.ClientID, &c.PayerID,
		&c.OriginalClaimID, &c.ClaimType, &c.Status, &c.TotalAmount,
		&c.ServiceStartDate, &c.ServiceEndDate,
		&c.SubmissionDate, &c.SubmissionMethod, &c.AdjudicationDate,
		&c.DenialReason, &c.DenialDetails, &c.AdjustmentCodes, &c.AppealReason,
		&c.Version, &c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy)
	return &c, err
}

const lineCols = `id, claim_id, sequence, service_code, service_date,
	units, unit_rate_cents, amount_cents, description`

func scanLine(row pgx.Row) (*ServiceLine, error) {
	var l ServiceLine
	err := row.Scan(&l.ID, &l.ClaimID, &l.Sequence, &l.ServiceCode, &l.ServiceDate,
		&l.Units, &l.UnitRate, &l.Amount, &l.Description)
	return &l, err
}

const historyCols = `id, claim_id, status, notes, user_id, created_at`

func scanHistory(row pgx.Row) (*StatusHistory, error) {
	var h StatusHistory
	err := row.Scan(&h.ID, &h.ClaimID, &h.Status, &h.Notes, &h.UserID, &h.CreatedAt)
	return &h, err
}

func (r *repoPG) Create(ctx context.Context, c *Claim, lines []*ServiceLine, entry *StatusHistory) error {
	c.ID = uuid.New()
	c.Version = 1
	return r.withTx(ctx, func(q queryable) error {
		_, err := q.Exec(ctx, `
			INSERT INTO claim (id, claim_number, external_claim_id, client_id, payer_id,
				original_claim_id, claim_type, status, total_amount_cents,
				service_start_date, service_end_date,
				submission_date, submission_method,
				adjustment_codes, version, created_by, updated_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
			c.ID, c.ClaimNumber, c.ExternalClaimID, c.ClientID, c.PayerID,
			c.OriginalClaimID, c.ClaimType, c.Status, c.TotalAmount,
			c.ServiceStartDate, c.ServiceEndDate,
			c.SubmissionDate, c.SubmissionMethod,
			c.AdjustmentCodes, c.Version, c.CreatedBy, c.UpdatedBy)
		if err != nil {
			return err
		}
		for _, l := range lines {
			l.ID = uuid.New()
			l.ClaimID = c.ID
			_, err := q.Exec(ctx, `
				INSERT INTO claim_service_line (id, claim_id, sequence, service_code,
					service_date, units, unit_rate_cents, amount_cents, description)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				l.ID, l.ClaimID, l.Sequence, l.ServiceCode,
				l.ServiceDate, l.Units, l.UnitRate, l.Amount, l.Description)
			if err != nil {
				return err
			}
		}
		entry.ClaimID = c.ID
		return insertHistory(ctx, q, entry)
	})
}

func insertHistory(ctx context.Context, q queryable, h *StatusHistory) error {
	h.ID = uuid.New()
	_, err := q.Exec(ctx, `
		INSERT INTO claim_status_history (id, claim_id, status, notes, user_id)
		VALUES ($1,$2,$3,$4,$5)`,
		h.ID, h.ClaimID, h.Status, h.Notes, h.UserID)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	c, err := scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM claim WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, notFound("claim", id.String())
	}
	return c, err
}

func (r *repoPG) GetByClaimNumber(ctx context.Context, claimNumber string) (*Claim, error) {
	c, err := scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM claim WHERE claim_number = $1`, claimNumber))
	if err == pgx.ErrNoRows {
		return nil, notFound("claim", claimNumber)
	}
	return c, err
}

func (r *repoPG) Update(ctx context.Context, c *Claim) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE claim SET client_id=$2, payer_id=$3,
			service_start_date=$4, service_end_date=$5, total_amount_cents=$6,
			adjustment_codes=$7, updated_by=$8, version=version+1, updated_at=NOW()
		WHERE id = $1 AND version = $9`,
		c.ID, c.ClientID, c.PayerID,
		c.ServiceStartDate, c.ServiceEndDate, c.TotalAmount,
		c.AdjustmentCodes, c.UpdatedBy, c.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &ConcurrencyError{ClaimID: c.ID}
	}
	c.Version++
	return nil
}

func (r *repoPG) Transition(ctx context.Context, c *Claim, entry *StatusHistory) error {
	return r.withTx(ctx, func(q queryable) error {
		tag, err := q.Exec(ctx, `
			UPDATE claim SET status=$2, external_claim_id=$3,
				submission_date=$4, submission_method=$5, adjudication_date=$6,
				denial_reason=$7, denial_details=$8, adjustment_codes=$9, appeal_reason=$10,
				updated_by=$11, version=version+1, updated_at=NOW()
			WHERE id = $1 AND version = $12`,
			c.ID, c.Status, c.ExternalClaimID,
			c.SubmissionDate, c.SubmissionMethod, c.AdjudicationDate,
			c.DenialReason, c.DenialDetails, c.AdjustmentCodes, c.AppealReason,
			c.UpdatedBy, c.Version)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &ConcurrencyError{ClaimID: c.ID}
		}
		c.Version++
		entry.ClaimID = c.ID
		return insertHistory(ctx, q, entry)
	})
}

func (r *repoPG) Search(ctx context.Context, f Filter, limit, offset int) ([]*Claim, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.ClientID != nil {
		add("client_id = $%d", *f.ClientID)
	}
	if f.PayerID != nil {
		add("payer_id = $%d", *f.PayerID)
	}
	if f.ClaimType != nil {
		add("claim_type = $%d", *f.ClaimType)
	}
	if f.ServiceFrom != nil {
		add("service_end_date >= $%d", *f.ServiceFrom)
	}
	if f.ServiceTo != nil {
		add("service_start_date <= $%d", *f.ServiceTo)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claim WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataArgs := append(args, limit, offset)
	sql := fmt.Sprintf(`SELECT %s FROM claim WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		claimCols, cond, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, sql, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ServiceLines(ctx context.Context, claimID uuid.UUID) ([]*ServiceLine, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+lineCols+` FROM claim_service_line WHERE claim_id = $1 ORDER BY sequence`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ServiceLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func (r *repoPG) History(ctx context.Context, claimID uuid.UUID) ([]*StatusHistory, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+historyCols+` FROM claim_status_history WHERE claim_id = $1 ORDER BY created_at, id`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*StatusHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

// FindDuplicates returns stored non-VOID claims for the same client and payer
// whose service period overlaps the candidate's and which bill at least one
// of the same service codes. The candidate itself is excluded.
func (r *repoPG) FindDuplicates(ctx context.Context, c *Claim, serviceCodes []string) ([]*Claim, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT `+prefixCols(claimCols, "c")+`
		FROM claim c
		JOIN claim_service_line l ON l.claim_id = c.id
		WHERE c.client_id = $1 AND c.payer_id = $2
			AND c.id <> $3
			AND c.status <> $4
			AND c.service_start_date <= $6 AND c.service_end_date >= $5
			AND l.service_code = ANY($7)`,
		c.ClientID, c.PayerID, c.ID, StatusVoid,
		c.ServiceStartDate, c.ServiceEndDate, serviceCodes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Claim
	for rows.Next() {
		dup, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, dup)
	}
	return items, rows.Err()
}

// prefixCols qualifies each column in a comma-separated list with an alias.
func prefixCols(cols, alias string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func (r *repoPG) AgingRows(ctx context.Context) ([]*AgingRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, payer_id, status, total_amount_cents, submission_date, service_end_date
		FROM claim
		WHERE status NOT IN ($1, $2, $3)`,
		StatusPaid, StatusVoid, StatusFinalDenied)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AgingRow
	for rows.Next() {
		var a AgingRow
		if err := rows.Scan(&a.ClaimID, &a.PayerID, &a.Status, &a.TotalAmount, &a.SubmissionDate, &a.ServiceEndDate); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *repoPG) MetricsRows(ctx context.Context, from, to time.Time) ([]*MetricsRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT c.id, c.payer_id,
			EXISTS (
				SELECT 1 FROM claim_status_history h
				WHERE h.claim_id = c.id AND h.status IN ($3, $4)
			),
			c.submission_date, c.adjudication_date
		FROM claim c
		WHERE c.submission_date IS NOT NULL
			AND c.submission_date >= $1 AND c.submission_date <= $2`,
		from, to, StatusDenied, StatusFinalDenied)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*MetricsRow
	for rows.Next() {
		var m MetricsRow
		if err := rows.Scan(&m.ClaimID, &m.PayerID, &m.EverDenied, &m.SubmissionDate, &m.AdjudicationDate); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}
