package refdata

import (
	"context"
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

const payerCols = `id, name, payer_code, active, timely_filing_days,
	requires_authorization, contact_email, created_at, updated_at`

func scanPayer(row pgx.Row) (*Payer, error) {
	var p Payer
	err := row.Scan(&p.ID, &p.Name, &p.PayerCode, &p.Active, &p.TimelyFilingDays,
		&p.RequiresAuthorization, &p.ContactEmail, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) GetPayer(ctx context.Context, id uuid.UUID) (*Payer, error) {
	p, err := scanPayer(r.conn(ctx).QueryRow(ctx, `SELECT `+payerCols+` FROM payer WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *repoPG) ListPayers(ctx context.Context, activeOnly bool, limit, offset int) ([]*Payer, int, error) {
	cond := "1=1"
	if activeOnly {
		cond = "active"
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payer WHERE `+cond).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+payerCols+` FROM payer WHERE `+cond+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Payer
	for rows.Next() {
		p, err := scanPayer(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CreatePayer(ctx context.Context, p *Payer) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payer (id, name, payer_code, active, timely_filing_days,
			requires_authorization, contact_email)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.Name, p.PayerCode, p.Active, p.TimelyFilingDays,
		p.RequiresAuthorization, p.ContactEmail)
	return err
}

func (r *repoPG) UpdatePayer(ctx context.Context, p *Payer) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE payer SET name=$2, payer_code=$3, active=$4, timely_filing_days=$5,
			requires_authorization=$6, contact_email=$7, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.PayerCode, p.Active, p.TimelyFilingDays,
		p.RequiresAuthorization, p.ContactEmail)
	return err
}

const clientCols = `id, first_name, last_name, external_id, active, created_at, updated_at`

func (r *repoPG) GetClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	var cl Client
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+clientCols+` FROM client WHERE id = $1`, id).
		Scan(&cl.ID, &cl.FirstName, &cl.LastName, &cl.ExternalID, &cl.Active, &cl.CreatedAt, &cl.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

func (r *repoPG) CreateClient(ctx context.Context, cl *Client) error {
	cl.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO client (id, first_name, last_name, external_id, active)
		VALUES ($1,$2,$3,$4,$5)`,
		cl.ID, cl.FirstName, cl.LastName, cl.ExternalID, cl.Active)
	return err
}

const codeCols = `id, code, description, active, effective_from, effective_to, created_at`

func (r *repoPG) GetProcedureCode(ctx context.Context, code string) (*ProcedureCode, error) {
	var pc ProcedureCode
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+codeCols+` FROM procedure_code WHERE code = $1`, code).
		Scan(&pc.ID, &pc.Code, &pc.Description, &pc.Active, &pc.EffectiveFrom, &pc.EffectiveTo, &pc.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

func (r *repoPG) CreateProcedureCode(ctx context.Context, pc *ProcedureCode) error {
	pc.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO procedure_code (id, code, description, active, effective_from, effective_to)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		pc.ID, pc.Code, pc.Description, pc.Active, pc.EffectiveFrom, pc.EffectiveTo)
	return err
}

const authCols = `id, client_id, payer_id, service_code, authorization_no,
	start_date, end_date, units_approved, revoked_at, created_at`

func (r *repoPG) FindAuthorizations(ctx context.Context, clientID, payerID uuid.UUID, serviceCode string) ([]*Authorization, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+authCols+` FROM service_authorization
		WHERE client_id = $1 AND payer_id = $2 AND service_code = $3 AND revoked_at IS NULL
		ORDER BY end_date DESC`,
		clientID, payerID, serviceCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Authorization
	for rows.Next() {
		var a Authorization
		if err := rows.Scan(&a.ID, &a.ClientID, &a.PayerID, &a.ServiceCode, &a.AuthorizationNo,
			&a.StartDate, &a.EndDate, &a.UnitsApproved, &a.RevokedAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *repoPG) CreateAuthorization(ctx context.Context, a *Authorization) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO service_authorization (id, client_id, payer_id, service_code,
			authorization_no, start_date, end_date, units_approved)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.ClientID, a.PayerID, a.ServiceCode,
		a.AuthorizationNo, a.StartDate, a.EndDate, a.UnitsApproved)
	return err
}

func (r *repoPG) RevokeAuthorization(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE service_authorization SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at)
	return err
}
