package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/salesboard/pkg/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore implements the Store interface on an embedded SQLite file.
// Partitions are tables in the same database. Timestamps are stored as
// fixed-width RFC 3339 text, headers and extras as JSON text.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteTenantsDDL = `CREATE TABLE IF NOT EXISTS tenants (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	is_default     INTEGER NOT NULL DEFAULT 0,
	csv_headers    TEXT NOT NULL DEFAULT '[]',
	record_count   INTEGER NOT NULL DEFAULT 0,
	partition_name TEXT NOT NULL UNIQUE,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
)`

const sqliteDefaultIndexDDL = `CREATE UNIQUE INDEX IF NOT EXISTS tenants_single_default ON tenants (is_default) WHERE is_default = 1`

func sqliteSalesDDL(quoted string) string {
	return `CREATE TABLE IF NOT EXISTS ` + quoted + ` (
	id               TEXT PRIMARY KEY,
	sale_id          INTEGER NOT NULL UNIQUE,
	branch           TEXT NOT NULL DEFAULT '',
	city             TEXT NOT NULL DEFAULT '',
	customer_type    TEXT NOT NULL DEFAULT '',
	gender           TEXT NOT NULL DEFAULT '',
	product_name     TEXT NOT NULL DEFAULT '',
	product_category TEXT NOT NULL DEFAULT '',
	unit_price       REAL NOT NULL DEFAULT 0,
	quantity         INTEGER NOT NULL DEFAULT 1,
	tax              REAL NOT NULL DEFAULT 0,
	total_price      REAL NOT NULL DEFAULT 0,
	reward_points    INTEGER NOT NULL DEFAULT 0,
	extra            TEXT NOT NULL DEFAULT '{}',
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
)`
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// registry and built-in partition exist.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; SQLite serializes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`PRAGMA busy_timeout = 5000`,
		sqliteTenantsDDL,
		sqliteDefaultIndexDDL,
		sqliteSalesDDL(quoteIdent(models.BuiltInPartition)),
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqliteTable(partition string) (string, error) {
	if err := checkPartition(partition); err != nil {
		return "", err
	}
	return quoteIdent(partition), nil
}

func sqlitePlaceholder(int) string { return "?" }

// sqliteTimeFormat is fixed-width so text ordering matches time ordering.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeFormat, s)
}

// --- Tenants ---

func scanSQLiteTenant(row scanner) (*models.Tenant, error) {
	var (
		t                models.Tenant
		headers          string
		created, updated string
	)
	if err := row.Scan(&t.ID, &t.Name, &t.IsDefault, &headers, &t.RecordCount,
		&t.Partition, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(headers), &t.CSVHeaders); err != nil {
		return nil, fmt.Errorf("decode csv headers: %w", err)
	}
	var err error
	if t.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLiteStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if err := checkPartition(tenant.Partition); err != nil {
		return err
	}
	now := time.Now().UTC()
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}
	tenant.UpdatedAt = now
	if tenant.CSVHeaders == nil {
		tenant.CSVHeaders = []string{}
	}
	headers, err := json.Marshal(tenant.CSVHeaders)
	if err != nil {
		return fmt.Errorf("encode csv headers: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create tenant: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if tenant.Partition != models.BuiltInPartition {
		ddl := strings.Replace(sqliteSalesDDL(quoteIdent(tenant.Partition)), "IF NOT EXISTS ", "", 1)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create partition %s: %w", tenant.Partition, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tenants (`+tenantColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tenant.ID, tenant.Name, tenant.IsDefault, string(headers), tenant.RecordCount,
		tenant.Partition, formatTime(tenant.CreatedAt), formatTime(tenant.UpdatedAt))
	if err != nil {
		if isSQLiteUniqueError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create tenant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create tenant: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, err := scanSQLiteTenant(s.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) GetDefaultTenant(ctx context.Context) (*models.Tenant, error) {
	t, err := scanSQLiteTenant(s.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE is_default = 1 LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get default tenant: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY is_default DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	tenants := []*models.Tenant{}
	for rows.Next() {
		t, err := scanSQLiteTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *SQLiteStore) UpdateTenantRecordCount(ctx context.Context, id uuid.UUID, count int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tenants SET record_count = ?, updated_at = ? WHERE id = ?`,
		count, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update tenant record count: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tenant: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var partition string
	err = tx.QueryRowContext(ctx, `SELECT partition_name FROM tenants WHERE id = ?`, id).Scan(&partition)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup tenant: %w", err)
	}

	if partition != models.BuiltInPartition {
		tbl, err := sqliteTable(partition)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+tbl); err != nil {
			return fmt.Errorf("drop partition %s: %w", partition, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tenant: %w", err)
	}
	return nil
}

// --- Sales ---

func scanSQLiteSale(row scanner) (*models.Sale, error) {
	var (
		sale             models.Sale
		extra            string
		created, updated string
	)
	if err := row.Scan(&sale.ID, &sale.SaleID, &sale.Branch, &sale.City, &sale.CustomerType,
		&sale.Gender, &sale.ProductName, &sale.ProductCategory, &sale.UnitPrice, &sale.Quantity,
		&sale.Tax, &sale.TotalPrice, &sale.RewardPoints, &extra, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(extra), &sale.Extra); err != nil {
		return nil, fmt.Errorf("decode extra: %w", err)
	}
	var err error
	if sale.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if sale.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &sale, nil
}

func sqliteSaleValues(sale *models.Sale) ([]any, error) {
	extra, err := json.Marshal(sale.Extra)
	if err != nil {
		return nil, fmt.Errorf("encode extra: %w", err)
	}
	return []any{
		sale.ID, sale.SaleID, sale.Branch, sale.City, sale.CustomerType, sale.Gender,
		sale.ProductName, sale.ProductCategory, sale.UnitPrice, sale.Quantity, sale.Tax,
		sale.TotalPrice, sale.RewardPoints, string(extra), formatTime(sale.CreatedAt), formatTime(sale.UpdatedAt),
	}, nil
}

func sqliteInsertSQL(tbl string) string {
	ph := strings.TrimRight(strings.Repeat("?, ", len(saleColumns)), ", ")
	return `INSERT INTO ` + tbl + ` (` + saleColumnList + `) VALUES (` + ph + `)`
}

func (s *SQLiteStore) MaxSaleID(ctx context.Context, partition string) (int64, error) {
	tbl, err := sqliteTable(partition)
	if err != nil {
		return 0, err
	}
	var maxID int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sale_id), 0) FROM `+tbl).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("max sale id: %w", err)
	}
	return maxID, nil
}

// InsertSales writes the batch in one transaction; any collision rolls the
// whole batch back.
func (s *SQLiteStore) InsertSales(ctx context.Context, partition string, sales []*models.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	tbl, err := sqliteTable(partition)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert sales: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteInsertSQL(tbl))
	if err != nil {
		return fmt.Errorf("prepare insert sales: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, sale := range sales {
		prepareSale(sale, now)
		values, err := sqliteSaleValues(sale)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			if isSQLiteUniqueError(err) {
				return ErrDuplicateKey
			}
			return fmt.Errorf("insert sales: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert sales: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertSale(ctx context.Context, partition string, sale *models.Sale) error {
	tbl, err := sqliteTable(partition)
	if err != nil {
		return err
	}
	prepareSale(sale, time.Now().UTC())
	values, err := sqliteSaleValues(sale)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqliteInsertSQL(tbl), values...); err != nil {
		if isSQLiteUniqueError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSale(ctx context.Context, partition string, id uuid.UUID) (*models.Sale, error) {
	tbl, err := sqliteTable(partition)
	if err != nil {
		return nil, err
	}
	sale, err := scanSQLiteSale(s.db.QueryRowContext(ctx,
		`SELECT `+saleColumnList+` FROM `+tbl+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return sale, nil
}

func (s *SQLiteStore) UpdateSale(ctx context.Context, partition string, sale *models.Sale) error {
	tbl, err := sqliteTable(partition)
	if err != nil {
		return err
	}
	sale.UpdatedAt = time.Now().UTC()
	extra, err := json.Marshal(sale.Extra)
	if err != nil {
		return fmt.Errorf("encode extra: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE `+tbl+` SET sale_id = ?, branch = ?, city = ?, customer_type = ?, gender = ?,
		   product_name = ?, product_category = ?, unit_price = ?, quantity = ?, tax = ?,
		   total_price = ?, reward_points = ?, extra = ?, updated_at = ?
		 WHERE id = ?`,
		sale.SaleID, sale.Branch, sale.City, sale.CustomerType, sale.Gender,
		sale.ProductName, sale.ProductCategory, sale.UnitPrice, sale.Quantity, sale.Tax,
		sale.TotalPrice, sale.RewardPoints, string(extra), formatTime(sale.UpdatedAt), sale.ID)
	if err != nil {
		if isSQLiteUniqueError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update sale: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) DeleteSale(ctx context.Context, partition string, id uuid.UUID) error {
	tbl, err := sqliteTable(partition)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+tbl+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) ListSales(ctx context.Context, partition string, query SaleQuery) ([]*models.Sale, int, error) {
	tbl, err := sqliteTable(partition)
	if err != nil {
		return nil, 0, err
	}
	query = query.Normalize()
	where, args := filterConditions(query.SaleFilter, sqlitePlaceholder)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+tbl+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	args = append(args, query.Limit, query.Offset())
	sales, err := s.querySales(ctx,
		`SELECT `+saleColumnList+` FROM `+tbl+where+` ORDER BY sale_id ASC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	return sales, total, nil
}

func (s *SQLiteStore) ScanSales(ctx context.Context, partition string, filter models.SaleFilter) ([]*models.Sale, error) {
	tbl, err := sqliteTable(partition)
	if err != nil {
		return nil, err
	}
	where, args := filterConditions(filter, sqlitePlaceholder)
	sales, err := s.querySales(ctx, `SELECT `+saleColumnList+` FROM `+tbl+where+` ORDER BY sale_id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("scan sales: %w", err)
	}
	return sales, nil
}

func (s *SQLiteStore) querySales(ctx context.Context, query string, args ...any) ([]*models.Sale, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := []*models.Sale{}
	for rows.Next() {
		sale, err := scanSQLiteSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (s *SQLiteStore) CountSales(ctx context.Context, partition string) (int, error) {
	tbl, err := sqliteTable(partition)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+tbl).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sales: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) TotalRevenue(ctx context.Context, partition string) (float64, error) {
	tbl, err := sqliteTable(partition)
	if err != nil {
		return 0, err
	}
	var total float64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(total_price), 0.0) FROM `+tbl).Scan(&total); err != nil {
		return 0, fmt.Errorf("total revenue: %w", err)
	}
	return total, nil
}

func (s *SQLiteStore) GroupSales(ctx context.Context, partition string, dim models.Dimension) ([]models.GroupStat, error) {
	tbl, err := sqliteTable(partition)
	if err != nil {
		return nil, err
	}
	col, err := groupColumn(dim)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %[1]s, COUNT(*), COALESCE(SUM(total_price), 0.0) FROM %[2]s GROUP BY %[1]s`, col, tbl))
	if err != nil {
		return nil, fmt.Errorf("group sales by %s: %w", dim, err)
	}
	defer rows.Close()

	groups := []models.GroupStat{}
	for rows.Next() {
		var g models.GroupStat
		if err := rows.Scan(&g.Key, &g.Count, &g.Revenue); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *SQLiteStore) PurgeSales(ctx context.Context, partition string) error {
	tbl, err := sqliteTable(partition)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+tbl); err != nil {
		return fmt.Errorf("purge sales: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isSQLiteUniqueError reports UNIQUE and PRIMARY KEY constraint failures.
func isSQLiteUniqueError(err error) bool {
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
