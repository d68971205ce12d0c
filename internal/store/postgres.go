package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/salesboard/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5. Each uploaded
// tenant gets its own table shaped like the built-in sales table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Tenants ---

const tenantColumns = `id, name, is_default, csv_headers, record_count, partition_name, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(row scanner) (*models.Tenant, error) {
	var t models.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.IsDefault, &t.CSVHeaders, &t.RecordCount,
		&t.Partition, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create tenant: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if tenant.Partition != models.BuiltInPartition {
		ddl := fmt.Sprintf(`CREATE TABLE %s (LIKE %s INCLUDING ALL)`,
			pgx.Identifier{tenant.Partition}.Sanitize(),
			pgx.Identifier{models.BuiltInPartition}.Sanitize())
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create partition %s: %w", tenant.Partition, err)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO tenants (`+tenantColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tenant.ID, tenant.Name, tenant.IsDefault, tenant.CSVHeaders, tenant.RecordCount,
		tenant.Partition, tenant.CreatedAt, tenant.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create tenant: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create tenant: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) GetDefaultTenant(ctx context.Context) (*models.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE is_default LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get default tenant: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY is_default DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	tenants := []*models.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *PostgresStore) UpdateTenantRecordCount(ctx context.Context, id uuid.UUID, count int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET record_count = $1, updated_at = NOW() WHERE id = $2`, count, id)
	if err != nil {
		return fmt.Errorf("update tenant record count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete tenant: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var partition string
	err = tx.QueryRow(ctx,
		`SELECT partition_name FROM tenants WHERE id = $1 FOR UPDATE`, id).Scan(&partition)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock tenant: %w", err)
	}

	if partition != models.BuiltInPartition {
		if err := checkPartition(partition); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS `+pgx.Identifier{partition}.Sanitize()); err != nil {
			return fmt.Errorf("drop partition %s: %w", partition, err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete tenant: %w", err)
	}
	return nil
}

// --- Sales ---

// table returns the sanitized identifier for a partition.
func table(partition string) (string, error) {
	if err := checkPartition(partition); err != nil {
		return "", err
	}
	return pgx.Identifier{partition}.Sanitize(), nil
}

func pgPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

func scanSale(row scanner) (*models.Sale, error) {
	var sale models.Sale
	var extra []byte
	if err := row.Scan(&sale.ID, &sale.SaleID, &sale.Branch, &sale.City, &sale.CustomerType,
		&sale.Gender, &sale.ProductName, &sale.ProductCategory, &sale.UnitPrice, &sale.Quantity,
		&sale.Tax, &sale.TotalPrice, &sale.RewardPoints, &extra, &sale.CreatedAt, &sale.UpdatedAt); err != nil {
		return nil, err
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &sale.Extra); err != nil {
			return nil, fmt.Errorf("decode extra: %w", err)
		}
	}
	return &sale, nil
}

func saleValues(sale *models.Sale) ([]any, error) {
	extra, err := json.Marshal(sale.Extra)
	if err != nil {
		return nil, fmt.Errorf("encode extra: %w", err)
	}
	return []any{
		sale.ID, sale.SaleID, sale.Branch, sale.City, sale.CustomerType, sale.Gender,
		sale.ProductName, sale.ProductCategory, sale.UnitPrice, sale.Quantity, sale.Tax,
		sale.TotalPrice, sale.RewardPoints, extra, sale.CreatedAt, sale.UpdatedAt,
	}, nil
}

func (s *PostgresStore) MaxSaleID(ctx context.Context, partition string) (int64, error) {
	tbl, err := table(partition)
	if err != nil {
		return 0, err
	}
	var maxID int64
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(sale_id), 0) FROM `+tbl).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("max sale id: %w", err)
	}
	return maxID, nil
}

// InsertSales bulk-loads the batch with COPY, which is all-or-nothing.
func (s *PostgresStore) InsertSales(ctx context.Context, partition string, sales []*models.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	if err := checkPartition(partition); err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, sale := range sales {
		prepareSale(sale, now)
	}

	_, err := s.pool.CopyFrom(ctx, pgx.Identifier{partition}, saleColumns,
		pgx.CopyFromSlice(len(sales), func(i int) ([]any, error) {
			return saleValues(sales[i])
		}))
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert sales: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertSale(ctx context.Context, partition string, sale *models.Sale) error {
	tbl, err := table(partition)
	if err != nil {
		return err
	}
	prepareSale(sale, time.Now().UTC())
	values, err := saleValues(sale)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+tbl+` (`+saleColumnList+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		values...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSale(ctx context.Context, partition string, id uuid.UUID) (*models.Sale, error) {
	tbl, err := table(partition)
	if err != nil {
		return nil, err
	}
	sale, err := scanSale(s.pool.QueryRow(ctx,
		`SELECT `+saleColumnList+` FROM `+tbl+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return sale, nil
}

func (s *PostgresStore) UpdateSale(ctx context.Context, partition string, sale *models.Sale) error {
	tbl, err := table(partition)
	if err != nil {
		return err
	}
	sale.UpdatedAt = time.Now().UTC()
	extra, err := json.Marshal(sale.Extra)
	if err != nil {
		return fmt.Errorf("encode extra: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+tbl+` SET sale_id = $1, branch = $2, city = $3, customer_type = $4, gender = $5,
		   product_name = $6, product_category = $7, unit_price = $8, quantity = $9, tax = $10,
		   total_price = $11, reward_points = $12, extra = $13, updated_at = $14
		 WHERE id = $15`,
		sale.SaleID, sale.Branch, sale.City, sale.CustomerType, sale.Gender,
		sale.ProductName, sale.ProductCategory, sale.UnitPrice, sale.Quantity, sale.Tax,
		sale.TotalPrice, sale.RewardPoints, extra, sale.UpdatedAt, sale.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteSale(ctx context.Context, partition string, id uuid.UUID) error {
	tbl, err := table(partition)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+tbl+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListSales(ctx context.Context, partition string, query SaleQuery) ([]*models.Sale, int, error) {
	tbl, err := table(partition)
	if err != nil {
		return nil, 0, err
	}
	query = query.Normalize()
	where, args := filterConditions(query.SaleFilter, pgPlaceholder)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+tbl+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	n := len(args)
	dataQuery := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY sale_id ASC LIMIT $%d OFFSET $%d`,
		saleColumnList, tbl, where, n+1, n+2)
	args = append(args, query.Limit, query.Offset())

	sales, err := s.querySales(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	return sales, total, nil
}

func (s *PostgresStore) ScanSales(ctx context.Context, partition string, filter models.SaleFilter) ([]*models.Sale, error) {
	tbl, err := table(partition)
	if err != nil {
		return nil, err
	}
	where, args := filterConditions(filter, pgPlaceholder)
	sales, err := s.querySales(ctx, `SELECT `+saleColumnList+` FROM `+tbl+where+` ORDER BY sale_id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("scan sales: %w", err)
	}
	return sales, nil
}

func (s *PostgresStore) querySales(ctx context.Context, query string, args ...any) ([]*models.Sale, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := []*models.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (s *PostgresStore) CountSales(ctx context.Context, partition string) (int, error) {
	tbl, err := table(partition)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+tbl).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sales: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) TotalRevenue(ctx context.Context, partition string) (float64, error) {
	tbl, err := table(partition)
	if err != nil {
		return 0, err
	}
	var total float64
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_price), 0) FROM `+tbl).Scan(&total); err != nil {
		return 0, fmt.Errorf("total revenue: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) GroupSales(ctx context.Context, partition string, dim models.Dimension) ([]models.GroupStat, error) {
	tbl, err := table(partition)
	if err != nil {
		return nil, err
	}
	col, err := groupColumn(dim)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT %[1]s, COUNT(*), COALESCE(SUM(total_price), 0) FROM %[2]s GROUP BY %[1]s`, col, tbl))
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

func (s *PostgresStore) PurgeSales(ctx context.Context, partition string) error {
	tbl, err := table(partition)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM `+tbl); err != nil {
		return fmt.Errorf("purge sales: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
