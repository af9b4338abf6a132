package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"pickup-address-matcher/internal/constants"
	"pickup-address-matcher/internal/models"
	"pickup-address-matcher/pkg/config"
	errs "pickup-address-matcher/pkg/errors"
)

type DB struct {
	conn         *sql.DB
	stmts        map[string]*sql.Stmt
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// ParseDSN validates a MySQL DSN and forces parseTime so DATETIME columns
// scan into time.Time.
func ParseDSN(dsn string) (*mysql.Config, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errs.NewValidation("database.ParseDSN", "invalid DATABASE_URL", err)
	}
	mc.ParseTime = true
	if mc.Loc == nil {
		mc.Loc = time.UTC
	}
	return mc, nil
}

// NewWithConfig opens the pool with limits and timeouts from cfg, pings it and
// prepares the hot statements. EnsureSchema must run before the first query
// on a fresh database.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*DB, error) {
	mc, err := ParseDSN(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, errs.NewDB("database.NewWithConfig", "failed to build connector", err)
	}
	conn := sql.OpenDB(connector)

	conn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	conn.SetMaxIdleConns(cfg.DBMaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetime) * time.Minute)
	conn.SetConnMaxIdleTime(constants.DBConnMaxIdleTime)

	rt := cfg.DBReadTimeout
	if rt == 0 {
		rt = constants.DBReadTimeoutDefault
	}
	wt := cfg.DBWriteTimeout
	if wt == 0 {
		wt = constants.DBWriteTimeoutDefault
	}
	db := &DB{
		conn:         conn,
		stmts:        make(map[string]*sql.Stmt),
		readTimeout:  rt,
		writeTimeout: wt,
	}

	pctx, cancel := db.withReadTimeout(ctx)
	defer cancel()
	if err := conn.PingContext(pctx); err != nil {
		conn.Close()
		return nil, errs.NewDB("database.NewWithConfig", "ping failed", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := db.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pickup_locations (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		original VARCHAR(512) NOT NULL,
		normalized VARCHAR(512) NOT NULL,
		city VARCHAR(128) NOT NULL,
		country VARCHAR(64) NOT NULL,
		lat DOUBLE NULL,
		lng DOUBLE NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_pickup_locations_city (city)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS pickup_location_aliases (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		location_id BIGINT NOT NULL,
		original VARCHAR(512) NOT NULL,
		normalized VARCHAR(512) NOT NULL,
		score DOUBLE NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_pickup_location_aliases_location (location_id),
		CONSTRAINT fk_alias_location FOREIGN KEY (location_id) REFERENCES pickup_locations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the tables when missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	ctx, cancel := db.withWriteTimeout(ctx)
	defer cancel()
	for _, ddl := range schema {
		if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
			return errs.NewDB("database.EnsureSchema", "failed to create table", err)
		}
	}
	return nil
}

const locationColumns = `id, original, normalized, city, country, lat, lng, created_at`

func (db *DB) prepareStatements(ctx context.Context) error {
	statements := map[string]string{
		"insertLocation": `INSERT INTO pickup_locations (original, normalized, city, country, lat, lng, created_at)
                           VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"locationsByCity": `SELECT ` + locationColumns + ` FROM pickup_locations WHERE city = ? ORDER BY id`,
		"insertAlias": `INSERT INTO pickup_location_aliases (location_id, original, normalized, score, created_at)
                        VALUES (?, ?, ?, ?, ?)`,
	}
	for name, query := range statements {
		stmt, err := db.conn.PrepareContext(ctx, query)
		if err != nil {
			return errs.NewDB("database.prepareStatements", fmt.Sprintf("failed to prepare statement %s", name), err)
		}
		db.stmts[name] = stmt
	}
	return nil
}

// Close closes prepared statements and the pool.
func (db *DB) Close() error {
	for _, stmt := range db.stmts {
		stmt.Close()
	}
	return db.conn.Close()
}

// Conn exposes the pool for health checks.
func (db *DB) Conn() *sql.DB { return db.conn }

func (db *DB) withReadTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, db.readTimeout)
}

func (db *DB) withWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, db.writeTimeout)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLocation(row rowScanner) (models.PickupLocation, error) {
	var l models.PickupLocation
	var lat, lng sql.NullFloat64
	if err := row.Scan(&l.ID, &l.Original, &l.Normalized, &l.City, &l.Country, &lat, &lng, &l.CreatedAt); err != nil {
		return l, err
	}
	if lat.Valid && lng.Valid {
		la, ln := lat.Float64, lng.Float64
		l.Latitude, l.Longitude = &la, &ln
	}
	return l, nil
}

func scanLocations(op string, rows *sql.Rows) ([]models.PickupLocation, error) {
	defer rows.Close()
	var out []models.PickupLocation
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, errs.NewDB(op, "failed to scan location row", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDB(op, "row iteration failed", err)
	}
	return out, nil
}

func nullable(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// CreateLocationCtx inserts loc and fills in its ID and CreatedAt.
func (db *DB) CreateLocationCtx(ctx context.Context, loc *models.PickupLocation) error {
	ctx, cancel := db.withWriteTimeout(ctx)
	defer cancel()

	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	res, err := db.stmts["insertLocation"].ExecContext(ctx,
		loc.Original, loc.Normalized, loc.City, loc.Country,
		nullable(loc.Latitude), nullable(loc.Longitude), loc.CreatedAt)
	if err != nil {
		return errs.NewDB("database.CreateLocationCtx", "insert failed", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.NewDB("database.CreateLocationCtx", "no insert id", err)
	}
	loc.ID = id
	return nil
}

func (db *DB) GetLocationByIDCtx(ctx context.Context, id int64) (*models.PickupLocation, error) {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM pickup_locations WHERE id = ?`, id)
	l, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFound("database.GetLocationByIDCtx", "location", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, errs.NewDB("database.GetLocationByIDCtx", "query failed", err)
	}
	return &l, nil
}

func (db *DB) ListLocationsCtx(ctx context.Context, limit, offset int) ([]models.PickupLocation, int, error) {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM pickup_locations`).Scan(&total); err != nil {
		return nil, 0, errs.NewDB("database.ListLocationsCtx", "count failed", err)
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+locationColumns+` FROM pickup_locations ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, errs.NewDB("database.ListLocationsCtx", "query failed", err)
	}
	locs, err := scanLocations("database.ListLocationsCtx", rows)
	return locs, total, err
}

func (db *DB) ListLocationsByCityCtx(ctx context.Context, city string) ([]models.PickupLocation, error) {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	rows, err := db.stmts["locationsByCity"].QueryContext(ctx, city)
	if err != nil {
		return nil, errs.NewDB("database.ListLocationsByCityCtx", "query failed", err)
	}
	return scanLocations("database.ListLocationsByCityCtx", rows)
}

func (db *DB) ListLocationsMissingCoordinatesCtx(ctx context.Context, limit int) ([]models.PickupLocation, error) {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+locationColumns+` FROM pickup_locations WHERE lat IS NULL OR lng IS NULL ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, errs.NewDB("database.ListLocationsMissingCoordinatesCtx", "query failed", err)
	}
	return scanLocations("database.ListLocationsMissingCoordinatesCtx", rows)
}

func (db *DB) UpdateCoordinatesCtx(ctx context.Context, id int64, lat, lng float64) error {
	ctx, cancel := db.withWriteTimeout(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `UPDATE pickup_locations SET lat = ?, lng = ? WHERE id = ?`, lat, lng, id)
	if err != nil {
		return errs.NewDB("database.UpdateCoordinatesCtx", "update failed", err)
	}
	// MySQL reports zero affected rows when values are unchanged, so only
	// treat it as missing after checking the row exists.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var one int
		err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM pickup_locations WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NewNotFound("database.UpdateCoordinatesCtx", "location", strconv.FormatInt(id, 10))
		}
	}
	return nil
}

func (db *DB) AddAliasCtx(ctx context.Context, alias *models.LocationAlias) error {
	ctx, cancel := db.withWriteTimeout(ctx)
	defer cancel()

	if alias.CreatedAt.IsZero() {
		alias.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	res, err := db.stmts["insertAlias"].ExecContext(ctx,
		alias.LocationID, alias.Original, alias.Normalized, alias.Score, alias.CreatedAt)
	if err != nil {
		var me *mysql.MySQLError
		// 1452: foreign key constraint fails
		if errors.As(err, &me) && me.Number == 1452 {
			return errs.NewNotFound("database.AddAliasCtx", "location", strconv.FormatInt(alias.LocationID, 10))
		}
		return errs.NewDB("database.AddAliasCtx", "insert failed", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errs.NewDB("database.AddAliasCtx", "no insert id", err)
	}
	alias.ID = id
	return nil
}

func (db *DB) ListAliasesCtx(ctx context.Context, locationID int64) ([]models.LocationAlias, error) {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, location_id, original, normalized, score, created_at
		 FROM pickup_location_aliases WHERE location_id = ? ORDER BY id`, locationID)
	if err != nil {
		return nil, errs.NewDB("database.ListAliasesCtx", "query failed", err)
	}
	defer rows.Close()

	var out []models.LocationAlias
	for rows.Next() {
		var a models.LocationAlias
		if err := rows.Scan(&a.ID, &a.LocationID, &a.Original, &a.Normalized, &a.Score, &a.CreatedAt); err != nil {
			return nil, errs.NewDB("database.ListAliasesCtx", "failed to scan alias row", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDB("database.ListAliasesCtx", "row iteration failed", err)
	}
	return out, nil
}
