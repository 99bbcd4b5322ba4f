package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq"

	"optihome/models"
)

// PostgresStore persists cleaned properties to PostgreSQL.
type PostgresStore struct {
	db      *sql.DB
	version atomic.Uint64
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	ps.version.Store(1)

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS properties (
			id             SERIAL PRIMARY KEY,
			external_id    VARCHAR(100) UNIQUE NOT NULL,
			kind           VARCHAR(16)  NOT NULL,
			title          TEXT         NOT NULL DEFAULT '',
			location       TEXT         NOT NULL DEFAULT '',
			price          NUMERIC(12,2) NOT NULL DEFAULT 0,
			area           NUMERIC(10,2) NOT NULL DEFAULT 0,
			rooms          INT          NOT NULL DEFAULT 0,
			price_per_area NUMERIC(10,2) NOT NULL DEFAULT 0,
			year_built     INT          NOT NULL DEFAULT 0,
			description    TEXT         NOT NULL DEFAULT '',
			seller         TEXT         NOT NULL DEFAULT '',
			url            TEXT         NOT NULL,
			created_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_properties_kind           ON properties(kind);
		CREATE INDEX IF NOT EXISTS idx_properties_price          ON properties(price);
		CREATE INDEX IF NOT EXISTS idx_properties_rooms          ON properties(rooms);
		CREATE INDEX IF NOT EXISTS idx_properties_price_per_area ON properties(price_per_area);
		CREATE INDEX IF NOT EXISTS idx_properties_year_built     ON properties(year_built);
	`)
	return err
}

// Version returns the dataset version counter. It changes whenever a
// write succeeds, never on reads.
func (ps *PostgresStore) Version() uint64 {
	return ps.version.Load()
}

// Upsert batch-inserts properties, updating existing rows keyed on
// external_id. The dataset version is bumped once per successful call.
func (ps *PostgresStore) Upsert(props []*models.Property) error {
	if len(props) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(props); i += batchSize {
		end := i + batchSize
		if end > len(props) {
			end = len(props)
		}
		if err := ps.upsertBatch(props[i:end]); err != nil {
			return err
		}
	}

	ps.version.Add(1)
	return nil
}

func (ps *PostgresStore) upsertBatch(batch []*models.Property) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*12)

	for idx, p := range batch {
		base := idx * 12
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6,
				base+7, base+8, base+9, base+10, base+11, base+12))
		valueArgs = append(valueArgs,
			p.ExternalID, p.Kind, p.Title, p.Location, p.Price, p.Area,
			p.Rooms, p.PricePerArea, p.YearBuilt, p.Description, p.Seller, p.URL)
	}

	query := fmt.Sprintf(`
		INSERT INTO properties
			(external_id, kind, title, location, price, area,
			 rooms, price_per_area, year_built, description, seller, url)
		VALUES %s
		ON CONFLICT (external_id) DO UPDATE SET
			kind           = EXCLUDED.kind,
			title          = EXCLUDED.title,
			location       = EXCLUDED.location,
			price          = EXCLUDED.price,
			area           = EXCLUDED.area,
			rooms          = EXCLUDED.rooms,
			price_per_area = EXCLUDED.price_per_area,
			year_built     = CASE WHEN EXCLUDED.year_built > 0 THEN EXCLUDED.year_built ELSE properties.year_built END,
			description    = EXCLUDED.description,
			seller         = EXCLUDED.seller,
			url            = EXCLUDED.url,
			updated_at     = NOW()
	`, strings.Join(valueStrings, ","))

	_, err := ps.db.Exec(query, valueArgs...)
	return err
}

const selectColumns = `
	id, external_id, kind, title, location, price, area,
	rooms, price_per_area, year_built, description, seller, url,
	created_at, updated_at`

// FetchAll retrieves every stored property, ordered by id. The statistics
// engine consumes this snapshot together with Version().
func (ps *PostgresStore) FetchAll() ([]*models.Property, error) {
	rows, err := ps.db.Query(`SELECT` + selectColumns + ` FROM properties ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()
	return scanProperties(rows)
}

// FetchFiltered retrieves properties matching the filter with pagination,
// plus the total match count before offset/limit.
func (ps *PostgresStore) FetchFiltered(f *models.Filter, offset, limit int) ([]*models.Property, int, error) {
	where, args := buildWhere(f)

	var total int
	countQuery := `SELECT COUNT(*) FROM properties` + where
	if err := ps.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres: count filtered: %w", err)
	}

	query := fmt.Sprintf(`SELECT%s FROM properties%s ORDER BY id OFFSET $%d LIMIT $%d`,
		selectColumns, where, len(args)+1, len(args)+2)
	args = append(args, offset, limit)

	rows, err := ps.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: fetch filtered: %w", err)
	}
	defer rows.Close()

	props, err := scanProperties(rows)
	if err != nil {
		return nil, 0, err
	}
	return props, total, nil
}

// buildWhere renders the filter into a WHERE clause with positional args.
func buildWhere(f *models.Filter) (string, []interface{}) {
	if f.IsZero() {
		return "", nil
	}

	var clauses []string
	var args []interface{}

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Kind != "" {
		add("kind = $%d", f.Kind)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if f.MinArea != nil {
		add("area >= $%d", *f.MinArea)
	}
	if f.MaxArea != nil {
		add("area <= $%d", *f.MaxArea)
	}
	if f.MinRooms != nil {
		add("rooms >= $%d", *f.MinRooms)
	}
	if f.MaxRooms != nil {
		add("rooms <= $%d", *f.MaxRooms)
	}
	if f.MinYear != nil {
		add("year_built >= $%d", *f.MinYear)
	}
	if f.MaxYear != nil {
		add("year_built <= $%d", *f.MaxYear)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanProperties(rows *sql.Rows) ([]*models.Property, error) {
	var props []*models.Property
	for rows.Next() {
		p := &models.Property{}
		if err := rows.Scan(
			&p.ID, &p.ExternalID, &p.Kind, &p.Title, &p.Location, &p.Price, &p.Area,
			&p.Rooms, &p.PricePerArea, &p.YearBuilt, &p.Description, &p.Seller, &p.URL,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
