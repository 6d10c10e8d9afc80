package oem

// Dialect holds the SQL a backend needs. Placeholders differ between drivers,
// so each dialect carries complete statements.
type Dialect struct {
	Name       string
	DriverName string
	// MaxOpenConns caps the pool; zero leaves the driver default.
	MaxOpenConns int
	Schema       []string
	CountMake    string // args: make
	Insert       string // args: make, code, title, description, source
	Lookup       string // args: make, code
}

const (
	storedMake = "UPPER(TRIM(make))"
	storedCode = "REPLACE(REPLACE(UPPER(TRIM(code)), ' ', ''), '-', '')"
)

// Postgres uses the pgx stdlib driver.
var Postgres = Dialect{
	Name:       "postgres",
	DriverName: "pgx",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS oem_fault_codes (
			id          BIGSERIAL PRIMARY KEY,
			make        TEXT NOT NULL,
			code        TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT,
			source      TEXT,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (make, code)
		)`,
		`CREATE INDEX IF NOT EXISTS oem_fault_codes_norm_idx ON oem_fault_codes (` + storedMake + `, ` + storedCode + `)`,
	},
	CountMake: `SELECT COUNT(*) FROM oem_fault_codes WHERE ` + storedMake + ` = $1`,
	Insert: `INSERT INTO oem_fault_codes (make, code, title, description, source)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		ON CONFLICT (make, code) DO NOTHING`,
	Lookup: `SELECT make, code, title, COALESCE(description, ''), COALESCE(source, '')
		FROM oem_fault_codes
		WHERE ` + storedMake + ` = $1 AND ` + storedCode + ` = $2
		LIMIT 1`,
}

// SQLite uses modernc.org/sqlite. SQLite serializes writers, so the pool is
// a single connection; this also keeps an in-memory database shared.
var SQLite = Dialect{
	Name:         "sqlite",
	DriverName:   "sqlite",
	MaxOpenConns: 1,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS oem_fault_codes (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			make        TEXT NOT NULL,
			code        TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT,
			source      TEXT,
			created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (make, code)
		)`,
	},
	CountMake: `SELECT COUNT(*) FROM oem_fault_codes WHERE ` + storedMake + ` = ?`,
	Insert: `INSERT INTO oem_fault_codes (make, code, title, description, source)
		VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''))
		ON CONFLICT (make, code) DO NOTHING`,
	Lookup: `SELECT make, code, title, COALESCE(description, ''), COALESCE(source, '')
		FROM oem_fault_codes
		WHERE ` + storedMake + ` = ? AND ` + storedCode + ` = ?
		LIMIT 1`,
}
