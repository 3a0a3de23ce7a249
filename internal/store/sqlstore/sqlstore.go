// Package sqlstore is the SQLite-backed store implementation. Merges are
// explicit read-modify-write transactions scoped to one key: the prior row is
// read inside the transaction, folded with the domain combinator, and written
// back as one unit, so a failed write never leaves a cell partially merged.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/radiowatch/coverage-map/internal/domain"
)

// Store implements store.Store on a SQLite file database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS samples (
	cell      TEXT PRIMARY KEY,
	time      INTEGER NOT NULL,
	rssi      REAL,
	snr       REAL,
	observed  INTEGER NOT NULL DEFAULT 0,
	repeaters TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS tiles (
	cell          TEXT PRIMARY KEY,
	time          INTEGER NOT NULL,
	last_observed INTEGER,
	last_heard    INTEGER,
	observed      INTEGER NOT NULL DEFAULT 0,
	heard         INTEGER NOT NULL DEFAULT 0,
	lost          INTEGER NOT NULL DEFAULT 0,
	rssi          REAL,
	snr           REAL,
	repeaters     TEXT NOT NULL DEFAULT '[]',
	entries       TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS repeaters (
	id        TEXT NOT NULL,
	cell      TEXT NOT NULL,
	time      INTEGER NOT NULL,
	name      TEXT NOT NULL DEFAULT '',
	elevation REAL,
	PRIMARY KEY (id, cell)
);
CREATE TABLE IF NOT EXISTS senders (
	cell TEXT NOT NULL,
	name TEXT NOT NULL,
	day  INTEGER NOT NULL,
	PRIMARY KEY (cell, name, day)
);
CREATE TABLE IF NOT EXISTS rx_samples (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	cell     TEXT NOT NULL,
	time     INTEGER NOT NULL,
	rssi     REAL,
	snr      REAL,
	repeater TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS rx_samples_cell ON rx_samples(cell);
`

// Open opens (creating if needed) the database at path and bootstraps the
// schema. SQLite is limited to a single connection: the driver serializes
// writers anyway, and one connection avoids SQLITE_BUSY churn.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &Store{db: db}, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStorageFailure, op, err)
}

// UpsertSample reads the prior row inside a transaction, folds the incoming
// sample with domain.MergeSamples, and writes the merged row back.
func (s *Store) UpsertSample(ctx context.Context, incoming domain.Sample) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin upsert sample", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var (
		existing *domain.Sample
		row      = tx.QueryRowContext(ctx,
			`SELECT time, rssi, snr, observed, repeaters FROM samples WHERE cell = ?`, incoming.Cell)
		t         int64
		rssi, snr sql.NullFloat64
		observed  bool
		repeaters string
	)
	switch err := row.Scan(&t, &rssi, &snr, &observed, &repeaters); err {
	case nil:
		prior := domain.Sample{
			Cell:      incoming.Cell,
			Time:      time.Unix(0, t).UTC(),
			RSSI:      nullableFloat(rssi),
			SNR:       nullableFloat(snr),
			Observed:  observed,
			Repeaters: decodeStrings(repeaters),
		}
		existing = &prior
	case sql.ErrNoRows:
	default:
		return storageErr("read prior sample", err)
	}

	merged := domain.MergeSamples(existing, incoming)
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO samples (cell, time, rssi, snr, observed, repeaters)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		merged.Cell, merged.Time.UnixNano(), floatArg(merged.RSSI), floatArg(merged.SNR),
		merged.Observed, encodeStrings(merged.Repeaters))
	if err != nil {
		return storageErr("write merged sample", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit upsert sample", err)
	}
	return nil
}

func (s *Store) SamplesByPrefix(ctx context.Context, prefix string) ([]domain.Sample, error) {
	// Geocell keys never contain LIKE metacharacters, so prefix||'%' is safe.
	rows, err := s.db.QueryContext(ctx,
		`SELECT cell, time, rssi, snr, observed, repeaters FROM samples
		 WHERE cell LIKE ? || '%' ORDER BY cell`, prefix)
	if err != nil {
		return nil, storageErr("query samples", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Sample
	for rows.Next() {
		var (
			sample    domain.Sample
			t         int64
			rssi, snr sql.NullFloat64
			repeaters string
		)
		if err := rows.Scan(&sample.Cell, &t, &rssi, &snr, &sample.Observed, &repeaters); err != nil {
			return nil, storageErr("scan sample", err)
		}
		sample.Time = time.Unix(0, t).UTC()
		sample.RSSI = nullableFloat(rssi)
		sample.SNR = nullableFloat(snr)
		sample.Repeaters = decodeStrings(repeaters)
		out = append(out, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate samples", err)
	}
	return out, nil
}

func (s *Store) ListSamples(ctx context.Context) ([]domain.Sample, error) {
	return s.SamplesByPrefix(ctx, "")
}

func (s *Store) PutTile(ctx context.Context, tile domain.CoverageTile) error {
	entries, err := json.Marshal(tile.Entries)
	if err != nil {
		return storageErr("encode tile entries", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tiles
		 (cell, time, last_observed, last_heard, observed, heard, lost, rssi, snr, repeaters, entries)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tile.Cell, tile.Time.UnixNano(), timeArg(tile.LastObserved), timeArg(tile.LastHeard),
		tile.Observed, tile.Heard, tile.Lost, floatArg(tile.RSSI), floatArg(tile.SNR),
		encodeStrings(tile.Repeaters), string(entries))
	if err != nil {
		return storageErr("write tile", err)
	}
	return nil
}

func (s *Store) ListTiles(ctx context.Context) ([]domain.CoverageTile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cell, time, last_observed, last_heard, observed, heard, lost, rssi, snr, repeaters, entries
		 FROM tiles ORDER BY cell`)
	if err != nil {
		return nil, storageErr("query tiles", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.CoverageTile
	for rows.Next() {
		var (
			tile               domain.CoverageTile
			t                  int64
			lastObs, lastHeard sql.NullInt64
			rssi, snr          sql.NullFloat64
			repeaters, entries string
		)
		if err := rows.Scan(&tile.Cell, &t, &lastObs, &lastHeard, &tile.Observed, &tile.Heard,
			&tile.Lost, &rssi, &snr, &repeaters, &entries); err != nil {
			return nil, storageErr("scan tile", err)
		}
		tile.Time = time.Unix(0, t).UTC()
		tile.LastObserved = nullableTime(lastObs)
		tile.LastHeard = nullableTime(lastHeard)
		tile.RSSI = nullableFloat(rssi)
		tile.SNR = nullableFloat(snr)
		tile.Repeaters = decodeStrings(repeaters)
		if err := json.Unmarshal([]byte(entries), &tile.Entries); err != nil {
			return nil, storageErr("decode tile entries", err)
		}
		out = append(out, tile)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate tiles", err)
	}
	return out, nil
}

func (s *Store) GetRepeater(ctx context.Context, id, cell string) (domain.Repeater, bool, error) {
	var (
		r    = domain.Repeater{ID: id, Cell: cell}
		t    int64
		elev sql.NullFloat64
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT time, name, elevation FROM repeaters WHERE id = ? AND cell = ?`, id, cell)
	switch err := row.Scan(&t, &r.Name, &elev); err {
	case nil:
		r.Time = time.Unix(0, t).UTC()
		r.Elevation = nullableFloat(elev)
		return r, true, nil
	case sql.ErrNoRows:
		return domain.Repeater{}, false, nil
	default:
		return domain.Repeater{}, false, storageErr("read repeater", err)
	}
}

func (s *Store) PutRepeater(ctx context.Context, r domain.Repeater) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO repeaters (id, cell, time, name, elevation)
		 VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Cell, r.Time.UnixNano(), r.Name, floatArg(r.Elevation))
	if err != nil {
		return storageErr("write repeater", err)
	}
	return nil
}

func (s *Store) ListRepeaters(ctx context.Context) ([]domain.Repeater, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cell, time, name, elevation FROM repeaters ORDER BY id, cell`)
	if err != nil {
		return nil, storageErr("query repeaters", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Repeater
	for rows.Next() {
		var (
			r    domain.Repeater
			t    int64
			elev sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Cell, &t, &r.Name, &elev); err != nil {
			return nil, storageErr("scan repeater", err)
		}
		r.Time = time.Unix(0, t).UTC()
		r.Elevation = nullableFloat(elev)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate repeaters", err)
	}
	return out, nil
}

func (s *Store) RecordSender(ctx context.Context, rec domain.SenderRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO senders (cell, name, day) VALUES (?, ?, ?)
		 ON CONFLICT (cell, name, day) DO NOTHING`,
		rec.Cell, rec.Name, rec.Day.UnixNano())
	if err != nil {
		return storageErr("record sender", err)
	}
	return nil
}

func (s *Store) RankSendersSince(ctx context.Context, cutoff time.Time) ([]domain.SenderRank, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, COUNT(DISTINCT cell) AS cells FROM senders
		 WHERE day >= ? GROUP BY name ORDER BY cells DESC, name ASC`, cutoff.UnixNano())
	if err != nil {
		return nil, storageErr("query senders", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.SenderRank
	for rows.Next() {
		var r domain.SenderRank
		if err := rows.Scan(&r.Name, &r.Cells); err != nil {
			return nil, storageErr("scan sender rank", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate sender ranks", err)
	}
	return out, nil
}

func (s *Store) AppendRxTuple(ctx context.Context, cell string, t time.Time, tuple domain.RxTuple) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rx_samples (cell, time, rssi, snr, repeater) VALUES (?, ?, ?, ?, ?)`,
		cell, t.UnixNano(), floatArg(tuple.RSSI), floatArg(tuple.SNR), tuple.Repeater)
	if err != nil {
		return storageErr("append rx tuple", err)
	}
	return nil
}

// RxRollup aggregates in SQL: AVG skips NULL readings, COUNT(*) does not, and
// the CASE drops direct packets from the distinct-repeater count.
func (s *Store) RxRollup(ctx context.Context) ([]domain.RxRollup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cell, MAX(time), COUNT(*), AVG(rssi), AVG(snr),
		        COUNT(DISTINCT CASE WHEN repeater != '' THEN repeater END)
		 FROM rx_samples GROUP BY cell ORDER BY cell`)
	if err != nil {
		return nil, storageErr("query rx rollup", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.RxRollup
	for rows.Next() {
		var (
			r         domain.RxRollup
			t         int64
			rssi, snr sql.NullFloat64
		)
		if err := rows.Scan(&r.Cell, &t, &r.Count, &rssi, &snr, &r.Repeaters); err != nil {
			return nil, storageErr("scan rx rollup", err)
		}
		r.Time = time.Unix(0, t).UTC().Unix()
		r.MeanRSSI = nullableFloat(rssi)
		r.MeanSNR = nullableFloat(snr)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate rx rollup", err)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- column helpers ---

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullableTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

func floatArg(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func encodeStrings(in []string) string {
	if len(in) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(in) //nolint:errcheck // []string cannot fail
	return string(data)
}

func decodeStrings(in string) []string {
	if in == "" || in == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		return nil
	}
	return out
}
