package catalog

import (
	"context"
	"database/sql"
	"strings"

	bankerrors "exambank/internal/errors"
	"exambank/internal/storage"
)

// Stems is the stem repository. Stems carry a caller-supplied short code as
// their key (e.g. "K1").
type Stems struct {
	db *storage.DB
}

// NewStems creates a stem repository over the given store.
func NewStems(db *storage.DB) *Stems {
	return &Stems{db: db}
}

// Add inserts a stem. Re-adding an existing code is a constraint error;
// batch ingestion is the duplicate-tolerant path.
func (r *Stems) Add(ctx context.Context, s Stem) (string, error) {
	if strings.TrimSpace(s.StemID) == "" {
		return "", bankerrors.Newf(bankerrors.Validation, "stem_id is required")
	}
	if strings.TrimSpace(s.Statement) == "" {
		return "", bankerrors.Newf(bankerrors.Validation, "statement is required")
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO stems (stem_id, statement) VALUES (?, ?)`, s.StemID, s.Statement)
	if err != nil {
		return "", storage.Classify(err, "insert stem")
	}
	return s.StemID, nil
}

// Get returns the stem with the given code.
func (r *Stems) Get(ctx context.Context, stemID string) (Stem, bool, error) {
	row, err := r.db.QueryRow(ctx,
		`SELECT stem_id, statement FROM stems WHERE stem_id = ?`, stemID)
	if err != nil {
		return Stem{}, false, err
	}

	var s Stem
	if err := row.Scan(&s.StemID, &s.Statement); err != nil {
		if err == sql.ErrNoRows {
			return Stem{}, false, nil
		}
		return Stem{}, false, storage.Classify(err, "get stem")
	}
	return s, true, nil
}

// List returns all stems in code order.
func (r *Stems) List(ctx context.Context) ([]Stem, error) {
	rows, err := r.db.Query(ctx, `SELECT stem_id, statement FROM stems ORDER BY stem_id`)
	if err != nil {
		return nil, storage.Classify(err, "list stems")
	}
	defer rows.Close()

	stems := make([]Stem, 0)
	for rows.Next() {
		var s Stem
		if err := rows.Scan(&s.StemID, &s.Statement); err != nil {
			return nil, storage.Classify(err, "scan stem")
		}
		stems = append(stems, s)
	}
	return stems, storage.Classify(rows.Err(), "list stems")
}

// Update rewrites a stem's statement.
func (r *Stems) Update(ctx context.Context, s Stem) error {
	if strings.TrimSpace(s.StemID) == "" {
		return bankerrors.Newf(bankerrors.Validation, "stem_id is required")
	}
	if strings.TrimSpace(s.Statement) == "" {
		return bankerrors.Newf(bankerrors.Validation, "statement is required")
	}

	res, err := r.db.Exec(ctx,
		`UPDATE stems SET statement = ? WHERE stem_id = ?`, s.Statement, s.StemID)
	if err != nil {
		return storage.Classify(err, "update stem")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Classify(err, "update stem")
	}
	if affected == 0 {
		return bankerrors.Newf(bankerrors.NotFound, "stem %s not found", s.StemID)
	}
	return nil
}

// Delete removes a stem; its kas cascade away.
func (r *Stems) Delete(ctx context.Context, stemID string) error {
	res, err := r.db.Exec(ctx, `DELETE FROM stems WHERE stem_id = ?`, stemID)
	if err != nil {
		return storage.Classify(err, "delete stem")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Classify(err, "delete stem")
	}
	if affected == 0 {
		return bankerrors.Newf(bankerrors.NotFound, "stem %s not found", stemID)
	}
	return nil
}

// Kas is the knowledge/ability repository, keyed by the composite
// (ka_number, stem_id) tuple.
type Kas struct {
	db *storage.DB
}

// NewKas creates a ka repository over the given store.
func NewKas(db *storage.DB) *Kas {
	return &Kas{db: db}
}

// Add inserts a ka. The stem must exist; re-adding the same tuple is a
// constraint error under direct add.
func (r *Kas) Add(ctx context.Context, k Ka) error {
	if strings.TrimSpace(k.KaNumber) == "" {
		return bankerrors.Newf(bankerrors.Validation, "ka_number is required")
	}
	if strings.TrimSpace(k.StemID) == "" {
		return bankerrors.Newf(bankerrors.Validation, "stem_id is required")
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO kas (ka_number, stem_id) VALUES (?, ?)`, k.KaNumber, k.StemID)
	return storage.Classify(err, "insert ka")
}

// Get returns the ka with the given composite key.
func (r *Kas) Get(ctx context.Context, kaNumber, stemID string) (Ka, bool, error) {
	row, err := r.db.QueryRow(ctx,
		`SELECT ka_number, stem_id FROM kas WHERE ka_number = ? AND stem_id = ?`, kaNumber, stemID)
	if err != nil {
		return Ka{}, false, err
	}

	var k Ka
	if err := row.Scan(&k.KaNumber, &k.StemID); err != nil {
		if err == sql.ErrNoRows {
			return Ka{}, false, nil
		}
		return Ka{}, false, storage.Classify(err, "get ka")
	}
	return k, true, nil
}

// ListByStem returns the kas under one stem.
func (r *Kas) ListByStem(ctx context.Context, stemID string) ([]Ka, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ka_number, stem_id FROM kas WHERE stem_id = ? ORDER BY ka_number`, stemID)
	if err != nil {
		return nil, storage.Classify(err, "list kas")
	}
	defer rows.Close()

	kas := make([]Ka, 0)
	for rows.Next() {
		var k Ka
		if err := rows.Scan(&k.KaNumber, &k.StemID); err != nil {
			return nil, storage.Classify(err, "scan ka")
		}
		kas = append(kas, k)
	}
	return kas, storage.Classify(rows.Err(), "list kas")
}

// Delete removes a ka by its composite key.
func (r *Kas) Delete(ctx context.Context, kaNumber, stemID string) error {
	res, err := r.db.Exec(ctx,
		`DELETE FROM kas WHERE ka_number = ? AND stem_id = ?`, kaNumber, stemID)
	if err != nil {
		return storage.Classify(err, "delete ka")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Classify(err, "delete ka")
	}
	if affected == 0 {
		return bankerrors.Newf(bankerrors.NotFound, "ka %s/%s not found", kaNumber, stemID)
	}
	return nil
}

// systemKaFields is the allowed filter set for system-ka searches.
var systemKaFields = []string{"system_number", "ka_number", "category"}

// SystemKaFilter narrows system-ka searches.
type SystemKaFilter struct {
	SystemNumber *string
	KaNumber     *string
	Category     *string
}

func (f SystemKaFilter) params() map[string]interface{} {
	m := map[string]interface{}{}
	if f.SystemNumber != nil {
		m["system_number"] = *f.SystemNumber
	}
	if f.KaNumber != nil {
		m["ka_number"] = *f.KaNumber
	}
	if f.Category != nil {
		m["category"] = *f.Category
	}
	return m
}

// SystemKas is the system-ka association repository, keyed by the composite
// (system_number, ka_number) tuple.
type SystemKas struct {
	db *storage.DB
}

// NewSystemKas creates a system-ka repository over the given store.
func NewSystemKas(db *storage.DB) *SystemKas {
	return &SystemKas{db: db}
}

// Add inserts a system-ka association. Re-adding the same tuple is a
// constraint error under direct add.
func (r *SystemKas) Add(ctx context.Context, sk SystemKa) error {
	if strings.TrimSpace(sk.SystemNumber) == "" {
		return bankerrors.Newf(bankerrors.Validation, "system_number is required")
	}
	if strings.TrimSpace(sk.KaNumber) == "" {
		return bankerrors.Newf(bankerrors.Validation, "ka_number is required")
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO system_kas (system_number, ka_number, category) VALUES (?, ?, ?)`,
		sk.SystemNumber, sk.KaNumber, nullable(sk.Category))
	return storage.Classify(err, "insert system ka")
}

// Get returns the association with the given composite key.
func (r *SystemKas) Get(ctx context.Context, systemNumber, kaNumber string) (SystemKa, bool, error) {
	row, err := r.db.QueryRow(ctx, `
		SELECT system_number, ka_number, category FROM system_kas
		WHERE system_number = ? AND ka_number = ?
	`, systemNumber, kaNumber)
	if err != nil {
		return SystemKa{}, false, err
	}

	var sk SystemKa
	var category sql.NullString
	if err := row.Scan(&sk.SystemNumber, &sk.KaNumber, &category); err != nil {
		if err == sql.ErrNoRows {
			return SystemKa{}, false, nil
		}
		return SystemKa{}, false, storage.Classify(err, "get system ka")
	}
	sk.Category = text(category)
	return sk, true, nil
}

// List returns associations matching the filter.
func (r *SystemKas) List(ctx context.Context, f SystemKaFilter) ([]SystemKa, error) {
	clause, args := storage.BuildPredicate(f.params(), systemKaFields)
	rows, err := r.db.Query(ctx, `
		SELECT system_number, ka_number, category FROM system_kas
		WHERE `+clause+` ORDER BY system_number, ka_number
	`, args...)
	if err != nil {
		return nil, storage.Classify(err, "list system kas")
	}
	defer rows.Close()

	systemKas := make([]SystemKa, 0)
	for rows.Next() {
		var sk SystemKa
		var category sql.NullString
		if err := rows.Scan(&sk.SystemNumber, &sk.KaNumber, &category); err != nil {
			return nil, storage.Classify(err, "scan system ka")
		}
		sk.Category = text(category)
		systemKas = append(systemKas, sk)
	}
	return systemKas, storage.Classify(rows.Err(), "list system kas")
}

// Delete removes an association by its composite key.
func (r *SystemKas) Delete(ctx context.Context, systemNumber, kaNumber string) error {
	res, err := r.db.Exec(ctx,
		`DELETE FROM system_kas WHERE system_number = ? AND ka_number = ?`, systemNumber, kaNumber)
	if err != nil {
		return storage.Classify(err, "delete system ka")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Classify(err, "delete system ka")
	}
	if affected == 0 {
		return bankerrors.Newf(bankerrors.NotFound,
			"system ka %s/%s not found", systemNumber, kaNumber)
	}
	return nil
}
