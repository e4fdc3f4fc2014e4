package storage

import (
	"context"
	"database/sql"

	bankerrors "exambank/internal/errors"
)

// Schema version tracking
const currentSchemaVersion = 1

// schemaStatements is the declarative schema for the exam bank. Every table
// is created IF NOT EXISTS so bootstrap is safe to re-run. The snapshot
// columns on question_ka_numbers and question_system_numbers are deliberate
// point-in-time copies; they do not update when the source ka or system
// changes.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS plants (
		plant_id INTEGER PRIMARY KEY AUTOINCREMENT,
		plant_name TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS exams (
		exam_id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_name TEXT NOT NULL,
		plant_id INTEGER NOT NULL,
		FOREIGN KEY (plant_id) REFERENCES plants(plant_id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS questions (
		question_id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_text TEXT NOT NULL,
		category TEXT,
		exam_level TEXT,
		technical_references TEXT,
		difficulty TEXT,
		cognitive_level TEXT,
		objective TEXT,
		last_used TEXT,
		image_ref TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS answers (
		answer_id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		answer_text TEXT NOT NULL,
		is_correct INTEGER NOT NULL DEFAULT 0,
		justification TEXT,
		option_label TEXT,
		FOREIGN KEY (question_id) REFERENCES questions(question_id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS stems (
		stem_id TEXT PRIMARY KEY,
		statement TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS kas (
		ka_number TEXT NOT NULL,
		stem_id TEXT NOT NULL,
		PRIMARY KEY (ka_number, stem_id),
		FOREIGN KEY (stem_id) REFERENCES stems(stem_id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS system_kas (
		system_number TEXT NOT NULL,
		ka_number TEXT NOT NULL,
		category TEXT,
		PRIMARY KEY (system_number, ka_number)
	)`,

	`CREATE TABLE IF NOT EXISTS exam_questions (
		exam_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		question_number INTEGER NOT NULL,
		PRIMARY KEY (exam_id, question_id),
		FOREIGN KEY (exam_id) REFERENCES exams(exam_id) ON DELETE CASCADE,
		FOREIGN KEY (question_id) REFERENCES questions(question_id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS question_ka_numbers (
		question_id INTEGER NOT NULL,
		ka_number TEXT NOT NULL,
		stem_id TEXT NOT NULL,
		statement TEXT,
		importance TEXT,
		PRIMARY KEY (question_id, ka_number, stem_id),
		FOREIGN KEY (question_id) REFERENCES questions(question_id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS question_system_numbers (
		question_id INTEGER NOT NULL,
		system_number TEXT NOT NULL,
		description TEXT,
		PRIMARY KEY (question_id, system_number),
		FOREIGN KEY (question_id) REFERENCES questions(question_id) ON DELETE CASCADE
	)`,

	`CREATE INDEX IF NOT EXISTS idx_exams_plant_id ON exams(plant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_answers_question_id ON answers(question_id)`,
	`CREATE INDEX IF NOT EXISTS idx_exam_questions_question_id ON exam_questions(question_id)`,
	`CREATE INDEX IF NOT EXISTS idx_question_ka_numbers_ka ON question_ka_numbers(ka_number, stem_id)`,
	`CREATE INDEX IF NOT EXISTS idx_question_system_numbers_system ON question_system_numbers(system_number)`,
}

// Initialize applies the declarative schema and records the schema version,
// all inside a single transaction. It is idempotent: re-running against an
// initialized store changes nothing and keeps exactly one version row. Any
// statement failure rolls the whole bootstrap back and surfaces as a fatal
// Schema error; the store stays unusable.
func (db *DB) Initialize(ctx context.Context) error {
	db.mu.Lock()
	switch db.state {
	case stateClosing, stateClosed:
		db.mu.Unlock()
		return bankerrors.Newf(bankerrors.ConnectionClosed, "store is closed")
	}
	db.mu.Unlock()

	err := db.withBootstrapTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		// Version row is written exactly once, never overwritten.
		_, err := tx.ExecContext(ctx, `
			INSERT INTO schema_version (version)
			SELECT ? WHERE NOT EXISTS (SELECT 1 FROM schema_version)
		`, currentSchemaVersion)
		return err
	})
	if err != nil {
		return bankerrors.New(bankerrors.Schema, "initialize schema", err)
	}

	db.mu.Lock()
	db.state = stateOpen
	db.mu.Unlock()

	db.logger.Info("Database schema initialized", map[string]interface{}{
		"path":    db.dbPath,
		"version": currentSchemaVersion,
	})

	return nil
}

// withBootstrapTx is WithTx without the open-state guard; Initialize is the
// only caller allowed to run before the store is open.
func (db *DB) withBootstrapTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Failed to rollback bootstrap transaction", map[string]interface{}{
				"error":          err.Error(),
				"rollback_error": rbErr.Error(),
			})
		}
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the recorded schema version, or 0 when the store has
// never been initialized.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	row, err := db.QueryRow(ctx, "SELECT version FROM schema_version LIMIT 1")
	if err != nil {
		return 0, err
	}

	var version int
	if err := row.Scan(&version); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, Classify(err, "read schema version")
	}
	return version, nil
}
