package catalog

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	bankerrors "exambank/internal/errors"
	"exambank/internal/logging"
	"exambank/internal/storage"
)

// Row is a loosely-typed candidate row for batch ingestion, keyed by the
// same field names as the entity's add contract. Rows originate from
// imported structured data; parsing that data is out of scope here.
type Row map[string]interface{}

func (r Row) str(key string) string {
	return strings.TrimSpace(cast.ToString(r[key]))
}

// IgnoredRow records one skipped row with its original index and, when it
// has one, its natural key.
type IgnoredRow struct {
	Index  int    `json:"index"`
	Key    string `json:"key,omitempty"`
	Reason string `json:"reason"`
}

// IngestReport is the per-row disposition of a batch: inserted keys in row
// order and ignored rows in row order. A batch run gets its own id for log
// correlation.
type IngestReport struct {
	RunID    string       `json:"run_id"`
	Inserted []string     `json:"inserted"`
	Ignored  []IgnoredRow `json:"ignored"`
}

// Ingestor applies conflict-tolerant batch insertion. Unlike the strict
// single-row add path, a row failing validation or colliding with an
// existing unique key is recorded as ignored and the batch continues; each
// batch runs inside one transaction.
type Ingestor struct {
	db     *storage.DB
	logger *logging.Logger

	// MaxRows caps a single batch; 0 means unlimited.
	MaxRows int
}

// NewIngestor creates a batch ingestor over the given store.
func NewIngestor(db *storage.DB, logger *logging.Logger) *Ingestor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Ingestor{db: db, logger: logger}
}

func (in *Ingestor) newReport() IngestReport {
	return IngestReport{
		RunID:    uuid.New().String(),
		Inserted: []string{},
		Ignored:  []IgnoredRow{},
	}
}

func (in *Ingestor) checkBatch(rows []Row) error {
	if in.MaxRows > 0 && len(rows) > in.MaxRows {
		return bankerrors.Newf(bankerrors.Validation,
			"batch of %d rows exceeds the configured cap of %d", len(rows), in.MaxRows)
	}
	return nil
}

// rowFailure decides whether a per-row exec error is tolerable. Constraint
// violations are: the row is ignored and the batch continues. Anything else
// aborts the batch.
func rowFailure(err error) (reason string, fatal bool) {
	classified := storage.Classify(err, "ingest row")
	if bankerrors.HasCode(classified, bankerrors.Constraint) {
		return "constraint violation", false
	}
	return "", true
}

// IngestQuestions inserts question rows. A row is ignored when its
// question_text is missing or duplicates a question already in the store or
// earlier in the batch. Inserted keys are the generated question ids, in row
// order.
func (in *Ingestor) IngestQuestions(ctx context.Context, rows []Row) (IngestReport, error) {
	report := in.newReport()
	if err := in.checkBatch(rows); err != nil {
		return report, err
	}

	err := in.db.WithTx(ctx, func(tx *sql.Tx) error {
		for i, row := range rows {
			questionText := row.str("question_text")
			if questionText == "" {
				report.Ignored = append(report.Ignored, IgnoredRow{
					Index: i, Reason: "question_text is required",
				})
				continue
			}

			var existing int64
			err := tx.QueryRowContext(ctx,
				`SELECT question_id FROM questions WHERE question_text = ? LIMIT 1`,
				questionText).Scan(&existing)
			if err == nil {
				report.Ignored = append(report.Ignored, IgnoredRow{
					Index:  i,
					Key:    strconv.FormatInt(existing, 10),
					Reason: "duplicate question_text",
				})
				continue
			}
			if err != sql.ErrNoRows {
				return storage.Classify(err, "check duplicate question")
			}

			res, err := tx.ExecContext(ctx, `
				INSERT INTO questions (question_text, category, exam_level, technical_references,
					difficulty, cognitive_level, objective, last_used, image_ref)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, questionText, nullable(row.str("category")), nullable(row.str("exam_level")),
				nullable(row.str("technical_references")), nullable(row.str("difficulty")),
				nullable(row.str("cognitive_level")), nullable(row.str("objective")),
				nullable(row.str("last_used")), nullable(row.str("image_ref")))
			if err != nil {
				reason, fatal := rowFailure(err)
				if fatal {
					return storage.Classify(err, "insert question row")
				}
				report.Ignored = append(report.Ignored, IgnoredRow{Index: i, Reason: reason})
				continue
			}

			id, err := res.LastInsertId()
			if err != nil {
				return storage.Classify(err, "insert question row")
			}
			report.Inserted = append(report.Inserted, strconv.FormatInt(id, 10))
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	in.logIngest("questions", len(rows), report)
	return report, nil
}

// IngestStems inserts stem rows, ignoring duplicates of an existing code.
func (in *Ingestor) IngestStems(ctx context.Context, rows []Row) (IngestReport, error) {
	report := in.newReport()
	if err := in.checkBatch(rows); err != nil {
		return report, err
	}

	err := in.db.WithTx(ctx, func(tx *sql.Tx) error {
		for i, row := range rows {
			stemID := row.str("stem_id")
			statement := row.str("statement")
			if stemID == "" || statement == "" {
				report.Ignored = append(report.Ignored, IgnoredRow{
					Index: i, Key: stemID, Reason: "stem_id and statement are required",
				})
				continue
			}

			res, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO stems (stem_id, statement) VALUES (?, ?)`,
				stemID, statement)
			if err != nil {
				reason, fatal := rowFailure(err)
				if fatal {
					return storage.Classify(err, "insert stem row")
				}
				report.Ignored = append(report.Ignored, IgnoredRow{Index: i, Key: stemID, Reason: reason})
				continue
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				report.Ignored = append(report.Ignored, IgnoredRow{
					Index: i, Key: stemID, Reason: "duplicate stem_id",
				})
				continue
			}
			report.Inserted = append(report.Inserted, stemID)
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	in.logIngest("stems", len(rows), report)
	return report, nil
}

// IngestKas inserts ka rows keyed by (ka_number, stem_id). Duplicate tuples
// are ignored; a ka referencing a missing stem is ignored as a constraint
// violation rather than aborting the batch.
func (in *Ingestor) IngestKas(ctx context.Context, rows []Row) (IngestReport, error) {
	report := in.newReport()
	if err := in.checkBatch(rows); err != nil {
		return report, err
	}

	err := in.db.WithTx(ctx, func(tx *sql.Tx) error {
		for i, row := range rows {
			kaNumber := row.str("ka_number")
			stemID := row.str("stem_id")
			key := kaNumber + "/" + stemID
			if kaNumber == "" || stemID == "" {
				report.Ignored = append(report.Ignored, IgnoredRow{
					Index: i, Key: key, Reason: "ka_number and stem_id are required",
				})
				continue
			}

			res, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO kas (ka_number, stem_id) VALUES (?, ?)`,
				kaNumber, stemID)
			if err != nil {
				// INSERT OR IGNORE does not suppress foreign-key failures.
				reason, fatal := rowFailure(err)
				if fatal {
					return storage.Classify(err, "insert ka row")
				}
				report.Ignored = append(report.Ignored, IgnoredRow{Index: i, Key: key, Reason: reason})
				continue
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				report.Ignored = append(report.Ignored, IgnoredRow{
					Index: i, Key: key, Reason: "duplicate ka",
				})
				continue
			}
			report.Inserted = append(report.Inserted, key)
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	in.logIngest("kas", len(rows), report)
	return report, nil
}

// IngestSystemKas inserts system-ka rows keyed by (system_number,
// ka_number), ignoring duplicate tuples.
func (in *Ingestor) IngestSystemKas(ctx context.Context, rows []Row) (IngestReport, error) {
	report := in.newReport()
	if err := in.checkBatch(rows); err != nil {
		return report, err
	}

	err := in.db.WithTx(ctx, func(tx *sql.Tx) error {
		for i, row := range rows {
			systemNumber := row.str("system_number")
			kaNumber := row.str("ka_number")
			key := systemNumber + "/" + kaNumber
			if systemNumber == "" || kaNumber == "" {
				report.Ignored = append(report.Ignored, IgnoredRow{
					Index: i, Key: key, Reason: "system_number and ka_number are required",
				})
				continue
			}

			res, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO system_kas (system_number, ka_number, category)
				VALUES (?, ?, ?)
			`, systemNumber, kaNumber, nullable(row.str("category")))
			if err != nil {
				reason, fatal := rowFailure(err)
				if fatal {
					return storage.Classify(err, "insert system ka row")
				}
				report.Ignored = append(report.Ignored, IgnoredRow{Index: i, Key: key, Reason: reason})
				continue
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				report.Ignored = append(report.Ignored, IgnoredRow{
					Index: i, Key: key, Reason: "duplicate system ka",
				})
				continue
			}
			report.Inserted = append(report.Inserted, key)
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	in.logIngest("system_kas", len(rows), report)
	return report, nil
}

func (in *Ingestor) logIngest(kind string, total int, report IngestReport) {
	in.logger.Info("Batch ingest complete", map[string]interface{}{
		"run_id":   report.RunID,
		"kind":     kind,
		"rows":     total,
		"inserted": len(report.Inserted),
		"ignored":  len(report.Ignored),
	})
}
