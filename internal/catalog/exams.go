package catalog

import (
	"context"
	"database/sql"
	"strings"

	bankerrors "exambank/internal/errors"
	"exambank/internal/storage"
)

// examFields is the allowed filter set for exam searches.
var examFields = []string{"exam_name", "plant_id"}

// ExamFilter narrows exam searches.
type ExamFilter struct {
	Name    *string
	PlantID *int64
}

func (f ExamFilter) params() map[string]interface{} {
	m := map[string]interface{}{}
	if f.Name != nil {
		m["exam_name"] = *f.Name
	}
	if f.PlantID != nil {
		m["plant_id"] = *f.PlantID
	}
	return m
}

// Exams is the exam repository, including the exam-question junction
// operations.
type Exams struct {
	db *storage.DB
}

// NewExams creates an exam repository over the given store.
func NewExams(db *storage.DB) *Exams {
	return &Exams{db: db}
}

// Add inserts an exam and returns its generated id. The referenced plant
// must exist; a dangling reference surfaces as a constraint error.
func (r *Exams) Add(ctx context.Context, e Exam) (int64, error) {
	if strings.TrimSpace(e.ExamName) == "" {
		return 0, bankerrors.Newf(bankerrors.Validation, "exam_name is required")
	}
	if e.PlantID == 0 {
		return 0, bankerrors.Newf(bankerrors.Validation, "plant_id is required")
	}

	res, err := r.db.Exec(ctx,
		`INSERT INTO exams (exam_name, plant_id) VALUES (?, ?)`, e.ExamName, e.PlantID)
	if err != nil {
		return 0, storage.Classify(err, "insert exam")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storage.Classify(err, "insert exam")
	}
	return id, nil
}

// Get returns the exam with the given id.
func (r *Exams) Get(ctx context.Context, id int64) (Exam, bool, error) {
	row, err := r.db.QueryRow(ctx,
		`SELECT exam_id, exam_name, plant_id FROM exams WHERE exam_id = ?`, id)
	if err != nil {
		return Exam{}, false, err
	}

	var e Exam
	if err := row.Scan(&e.ExamID, &e.ExamName, &e.PlantID); err != nil {
		if err == sql.ErrNoRows {
			return Exam{}, false, nil
		}
		return Exam{}, false, storage.Classify(err, "get exam")
	}
	return e, true, nil
}

// List returns exams matching the filter, in id order.
func (r *Exams) List(ctx context.Context, f ExamFilter) ([]Exam, error) {
	clause, args := storage.BuildPredicate(f.params(), examFields)
	rows, err := r.db.Query(ctx,
		`SELECT exam_id, exam_name, plant_id FROM exams WHERE `+clause+` ORDER BY exam_id`, args...)
	if err != nil {
		return nil, storage.Classify(err, "list exams")
	}
	defer rows.Close()

	exams := make([]Exam, 0)
	for rows.Next() {
		var e Exam
		if err := rows.Scan(&e.ExamID, &e.ExamName, &e.PlantID); err != nil {
			return nil, storage.Classify(err, "scan exam")
		}
		exams = append(exams, e)
	}
	return exams, storage.Classify(rows.Err(), "list exams")
}

// Update rewrites an exam by id.
func (r *Exams) Update(ctx context.Context, e Exam) error {
	if e.ExamID == 0 {
		return bankerrors.Newf(bankerrors.Validation, "exam_id is required")
	}
	if strings.TrimSpace(e.ExamName) == "" {
		return bankerrors.Newf(bankerrors.Validation, "exam_name is required")
	}
	if e.PlantID == 0 {
		return bankerrors.Newf(bankerrors.Validation, "plant_id is required")
	}

	res, err := r.db.Exec(ctx,
		`UPDATE exams SET exam_name = ?, plant_id = ? WHERE exam_id = ?`,
		e.ExamName, e.PlantID, e.ExamID)
	if err != nil {
		return storage.Classify(err, "update exam")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Classify(err, "update exam")
	}
	if affected == 0 {
		return bankerrors.Newf(bankerrors.NotFound, "exam %d not found", e.ExamID)
	}
	return nil
}

// Delete removes an exam; its junction rows cascade away.
func (r *Exams) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM exams WHERE exam_id = ?`, id)
	if err != nil {
		return storage.Classify(err, "delete exam")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Classify(err, "delete exam")
	}
	if affected == 0 {
		return bankerrors.Newf(bankerrors.NotFound, "exam %d not found", id)
	}
	return nil
}

// AddQuestion links a question into an exam at the given ordinal. Passing
// questionNumber <= 0 appends after the exam's current highest ordinal. Both
// endpoints must exist; foreign-key enforcement rejects dangling links.
func (r *Exams) AddQuestion(ctx context.Context, examID, questionID int64, questionNumber int) error {
	if examID == 0 || questionID == 0 {
		return bankerrors.Newf(bankerrors.Validation, "exam_id and question_id are required")
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		number := questionNumber
		if number <= 0 {
			var next int
			err := tx.QueryRowContext(ctx,
				`SELECT COALESCE(MAX(question_number), 0) + 1 FROM exam_questions WHERE exam_id = ?`,
				examID).Scan(&next)
			if err != nil {
				return storage.Classify(err, "next question number")
			}
			number = next
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO exam_questions (exam_id, question_id, question_number) VALUES (?, ?, ?)`,
			examID, questionID, number)
		return storage.Classify(err, "link question to exam")
	})
}

// RemoveQuestion unlinks a question from an exam.
func (r *Exams) RemoveQuestion(ctx context.Context, examID, questionID int64) error {
	res, err := r.db.Exec(ctx,
		`DELETE FROM exam_questions WHERE exam_id = ? AND question_id = ?`, examID, questionID)
	if err != nil {
		return storage.Classify(err, "unlink question from exam")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Classify(err, "unlink question from exam")
	}
	if affected == 0 {
		return bankerrors.Newf(bankerrors.NotFound,
			"question %d is not linked to exam %d", questionID, examID)
	}
	return nil
}

// QuestionsByExam returns the exam's questions ordered by their ordinal.
func (r *Exams) QuestionsByExam(ctx context.Context, examID int64) ([]NumberedQuestion, error) {
	rows, err := r.db.Query(ctx, `
		SELECT q.question_id, q.question_text, q.category, q.exam_level,
		       q.technical_references, q.difficulty, q.cognitive_level,
		       q.objective, q.last_used, q.image_ref, eq.question_number
		FROM exam_questions eq
		JOIN questions q ON q.question_id = eq.question_id
		WHERE eq.exam_id = ?
		ORDER BY eq.question_number ASC
	`, examID)
	if err != nil {
		return nil, storage.Classify(err, "questions by exam")
	}
	defer rows.Close()

	questions := make([]NumberedQuestion, 0)
	for rows.Next() {
		var nq NumberedQuestion
		if err := scanQuestionColumns(rows, &nq.Question, &nq.QuestionNumber); err != nil {
			return nil, storage.Classify(err, "scan question")
		}
		questions = append(questions, nq)
	}
	return questions, storage.Classify(rows.Err(), "questions by exam")
}

// ExamsByQuestion returns the exams a question appears on.
func (r *Exams) ExamsByQuestion(ctx context.Context, questionID int64) ([]Exam, error) {
	rows, err := r.db.Query(ctx, `
		SELECT e.exam_id, e.exam_name, e.plant_id
		FROM exam_questions eq
		JOIN exams e ON e.exam_id = eq.exam_id
		WHERE eq.question_id = ?
		ORDER BY e.exam_id
	`, questionID)
	if err != nil {
		return nil, storage.Classify(err, "exams by question")
	}
	defer rows.Close()

	exams := make([]Exam, 0)
	for rows.Next() {
		var e Exam
		if err := rows.Scan(&e.ExamID, &e.ExamName, &e.PlantID); err != nil {
			return nil, storage.Classify(err, "scan exam")
		}
		exams = append(exams, e)
	}
	return exams, storage.Classify(rows.Err(), "exams by question")
}

// WithQuestions returns the exam with its questions attached in ordinal
// order.
func (r *Exams) WithQuestions(ctx context.Context, examID int64) (ExamDetails, bool, error) {
	exam, found, err := r.Get(ctx, examID)
	if err != nil || !found {
		return ExamDetails{}, found, err
	}

	questions, err := r.QuestionsByExam(ctx, examID)
	if err != nil {
		return ExamDetails{}, false, err
	}
	return ExamDetails{Exam: exam, Questions: questions}, true, nil
}
