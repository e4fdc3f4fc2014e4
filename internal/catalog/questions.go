package catalog

import (
	"context"
	"database/sql"
	"strings"

	bankerrors "exambank/internal/errors"
	"exambank/internal/storage"
)

// questionFields is the allowed filter set for question searches.
var questionFields = []string{"category", "exam_level", "difficulty", "cognitive_level", "objective", "last_used"}

// QuestionFilter narrows question searches. Text, when set, matches the
// question text as a free-text substring; the remaining fields are exact
// matches fed through the predicate builder.
type QuestionFilter struct {
	Category       *string
	ExamLevel      *string
	Difficulty     *string
	CognitiveLevel *string
	Objective      *string
	LastUsed       *string
	Text           string
}

func (f QuestionFilter) params() map[string]interface{} {
	m := map[string]interface{}{}
	if f.Category != nil {
		m["category"] = *f.Category
	}
	if f.ExamLevel != nil {
		m["exam_level"] = *f.ExamLevel
	}
	if f.Difficulty != nil {
		m["difficulty"] = *f.Difficulty
	}
	if f.CognitiveLevel != nil {
		m["cognitive_level"] = *f.CognitiveLevel
	}
	if f.Objective != nil {
		m["objective"] = *f.Objective
	}
	if f.LastUsed != nil {
		m["last_used"] = *f.LastUsed
	}
	return m
}

// Questions is the question repository, covering answers and the ka/system
// junction links.
type Questions struct {
	db *storage.DB
}

// NewQuestions creates a question repository over the given store.
func NewQuestions(db *storage.DB) *Questions {
	return &Questions{db: db}
}

const questionColumns = `question_id, question_text, category, exam_level,
	technical_references, difficulty, cognitive_level, objective, last_used, image_ref`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanQuestionColumns scans the shared question column set; number, when
// non-nil, receives a trailing ordinal column.
func scanQuestionColumns(row rowScanner, q *Question, number *int) error {
	var category, examLevel, techRefs, difficulty, cognitive, objective, lastUsed, imageRef sql.NullString

	dest := []interface{}{
		&q.QuestionID, &q.QuestionText, &category, &examLevel,
		&techRefs, &difficulty, &cognitive, &objective, &lastUsed, &imageRef,
	}
	if number != nil {
		dest = append(dest, number)
	}
	if err := row.Scan(dest...); err != nil {
		return err
	}

	q.Category = text(category)
	q.ExamLevel = text(examLevel)
	q.TechnicalReferences = text(techRefs)
	q.Difficulty = text(difficulty)
	q.CognitiveLevel = text(cognitive)
	q.Objective = text(objective)
	q.LastUsed = text(lastUsed)
	q.ImageRef = text(imageRef)
	return nil
}

func validateQuestion(q Question) error {
	if strings.TrimSpace(q.QuestionText) == "" {
		return bankerrors.Newf(bankerrors.Validation, "question_text is required")
	}
	return nil
}

func validateAnswer(a Answer) error {
	if strings.TrimSpace(a.AnswerText) == "" {
		return bankerrors.Newf(bankerrors.Validation, "answer_text is required")
	}
	return nil
}

// Add transactionally creates a question together with its answers, ka
// links, and system links. Everything is validated before the first
// statement runs; any failure rolls the whole operation back, so no partial
// question is ever observable.
func (r *Questions) Add(ctx context.Context, nq NewQuestion) (int64, error) {
	if err := validateQuestion(nq.Question); err != nil {
		return 0, err
	}
	for _, a := range nq.Answers {
		if err := validateAnswer(a); err != nil {
			return 0, err
		}
	}
	for _, ref := range nq.KaRefs {
		if ref.KaNumber == "" || ref.StemID == "" {
			return 0, bankerrors.Newf(bankerrors.Validation, "ka_number and stem_id are required")
		}
	}
	for _, ref := range nq.SystemRefs {
		if ref.SystemNumber == "" {
			return 0, bankerrors.Newf(bankerrors.Validation, "system_number is required")
		}
	}

	var questionID int64
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO questions (question_text, category, exam_level, technical_references,
				difficulty, cognitive_level, objective, last_used, image_ref)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, nq.Question.QuestionText, nullable(nq.Question.Category), nullable(nq.Question.ExamLevel),
			nullable(nq.Question.TechnicalReferences), nullable(nq.Question.Difficulty),
			nullable(nq.Question.CognitiveLevel), nullable(nq.Question.Objective),
			nullable(nq.Question.LastUsed), nullable(nq.Question.ImageRef))
		if err != nil {
			return storage.Classify(err, "insert question")
		}
		questionID, err = res.LastInsertId()
		if err != nil {
			return storage.Classify(err, "insert question")
		}

		for _, a := range nq.Answers {
			if err := insertAnswer(ctx, tx, questionID, a); err != nil {
				return err
			}
		}
		for _, ref := range nq.KaRefs {
			if err := insertKaLink(ctx, tx, questionID, ref); err != nil {
				return err
			}
		}
		for _, ref := range nq.SystemRefs {
			if err := insertSystemLink(ctx, tx, questionID, ref); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return questionID, nil
}

func insertAnswer(ctx context.Context, tx *sql.Tx, questionID int64, a Answer) error {
	correct := 0
	if a.IsCorrect {
		correct = 1
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO answers (question_id, answer_text, is_correct, justification, option_label)
		VALUES (?, ?, ?, ?, ?)
	`, questionID, a.AnswerText, correct, nullable(a.Justification), nullable(a.OptionLabel))
	return storage.Classify(err, "insert answer")
}

// insertKaLink resolves the ka's stem statement and writes the junction row
// with the statement snapshot.
func insertKaLink(ctx context.Context, tx *sql.Tx, questionID int64, ref KaRef) error {
	var statement string
	err := tx.QueryRowContext(ctx, `
		SELECT s.statement
		FROM kas k
		JOIN stems s ON s.stem_id = k.stem_id
		WHERE k.ka_number = ? AND k.stem_id = ?
	`, ref.KaNumber, ref.StemID).Scan(&statement)
	if err != nil {
		if err == sql.ErrNoRows {
			return bankerrors.Newf(bankerrors.Constraint,
				"ka %s/%s does not exist", ref.KaNumber, ref.StemID)
		}
		return storage.Classify(err, "resolve ka statement")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO question_ka_numbers (question_id, ka_number, stem_id, statement, importance)
		VALUES (?, ?, ?, ?, ?)
	`, questionID, ref.KaNumber, ref.StemID, statement, nullable(ref.Importance))
	return storage.Classify(err, "link ka to question")
}

func insertSystemLink(ctx context.Context, tx *sql.Tx, questionID int64, ref SystemRef) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO question_system_numbers (question_id, system_number, description)
		VALUES (?, ?, ?)
	`, questionID, ref.SystemNumber, nullable(ref.Description))
	return storage.Classify(err, "link system to question")
}

// Get returns the question with the given id.
func (r *Questions) Get(ctx context.Context, id int64) (Question, bool, error) {
	row, err := r.db.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE question_id = ?`, id)
	if err != nil {
		return Question{}, false, err
	}

	var q Question
	if err := scanQuestionColumns(row, &q, nil); err != nil {
		if err == sql.ErrNoRows {
			return Question{}, false, nil
		}
		return Question{}, false, storage.Classify(err, "get question")
	}
	return q, true, nil
}

// List returns questions matching the filter, in id order. Text filtering is
// a LIKE match over the question text, still bound positionally.
func (r *Questions) List(ctx context.Context, f QuestionFilter) ([]Question, error) {
	clause, args := storage.BuildPredicate(f.params(), questionFields)
	if f.Text != "" {
		clause += " AND question_text LIKE ?"
		args = append(args, "%"+f.Text+"%")
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE `+clause+` ORDER BY question_id`, args...)
	if err != nil {
		return nil, storage.Classify(err, "list questions")
	}
	defer rows.Close()

	questions := make([]Question, 0)
	for rows.Next() {
		var q Question
		if err := scanQuestionColumns(rows, &q, nil); err != nil {
			return nil, storage.Classify(err, "scan question")
		}
		questions = append(questions, q)
	}
	return questions, storage.Classify(rows.Err(), "list questions")
}

// WithDetails returns matching questions with answers, ka links, and system
// links attached.
func (r *Questions) WithDetails(ctx context.Context, f QuestionFilter) ([]QuestionDetails, error) {
	questions, err := r.List(ctx, f)
	if err != nil {
		return nil, err
	}

	details := make([]QuestionDetails, 0, len(questions))
	for _, q := range questions {
		d, err := r.detailsFor(ctx, q)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, nil
}

// DetailsByID returns one question with its related collections.
func (r *Questions) DetailsByID(ctx context.Context, id int64) (QuestionDetails, bool, error) {
	q, found, err := r.Get(ctx, id)
	if err != nil || !found {
		return QuestionDetails{}, found, err
	}
	d, err := r.detailsFor(ctx, q)
	if err != nil {
		return QuestionDetails{}, false, err
	}
	return d, true, nil
}

func (r *Questions) detailsFor(ctx context.Context, q Question) (QuestionDetails, error) {
	answers, err := r.AnswersByQuestion(ctx, q.QuestionID)
	if err != nil {
		return QuestionDetails{}, err
	}
	kaLinks, err := r.KasByQuestion(ctx, q.QuestionID)
	if err != nil {
		return QuestionDetails{}, err
	}
	systemLinks, err := r.SystemsByQuestion(ctx, q.QuestionID)
	if err != nil {
		return QuestionDetails{}, err
	}
	return QuestionDetails{
		Question:    q,
		Answers:     answers,
		KaLinks:     kaLinks,
		SystemLinks: systemLinks,
	}, nil
}

// Update rewrites a question by id. Children are untouched.
func (r *Questions) Update(ctx context.Context, q Question) error {
	if q.QuestionID == 0 {
		return bankerrors.Newf(bankerrors.Validation, "question_id is required")
	}
	if err := validateQuestion(q); err != nil {
		return err
	}

	res, err := r.db.Exec(ctx, `
		UPDATE questions SET question_text = ?, category = ?, exam_level = ?,
			technical_references = ?, difficulty = ?, cognitive_level = ?,
			objective = ?, last_used = ?, image_ref = ?
		WHERE question_id = ?
	`, q.QuestionText, nullable(q.Category), nullable(q.ExamLevel),
		nullable(q.TechnicalReferences), nullable(q.Difficulty), nullable(q.CognitiveLevel),
		nullable(q.Objective), nullable(q.LastUsed), nullable(q.ImageRef), q.QuestionID)
	if err != nil {
		return storage.Classify(err, "update question")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Classify(err, "update question")
	}
	if affected == 0 {
		return bankerrors.Newf(bankerrors.NotFound, "question %d not found", q.QuestionID)
	}
	return nil
}

// Delete removes a question; answers and junction rows cascade away.
func (r *Questions) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM questions WHERE question_id = ?`, id)
	if err != nil {
		return storage.Classify(err, "delete question")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Classify(err, "delete question")
	}
	if affected == 0 {
		return bankerrors.Newf(bankerrors.NotFound, "question %d not found", id)
	}
	return nil
}

// AddAnswer appends one answer to an existing question.
func (r *Questions) AddAnswer(ctx context.Context, a Answer) (int64, error) {
	if a.QuestionID == 0 {
		return 0, bankerrors.Newf(bankerrors.Validation, "question_id is required")
	}
	if err := validateAnswer(a); err != nil {
		return 0, err
	}

	correct := 0
	if a.IsCorrect {
		correct = 1
	}
	res, err := r.db.Exec(ctx, `
		INSERT INTO answers (question_id, answer_text, is_correct, justification, option_label)
		VALUES (?, ?, ?, ?, ?)
	`, a.QuestionID, a.AnswerText, correct, nullable(a.Justification), nullable(a.OptionLabel))
	if err != nil {
		return 0, storage.Classify(err, "insert answer")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storage.Classify(err, "insert answer")
	}
	return id, nil
}

// AnswersByQuestion returns a question's answers in option order.
func (r *Questions) AnswersByQuestion(ctx context.Context, questionID int64) ([]Answer, error) {
	rows, err := r.db.Query(ctx, `
		SELECT answer_id, question_id, answer_text, is_correct, justification, option_label
		FROM answers
		WHERE question_id = ?
		ORDER BY option_label, answer_id
	`, questionID)
	if err != nil {
		return nil, storage.Classify(err, "answers by question")
	}
	defer rows.Close()

	answers := make([]Answer, 0)
	for rows.Next() {
		var a Answer
		var correct int
		var justification, label sql.NullString
		if err := rows.Scan(&a.AnswerID, &a.QuestionID, &a.AnswerText, &correct, &justification, &label); err != nil {
			return nil, storage.Classify(err, "scan answer")
		}
		a.IsCorrect = correct != 0
		a.Justification = text(justification)
		a.OptionLabel = text(label)
		answers = append(answers, a)
	}
	return answers, storage.Classify(rows.Err(), "answers by question")
}

// DeleteAnswer removes one answer.
func (r *Questions) DeleteAnswer(ctx context.Context, answerID int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM answers WHERE answer_id = ?`, answerID)
	if err != nil {
		return storage.Classify(err, "delete answer")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Classify(err, "delete answer")
	}
	if affected == 0 {
		return bankerrors.Newf(bankerrors.NotFound, "answer %d not found", answerID)
	}
	return nil
}

// LinkKa links an existing ka to an existing question, snapshotting the
// stem statement at link time.
func (r *Questions) LinkKa(ctx context.Context, questionID int64, ref KaRef) error {
	if questionID == 0 || ref.KaNumber == "" || ref.StemID == "" {
		return bankerrors.Newf(bankerrors.Validation, "question_id, ka_number, and stem_id are required")
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return insertKaLink(ctx, tx, questionID, ref)
	})
}

// UnlinkKa removes a ka link.
func (r *Questions) UnlinkKa(ctx context.Context, questionID int64, kaNumber, stemID string) error {
	res, err := r.db.Exec(ctx, `
		DELETE FROM question_ka_numbers WHERE question_id = ? AND ka_number = ? AND stem_id = ?
	`, questionID, kaNumber, stemID)
	if err != nil {
		return storage.Classify(err, "unlink ka")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Classify(err, "unlink ka")
	}
	if affected == 0 {
		return bankerrors.Newf(bankerrors.NotFound,
			"ka %s/%s is not linked to question %d", kaNumber, stemID, questionID)
	}
	return nil
}

// KasByQuestion returns a question's ka links with their snapshots.
func (r *Questions) KasByQuestion(ctx context.Context, questionID int64) ([]KaLink, error) {
	rows, err := r.db.Query(ctx, `
		SELECT question_id, ka_number, stem_id, statement, importance
		FROM question_ka_numbers
		WHERE question_id = ?
		ORDER BY ka_number, stem_id
	`, questionID)
	if err != nil {
		return nil, storage.Classify(err, "kas by question")
	}
	defer rows.Close()

	links := make([]KaLink, 0)
	for rows.Next() {
		var l KaLink
		var statement, importance sql.NullString
		if err := rows.Scan(&l.QuestionID, &l.KaNumber, &l.StemID, &statement, &importance); err != nil {
			return nil, storage.Classify(err, "scan ka link")
		}
		l.Statement = text(statement)
		l.Importance = text(importance)
		links = append(links, l)
	}
	return links, storage.Classify(rows.Err(), "kas by question")
}

// LinkSystem links a system number to a question with a description
// snapshot.
func (r *Questions) LinkSystem(ctx context.Context, questionID int64, ref SystemRef) error {
	if questionID == 0 || ref.SystemNumber == "" {
		return bankerrors.Newf(bankerrors.Validation, "question_id and system_number are required")
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return insertSystemLink(ctx, tx, questionID, ref)
	})
}

// UnlinkSystem removes a system link.
func (r *Questions) UnlinkSystem(ctx context.Context, questionID int64, systemNumber string) error {
	res, err := r.db.Exec(ctx, `
		DELETE FROM question_system_numbers WHERE question_id = ? AND system_number = ?
	`, questionID, systemNumber)
	if err != nil {
		return storage.Classify(err, "unlink system")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Classify(err, "unlink system")
	}
	if affected == 0 {
		return bankerrors.Newf(bankerrors.NotFound,
			"system %s is not linked to question %d", systemNumber, questionID)
	}
	return nil
}

// SystemsByQuestion returns a question's system links with their snapshots.
func (r *Questions) SystemsByQuestion(ctx context.Context, questionID int64) ([]SystemLink, error) {
	rows, err := r.db.Query(ctx, `
		SELECT question_id, system_number, description
		FROM question_system_numbers
		WHERE question_id = ?
		ORDER BY system_number
	`, questionID)
	if err != nil {
		return nil, storage.Classify(err, "systems by question")
	}
	defer rows.Close()

	links := make([]SystemLink, 0)
	for rows.Next() {
		var l SystemLink
		var description sql.NullString
		if err := rows.Scan(&l.QuestionID, &l.SystemNumber, &description); err != nil {
			return nil, storage.Classify(err, "scan system link")
		}
		l.Description = text(description)
		links = append(links, l)
	}
	return links, storage.Classify(rows.Err(), "systems by question")
}
