// Package service is the presentation boundary of the exam bank. Every
// operation returns a uniform envelope; typed errors are translated into the
// envelope's error string and nothing is ever thrown across this boundary.
package service

import (
	"context"

	"exambank/internal/catalog"
	"exambank/internal/envelope"
	bankerrors "exambank/internal/errors"
	"exambank/internal/logging"
	"exambank/internal/storage"
)

// Service wires the repositories behind the envelope contract. Each
// repository borrows the single injected store handle per call.
type Service struct {
	db     *storage.DB
	logger *logging.Logger

	plants    *catalog.Plants
	exams     *catalog.Exams
	questions *catalog.Questions
	stems     *catalog.Stems
	kas       *catalog.Kas
	systemKas *catalog.SystemKas
	ingestor  *catalog.Ingestor
}

// New creates a service over an opened store.
func New(db *storage.DB, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		db:        db,
		logger:    logger,
		plants:    catalog.NewPlants(db),
		exams:     catalog.NewExams(db),
		questions: catalog.NewQuestions(db),
		stems:     catalog.NewStems(db),
		kas:       catalog.NewKas(db),
		systemKas: catalog.NewSystemKas(db),
		ingestor:  catalog.NewIngestor(db, logger),
	}
}

// SetMaxBatchRows caps ingest batches; 0 means unlimited.
func (s *Service) SetMaxBatchRows(n int) {
	s.ingestor.MaxRows = n
}

// Initialize bootstraps the schema. A schema failure is fatal for the
// caller; it still arrives wrapped in the envelope.
func (s *Service) Initialize(ctx context.Context) envelope.Response {
	if err := s.db.Initialize(ctx); err != nil {
		return envelope.Fail(err)
	}
	version, err := s.db.SchemaVersion(ctx)
	if err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(map[string]interface{}{"schema_version": version})
}

// Close shuts the store down. Idempotent.
func (s *Service) Close() envelope.Response {
	if err := s.db.Close(); err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(nil)
}

// keyed wraps a generated key for the envelope payload.
func keyed(name string, key interface{}) envelope.Response {
	return envelope.Ok(map[string]interface{}{name: key})
}

// AddPlant inserts a plant and returns its id.
func (s *Service) AddPlant(ctx context.Context, p catalog.Plant) envelope.Response {
	id, err := s.plants.Add(ctx, p)
	if err != nil {
		return envelope.Fail(err)
	}
	return keyed("plant_id", id)
}

// GetPlant returns one plant; a missing id is a NOT_FOUND failure at this
// boundary.
func (s *Service) GetPlant(ctx context.Context, id int64) envelope.Response {
	p, found, err := s.plants.Get(ctx, id)
	if err != nil {
		return envelope.Fail(err)
	}
	if !found {
		return envelope.Fail(bankerrors.Newf(bankerrors.NotFound, "plant %d not found", id))
	}
	return envelope.Ok(p)
}

// ListPlants returns plants matching the filter.
func (s *Service) ListPlants(ctx context.Context, f catalog.PlantFilter) envelope.Response {
	plants, err := s.plants.List(ctx, f)
	if err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(plants)
}

// UpdatePlant rewrites a plant.
func (s *Service) UpdatePlant(ctx context.Context, p catalog.Plant) envelope.Response {
	if err := s.plants.Update(ctx, p); err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(p)
}

// DeletePlant removes a plant and, by cascade, its exams.
func (s *Service) DeletePlant(ctx context.Context, id int64) envelope.Response {
	if err := s.plants.Delete(ctx, id); err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(nil)
}

// AddExam inserts an exam and returns its id.
func (s *Service) AddExam(ctx context.Context, e catalog.Exam) envelope.Response {
	id, err := s.exams.Add(ctx, e)
	if err != nil {
		return envelope.Fail(err)
	}
	return keyed("exam_id", id)
}

// GetExam returns one exam.
func (s *Service) GetExam(ctx context.Context, id int64) envelope.Response {
	e, found, err := s.exams.Get(ctx, id)
	if err != nil {
		return envelope.Fail(err)
	}
	if !found {
		return envelope.Fail(bankerrors.Newf(bankerrors.NotFound, "exam %d not found", id))
	}
	return envelope.Ok(e)
}

// ListExams returns exams matching the filter.
func (s *Service) ListExams(ctx context.Context, f catalog.ExamFilter) envelope.Response {
	exams, err := s.exams.List(ctx, f)
	if err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(exams)
}

// UpdateExam rewrites an exam.
func (s *Service) UpdateExam(ctx context.Context, e catalog.Exam) envelope.Response {
	if err := s.exams.Update(ctx, e); err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(e)
}

// DeleteExam removes an exam.
func (s *Service) DeleteExam(ctx context.Context, id int64) envelope.Response {
	if err := s.exams.Delete(ctx, id); err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(nil)
}

// ExamWithQuestions returns an exam with its questions in ordinal order.
func (s *Service) ExamWithQuestions(ctx context.Context, id int64) envelope.Response {
	details, found, err := s.exams.WithQuestions(ctx, id)
	if err != nil {
		return envelope.Fail(err)
	}
	if !found {
		return envelope.Fail(bankerrors.Newf(bankerrors.NotFound, "exam %d not found", id))
	}
	return envelope.Ok(details)
}

// AddQuestionToExam links a question into an exam.
func (s *Service) AddQuestionToExam(ctx context.Context, examID, questionID int64, questionNumber int) envelope.Response {
	if err := s.exams.AddQuestion(ctx, examID, questionID, questionNumber); err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(nil)
}

// RemoveQuestionFromExam unlinks a question from an exam.
func (s *Service) RemoveQuestionFromExam(ctx context.Context, examID, questionID int64) envelope.Response {
	if err := s.exams.RemoveQuestion(ctx, examID, questionID); err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(nil)
}

// QuestionsByExam returns the exam's questions in ordinal order.
func (s *Service) QuestionsByExam(ctx context.Context, examID int64) envelope.Response {
	questions, err := s.exams.QuestionsByExam(ctx, examID)
	if err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(questions)
}

// ExamsByQuestion returns the exams a question appears on.
func (s *Service) ExamsByQuestion(ctx context.Context, questionID int64) envelope.Response {
	exams, err := s.exams.ExamsByQuestion(ctx, questionID)
	if err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(exams)
}

// AddQuestion transactionally creates a question with its answers and links.
func (s *Service) AddQuestion(ctx context.Context, nq catalog.NewQuestion) envelope.Response {
	id, err := s.questions.Add(ctx, nq)
	if err != nil {
		return envelope.Fail(err)
	}
	return keyed("question_id", id)
}

// GetQuestion returns one question without its children.
func (s *Service) GetQuestion(ctx context.Context, id int64) envelope.Response {
	q, found, err := s.questions.Get(ctx, id)
	if err != nil {
		return envelope.Fail(err)
	}
	if !found {
		return envelope.Fail(bankerrors.Newf(bankerrors.NotFound, "question %d not found", id))
	}
	return envelope.Ok(q)
}

// ListQuestions returns questions matching the filter.
func (s *Service) ListQuestions(ctx context.Context, f catalog.QuestionFilter) envelope.Response {
	questions, err := s.questions.List(ctx, f)
	if err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(questions)
}

// QuestionsWithDetails returns matching questions with answers and links
// attached.
func (s *Service) QuestionsWithDetails(ctx context.Context, f catalog.QuestionFilter) envelope.Response {
	details, err := s.questions.WithDetails(ctx, f)
	if err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(details)
}

// QuestionWithDetails returns one question with its children.
func (s *Service) QuestionWithDetails(ctx context.Context, id int64) envelope.Response {
	details, found, err := s.questions.DetailsByID(ctx, id)
	if err != nil {
		return envelope.Fail(err)
	}
	if !found {
		return envelope.Fail(bankerrors.Newf(bankerrors.NotFound, "question %d not found", id))
	}
	return envelope.Ok(details)
}

// UpdateQuestion rewrites a question; children are untouched.
func (s *Service) UpdateQuestion(ctx context.Context, q catalog.Question) envelope.Response {
	if err := s.questions.Update(ctx, q); err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(q)
}

// DeleteQuestion removes a question and its children.
func (s *Service) DeleteQuestion(ctx context.Context, id int64) envelope.Response {
	if err := s.questions.Delete(ctx, id); err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(nil)
}

// AddStem inserts a stem.
func (s *Service) AddStem(ctx context.Context, st catalog.Stem) envelope.Response {
	id, err := s.stems.Add(ctx, st)
	if err != nil {
		return envelope.Fail(err)
	}
	return keyed("stem_id", id)
}

// ListStems returns all stems.
func (s *Service) ListStems(ctx context.Context) envelope.Response {
	stems, err := s.stems.List(ctx)
	if err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(stems)
}

// AddKa inserts a ka under its stem.
func (s *Service) AddKa(ctx context.Context, k catalog.Ka) envelope.Response {
	if err := s.kas.Add(ctx, k); err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(k)
}

// AddSystemKa inserts a system-ka association.
func (s *Service) AddSystemKa(ctx context.Context, sk catalog.SystemKa) envelope.Response {
	if err := s.systemKas.Add(ctx, sk); err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(sk)
}

// ListSystemKas returns associations matching the filter.
func (s *Service) ListSystemKas(ctx context.Context, f catalog.SystemKaFilter) envelope.Response {
	systemKas, err := s.systemKas.List(ctx, f)
	if err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(systemKas)
}

// LinkKaToQuestion links an existing ka to a question with a statement
// snapshot.
func (s *Service) LinkKaToQuestion(ctx context.Context, questionID int64, ref catalog.KaRef) envelope.Response {
	if err := s.questions.LinkKa(ctx, questionID, ref); err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(nil)
}

// LinkSystemToQuestion links a system number to a question with a
// description snapshot.
func (s *Service) LinkSystemToQuestion(ctx context.Context, questionID int64, ref catalog.SystemRef) envelope.Response {
	if err := s.questions.LinkSystem(ctx, questionID, ref); err != nil {
		return envelope.Fail(err)
	}
	return envelope.Ok(nil)
}

// ingestResponse shapes an ingest report, attaching a warning when rows were
// skipped.
func ingestResponse(report catalog.IngestReport, err error) envelope.Response {
	if err != nil {
		return envelope.Fail(err)
	}
	b := envelope.New().Data(report)
	if len(report.Ignored) > 0 {
		b.Warn("ROWS_IGNORED", "some rows were skipped; see report")
	}
	return b.Build()
}

// IngestQuestions runs a duplicate-tolerant question batch.
func (s *Service) IngestQuestions(ctx context.Context, rows []catalog.Row) envelope.Response {
	report, err := s.ingestor.IngestQuestions(ctx, rows)
	return ingestResponse(report, err)
}

// IngestStems runs a duplicate-tolerant stem batch.
func (s *Service) IngestStems(ctx context.Context, rows []catalog.Row) envelope.Response {
	report, err := s.ingestor.IngestStems(ctx, rows)
	return ingestResponse(report, err)
}

// IngestKas runs a duplicate-tolerant ka batch.
func (s *Service) IngestKas(ctx context.Context, rows []catalog.Row) envelope.Response {
	report, err := s.ingestor.IngestKas(ctx, rows)
	return ingestResponse(report, err)
}

// IngestSystemKas runs a duplicate-tolerant system-ka batch.
func (s *Service) IngestSystemKas(ctx context.Context, rows []catalog.Row) envelope.Response {
	report, err := s.ingestor.IngestSystemKas(ctx, rows)
	return ingestResponse(report, err)
}
