package catalog

import (
	"context"
	"testing"

	"exambank/internal/logging"

	bankerrors "exambank/internal/errors"
)

func TestIngestQuestionsDuplicateTolerance(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	questions := NewQuestions(db)
	ingestor := NewIngestor(db, logging.NewNop())

	// Pre-existing question that the batch re-submits.
	if _, err := questions.Add(ctx, NewQuestion{Question: Question{QuestionText: "Existing question text"}}); err != nil {
		t.Fatalf("seed question: %v", err)
	}
	before := countRows(t, db, "questions")

	rows := []Row{
		{"question_text": "Existing question text"},                      // duplicate of stored row
		{"question_text": "Fresh question one", "category": "Plant Systems"},
		{"question_text": ""},                                            // fails validation
		{"question_text": "Fresh question two", "difficulty": "3"},
		{"question_text": "Fresh question one"},                          // duplicate within the batch
	}

	report, err := ingestor.IngestQuestions(ctx, rows)
	if err != nil {
		t.Fatalf("IngestQuestions: %v", err)
	}

	if len(report.Inserted) != 2 {
		t.Errorf("inserted = %d, want 2", len(report.Inserted))
	}
	if len(report.Ignored) != 3 {
		t.Errorf("ignored = %d, want 3", len(report.Ignored))
	}
	if report.RunID == "" {
		t.Error("report has no run id")
	}

	// Ignored rows keep their original indexes, in order.
	wantIndexes := []int{0, 2, 4}
	for i, ig := range report.Ignored {
		if ig.Index != wantIndexes[i] {
			t.Errorf("ignored[%d].Index = %d, want %d", i, ig.Index, wantIndexes[i])
		}
	}

	// Store grew by exactly the inserted count.
	if after := countRows(t, db, "questions"); after != before+2 {
		t.Errorf("questions grew by %d, want 2", after-before)
	}
}

func TestIngestKas(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	ingestor := NewIngestor(db, logging.NewNop())

	if _, err := NewStems(db).Add(ctx, Stem{StemID: "K1", Statement: "Knowledge of physical connections"}); err != nil {
		t.Fatalf("seed stem: %v", err)
	}

	rows := []Row{
		{"ka_number": "1.01", "stem_id": "K1"},
		{"ka_number": "1.01", "stem_id": "K1"}, // duplicate tuple
		{"ka_number": "1.02", "stem_id": "K1"},
		{"ka_number": "1.03", "stem_id": "K9"}, // dangling stem
		{"ka_number": "", "stem_id": "K1"},     // invalid
	}

	report, err := ingestor.IngestKas(ctx, rows)
	if err != nil {
		t.Fatalf("IngestKas: %v", err)
	}
	if len(report.Inserted) != 2 {
		t.Errorf("inserted = %v, want 2 keys", report.Inserted)
	}
	if len(report.Ignored) != 3 {
		t.Errorf("ignored = %+v, want 3 rows", report.Ignored)
	}
	if n := countRows(t, db, "kas"); n != 2 {
		t.Errorf("kas rows = %d, want 2", n)
	}
}

func TestIngestSystemKas(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	ingestor := NewIngestor(db, logging.NewNop())

	rows := []Row{
		{"system_number": "010", "ka_number": "1.01", "category": "Primary"},
		{"system_number": "010", "ka_number": "1.01"}, // duplicate
		{"system_number": "061", "ka_number": "2.02"},
	}
	report, err := ingestor.IngestSystemKas(ctx, rows)
	if err != nil {
		t.Fatalf("IngestSystemKas: %v", err)
	}
	if len(report.Inserted) != 2 || len(report.Ignored) != 1 {
		t.Errorf("inserted=%d ignored=%d, want 2/1", len(report.Inserted), len(report.Ignored))
	}
}

func TestIngestStems(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	ingestor := NewIngestor(db, logging.NewNop())

	rows := []Row{
		{"stem_id": "K1", "statement": "Knowledge of physical connections"},
		{"stem_id": "K1", "statement": "Resubmitted statement"}, // duplicate code
		{"stem_id": "A2", "statement": "Ability to predict impacts"},
		{"stem_id": "A3"}, // missing statement
	}
	report, err := ingestor.IngestStems(ctx, rows)
	if err != nil {
		t.Fatalf("IngestStems: %v", err)
	}
	if len(report.Inserted) != 2 || len(report.Ignored) != 2 {
		t.Errorf("inserted=%v ignored=%+v", report.Inserted, report.Ignored)
	}

	// First write wins; the duplicate did not overwrite.
	s, found, err := NewStems(db).Get(ctx, "K1")
	if err != nil || !found {
		t.Fatalf("Get stem: found=%v err=%v", found, err)
	}
	if s.Statement != "Knowledge of physical connections" {
		t.Errorf("statement = %q, duplicate overwrote original", s.Statement)
	}
}

func TestIngestBatchCap(t *testing.T) {
	ctx := context.Background()
	ingestor := NewIngestor(openTestStore(t), logging.NewNop())
	ingestor.MaxRows = 1

	_, err := ingestor.IngestStems(ctx, []Row{
		{"stem_id": "K1", "statement": "one"},
		{"stem_id": "K2", "statement": "two"},
	})
	if !bankerrors.HasCode(err, bankerrors.Validation) {
		t.Errorf("over-cap batch = %v, want VALIDATION", err)
	}
}

func TestIngestNumericValuesCoerce(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	ingestor := NewIngestor(db, logging.NewNop())

	// Spreadsheet-derived bags routinely carry numbers where text is expected.
	report, err := ingestor.IngestQuestions(ctx, []Row{
		{"question_text": "Coerced row text", "difficulty": 3, "category": "Plant Systems"},
	})
	if err != nil {
		t.Fatalf("IngestQuestions: %v", err)
	}
	if len(report.Inserted) != 1 {
		t.Fatalf("inserted = %d, want 1", len(report.Inserted))
	}

	got, err := NewQuestions(db).List(ctx, QuestionFilter{Difficulty: strptr("3")})
	if err != nil || len(got) != 1 {
		t.Errorf("List by coerced difficulty = %v (%d rows), want 1", err, len(got))
	}
}
