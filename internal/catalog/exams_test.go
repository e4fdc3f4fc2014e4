package catalog

import (
	"context"
	"testing"

	bankerrors "exambank/internal/errors"
)

func TestExamAddRequiresExistingPlant(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	exams := NewExams(db)

	_, err := exams.Add(ctx, Exam{ExamName: "RO Exam", PlantID: 99})
	if !bankerrors.HasCode(err, bankerrors.Constraint) {
		t.Errorf("Add with dangling plant = %v, want CONSTRAINT", err)
	}
	if n := countRows(t, db, "exams"); n != 0 {
		t.Errorf("exams rows after failed add = %d, want 0", n)
	}
}

func TestExamAddValidation(t *testing.T) {
	ctx := context.Background()
	exams := NewExams(openTestStore(t))

	if _, err := exams.Add(ctx, Exam{ExamName: "", PlantID: 1}); !bankerrors.HasCode(err, bankerrors.Validation) {
		t.Errorf("missing name = %v, want VALIDATION", err)
	}
	if _, err := exams.Add(ctx, Exam{ExamName: "RO Exam"}); !bankerrors.HasCode(err, bankerrors.Validation) {
		t.Errorf("missing plant_id = %v, want VALIDATION", err)
	}
}

// TestExamQuestionLinkScenario walks the reference scenario: linking a
// question before it exists fails on the foreign key; after the question is
// added the same link succeeds and shows up in the exam's question list.
func TestExamQuestionLinkScenario(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	plants := NewPlants(db)
	exams := NewExams(db)
	questions := NewQuestions(db)

	plantID, err := plants.Add(ctx, Plant{PlantName: "Davis-Besse"})
	if err != nil {
		t.Fatalf("Add plant: %v", err)
	}
	if plantID != 1 {
		t.Errorf("plant id = %d, want 1", plantID)
	}

	examID, err := exams.Add(ctx, Exam{ExamName: "RO Exam", PlantID: plantID})
	if err != nil {
		t.Fatalf("Add exam: %v", err)
	}
	if examID != 1 {
		t.Errorf("exam id = %d, want 1", examID)
	}

	// Question 5 does not exist yet.
	err = exams.AddQuestion(ctx, examID, 5, 1)
	if !bankerrors.HasCode(err, bankerrors.Constraint) {
		t.Fatalf("link to missing question = %v, want CONSTRAINT", err)
	}
	if n := countRows(t, db, "exam_questions"); n != 0 {
		t.Errorf("exam_questions after failed link = %d, want 0", n)
	}

	// Create questions 1-5, then the same link succeeds.
	var qID int64
	for i := 0; i < 5; i++ {
		texts := []string{
			"Which parameter bounds subcooling margin?",
			"What starts on a safety injection signal?",
			"Which valve isolates letdown?",
			"What trips the main turbine?",
			"Which pump supplies seal injection?",
		}
		qID, err = questions.Add(ctx, NewQuestion{Question: Question{QuestionText: texts[i]}})
		if err != nil {
			t.Fatalf("Add question %d: %v", i+1, err)
		}
	}
	if qID != 5 {
		t.Fatalf("last question id = %d, want 5", qID)
	}

	if err := exams.AddQuestion(ctx, examID, 5, 1); err != nil {
		t.Fatalf("link after question exists: %v", err)
	}

	linked, err := exams.QuestionsByExam(ctx, examID)
	if err != nil {
		t.Fatalf("QuestionsByExam: %v", err)
	}
	if len(linked) != 1 || linked[0].QuestionID != 5 {
		t.Errorf("QuestionsByExam = %+v, want question 5", linked)
	}
}

func TestExamQuestionOrdering(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	plants := NewPlants(db)
	exams := NewExams(db)
	questions := NewQuestions(db)

	plantID, _ := plants.Add(ctx, Plant{PlantName: "Perry"})
	examID, _ := exams.Add(ctx, Exam{ExamName: "SRO Exam", PlantID: plantID})

	texts := []string{"first stem text", "second stem text", "third stem text"}
	ids := make([]int64, 0, 3)
	for _, text := range texts {
		id, err := questions.Add(ctx, NewQuestion{Question: Question{QuestionText: text}})
		if err != nil {
			t.Fatalf("Add question: %v", err)
		}
		ids = append(ids, id)
	}

	// Link out of order with explicit ordinals.
	if err := exams.AddQuestion(ctx, examID, ids[2], 1); err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	if err := exams.AddQuestion(ctx, examID, ids[0], 2); err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	// Ordinal <= 0 appends after the current max.
	if err := exams.AddQuestion(ctx, examID, ids[1], 0); err != nil {
		t.Fatalf("AddQuestion append: %v", err)
	}

	details, found, err := exams.WithQuestions(ctx, examID)
	if err != nil || !found {
		t.Fatalf("WithQuestions: found=%v err=%v", found, err)
	}
	if len(details.Questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(details.Questions))
	}
	wantOrder := []int64{ids[2], ids[0], ids[1]}
	for i, nq := range details.Questions {
		if nq.QuestionID != wantOrder[i] {
			t.Errorf("position %d = question %d, want %d", i, nq.QuestionID, wantOrder[i])
		}
		if nq.QuestionNumber != i+1 {
			t.Errorf("position %d ordinal = %d, want %d", i, nq.QuestionNumber, i+1)
		}
	}
}

func TestExamRemoveQuestion(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	plants := NewPlants(db)
	exams := NewExams(db)
	questions := NewQuestions(db)

	plantID, _ := plants.Add(ctx, Plant{PlantName: "Perry"})
	examID, _ := exams.Add(ctx, Exam{ExamName: "RO Exam", PlantID: plantID})
	qID, _ := questions.Add(ctx, NewQuestion{Question: Question{QuestionText: "Which breaker feeds the bus?"}})

	if err := exams.AddQuestion(ctx, examID, qID, 1); err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	if err := exams.RemoveQuestion(ctx, examID, qID); err != nil {
		t.Fatalf("RemoveQuestion: %v", err)
	}
	if err := exams.RemoveQuestion(ctx, examID, qID); !bankerrors.HasCode(err, bankerrors.NotFound) {
		t.Errorf("second remove = %v, want NOT_FOUND", err)
	}

	// The question itself is untouched.
	if _, found, _ := questions.Get(ctx, qID); !found {
		t.Error("question disappeared with its link")
	}
}

func TestExamsByQuestion(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	plants := NewPlants(db)
	exams := NewExams(db)
	questions := NewQuestions(db)

	plantID, _ := plants.Add(ctx, Plant{PlantName: "Davis-Besse"})
	ro, _ := exams.Add(ctx, Exam{ExamName: "RO Exam", PlantID: plantID})
	sro, _ := exams.Add(ctx, Exam{ExamName: "SRO Exam", PlantID: plantID})
	qID, _ := questions.Add(ctx, NewQuestion{Question: Question{QuestionText: "Shared question text"}})

	if err := exams.AddQuestion(ctx, ro, qID, 1); err != nil {
		t.Fatalf("AddQuestion ro: %v", err)
	}
	if err := exams.AddQuestion(ctx, sro, qID, 7); err != nil {
		t.Fatalf("AddQuestion sro: %v", err)
	}

	got, err := exams.ExamsByQuestion(ctx, qID)
	if err != nil {
		t.Fatalf("ExamsByQuestion: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("exams for question = %d, want 2", len(got))
	}
}

func TestExamListByPlant(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	plants := NewPlants(db)
	exams := NewExams(db)

	besse, _ := plants.Add(ctx, Plant{PlantName: "Davis-Besse"})
	perry, _ := plants.Add(ctx, Plant{PlantName: "Perry"})
	exams.Add(ctx, Exam{ExamName: "RO Exam", PlantID: besse})
	exams.Add(ctx, Exam{ExamName: "SRO Exam", PlantID: besse})
	exams.Add(ctx, Exam{ExamName: "RO Exam", PlantID: perry})

	got, err := exams.List(ctx, ExamFilter{PlantID: &besse})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("exams for plant = %d, want 2", len(got))
	}

	name := "RO Exam"
	got, err = exams.List(ctx, ExamFilter{Name: &name, PlantID: &perry})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("combined filter = %d exams, want 1", len(got))
	}
}
