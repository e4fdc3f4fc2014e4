package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"exambank/internal/catalog"
	"exambank/internal/logging"
	"exambank/internal/storage"
)

func openTestService(t *testing.T) *Service {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "bank.db"), logging.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := New(db, logging.NewNop())
	resp := svc.Initialize(context.Background())
	if !resp.Success {
		t.Fatalf("initialize failed: %s", resp.Error)
	}
	return svc
}

func TestEnvelopeSuccessCarriesData(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	resp := svc.AddPlant(ctx, catalog.Plant{PlantName: "Davis-Besse"})
	if !resp.Success {
		t.Fatalf("add plant failed: %s", resp.Error)
	}
	if resp.Error != "" {
		t.Fatalf("success response carries error %q", resp.Error)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data is %T, want map", resp.Data)
	}
	if data["plant_id"].(int64) != 1 {
		t.Fatalf("plant_id = %v, want 1", data["plant_id"])
	}
}

func TestEnvelopeFailureCarriesCode(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	resp := svc.AddPlant(ctx, catalog.Plant{PlantName: "   "})
	if resp.Success {
		t.Fatal("blank plant name accepted")
	}
	if !strings.Contains(resp.Error, "VALIDATION") {
		t.Fatalf("error %q does not carry the VALIDATION code", resp.Error)
	}
	if resp.Data != nil {
		t.Fatalf("failure response carries data %v", resp.Data)
	}
}

func TestGetMissingIsNotFoundAtTheBoundary(t *testing.T) {
	svc := openTestService(t)

	resp := svc.GetPlant(context.Background(), 404)
	if resp.Success {
		t.Fatal("missing plant reported as success")
	}
	if !strings.Contains(resp.Error, "NOT_FOUND") {
		t.Fatalf("error %q does not carry the NOT_FOUND code", resp.Error)
	}
}

func TestListEmptyIsSuccessWithEmptySlice(t *testing.T) {
	svc := openTestService(t)

	resp := svc.ListPlants(context.Background(), catalog.PlantFilter{})
	if !resp.Success {
		t.Fatalf("list failed: %s", resp.Error)
	}
	plants, ok := resp.Data.([]catalog.Plant)
	if !ok {
		t.Fatalf("data is %T, want []catalog.Plant", resp.Data)
	}
	if len(plants) != 0 {
		t.Fatalf("got %d plants from an empty store", len(plants))
	}
}

func TestIngestWarnsWhenRowsAreIgnored(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	rows := []catalog.Row{
		{"stem_id": "K1", "statement": "Knowledge of facility operating characteristics"},
		{"stem_id": "K1", "statement": "duplicate"},
	}
	resp := svc.IngestStems(ctx, rows)
	if !resp.Success {
		t.Fatalf("ingest failed: %s", resp.Error)
	}
	report, ok := resp.Data.(catalog.IngestReport)
	if !ok {
		t.Fatalf("data is %T, want catalog.IngestReport", resp.Data)
	}
	if len(report.Ignored) != 1 {
		t.Fatalf("ignored %d rows, want 1", len(report.Ignored))
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0].Code != "ROWS_IGNORED" {
		t.Fatalf("warnings = %+v, want one ROWS_IGNORED", resp.Warnings)
	}
}

func TestIngestBatchCapFailsTheEnvelope(t *testing.T) {
	svc := openTestService(t)
	svc.SetMaxBatchRows(1)

	rows := []catalog.Row{
		{"stem_id": "K1", "statement": "one"},
		{"stem_id": "K2", "statement": "two"},
	}
	resp := svc.IngestStems(context.Background(), rows)
	if resp.Success {
		t.Fatal("oversized batch accepted")
	}
	if !strings.Contains(resp.Error, "VALIDATION") {
		t.Fatalf("error %q does not carry the VALIDATION code", resp.Error)
	}
}

func TestOperationsAfterCloseFailTheEnvelope(t *testing.T) {
	svc := openTestService(t)

	if resp := svc.Close(); !resp.Success {
		t.Fatalf("close failed: %s", resp.Error)
	}
	resp := svc.ListPlants(context.Background(), catalog.PlantFilter{})
	if resp.Success {
		t.Fatal("list succeeded on a closed store")
	}
	if !strings.Contains(resp.Error, "CONNECTION_CLOSED") {
		t.Fatalf("error %q does not carry the CONNECTION_CLOSED code", resp.Error)
	}
	// A second close is a quiet no-op.
	if resp := svc.Close(); !resp.Success {
		t.Fatalf("second close failed: %s", resp.Error)
	}
}

func TestQuestionLifecycleThroughTheService(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	if resp := svc.AddStem(ctx, catalog.Stem{StemID: "K1", Statement: "Knowledge of design features"}); !resp.Success {
		t.Fatalf("add stem: %s", resp.Error)
	}
	if resp := svc.AddKa(ctx, catalog.Ka{KaNumber: "295001", StemID: "K1"}); !resp.Success {
		t.Fatalf("add ka: %s", resp.Error)
	}

	add := svc.AddQuestion(ctx, catalog.NewQuestion{
		Question: catalog.Question{QuestionText: "Which valve isolates the letdown line?"},
		Answers: []catalog.Answer{
			{OptionLabel: "A", AnswerText: "MOV-1", IsCorrect: true},
			{OptionLabel: "B", AnswerText: "MOV-2"},
			{OptionLabel: "C", AnswerText: "MOV-3"},
			{OptionLabel: "D", AnswerText: "MOV-4"},
		},
		KaRefs: []catalog.KaRef{{KaNumber: "295001", StemID: "K1", Importance: "3.4"}},
	})
	if !add.Success {
		t.Fatalf("add question: %s", add.Error)
	}
	id := add.Data.(map[string]interface{})["question_id"].(int64)

	details := svc.QuestionWithDetails(ctx, id)
	if !details.Success {
		t.Fatalf("details: %s", details.Error)
	}
	qd := details.Data.(catalog.QuestionDetails)
	if len(qd.Answers) != 4 || len(qd.KaLinks) != 1 {
		t.Fatalf("details carry %d answers and %d ka links, want 4 and 1", len(qd.Answers), len(qd.KaLinks))
	}

	if resp := svc.DeleteQuestion(ctx, id); !resp.Success {
		t.Fatalf("delete question: %s", resp.Error)
	}
	if resp := svc.GetQuestion(ctx, id); resp.Success {
		t.Fatal("deleted question still readable")
	}
}
