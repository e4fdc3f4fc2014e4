package catalog

import (
	"context"
	"testing"

	bankerrors "exambank/internal/errors"
)

func TestStemDuplicateIsConstraint(t *testing.T) {
	ctx := context.Background()
	stems := NewStems(openTestStore(t))

	if _, err := stems.Add(ctx, Stem{StemID: "K1", Statement: "Knowledge of physical connections"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err := stems.Add(ctx, Stem{StemID: "K1", Statement: "Different statement"})
	if !bankerrors.HasCode(err, bankerrors.Constraint) {
		t.Errorf("duplicate stem = %v, want CONSTRAINT", err)
	}
}

func TestKaCompositeKey(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	stems := NewStems(db)
	kas := NewKas(db)

	stems.Add(ctx, Stem{StemID: "K1", Statement: "Knowledge of physical connections"})
	stems.Add(ctx, Stem{StemID: "A2", Statement: "Ability to predict impacts on (SYSTEM)"})

	// The same number under different stems is two distinct kas.
	if err := kas.Add(ctx, Ka{KaNumber: "1.01", StemID: "K1"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := kas.Add(ctx, Ka{KaNumber: "1.01", StemID: "A2"}); err != nil {
		t.Fatalf("Add same number under other stem: %v", err)
	}

	// Same full tuple is a duplicate under direct add.
	err := kas.Add(ctx, Ka{KaNumber: "1.01", StemID: "K1"})
	if !bankerrors.HasCode(err, bankerrors.Constraint) {
		t.Errorf("duplicate tuple = %v, want CONSTRAINT", err)
	}

	// Dangling stem reference is rejected.
	err = kas.Add(ctx, Ka{KaNumber: "2.01", StemID: "K9"})
	if !bankerrors.HasCode(err, bankerrors.Constraint) {
		t.Errorf("dangling stem = %v, want CONSTRAINT", err)
	}

	_, found, err := kas.Get(ctx, "1.01", "K1")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}

	under, err := kas.ListByStem(ctx, "K1")
	if err != nil || len(under) != 1 {
		t.Errorf("ListByStem = %v (%d kas), want 1", err, len(under))
	}
}

func TestStemDeleteCascadesKas(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	stems := NewStems(db)
	kas := NewKas(db)

	stems.Add(ctx, Stem{StemID: "K1", Statement: "Knowledge of physical connections"})
	kas.Add(ctx, Ka{KaNumber: "1.01", StemID: "K1"})
	kas.Add(ctx, Ka{KaNumber: "1.02", StemID: "K1"})

	if err := stems.Delete(ctx, "K1"); err != nil {
		t.Fatalf("Delete stem: %v", err)
	}
	if n := countRows(t, db, "kas"); n != 0 {
		t.Errorf("kas after stem delete = %d, want 0", n)
	}
}

func TestSystemKaCrud(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	systemKas := NewSystemKas(db)

	if err := systemKas.Add(ctx, SystemKa{SystemNumber: "010", KaNumber: "1.01", Category: "Primary"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := systemKas.Add(ctx, SystemKa{SystemNumber: "010", KaNumber: "1.02", Category: "Primary"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := systemKas.Add(ctx, SystemKa{SystemNumber: "061", KaNumber: "1.01", Category: "Secondary"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	err := systemKas.Add(ctx, SystemKa{SystemNumber: "010", KaNumber: "1.01"})
	if !bankerrors.HasCode(err, bankerrors.Constraint) {
		t.Errorf("duplicate tuple = %v, want CONSTRAINT", err)
	}

	if err := systemKas.Add(ctx, SystemKa{SystemNumber: "", KaNumber: "1.01"}); !bankerrors.HasCode(err, bankerrors.Validation) {
		t.Errorf("missing system_number = %v, want VALIDATION", err)
	}

	sk, found, err := systemKas.Get(ctx, "010", "1.01")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if sk.Category != "Primary" {
		t.Errorf("Category = %q", sk.Category)
	}

	bySystem, err := systemKas.List(ctx, SystemKaFilter{SystemNumber: strptr("010")})
	if err != nil || len(bySystem) != 2 {
		t.Errorf("List by system = %v (%d rows), want 2", err, len(bySystem))
	}
	byCategory, err := systemKas.List(ctx, SystemKaFilter{Category: strptr("Secondary")})
	if err != nil || len(byCategory) != 1 {
		t.Errorf("List by category = %v (%d rows), want 1", err, len(byCategory))
	}

	if err := systemKas.Delete(ctx, "061", "1.01"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := systemKas.Delete(ctx, "061", "1.01"); !bankerrors.HasCode(err, bankerrors.NotFound) {
		t.Errorf("second delete = %v, want NOT_FOUND", err)
	}
}
