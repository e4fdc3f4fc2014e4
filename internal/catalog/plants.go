package catalog

import (
	"context"
	"database/sql"
	"strings"

	bankerrors "exambank/internal/errors"
	"exambank/internal/storage"
)

// plantFields is the allowed filter set for plant searches.
var plantFields = []string{"plant_name"}

// PlantFilter narrows plant searches. Nil fields emit no predicate.
type PlantFilter struct {
	Name *string
}

func (f PlantFilter) params() map[string]interface{} {
	m := map[string]interface{}{}
	if f.Name != nil {
		m["plant_name"] = *f.Name
	}
	return m
}

// Plants is the plant repository.
type Plants struct {
	db *storage.DB
}

// NewPlants creates a plant repository over the given store.
func NewPlants(db *storage.DB) *Plants {
	return &Plants{db: db}
}

// Add inserts a plant and returns its generated id.
func (r *Plants) Add(ctx context.Context, p Plant) (int64, error) {
	if strings.TrimSpace(p.PlantName) == "" {
		return 0, bankerrors.Newf(bankerrors.Validation, "plant_name is required")
	}

	res, err := r.db.Exec(ctx, `INSERT INTO plants (plant_name) VALUES (?)`, p.PlantName)
	if err != nil {
		return 0, storage.Classify(err, "insert plant")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storage.Classify(err, "insert plant")
	}
	return id, nil
}

// Get returns the plant with the given id. A missing plant is reported via
// found=false, not an error.
func (r *Plants) Get(ctx context.Context, id int64) (Plant, bool, error) {
	row, err := r.db.QueryRow(ctx, `SELECT plant_id, plant_name FROM plants WHERE plant_id = ?`, id)
	if err != nil {
		return Plant{}, false, err
	}

	var p Plant
	if err := row.Scan(&p.PlantID, &p.PlantName); err != nil {
		if err == sql.ErrNoRows {
			return Plant{}, false, nil
		}
		return Plant{}, false, storage.Classify(err, "get plant")
	}
	return p, true, nil
}

// List returns plants matching the filter, in id order. An empty filter
// matches all plants.
func (r *Plants) List(ctx context.Context, f PlantFilter) ([]Plant, error) {
	clause, args := storage.BuildPredicate(f.params(), plantFields)
	rows, err := r.db.Query(ctx,
		`SELECT plant_id, plant_name FROM plants WHERE `+clause+` ORDER BY plant_id`, args...)
	if err != nil {
		return nil, storage.Classify(err, "list plants")
	}
	defer rows.Close()

	plants := make([]Plant, 0)
	for rows.Next() {
		var p Plant
		if err := rows.Scan(&p.PlantID, &p.PlantName); err != nil {
			return nil, storage.Classify(err, "scan plant")
		}
		plants = append(plants, p)
	}
	return plants, storage.Classify(rows.Err(), "list plants")
}

// Update rewrites a plant by id.
func (r *Plants) Update(ctx context.Context, p Plant) error {
	if p.PlantID == 0 {
		return bankerrors.Newf(bankerrors.Validation, "plant_id is required")
	}
	if strings.TrimSpace(p.PlantName) == "" {
		return bankerrors.Newf(bankerrors.Validation, "plant_name is required")
	}

	res, err := r.db.Exec(ctx, `UPDATE plants SET plant_name = ? WHERE plant_id = ?`, p.PlantName, p.PlantID)
	if err != nil {
		return storage.Classify(err, "update plant")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Classify(err, "update plant")
	}
	if affected == 0 {
		return bankerrors.Newf(bankerrors.NotFound, "plant %d not found", p.PlantID)
	}
	return nil
}

// Delete removes a plant. Its exams and their junction rows cascade away
// with it.
func (r *Plants) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM plants WHERE plant_id = ?`, id)
	if err != nil {
		return storage.Classify(err, "delete plant")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Classify(err, "delete plant")
	}
	if affected == 0 {
		return bankerrors.Newf(bankerrors.NotFound, "plant %d not found", id)
	}
	return nil
}
