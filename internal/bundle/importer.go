package bundle

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"exambank/internal/catalog"
	bankerrors "exambank/internal/errors"
	"exambank/internal/logging"
	"exambank/internal/storage"
)

// Importer replays exam bundles into a store. Taxonomy rows go through the
// batch ingestor, so importing the same bundle twice only adds what is
// missing.
type Importer struct {
	db        *storage.DB
	plants    *catalog.Plants
	exams     *catalog.Exams
	questions *catalog.Questions
	ingestor  *catalog.Ingestor
	logger    *logging.Logger
}

// NewImporter creates an importer over the given store.
func NewImporter(db *storage.DB, logger *logging.Logger) *Importer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Importer{
		db:        db,
		plants:    catalog.NewPlants(db),
		exams:     catalog.NewExams(db),
		questions: catalog.NewQuestions(db),
		ingestor:  catalog.NewIngestor(db, logger),
		logger:    logger,
	}
}

// Import reads the manifest and bundle in dir and replays them. Existing
// plants, exams, and questions are matched by name or text and reused.
func (im *Importer) Import(ctx context.Context, dir string) (ImportReport, error) {
	manifest, err := readManifest(filepath.Join(dir, ManifestName))
	if err != nil {
		return ImportReport{}, err
	}
	doc, err := readDocument(filepath.Join(dir, manifest.BundleFile), manifest.Format)
	if err != nil {
		return ImportReport{}, err
	}

	if err := im.replayTaxonomy(ctx, doc); err != nil {
		return ImportReport{}, err
	}

	plantID, err := im.ensurePlant(ctx, doc.PlantName)
	if err != nil {
		return ImportReport{}, err
	}
	examID, err := im.ensureExam(ctx, doc.ExamName, plantID)
	if err != nil {
		return ImportReport{}, err
	}

	report := ImportReport{ExamID: examID}
	for _, q := range doc.Questions {
		questionID, reused, err := im.ensureQuestion(ctx, q)
		if err != nil {
			return report, err
		}
		if reused {
			report.QuestionsReused++
		} else {
			report.QuestionsAdded++
		}

		err = im.exams.AddQuestion(ctx, examID, questionID, q.QuestionNumber)
		if err != nil {
			// Re-importing a bundle hits the junction's primary key.
			if !bankerrors.HasCode(err, bankerrors.Constraint) {
				return report, err
			}
			continue
		}
		report.QuestionsLinked++
	}

	im.logger.Info("Imported exam bundle", map[string]interface{}{
		"exam":   doc.ExamName,
		"added":  report.QuestionsAdded,
		"reused": report.QuestionsReused,
		"linked": report.QuestionsLinked,
	})
	return report, nil
}

// replayTaxonomy pushes the bundle's stems, kas, and system associations
// through the duplicate-tolerant ingestor.
func (im *Importer) replayTaxonomy(ctx context.Context, doc Document) error {
	stemRows := make([]catalog.Row, 0, len(doc.Stems))
	for _, s := range doc.Stems {
		stemRows = append(stemRows, catalog.Row{"stem_id": s.StemID, "statement": s.Statement})
	}
	if _, err := im.ingestor.IngestStems(ctx, stemRows); err != nil {
		return err
	}

	kaRows := make([]catalog.Row, 0, len(doc.Kas))
	for _, k := range doc.Kas {
		kaRows = append(kaRows, catalog.Row{"ka_number": k.KaNumber, "stem_id": k.StemID})
	}
	if _, err := im.ingestor.IngestKas(ctx, kaRows); err != nil {
		return err
	}

	systemRows := make([]catalog.Row, 0, len(doc.SystemKas))
	for _, sk := range doc.SystemKas {
		systemRows = append(systemRows, catalog.Row{
			"system_number": sk.SystemNumber,
			"ka_number":     sk.KaNumber,
			"category":      sk.Category,
		})
	}
	if _, err := im.ingestor.IngestSystemKas(ctx, systemRows); err != nil {
		return err
	}
	return nil
}

// ensurePlant returns the id of the named plant, creating it if absent.
func (im *Importer) ensurePlant(ctx context.Context, name string) (int64, error) {
	existing, err := im.plants.List(ctx, catalog.PlantFilter{Name: &name})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return existing[0].PlantID, nil
	}
	return im.plants.Add(ctx, catalog.Plant{PlantName: name})
}

// ensureExam returns the id of the named exam under the plant, creating it
// if absent.
func (im *Importer) ensureExam(ctx context.Context, name string, plantID int64) (int64, error) {
	existing, err := im.exams.List(ctx, catalog.ExamFilter{Name: &name, PlantID: &plantID})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return existing[0].ExamID, nil
	}
	return im.exams.Add(ctx, catalog.Exam{ExamName: name, PlantID: plantID})
}

// ensureQuestion matches by exact question text; a hit is reused, a miss is
// created with the bundle's answers and links.
func (im *Importer) ensureQuestion(ctx context.Context, q Question) (int64, bool, error) {
	row, err := im.db.QueryRow(ctx,
		`SELECT question_id FROM questions WHERE question_text = ? LIMIT 1`, q.QuestionText)
	if err != nil {
		return 0, false, err
	}
	var id int64
	switch err := row.Scan(&id); err {
	case nil:
		return id, true, nil
	case sql.ErrNoRows:
	default:
		return 0, false, storage.Classify(err, "match question")
	}

	nq := catalog.NewQuestion{
		Question: q.Question,
		Answers:  q.Answers,
	}
	nq.Question.QuestionID = 0
	for _, link := range q.KaLinks {
		nq.KaRefs = append(nq.KaRefs, catalog.KaRef{
			KaNumber:   link.KaNumber,
			StemID:     link.StemID,
			Importance: link.Importance,
		})
	}
	for _, link := range q.SystemLinks {
		nq.SystemRefs = append(nq.SystemRefs, catalog.SystemRef{
			SystemNumber: link.SystemNumber,
			Description:  link.Description,
		})
	}
	id, err = im.questions.Add(ctx, nq)
	if err != nil {
		return 0, false, err
	}
	return id, false, nil
}

func readManifest(path string) (Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return Manifest{}, bankerrors.New(bankerrors.Validation, "read bundle manifest", err)
	}
	if m.BundleFile == "" {
		return Manifest{}, bankerrors.Newf(bankerrors.Validation, "manifest names no bundle file")
	}
	return m, nil
}

func readDocument(path, format string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, bankerrors.New(bankerrors.Validation, "open bundle file", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return Document{}, bankerrors.New(bankerrors.Validation, "decompress bundle", err)
	}
	defer gz.Close()

	var doc Document
	switch format {
	case FormatYAML:
		err = yaml.NewDecoder(gz).Decode(&doc)
	default:
		err = json.NewDecoder(gz).Decode(&doc)
	}
	if err != nil {
		return Document{}, bankerrors.New(bankerrors.Validation, "decode bundle", err)
	}
	return doc, nil
}
