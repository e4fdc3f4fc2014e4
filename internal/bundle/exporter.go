package bundle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"exambank/internal/catalog"
	bankerrors "exambank/internal/errors"
	"exambank/internal/logging"
	"exambank/internal/storage"
)

// Exporter writes exam bundles.
type Exporter struct {
	plants    *catalog.Plants
	exams     *catalog.Exams
	questions *catalog.Questions
	stems     *catalog.Stems
	systemKas *catalog.SystemKas
	logger    *logging.Logger
}

// NewExporter creates an exporter over the given store.
func NewExporter(db *storage.DB, logger *logging.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{
		plants:    catalog.NewPlants(db),
		exams:     catalog.NewExams(db),
		questions: catalog.NewQuestions(db),
		stems:     catalog.NewStems(db),
		systemKas: catalog.NewSystemKas(db),
		logger:    logger,
	}
}

// Export writes the exam's bundle and manifest into outDir and returns the
// bundle file path. The document format is json or yaml; the document itself
// is always gzip-compressed.
func (e *Exporter) Export(ctx context.Context, examID int64, format, outDir string) (string, error) {
	switch format {
	case FormatJSON, FormatYAML:
	case "":
		format = FormatJSON
	default:
		return "", bankerrors.Newf(bankerrors.Validation, "unsupported bundle format %q", format)
	}

	doc, err := e.buildDocument(ctx, examID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", bankerrors.New(bankerrors.Store, "create bundle directory", err)
	}

	bundleFile := slug(doc.ExamName) + ".bundle.gz"
	bundlePath := filepath.Join(outDir, bundleFile)
	if err := e.writeDocument(bundlePath, format, doc); err != nil {
		return "", err
	}

	manifest := Manifest{
		ExamName:      doc.ExamName,
		PlantName:     doc.PlantName,
		Format:        format,
		QuestionCount: len(doc.Questions),
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		BundleFile:    bundleFile,
	}
	if err := writeManifest(filepath.Join(outDir, ManifestName), manifest); err != nil {
		return "", err
	}

	e.logger.Info("Exported exam bundle", map[string]interface{}{
		"exam":      doc.ExamName,
		"questions": len(doc.Questions),
		"format":    format,
		"path":      bundlePath,
	})
	return bundlePath, nil
}

// buildDocument loads the exam, its questions with details, and the taxonomy
// rows the question links reference.
func (e *Exporter) buildDocument(ctx context.Context, examID int64) (Document, error) {
	details, found, err := e.exams.WithQuestions(ctx, examID)
	if err != nil {
		return Document{}, err
	}
	if !found {
		return Document{}, bankerrors.Newf(bankerrors.NotFound, "exam %d not found", examID)
	}
	plant, found, err := e.plants.Get(ctx, details.PlantID)
	if err != nil {
		return Document{}, err
	}
	if !found {
		return Document{}, bankerrors.Newf(bankerrors.NotFound, "plant %d not found", details.PlantID)
	}

	doc := Document{
		ExamName:  details.ExamName,
		PlantName: plant.PlantName,
		Stems:     make([]catalog.Stem, 0),
		Kas:       make([]catalog.Ka, 0),
		SystemKas: make([]catalog.SystemKa, 0),
		Questions: make([]Question, 0, len(details.Questions)),
	}

	stemIDs := map[string]bool{}
	kaKeys := map[string]bool{}
	systemNumbers := map[string]bool{}

	for _, nq := range details.Questions {
		qd, found, err := e.questions.DetailsByID(ctx, nq.QuestionID)
		if err != nil {
			return Document{}, err
		}
		if !found {
			continue
		}
		doc.Questions = append(doc.Questions, Question{
			QuestionDetails: qd,
			QuestionNumber:  nq.QuestionNumber,
		})
		for _, link := range qd.KaLinks {
			stemIDs[link.StemID] = true
			key := link.KaNumber + "\x00" + link.StemID
			if !kaKeys[key] {
				kaKeys[key] = true
				doc.Kas = append(doc.Kas, catalog.Ka{KaNumber: link.KaNumber, StemID: link.StemID})
			}
		}
		for _, link := range qd.SystemLinks {
			systemNumbers[link.SystemNumber] = true
		}
	}

	for stemID := range stemIDs {
		stem, found, err := e.stems.Get(ctx, stemID)
		if err != nil {
			return Document{}, err
		}
		if found {
			doc.Stems = append(doc.Stems, stem)
		}
	}
	sort.Slice(doc.Stems, func(i, j int) bool { return doc.Stems[i].StemID < doc.Stems[j].StemID })
	sort.Slice(doc.Kas, func(i, j int) bool {
		if doc.Kas[i].KaNumber != doc.Kas[j].KaNumber {
			return doc.Kas[i].KaNumber < doc.Kas[j].KaNumber
		}
		return doc.Kas[i].StemID < doc.Kas[j].StemID
	})

	for systemNumber := range systemNumbers {
		rows, err := e.systemKas.List(ctx, catalog.SystemKaFilter{SystemNumber: &systemNumber})
		if err != nil {
			return Document{}, err
		}
		doc.SystemKas = append(doc.SystemKas, rows...)
	}
	sort.Slice(doc.SystemKas, func(i, j int) bool {
		if doc.SystemKas[i].SystemNumber != doc.SystemKas[j].SystemNumber {
			return doc.SystemKas[i].SystemNumber < doc.SystemKas[j].SystemNumber
		}
		return doc.SystemKas[i].KaNumber < doc.SystemKas[j].KaNumber
	})

	return doc, nil
}

// writeDocument marshals the document in the requested format and writes it
// through a gzip stream.
func (e *Exporter) writeDocument(path, format string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return bankerrors.New(bankerrors.Store, "create bundle file", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(gz)
		if err := enc.Encode(doc); err != nil {
			gz.Close()
			return bankerrors.New(bankerrors.Store, "encode bundle", err)
		}
		if err := enc.Close(); err != nil {
			gz.Close()
			return bankerrors.New(bankerrors.Store, "encode bundle", err)
		}
	default:
		enc := json.NewEncoder(gz)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			gz.Close()
			return bankerrors.New(bankerrors.Store, "encode bundle", err)
		}
	}
	if err := gz.Close(); err != nil {
		return bankerrors.New(bankerrors.Store, "compress bundle", err)
	}
	return f.Close()
}

func writeManifest(path string, m Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return bankerrors.New(bankerrors.Store, "create manifest", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return bankerrors.New(bankerrors.Store, "encode manifest", err)
	}
	return f.Close()
}

// slug turns an exam name into a safe filename stem.
func slug(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, name)
	mapped = strings.Trim(mapped, "-")
	if mapped == "" {
		return fmt.Sprintf("exam-%d", time.Now().Unix())
	}
	return mapped
}
