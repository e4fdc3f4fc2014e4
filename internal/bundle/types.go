// Package bundle moves exams between stores as self-contained archives: a
// gzip-compressed JSON or YAML document holding the exam with full question
// details plus the taxonomy rows its links depend on, described by a TOML
// manifest sitting next to it.
package bundle

import (
	"exambank/internal/catalog"
)

// Supported bundle document formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ManifestName is the fixed manifest filename inside a bundle directory.
const ManifestName = "manifest.toml"

// Manifest describes a bundle directory. It is the import entry point; the
// document itself is only read after the manifest names its file and format.
type Manifest struct {
	ExamName      string `toml:"exam_name"`
	PlantName     string `toml:"plant_name"`
	Format        string `toml:"format"`
	QuestionCount int    `toml:"question_count"`
	CreatedAt     string `toml:"created_at"`
	BundleFile    string `toml:"bundle_file"`
}

// Question is a question inside a bundle document, carrying its ordinal
// position on the exported exam.
type Question struct {
	catalog.QuestionDetails `yaml:",inline"`
	QuestionNumber          int `json:"question_number" yaml:"question_number"`
}

// Document is the decompressed bundle payload. Taxonomy rows are included so
// an import into a fresh store can rebuild the links the questions carry.
type Document struct {
	ExamName  string             `json:"exam_name" yaml:"exam_name"`
	PlantName string             `json:"plant_name" yaml:"plant_name"`
	Stems     []catalog.Stem     `json:"stems" yaml:"stems"`
	Kas       []catalog.Ka       `json:"kas" yaml:"kas"`
	SystemKas []catalog.SystemKa `json:"system_kas" yaml:"system_kas"`
	Questions []Question         `json:"questions" yaml:"questions"`
}

// ImportReport summarizes a bundle import. Taxonomy rows go through the
// duplicate-tolerant ingestor, so re-importing a bundle is safe.
type ImportReport struct {
	ExamID          int64 `json:"exam_id"`
	QuestionsAdded  int   `json:"questions_added"`
	QuestionsReused int   `json:"questions_reused"`
	QuestionsLinked int   `json:"questions_linked"`
}
