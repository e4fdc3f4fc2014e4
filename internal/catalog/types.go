// Package catalog implements the entity repositories of the exam bank:
// plants, exams, questions with their answers, stems, knowledge/ability
// items, system associations, and the junction relations between them.
// Repositories borrow the injected storage handle per call and return
// classified errors only.
package catalog

// Plant is a site owning zero or more exams.
type Plant struct {
	PlantID   int64  `json:"plant_id"`
	PlantName string `json:"plant_name"`
}

// Exam belongs to a plant and relates to questions through the
// exam_questions junction.
type Exam struct {
	ExamID   int64  `json:"exam_id"`
	ExamName string `json:"exam_name"`
	PlantID  int64  `json:"plant_id"`
}

// Question is an exam item. All classification fields are optional; empty
// strings are stored as NULL.
type Question struct {
	QuestionID          int64  `json:"question_id"`
	QuestionText        string `json:"question_text"`
	Category            string `json:"category,omitempty"`
	ExamLevel           string `json:"exam_level,omitempty"`
	TechnicalReferences string `json:"technical_references,omitempty"`
	Difficulty          string `json:"difficulty,omitempty"`
	CognitiveLevel      string `json:"cognitive_level,omitempty"`
	Objective           string `json:"objective,omitempty"`
	LastUsed            string `json:"last_used,omitempty"`
	ImageRef            string `json:"image_ref,omitempty"`
}

// Answer belongs to exactly one question. A well-formed question has exactly
// one correct answer; the store does not hard-enforce that, callers maintain
// it.
type Answer struct {
	AnswerID      int64  `json:"answer_id"`
	QuestionID    int64  `json:"question_id"`
	AnswerText    string `json:"answer_text"`
	IsCorrect     bool   `json:"is_correct"`
	Justification string `json:"justification,omitempty"`
	OptionLabel   string `json:"option_label,omitempty"`
}

// Stem is a generic knowledge/ability statement template, keyed by a short
// code such as "K1".
type Stem struct {
	StemID    string `json:"stem_id"`
	Statement string `json:"statement"`
}

// Ka is a concrete knowledge/ability item. Its number is only meaningful
// combined with its stem, so the identity is the (ka_number, stem_id) tuple.
type Ka struct {
	KaNumber string `json:"ka_number"`
	StemID   string `json:"stem_id"`
}

// SystemKa associates a plant system with a ka, categorized.
type SystemKa struct {
	SystemNumber string `json:"system_number"`
	KaNumber     string `json:"ka_number"`
	Category     string `json:"category,omitempty"`
}

// KaLink is a question_ka_numbers junction row. Statement and Importance are
// snapshots taken at link time; they do not follow later edits of the source
// stem or ka.
type KaLink struct {
	QuestionID int64  `json:"question_id"`
	KaNumber   string `json:"ka_number"`
	StemID     string `json:"stem_id"`
	Statement  string `json:"statement,omitempty"`
	Importance string `json:"importance,omitempty"`
}

// SystemLink is a question_system_numbers junction row. Description is a
// snapshot taken at link time.
type SystemLink struct {
	QuestionID   int64  `json:"question_id"`
	SystemNumber string `json:"system_number"`
	Description  string `json:"description,omitempty"`
}

// NumberedQuestion is a question scoped to an exam, carrying its ordinal
// position within that exam.
type NumberedQuestion struct {
	Question
	QuestionNumber int `json:"question_number"`
}

// QuestionDetails is a question with all of its related collections attached.
type QuestionDetails struct {
	Question
	Answers     []Answer     `json:"answers"`
	KaLinks     []KaLink     `json:"ka_links"`
	SystemLinks []SystemLink `json:"system_links"`
}

// ExamDetails is an exam with its questions attached, ordered by
// question_number.
type ExamDetails struct {
	Exam
	Questions []NumberedQuestion `json:"questions"`
}

// KaRef names a ka to link to a question when adding it.
type KaRef struct {
	KaNumber   string `json:"ka_number"`
	StemID     string `json:"stem_id"`
	Importance string `json:"importance,omitempty"`
}

// SystemRef names a system to link to a question when adding it.
type SystemRef struct {
	SystemNumber string `json:"system_number"`
	Description  string `json:"description,omitempty"`
}

// NewQuestion is the input to the transactional question add: the question
// itself plus the children created with it.
type NewQuestion struct {
	Question    Question    `json:"question"`
	Answers     []Answer    `json:"answers,omitempty"`
	KaRefs      []KaRef     `json:"ka_refs,omitempty"`
	SystemRefs  []SystemRef `json:"system_refs,omitempty"`
}
