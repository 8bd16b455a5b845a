package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Candidate is one classifiable tariff code returned by a search. Candidates
// are produced fresh on every search call, ordered by descending score, and
// never persisted.
type Candidate struct {
	Code            string
	Description     string
	SimilarityScore float32 // clamped to [0,1]
}

// QA is a single question/answer exchange in a classification session.
type QA struct {
	Question string
	Answer   string
}

// ConversationState carries everything a classification session has learned
// so far. It is owned by exactly one session and mutated only by the
// orchestrator; QAHistory and Iteration grow monotonically until termination.
type ConversationState struct {
	ProductDescription string
	QAHistory          []QA
	CurrentCandidates  []Candidate
	Iteration          int
}

// OutcomeType discriminates what the question generator produced.
type OutcomeType int

const (
	// OutcomeQuestion asks the caller one more discriminating question.
	OutcomeQuestion OutcomeType = iota + 1
	// OutcomeConclusion recommends committing to the current candidates.
	OutcomeConclusion
)

// Outcome is the question generator's decision for one turn: either a single
// discriminating question (optionally multiple choice) or a conclusion.
type Outcome struct {
	Type    OutcomeType
	Text    string
	Options []string // non-empty only for multiple-choice questions
}

// ClassificationStatus describes how a classification attempt ended.
type ClassificationStatus int

const (
	// StatusClassified means the session converged on a high-confidence code.
	StatusClassified ClassificationStatus = iota + 1
	// StatusNeedsReview means the session converged but the best score is low
	// enough that the result should be flagged for manual review.
	StatusNeedsReview
	// StatusNoResult means no candidate survived the search threshold.
	StatusNoResult
)

// TrailEntry records one iteration of the classification loop for auditing.
type TrailEntry struct {
	Query      string
	Candidates []Candidate
	Question   string
	Answer     string
}

// Result is the terminal outcome of a classification session.
type Result struct {
	Code        string
	Description string
	Score       float32
	Status      ClassificationStatus
	Conclusion  string // generator's closing analysis, if any
	Trail       []TrailEntry
}

// Precedent is an archived, finalized classification: the product
// description, the committed code and the Q&A trail that led there.
// Precedents are the durable record handed to the session I/O boundary.
type Precedent struct {
	Id                 ID
	ProductDescription string
	Code               string
	CodeDescription    string
	Score              float32
	Iterations         int
	QAHistory          []QA
	CreatedAt          time.Time
}

// NewPrecedent creates a precedent with a content-derived ID and the current
// time. The ID is deterministic over description and code, so re-archiving
// the same classification overwrites rather than duplicates.
func NewPrecedent(description, code, codeDescription string, score float32, iterations int, history []QA) *Precedent {
	return &Precedent{
		Id:                 IDFromContent(description + "\x00" + code),
		ProductDescription: description,
		Code:               code,
		CodeDescription:    codeDescription,
		Score:              score,
		Iterations:         iterations,
		QAHistory:          history,
		CreatedAt:          time.Now().UTC(),
	}
}
