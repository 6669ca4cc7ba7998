package submission

import (
	"math"
	"strings"
	"time"
)

// Status represents the lifecycle of a submission.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusAnalyzing Status = "analyzing"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

// DefaultLabel is given to submissions created without a student label.
const DefaultLabel = "New Student"

// AIThreshold is the score above which a result is presented as AI generated.
const AIThreshold = 50

func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusAnalyzing, StatusDone, StatusError:
		return true
	}
	return false
}

// Pending reports whether a batch pass should pick the status up.
func (s Status) Pending() bool {
	return s == StatusIdle || s == StatusError
}

// Result is the analysis outcome attached to a done submission.
type Result struct {
	AIScore     int       `json:"ai_score"`
	Reasoning   string    `json:"reasoning"`
	IsDuplicate bool      `json:"is_duplicate"`
	ModelUsed   string    `json:"model"`
	Timestamp   time.Time `json:"timestamp"`
}

// Verdict is the short label shown next to a score.
func (r Result) Verdict() string {
	if r.AIScore > AIThreshold {
		return "AI Detected"
	}
	return "Human Likely"
}

type Submission struct {
	ID           string
	StudentLabel string
	Content      string
	Status       Status
	Result       *Result
	ErrorMessage string
	LastUpdated  time.Time
}

func New(id string, now time.Time) *Submission {
	return &Submission{
		ID:           id,
		StudentLabel: DefaultLabel,
		Status:       StatusIdle,
		LastUpdated:  now,
	}
}

// HasContent reports whether the submission has non-whitespace content.
func (s *Submission) HasContent() bool {
	return strings.TrimSpace(s.Content) != ""
}

// Stats summarizes a workspace.
type Stats struct {
	Total        int
	Analyzed     int
	AverageScore int
}

// Summarize counts done submissions and averages their scores, rounded to the
// nearest integer. AverageScore is 0 when nothing has been analyzed.
func Summarize(subs []*Submission) Stats {
	st := Stats{Total: len(subs)}
	sum := 0
	for _, s := range subs {
		if s.Status != StatusDone || s.Result == nil {
			continue
		}
		st.Analyzed++
		sum += s.Result.AIScore
	}
	if st.Analyzed > 0 {
		st.AverageScore = int(math.Round(float64(sum) / float64(st.Analyzed)))
	}
	return st
}
