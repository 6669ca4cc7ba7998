package submission

import (
	"fmt"
	"strings"
	"time"
)

var transitions = map[Status][]Status{
	StatusIdle:      {StatusAnalyzing, StatusIdle},
	StatusAnalyzing: {StatusDone, StatusError, StatusIdle},
	StatusDone:      {StatusIdle},
	StatusError:     {StatusAnalyzing, StatusIdle},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s *Submission) move(to Status, now time.Time) error {
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	s.LastUpdated = now
	return nil
}

// BeginAnalysis moves an idle or errored submission to analyzing. Blank
// content is refused without changing state.
func (s *Submission) BeginAnalysis(now time.Time) error {
	if !s.HasContent() {
		return ErrEmptyContent
	}
	return s.move(StatusAnalyzing, now)
}

// Complete attaches r and clears any previous error.
func (s *Submission) Complete(r Result, now time.Time) error {
	if err := s.move(StatusDone, now); err != nil {
		return err
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
	s.Result = &r
	s.ErrorMessage = ""
	return nil
}

// Fail records msg. A result from an earlier run is left as is.
func (s *Submission) Fail(msg string, now time.Time) error {
	if err := s.move(StatusError, now); err != nil {
		return err
	}
	if strings.TrimSpace(msg) == "" {
		msg = "Analysis failed"
	}
	s.ErrorMessage = msg
	return nil
}

// Edit replaces label and content and resets the submission to idle, dropping
// any result or error tied to the old content.
func (s *Submission) Edit(label, content string, now time.Time) {
	if strings.TrimSpace(label) == "" {
		label = DefaultLabel
	}
	s.StudentLabel = label
	s.Content = content
	s.Status = StatusIdle
	s.Result = nil
	s.ErrorMessage = ""
	s.LastUpdated = now
}
