// Package survey runs the onboarding questionnaire and records answers.
package survey

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"unicode/utf8"
)

// MaxAnswerRunes caps a stored answer.
const MaxAnswerRunes = 500

// ErrNotActive is returned when the user has no questionnaire in progress.
var ErrNotActive = errors.New("survey not active")

// ErrNoAnswer is returned by Send when the current question is unanswered.
var ErrNoAnswer = errors.New("current question has no answer")

// Recorder persists questionnaire rows. Row and ID are assigned by StartRow.
type Recorder interface {
	StartRow(ctx context.Context) (row, id int, err error)
	UpdateCell(ctx context.Context, row int, column, value string) error
}

// Step describes what to show after a Start, Answer or Send.
type Step struct {
	Question string // HTML text of the next question, empty when finished
	Done     bool
	RecordID int  // spreadsheet id, valid when HasID
	HasID    bool
	Previous int  // message id of the question just answered (0 if unknown)
}

type session struct {
	step      int // 1-based current question
	answers   map[int]string
	row       int
	id        int
	recorded  bool
	messageID int
}

// Flow holds one questionnaire session per user.
type Flow struct {
	questions []Question
	recorder  Recorder // nil disables recording

	mu       sync.Mutex
	sessions map[string]*session
}

func NewFlow(questions []Question, recorder Recorder) *Flow {
	return &Flow{
		questions: questions,
		recorder:  recorder,
		sessions:  make(map[string]*session),
	}
}

// Total is the number of active questions.
func (f *Flow) Total() int { return len(f.questions) }

// Start begins (or restarts) the questionnaire and returns the first question.
// Recording failures are logged and never block the flow.
func (f *Flow) Start(ctx context.Context, userID string) Step {
	s := &session{step: 1, answers: make(map[int]string)}
	if f.recorder != nil {
		row, id, err := f.recorder.StartRow(ctx)
		if err != nil {
			slog.Warn("survey: start row failed", "user_id", userID, "error", err)
		} else {
			s.row, s.id, s.recorded = row, id, true
		}
	}

	f.mu.Lock()
	f.sessions[userID] = s
	f.mu.Unlock()

	return Step{Question: FormatQuestion(f.questions[0], 1, len(f.questions))}
}

// Active reports whether the user is answering questions.
func (f *Flow) Active(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sessions[userID]
	return ok
}

// SetQuestionMessage remembers which message shows the current question.
func (f *Flow) SetQuestionMessage(userID string, messageID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[userID]; ok {
		s.messageID = messageID
	}
}

// Answer stores text as the answer to the current question and advances.
func (f *Flow) Answer(ctx context.Context, userID, text string) (Step, error) {
	f.mu.Lock()
	s, ok := f.sessions[userID]
	if !ok {
		f.mu.Unlock()
		return Step{}, ErrNotActive
	}
	step := s.step
	answer := capRunes(text, MaxAnswerRunes)
	s.answers[step] = answer
	row, recorded := s.row, s.recorded
	f.mu.Unlock()

	if recorded {
		f.record(ctx, userID, row, "q"+strconv.Itoa(step), answer)
		switch step {
		case 1:
			f.record(ctx, userID, row, ColumnFIO, answer)
		case 2:
			f.record(ctx, userID, row, ColumnBirthYear, answer)
		}
	}
	return f.advance(userID), nil
}

// Send advances past the current question if it already has an answer.
func (f *Flow) Send(userID string) (Step, error) {
	f.mu.Lock()
	s, ok := f.sessions[userID]
	if !ok {
		f.mu.Unlock()
		return Step{}, ErrNotActive
	}
	_, answered := s.answers[s.step]
	f.mu.Unlock()
	if !answered {
		return Step{}, ErrNoAnswer
	}
	return f.advance(userID), nil
}

// Cancel drops the user's session.
func (f *Flow) Cancel(userID string) {
	f.mu.Lock()
	delete(f.sessions, userID)
	f.mu.Unlock()
}

func (f *Flow) advance(userID string) Step {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[userID]
	if !ok {
		return Step{Done: true}
	}
	out := Step{Previous: s.messageID}
	s.messageID = 0
	s.step++
	if s.step <= len(f.questions) {
		out.Question = FormatQuestion(f.questions[s.step-1], s.step, len(f.questions))
		return out
	}
	delete(f.sessions, userID)
	out.Done = true
	out.RecordID, out.HasID = s.id, s.recorded
	return out
}

func (f *Flow) record(ctx context.Context, userID string, row int, column, value string) {
	if err := f.recorder.UpdateCell(ctx, row, column, value); err != nil {
		slog.Warn("survey: update cell failed", "user_id", userID, "column", column, "error", err)
	}
}

func capRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
