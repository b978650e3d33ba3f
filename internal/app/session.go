package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"english-quiz-service/internal/domain"
)

// SessionContext identifies the learner a session runs for. It is passed in explicitly
// so a session never reaches for ambient auth state.
type SessionContext struct {
	StudentID   string
	DisplayName string
	Role        domain.Role
}

// Outcome is what a settled submission produced.
type Outcome struct {
	Result  domain.Result
	Record  domain.ResultRecord
	Learner domain.LearnerAggregate
}

// Session controls one learner's attempt at one quiz: loading, countdown, answers,
// scoring and persistence. All state changes happen under mu, so ticks and learner
// actions are totally ordered.
type Session struct {
	id      string
	learner SessionContext
	quizID  string
	data    DataAccess
	opts    options
	log     *zap.Logger

	mu         sync.Mutex
	phase      domain.Phase
	quiz       domain.Quiz
	questions  []domain.Question
	current    int
	remaining  int
	answers    domain.Answers
	result     *domain.Result
	aggregate  *domain.LearnerAggregate
	err        error
	loading    bool
	submitted  bool // one-shot latch, set before any scoring or persistence
	closed     bool
	lastActive time.Time
	settledAt  time.Time

	ticker   Ticker
	stopTick chan struct{}

	done        chan struct{}
	doneOnce    sync.Once
	subscribers map[chan domain.SessionSnapshot]struct{}
}

// NewSession builds a session in the loading phase. Call Load before anything else.
func NewSession(id string, learner SessionContext, quizID string, data DataAccess, opts ...Option) *Session {
	return newSession(id, learner, quizID, data, buildOptions(opts))
}

func newSession(id string, learner SessionContext, quizID string, data DataAccess, o options) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		id:      id,
		learner: learner,
		quizID:  quizID,
		data:    data,
		opts:    o,
		log: o.logger.With(
			zap.String("session_id", id),
			zap.String("quiz_id", quizID),
			zap.String("student_id", learner.StudentID),
		),
		phase:       domain.PhaseLoading,
		answers:     domain.Answers{},
		lastActive:  o.now(),
		done:        make(chan struct{}),
		subscribers: make(map[chan domain.SessionSnapshot]struct{}),
	}
}

func (s *Session) ID() string              { return s.id }
func (s *Session) QuizID() string          { return s.quizID }
func (s *Session) Learner() SessionContext { return s.learner }
func (s *Session) Done() <-chan struct{}   { return s.done }

// Phase returns the current lifecycle phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Err returns the load or persistence error surfaced to the learner, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Result returns the locally computed result once scoring has happened. It stays
// available even when persisting it failed.
func (s *Session) Result() (domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.Result{}, false
	}
	return *s.result, true
}

// Load fetches the quiz and its questions. A failed fetch or an empty quiz leaves the
// session unavailable; the learner can only exit.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != domain.PhaseLoading || s.loading || s.closed {
		s.mu.Unlock()
		return domain.ErrInvalidPhase
	}
	s.loading = true
	s.mu.Unlock()

	quiz, questions, err := s.fetch(ctx)

	s.mu.Lock()
	s.loading = false
	if s.closed {
		s.mu.Unlock()
		return err
	}
	switch {
	case err != nil:
		s.phase = domain.PhaseUnavailable
		s.err = err
	case len(questions) == 0:
		s.quiz = quiz
		s.phase = domain.PhaseUnavailable
		err = domain.ErrNoQuestions
		s.err = err
	default:
		s.quiz = quiz
		s.questions = questions
		s.phase = domain.PhaseNotStarted
	}
	s.broadcastLocked()
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("quiz unavailable", zap.Error(err))
		return err
	}
	s.log.Debug("quiz loaded", zap.Int("questions", len(questions)))
	return nil
}

func (s *Session) fetch(ctx context.Context) (domain.Quiz, []domain.Question, error) {
	quiz, err := s.data.Quizzes.FetchQuiz(ctx, s.quizID)
	if err != nil {
		return domain.Quiz{}, nil, fmt.Errorf("fetch quiz %s: %w", s.quizID, err)
	}
	questions, err := s.data.Quizzes.FetchQuestions(ctx, s.quizID)
	if err != nil {
		return domain.Quiz{}, nil, fmt.Errorf("fetch questions for %s: %w", s.quizID, err)
	}
	ordered := make([]domain.Question, len(questions))
	for i, q := range questions {
		ordered[i] = q.WithDefaultPoints(quiz)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OrderNumber < ordered[j].OrderNumber
	})
	return quiz, ordered, nil
}

// Start begins the countdown from the quiz's time limit.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.phase != domain.PhaseNotStarted {
		return domain.ErrInvalidPhase
	}
	s.phase = domain.PhaseInProgress
	s.current = 0
	s.remaining = s.quiz.TimeLimit
	if s.remaining < 0 {
		s.remaining = 0
	}
	s.touchLocked()

	ticker := s.opts.newTicker(time.Second)
	stop := make(chan struct{})
	s.ticker = ticker
	s.stopTick = stop
	go s.runTimer(ticker, stop)

	s.broadcastLocked()
	s.log.Info("quiz started", zap.Int("time_limit", s.quiz.TimeLimit))
	return nil
}

func (s *Session) runTimer(ticker Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if finished := s.tick(); finished {
				return
			}
		}
	}
}

// tick counts one second down and auto-submits when time runs out. It reports whether
// the countdown is over.
func (s *Session) tick() bool {
	s.mu.Lock()
	if s.closed || s.phase != domain.PhaseInProgress || s.submitted {
		s.mu.Unlock()
		return true
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		s.broadcastLocked()
		s.mu.Unlock()
		return false
	}

	pending := s.beginSubmitLocked(true)
	s.mu.Unlock()

	s.log.Info("time expired, submitting")
	// Auto-submit is not cancellable: it must not depend on any request context.
	_, _ = s.persist(context.Background(), pending)
	return true
}

// SelectAnswer records label for the current question, replacing any earlier choice.
func (s *Session) SelectAnswer(label domain.OptionLabel) error {
	if !label.Valid() {
		return domain.ErrInvalidOption
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	s.answers[s.questions[s.current].ID] = label
	s.touchLocked()
	s.broadcastLocked()
	return nil
}

// Next moves to the following question, staying on the last one.
func (s *Session) Next() error {
	return s.move(1)
}

// Previous moves to the preceding question, staying on the first one.
func (s *Session) Previous() error {
	return s.move(-1)
}

// JumpTo moves directly to question index. Answers are untouched.
func (s *Session) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.questions) {
		return domain.ErrQuestionIndexOutOfRange
	}
	s.current = index
	s.touchLocked()
	s.broadcastLocked()
	return nil
}

func (s *Session) move(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	next := s.current + delta
	if next < 0 {
		next = 0
	}
	if next > len(s.questions)-1 {
		next = len(s.questions) - 1
	}
	s.current = next
	s.touchLocked()
	s.broadcastLocked()
	return nil
}

// Submit scores and persists the attempt. It needs at least one answer and is accepted
// once; every later call returns ErrAlreadySubmitted without side effects. A persistence
// error is returned alongside the locally computed outcome.
func (s *Session) Submit(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return Outcome{}, domain.ErrAlreadySubmitted
	}
	if err := s.requireInProgressLocked(); err != nil {
		s.mu.Unlock()
		return Outcome{}, err
	}
	if len(s.answers) == 0 {
		s.mu.Unlock()
		return Outcome{}, domain.ErrNoAnswers
	}
	s.touchLocked()
	pending := s.beginSubmitLocked(false)
	s.mu.Unlock()

	// The write must finish even if the caller goes away.
	return s.persist(context.WithoutCancel(ctx), pending)
}

type pendingSubmit struct {
	result domain.Result
}

// beginSubmitLocked trips the latch, releases the timer and scores the attempt.
func (s *Session) beginSubmitLocked(timedOut bool) pendingSubmit {
	s.submitted = true
	s.releaseTickerLocked()
	s.phase = domain.PhaseSubmitting

	result := Score(s.quiz, s.questions, s.answers, s.remaining, s.opts.now())
	result.TimedOut = timedOut
	s.result = &result
	s.broadcastLocked()
	return pendingSubmit{result: result}
}

func (s *Session) persist(ctx context.Context, p pendingSubmit) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.persistTimeout)
	defer cancel()

	outcome := Outcome{Result: p.result}
	reason := "explicit"
	if p.result.TimedOut {
		reason = "timeout"
	}
	s.opts.metrics.SessionSubmitted(reason, p.result.ScorePercentage)

	record, err := s.data.Results.InsertResult(ctx, domain.ResultRecord{
		ID:             uuid.NewString(),
		StudentID:      s.learner.StudentID,
		QuizID:         s.quizID,
		Score:          p.result.ScorePercentage,
		TotalQuestions: p.result.TotalQuestions,
		TimeTaken:      p.result.TimeUsed,
		CompletedAt:    p.result.CompletedAt,
	})
	if err != nil {
		s.opts.metrics.PersistenceFailed("insert_result")
		return s.settle(outcome, fmt.Errorf("insert result: %w", err))
	}
	outcome.Record = record

	aggregate, err := s.addPoints(ctx, p.result.PointsEarned)
	if err != nil {
		s.opts.metrics.PersistenceFailed("update_learner")
		return s.settle(outcome, fmt.Errorf("update learner aggregate: %w", err))
	}
	outcome.Learner = aggregate
	return s.settle(outcome, nil)
}

// addPoints adds this session's points to the learner aggregate. The read-modify-write
// path can lose an update when two sessions of one learner finish together.
func (s *Session) addPoints(ctx context.Context, delta int) (domain.LearnerAggregate, error) {
	studentID := s.learner.StudentID
	if s.opts.atomicPoints {
		if inc, ok := s.data.Learners.(PointsIncrementer); ok {
			return inc.AddPoints(ctx, studentID, delta)
		}
	}

	current, err := s.data.Learners.FetchLearnerAggregate(ctx, studentID)
	if err != nil {
		return domain.LearnerAggregate{}, err
	}
	total := current.TotalPoints + delta
	level := domain.LevelFor(total)
	if err := s.data.Learners.UpdateLearnerAggregate(ctx, studentID, total, level); err != nil {
		return domain.LearnerAggregate{}, err
	}
	return domain.LearnerAggregate{StudentID: studentID, TotalPoints: total, Level: level}, nil
}

// settle records how persistence ended. On failure the phase stays submitting and the
// error is surfaced; nothing is retried.
func (s *Session) settle(outcome Outcome, err error) (Outcome, error) {
	s.mu.Lock()
	s.settledAt = s.opts.now()
	if err != nil {
		s.err = err
	} else {
		s.phase = domain.PhaseCompleted
		aggregate := outcome.Learner
		s.aggregate = &aggregate
	}
	s.broadcastLocked()
	s.mu.Unlock()
	s.markDone()

	if err != nil {
		s.log.Error("persist quiz result", zap.Error(err))
		return outcome, err
	}
	s.log.Info("quiz completed",
		zap.Int("correct", outcome.Result.CorrectCount),
		zap.Int("total", outcome.Result.TotalQuestions),
		zap.Int("points", outcome.Result.PointsEarned),
		zap.Bool("timed_out", outcome.Result.TimedOut),
	)
	return outcome, nil
}

// Close is the exit path before or after submission. It releases the timer and drops
// unsubmitted answers; a submission already underway still finishes.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	submitting := s.phase == domain.PhaseSubmitting && s.settledAt.IsZero()
	if !s.submitted {
		s.releaseTickerLocked()
		s.answers = domain.Answers{}
	}
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()

	if !submitting {
		s.markDone()
	}
	s.log.Debug("session closed")
}

// Snapshot returns the learner-facing view of the session.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that receives a snapshot after every state change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// reapable reports whether an untouched session can be dropped. Running countdowns and
// in-flight submissions always end on their own, so they are never reaped.
func (s *Session) reapable(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	switch s.phase {
	case domain.PhaseInProgress:
		return false
	case domain.PhaseSubmitting:
		if s.settledAt.IsZero() {
			return false
		}
	}
	last := s.lastActive
	if s.settledAt.After(last) {
		last = s.settledAt
	}
	return now.Sub(last) >= ttl
}

func (s *Session) requireInProgressLocked() error {
	if s.closed || s.phase != domain.PhaseInProgress || s.submitted {
		return domain.ErrInvalidPhase
	}
	return nil
}

func (s *Session) releaseTickerLocked() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stopTick)
	s.ticker = nil
	s.stopTick = nil
}

func (s *Session) touchLocked() {
	s.lastActive = s.opts.now()
}

func (s *Session) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow reader: replace its oldest pending snapshot with the latest one.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		SessionID:     s.id,
		QuizID:        s.quizID,
		StudentID:     s.learner.StudentID,
		Phase:         s.phase,
		CurrentIndex:  s.current,
		QuestionCount: len(s.questions),
		Remaining:     s.remaining,
		Answers:       s.answers.Clone(),
		CanSubmit:     s.phase == domain.PhaseInProgress && !s.submitted && len(s.answers) > 0,
	}
	if s.quiz.ID != "" {
		quiz := s.quiz
		snap.Quiz = &quiz
	}
	if s.phase == domain.PhaseInProgress && len(s.questions) > 0 {
		q := s.questions[s.current]
		snap.Question = &domain.QuestionView{
			ID:          q.ID,
			Text:        q.Text,
			Options:     q.Options,
			Points:      q.Points,
			OrderNumber: q.OrderNumber,
		}
	}
	if s.result != nil {
		result := *s.result
		snap.Result = &result
	}
	if s.aggregate != nil {
		aggregate := *s.aggregate
		snap.Learner = &aggregate
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}
