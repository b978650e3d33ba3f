package domain

import "time"

// Difficulty grades a quiz.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// OptionLabel identifies one of the four options of a question.
type OptionLabel string

const (
	OptionA OptionLabel = "A"
	OptionB OptionLabel = "B"
	OptionC OptionLabel = "C"
	OptionD OptionLabel = "D"
)

// Valid reports whether l is A, B, C or D.
func (l OptionLabel) Valid() bool {
	switch l {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Quiz is a named, timed set of multiple-choice questions.
type Quiz struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Difficulty        Difficulty `json:"difficulty"`
	TimeLimit         int        `json:"timeLimit"` // seconds
	PointsPerQuestion int        `json:"pointsPerQuestion"`
}

// Options holds the text of the four labeled answers.
type Options struct {
	A string `json:"a"`
	B string `json:"b"`
	C string `json:"c"`
	D string `json:"d"`
}

// Text returns the option text for a label, or "" for an unknown label.
func (o Options) Text(label OptionLabel) string {
	switch label {
	case OptionA:
		return o.A
	case OptionB:
		return o.B
	case OptionC:
		return o.C
	case OptionD:
		return o.D
	}
	return ""
}

// Question models one multiple-choice item with exactly one correct option.
type Question struct {
	ID            string      `json:"id"`
	QuizID        string      `json:"quizId"`
	Text          string      `json:"text"`
	Options       Options     `json:"options"`
	CorrectAnswer OptionLabel `json:"correctAnswer"`
	Points        int         `json:"points"`
	Explanation   string      `json:"explanation,omitempty"`
	OrderNumber   int         `json:"orderNumber"`
}

// WithDefaultPoints fills in the quiz's points per question when q carries none.
func (q Question) WithDefaultPoints(quiz Quiz) Question {
	if q.Points == 0 && quiz.PointsPerQuestion > 0 {
		q.Points = quiz.PointsPerQuestion
	}
	return q
}

// QuizContent bundles a quiz with its ordered questions.
type QuizContent struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
}

// Answers maps a question ID to the selected option label.
type Answers map[string]OptionLabel

// Clone returns a copy safe to hand out of a session.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Phase is the lifecycle phase of a quiz session.
type Phase string

const (
	PhaseLoading     Phase = "loading"
	PhaseNotStarted  Phase = "not_started"
	PhaseInProgress  Phase = "in_progress"
	PhaseSubmitting  Phase = "submitting"
	PhaseCompleted   Phase = "completed"
	PhaseUnavailable Phase = "unavailable"
)

// Result is the outcome of a submitted session.
type Result struct {
	CorrectCount    int       `json:"correctCount"`
	TotalQuestions  int       `json:"totalQuestions"`
	ScorePercentage float64   `json:"scorePercentage"`
	RoundedScore    int       `json:"roundedScore"`
	PointsEarned    int       `json:"pointsEarned"`
	TimeUsed        int       `json:"timeUsed"` // seconds
	CompletedAt     time.Time `json:"completedAt"`
	TimedOut        bool      `json:"timedOut"`
}

// ResultRecord is the insert-only persisted form of a Result.
type ResultRecord struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"studentId"`
	QuizID         string    `json:"quizId"`
	Score          float64   `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	TimeTaken      int       `json:"timeTaken"`
	CompletedAt    time.Time `json:"completedAt"`
}

// LearnerAggregate is the learner's cumulative points and derived level.
type LearnerAggregate struct {
	StudentID   string `json:"studentId"`
	TotalPoints int    `json:"totalPoints"`
	Level       int    `json:"level"`
}

// LevelFor derives the level from a points total: one level per 100 points, starting at 1.
func LevelFor(totalPoints int) int {
	if totalPoints < 0 {
		return 1
	}
	return totalPoints/100 + 1
}

// Role is the portal role of an authenticated user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// QuestionView is a question as shown to a learner, without the answer key.
type QuestionView struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	Options     Options `json:"options"`
	Points      int     `json:"points"`
	OrderNumber int     `json:"orderNumber"`
}

// SessionSnapshot is a read-only view of a session pushed to clients.
type SessionSnapshot struct {
	SessionID     string            `json:"sessionId"`
	QuizID        string            `json:"quizId"`
	StudentID     string            `json:"studentId"`
	Phase         Phase             `json:"phase"`
	Quiz          *Quiz             `json:"quiz,omitempty"`
	CurrentIndex  int               `json:"currentIndex"`
	QuestionCount int               `json:"questionCount"`
	Question      *QuestionView     `json:"question,omitempty"`
	Remaining     int               `json:"remaining"`
	Answers       Answers           `json:"answers"`
	CanSubmit     bool              `json:"canSubmit"`
	Result        *Result           `json:"result,omitempty"`
	Learner       *LearnerAggregate `json:"learner,omitempty"`
	Error         string            `json:"error,omitempty"`
}
