package progress

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/abzanganeh/mlsite/observe"
)

// Scorer grades a quiz submission. Implementations hold the answer key;
// the tracker only records the outcome.
type Scorer interface {
	// Score grades a submission and returns a percentage in [0, 100].
	Score(ctx context.Context, quizID string, answers map[string]any) (float64, error)

	// CorrectAnswers returns the answer key for review, or nil when the
	// scorer does not expose one.
	CorrectAnswers(ctx context.Context, quizID string) (map[string]any, error)
}

// AnswerCountScorer grades by participation: the fraction of questions
// with a non-nil answer, scaled to a percentage. It exposes no answer
// key. Used when no course-specific scorer is configured.
type AnswerCountScorer struct{}

var _ Scorer = AnswerCountScorer{}

func (AnswerCountScorer) Score(ctx context.Context, quizID string, answers map[string]any) (float64, error) {
	if len(answers) == 0 {
		return 0, nil
	}
	answered := 0
	for _, v := range answers {
		if v != nil {
			answered++
		}
	}
	return float64(answered) / float64(len(answers)) * 100, nil
}

func (AnswerCountScorer) CorrectAnswers(ctx context.Context, quizID string) (map[string]any, error) {
	return nil, nil
}

// QuizOutcome is the result of grading one submission.
type QuizOutcome struct {
	QuizID         string         `json:"quiz_id"`
	Score          float64        `json:"score"`
	Feedback       string         `json:"feedback"`
	CorrectAnswers map[string]any `json:"correct_answers,omitempty"`
}

// FeedbackBand maps a score threshold to an encouragement message.
// A band applies to every score at or above Min that no higher band
// claims.
type FeedbackBand struct {
	Min     float64
	Message string
}

// DefaultFeedbackBands returns the stock encouragement copy.
func DefaultFeedbackBands() []FeedbackBand {
	return []FeedbackBand{
		{Min: 90, Message: "Excellent! You have a strong understanding of this topic."},
		{Min: 70, Message: "Good job! You understand most of the concepts."},
		{Min: 50, Message: "Not bad, but consider reviewing the material again."},
		{Min: 0, Message: "Consider going through the tutorial again before taking the quiz."},
	}
}

// Feedback returns the default-band message for a quiz score.
func Feedback(score float64) string {
	return feedbackFor(score, DefaultFeedbackBands())
}

// feedbackFor walks bands highest threshold first. Bands must be
// sorted descending by Min; normalizeBands guarantees that for
// tracker-held bands.
func feedbackFor(score float64, bands []FeedbackBand) string {
	for _, band := range bands {
		if score >= band.Min {
			return band.Message
		}
	}
	if len(bands) > 0 {
		return bands[len(bands)-1].Message
	}
	return ""
}

func normalizeBands(bands []FeedbackBand) []FeedbackBand {
	if len(bands) == 0 {
		return DefaultFeedbackBands()
	}
	out := make([]FeedbackBand, len(bands))
	copy(out, bands)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Min > out[j].Min })
	return out
}

// TrackerConfig configures tracker policy.
type TrackerConfig struct {
	// ClearCompletedOnRegress, when true, drops a unit's completion
	// timestamp if a later update lowers its percentage below 100. The
	// default keeps the timestamp: finishing a unit once is permanent
	// even if the learner revisits it.
	ClearCompletedOnRegress bool

	// FeedbackBands overrides the quiz encouragement messages. The
	// thresholds are a product decision, not a contract; courses may
	// ship their own copy. Empty uses DefaultFeedbackBands.
	FeedbackBands []FeedbackBand
}

// Tracker implements the learning-progress operations over a Store.
// It is stateless apart from its collaborators and safe for concurrent
// use when the store is.
type Tracker struct {
	config TrackerConfig
	store  Store
	scorer Scorer
	logger observe.Logger
	now    func() time.Time
}

// NewTracker creates a tracker. A nil scorer defaults to
// AnswerCountScorer; a nil logger to a no-op.
func NewTracker(config TrackerConfig, store Store, scorer Scorer, logger observe.Logger) (*Tracker, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if scorer == nil {
		scorer = AnswerCountScorer{}
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	config.FeedbackBands = normalizeBands(config.FeedbackBands)
	return &Tracker{
		config: config,
		store:  store,
		scorer: scorer,
		logger: logger.With(observe.F("component", "progress")),
		now:    time.Now,
	}, nil
}

// GetProgress returns the per-unit records and overall completion for
// one course. A course with no records yields an empty summary.
func (t *Tracker) GetProgress(ctx context.Context, user, course string) (Summary, error) {
	units, err := t.store.List(ctx, user, course)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{CourseID: course, Units: units}
	if len(units) > 0 {
		var sum float64
		for _, rec := range units {
			sum += rec.Percentage
		}
		summary.Overall = sum / float64(len(units))
	}
	return summary, nil
}

// UpdateProgress records a unit's completion percentage, clamped to
// [0, 100]. Quiz results, when provided, are merged into the unit's
// existing results by quiz ID. Reaching 100 stamps the completion time;
// regressing below 100 preserves it unless configured otherwise.
func (t *Tracker) UpdateProgress(ctx context.Context, user, course, unit string, percentage float64, quiz map[string]QuizResult) (Record, error) {
	if user == "" || course == "" || unit == "" {
		return Record{}, ErrMissingKey
	}
	percentage = clampPercentage(percentage)

	existing, ok, err := t.store.Get(ctx, user, course, unit)
	if err != nil {
		return Record{}, err
	}

	now := t.now().UTC()
	rec := Record{
		UserID:      user,
		CourseID:    course,
		UnitID:      unit,
		Percentage:  percentage,
		QuizResults: map[string]QuizResult{},
		LastTouched: now,
	}
	if ok {
		for id, qr := range existing.QuizResults {
			rec.QuizResults[id] = qr
		}
		rec.CompletedAt = existing.CompletedAt
	}
	for id, qr := range quiz {
		rec.QuizResults[id] = qr
	}

	if percentage >= 100 {
		if rec.CompletedAt == nil {
			rec.CompletedAt = &now
		}
	} else if t.config.ClearCompletedOnRegress {
		rec.CompletedAt = nil
	}

	if err := t.store.Upsert(ctx, rec); err != nil {
		return Record{}, err
	}
	t.logger.Debug(ctx, "progress updated",
		observe.F("user", user),
		observe.F("course", course),
		observe.F("unit", unit),
		observe.F("percentage", percentage),
	)
	return rec, nil
}

// SubmitQuiz grades a submission, records the outcome against the unit,
// and marks the unit complete. Submitting a quiz is the unit's final
// act, so a graded submission implies 100% regardless of score.
func (t *Tracker) SubmitQuiz(ctx context.Context, user, course, unit, quizID string, answers map[string]any) (QuizOutcome, error) {
	if user == "" || course == "" || unit == "" {
		return QuizOutcome{}, ErrMissingKey
	}
	if quizID == "" {
		return QuizOutcome{}, fmt.Errorf("progress: quiz id is required")
	}

	score, err := t.scorer.Score(ctx, quizID, answers)
	if err != nil {
		return QuizOutcome{}, fmt.Errorf("progress: score quiz %q: %w", quizID, err)
	}
	score = clampPercentage(score)

	key, err := t.scorer.CorrectAnswers(ctx, quizID)
	if err != nil {
		return QuizOutcome{}, fmt.Errorf("progress: answer key for quiz %q: %w", quizID, err)
	}

	result := map[string]QuizResult{
		quizID: {Score: score, Answers: answers},
	}
	if _, err := t.UpdateProgress(ctx, user, course, unit, 100, result); err != nil {
		return QuizOutcome{}, err
	}

	return QuizOutcome{
		QuizID:         quizID,
		Score:          score,
		Feedback:       feedbackFor(score, t.config.FeedbackBands),
		CorrectAnswers: key,
	}, nil
}

// GetRecommendations suggests what to work on next, one entry per
// unfinished course, most urgent first (ties break on course ID).
// Completed courses are omitted.
func (t *Tracker) GetRecommendations(ctx context.Context, user string) ([]Recommendation, error) {
	averages, err := t.store.CourseAverages(ctx, user)
	if err != nil {
		return nil, err
	}

	out := make([]Recommendation, 0, len(averages))
	for _, avg := range averages {
		if avg.Average >= 100 {
			continue
		}
		out = append(out, recommend(avg))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if tierRank[out[i].Tier] != tierRank[out[j].Tier] {
			return tierRank[out[i].Tier] < tierRank[out[j].Tier]
		}
		return out[i].CourseID < out[j].CourseID
	})
	return out, nil
}

var tierRank = map[string]int{TierStart: 0, TierContinue: 1, TierFinish: 2}

func recommend(avg CourseAverage) Recommendation {
	rec := Recommendation{CourseID: avg.CourseID}
	switch {
	case avg.Average < 30:
		rec.Tier = TierStart
		rec.Priority = "high"
		rec.Message = fmt.Sprintf("Start with %s - you haven't begun yet", avg.CourseID)
	case avg.Average < 70:
		rec.Tier = TierContinue
		rec.Priority = "medium"
		rec.Message = fmt.Sprintf("Continue with %s - you're making good progress", avg.CourseID)
	default:
		rec.Tier = TierFinish
		rec.Priority = "low"
		rec.Message = fmt.Sprintf("Almost done with %s - finish it up!", avg.CourseID)
	}
	return rec
}

// ResetCourse deletes every record for a (user, course) pair and
// returns the removed count.
func (t *Tracker) ResetCourse(ctx context.Context, user, course string) (int, error) {
	removed, err := t.store.DeleteCourse(ctx, user, course)
	if err != nil {
		return 0, err
	}
	t.logger.Info(ctx, "course progress reset",
		observe.F("user", user),
		observe.F("course", course),
		observe.F("removed", removed),
	)
	return removed, nil
}

func clampPercentage(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
