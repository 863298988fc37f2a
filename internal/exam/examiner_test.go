package exam

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const millisPerTick = 100

func numberedDeck(n int) []Question {
	deck := make([]Question, n)
	for i := range deck {
		deck[i] = Question{
			Question:     fmt.Sprintf("q%d", i),
			ValidAnswers: []string{fmt.Sprintf("a%d", i)},
			Meaning:      fmt.Sprintf("meaning %d", i),
		}
	}
	return deck
}

func newExam(deckSize, numQuestions int, maxWrong *int, timelimit int) *Exam {
	return &Exam{
		Name:         "test",
		Deck:         numberedDeck(deckSize),
		NumQuestions: numQuestions,
		MaxWrong:     maxWrong,
		Timelimit:    timelimit,
		HSKLevel:     1,
	}
}

// identityShuffler keeps deck order so tests can name questions directly.
type identityShuffler struct{}

func (identityShuffler) Shuffle([]Question, uint64) {}

func nextQuestion(t *testing.T, x *Examiner) Question {
	t.Helper()
	r, ok := x.Tick().(TickNextQuestion)
	require.True(t, ok, "expected TickNextQuestion")
	return r.Question
}

func finished(t *testing.T, x *Examiner) ExamScore {
	t.Helper()
	r, ok := x.Tick().(TickFinished)
	require.True(t, ok, "expected TickFinished")
	return r.Score
}

func TestNewExaminerIsDeterministic(t *testing.T) {
	e := newExam(40, 10, IntPtr(2), 10000)

	for _, seed := range []uint64{0, 1, 99, 1 << 63} {
		a := NewExaminer(e, millisPerTick, seed)
		b := NewExaminer(e, millisPerTick, seed)
		assert.Equal(t, a.Questions(), b.Questions(), "seed %d", seed)
	}

	a := NewExaminer(e, millisPerTick, 1)
	b := NewExaminer(e, millisPerTick, 2)
	assert.NotEqual(t, a.Questions(), b.Questions())
}

func TestNewExaminerDoesNotMutateDeck(t *testing.T) {
	e := newExam(20, 5, nil, 10000)
	NewExaminer(e, millisPerTick, 5)
	assert.Equal(t, numberedDeck(20), e.Deck)
}

func TestNewExaminerTruncates(t *testing.T) {
	e := newExam(10, 3, IntPtr(1), 8000)
	x := NewExaminer(e, millisPerTick, 3)

	assert.Len(t, x.Questions(), 3)
	assert.Equal(t, 3, x.NumQuestions())
	assert.Zero(t, x.NumAnswered())
	assert.Equal(t, 8000, x.Timelimit())
	require.NotNil(t, x.MaxWrong())
	assert.Equal(t, 1, *x.MaxWrong())
	assert.False(t, x.Practice())
	assert.Equal(t, -1, x.CurrentIndex())
}

func TestNewExaminerNumQuestionsAboveDeckSize(t *testing.T) {
	x := NewExaminer(newExam(2, 10, nil, 1000), millisPerTick, 3)
	assert.Len(t, x.Questions(), 2)
}

func TestNewExaminerPractice(t *testing.T) {
	e := newExam(10, 3, IntPtr(1), 8000)
	x := NewExaminer(e, millisPerTick, 3, WithPractice())

	assert.Len(t, x.Questions(), 10)
	assert.Equal(t, 10, x.NumQuestions())
	assert.Equal(t, PracticeTimelimit, x.Timelimit())
	assert.Nil(t, x.MaxWrong())
	assert.True(t, x.Practice())
}

func TestSingleCorrectAnswerIsNotAPass(t *testing.T) {
	e := &Exam{
		Name:         "hsk1",
		Deck:         []Question{{Question: "hello", ValidAnswers: []string{"world"}, Meaning: "Greeting"}},
		NumQuestions: 1,
		MaxWrong:     IntPtr(0),
		Timelimit:    5000,
	}
	x := NewExaminer(e, millisPerTick, 0)

	q := nextQuestion(t, x)
	assert.Equal(t, "hello", q.Question)

	gotQ, a, ok := x.Answer("world")
	require.True(t, ok)
	assert.Equal(t, q, gotQ)
	assert.Equal(t, Correct("world"), a)

	score := finished(t, x)
	assert.Equal(t, 1.0, score.Score)
	// Only a deliberate quit within the mistake budget counts as a pass.
	assert.False(t, score.Passed)
	assert.True(t, x.Finished())
}

func TestTimeoutThenPauseThenNextQuestion(t *testing.T) {
	x := NewExaminer(newExam(2, 2, nil, 500), millisPerTick, 0, WithShuffler(identityShuffler{}))

	assert.Equal(t, "q0", nextQuestion(t, x).Question)

	for i := 0; i < 500/millisPerTick; i++ {
		assert.IsType(t, TickNothing{}, x.Tick(), "tick %d", i)
	}

	r, ok := x.Tick().(TickTimeout)
	require.True(t, ok)
	assert.Equal(t, "q0", r.Question.Question)
	assert.True(t, x.Paused())

	// Answers are ignored during the pause.
	_, _, ok = x.Answer("a0")
	assert.False(t, ok)
	assert.ErrorIs(t, x.GiveUp(), ErrNotAwaitingAnswer)

	for i := 0; i < TimeoutPause/millisPerTick; i++ {
		assert.IsType(t, TickPause{}, x.Tick(), "pause tick %d", i)
	}
	assert.False(t, x.Paused())

	assert.Equal(t, "q1", nextQuestion(t, x).Question)
	assert.Equal(t, []Answer{Timeout()}, x.Answers())
}

func TestTimeoutOnOnlyQuestionFinishesBeforePause(t *testing.T) {
	x := NewExaminer(newExam(1, 1, nil, 300), millisPerTick, 0)

	nextQuestion(t, x)
	for i := 0; i < 3; i++ {
		assert.IsType(t, TickNothing{}, x.Tick())
	}
	assert.IsType(t, TickTimeout{}, x.Tick())

	// Every question has an answer, and finished() outranks the pause.
	score := finished(t, x)
	assert.Equal(t, 0.0, score.Score)
	assert.False(t, score.Passed)
	require.Len(t, score.GradedQuestions, 1)
	assert.Equal(t, Timeout(), score.GradedQuestions[0].Answer)
}

func TestPracticeFailsOnFirstTimeout(t *testing.T) {
	x := NewExaminer(newExam(5, 2, IntPtr(3), 1000), millisPerTick, 0, WithPractice())

	nextQuestion(t, x)
	for i := 0; i < PracticeTimelimit/millisPerTick; i++ {
		require.IsType(t, TickNothing{}, x.Tick())
	}
	assert.IsType(t, TickTimeout{}, x.Tick())

	score := finished(t, x)
	assert.False(t, score.Passed)
	assert.Len(t, score.GradedQuestions, 1)
}

func TestAnswerTwiceIsRejected(t *testing.T) {
	x := NewExaminer(newExam(3, 3, nil, 1000), millisPerTick, 0, WithShuffler(identityShuffler{}))
	nextQuestion(t, x)

	_, a, ok := x.Answer("wrong")
	require.True(t, ok)
	assert.Equal(t, Incorrect("wrong"), a)

	_, _, ok = x.Answer("a0")
	assert.False(t, ok)
	assert.Equal(t, []Answer{Incorrect("wrong")}, x.Answers())
}

func TestAnswerBeforeFirstTick(t *testing.T) {
	x := NewExaminer(newExam(3, 3, nil, 1000), millisPerTick, 0)
	_, _, ok := x.Answer("a0")
	assert.False(t, ok)
	_, ok = x.CurrentQuestion()
	assert.False(t, ok)
	assert.ErrorIs(t, x.GiveUp(), ErrNotAwaitingAnswer)
}

func TestGiveUpAfterAnswerIsRejected(t *testing.T) {
	x := NewExaminer(newExam(3, 3, IntPtr(1), 1000), millisPerTick, 0)
	q := nextQuestion(t, x)
	_, _, ok := x.Answer(q.CanonicalAnswer())
	require.True(t, ok)

	assert.ErrorIs(t, x.GiveUp(), ErrNotAwaitingAnswer)
	assert.Len(t, x.Answers(), 1)
}

func TestGiveUpWithinBudgetPasses(t *testing.T) {
	x := NewExaminer(newExam(5, 5, IntPtr(2), 1000), millisPerTick, 0, WithShuffler(identityShuffler{}))

	nextQuestion(t, x)
	_, _, ok := x.Answer("a0")
	require.True(t, ok)
	nextQuestion(t, x)

	require.NoError(t, x.GiveUp())

	score := finished(t, x)
	assert.True(t, score.Passed)
	assert.InDelta(t, 0.5, score.Score, 1e-9)
	assert.Equal(t, []GradedQuestion{
		{Question: numberedDeck(5)[0], Answer: Correct("a0")},
		{Question: numberedDeck(5)[1], Answer: Quit()},
	}, score.GradedQuestions)
}

func TestGiveUpOverBudgetFails(t *testing.T) {
	x := NewExaminer(newExam(5, 5, IntPtr(0), 1000), millisPerTick, 0)
	nextQuestion(t, x)
	require.NoError(t, x.GiveUp())

	// One Quit is one wrong answer, over a budget of zero.
	score := finished(t, x)
	assert.False(t, score.Passed)
	assert.Equal(t, 0.0, score.Score)
}

func TestGiveUpWithoutMistakeCapNeverPasses(t *testing.T) {
	x := NewExaminer(newExam(5, 5, nil, 1000), millisPerTick, 0, WithPractice())
	nextQuestion(t, x)
	require.NoError(t, x.GiveUp())
	assert.False(t, finished(t, x).Passed)
}

func TestTooManyWrong(t *testing.T) {
	x := NewExaminer(newExam(5, 5, IntPtr(1), 1000), millisPerTick, 0)

	for i := 0; i < 2; i++ {
		nextQuestion(t, x)
		_, _, ok := x.Answer("nope")
		require.True(t, ok)
	}

	score := finished(t, x)
	assert.Equal(t, 0.0, score.Score)
	assert.False(t, score.Passed)
	assert.Len(t, score.GradedQuestions, 2)
}

func TestAllAnsweredFinishes(t *testing.T) {
	x := NewExaminer(newExam(6, 4, IntPtr(2), 1000), millisPerTick, 11)

	var given []Answer
	for i := 0; i < 4; i++ {
		q := nextQuestion(t, x)
		raw := q.CanonicalAnswer()
		if i == 2 {
			raw = "miss"
		}
		_, a, ok := x.Answer(raw)
		require.True(t, ok)
		given = append(given, a)
	}

	score := finished(t, x)
	assert.InDelta(t, 0.75, score.Score, 1e-9)
	assert.False(t, score.Passed)

	require.Len(t, score.GradedQuestions, len(given))
	questions := x.Questions()
	for i, g := range score.GradedQuestions {
		assert.Equal(t, questions[i], g.Question)
		assert.Equal(t, given[i], g.Answer)
	}
}

func TestFinishedIsStable(t *testing.T) {
	x := NewExaminer(newExam(1, 1, nil, 1000), millisPerTick, 0)
	q := nextQuestion(t, x)
	_, _, ok := x.Answer(q.CanonicalAnswer())
	require.True(t, ok)

	first := finished(t, x)
	second := finished(t, x)
	assert.Equal(t, first, second)

	_, _, ok = x.Answer("again")
	assert.False(t, ok)
}

func TestEmptyWorkingListScoresZero(t *testing.T) {
	x := NewExaminer(newExam(1, 0, nil, 1000), millisPerTick, 0)
	score := finished(t, x)
	assert.Equal(t, 0.0, score.Score)
	assert.Empty(t, score.GradedQuestions)
}

func TestCountdownResetsPerQuestion(t *testing.T) {
	x := NewExaminer(newExam(2, 2, nil, 1000), millisPerTick, 0)
	nextQuestion(t, x)
	x.Tick()
	x.Tick()
	assert.Equal(t, 800, x.TimeLeft())

	q, ok := x.CurrentQuestion()
	require.True(t, ok)
	_, _, ok = x.Answer(q.CanonicalAnswer())
	require.True(t, ok)

	nextQuestion(t, x)
	assert.Equal(t, 1000, x.TimeLeft())
	assert.Equal(t, 1, x.CurrentIndex())
}
