package exam

// TimeoutPause is how long an examiner pauses after a question times out.
const TimeoutPause = 1000

// PracticeTimelimit is the per-question budget in practice mode.
const PracticeTimelimit = 30000

// TickResult is what one call to Examiner.Tick produced. It is a closed set:
// TickNothing, TickTimeout, TickNextQuestion, TickPause and TickFinished.
type TickResult interface {
	isTickResult()
}

// TickNothing means the countdown advanced and nothing else happened.
type TickNothing struct{}

// TickTimeout means the current question ran out of time. A Timeout answer was
// recorded and the examiner entered its pause.
type TickTimeout struct {
	Question Question
}

// TickNextQuestion carries the question that was just posed.
type TickNextQuestion struct {
	Question Question
}

// TickPause means the examiner is pausing after a timeout.
type TickPause struct{}

// TickFinished carries the final score. The examiner no longer changes.
type TickFinished struct {
	Score ExamScore
}

func (TickNothing) isTickResult()      {}
func (TickTimeout) isTickResult()      {}
func (TickNextQuestion) isTickResult() {}
func (TickPause) isTickResult()        {}
func (TickFinished) isTickResult()     {}

// Option configures an Examiner.
type Option func(*options)

type options struct {
	practice bool
	shuffler Shuffler
}

// WithPractice selects practice mode: the whole deck, no mistake cap, a fixed
// 30 second budget and failure on the first timeout.
func WithPractice() Option {
	return func(o *options) { o.practice = true }
}

// WithShuffler replaces the default PCG shuffler.
func WithShuffler(s Shuffler) Option {
	return func(o *options) { o.shuffler = s }
}

// Examiner is the state machine which administers one exam to one user.
//
// Call Tick once to pose the first question, then every millisPerTick
// milliseconds. Supply user input with Answer; the next Tick acknowledges it.
// The session is over once Tick returns TickFinished.
//
// An Examiner is not safe for concurrent use.
type Examiner struct {
	questions     []Question
	maxWrong      *int
	timelimit     int
	failOnTimeout bool
	practice      bool
	millisPerTick int

	currentIndex int
	timeLeft     int
	answers      []Answer
	pauseTime    int
}

// NewExaminer prepares a session over a shuffled copy of the exam's deck.
// The same exam and seed always produce the same question sequence.
func NewExaminer(e *Exam, millisPerTick int, seed uint64, opts ...Option) *Examiner {
	o := options{shuffler: PCGShuffler{}}
	for _, opt := range opts {
		opt(&o)
	}

	questions := make([]Question, len(e.Deck))
	copy(questions, e.Deck)
	o.shuffler.Shuffle(questions, seed)

	timelimit := e.Timelimit
	maxWrong := e.MaxWrong
	if o.practice {
		timelimit = PracticeTimelimit
		maxWrong = nil
	} else if e.NumQuestions < len(questions) {
		questions = questions[:e.NumQuestions]
	}

	return &Examiner{
		questions:     questions,
		maxWrong:      maxWrong,
		timelimit:     timelimit,
		failOnTimeout: o.practice,
		practice:      o.practice,
		millisPerTick: millisPerTick,
		currentIndex:  -1,
		timeLeft:      timelimit,
	}
}

// ─── Queries ─────────────────────────────────────────────────────────

// CurrentQuestion returns the question being asked. ok is false before the
// first tick.
func (x *Examiner) CurrentQuestion() (q Question, ok bool) {
	if x.currentIndex < 0 || x.currentIndex >= len(x.questions) {
		return Question{}, false
	}
	return x.questions[x.currentIndex], true
}

func (x *Examiner) readyForNextQuestion() bool {
	return x.currentIndex+1 == len(x.answers)
}

// ReadyForNextAnswer reports whether the current question is still open.
func (x *Examiner) ReadyForNextAnswer() bool {
	return x.currentIndex == len(x.answers)
}

// Paused reports whether the examiner is in its post-timeout pause.
func (x *Examiner) Paused() bool { return x.pauseTime > 0 }

func (x *Examiner) timedOut() bool { return x.timeLeft <= 0 }

// NumberWrong counts every recorded answer that is not Correct.
func (x *Examiner) NumberWrong() int {
	n := 0
	for _, a := range x.answers {
		if !a.IsCorrect() {
			n++
		}
	}
	return n
}

// Finished reports whether any termination rule holds.
func (x *Examiner) Finished() bool {
	return x.finishedGaveUp() ||
		x.finishedTooManyWrong() ||
		x.finishedAllAnswered() ||
		x.finishedTimeout()
}

func (x *Examiner) finishedGaveUp() bool {
	for _, a := range x.answers {
		if a.IsQuit() {
			return true
		}
	}
	return false
}

func (x *Examiner) finishedTooManyWrong() bool {
	return x.maxWrong != nil && x.NumberWrong() > *x.maxWrong
}

func (x *Examiner) finishedAllAnswered() bool {
	return len(x.answers) == len(x.questions)
}

func (x *Examiner) finishedTimeout() bool {
	if !x.failOnTimeout {
		return false
	}
	for _, a := range x.answers {
		if a.IsTimeout() {
			return true
		}
	}
	return false
}

// Passed is only meaningful once Finished. It holds when the user quit while
// within the mistake budget; finishing every question does not count as a
// pass. Callers depend on this rule as it stands.
func (x *Examiner) Passed() bool {
	if x.maxWrong == nil {
		return false
	}
	return x.finishedGaveUp() && x.NumberWrong() <= *x.maxWrong
}

// Score builds the result snapshot.
func (x *Examiner) Score() ExamScore {
	score := 0.0
	if answered := len(x.answers); answered > 0 {
		score = 1.0 - float64(x.NumberWrong())/float64(answered)
	}
	return ExamScore{
		Score:           score,
		Passed:          x.Passed(),
		GradedQuestions: x.GradedQuestions(),
	}
}

// GradedQuestions zips every answered question with its answer, in order.
func (x *Examiner) GradedQuestions() []GradedQuestion {
	graded := make([]GradedQuestion, len(x.answers))
	for i, a := range x.answers {
		graded[i] = GradedQuestion{Question: x.questions[i], Answer: a}
	}
	return graded
}

// Questions returns a copy of the working question list.
func (x *Examiner) Questions() []Question {
	out := make([]Question, len(x.questions))
	copy(out, x.questions)
	return out
}

// NumQuestions is len(Questions()) without the copy.
func (x *Examiner) NumQuestions() int { return len(x.questions) }

// NumAnswered is len(Answers()) without the copy.
func (x *Examiner) NumAnswered() int { return len(x.answers) }

// Answers returns a copy of the answers given so far.
func (x *Examiner) Answers() []Answer {
	out := make([]Answer, len(x.answers))
	copy(out, x.answers)
	return out
}

func (x *Examiner) CurrentIndex() int { return x.currentIndex }
func (x *Examiner) TimeLeft() int     { return x.timeLeft }
func (x *Examiner) Timelimit() int    { return x.timelimit }
func (x *Examiner) MaxWrong() *int    { return x.maxWrong }
func (x *Examiner) Practice() bool    { return x.practice }

// ─── Actions ─────────────────────────────────────────────────────────

// Tick advances the machine by one millisPerTick quantum.
func (x *Examiner) Tick() TickResult {
	switch {
	case x.Finished():
		return TickFinished{Score: x.Score()}
	case x.pauseTime > 0:
		x.pauseTime -= x.millisPerTick
		return TickPause{}
	case x.readyForNextQuestion():
		x.currentIndex++
		x.timeLeft = x.timelimit
		return TickNextQuestion{Question: x.questions[x.currentIndex]}
	case x.timedOut():
		x.answers = append(x.answers, Timeout())
		x.pauseTime = TimeoutPause
		return TickTimeout{Question: x.questions[x.currentIndex]}
	default:
		x.timeLeft -= x.millisPerTick
		return TickNothing{}
	}
}

// Answer grades raw against the current question and records it. ok is false,
// and nothing is recorded, when the session is finished, paused or the
// current question already has an answer.
func (x *Examiner) Answer(raw string) (q Question, a Answer, ok bool) {
	if x.Finished() || !x.ReadyForNextAnswer() || x.pauseTime > 0 {
		return Question{}, Answer{}, false
	}

	q = x.questions[x.currentIndex]
	if q.IsCorrect(raw) {
		a = Correct(raw)
	} else {
		a = Incorrect(raw)
	}
	x.answers = append(x.answers, a)
	return q, a, true
}

// GiveUp records a Quit for the current question. It fails with
// ErrNotAwaitingAnswer unless the current question is open.
func (x *Examiner) GiveUp() error {
	if !x.ReadyForNextAnswer() {
		return ErrNotAwaitingAnswer
	}
	x.answers = append(x.answers, Quit())
	return nil
}
