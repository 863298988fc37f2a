package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exambot/internal/exam"
)

// ManagerConfig holds the settings a Manager needs from the app config.
type ManagerConfig struct {
	AllowedChannels []ChannelID
	MillisPerTick   int
}

// Manager guards the Registry with a single mutex. Sweeps and inbound
// requests serialize on it; examiners carry no locks of their own.
//
// Events are handed to the Notifier after mu is released. emitMu is taken
// before mu is released so notifications leave in lock order.
type Manager struct {
	mu       sync.Mutex
	emitMu   sync.Mutex
	registry Registry

	allowed       map[ChannelID]struct{}
	millisPerTick int

	loader   ExamLoader
	notifier Notifier
	log      zerolog.Logger

	now   func() time.Time
	newID func() uuid.UUID
}

func NewManager(loader ExamLoader, notifier Notifier, cfg ManagerConfig, log zerolog.Logger) *Manager {
	allowed := make(map[ChannelID]struct{}, len(cfg.AllowedChannels))
	for _, ch := range cfg.AllowedChannels {
		allowed[ch] = struct{}{}
	}
	return &Manager{
		allowed:       allowed,
		millisPerTick: cfg.MillisPerTick,
		loader:        loader,
		notifier:      notifier,
		log:           log.With().Str("component", "session_manager").Logger(),
		now:           time.Now,
		newID:         uuid.New,
	}
}

// MillisPerTick is the tick quantum every examiner was built with.
func (m *Manager) MillisPerTick() int { return m.millisPerTick }

// IsChannelAllowed reports whether exams may run in ch. An empty allow-list
// allows nothing.
func (m *Manager) IsChannelAllowed(ch ChannelID) bool {
	_, ok := m.allowed[ch]
	return ok
}

// unlockAndNotify releases mu and then publishes events in lock order.
func (m *Manager) unlockAndNotify(events []Event) {
	if len(events) == 0 {
		m.mu.Unlock()
		return
	}
	m.emitMu.Lock()
	m.mu.Unlock()
	m.notifier.Notify(events...)
	m.emitMu.Unlock()
}

// ─── Start ───────────────────────────────────────────────────────────

// Start begins a graded exam for user in ch.
func (m *Manager) Start(ctx context.Context, examName string, ch ChannelID, user UserID) (Info, error) {
	return m.start(ctx, examName, ch, user, false)
}

// StartPractice begins a practice run: whole deck, no mistake cap, fixed time
// limit, first timeout ends it.
func (m *Manager) StartPractice(ctx context.Context, examName string, ch ChannelID, user UserID) (Info, error) {
	return m.start(ctx, examName, ch, user, true)
}

func (m *Manager) start(ctx context.Context, examName string, ch ChannelID, user UserID, practice bool) (Info, error) {
	if !m.IsChannelAllowed(ch) {
		return Info{}, ErrInvalidChannel
	}

	// Cheap early rejection so a busy user does not cost an exam load.
	m.mu.Lock()
	busy := m.registry.IsChannelBusy(ch) || m.registry.IsUserBusy(user)
	m.mu.Unlock()
	if busy {
		return Info{}, ErrSessionBusy
	}

	e, err := m.loader.LoadExam(ctx, examName)
	if err != nil {
		if errors.Is(err, ErrExamNotFound) {
			return Info{}, err
		}
		return Info{}, fmt.Errorf("load exam %q: %w", examName, err)
	}
	if err := e.Validate(); err != nil {
		return Info{}, err
	}

	id := m.newID()
	seed := exam.SeedFromKey(id.String())
	var opts []exam.Option
	if practice {
		opts = append(opts, exam.WithPractice())
	}

	active := &ActiveExam{
		ID:        id,
		ChannelID: ch,
		UserID:    user,
		Seed:      seed,
		Exam:      e,
		Examiner:  exam.NewExaminer(e, m.millisPerTick, seed, opts...),
		StartedAt: m.now(),
	}

	m.mu.Lock()
	if err := m.registry.Add(active); err != nil {
		m.mu.Unlock()
		return Info{}, err
	}
	info := active.Info()
	m.unlockAndNotify([]Event{{Kind: EventSessionStart, Session: info}})

	m.log.Info().
		Str("session_id", id.String()).
		Str("channel_id", string(ch)).
		Str("user_id", string(user)).
		Str("exam", e.Name).
		Uint64("seed", seed).
		Bool("practice", practice).
		Msg("Exam session started")

	return info, nil
}

// ─── Answers & Quit ──────────────────────────────────────────────────

// SubmitAnswer grades text against the user's open question wherever the
// session runs. ok is false when the user has no session or the session is
// not awaiting an answer.
func (m *Manager) SubmitAnswer(user UserID, text string) (exam.GradedQuestion, bool) {
	m.mu.Lock()
	s, found := m.registry.Lookup(user)
	return m.submit(s, found, text)
}

// SubmitAnswerIn is SubmitAnswer restricted to a session running in ch.
func (m *Manager) SubmitAnswerIn(ch ChannelID, user UserID, text string) (exam.GradedQuestion, bool) {
	m.mu.Lock()
	s, found := m.registry.LookupIn(ch, user)
	return m.submit(s, found, text)
}

// submit runs with mu held and releases it.
func (m *Manager) submit(s *ActiveExam, found bool, text string) (exam.GradedQuestion, bool) {
	if !found {
		m.mu.Unlock()
		return exam.GradedQuestion{}, false
	}
	q, a, ok := s.Examiner.Answer(text)
	if !ok {
		m.mu.Unlock()
		return exam.GradedQuestion{}, false
	}
	ev := Event{Kind: EventAnswerGraded, Session: s.Info(), Question: q, Answer: a}
	m.unlockAndNotify([]Event{ev})
	return exam.GradedQuestion{Question: q, Answer: a}, true
}

// Quit gives up the user's current question. The session ends, and its
// score is rendered, on the next sweep.
func (m *Manager) Quit(user UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.registry.Lookup(user)
	return m.quitLocked(s, ok)
}

// QuitIn is Quit restricted to a session running in ch. Lookup and give-up
// happen under one lock, so a sweep cannot end the session in between.
func (m *Manager) QuitIn(ch ChannelID, user UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.registry.LookupIn(ch, user)
	return m.quitLocked(s, ok)
}

func (m *Manager) quitLocked(s *ActiveExam, ok bool) error {
	if !ok {
		return ErrNoActiveSession
	}
	if err := s.Examiner.GiveUp(); err != nil {
		return fmt.Errorf("%w: %w", ErrQuitRejected, err)
	}

	m.log.Info().
		Str("session_id", s.ID.String()).
		Str("user_id", string(s.UserID)).
		Msg("Exam session quit")
	return nil
}

// ─── Sweep ───────────────────────────────────────────────────────────

// Sweep ticks every session exactly once, removes the ones that finished
// and then notifies. It returns the events it produced.
func (m *Manager) Sweep() []Event {
	m.mu.Lock()

	var (
		events   []Event
		finished []UserID
	)
	for _, s := range m.registry.All() {
		result := s.Examiner.Tick()
		ev, visible := eventFor(s, result)
		if !visible {
			continue
		}
		events = append(events, ev)
		if ev.Kind == EventSessionEnd {
			finished = append(finished, s.UserID)
		}
	}

	for _, user := range finished {
		m.registry.Remove(user)
	}
	m.unlockAndNotify(events)

	for _, ev := range events {
		if ev.Kind != EventSessionEnd {
			continue
		}
		m.log.Info().
			Str("session_id", ev.Session.ID.String()).
			Str("user_id", string(ev.Session.UserID)).
			Str("exam", ev.Session.ExamName).
			Float64("score", ev.Score.Score).
			Bool("passed", ev.Score.Passed).
			Msg("Exam session finished")
	}
	return events
}

// ─── Queries ─────────────────────────────────────────────────────────

// Active returns the user's session, if any.
func (m *Manager) Active(user UserID) (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.registry.Lookup(user)
	if !ok {
		return Info{}, false
	}
	return s.Info(), true
}

// Snapshot lists every running session, oldest first.
func (m *Manager) Snapshot() []Info {
	m.mu.Lock()
	out := make([]Info, 0, m.registry.Len())
	for _, s := range m.registry.All() {
		out = append(out, s.Info())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// ExamNames lists the exams that can be started, sorted.
func (m *Manager) ExamNames(ctx context.Context) ([]string, error) {
	names, err := m.loader.ExamNames(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
