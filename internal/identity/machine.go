package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ghlove/clientcore/internal/auth"
	"github.com/ghlove/clientcore/internal/logging"
	"github.com/ghlove/clientcore/internal/metrics"
	"github.com/ghlove/clientcore/internal/observe"
	"github.com/ghlove/clientcore/internal/profile"
	"github.com/ghlove/clientcore/internal/report"
	"github.com/ghlove/clientcore/internal/signup"
)

const tracerName = "github.com/ghlove/clientcore/internal/identity"

// SessionSource looks up the current session. A nil session without error means signed out.
type SessionSource interface {
	Session(ctx context.Context) (*auth.Session, error)
}

// ProfileSource fetches the remote profile row. A nil profile without error means no row yet.
type ProfileSource interface {
	Load(ctx context.Context, userID string) (*profile.Profile, error)
}

// PhoneSource fetches the remote phone verification flag.
type PhoneSource interface {
	PhoneStatus(ctx context.Context, userID string) (profile.PhoneStatus, error)
}

// SignupSource reads the locally persisted signup phone state.
type SignupSource interface {
	PhoneState(ctx context.Context) (signup.PhoneState, error)
}

type signal int

const (
	signalSession signal = iota
	signalProfile
	signalPhone
	signalLocal
	signalCount
)

func (s signal) String() string {
	switch s {
	case signalSession:
		return "session"
	case signalProfile:
		return "profile"
	case signalPhone:
		return "phone"
	case signalLocal:
		return "signup"
	default:
		return "unknown"
	}
}

const (
	outcomeCommitted = "committed"
	outcomeStale     = "stale"
	outcomeError     = "error"
	outcomeDropped   = "dropped"
)

// Option configures a Machine.
type Option func(*Machine)

// WithFetchTimeout bounds every signal fetch. A timed-out fetch counts as a failure.
func WithFetchTimeout(d time.Duration) Option {
	return func(m *Machine) { m.timeout = d }
}

// WithReporter sets the collaborator that receives fetch failures.
func WithReporter(r report.Reporter) Option {
	return func(m *Machine) {
		if r != nil {
			m.reporter = r
		}
	}
}

// WithMetrics records fetch outcomes.
func WithMetrics(met *metrics.Metrics) Option {
	return func(m *Machine) { m.metrics = met }
}

// WithLogger sets the machine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.logger = logging.Component(logger, "identity") }
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(m *Machine) {
		if t != nil {
			m.tracer = t
		}
	}
}

// WithSignupSource adds the local signup phone state as a pre-fetch fallback.
func WithSignupSource(src SignupSource) Option {
	return func(m *Machine) { m.local = src }
}

// Machine combines signal sources into a State. Fetches run concurrently outside the lock; each
// result commits only if no newer fetch of the same signal has committed already.
//
// Subscribers are called synchronously and must not call Start, SetSession or Refresh from the
// callback.
type Machine struct {
	sessions SessionSource
	profiles ProfileSource
	phones   PhoneSource
	local    SignupSource

	timeout  time.Duration
	reporter report.Reporter
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer

	clock atomic.Int64
	state *observe.Store[State]
	pubMu sync.Mutex

	mu              sync.Mutex
	closed          bool
	stamps          [signalCount]int64
	session         *auth.Session
	sessionResolved bool
	profile         *profile.Profile
	profileResolved bool
	remotePhone     profile.PhoneStatus
	phoneFetched    bool
	signup          signup.PhoneState
	current         State
}

// NewMachine wires a machine to its sources. It starts in Loading.
func NewMachine(sessions SessionSource, profiles ProfileSource, phones PhoneSource, opts ...Option) *Machine {
	m := &Machine{
		sessions: sessions,
		profiles: profiles,
		phones:   phones,
		reporter: report.Nop{},
		logger:   logging.Component(nil, "identity"),
		tracer:   otel.Tracer(tracerName),
		state:    observe.NewStore(Loading),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start looks up the session and, when one exists, fetches the remaining signals.
func (m *Machine) Start(ctx context.Context) State {
	var s *auth.Session
	committed := fetch(ctx, m, signalSession, m.clock.Add(1), "", func(ctx context.Context) (*auth.Session, error) {
		return m.sessions.Session(ctx)
	}, func(v *auth.Session) {
		s = v
		m.applySessionLocked(v)
	})
	if committed && s != nil {
		return m.Refresh(ctx)
	}
	return m.State()
}

// SetSession applies an auth change event. A nil session derives NeedsAuth immediately. A new
// user invalidates every in-flight fetch for the previous one.
func (m *Machine) SetSession(ctx context.Context, s *auth.Session) State {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return m.State()
	}
	m.stamps[signalSession] = m.clock.Add(1)
	m.applySessionLocked(s)
	m.mu.Unlock()
	m.publish()

	if s == nil {
		return m.State()
	}
	return m.Refresh(ctx)
}

// applySessionLocked must be called with m.mu held and the session stamp already recorded.
func (m *Machine) applySessionLocked(s *auth.Session) {
	prev := m.session
	m.session = s
	m.sessionResolved = true
	if s != nil && prev != nil && prev.UserID == s.UserID {
		m.recomputeLocked()
		return
	}
	stamp := m.stamps[signalSession]
	m.stamps[signalProfile] = stamp
	m.stamps[signalPhone] = stamp
	m.stamps[signalLocal] = stamp
	m.profile = nil
	m.profileResolved = false
	m.remotePhone = profile.PhoneStatus{}
	m.phoneFetched = false
	m.signup = signup.PhoneState{}
	m.recomputeLocked()
}

// Refresh re-fetches profile, phone and local signup signals concurrently. It is safe to call
// concurrently; overlapping fetches never regress a signal to an older value. Stamps are taken
// together with the user id so a session change ordered after them always wins.
func (m *Machine) Refresh(ctx context.Context) State {
	m.mu.Lock()
	userID := ""
	if m.session != nil {
		userID = m.session.UserID
	}
	closed := m.closed
	var stamps [signalCount]int64
	for _, sig := range []signal{signalProfile, signalPhone, signalLocal} {
		stamps[sig] = m.clock.Add(1)
	}
	m.mu.Unlock()
	if closed || userID == "" {
		return m.State()
	}

	var g errgroup.Group
	g.Go(func() error {
		fetch(ctx, m, signalProfile, stamps[signalProfile], userID, func(ctx context.Context) (*profile.Profile, error) {
			return m.profiles.Load(ctx, userID)
		}, func(p *profile.Profile) {
			m.profile = p
			m.profileResolved = true
		})
		return nil
	})
	g.Go(func() error {
		fetch(ctx, m, signalPhone, stamps[signalPhone], userID, func(ctx context.Context) (profile.PhoneStatus, error) {
			return m.phones.PhoneStatus(ctx, userID)
		}, func(st profile.PhoneStatus) {
			m.remotePhone = st
			m.phoneFetched = true
		})
		return nil
	})
	if m.local != nil {
		g.Go(func() error {
			fetch(ctx, m, signalLocal, stamps[signalLocal], userID, m.local.PhoneState, func(st signup.PhoneState) {
				m.signup = st
			})
			return nil
		})
	}
	_ = g.Wait()
	return m.State()
}

// State returns the current gating state.
func (m *Machine) State() State {
	return m.state.Get()
}

// Snapshot returns the signals behind the current state.
func (m *Machine) Snapshot() Signals {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signalsLocked()
}

// Subscribe calls fn with every new state until cancel is called.
func (m *Machine) Subscribe(fn func(State)) (cancel func()) {
	return m.state.Subscribe(fn)
}

// Close stops the machine. Fetches resolving afterwards are dropped.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// fetch runs one stamped signal fetch and commits it through apply. It reports whether the result
// was committed. apply runs with m.mu held.
func fetch[T any](ctx context.Context, m *Machine, sig signal, stamp int64, userID string, run func(context.Context) (T, error), apply func(T)) bool {
	ctx, span := m.tracer.Start(ctx, "identity.fetch."+sig.String(),
		trace.WithAttributes(attribute.Int64("identity.stamp", stamp)))
	defer span.End()

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	start := time.Now()
	v, err := run(ctx)
	outcome := m.commit(sig, stamp, userID, err, func() { apply(v) })
	m.metrics.ObserveSignalFetch(sig.String(), outcome, time.Since(start))
	span.SetAttributes(attribute.String("identity.outcome", outcome))

	switch outcome {
	case outcomeError:
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(ErrFetchTimeout, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.logger.Warn("signal fetch failed", slog.String("signal", sig.String()), slog.Any("error", err))
		m.reporter.Report(ctx, report.Failure{
			Component: "identity",
			Operation: "fetch." + sig.String(),
			UserID:    userID,
			Err:       err,
		})
	case outcomeStale:
		m.logger.Debug("discarded stale signal", slog.String("signal", sig.String()), slog.Int64("stamp", stamp))
	}
	return outcome == outcomeCommitted
}

// ErrFetchTimeout marks a signal fetch that exceeded the configured timeout.
var ErrFetchTimeout = errors.New("identity: signal fetch timed out")

// commit applies a fetch result unless the machine is closed, a newer result already landed, or
// the result belongs to a user other than the current session's. Session fetches pass an empty
// userID.
func (m *Machine) commit(sig signal, stamp int64, userID string, err error, apply func()) string {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return outcomeDropped
	case err != nil:
		m.mu.Unlock()
		return outcomeError
	case stamp <= m.stamps[sig], sig != signalSession && !m.ownsLocked(userID):
		m.mu.Unlock()
		return outcomeStale
	}
	m.stamps[sig] = stamp
	apply()
	m.recomputeLocked()
	m.mu.Unlock()
	m.publish()
	return outcomeCommitted
}

func (m *Machine) ownsLocked(userID string) bool {
	return m.session != nil && m.session.UserID == userID
}

func (m *Machine) recomputeLocked() {
	m.current = Evaluate(m.signalsLocked())
}

// publish pushes the latest committed state to subscribers. pubMu keeps publishes ordered so a
// slower commit never republishes an older state.
func (m *Machine) publish() {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	m.state.Set(s)
}

func (m *Machine) signalsLocked() Signals {
	s := Signals{
		SessionResolved: m.sessionResolved,
		HasSession:      m.session != nil,
		ProfileResolved: m.profileResolved,
		Profile:         m.profile,
	}
	if m.session != nil {
		s.EmailVerified = m.session.EmailVerified
		s.Phone = m.phoneLocked()
	}
	return s
}

// phoneLocked applies phone precedence: a remote flag wins once known, local verification only
// unblocks while no remote flag exists, and a completed remote lookup without a flag reads as
// unverified.
func (m *Machine) phoneLocked() PhoneSignal {
	if m.phoneFetched && m.remotePhone.Known {
		return verifiedSignal(m.remotePhone.Verified)
	}
	if m.profile != nil && m.profile.PhoneVerified != nil {
		return verifiedSignal(*m.profile.PhoneVerified)
	}
	if m.signup.Verified {
		return PhoneVerified
	}
	if m.phoneFetched {
		return PhoneUnverified
	}
	return PhoneUnknown
}

func verifiedSignal(v bool) PhoneSignal {
	if v {
		return PhoneVerified
	}
	return PhoneUnverified
}
