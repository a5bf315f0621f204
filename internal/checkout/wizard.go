package checkout

import (
	"context"
	"sync"
	"time"

	"stayhold/internal/cart"
	"stayhold/internal/domain"
	"stayhold/internal/events"
	"stayhold/internal/guest"
	"stayhold/internal/metrics"
	"stayhold/internal/models"
	"stayhold/internal/pricing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SourceKind selects where the wizard's rooms come from.
type SourceKind string

const (
	// SourceFreeSearch lets the user pick room types from availability.
	SourceFreeSearch SourceKind = "free_search"
	// SourceOffer books a fixed discounted bundle, locked all-or-nothing.
	SourceOffer SourceKind = "offer"
)

// RoomSource parameterizes the one state machine over the two booking
// flows. Plain-room and offer checkouts share every phase, gate and
// compensation; only room acquisition and discount differ.
type RoomSource struct {
	Kind SourceKind
	// PreselectRoomTypeID is a deep-link hint for free search: lock
	// one room of this type on entering the search step. Zero means
	// no preselection.
	PreselectRoomTypeID int64
	// OfferID and DiscountPercent apply to the offer kind only.
	OfferID         int64
	DiscountPercent float64
	// OfferRooms is the bundle size, learned from the availability
	// check before locking.
	OfferRooms int
}

// Options wires the wizard's collaborators.
type Options struct {
	UserID   int64
	Backend  domain.LockBackend
	Profiles domain.ProfileService
	Store    domain.ResumeStore
	Bus      domain.EventPublisher
	Timer    domain.Countdown
	Logger   *zerolog.Logger
	// HoldDuration is the session expiry the wizard requests from the
	// backend; the backend's answer overrides it.
	HoldDuration time.Duration
	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
}

// Wizard is the checkout state machine. All public methods are
// serialized by the mutex: the flow is cooperative and event-driven,
// and the discipline is about ordering of continuations, not about
// parallelism. Network calls run outside the mutex; every continuation
// re-checks that its session is still the active one before touching
// state.
type Wizard struct {
	mu sync.Mutex

	userID   int64
	backend  domain.LockBackend
	profiles domain.ProfileService
	store    domain.ResumeStore
	bus      domain.EventPublisher
	timer    domain.Countdown
	logger   *zerolog.Logger
	holdFor  time.Duration
	clock    func() time.Time

	phase   models.Phase
	session *models.BookingSession
	source  RoomSource
	cart    *cart.Cart
	guests  *guest.Ledger
	quote   pricing.Quote

	roomTypes []*models.RoomType

	// epoch increments whenever the active session is superseded
	// (date change, expiry, cancellation). In-flight continuations
	// compare epochs and discard their results when stale.
	epoch uint64

	// confirmInFlight defers a timer expiry until the payment call
	// settles; cancelling a possibly-charging confirm is worse than
	// letting it finish.
	confirmInFlight bool
	pendingExpiry   bool

	confirmation *models.BookingConfirmation
	notice       string
	lastError    string
}

// New builds a wizard at the dates step.
func New(opts Options) *Wizard {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	holdFor := opts.HoldDuration
	if holdFor <= 0 {
		holdFor = 15 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Wizard{
		userID:   opts.UserID,
		backend:  opts.Backend,
		profiles: opts.Profiles,
		store:    opts.Store,
		bus:      opts.Bus,
		timer:    opts.Timer,
		logger:   logger,
		holdFor:  holdFor,
		clock:    clock,
		phase:    models.PhaseDates,
		cart:     cart.New(),
		guests:   guest.NewLedger(),
	}
}

// NewFromResume rebuilds a wizard from a persisted snapshot, restarting
// the countdown from the snapshot's absolute expiry. A snapshot whose
// deadline already passed is discarded and the wizard starts fresh.
func NewFromResume(opts Options, resume *models.SessionResume) *Wizard {
	w := New(opts)
	if resume == nil || resume.SessionID == "" {
		return w
	}
	if !resume.ExpiresAt.IsZero() && !w.clock().Before(resume.ExpiresAt) {
		w.clearResume(context.Background())
		return w
	}

	w.session = &models.BookingSession{
		SessionID: resume.SessionID,
		CheckIn:   resume.CheckIn,
		CheckOut:  resume.CheckOut,
		ExpiresAt: resume.ExpiresAt,
	}
	if resume.OfferID != 0 {
		w.source = RoomSource{Kind: SourceOffer, OfferID: resume.OfferID}
	} else {
		w.source = RoomSource{Kind: SourceFreeSearch}
	}

	for _, lock := range resume.Locks {
		if err := w.cart.AddLock(lock); err != nil {
			w.logger.Warn().Err(err).Str("lock_id", lock.LockID).Msg("dropping lock from resume snapshot")
			continue
		}
		w.guests.Ensure(lock.LockID)
	}
	for _, g := range resume.Guests {
		if w.cart.Lock(g.LockID) != nil {
			*w.guests.Ensure(g.LockID) = *g
		}
	}

	// Payment is never resumed directly: completeness is re-proved by
	// walking forward through the details step.
	w.phase = models.PhaseSearchAndDetails
	if resume.Phase == models.PhaseDates {
		w.phase = models.PhaseDates
	}

	w.recomputeQuote()
	if w.timer != nil && !resume.ExpiresAt.IsZero() {
		w.timer.Start(resume.ExpiresAt)
	}
	return w
}

// Phase returns the active wizard phase.
func (w *Wizard) Phase() models.Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// Session returns a copy of the active session, or nil.
func (w *Wizard) Session() *models.BookingSession {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return nil
	}
	s := *w.session
	return &s
}

// Quote returns the current price breakdown.
func (w *Wizard) Quote() pricing.Quote {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.quote
}

// Entries returns the cart entries.
func (w *Wizard) Entries() []*models.CartEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cart.Entries()
}

// HeldCount returns the number of held rooms.
func (w *Wizard) HeldCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cart.TotalCount()
}

// RoomTypes returns the last loaded availability.
func (w *Wizard) RoomTypes() []*models.RoomType {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.roomTypes
}

// Guest returns the guest record for a held lock, or nil.
func (w *Wizard) Guest(lockID string) *models.GuestDetail {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.guests.Get(lockID)
}

// Notice returns the latest user-facing notice (expiry, forced reset).
func (w *Wizard) Notice() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notice
}

// LastError returns the latest surfaced error message, if any.
func (w *Wizard) LastError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastError
}

// Confirmation returns the booking confirmation once the wizard is in
// the terminal phase, or nil.
func (w *Wizard) Confirmation() *models.BookingConfirmation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.confirmation
}

// recomputeQuote rebuilds the price breakdown from the hold set.
// Callers hold the mutex.
func (w *Wizard) recomputeQuote() {
	if w.session == nil {
		w.quote = pricing.Quote{}
		return
	}
	w.quote = pricing.Compute(w.session.CheckIn, w.session.CheckOut, w.cart.Locks(), w.source.DiscountPercent)
}

// persistResume saves the snapshot best-effort. Callers hold the mutex.
func (w *Wizard) persistResume(ctx context.Context) {
	if w.store == nil || w.session == nil {
		return
	}
	resume := &models.SessionResume{
		UserID:    w.userID,
		SessionID: w.session.SessionID,
		CheckIn:   w.session.CheckIn,
		CheckOut:  w.session.CheckOut,
		ExpiresAt: w.session.ExpiresAt,
		Phase:     w.phase,
		Locks:     w.cart.Locks(),
		Guests:    w.guests.Details(w.cart.LockIDs()),
		OfferID:   w.source.OfferID,
	}
	if err := w.store.Set(ctx, resume); err != nil {
		w.logger.Error().Err(err).Msg("failed to persist session resume")
	}
}

func (w *Wizard) clearResume(ctx context.Context) {
	if w.store == nil {
		return
	}
	if err := w.store.Clear(ctx, w.userID); err != nil {
		w.logger.Error().Err(err).Msg("failed to clear session resume")
	}
}

func (w *Wizard) publish(eventType string, payload events.HoldEventPayload) {
	if w.bus == nil {
		return
	}
	if err := w.bus.PublishJSON(eventType, payload); err != nil {
		w.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func (w *Wizard) sessionPayload() events.HoldEventPayload {
	p := events.HoldEventPayload{}
	if w.session != nil {
		p.SessionID = w.session.SessionID
		p.CheckIn = w.session.CheckIn
		p.CheckOut = w.session.CheckOut
		p.ExpiresAt = w.session.ExpiresAt
	}
	return p
}

// newSessionLocked replaces the active session and bumps the epoch so
// stale continuations discard themselves. Callers hold the mutex.
func (w *Wizard) newSessionLocked(checkIn, checkOut time.Time) {
	w.epoch++
	w.session = &models.BookingSession{
		SessionID: uuid.NewString(),
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		CreatedAt: w.clock(),
	}
	metrics.IncSessionStarted()
}

// today truncates the clock to a calendar date.
func (w *Wizard) today() time.Time {
	now := w.clock()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
