package checkout

import (
	"context"
	"strings"
	"sync"
	"time"

	"gadget-storefront/internal/cart"
	"gadget-storefront/internal/commerce"
	"gadget-storefront/internal/coupon"
	"gadget-storefront/internal/delivery"
	"gadget-storefront/internal/domain"
	"gadget-storefront/internal/pricing"
	"gadget-storefront/internal/storage"
	"go.uber.org/zap"
)

const orderPlacedMessage = "Order placed successfully!"

type carts interface {
	Get(ctx context.Context, deviceID string) *cart.Store
}

type couponApplier interface {
	Apply(ctx context.Context, code string, subtotal int64) (coupon.Resolution, error)
}

type orderBackend interface {
	TrackCouponUsage(ctx context.Context, code string) error
	CreateOrder(ctx context.Context, req commerce.OrderRequest) (commerce.OrderResult, error)
}

type session struct {
	mu    sync.Mutex
	draft Draft
	// subtotal the applied coupon was last resolved against
	appliedSubtotal int64
	store           *cart.Store
	unsubscribe     func()
	// guarded by Service.mu
	lastUsed time.Time
}

type Service struct {
	carts   carts
	coupons couponApplier
	backend orderBackend
	bridge  storage.Bridge
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewService(carts carts, coupons couponApplier, backend orderBackend, bridge storage.Bridge, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		carts:    carts,
		coupons:  coupons,
		backend:  backend,
		bridge:   bridge,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Draft returns the device's checkout state priced against its current cart.
func (s *Service) Draft(ctx context.Context, deviceID string) View {
	sess, store := s.session(ctx, deviceID)
	snap := store.Snapshot()
	sess.mu.Lock()
	d := sess.draft
	sess.mu.Unlock()
	return newView(d, snap)
}

// SelectAddress stores the district/area choice and re-quotes delivery.
func (s *Service) SelectAddress(ctx context.Context, deviceID, district, area string) View {
	sess, store := s.session(ctx, deviceID)
	district = strings.TrimSpace(district)
	area = strings.TrimSpace(area)

	sess.mu.Lock()
	sess.draft.District = district
	sess.draft.Area = area
	sess.draft.Delivery = delivery.QuoteFor(district, area)
	d := sess.draft
	sess.mu.Unlock()

	return newView(d, store.Snapshot())
}

// ApplyCoupon validates code against the live catalog. A blank code changes
// nothing; any other failure leaves the draft without a coupon and records the
// message.
func (s *Service) ApplyCoupon(ctx context.Context, deviceID, code string) (View, string, error) {
	if strings.TrimSpace(code) == "" {
		return View{}, "", coupon.ErrEmptyCode
	}
	sess, store := s.session(ctx, deviceID)

	res, err := s.coupons.Apply(ctx, code, store.Subtotal())

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.draft.CouponCode = coupon.NormalizeCode(code)
	if err == nil {
		// The cart may have changed while the catalog was fetched.
		if sub := store.Subtotal(); sub != res.Subtotal {
			res, err = coupon.Resolve(res.Coupon.Code, sub, []domain.Coupon{res.Coupon}, s.now())
		}
	}
	if err != nil {
		sess.draft.detachCoupon(err.Error())
		sess.appliedSubtotal = 0
		return newView(sess.draft, store.Snapshot()), "", err
	}

	applied := res.Coupon
	sess.draft.Coupon = &applied
	sess.draft.CouponCode = applied.Code
	sess.draft.Discount = res.Discount
	sess.draft.CouponError = ""
	sess.appliedSubtotal = res.Subtotal
	return newView(sess.draft, store.Snapshot()), res.SuccessMessage(), nil
}

// RemoveCoupon detaches any coupon and clears the coupon error.
func (s *Service) RemoveCoupon(ctx context.Context, deviceID string) View {
	sess, store := s.session(ctx, deviceID)
	sess.mu.Lock()
	sess.draft.CouponCode = ""
	sess.draft.detachCoupon("")
	sess.appliedSubtotal = 0
	d := sess.draft
	sess.mu.Unlock()
	return newView(d, store.Snapshot())
}

// Submit places the order for the device's cart. Steps run strictly in order:
// local validation, contact save, coupon usage tracking, order creation. Only
// the last one can fail the submission once validation passed. On success the
// cart is cleared and the draft rebuilt; on failure both are left as they
// were.
func (s *Service) Submit(ctx context.Context, deviceID string, form Form) (Confirmation, error) {
	sess, store := s.session(ctx, deviceID)
	logger := s.logger.With(zap.String("device", deviceID))

	sess.mu.Lock()
	if sess.draft.Submitting {
		sess.mu.Unlock()
		return Confirmation{}, ErrSubmissionInProgress
	}
	if district := strings.TrimSpace(form.District); district != "" {
		form.District = district
	} else {
		form.District = sess.draft.District
	}
	if area := strings.TrimSpace(form.Area); area != "" {
		form.Area = area
	} else {
		form.Area = sess.draft.Area
	}
	if err := ValidateSubmission(form); err != nil {
		sess.mu.Unlock()
		return Confirmation{}, err
	}
	snap := store.Snapshot()
	if len(snap.Lines) == 0 {
		sess.mu.Unlock()
		return Confirmation{}, ErrEmptyCart
	}
	// The submitted address becomes the draft's selection so the fee charged
	// is the fee the draft shows.
	if form.District != sess.draft.District || form.Area != sess.draft.Area {
		sess.draft.District = form.District
		sess.draft.Area = form.Area
		sess.draft.Delivery = delivery.QuoteFor(form.District, form.Area)
	}
	quote := sess.draft.Delivery

	var couponCode string
	var discount int64
	if c := sess.draft.Coupon; c != nil {
		res, err := coupon.Resolve(c.Code, snap.Subtotal, []domain.Coupon{*c}, s.now())
		if err != nil {
			sess.draft.detachCoupon(err.Error())
			sess.appliedSubtotal = 0
			sess.mu.Unlock()
			return Confirmation{}, err
		}
		couponCode = res.Coupon.Code
		discount = res.Discount
	}
	sess.draft.Submitting = true
	sess.mu.Unlock()

	defer func() {
		sess.mu.Lock()
		sess.draft.Submitting = false
		sess.mu.Unlock()
	}()

	totals := pricing.Compute(snap.Subtotal, quote.Fee, discount)
	contact := form.contact()

	_ = storage.SaveJSON(ctx, s.bridge, storage.Key(deviceID, storage.ContactKey), contact, logger)

	if couponCode != "" {
		if err := s.backend.TrackCouponUsage(ctx, couponCode); err != nil {
			logger.Warn("coupon usage tracking failed", zap.String("code", couponCode), zap.Error(err))
		}
	}

	res, err := s.backend.CreateOrder(ctx, BuildPayload(snap.Lines, form, totals, couponCode, s.now()))
	if err != nil {
		logger.Error("order submission failed", zap.Error(err))
		return Confirmation{}, ErrOrderFailed
	}
	if res.InvoiceID == "" {
		logger.Error("order accepted without invoice id",
			zap.Int64("grand_total", totals.GrandTotal),
			zap.Int("lines", len(snap.Lines)),
		)
		return Confirmation{}, ErrMissingInvoice
	}

	store.Clear(ctx)
	sess.mu.Lock()
	sess.draft = newDraft(contact)
	sess.appliedSubtotal = 0
	sess.mu.Unlock()

	logger.Info("order placed",
		zap.String("invoice", res.InvoiceID),
		zap.Int64("grand_total", totals.GrandTotal),
	)
	return Confirmation{InvoiceID: res.InvoiceID, Totals: totals, Message: orderPlacedMessage}, nil
}

func (s *Service) session(ctx context.Context, deviceID string) (*session, *cart.Store) {
	store := s.carts.Get(ctx, deviceID)

	s.mu.Lock()
	sess, ok := s.sessions[deviceID]
	s.mu.Unlock()
	if !ok {
		contact, _ := storage.LoadJSON[domain.Contact](ctx, s.bridge, storage.Key(deviceID, storage.ContactKey), s.logger)
		fresh := &session{draft: newDraft(contact)}
		s.mu.Lock()
		if sess, ok = s.sessions[deviceID]; !ok {
			sess = fresh
			s.sessions[deviceID] = sess
		}
		s.mu.Unlock()
	}
	s.mu.Lock()
	sess.lastUsed = s.now()
	s.mu.Unlock()

	if s.attach(deviceID, sess, store) {
		s.revalidate(deviceID, sess, store.Snapshot())
	}
	return sess, store
}

// attach subscribes the session to store. A session that outlived its cart
// store in the registry moves to the new one and reports true.
func (s *Service) attach(deviceID string, sess *session, store *cart.Store) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.store == store {
		return false
	}
	moved := sess.store != nil
	if sess.unsubscribe != nil {
		sess.unsubscribe()
	}
	sess.store = store
	sess.unsubscribe = store.Subscribe(func(snap cart.Snapshot) {
		s.revalidate(deviceID, sess, snap)
	})
	return moved
}

// EvictIdle drops sessions not used within idle and reports how many were
// released. Sessions with a submission in flight are kept. The draft of an
// evicted session is rebuilt from the saved contact on next use.
func (s *Service) EvictIdle(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	var released []*session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if !sess.lastUsed.Before(cutoff) {
			continue
		}
		sess.mu.Lock()
		busy := sess.draft.Submitting
		sess.mu.Unlock()
		if busy {
			continue
		}
		delete(s.sessions, id)
		released = append(released, sess)
	}
	s.mu.Unlock()

	for _, sess := range released {
		sess.mu.Lock()
		if sess.unsubscribe != nil {
			sess.unsubscribe()
		}
		sess.unsubscribe = nil
		sess.store = nil
		sess.mu.Unlock()
	}
	return len(released)
}

// revalidate re-resolves an applied coupon against a new subtotal using the
// coupon as it was when applied.
func (s *Service) revalidate(deviceID string, sess *session, snap cart.Snapshot) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	c := sess.draft.Coupon
	if c == nil || snap.Subtotal == sess.appliedSubtotal {
		return
	}
	res, err := coupon.Resolve(c.Code, snap.Subtotal, []domain.Coupon{*c}, s.now())
	if err != nil {
		s.logger.Info("applied coupon no longer valid",
			zap.String("device", deviceID),
			zap.String("code", c.Code),
			zap.Int64("subtotal", snap.Subtotal),
			zap.Error(err),
		)
		sess.draft.detachCoupon(err.Error())
		sess.appliedSubtotal = 0
		return
	}
	sess.draft.Discount = res.Discount
	sess.appliedSubtotal = snap.Subtotal
}
