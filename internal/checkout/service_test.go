package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"gadget-storefront/internal/cart"
	"gadget-storefront/internal/commerce"
	"gadget-storefront/internal/coupon"
	"gadget-storefront/internal/domain"
	"gadget-storefront/internal/storage"
	"github.com/shopspring/decimal"
)

type stubCatalog struct {
	coupons []domain.Coupon
	err     error
}

func (s *stubCatalog) ListCoupons(_ context.Context) ([]domain.Coupon, error) {
	return s.coupons, s.err
}

type stubBackend struct {
	mu       sync.Mutex
	trackErr error
	err      error
	invoice  string
	tracked  []string
	orders   []commerce.OrderRequest
	entered  chan struct{}
	release  chan struct{}
}

func (s *stubBackend) TrackCouponUsage(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = append(s.tracked, code)
	return s.trackErr
}

func (s *stubBackend) CreateOrder(_ context.Context, req commerce.OrderRequest) (commerce.OrderResult, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, req)
	if s.err != nil {
		return commerce.OrderResult{}, s.err
	}
	return commerce.OrderResult{InvoiceID: s.invoice}, nil
}

type fixture struct {
	svc     *Service
	carts   *cart.Registry
	bridge  storage.Bridge
	backend *stubBackend
	catalog *stubCatalog
}

func newFixture(coupons ...domain.Coupon) *fixture {
	bridge := storage.NewMemory()
	carts := cart.NewRegistry(bridge, nil)
	catalog := &stubCatalog{coupons: coupons}
	backend := &stubBackend{invoice: "100245"}
	svc := NewService(carts, coupon.NewService(catalog, nil), backend, bridge, nil)
	return &fixture{svc: svc, carts: carts, bridge: bridge, backend: backend, catalog: catalog}
}

func (f *fixture) add(price string, qty int) *cart.Store {
	store := f.carts.Get(context.Background(), "dev")
	store.AddItem(context.Background(), domain.Product{ID: "p-" + price, Name: "Item", Price: price}, qty, nil)
	return store
}

func percentCoupon(code string, amount, limit int64) domain.Coupon {
	return domain.Coupon{Code: code, AmountType: domain.AmountPercentage, Amount: decimal.NewFromInt(amount), AmountLimit: decimal.NewFromInt(limit)}
}

func flatCoupon(code string, amount, minimum int64) domain.Coupon {
	return domain.Coupon{Code: code, AmountType: domain.AmountFlat, Amount: decimal.NewFromInt(amount), MinimumOrderAmount: decimal.NewFromInt(minimum)}
}

func TestSubmitRejectsShortPhoneBeforeNetwork(t *testing.T) {
	f := newFixture()
	f.add("৳ 1,000", 1)
	form := validForm()
	form.Phone = "0171234567"

	_, err := f.svc.Submit(context.Background(), "dev", form)
	if !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected invalid phone, got %v", err)
	}
	if len(f.backend.orders) != 0 || len(f.backend.tracked) != 0 {
		t.Fatalf("expected no backend calls, got orders=%d tracked=%d", len(f.backend.orders), len(f.backend.tracked))
	}
	if _, err := f.bridge.Load(context.Background(), storage.Key("dev", storage.ContactKey)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("contact must not be saved on validation failure")
	}
}

func TestSubmitRequiresAddressAndItems(t *testing.T) {
	f := newFixture()
	form := validForm()
	form.District, form.Area = "", ""
	if _, err := f.svc.Submit(context.Background(), "dev", form); !errors.Is(err, ErrAddressIncomplete) {
		t.Fatalf("expected address error, got %v", err)
	}
	if _, err := f.svc.Submit(context.Background(), "dev", validForm()); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected empty cart error, got %v", err)
	}
}

func TestSubmitUsesSelectedAddress(t *testing.T) {
	f := newFixture()
	f.add("৳ 1,000", 1)
	f.svc.SelectAddress(context.Background(), "dev", "Chattogram", "Agrabad")
	form := validForm()
	form.District, form.Area = "", ""

	if _, err := f.svc.Submit(context.Background(), "dev", form); err != nil {
		t.Fatalf("submit: %v", err)
	}
	req := f.backend.orders[0]
	if req.District != "Chattogram" || req.Area != "Agrabad" || req.DeliveryFee != 130 {
		t.Fatalf("unexpected address in payload %+v", req)
	}
}

func TestSubmitWithCappedPercentageCoupon(t *testing.T) {
	ctx := context.Background()
	f := newFixture(percentCoupon("SAVE20", 20, 1500))
	store := f.add("৳ 10,000", 1)

	f.svc.SelectAddress(ctx, "dev", "Dhaka", "Mirpur")
	view, msg, err := f.svc.ApplyCoupon(ctx, "dev", "save20")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if view.Totals.GrandTotal != 10000+70-1500 {
		t.Fatalf("unexpected grand total %d", view.Totals.GrandTotal)
	}
	if !strings.Contains(msg, "৳1,500") {
		t.Fatalf("expected saved amount in message, got %q", msg)
	}

	conf, err := f.svc.Submit(ctx, "dev", validForm())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if conf.InvoiceID != "100245" || conf.Totals.GrandTotal != 8570 {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
	if len(f.backend.tracked) != 1 || f.backend.tracked[0] != "SAVE20" {
		t.Fatalf("expected coupon usage tracked, got %v", f.backend.tracked)
	}
	req := f.backend.orders[0]
	if req.Discount != 1500 || req.SubTotal != 10000 || req.DeliveryFee != 70 || req.CouponCode != "SAVE20" {
		t.Fatalf("unexpected payload %+v", req)
	}

	if store.Count() != 0 {
		t.Fatalf("expected cart cleared after success")
	}
	draft := f.svc.Draft(ctx, "dev").Draft
	if draft.Coupon != nil || draft.Discount != 0 || draft.CouponCode != "" {
		t.Fatalf("expected draft reset, got %+v", draft)
	}
	if draft.Contact.FirstName != "Rahim" || draft.District != "Dhaka" || draft.Area != "Mirpur" {
		t.Fatalf("expected draft prefilled from saved contact, got %+v", draft)
	}
}

func TestFlatCouponExceedingSubtotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(flatCoupon("BIG", 1000, 0))
	f.add("৳ 500", 1)
	f.svc.SelectAddress(ctx, "dev", "Dhaka", "Mirpur")

	view, _, err := f.svc.ApplyCoupon(ctx, "dev", "BIG")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if view.Draft.Discount != 500 || view.Totals.GrandTotal != view.Draft.Delivery.Fee {
		t.Fatalf("expected grand total equal to delivery fee, got %+v", view.Totals)
	}
}

func TestTrackingFailureDoesNotBlockOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(flatCoupon("TEN", 10, 0))
	f.backend.trackErr = errors.New("tracking down")
	f.add("৳ 1,000", 1)
	if _, _, err := f.svc.ApplyCoupon(ctx, "dev", "TEN"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := f.svc.Submit(ctx, "dev", validForm()); err != nil {
		t.Fatalf("expected order placed despite tracking failure, got %v", err)
	}
	if len(f.backend.orders) != 1 {
		t.Fatalf("expected one order, got %d", len(f.backend.orders))
	}
}

func TestSubmitFailurePreservesState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(flatCoupon("TEN", 10, 0))
	f.backend.err = errors.New("connection refused")
	store := f.add("৳ 1,000", 2)
	if _, _, err := f.svc.ApplyCoupon(ctx, "dev", "TEN"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	_, err := f.svc.Submit(ctx, "dev", validForm())
	if !errors.Is(err, ErrOrderFailed) {
		t.Fatalf("expected order failed, got %v", err)
	}
	if err.Error() != "Failed to place order" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if store.Count() != 2 {
		t.Fatalf("expected cart preserved, got %d", store.Count())
	}
	draft := f.svc.Draft(ctx, "dev").Draft
	if draft.Coupon == nil || draft.Submitting {
		t.Fatalf("expected coupon kept and submission idle, got %+v", draft)
	}
}

func TestMissingInvoiceKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.backend.invoice = ""
	store := f.add("৳ 1,000", 1)

	_, err := f.svc.Submit(ctx, "dev", validForm())
	if !errors.Is(err, ErrMissingInvoice) {
		t.Fatalf("expected missing invoice, got %v", err)
	}
	if store.Count() != 1 {
		t.Fatalf("expected cart kept, got %d", store.Count())
	}
}

func TestConcurrentSubmitRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.backend.entered = make(chan struct{})
	f.backend.release = make(chan struct{})
	f.add("৳ 1,000", 1)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Submit(ctx, "dev", validForm())
		done <- err
	}()
	<-f.backend.entered

	if _, err := f.svc.Submit(ctx, "dev", validForm()); !errors.Is(err, ErrSubmissionInProgress) {
		t.Fatalf("expected in-progress error, got %v", err)
	}
	if !f.svc.Draft(ctx, "dev").Draft.Submitting {
		t.Fatalf("expected draft to report submitting")
	}

	close(f.backend.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first submit: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("first submit did not finish")
	}
	if f.svc.Draft(ctx, "dev").Draft.Submitting {
		t.Fatalf("expected idle after completion")
	}
}

func TestApplyCouponRejectionResetsCoupon(t *testing.T) {
	ctx := context.Background()
	f := newFixture(flatCoupon("TEN", 10, 0))
	f.add("৳ 1,000", 1)
	if _, _, err := f.svc.ApplyCoupon(ctx, "dev", "TEN"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	view, _, err := f.svc.ApplyCoupon(ctx, "dev", "NOPE")
	if !errors.Is(err, coupon.ErrInvalidCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	if view.Draft.Coupon != nil || view.Draft.Discount != 0 || view.Draft.CouponError != "Invalid coupon code" {
		t.Fatalf("expected coupon reset, got %+v", view.Draft)
	}
}

func TestApplyCouponBlankChangesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(flatCoupon("TEN", 10, 0))
	f.add("৳ 1,000", 1)
	if _, _, err := f.svc.ApplyCoupon(ctx, "dev", "TEN"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, _, err := f.svc.ApplyCoupon(ctx, "dev", "  "); !errors.Is(err, coupon.ErrEmptyCode) {
		t.Fatalf("expected empty code, got %v", err)
	}
	draft := f.svc.Draft(ctx, "dev").Draft
	if draft.Coupon == nil || draft.Discount != 10 {
		t.Fatalf("expected coupon untouched, got %+v", draft)
	}
}

func TestApplyCouponBackendUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.catalog.err = fmt.Errorf("list coupons: %w", domain.ErrBackendUnsuccessful)
	f.add("৳ 1,000", 1)

	view, _, err := f.svc.ApplyCoupon(ctx, "dev", "TEN")
	if !errors.Is(err, coupon.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if view.Draft.CouponError != "Unable to validate coupon" {
		t.Fatalf("unexpected coupon error %q", view.Draft.CouponError)
	}
}

func TestRemoveCoupon(t *testing.T) {
	ctx := context.Background()
	f := newFixture(flatCoupon("TEN", 10, 0))
	f.add("৳ 1,000", 1)
	if _, _, err := f.svc.ApplyCoupon(ctx, "dev", "TEN"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	view := f.svc.RemoveCoupon(ctx, "dev")
	d := view.Draft
	if d.Coupon != nil || d.CouponCode != "" || d.Discount != 0 || d.CouponError != "" {
		t.Fatalf("expected coupon cleared, got %+v", d)
	}
	if view.Totals.Discount != 0 {
		t.Fatalf("expected no discount in totals")
	}
}

func TestRevalidationDetachesWhenMinimumNoLongerMet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(flatCoupon("MIN5K", 500, 5000))
	store := f.add("৳ 3,000", 2)
	if _, _, err := f.svc.ApplyCoupon(ctx, "dev", "MIN5K"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	store.UpdateQuantity(ctx, "p-৳ 3,000", domain.DefaultVariantKey, 1)

	d := f.svc.Draft(ctx, "dev").Draft
	if d.Coupon != nil || d.Discount != 0 {
		t.Fatalf("expected coupon detached, got %+v", d)
	}
	if !strings.Contains(d.CouponError, "Minimum order amount") {
		t.Fatalf("expected minimum order message, got %q", d.CouponError)
	}
}

func TestRevalidationFollowsPercentage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(percentCoupon("TENPC", 10, 0))
	store := f.add("৳ 1,000", 1)
	if _, _, err := f.svc.ApplyCoupon(ctx, "dev", "TENPC"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	store.UpdateQuantity(ctx, "p-৳ 1,000", domain.DefaultVariantKey, 3)

	view := f.svc.Draft(ctx, "dev")
	if view.Draft.Discount != 300 || view.Totals.GrandTotal != 3000-300 {
		t.Fatalf("expected discount to follow subtotal, got %+v", view.Totals)
	}
}

func TestDraftPrefillFromSavedContact(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	contact := domain.Contact{FirstName: "Karim", Phone: "01812345678", District: "Gazipur", City: "Tongi"}
	if err := storage.SaveJSON(ctx, f.bridge, storage.Key("dev", storage.ContactKey), contact, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	d := f.svc.Draft(ctx, "dev").Draft
	if d.Contact != contact || d.District != "Gazipur" || d.Area != "Tongi" || d.Delivery.Fee != 90 {
		t.Fatalf("unexpected prefilled draft %+v", d)
	}
}

func TestSubmitFormAddressBecomesDraftSelection(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.backend.err = errors.New("connection refused")
	f.add("৳ 1,000", 1)
	f.svc.SelectAddress(ctx, "dev", "Dhaka", "Mirpur")

	form := validForm()
	form.District, form.Area = "Chattogram", "Agrabad"
	if _, err := f.svc.Submit(ctx, "dev", form); !errors.Is(err, ErrOrderFailed) {
		t.Fatalf("expected order failed, got %v", err)
	}

	req := f.backend.orders[0]
	if req.DeliveryFee != 130 {
		t.Fatalf("expected fee for submitted address, got %d", req.DeliveryFee)
	}
	view := f.svc.Draft(ctx, "dev")
	if view.Draft.District != "Chattogram" || view.Draft.Area != "Agrabad" || view.Totals.DeliveryFee != req.DeliveryFee {
		t.Fatalf("draft does not show the charged address: %+v", view.Draft)
	}
}

func TestSubmitValidationFailureKeepsDraftAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.add("৳ 1,000", 1)
	f.svc.SelectAddress(ctx, "dev", "Dhaka", "Mirpur")

	form := validForm()
	form.District, form.Area, form.Phone = "Chattogram", "Agrabad", "123"
	if _, err := f.svc.Submit(ctx, "dev", form); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected invalid phone, got %v", err)
	}
	if d := f.svc.Draft(ctx, "dev").Draft; d.District != "Dhaka" || d.Delivery.Fee != 70 {
		t.Fatalf("validation failure changed the draft: %+v", d)
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestEvictIdleReleasesSessions(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	f := newFixture()
	f.svc.now = clock.Now
	f.add("৳ 1,000", 1)
	f.svc.SelectAddress(ctx, "dev", "Chattogram", "Agrabad")
	clock.Advance(10 * time.Minute)
	f.svc.Draft(ctx, "recent")
	clock.Advance(25 * time.Minute)

	if n := f.svc.EvictIdle(30 * time.Minute); n != 1 {
		t.Fatalf("expected 1 session released, got %d", n)
	}

	d := f.svc.Draft(ctx, "dev").Draft
	if d.District != "" || d.Delivery.Fee != 0 {
		t.Fatalf("expected a fresh draft after eviction, got %+v", d)
	}
}

func TestEvictIdleKeepsSubmittingSession(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	f := newFixture()
	f.svc.now = clock.Now
	f.backend.entered = make(chan struct{})
	f.backend.release = make(chan struct{})
	f.add("৳ 1,000", 1)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Submit(ctx, "dev", validForm())
		done <- err
	}()
	<-f.backend.entered

	clock.Advance(time.Hour)
	if n := f.svc.EvictIdle(30 * time.Minute); n != 0 {
		t.Fatalf("expected in-flight session kept, released %d", n)
	}

	close(f.backend.release)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestSessionFollowsRehydratedCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(percentCoupon("SAVE10", 10, 0))
	f.add("৳ 1,000", 2)
	if _, _, err := f.svc.ApplyCoupon(ctx, "dev", "SAVE10"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if n := f.carts.EvictIdle(-time.Minute); n != 1 {
		t.Fatalf("expected cart store evicted, got %d", n)
	}
	if view := f.svc.Draft(ctx, "dev"); view.Cart.Subtotal != 2000 || view.Draft.Discount != 200 {
		t.Fatalf("unexpected draft after rehydration: %+v", view.Totals)
	}

	f.add("৳ 1,000", 1)

	view := f.svc.Draft(ctx, "dev")
	if view.Cart.Subtotal != 3000 || view.Draft.Discount != 300 {
		t.Fatalf("expected revalidation on the rehydrated cart, got %+v", view.Totals)
	}
}
