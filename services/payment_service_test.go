package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/services/payments"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/auth"
)

type paymentCase struct {
	f       *fixture
	owner   *auth.Identity
	student *auth.Identity
	course  model.Course
}

func newPaymentCase(t *testing.T) *paymentCase {
	f := newFixture(t)
	pc := &paymentCase{
		f:       f,
		owner:   f.account(t, "seller@example.com", model.RoleInstructor),
		student: f.account(t, "payer@example.com", model.RoleStudent),
	}
	pc.course = f.course(t, pc.owner, 2500, true)
	return pc
}

func (pc *paymentCase) open(t *testing.T) *IntentResult {
	t.Helper()
	res, err := pc.f.payments.CreateIntent(context.Background(), pc.student, CreateIntentRequest{CourseID: pc.course.ID})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestCreateIntent(t *testing.T) {
	pc := newPaymentCase(t)
	res := pc.open(t)

	p := res.Payment
	if p.Status != model.PaymentPending || p.Amount != 2500 || p.Currency != "USD" || p.ProviderTransactionID == "" {
		t.Fatalf("payment = %+v", p)
	}
	if res.ClientSecret == "" {
		t.Fatal("missing client secret")
	}

	again := pc.open(t)
	if again.Payment.ID != p.ID {
		t.Fatal("second request opened a new pending intent")
	}
}

// slowGateway holds every CreateIntent open long enough for concurrent
// callers to all pass the pending-intent lookup
type slowGateway struct {
	*payments.SandboxGateway
	delay time.Duration
}

func (g slowGateway) CreateIntent(ctx context.Context, params payments.CreateParams) (*payments.Intent, error) {
	time.Sleep(g.delay)
	return g.SandboxGateway.CreateIntent(ctx, params)
}

func TestConcurrentCreateIntentStoresOneRecord(t *testing.T) {
	pc := newPaymentCase(t)
	svc := NewPaymentService(pc.f.store, slowGateway{SandboxGateway: pc.f.gateway, delay: 20 * time.Millisecond},
		auth.RolePolicy{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	const callers = 8
	results := make([]*IntentResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.CreateIntent(context.Background(), pc.student, CreateIntentRequest{CourseID: pc.course.ID})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
		if results[i].Payment.ID != results[0].Payment.ID || results[i].ClientSecret == "" {
			t.Fatalf("caller %d got %+v, want payment %s", i, results[i].Payment, results[0].Payment.ID)
		}
	}

	stored, err := pc.f.store.Payments().FindBy(context.Background(), database.PaymentFilter{UserID: pc.student.UserID, CourseID: pc.course.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Fatalf("local records = %d, want 1", len(stored))
	}
}

func TestCreateIntentRejections(t *testing.T) {
	pc := newPaymentCase(t)
	ctx := context.Background()

	_, err := pc.f.payments.CreateIntent(ctx, pc.student, CreateIntentRequest{CourseID: "missing"})
	wantKind(t, err, apperr.KindNotFound)

	free := pc.f.course(t, pc.owner, 0, true)
	_, err = pc.f.payments.CreateIntent(ctx, pc.student, CreateIntentRequest{CourseID: free.ID})
	wantKind(t, err, apperr.KindValidation)

	draft := pc.f.course(t, pc.owner, 900, false)
	_, err = pc.f.payments.CreateIntent(ctx, pc.student, CreateIntentRequest{CourseID: draft.ID})
	wantKind(t, err, apperr.KindValidation)
}

func TestWebhookSettlesPaymentAndAllowsEnrollment(t *testing.T) {
	pc := newPaymentCase(t)
	ctx := context.Background()
	res := pc.open(t)
	providerID := res.Payment.ProviderTransactionID

	if err := pc.f.gateway.Settle(providerID, model.PaymentSucceeded, ""); err != nil {
		t.Fatal(err)
	}
	body, sig := pc.f.gateway.SignedEvent("evt_1", "payment_intent.succeeded", providerID)
	if err := pc.f.payments.HandleWebhook(ctx, body, sig); err != nil {
		t.Fatal(err)
	}

	p, _ := pc.f.store.Payments().FindByID(ctx, res.Payment.ID)
	if p.Status != model.PaymentSucceeded || !p.HasProcessed("evt_1") {
		t.Fatalf("payment = %+v", p)
	}

	// replay is a no-op
	if err := pc.f.payments.HandleWebhook(ctx, body, sig); err != nil {
		t.Fatal(err)
	}
	replayed, _ := pc.f.store.Payments().FindByID(ctx, res.Payment.ID)
	if replayed.Status != model.PaymentSucceeded || len(replayed.ProcessedEvents) != 1 {
		t.Fatalf("replay changed payment: %+v", replayed)
	}

	if _, err := pc.f.courses.Enroll(ctx, pc.student, pc.course.ID); err != nil {
		t.Fatalf("enroll after payment: %v", err)
	}

	_, err := pc.f.payments.CreateIntent(ctx, pc.student, CreateIntentRequest{CourseID: pc.course.ID})
	wantErr(t, err, apperr.ErrAlreadyPurchased)
}

func TestWebhookAcknowledgesWhatItCannotApply(t *testing.T) {
	pc := newPaymentCase(t)
	ctx := context.Background()

	body, sig := pc.f.gateway.SignedEvent("evt_unknown", "payment_intent.succeeded", "pi_not_ours")
	if err := pc.f.payments.HandleWebhook(ctx, body, sig); err != nil {
		t.Fatalf("unknown intent: %v", err)
	}

	res := pc.open(t)
	// pending -> refunded is illegal; acknowledged and recorded
	body, sig = pc.f.gateway.SignedEvent("evt_bad", "charge.refunded", res.Payment.ProviderTransactionID)
	if err := pc.f.payments.HandleWebhook(ctx, body, sig); err != nil {
		t.Fatalf("illegal transition: %v", err)
	}
	p, _ := pc.f.store.Payments().FindByID(ctx, res.Payment.ID)
	if p.Status != model.PaymentPending || !p.HasProcessed("evt_bad") {
		t.Fatalf("payment = %+v", p)
	}

	body, sig = pc.f.gateway.SignedEvent("evt_other", "customer.created", "cus_1")
	if err := pc.f.payments.HandleWebhook(ctx, body, sig); err != nil {
		t.Fatalf("irrelevant type: %v", err)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	pc := newPaymentCase(t)
	body, _ := pc.f.gateway.SignedEvent("evt_1", "payment_intent.succeeded", "pi_1")
	err := pc.f.payments.HandleWebhook(context.Background(), body, "t=1,v1=deadbeef")
	wantKind(t, err, apperr.KindValidation)
}

func TestConfirmReadsProviderStatus(t *testing.T) {
	pc := newPaymentCase(t)
	ctx := context.Background()
	res := pc.open(t)

	same, err := pc.f.payments.Confirm(ctx, pc.student, res.Payment.ID)
	if err != nil || same.Status != model.PaymentPending {
		t.Fatalf("confirm pending: %+v, %v", same, err)
	}

	stranger := pc.f.account(t, "nosy@example.com", model.RoleStudent)
	_, err = pc.f.payments.Confirm(ctx, stranger, res.Payment.ID)
	wantKind(t, err, apperr.KindForbidden)

	if err := pc.f.gateway.Settle(res.Payment.ProviderTransactionID, model.PaymentFailed, "card declined"); err != nil {
		t.Fatal(err)
	}
	failed, err := pc.f.payments.Confirm(ctx, pc.student, res.Payment.ID)
	if err != nil {
		t.Fatal(err)
	}
	if failed.Status != model.PaymentFailed || failed.FailureReason != "card declined" {
		t.Fatalf("payment = %+v", failed)
	}
}

func TestCancelOnlyFromPending(t *testing.T) {
	pc := newPaymentCase(t)
	ctx := context.Background()
	res := pc.open(t)

	canceled, err := pc.f.payments.Cancel(ctx, pc.student, res.Payment.ID)
	if err != nil {
		t.Fatal(err)
	}
	if canceled.Status != model.PaymentCanceled {
		t.Fatalf("status = %s", canceled.Status)
	}

	_, err = pc.f.payments.Cancel(ctx, pc.student, res.Payment.ID)
	wantKind(t, err, apperr.KindConflict)
}

func TestRefund(t *testing.T) {
	pc := newPaymentCase(t)
	ctx := context.Background()
	admin := pc.f.account(t, "refunds@example.com", model.RoleAdmin)
	res := pc.open(t)

	_, err := pc.f.payments.Refund(ctx, admin, res.Payment.ID, RefundRequest{})
	wantKind(t, err, apperr.KindConflict)

	if err := pc.f.gateway.Settle(res.Payment.ProviderTransactionID, model.PaymentSucceeded, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := pc.f.payments.Confirm(ctx, pc.student, res.Payment.ID); err != nil {
		t.Fatal(err)
	}

	_, err = pc.f.payments.Refund(ctx, pc.student, res.Payment.ID, RefundRequest{})
	wantKind(t, err, apperr.KindForbidden)

	tooMuch := int64(2501)
	_, err = pc.f.payments.Refund(ctx, admin, res.Payment.ID, RefundRequest{Amount: &tooMuch})
	wantKind(t, err, apperr.KindValidation)

	partial := int64(1000)
	refunded, err := pc.f.payments.Refund(ctx, admin, res.Payment.ID, RefundRequest{Amount: &partial, Reason: "requested_by_customer"})
	if err != nil {
		t.Fatal(err)
	}
	if refunded.Status != model.PaymentRefunded || refunded.RefundedAmount != 1000 {
		t.Fatalf("payment = %+v", refunded)
	}
}

func TestListScopesToCaller(t *testing.T) {
	pc := newPaymentCase(t)
	ctx := context.Background()
	admin := pc.f.account(t, "ledger@example.com", model.RoleAdmin)
	pc.open(t)

	mine, err := pc.f.payments.List(ctx, pc.student, database.PaymentFilter{})
	if err != nil || len(mine) != 1 {
		t.Fatalf("student list = %d, %v", len(mine), err)
	}
	_, err = pc.f.payments.List(ctx, pc.student, database.PaymentFilter{UserID: admin.UserID})
	wantKind(t, err, apperr.KindForbidden)

	all, err := pc.f.payments.List(ctx, admin, database.PaymentFilter{Status: model.PaymentPending})
	if err != nil || len(all) != 1 {
		t.Fatalf("admin list = %d, %v", len(all), err)
	}

	_, err = pc.f.payments.List(ctx, admin, database.PaymentFilter{Status: "bogus"})
	wantKind(t, err, apperr.KindValidation)
}

func TestReconcilePending(t *testing.T) {
	pc := newPaymentCase(t)
	ctx := context.Background()
	res := pc.open(t)

	n, err := pc.f.payments.ReconcilePending(ctx, time.Hour)
	if err != nil || n != 0 {
		t.Fatalf("fresh intent reconciled: %d, %v", n, err)
	}

	if err := pc.f.gateway.Settle(res.Payment.ProviderTransactionID, model.PaymentSucceeded, ""); err != nil {
		t.Fatal(err)
	}
	pc.f.payments.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = pc.f.payments.ReconcilePending(ctx, time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("reconciled = %d, %v", n, err)
	}
	p, _ := pc.f.store.Payments().FindByID(ctx, res.Payment.ID)
	if p.Status != model.PaymentSucceeded {
		t.Fatalf("status = %s", p.Status)
	}
}
