package payment

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentorama/rental-api/internal/gateway"
	"github.com/rentorama/rental-api/internal/model"
	"github.com/rentorama/rental-api/pkg/errors"
	"github.com/rentorama/rental-api/pkg/logger"
	"github.com/rentorama/rental-api/pkg/metrics"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = metrics.New("payment_service_test")

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

type fakePaymentRepo struct {
	payments map[uuid.UUID]*model.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*model.Payment)}
}

func (r *fakePaymentRepo) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func (r *fakePaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	p.ID = uuid.New()
	p.Status = model.PaymentStatusCreated
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	clone := *p
	r.payments[p.ID] = &clone
	return nil
}

func (r *fakePaymentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, errors.NotFound("payment", nil)
	}
	clone := *p
	return &clone, nil
}

func (r *fakePaymentRepo) GetByExternalOrderID(ctx context.Context, token string) (*model.Payment, error) {
	for _, p := range r.payments {
		if p.ExternalOrderID != nil && *p.ExternalOrderID == token {
			clone := *p
			return &clone, nil
		}
	}
	return nil, errors.NotFound("payment", nil)
}

func (r *fakePaymentRepo) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, p := range r.payments {
		if p.ReservationID == reservationID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) SetExternalOrder(ctx context.Context, id uuid.UUID, token string) error {
	p, ok := r.payments[id]
	if !ok {
		return errors.NotFound("payment", nil)
	}
	if p.ExternalOrderID != nil {
		return errors.Conflict("payment already bound to an external order", nil)
	}
	p.ExternalOrderID = &token
	p.Status = model.PaymentStatusPending
	return nil
}

func (r *fakePaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error {
	p, ok := r.payments[id]
	if !ok {
		return errors.NotFound("payment", nil)
	}
	p.Status = status
	return nil
}

func (r *fakePaymentRepo) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.PaymentStatus) error {
	return r.UpdateStatus(ctx, id, status)
}

type fakeOutboxRepo struct {
	created []*model.OutboxEvent
	deleted []uuid.UUID
}

func (r *fakeOutboxRepo) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func (r *fakeOutboxRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	event.ID = uuid.New()
	event.CreatedAt = time.Now()
	r.created = append(r.created, event)
	return nil
}

func (r *fakeOutboxRepo) DeleteTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeOutboxRepo) ClaimPendingTx(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

type fakeGateway struct {
	order      *gateway.Order
	createErr  error
	captureSt  gateway.Status
	captureErr error
	captures   int
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount float64) (*gateway.Order, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	return g.order, nil
}

func (g *fakeGateway) CaptureOrder(ctx context.Context, externalID string) (gateway.Status, error) {
	g.captures++
	if g.captureErr != nil {
		return "", g.captureErr
	}
	return g.captureSt, nil
}

func newTestService(payments *fakePaymentRepo, outbox *fakeOutboxRepo, gw *fakeGateway, cdc bool) *Service {
	return NewService(payments, outbox, gw, cdc, testLogger(), testMetrics)
}

func seedPayment(repo *fakePaymentRepo, reservationID uuid.UUID, status model.PaymentStatus, token string) *model.Payment {
	p := &model.Payment{
		ID:            uuid.New(),
		ReservationID: reservationID,
		Status:        status,
		Amount:        50.0,
	}
	if token != "" {
		p.ExternalOrderID = &token
	}
	repo.payments[p.ID] = p
	return p
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(newFakePaymentRepo(), &fakeOutboxRepo{}, &fakeGateway{}, true)

	_, err := svc.CreateOrder(context.Background(), uuid.New(), 0)
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))

	_, err = svc.CreateOrder(context.Background(), uuid.New(), -10)
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestCreateOrderRejectsCompletedDuplicate(t *testing.T) {
	payments := newFakePaymentRepo()
	reservationID := uuid.New()
	seedPayment(payments, reservationID, model.PaymentStatusCompleted, "tok-done")

	svc := newTestService(payments, &fakeOutboxRepo{}, &fakeGateway{}, true)

	_, err := svc.CreateOrder(context.Background(), reservationID, 50.0)
	require.Error(t, err)
	assert.Equal(t, errors.KindDuplicate, errors.KindOf(err))
}

func TestCreateOrderAllowsPendingDuplicate(t *testing.T) {
	payments := newFakePaymentRepo()
	reservationID := uuid.New()
	seedPayment(payments, reservationID, model.PaymentStatusPending, "tok-pending")

	gw := &fakeGateway{order: &gateway.Order{ExternalID: "tok-new", ApprovalLink: "https://gw/approve/tok-new"}}
	svc := newTestService(payments, &fakeOutboxRepo{}, gw, true)

	link, err := svc.CreateOrder(context.Background(), reservationID, 50.0)
	require.NoError(t, err)
	assert.Equal(t, "https://gw/approve/tok-new", link)
}

func TestCreateOrderGatewayFailureLeavesPaymentCreated(t *testing.T) {
	payments := newFakePaymentRepo()
	reservationID := uuid.New()
	gw := &fakeGateway{createErr: errors.Gateway("gateway down", nil)}
	svc := newTestService(payments, &fakeOutboxRepo{}, gw, true)

	_, err := svc.CreateOrder(context.Background(), reservationID, 50.0)
	require.Error(t, err)
	assert.Equal(t, errors.KindGateway, errors.KindOf(err))

	list, err := payments.ListByReservation(context.Background(), reservationID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.PaymentStatusCreated, list[0].Status)
	assert.Nil(t, list[0].ExternalOrderID)
}

func TestCreateOrderSuccess(t *testing.T) {
	payments := newFakePaymentRepo()
	reservationID := uuid.New()
	gw := &fakeGateway{order: &gateway.Order{ExternalID: "tok-1", ApprovalLink: "https://gw/approve/tok-1"}}
	svc := newTestService(payments, &fakeOutboxRepo{}, gw, true)

	link, err := svc.CreateOrder(context.Background(), reservationID, 50.0)
	require.NoError(t, err)
	assert.Equal(t, "https://gw/approve/tok-1", link)

	p, err := payments.GetByExternalOrderID(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, p.Status)
	assert.Equal(t, reservationID, p.ReservationID)
}

func TestCaptureOrderMarksPayedAndWritesOutbox(t *testing.T) {
	payments := newFakePaymentRepo()
	outbox := &fakeOutboxRepo{}
	seedPayment(payments, uuid.New(), model.PaymentStatusPending, "tok-1")

	svc := newTestService(payments, outbox, &fakeGateway{}, false)

	require.NoError(t, svc.CaptureOrder(context.Background(), "tok-1"))

	p, err := payments.GetByExternalOrderID(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPayed, p.Status)

	require.Len(t, outbox.created, 1)
	assert.Equal(t, "tok-1", outbox.created[0].ExternalOrderID)
	assert.Empty(t, outbox.deleted, "relay mode keeps the row for polling")
}

func TestCaptureOrderCDCDeletesRowInSameTransaction(t *testing.T) {
	payments := newFakePaymentRepo()
	outbox := &fakeOutboxRepo{}
	seedPayment(payments, uuid.New(), model.PaymentStatusPending, "tok-1")

	svc := newTestService(payments, outbox, &fakeGateway{}, true)

	require.NoError(t, svc.CaptureOrder(context.Background(), "tok-1"))

	require.Len(t, outbox.created, 1)
	require.Len(t, outbox.deleted, 1)
	assert.Equal(t, outbox.created[0].ID, outbox.deleted[0])
}

func TestCaptureOrderOnCompletedPaymentKeepsStatus(t *testing.T) {
	payments := newFakePaymentRepo()
	outbox := &fakeOutboxRepo{}
	seedPayment(payments, uuid.New(), model.PaymentStatusCompleted, "tok-1")

	svc := newTestService(payments, outbox, &fakeGateway{}, true)

	require.NoError(t, svc.CaptureOrder(context.Background(), "tok-1"))

	p, err := payments.GetByExternalOrderID(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, p.Status)
	// The notification still goes out for downstream convergence.
	assert.Len(t, outbox.created, 1)
}

func TestCaptureOrderUnknownToken(t *testing.T) {
	svc := newTestService(newFakePaymentRepo(), &fakeOutboxRepo{}, &fakeGateway{}, true)

	err := svc.CaptureOrder(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestCancelOrderWritesOutboxWithoutTouchingPayment(t *testing.T) {
	payments := newFakePaymentRepo()
	outbox := &fakeOutboxRepo{}
	seedPayment(payments, uuid.New(), model.PaymentStatusPending, "tok-1")

	svc := newTestService(payments, outbox, &fakeGateway{}, true)

	require.NoError(t, svc.CancelOrder(context.Background(), "tok-1"))

	p, err := payments.GetByExternalOrderID(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, p.Status)

	require.Len(t, outbox.created, 1)
	assert.Equal(t, "tok-1", outbox.created[0].ExternalOrderID)
}

func TestCaptureWithGatewayCompletesPayment(t *testing.T) {
	payments := newFakePaymentRepo()
	reservationID := uuid.New()
	seedPayment(payments, reservationID, model.PaymentStatusPayed, "tok-1")

	gw := &fakeGateway{captureSt: gateway.StatusCompleted}
	svc := newTestService(payments, &fakeOutboxRepo{}, gw, true)

	status, err := svc.CaptureWithGateway(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusCompleted, status.Status)
	assert.Equal(t, reservationID, status.ReservationID)

	p, err := payments.GetByExternalOrderID(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, p.Status)
}

func TestCaptureWithGatewayIsIdempotent(t *testing.T) {
	payments := newFakePaymentRepo()
	seedPayment(payments, uuid.New(), model.PaymentStatusPayed, "tok-1")

	gw := &fakeGateway{captureSt: gateway.StatusCompleted}
	svc := newTestService(payments, &fakeOutboxRepo{}, gw, true)

	for i := 0; i < 3; i++ {
		status, err := svc.CaptureWithGateway(context.Background(), "tok-1")
		require.NoError(t, err)
		assert.Equal(t, gateway.StatusCompleted, status.Status)
	}

	p, err := payments.GetByExternalOrderID(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, p.Status)
}

func TestCaptureWithGatewayErrorPropagates(t *testing.T) {
	payments := newFakePaymentRepo()
	seedPayment(payments, uuid.New(), model.PaymentStatusPayed, "tok-1")

	gw := &fakeGateway{captureErr: errors.Gateway("capture failed", nil)}
	svc := newTestService(payments, &fakeOutboxRepo{}, gw, true)

	_, err := svc.CaptureWithGateway(context.Background(), "tok-1")
	require.Error(t, err)
	assert.Equal(t, errors.KindGateway, errors.KindOf(err))

	p, err := payments.GetByExternalOrderID(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPayed, p.Status, "a failed capture must not look like success")
}

func TestCaptureWithGatewayCancelledMovesPaymentToCancelled(t *testing.T) {
	payments := newFakePaymentRepo()
	seedPayment(payments, uuid.New(), model.PaymentStatusPending, "tok-1")

	gw := &fakeGateway{captureSt: gateway.StatusCancelled}
	svc := newTestService(payments, &fakeOutboxRepo{}, gw, true)

	status, err := svc.CaptureWithGateway(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusCancelled, status.Status)

	p, err := payments.GetByExternalOrderID(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCancelled, p.Status)
}
