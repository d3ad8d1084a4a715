package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/crafty-backend/internal/config"
	"github.com/georgemunganga/crafty-backend/internal/modules/order"
)

type fakeDirectory struct {
	customers   map[string]Contact
	vendors     map[string]Contact
	customerErr error
	vendorErr   error
}

func (d *fakeDirectory) Customer(ctx context.Context, userID string) (Contact, error) {
	if d.customerErr != nil {
		return Contact{}, d.customerErr
	}
	c, ok := d.customers[userID]
	if !ok {
		return Contact{}, errors.New("user not found")
	}
	return c, nil
}

func (d *fakeDirectory) Vendors(ctx context.Context, ids []string) (map[string]Contact, error) {
	if d.vendorErr != nil {
		return nil, d.vendorErr
	}
	out := map[string]Contact{}
	for _, id := range ids {
		if c, ok := d.vendors[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

// recordingQueue collects enqueued jobs; failOn makes Enqueue fail for one kind.
type recordingQueue struct {
	mu     sync.Mutex
	jobs   []*Job
	failOn Kind
	block  chan struct{}
}

func (q *recordingQueue) Enqueue(ctx context.Context, job *Job) error {
	if q.block != nil {
		select {
		case <-q.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if job.Kind == q.failOn {
		return errors.New("redis: connection refused")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) enqueued() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Job(nil), q.jobs...)
}

// flakyMailer fails the first failures sends, then succeeds.
type flakyMailer struct {
	mu       sync.Mutex
	failures int
	sent     []*Message
	calls    int
}

func (m *flakyMailer) Send(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errors.New("smtp: 421 service not available")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *flakyMailer) delivered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// ── fixtures ─────────────────────────────────────────────────────────────────

type fixture struct {
	order   *order.Order
	vendorA string
	vendorB string
	dir     *fakeDirectory
}

func newFixture(status order.Status) fixture {
	userID, vendorA, vendorB := uuid.New(), uuid.New(), uuid.New()
	item := func(vendor uuid.UUID, name, price string, qty int) *order.Item {
		unit := decimal.RequireFromString(price)
		return &order.Item{
			ID: uuid.New(), ProductID: uuid.New(), VendorID: vendor, ProductName: name,
			SKU: "SKU-" + name, UnitPrice: unit, Quantity: qty, LineTotal: unit.Mul(decimal.NewFromInt(int64(qty))),
		}
	}
	o := &order.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-01TEST",
		UserID:      userID,
		Status:      status,
		Items: []*order.Item{
			item(vendorA, "mug", "10.00", 2),
			item(vendorB, "card", "5.00", 1),
			item(vendorA, "bowl", "7.50", 1),
		},
		CreatedAt: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}
	o.Subtotal = decimal.RequireFromString("32.50")
	o.Total = o.Subtotal
	return fixture{
		order:   o,
		vendorA: vendorA.String(),
		vendorB: vendorB.String(),
		dir: &fakeDirectory{
			customers: map[string]Contact{userID.String(): {Name: "Ada Buyer", Email: "ada@example.com"}},
			vendors: map[string]Contact{
				vendorA.String(): {Name: "Clay Co", Email: "clay@example.com"},
				vendorB.String(): {Name: "Paper Co", Email: "paper@example.com"},
			},
		},
	}
}

func testQueueConfig() config.QueueConfig {
	return config.QueueConfig{
		Name:             "email",
		Attempts:         3,
		Backoff:          time.Second,
		RemoveOnComplete: 100,
		RemoveOnFail:     2,
		Concurrency:      2,
		JobTimeout:       time.Second,
		PollInterval:     time.Second,
	}
}

// newTestQueue returns a RedisQueue over miniredis with a settable clock.
func newTestQueue(t *testing.T, cfg config.QueueConfig) (*RedisQueue, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	q := NewRedisQueue(rdb, cfg)
	clock := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return clock }
	return q, &clock
}

// newSharedQueues returns two RedisQueues over one miniredis, standing in
// for two worker processes, with a clock shared between them.
func newSharedQueues(t *testing.T, cfg config.QueueConfig) (*RedisQueue, *RedisQueue, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	clock := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	queues := make([]*RedisQueue, 2)
	for i := range queues {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		queues[i] = NewRedisQueue(rdb, cfg)
		queues[i].now = func() time.Time { return clock }
	}
	return queues[0], queues[1], &clock
}

func testJob(kind Kind, to string) *Job {
	return &Job{
		ID:          string(kind) + "-" + uuid.NewString(),
		Kind:        kind,
		MaxAttempts: 3,
		Payload: Payload{
			OrderNumber: "ORD-1", To: to, CustomerName: "Ada", CustomerEmail: "ada@example.com",
			Status: "CONFIRMED", PreviousStatus: "PENDING", Total: decimal.RequireFromString("12.00"),
			Items: []LineItem{{Name: "mug", Quantity: 1, Price: decimal.RequireFromString("12.00"), VendorName: "Clay Co"}},
		},
	}
}
