package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/crafty-backend/internal/modules/order"
)

// Enqueuer accepts jobs for later delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *Job) error
}

// Dispatcher turns order status changes into queued emails: one for the
// customer, one per vendor on new and confirmed orders, one for the admin.
type Dispatcher struct {
	dir            Directory
	queue          Enqueuer
	adminEmail     string
	maxAttempts    int
	enqueueTimeout time.Duration
	now            func() time.Time

	inflight sync.WaitGroup
}

func NewDispatcher(dir Directory, queue Enqueuer, adminEmail string, maxAttempts int, enqueueTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		dir:            dir,
		queue:          queue,
		adminEmail:     adminEmail,
		maxAttempts:    maxAttempts,
		enqueueTimeout: enqueueTimeout,
		now:            time.Now,
	}
}

// OnStatusChange enqueues in the background and never fails the caller.
func (d *Dispatcher) OnStatusChange(ctx context.Context, o *order.Order, previous order.Status) {
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.enqueueTimeout)
		defer cancel()
		if err := d.Dispatch(ctx, o, previous); err != nil {
			log.Printf("[notification] order %s (%s): %v", o.OrderNumber, o.Status, err)
		}
	}()
}

// Wait blocks until background dispatches have finished.
func (d *Dispatcher) Wait() { d.inflight.Wait() }

// Dispatch builds the jobs for a transition and enqueues each of them. A
// failed enqueue or directory lookup does not stop the remaining jobs.
func (d *Dispatcher) Dispatch(ctx context.Context, o *order.Order, previous order.Status) error {
	jobs, err := d.Build(ctx, o, previous)
	errs := []error{err}
	for _, job := range jobs {
		if err := d.queue.Enqueue(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("enqueue %s: %w", job.ID, err))
			continue
		}
		log.Printf("[notification] queued %s email for order %s", job.Kind, o.OrderNumber)
	}
	return errors.Join(errs...)
}

// Build returns the jobs for o having moved from previous to o.Status. The
// admin job is always built. A failed customer lookup drops only the
// customer job and a failed vendor lookup drops only the vendor jobs; those
// errors are returned alongside the jobs that could be built.
func (d *Dispatcher) Build(ctx context.Context, o *order.Order, previous order.Status) ([]*Job, error) {
	var errs []error
	customer, err := d.dir.Customer(ctx, o.UserID.String())
	customerKnown := err == nil
	if err != nil {
		errs = append(errs, fmt.Errorf("customer %s: %w", o.UserID, err))
		customer = Contact{Name: o.UserID.String()}
	}
	vendors, err := d.dir.Vendors(ctx, vendorIDs(o))
	vendorsKnown := err == nil
	if err != nil {
		errs = append(errs, fmt.Errorf("vendors: %w", err))
		vendors = map[string]Contact{}
	}

	base := Payload{
		OrderID:       o.ID.String(),
		OrderNumber:   o.OrderNumber,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		Status:        string(o.Status),
		Items:         make([]LineItem, 0, len(o.Items)),
		Total:         o.Total,
		OrderDate:     o.CreatedAt,
	}
	if previous != "" {
		base.PreviousStatus = string(previous)
	}
	for _, it := range o.Items {
		base.Items = append(base.Items, LineItem{
			Name:       it.ProductName,
			Quantity:   it.Quantity,
			Price:      it.UnitPrice,
			VendorName: vendors[it.VendorID.String()].Name,
		})
	}

	jobs := make([]*Job, 0, 2+len(vendors))

	if customerKnown && customer.Email != "" {
		customerPayload := base
		customerPayload.To = customer.Email
		jobs = append(jobs, d.newJob(KindCustomer, customerPayload))
	} else {
		log.Printf("[notification] order %s: no customer address, skipping customer email", o.OrderNumber)
	}

	if vendorsKnown && (o.Status == order.StatusPending || o.Status == order.StatusConfirmed) {
		for _, id := range vendorIDs(o) {
			contact, ok := vendors[id]
			if !ok || contact.Email == "" {
				log.Printf("[notification] order %s: no contact for vendor %s, skipping", o.OrderNumber, id)
				continue
			}
			jobs = append(jobs, d.newJob(KindVendor, vendorPayload(base, o, id, contact)))
		}
	}

	adminPayload := base
	adminPayload.To = d.adminEmail
	jobs = append(jobs, d.newJob(KindAdmin, adminPayload))
	return jobs, errors.Join(errs...)
}

func (d *Dispatcher) newJob(kind Kind, p Payload) *Job {
	return &Job{
		ID:          fmt.Sprintf("%s-%s-%s", kind, p.OrderNumber, ulid.Make()),
		Kind:        kind,
		Payload:     p,
		MaxAttempts: d.maxAttempts,
		EnqueuedAt:  d.now().UTC(),
	}
}

// vendorPayload scopes the payload to one vendor's lines and their subtotal.
func vendorPayload(base Payload, o *order.Order, vendorID string, contact Contact) Payload {
	p := base
	p.To = contact.Email
	p.VendorName = contact.Name
	p.Items = nil
	p.Total = decimal.Zero
	for _, it := range o.Items {
		if it.VendorID.String() != vendorID {
			continue
		}
		p.Items = append(p.Items, LineItem{Name: it.ProductName, Quantity: it.Quantity, Price: it.UnitPrice})
		p.Total = p.Total.Add(it.LineTotal)
	}
	return p
}

// vendorIDs lists the distinct vendors in item order.
func vendorIDs(o *order.Order) []string {
	seen := make(map[string]bool, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		id := it.VendorID.String()
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
