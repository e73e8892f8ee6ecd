package processor

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Processor for tests and local development without
// Stripe credentials.
type Fake struct {
	mu      sync.Mutex
	seq     int
	charges map[string]*fakeCharge

	// CreateErr, when set, is returned by every CreateCharge call.
	CreateErr error
}

type fakeCharge struct {
	req    ChargeRequest
	status Status
}

var _ Processor = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{charges: make(map[string]*fakeCharge)}
}

func (f *Fake) CreateCharge(_ context.Context, req ChargeRequest) (*Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	f.seq++
	ref := fmt.Sprintf("pi_fake_%d", f.seq)
	f.charges[ref] = &fakeCharge{req: req, status: StatusPending}
	return &Charge{Ref: ref, ClientSecret: ref + "_secret", Status: StatusPending}, nil
}

func (f *Fake) GetCharge(_ context.Context, ref string) (*Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.charges[ref]
	if !ok {
		return nil, fmt.Errorf("charge %s: %w", ref, ErrUnknownCharge)
	}
	return &Charge{Ref: ref, ClientSecret: ref + "_secret", Status: c.status}, nil
}

// SetStatus moves a charge to status, as the processor would after the payer acts.
func (f *Fake) SetStatus(ref string, status Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.charges[ref]; ok {
		c.status = status
	}
}

// Request returns what was sent for ref.
func (f *Fake) Request(ref string) (ChargeRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.charges[ref]
	if !ok {
		return ChargeRequest{}, false
	}
	return c.req, true
}
