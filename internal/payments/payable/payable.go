package payable

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"juristBack/internal/models"
)

var (
	// ErrUnknownType is returned for a type tag nobody registered.
	ErrUnknownType = errors.New("unknown payable type")
	// ErrNotFound is returned when the payable entity does not exist.
	ErrNotFound = errors.New("payable not found")
)

// Payable is a business entity that can be paid for.
type Payable interface {
	// AmountDue is the amount in minor units. Zero or less means nothing to pay.
	AmountDue() int64
	DisplayLabel() string
	// OnPaymentSucceeded is called exactly once per successful payment.
	OnPaymentSucceeded(ctx context.Context, p models.Payment) error
}

// PendingNotifiable is implemented by payables that track in-flight payments.
type PendingNotifiable interface {
	OnPaymentPending(ctx context.Context, p models.Payment) error
}

// FailureNotifiable is implemented by payables that react to failed payments.
type FailureNotifiable interface {
	OnPaymentFailed(ctx context.Context, p models.Payment) error
}

// Resolver loads payables of one type.
type Resolver interface {
	Resolve(ctx context.Context, id int64) (Payable, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, id int64) (Payable, error)

func (f ResolverFunc) Resolve(ctx context.Context, id int64) (Payable, error) { return f(ctx, id) }

// Registry maps type tags to resolvers.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]Resolver)}
}

// Normalize returns the canonical form of a type tag.
func Normalize(payableType string) string {
	return strings.ToLower(strings.TrimSpace(payableType))
}

// Register binds payableType to r.
func (reg *Registry) Register(payableType string, r Resolver) error {
	t := Normalize(payableType)
	if t == "" || r == nil {
		return fmt.Errorf("payable: type and resolver are required")
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.resolvers[t]; ok {
		return fmt.Errorf("payable: type %q already registered", t)
	}
	reg.resolvers[t] = r
	return nil
}

// Has reports whether payableType is registered.
func (reg *Registry) Has(payableType string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, ok := reg.resolvers[Normalize(payableType)]
	return ok
}

// Types lists the registered tags, sorted.
func (reg *Registry) Types() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]string, 0, len(reg.resolvers))
	for t := range reg.resolvers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Resolve loads the payable identified by type and id.
func (reg *Registry) Resolve(ctx context.Context, payableType string, id int64) (Payable, error) {
	reg.mu.RLock()
	r, ok := reg.resolvers[Normalize(payableType)]
	reg.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, payableType)
	}
	return r.Resolve(ctx, id)
}
