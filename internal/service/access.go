package service

import (
	"context"

	"github.com/anthanhphan/gosdk/logger"

	"github.com/collectfs/collectfs/internal/domain"
)

// Operation names one collection operation kind for authorization.
type Operation string

const (
	OpInsert   Operation = "insert"
	OpUpdate   Operation = "update"
	OpRemove   Operation = "remove"
	OpDownload Operation = "download"
	OpFetch    Operation = "fetch"
)

// Decision is a predicate's verdict on one operation attempt.
type Decision int

const (
	// Abstain leaves the verdict to the remaining predicates.
	Abstain Decision = iota
	// Allow grants the operation unless another predicate denies it.
	Allow
	// Deny rejects the operation immediately.
	Deny
)

// Predicate votes on whether a principal may perform an operation on a
// record. The record is nil for collection-level checks such as listing.
type Predicate interface {
	// Name identifies the predicate in logs.
	Name() string

	// Evaluate returns the predicate's verdict.
	Evaluate(ctx context.Context, principal string, record *domain.FileRecord) Decision
}

type predicateFunc struct {
	name string
	fn   func(ctx context.Context, principal string, record *domain.FileRecord) Decision
}

func (p *predicateFunc) Name() string { return p.name }

func (p *predicateFunc) Evaluate(ctx context.Context, principal string, record *domain.FileRecord) Decision {
	return p.fn(ctx, principal, record)
}

// NewPredicate wraps a plain function as a named predicate.
func NewPredicate(name string, fn func(ctx context.Context, principal string, record *domain.FileRecord) Decision) Predicate {
	return &predicateFunc{name: name, fn: fn}
}

// AllowAnyone grants every attempt, including anonymous ones.
func AllowAnyone() Predicate {
	return NewPredicate("allow-anyone", func(context.Context, string, *domain.FileRecord) Decision {
		return Allow
	})
}

// AllowAuthenticated grants any attempt with a non-empty principal.
func AllowAuthenticated() Predicate {
	return NewPredicate("allow-authenticated", func(_ context.Context, principal string, _ *domain.FileRecord) Decision {
		if principal == "" {
			return Abstain
		}
		return Allow
	})
}

// AllowPrincipals grants attempts by any of the named principals.
func AllowPrincipals(principals ...string) Predicate {
	members := make(map[string]struct{}, len(principals))
	for _, p := range principals {
		members[p] = struct{}{}
	}
	return NewPredicate("allow-principals", func(_ context.Context, principal string, _ *domain.FileRecord) Decision {
		if _, ok := members[principal]; ok {
			return Allow
		}
		return Abstain
	})
}

// DenyPrincipals rejects attempts by any of the named principals.
func DenyPrincipals(principals ...string) Predicate {
	members := make(map[string]struct{}, len(principals))
	for _, p := range principals {
		members[p] = struct{}{}
	}
	return NewPredicate("deny-principals", func(_ context.Context, principal string, _ *domain.FileRecord) Decision {
		if _, ok := members[principal]; ok {
			return Deny
		}
		return Abstain
	})
}

// PredicateList is an ordered list of predicates for one operation kind.
// Evaluation short-circuits on the first Deny; otherwise at least one
// Allow is required. An empty list denies everything.
type PredicateList struct {
	predicates []Predicate
}

// Append adds predicates to the end of the list.
func (l *PredicateList) Append(predicates ...Predicate) {
	l.predicates = append(l.predicates, predicates...)
}

// Len returns the number of registered predicates.
func (l *PredicateList) Len() int {
	return len(l.predicates)
}

// evaluate runs the list against one attempt.
func (l *PredicateList) evaluate(ctx context.Context, op Operation, principal string, record *domain.FileRecord) error {
	allowed := false
	for _, predicate := range l.predicates {
		switch predicate.Evaluate(ctx, principal, record) {
		case Deny:
			logger.Debugw("Operation denied by predicate",
				"operation", string(op), "predicate", predicate.Name(), "principal", principal)
			return ErrAuthorizationDenied
		case Allow:
			allowed = true
		}
	}

	if !allowed {
		return ErrAuthorizationDenied
	}
	return nil
}

// AccessRules holds the per-operation predicate lists of one collection.
// Download and fetch are tracked independently of the mutation kinds.
type AccessRules struct {
	Insert   PredicateList
	Update   PredicateList
	Remove   PredicateList
	Download PredicateList
	Fetch    PredicateList
}

// NewAccessRules returns an empty, deny-all rule set.
func NewAccessRules() *AccessRules {
	return &AccessRules{}
}

// AllowAll registers an allow-anyone predicate for every operation kind.
// Meant for development profiles and tests.
func (a *AccessRules) AllowAll() *AccessRules {
	anyone := AllowAnyone()
	a.Insert.Append(anyone)
	a.Update.Append(anyone)
	a.Remove.Append(anyone)
	a.Download.Append(anyone)
	a.Fetch.Append(anyone)
	return a
}

// listFor resolves the predicate list tracking an operation kind.
func (a *AccessRules) listFor(op Operation) *PredicateList {
	switch op {
	case OpInsert:
		return &a.Insert
	case OpUpdate:
		return &a.Update
	case OpRemove:
		return &a.Remove
	case OpDownload:
		return &a.Download
	default:
		return &a.Fetch
	}
}

// Authorize checks the caller's principal against the operation's
// predicate list. It returns ErrAuthorizationDenied unless some predicate
// allows the attempt and none denies it.
func (a *AccessRules) Authorize(ctx context.Context, op Operation, record *domain.FileRecord) error {
	return a.listFor(op).evaluate(ctx, op, PrincipalFrom(ctx), record)
}

type principalKey struct{}

// WithPrincipal binds the authenticated caller identity to the context.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFrom extracts the caller identity; empty means anonymous.
func PrincipalFrom(ctx context.Context) string {
	principal, _ := ctx.Value(principalKey{}).(string)
	return principal
}
