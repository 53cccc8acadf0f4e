// Package policy decides which registrations are acceptable.
//
// Password rules are a deployment decision, so they live here and not
// in the password hasher: the hasher happily hashes anything, including
// the empty string.
package policy

import (
	"context"
	"fmt"
	"unicode/utf8"
)

type (
	Registration struct {
		Username string
		Email    string
		Password string
	}

	Checker interface {
		Check(ctx context.Context, reg Registration) error
	}

	// CheckerFunc adapts a function to the Checker interface
	CheckerFunc func(ctx context.Context, reg Registration) error

	// Chain runs every checker in order and stops at the first error
	Chain []Checker

	// Rejected carries a message that is safe to show to the user
	Rejected struct {
		Reason string
	}
)

func (r Rejected) Error() string {
	return r.Reason
}

func (f CheckerFunc) Check(ctx context.Context, reg Registration) error {
	return f(ctx, reg)
}

func (c Chain) Check(ctx context.Context, reg Registration) error {
	for _, checker := range c {
		if checker == nil {
			continue
		}
		if err := checker.Check(ctx, reg); err != nil {
			return err
		}
	}
	return nil
}

// MinLength rejects passwords with less than n characters, n <= 0
// accepts everything.
func MinLength(n int) Checker {
	return CheckerFunc(func(_ context.Context, reg Registration) error {
		if n > 0 && utf8.RuneCountInString(reg.Password) < n {
			return Rejected{Reason: fmt.Sprintf("Password must be at least %d characters", n)}
		}
		return nil
	})
}
