package shortcode

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrRetryExhausted  = errors.New("no free short code found")
	ErrCodeUnavailable = errors.New("path unavailable")
)

// DefaultAttemptsPerLength is how many collisions at one length are tolerated
// before the code grows.
const DefaultAttemptsPerLength = 5

const (
	defaultMaxAttempts = 20
	defaultMaxLength   = 10
)

// ExistsFunc reports whether code is already used by a stored link.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// GenerateFunc draws one random candidate of the given length. Generate is
// the production source; tests swap in a deterministic one.
type GenerateFunc func(length int) (string, error)

type Resolver struct {
	generate          GenerateFunc
	maxAttempts       int
	attemptsPerLength int
	maxLength         int
}

type Option func(*Resolver)

// WithGenerator replaces the random source. It exists so collision handling
// can be exercised deterministically.
func WithGenerator(generate GenerateFunc) Option {
	return func(r *Resolver) {
		r.generate = generate
	}
}

// WithMaxAttempts bounds how many candidates Resolve draws.
func WithMaxAttempts(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithLengthEscalation grows the code by one symbol every perLength
// consecutive collisions, never past maxLength.
func WithLengthEscalation(perLength, maxLength int) Option {
	return func(r *Resolver) {
		if perLength > 0 {
			r.attemptsPerLength = perLength
		}
		if maxLength > 0 {
			r.maxLength = maxLength
		}
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		generate:          Generate,
		maxAttempts:       defaultMaxAttempts,
		attemptsPerLength: DefaultAttemptsPerLength,
		maxLength:         defaultMaxLength,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve draws candidates until exists reports one as free. It gives up with
// ErrRetryExhausted once the attempt budget is spent.
func (r *Resolver) Resolve(ctx context.Context, exists ExistsFunc, length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	current := length
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := r.generate(current)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code %q: %w", code, err)
		}
		if !taken {
			return code, nil
		}

		if attempt%r.attemptsPerLength == 0 && current < r.maxLength {
			current++
		}
	}

	return "", ErrRetryExhausted
}

// Claim performs a single availability check for a caller-chosen code.
func (r *Resolver) Claim(ctx context.Context, exists ExistsFunc, code string) error {
	taken, err := exists(ctx, code)
	if err != nil {
		return fmt.Errorf("check code %q: %w", code, err)
	}
	if taken {
		return ErrCodeUnavailable
	}

	return nil
}
