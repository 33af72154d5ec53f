// Package timing blurs the duration of failed authentication attempts so
// callers cannot distinguish a missing account from a wrong password by
// measuring response latency.
package timing

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

// Normalizer sleeps for a random duration inside a fixed band. The
// random draw comes from crypto/rand so the delay itself carries no
// observable pattern across attempts.
type Normalizer struct {
	min time.Duration
	max time.Duration
}

// NewNormalizer builds a Normalizer with the given band. min must be
// positive and not exceed max.
func NewNormalizer(min, max time.Duration) (*Normalizer, error) {
	if min <= 0 {
		return nil, errors.New("timing: min delay must be positive")
	}
	if max < min {
		return nil, errors.New("timing: max delay must not be below min")
	}
	return &Normalizer{min: min, max: max}, nil
}

// Band returns the configured delay band.
func (n *Normalizer) Band() (min, max time.Duration) {
	return n.min, n.max
}

// Sleep blocks for a uniformly random duration in [min, max]. The delay
// always runs to completion: cancelling ctx does not shorten it, so a
// caller abandoning the request cannot race the delay into revealing how
// far the rejected attempt got. The only error is a failed random draw.
func (n *Normalizer) Sleep(_ context.Context) error {
	span := int64(n.max-n.min) + 1

	r, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return err
	}

	time.Sleep(n.min + time.Duration(r.Int64()))
	return nil
}
