package blocks

import (
	"errors"
	"fmt"

	"github.com/sasha-s/go-deadlock"
)

var (
	ErrNotHigher     = errors.New("block is not higher than the current tip")
	ErrTimeReversed  = errors.New("block time is before the current tip")
	ErrAlreadyHave   = errors.New("block already known")
	ErrUnknownSigner = errors.New("block producer is not trusted")
)

// Tracker keeps the accepted headers. Heights strictly increase and time
// never goes backwards.
type Tracker struct {
	headers   Mapped
	tip       Header
	hasTip    bool
	producers map[string]struct{}
	mu        *deadlock.Mutex
}

// NewTracker accepts headers from the given producer pubkeys. With no
// producers every signer is accepted.
func NewTracker(producers ...string) *Tracker {
	t := &Tracker{
		headers:   make(Mapped),
		producers: make(map[string]struct{}),
		mu:        &deadlock.Mutex{},
	}
	for _, p := range producers {
		t.producers[p] = struct{}{}
	}
	return t
}

// Check reports whether h could be accepted next without recording it.
func (t *Tracker) Check(h Header) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.check(h)
}

func (t *Tracker) check(h Header) error {
	if existing, exists := t.headers[h.Height]; exists && existing.Hash == h.Hash {
		return fmt.Errorf("%w: %d %s", ErrAlreadyHave, h.Height, h.Hash)
	}
	if len(t.producers) > 0 && h.Producer != "" {
		if _, ok := t.producers[h.Producer]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSigner, h.Producer)
		}
	}
	if !t.hasTip {
		return nil
	}
	if h.Height <= t.tip.Height {
		return fmt.Errorf("%w: %d, tip is %d", ErrNotHigher, h.Height, t.tip.Height)
	}
	if h.Time.Before(t.tip.Time) {
		return fmt.Errorf("%w: %s", ErrTimeReversed, h.Time)
	}
	return nil
}

func (t *Tracker) Accept(h Header) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(h); err != nil {
		return err
	}
	h.Time = h.Time.UTC()
	t.headers[h.Height] = h
	t.tip = h
	t.hasTip = true
	return nil
}

func (t *Tracker) Tip() (Header, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tip, t.hasTip
}

func (t *Tracker) GetMap() Mapped {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := make(Mapped, len(t.headers))
	for height, h := range t.headers {
		m[height] = h
	}
	return m
}
