package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownChallenge = errors.New("Unknown or expired challenge")

const DefaultChallengeTTL = 5 * time.Minute

type issuedChallenge struct {
	publicKey string
	expiresAt time.Time
}

// Challenges hands out one-time nonces bound to a public key. A key may
// hold several pending nonces; each is removed only when it is redeemed or
// expires.
type Challenges struct {
	mu      sync.Mutex
	byValue map[string]issuedChallenge
	ttl     time.Duration
	now     func() time.Time
	nextID  func() string
}

func NewChallenges(ttl time.Duration) *Challenges {
	return NewChallengesWithNow(ttl, time.Now)
}

func NewChallengesWithNow(ttl time.Duration, now func() time.Time) *Challenges {
	return &Challenges{
		byValue: make(map[string]issuedChallenge),
		ttl:     ttl,
		now:     now,
		nextID:  uuid.NewString,
	}
}

func (c *Challenges) pruneLocked(now time.Time) {
	for value, ch := range c.byValue {
		if now.After(ch.expiresAt) {
			delete(c.byValue, value)
		}
	}
}

// Issue returns a fresh challenge for publicKey. Earlier pending challenges
// for the same key stay valid.
func (c *Challenges) Issue(publicKey string) (string, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.pruneLocked(now)

	value := "solitaire-ledger:" + c.nextID()
	ch := issuedChallenge{publicKey: publicKey, expiresAt: now.Add(c.ttl)}
	c.byValue[value] = ch
	return value, ch.expiresAt
}

// Consume redeems value for publicKey. A value that does not match a
// pending challenge of publicKey leaves every pending challenge in place.
func (c *Challenges) Consume(publicKey, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.byValue[value]
	if !ok || ch.publicKey != publicKey {
		return ErrUnknownChallenge
	}
	if c.now().After(ch.expiresAt) {
		delete(c.byValue, value)
		return ErrUnknownChallenge
	}
	delete(c.byValue, value)
	return nil
}
