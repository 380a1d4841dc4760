package liveedit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle guards a Generator that is called with the application's default credential.
// Requests carrying the user's own key are passed through unthrottled. Requests on the
// default key are limited to Limit calls per fixed Window: the window opens with the first
// call, and once Limit calls are used further calls are refused until it has fully elapsed.
type Throttle struct {
	Next Generator

	// DefaultKey is used when a request has no key of its own.
	DefaultKey string

	Limit  int
	Window time.Duration

	mu      sync.Mutex
	now     func() time.Time
	start   time.Time
	limiter *rate.Limiter
}

// NewThrottle creates a Throttle. A non-positive limit or window disables throttling.
func NewThrottle(next Generator, defaultKey string, limit int, window time.Duration) *Throttle {
	return &Throttle{
		Next:       next,
		DefaultKey: defaultKey,
		Limit:      limit,
		Window:     window,
		now:        time.Now,
	}
}

func (t *Throttle) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if req.APIKey == "" {
		if t.DefaultKey == "" {
			return "", &GenerateError{
				Kind:    GenerateInvalidCredential,
				Message: "The API key is not configured. Please set it up to use this feature.",
			}
		}
		if !t.allow() {
			return "", &GenerateError{
				Kind:    GenerateRateLimited,
				Message: "You've exceeded the request limit. Please wait a moment, or enter your own API key to continue.",
			}
		}
		req.APIKey = t.DefaultKey
	}
	return t.Next.Generate(ctx, req)
}

// allow records a call on the default key. A limiter with a zero rate never refills, so each
// window gets a fresh one holding Limit tokens.
func (t *Throttle) allow() bool {
	if t.Limit <= 0 || t.Window <= 0 {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.limiter == nil || now.Sub(t.start) > t.Window {
		t.start = now
		t.limiter = rate.NewLimiter(0, t.Limit)
	}
	return t.limiter.AllowN(now, 1)
}
