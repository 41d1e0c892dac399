package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/aixigo/oci-semver-tagging/internal/logging"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 100 * time.Millisecond
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Service delivers an Event to one destination.
type Service interface {
	Send(ctx context.Context, ev Event) error
	Name() string
}

// MultiNotifier fans an Event out to every configured service. Deliveries
// run in the background and are retried with exponential backoff; call Wait
// before the process exits.
type MultiNotifier struct {
	services []Service

	Attempts int
	Backoff  time.Duration
	// Jitter adds up to this much random delay to each backoff.
	Jitter time.Duration
	// pause waits between attempts; tests replace it.
	pause func(ctx context.Context, d time.Duration) error

	wg sync.WaitGroup
}

func NewMultiNotifier(services ...Service) *MultiNotifier {
	m := &MultiNotifier{
		Attempts: defaultAttempts,
		Backoff:  defaultBackoff,
		pause:    sleepCtx,
	}
	for _, s := range services {
		m.Add(s)
	}
	return m
}

// Add registers s. Nil services are ignored.
func (m *MultiNotifier) Add(s Service) {
	if s != nil {
		m.services = append(m.services, s)
	}
}

func (m *MultiNotifier) Len() int { return len(m.services) }

// Send starts delivering ev to every service.
func (m *MultiNotifier) Send(ctx context.Context, ev Event) {
	for _, s := range m.services {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.deliver(ctx, s, ev); err != nil {
				logging.Get().Error().Err(err).Str("service", s.Name()).Str("run_id", ev.RunID).Msg("notification not delivered")
			}
		}()
	}
}

// Wait blocks until every pending delivery finished or ctx is done.
func (m *MultiNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MultiNotifier) deliver(ctx context.Context, s Service, ev Event) error {
	attempts := max(m.Attempts, 1)
	var err error
	for attempt := 1; ; attempt++ {
		if err = s.Send(ctx, ev); err == nil {
			logging.Get().Debug().Str("service", s.Name()).Int("attempt", attempt).Msg("notification sent")
			return nil
		}
		if attempt == attempts {
			return fmt.Errorf("%s: %d attempts: %w", s.Name(), attempts, err)
		}
		logging.Get().Warn().Err(err).Str("service", s.Name()).Int("attempt", attempt).Msg("notification attempt failed")
		if perr := m.pause(ctx, m.delay(attempt)); perr != nil {
			return fmt.Errorf("%s: %w (last error: %v)", s.Name(), perr, err)
		}
	}
}

// delay is Backoff doubled per failed attempt, plus jitter.
func (m *MultiNotifier) delay(attempt int) time.Duration {
	d := m.Backoff << (attempt - 1)
	if m.Jitter > 0 {
		d += rand.N(m.Jitter)
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func postJSON(ctx context.Context, url string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
