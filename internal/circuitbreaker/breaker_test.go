package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

func TestTripsAfterMaxFailures(t *testing.T) {
	b := New(Config{
		Name:        "trip-test",
		MaxFailures: 3,
		Cooldown:    time.Minute,
		MaxProbes:   1,
	}, testLogger())

	failing := func() error { return errors.New("gateway down") }

	for i := 0; i < 3; i++ {
		if err := b.Execute(failing); err == nil {
			t.Fatalf("execution %d: expected error", i)
		}
	}

	if b.State() != StateOpen {
		t.Fatalf("expected open state after %d failures, got %s", 3, b.State())
	}

	if err := b.Execute(func() error { return nil }); err != ErrOpen {
		t.Fatalf("expected ErrOpen while open, got %v", err)
	}
}

func TestHalfOpenRecovery(t *testing.T) {
	b := New(Config{
		Name:        "recovery-test",
		MaxFailures: 1,
		Cooldown:    10 * time.Millisecond,
		MaxProbes:   1,
	}, testLogger())

	if err := b.Execute(func() error { return errors.New("boom") }); err == nil {
		t.Fatal("expected failure")
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	time.Sleep(20 * time.Millisecond)

	// First call after the cooldown is the probe; success closes the breaker.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe should pass through, got %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", b.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := New(Config{
		Name:        "reopen-test",
		MaxFailures: 1,
		Cooldown:    10 * time.Millisecond,
		MaxProbes:   1,
	}, testLogger())

	b.Execute(func() error { return errors.New("boom") })
	time.Sleep(20 * time.Millisecond)

	if err := b.Execute(func() error { return errors.New("still down") }); err == nil {
		t.Fatal("expected probe failure")
	}
	if b.State() != StateOpen {
		t.Fatalf("expected re-open after failed probe, got %s", b.State())
	}
}

func TestConcurrentExecutionMetricsConsistent(t *testing.T) {
	b := New(Config{
		Name:        "concurrency-test",
		MaxFailures: 1000,
		Cooldown:    time.Minute,
		MaxProbes:   1,
	}, testLogger())

	const numGoroutines = 50
	const numIterations = 20

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < numIterations; j++ {
				b.Execute(func() error {
					if (n+j)%3 == 0 {
						return errors.New("simulated failure")
					}
					return nil
				})
			}
		}(i)
	}
	wg.Wait()

	metrics := b.Metrics()
	total := metrics["total_requests"].(int64)
	failures := metrics["total_failures"].(int64)
	successes := metrics["total_successes"].(int64)

	if total != numGoroutines*numIterations {
		t.Errorf("expected %d requests, got %d", numGoroutines*numIterations, total)
	}
	if total != failures+successes {
		t.Errorf("inconsistent metrics: total=%d failures=%d successes=%d",
			total, failures, successes)
	}
}

func TestResetClearsState(t *testing.T) {
	b := New(Config{Name: "reset-test", MaxFailures: 1, Cooldown: time.Minute}, testLogger())

	b.Execute(func() error { return errors.New("boom") })
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	b.Reset()
	if b.State() != StateClosed {
		t.Fatalf("expected closed after reset, got %s", b.State())
	}
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected call to pass after reset, got %v", err)
	}
}

func TestDefaultsApplied(t *testing.T) {
	b := New(Config{}, testLogger())
	if b.name != "unnamed" || b.maxFailures != 5 || b.cooldown != 30*time.Second || b.maxProbes != 1 {
		t.Errorf("unexpected defaults: %s", b)
	}
}
