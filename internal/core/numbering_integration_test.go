package core_test

import (
	"context"
	"sync"
	"testing"

	"invoice-studio/internal/core"
)

func TestNumberingService_ConcurrentNext(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewNumberingService(pool)
	ctx := context.Background()

	peek, err := svc.Peek(ctx, 1)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if peek != "INV-00001" {
		t.Errorf("peek on empty sequence = %q", peek)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	errCh := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := svc.Next(ctx, 1)
			if err != nil {
				errCh <- err
				return
			}
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent next error: %v", err)
	}
	if len(seen) != 10 || !seen["INV-00001"] || !seen["INV-00010"] {
		t.Errorf("expected INV-00001..INV-00010 exactly once, got %v", seen)
	}

	peek, err = svc.Peek(ctx, 1)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if peek != "INV-00011" {
		t.Errorf("peek after 10 = %q", peek)
	}
}
