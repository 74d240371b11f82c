package seedset

import (
	"sync"
	"testing"
	"time"

	seterrors "github.com/setexpand/setexpand/internal/errors"
)

func TestSessionStore_Lifecycle(t *testing.T) {
	st := NewSessionStore(Options{})

	sess := st.Create()
	if sess.ID == "" {
		t.Fatal("session id should be set")
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}

	got, err := st.Get(sess.ID)
	if err != nil || got != sess {
		t.Fatalf("Get returned %v, %v", got, err)
	}

	if _, err := st.Get("missing"); seterrors.GetCode(err) != seterrors.CodeSessionNotFound {
		t.Errorf("unknown id should be not found, got %v", err)
	}

	if !st.Delete(sess.ID) {
		t.Error("Delete should report an existing session")
	}
	if st.Delete(sess.ID) {
		t.Error("second Delete should report false")
	}
}

func TestSessionStore_SessionsAreIsolated(t *testing.T) {
	st := NewSessionStore(Options{})
	a, b := st.Create(), st.Create()

	_ = a.Do(func(s *SeedSet) error {
		s.Load([]RowRef{{1, 0}}, []Row{row("a", "1")})
		return nil
	})

	_ = b.Do(func(s *SeedSet) error {
		if s.Initialized() {
			t.Error("session b should not see session a's seed")
		}
		return nil
	})
}

func TestSessionStore_Sweep(t *testing.T) {
	st := NewSessionStore(Options{})
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }

	old := st.Create()
	clock = clock.Add(20 * time.Minute)
	fresh := st.Create()

	if n := st.Sweep(10 * time.Minute); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if _, err := st.Get(old.ID); err == nil {
		t.Error("idle session should be swept")
	}
	if _, err := st.Get(fresh.ID); err != nil {
		t.Error("fresh session should survive")
	}
}

func TestSession_DoSerializes(t *testing.T) {
	st := NewSessionStore(Options{})
	sess := st.Create()
	_ = sess.Do(func(s *SeedSet) error {
		s.Load([]RowRef{{1, 0}}, []Row{row("a", "1")})
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sess.Do(func(s *SeedSet) error {
				s.RowsReturned++
				return nil
			})
		}()
	}
	wg.Wait()

	_ = sess.Do(func(s *SeedSet) error {
		if s.RowsReturned != DefaultRowsReturned+50 {
			t.Errorf("RowsReturned = %d, want %d", s.RowsReturned, DefaultRowsReturned+50)
		}
		return nil
	})
}

func TestSessionStore_SweepDoesNotWaitOnBusySession(t *testing.T) {
	st := NewSessionStore(Options{})
	busy, other := st.Create(), st.Create()

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = busy.Do(func(*SeedSet) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	swept := make(chan int, 1)
	go func() { swept <- st.Sweep(time.Hour) }()

	select {
	case n := <-swept:
		if n != 0 {
			t.Errorf("Sweep removed %d, want 0", n)
		}
	case <-time.After(time.Second):
		t.Fatal("Sweep blocked on a session with a running operation")
	}

	got := make(chan error, 1)
	go func() {
		_, err := st.Get(other.ID)
		got <- err
	}()
	select {
	case err := <-got:
		if err != nil {
			t.Errorf("Get on an idle session failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Get blocked while another session was busy")
	}
}
