package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

func TestReportedPositions_CachedFixWithinMaximumAge(t *testing.T) {
	g := NewReportedPositions()
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	g.Report(models.Position{Latitude: 1, Longitude: 2})

	now = now.Add(4 * time.Minute)
	pos, err := g.CurrentPosition(context.Background(), PositionOptions{Timeout: time.Millisecond, MaximumAge: 5 * time.Minute})
	if err != nil || pos.Latitude != 1 {
		t.Errorf("CurrentPosition() = %+v, %v; want cached fix", pos, err)
	}
}

func TestReportedPositions_StaleFixWaitsForReport(t *testing.T) {
	g := NewReportedPositions()
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	g.Report(models.Position{Latitude: 1, Longitude: 2})
	now = now.Add(6 * time.Minute)

	done := make(chan models.Position, 1)
	go func() {
		pos, _ := g.CurrentPosition(context.Background(), PositionOptions{Timeout: 5 * time.Second, MaximumAge: 5 * time.Minute})
		done <- pos
	}()

	// Keep reporting until the waiter has picked up the new fix.
	deadline := time.After(2 * time.Second)
	for {
		g.Report(models.Position{Latitude: 3, Longitude: 4})
		select {
		case pos := <-done:
			if pos.Latitude != 3 {
				t.Errorf("CurrentPosition() = %+v, want fresh fix", pos)
			}
			return
		case <-deadline:
			t.Fatal("waiter never received the reported fix")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestReportedPositions_Timeout(t *testing.T) {
	g := NewReportedPositions()
	_, err := g.CurrentPosition(context.Background(), PositionOptions{Timeout: 10 * time.Millisecond, MaximumAge: time.Minute})
	if !errors.Is(err, ErrPositionTimeout) || !errors.Is(err, ErrGeolocationUnavailable) {
		t.Errorf("CurrentPosition() error = %v, want timeout", err)
	}
}

func TestReportedPositions_ErrorStickyUntilFix(t *testing.T) {
	g := NewReportedPositions()
	g.ReportError(ErrPermissionDenied)
	opts := PositionOptions{Timeout: 10 * time.Millisecond, MaximumAge: time.Minute}

	if _, err := g.CurrentPosition(context.Background(), opts); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("error = %v, want ErrPermissionDenied", err)
	}
	g.Report(models.Position{Latitude: 5, Longitude: 6})
	if pos, err := g.CurrentPosition(context.Background(), opts); err != nil || pos.Latitude != 5 {
		t.Errorf("after fix: %+v, %v", pos, err)
	}
}

func TestReportedPositions_ContextCancelled(t *testing.T) {
	g := NewReportedPositions()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.CurrentPosition(ctx, PositionOptions{Timeout: time.Second, MaximumAge: time.Minute})
	if !errors.Is(err, ErrGeolocationUnavailable) {
		t.Errorf("error = %v, want ErrGeolocationUnavailable", err)
	}
}
