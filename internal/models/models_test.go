package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestProgressBounds(t *testing.T) {
	cases := []struct {
		completed, total int
		want             float64
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 4, 0},
		{1, 4, 25},
		{4, 4, 100},
		{5, 4, 100},
		{-1, 4, 0},
	}
	for _, tc := range cases {
		got := Progress(tc.completed, tc.total)
		if got != tc.want {
			t.Fatalf("Progress(%d, %d): expected %v, got %v", tc.completed, tc.total, tc.want, got)
		}
		if got < 0 || got > 100 {
			t.Fatalf("Progress(%d, %d) out of range: %v", tc.completed, tc.total, got)
		}
	}
}

func TestTaskStatusToggleRoundTrip(t *testing.T) {
	if StatusCreated.Toggle() != StatusCompleted {
		t.Fatalf("expected created to toggle to completed")
	}
	if StatusCreated.Toggle().Toggle() != StatusCreated {
		t.Fatalf("expected double toggle to return to created")
	}
	if TaskStatus("in_progress").Valid() {
		t.Fatalf("expected unknown status to be invalid")
	}
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		Start *Date `json:"start"`
	}
	if err := json.Unmarshal([]byte(`{"start":"2025-01-01"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Start == nil || payload.Start.String() != "2025-01-01" {
		t.Fatalf("unexpected date %v", payload.Start)
	}
	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"start":"2025-01-01"}` {
		t.Fatalf("unexpected json %s", out)
	}
	if err := json.Unmarshal([]byte(`{"start":"01/02/2025"}`), &payload); err == nil {
		t.Fatalf("expected malformed date to fail")
	}
}

func TestDeriveDaysRemaining(t *testing.T) {
	end, _ := ParseDate("2025-01-10")
	p := Project{EndDate: &end, CompletedTasks: 1, TotalTasks: 2}
	p.Derive(time.Date(2025, 1, 7, 18, 30, 0, 0, time.UTC))
	if p.DaysRemaining == nil || *p.DaysRemaining != 3 {
		t.Fatalf("expected 3 days remaining, got %v", p.DaysRemaining)
	}
	if p.Progress != 50 {
		t.Fatalf("expected 50%% progress, got %v", p.Progress)
	}

	p.EndDate = nil
	p.Derive(time.Now())
	if p.DaysRemaining != nil {
		t.Fatalf("expected no days remaining without end date")
	}
}
