package app

import (
	"errors"
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	start := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)
	op := NewOperation("serve", start)

	if op.ID != "20240615T143045Z" {
		t.Errorf("ID = %q, want %q", op.ID, "20240615T143045Z")
	}
	if op.Command != "serve" {
		t.Errorf("Command = %q, want %q", op.Command, "serve")
	}
	if op.Finished() {
		t.Error("new operation reports finished")
	}
}

func TestOperation_Finish(t *testing.T) {
	start := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name       string
		err        error
		wantStatus string
	}{
		{name: "success", err: nil, wantStatus: "success"},
		{name: "error", err: errors.New("boom"), wantStatus: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("user add", start)
			op.Finish(tt.err, start.Add(1500*time.Millisecond))

			if op.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", op.Status, tt.wantStatus)
			}
			if op.Duration != 1500*time.Millisecond {
				t.Errorf("Duration = %v, want 1.5s", op.Duration)
			}
		})
	}

	t.Run("second finish is ignored", func(t *testing.T) {
		op := NewOperation("serve", start)
		op.Finish(nil, start.Add(time.Second))
		op.Finish(errors.New("late"), start.Add(time.Minute))

		if op.Status != "success" || op.Duration != time.Second {
			t.Errorf("operation = %+v, want first outcome kept", op)
		}
	})
}
