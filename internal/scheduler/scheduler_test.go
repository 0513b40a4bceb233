package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeJob struct {
	calls atomic.Int32
	n     int
	err   error
}

func (f *fakeJob) PregenerateAll(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("job context has no deadline")
	}
	return f.n, f.err
}

func TestValidate(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"5 0 * * *", false},
		{"0 9 * * 1-5", false},
		{" 30 6 * * * ", false},
		{"", true},
		{"every day", true},
		{"0 0 0 * * *", true}, // six fields need a seconds parser
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			err := Validate(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestNew_RejectsBadSpec(t *testing.T) {
	if _, err := New("nope", time.UTC, &fakeJob{}, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestNext_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	s, err := New("5 0 * * *", loc, &fakeJob{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	// 21:00 UTC is 23:00 in UTC+2, so the next run is 00:05 local.
	next := s.Next(time.Date(2026, 7, 1, 21, 0, 0, 0, time.UTC))
	want := time.Date(2026, 7, 2, 0, 5, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("Next = %v, want %v", next, want)
	}
}

func TestRunOnce_RecordsStatus(t *testing.T) {
	job := &fakeJob{n: 4}
	s, err := New("5 0 * * *", time.UTC, job, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.RunOnce(context.Background())

	st := s.Status()
	if job.calls.Load() != 1 || st.Served != 4 || st.Error != "" {
		t.Errorf("status = %+v, calls = %d", st, job.calls.Load())
	}
	if st.LastRun.IsZero() || st.NextRun.IsZero() {
		t.Errorf("times not set: %+v", st)
	}
}

func TestRunOnce_FailureIsRecordedNotFatal(t *testing.T) {
	job := &fakeJob{n: 1, err: errors.New("db locked")}
	s, err := New("5 0 * * *", time.UTC, job, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.RunOnce(context.Background())
	if st := s.Status(); st.Error != "db locked" || st.Served != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestStartStop(t *testing.T) {
	s, err := New("5 0 * * *", time.UTC, &fakeJob{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
