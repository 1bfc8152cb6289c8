package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusCreated, StatusRunning, true},
		{StatusRunning, StatusStopped, true},
		{StatusCreated, StatusStopped, true}, // spawn failure path
		{StatusRunning, StatusCreated, false},
		{StatusStopped, StatusRunning, false},
		{StatusStopped, StatusCreated, false},
		{StatusCreated, StatusCreated, false},
		{Status("bogus"), StatusRunning, false},
		{StatusCreated, Status("bogus"), false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestContainerStateOmitsAbsentFields(t *testing.T) {
	st := &ContainerState{
		ID:     "c1",
		Bundle: "/bundles/c1",
		Status: StatusCreated,
	}

	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	// Optional fields must be omitted when unset, never written as null
	for _, field := range []string{"pid", "exit_code", "stdin", "stdout", "stderr", "tenant"} {
		if strings.Contains(string(data), `"`+field+`"`) {
			t.Errorf("unset field %q present in %s", field, data)
		}
	}
}

func TestContainerStateExitCodeZeroSurvives(t *testing.T) {
	code := 0
	st := &ContainerState{ID: "c1", Bundle: "/b", Status: StatusStopped, ExitCode: &code}

	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	// exit_code = 0 is meaningful (clean exit) and must round-trip
	var out ContainerState
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.ExitCode == nil || *out.ExitCode != 0 {
		t.Errorf("ExitCode = %v, want 0", out.ExitCode)
	}
}

func TestErrorKindClassification(t *testing.T) {
	cause := errors.New("no such file")
	err := NewError(KindConfig, "read bundle", cause)

	if !IsKind(err, KindConfig) {
		t.Error("IsKind(KindConfig) = false, want true")
	}
	if IsKind(err, KindSpawn) {
		t.Error("IsKind(KindSpawn) = true, want false")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped cause lost from error chain")
	}
}

func TestErrorKindThroughWrapping(t *testing.T) {
	inner := Errorf(KindLock, "acquire", "flock: %v", errors.New("EAGAIN"))
	outer := fmt.Errorf("start container: %w", inner)

	if !IsKind(outer, KindLock) {
		t.Error("IsKind() lost classification through fmt.Errorf wrapping")
	}
}
