package execute

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestCommand_Validate(t *testing.T) {
	if err := (Command{}).Validate(); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Validate() on empty command error = %v, want ErrEmptyCommand", err)
	}
	if err := (Command{Args: []string{"true"}}).Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestCommand_String(t *testing.T) {
	c := Command{Args: []string{"echo", "-n", "hello"}}
	if got, want := c.String(), "echo -n hello"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCommand_Environ(t *testing.T) {
	parent := []string{"PATH=/usr/bin", "HOME=/root"}

	t.Run("nil overlay inherits", func(t *testing.T) {
		c := Command{Args: []string{"true"}}
		if got := c.environ(parent); got != nil {
			t.Errorf("environ() = %v, want nil for inherited environment", got)
		}
	})

	t.Run("overlay appended sorted", func(t *testing.T) {
		c := Command{
			Args: []string{"true"},
			Env:  map[string]string{"ZED": "z", "ALPHA": "a"},
		}
		got := c.environ(parent)
		want := []string{"PATH=/usr/bin", "HOME=/root", "ALPHA=a", "ZED=z"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("environ() = %v, want %v", got, want)
		}
	})

	t.Run("overlay wins over parent", func(t *testing.T) {
		c := Command{
			Args: []string{"true"},
			Env:  map[string]string{"HOME": "/tmp"},
		}
		got := c.environ(parent)
		// Later entries win when exec resolves duplicates.
		if got[len(got)-1] != "HOME=/tmp" {
			t.Errorf("environ() last entry = %q, want overlay HOME=/tmp", got[len(got)-1])
		}
	})
}

func TestExecError_Error(t *testing.T) {
	err := &ExecError{
		ExitCode: 2,
		Stdout:   []byte("out"),
		Stderr:   []byte("err"),
		Cmd:      []string{"ls", "/nope"},
	}
	msg := err.Error()
	for _, want := range []string{"ls /nope", "exit code: 2", `"out"`, `"err"`} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestExecError_UnknownExitCode(t *testing.T) {
	err := &ExecError{ExitCode: UnknownExitCode, Cmd: []string{"sleep", "60"}}
	if !strings.Contains(err.Error(), "exit code: -") {
		t.Errorf("Error() = %q, want killed marker rendered as -", err.Error())
	}
}
