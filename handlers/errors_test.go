package handlers

import (
	"testing"

	"github.com/pkg/errors"
)

func TestRecoverableError(t *testing.T) {
	var err error
	err = NewRecoverableError("this is a test %s", "of the Emergency Broadcast System")

	// Verify that we go the expected error message.
	if err.Error() != "this is a test of the Emergency Broadcast System" {
		t.Errorf("unexpected error message: %s", err.Error())
	}

	// Verify that a RecoverableError was actually returned.
	if _, ok := err.(RecoverableError); !ok {
		t.Errorf("The error doesn't appear to be a RecoverableError")
	}

	// The type must be distinct from an uncrecoverable error.
	if _, ok := err.(UnrecoverableError); ok {
		t.Errorf("The error appears to be an UnrecoverableError")
	}

	if !IsRecoverable(err) {
		t.Errorf("IsRecoverable returned false for a RecoverableError")
	}
}

func TestUnrecoverableError(t *testing.T) {
	var err error
	err = NewUnrecoverableError("testing %s %s", "check", "1...2...3")

	// Verify that w get the expected error message.
	if err.Error() != "testing check 1...2...3" {
		t.Errorf("unexpected error message: %s", err.Error())
	}

	// Verify that an UnrecoverableError was actually returned.
	if _, ok := err.(UnrecoverableError); !ok {
		t.Errorf("The error doesn't appear to be an UnrecoverableError")
	}

	if IsRecoverable(err) {
		t.Errorf("IsRecoverable returned true for an UnrecoverableError")
	}
}

func TestIsRecoverableWrapped(t *testing.T) {
	err := errors.Wrap(NewRecoverableError("broker unavailable"), "unable to handle message")
	if !IsRecoverable(err) {
		t.Errorf("IsRecoverable didn't look through the wrapped error")
	}

	if IsRecoverable(errors.New("plain error")) {
		t.Errorf("plain errors should be treated as unrecoverable")
	}
}
