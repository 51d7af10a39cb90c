package catalog

import (
	"errors"
	"fmt"
	"testing"
)

func TestPermanentWrapsAndUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("bad selector")
	err := Permanent(cause)
	if !IsPermanent(err) {
		t.Fatal("expected permanent")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to survive wrapping")
	}
	if Permanent(nil) != nil {
		t.Fatal("Permanent(nil) must be nil")
	}

	// Marking survives another layer of wrapping.
	wrapped := fmt.Errorf("visit page: %w", err)
	if !IsPermanent(wrapped) {
		t.Fatal("expected permanent through fmt.Errorf")
	}
}

func TestExtractionFailedErrorCarriesURL(t *testing.T) {
	t.Parallel()

	cause := errors.New("nav timeout")
	err := &ExtractionFailedError{URL: "https://www.ae.com/us/en/p/x", Cause: cause}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause via Unwrap")
	}
	var ef *ExtractionFailedError
	if !errors.As(error(err), &ef) || ef.URL == "" {
		t.Fatal("expected typed extraction failure with URL")
	}
}
