package errreport

import "testing"

// Reporter is satisfied by *Sentry; this is a compile-time interface check
// since there's no way to assert against the Sentry network client without
// a live DSN.
var _ Reporter = (*Sentry)(nil)

func TestNewSentryRejectsMalformedDSN(t *testing.T) {
	_, err := NewSentry("not-a-valid-dsn", "test", "test")
	if err == nil {
		t.Fatal("expected an error for a malformed DSN, got nil")
	}
}
