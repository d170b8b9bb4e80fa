// Package errreport defines the optional sink a lang/context.Context uses
// to report unexpected runtime faults that compile-time validation should
// have prevented (spec.md §7: "Runtime (interpreter) errors do not exist").
// It is an interface so embedding a crash-reporting backend is the caller's
// choice, never a hard dependency of the core pipeline.
package errreport

import "github.com/getsentry/sentry-go"

// Reporter receives faults a Context hits that it cannot recover from on
// its own: a resolved Program reaching a state the compiler/linker should
// have rejected.
type Reporter interface {
	ReportFault(err error, tags map[string]string)
}

// Sentry reports faults to Sentry via github.com/getsentry/sentry-go,
// grounded on Conceptual-Machines-magda-api's main.go sentry.Init/
// CaptureException usage. Construct with NewSentry; the zero value is not
// usable.
type Sentry struct {
	dsn string
}

// NewSentry initializes the global Sentry client for dsn and returns a
// Reporter backed by it. Callers that don't want crash reporting simply
// never construct one; Context works with a nil Reporter.
func NewSentry(dsn, environment, release string) (*Sentry, error) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	}); err != nil {
		return nil, err
	}
	return &Sentry{dsn: dsn}, nil
}

// ReportFault sends err to Sentry with tags attached as scope tags.
func (s *Sentry) ReportFault(err error, tags map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}
