package model

import "context"

// PostingSource produces the complete set of postings currently listed by one
// company. A non-nil error means the set is not complete: the returned slice
// may still hold the postings that were read before the failure.
type PostingSource interface {
	FetchPostings(ctx context.Context) ([]Posting, error)
}

// Enricher extracts structured attributes from free posting text. It never
// fails: on any error it returns DefaultEnrichment.
type Enricher interface {
	Enrich(ctx context.Context, text string) Enrichment
}

// Notifier delivers a rendered message to one subscriber.
type Notifier interface {
	Send(ctx context.Context, subscriberID int64, text string) error
}

// Lease serializes work across processes. Acquire reports ok=false when
// another holder owns the lease; release must be called when ok is true.
// held is derived from ctx and is cancelled as soon as the lease can no
// longer be guaranteed, so work done under the lease must stop when it is.
type Lease interface {
	Acquire(ctx context.Context) (held context.Context, release func(), ok bool, err error)
}

// StoreTx is the set of operations available inside a unit of work.
type StoreTx interface {
	// JobByLink returns ErrNotFound when no job has the link.
	JobByLink(ctx context.Context, link string) (*Job, error)
	// JobByID returns ErrNotFound when no job has the id.
	JobByID(ctx context.Context, id string) (*Job, error)
	JobsByCompany(ctx context.Context, company string) ([]Job, error)
	InsertJob(ctx context.Context, job *Job) error
	UpdateJob(ctx context.Context, job *Job) error

	// Enqueue adds an unsent event unless one already exists for the same
	// job and type. It reports whether a row was inserted.
	Enqueue(ctx context.Context, jobID string, t EventType) (bool, error)
	// Pending returns unsent deliverable events, oldest first.
	Pending(ctx context.Context) ([]NotificationEvent, error)
	// MarkSent flags every unsent event of the given jobs as notified in one update.
	MarkSent(ctx context.Context, jobIDs []string) error

	ActiveAlertFilters(ctx context.Context) ([]AlertFilter, error)
	// AlertFilter returns ErrNotFound when the subscriber has no filter yet.
	AlertFilter(ctx context.Context, userID int64) (*AlertFilter, error)
	SaveAlertFilter(ctx context.Context, f *AlertFilter) error
}

// Store is the persisted state shared by the reconciler and the dispatcher.
type Store interface {
	StoreTx
	// WithTx runs fn in one transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx StoreTx) error) error
	ListJobs(ctx context.Context, includeArchived bool) ([]Job, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Stats is a snapshot of table counts.
type Stats struct {
	Jobs          int
	ActiveJobs    int
	PendingEvents int
	ActiveAlerts  int
}
