package services

import (
	"github.com/fyrsmithlabs/interviewd/internal/events"
	"github.com/fyrsmithlabs/interviewd/internal/feedback"
	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/questionbank"
	"github.com/fyrsmithlabs/interviewd/internal/redact"
	"github.com/fyrsmithlabs/interviewd/internal/store"
)

// Registry provides access to all interviewd services.
// Use accessor methods to retrieve individual services.
type Registry interface {
	Interview() interview.Service
	Feedback() *feedback.Generator
	Questions() *questionbank.Bank
	Events() events.Publisher
	Scrubber() redact.Scrubber
	Store() store.Store
}

// Options configures the registry with service instances.
type Options struct {
	Interview interview.Service
	Feedback  *feedback.Generator
	Questions *questionbank.Bank
	Events    events.Publisher
	Scrubber  redact.Scrubber
	Store     store.Store
}

// registry is the concrete implementation of Registry.
type registry struct {
	interview interview.Service
	feedback  *feedback.Generator
	questions *questionbank.Bank
	events    events.Publisher
	scrubber  redact.Scrubber
	store     store.Store
}

// NewRegistry creates a new service registry.
func NewRegistry(opts Options) Registry {
	return &registry{
		interview: opts.Interview,
		feedback:  opts.Feedback,
		questions: opts.Questions,
		events:    opts.Events,
		scrubber:  opts.Scrubber,
		store:     opts.Store,
	}
}

func (r *registry) Interview() interview.Service    { return r.interview }
func (r *registry) Feedback() *feedback.Generator   { return r.feedback }
func (r *registry) Questions() *questionbank.Bank   { return r.questions }
func (r *registry) Events() events.Publisher        { return r.events }
func (r *registry) Scrubber() redact.Scrubber       { return r.scrubber }
func (r *registry) Store() store.Store              { return r.store }
