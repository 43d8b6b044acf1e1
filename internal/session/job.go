package session

import "context"

// Job is remote work started by Dispatch. Run may be called off the update
// loop; its Settlement must be passed back to Settle on the loop.
type Job struct {
	ID        string
	Kind      JobKind
	ContextID string
	run       func(context.Context) (string, error)
}

// Settlement is the outcome of a Job.
type Settlement struct {
	JobID     string
	Kind      JobKind
	ContextID string
	Text      string
	Err       error
}

// Run performs the job. It never touches orchestrator state.
func (j *Job) Run(ctx context.Context) Settlement {
	text, err := j.run(ctx)
	return Settlement{
		JobID:     j.ID,
		Kind:      j.Kind,
		ContextID: j.ContextID,
		Text:      text,
		Err:       err,
	}
}
