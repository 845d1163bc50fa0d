package service

import "context"

// Job is a one-shot batch process run by the job binary.
type Job interface {
	Init(ctx context.Context) error
	Run(ctx context.Context) error
	CleanUp(ctx context.Context) error
}
