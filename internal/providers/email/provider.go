package email

import "context"

type Provider interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// NoOpProvider is wired when SMTP is not configured; sends vanish.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject, body string) error {
	return nil
}
