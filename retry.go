package igd

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// RetryTransport retries failed sends of the wrapped Transport with
// exponential backoff. Unexpected HTTP statuses and context errors are not
// retried.
type RetryTransport struct {
	next Transport
	cfg  RetryConfig
}

func NewRetryTransport(next Transport, cfg RetryConfig) *RetryTransport {
	return &RetryTransport{next: next, cfg: cfg}
}

func (t *RetryTransport) newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if t.cfg.InitialInterval > 0 {
		b.InitialInterval = t.cfg.InitialInterval
	}
	if t.cfg.MaxInterval > 0 {
		b.MaxInterval = t.cfg.MaxInterval
	}
	b.MaxElapsedTime = t.cfg.MaxElapsedTime
	return backoff.WithContext(b, ctx)
}

func (t *RetryTransport) Send(ctx context.Context, url, soapAction, body string) (string, error) {
	var text string
	operation := func() error {
		var err error
		text, err = t.next.Send(ctx, url, soapAction, body)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, d time.Duration) {
		log.Debugf("igd: send to %s failed, retrying in %s: %v", url, d, err)
	}
	if err := backoff.RetryNotify(operation, t.newBackoff(ctx), notify); err != nil {
		return "", err
	}
	return text, nil
}
