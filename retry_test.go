package igd

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyTransport struct {
	calls    int32
	failures int32
	err      error
	reply    string
}

func (f *flakyTransport) Send(ctx context.Context, url, soapAction, body string) (string, error) {
	if atomic.AddInt32(&f.calls, 1) <= f.failures {
		return "", f.err
	}
	return f.reply, nil
}

var fastRetry = RetryConfig{
	MaxElapsedTime:  2 * time.Second,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
}

func TestRetryTransportRecovers(t *testing.T) {
	ft := &flakyTransport{failures: 2, err: errors.New("connection reset"), reply: addPortMappingResponse}
	text, err := NewRetryTransport(ft, fastRetry).Send(context.Background(), testGateway.URL(), addPortMappingSOAPAction, "")
	require.NoError(t, err)
	assert.Equal(t, addPortMappingResponse, text)
	assert.EqualValues(t, 3, atomic.LoadInt32(&ft.calls))
}

func TestRetryTransportStatusErrorIsPermanent(t *testing.T) {
	ft := &flakyTransport{failures: 10, err: &StatusError{StatusCode: 404, Status: "404 Not Found"}}
	_, err := NewRetryTransport(ft, fastRetry).Send(context.Background(), testGateway.URL(), addPortMappingSOAPAction, "")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.EqualValues(t, 1, atomic.LoadInt32(&ft.calls))
}

func TestRetryTransportGivesUp(t *testing.T) {
	cause := errors.New("no route to host")
	ft := &flakyTransport{failures: 1 << 30, err: cause}
	cfg := fastRetry
	cfg.MaxElapsedTime = 20 * time.Millisecond

	err := NewClient(NewRetryTransport(ft, cfg)).RemovePort(context.Background(), testGateway, UDP, 500)
	assert.True(t, IsTransportFailure(err))
	assert.ErrorIs(t, err, cause)
	assert.Greater(t, atomic.LoadInt32(&ft.calls), int32(1))
}

func TestRetryTransportDoesNotRetryInvalidResponse(t *testing.T) {
	ft := &flakyTransport{reply: faultResponse}
	err := NewClient(NewRetryTransport(ft, fastRetry)).RemovePort(context.Background(), testGateway, UDP, 500)
	assert.True(t, IsInvalidResponse(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&ft.calls))
}

func TestConfigNewTransport(t *testing.T) {
	cfg := DefaultConfig()
	assert.IsType(t, &HTTPTransport{}, cfg.NewTransport())

	cfg.Retry.MaxElapsedTime = time.Minute
	assert.IsType(t, &RetryTransport{}, cfg.NewTransport())
}
