package igd

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/net/html/charset"
)

// HTTPTransport sends SOAP requests with net/http.
type HTTPTransport struct {
	client  *http.Client
	maxBody int64
}

func NewHTTPTransport(cfg Config) *HTTPTransport {
	return &HTTPTransport{
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		maxBody: cfg.MaxResponseSize,
	}
}

// Send posts body to url. 2xx responses and HTTP 500 (which carries SOAP
// faults) return the body; any other status is a *StatusError.
func (t *HTTPTransport) Send(ctx context.Context, url, soapAction, body string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header["SOAPACTION"] = []string{soapAction}
	req.Header["CONTENT-TYPE"] = []string{`text/xml; charset="utf-8"`}
	req.Header.Set("User-Agent", "go-igd")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if (resp.StatusCode < 200 || resp.StatusCode > 299) && resp.StatusCode != http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, t.maxBody))
		return "", &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	r := io.Reader(resp.Body)
	if t.maxBody > 0 {
		r = io.LimitReader(r, t.maxBody)
	}
	r = decodeBody(r, resp.Header.Get("Content-Type"))
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeBody converts a body with an explicit non-UTF-8 charset to UTF-8.
// Bodies without a charset parameter are passed through untouched.
func decodeBody(r io.Reader, contentType string) io.Reader {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r
	}
	label := params["charset"]
	if label == "" || strings.EqualFold(label, "utf-8") {
		return r
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return r
	}
	return enc.NewDecoder().Reader(r)
}
