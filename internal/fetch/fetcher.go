package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"scanmap.klederson.com/internal/config"
	"scanmap.klederson.com/internal/geo"
)

// Kind classifies a failed fetch.
type Kind int

const (
	Unavailable Kind = iota // transport error, timeout or bad status
	ParseError              // body is not a feature collection
)

func (k Kind) String() string {
	if k == ParseError {
		return "parse error"
	}
	return "unavailable"
}

var (
	ErrUnavailable = errors.New("locations unavailable")
	ErrParse       = errors.New("malformed locations")
)

// Error is returned by Fetch. It matches ErrUnavailable or ErrParse with errors.Is.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Kind == Unavailable
	case ErrParse:
		return e.Kind == ParseError
	}
	return false
}

// Fetcher retrieves the current scan locations from a location server.
type Fetcher struct {
	url    string
	client *http.Client
}

// New creates a Fetcher for url. A zero timeout uses config.FetchTimeout.
func New(url string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = config.FetchTimeout
	}
	return &Fetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// URL returns the polled endpoint.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch issues one GET and decodes the response. It never retries.
func (f *Fetcher) Fetch(ctx context.Context) (geo.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return geo.Snapshot{}, &Error{Kind: Unavailable, Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return geo.Snapshot{}, &Error{Kind: Unavailable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return geo.Snapshot{}, &Error{
			Kind: Unavailable,
			Err:  fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(b))),
		}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxBodyBytes))
	if err != nil {
		return geo.Snapshot{}, &Error{Kind: Unavailable, Err: err}
	}

	snap, err := Decode(b)
	if err != nil {
		return geo.Snapshot{}, &Error{Kind: ParseError, Err: err}
	}
	return snap, nil
}

// Decode splits a feature collection into ordinary points and the last
// location. When several features carry isLast the final one wins.
func Decode(b []byte) (geo.Snapshot, error) {
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return geo.Snapshot{}, err
	}

	snap := geo.Snapshot{Points: make([]geo.Point, 0, len(fc.Features))}
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		p := geo.FromOrb(pt)
		if isLast, _ := f.Properties["isLast"].(bool); isLast {
			snap.Last = &p
			continue
		}
		snap.Points = append(snap.Points, p)
	}
	return snap, nil
}
