// Package streetview is a thin client for the Google Street View Static API.
// It translates parameters, performs a single GET per call and hands the
// response back; there is no caching and no retry policy.
package streetview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
)

const (
	// DefaultBaseURL is the imagery endpoint; the metadata endpoint is a
	// sibling path below it.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/streetview"

	DefaultSize   = "600x400"
	DefaultFOV    = 90
	DefaultRadius = 50

	SourceDefault = "default"
	SourceOutdoor = "outdoor"
)

// maxBodySize bounds how much of a response body is read. Street View
// renderings top out well below this.
const maxBodySize = 16 * 1024 * 1024

// Client issues requests against the Street View API. The API key is
// injected at construction rather than read from the environment.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a different imagery endpoint. Tests use
// this to target a local server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidInput)
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ImageOptions control the rendered image. Zero values mean "use the API
// default" and are filled in before the request goes out.
type ImageOptions struct {
	Size    string // "widthxheight", e.g. "600x400"
	Heading int    // degrees relative to true north, 0-360
	Pitch   int    // degrees relative to the camera vehicle, -90 to 90
	FOV     int    // field of view in degrees, 10-120
	Radius  int    // search radius in meters; dropped for pano lookups
	Source  string // "default" or "outdoor"
}

func (o ImageOptions) withDefaults() ImageOptions {
	if o.Size == "" {
		o.Size = DefaultSize
	}
	if o.FOV == 0 {
		o.FOV = DefaultFOV
	}
	if o.Radius == 0 {
		o.Radius = DefaultRadius
	}
	if o.Source == "" {
		o.Source = SourceDefault
	}
	return o
}

func (o ImageOptions) validate() error {
	if _, _, err := parseSize(o.Size); err != nil {
		return err
	}
	if o.Heading < 0 || o.Heading > 360 {
		return fmt.Errorf("%w: heading must be 0-360, got %d", ErrInvalidInput, o.Heading)
	}
	if o.Pitch < -90 || o.Pitch > 90 {
		return fmt.Errorf("%w: pitch must be -90 to 90, got %d", ErrInvalidInput, o.Pitch)
	}
	if o.FOV < 10 || o.FOV > 120 {
		return fmt.Errorf("%w: fov must be 10-120, got %d", ErrInvalidInput, o.FOV)
	}
	if o.Radius < 0 {
		return fmt.Errorf("%w: radius must not be negative, got %d", ErrInvalidInput, o.Radius)
	}
	return validateSource(o.Source)
}

func parseSize(size string) (int, int, error) {
	parts := strings.SplitN(size, "x", 2)
	if len(parts) == 2 {
		w, werr := strconv.Atoi(parts[0])
		h, herr := strconv.Atoi(parts[1])
		if werr == nil && herr == nil && w > 0 && h > 0 {
			return w, h, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: size must be \"widthxheight\", got %q", ErrInvalidInput, size)
}

func validateSource(source string) error {
	if source != SourceDefault && source != SourceOutdoor {
		return fmt.Errorf("%w: source must be %q or %q, got %q", ErrInvalidInput, SourceDefault, SourceOutdoor, source)
	}
	return nil
}

// MetadataOptions control panorama search for metadata lookups.
type MetadataOptions struct {
	Radius int
	Source string
}

func (o MetadataOptions) withDefaults() MetadataOptions {
	if o.Radius == 0 {
		o.Radius = DefaultRadius
	}
	if o.Source == "" {
		o.Source = SourceDefault
	}
	return o
}

// Image is a fetched Street View rendering.
type Image struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Metadata mirrors the upstream metadata document. Raw holds the body as
// received so callers can pass it through unmodified.
type Metadata struct {
	Status    string  `json:"status"`
	Copyright string  `json:"copyright,omitempty"`
	Date      string  `json:"date,omitempty"`
	PanoID    string  `json:"pano_id,omitempty"`
	Location  *LatLng `json:"location,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// FetchImage performs one GET against the imagery endpoint. A non-200 status
// fails with *StatusError; a 200 whose content type is not image/* or whose
// body does not decode fails with ErrNotImage.
func (c *Client) FetchImage(ctx context.Context, loc Location, opts ImageOptions) (*Image, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("size", opts.Size)
	q.Set("heading", strconv.Itoa(opts.Heading))
	q.Set("pitch", strconv.Itoa(opts.Pitch))
	q.Set("fov", strconv.Itoa(opts.FOV))
	q.Set("radius", strconv.Itoa(opts.Radius))
	q.Set("source", opts.Source)
	q.Set("return_error_code", "true")
	q.Set("key", c.apiKey)
	loc.apply(q)

	body, contentType, err := c.get(ctx, c.baseURL, q)
	if err != nil {
		return nil, fmt.Errorf("error fetching Street View image: %w", err)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: got content-type %q", ErrNotImage, contentType)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: body does not decode: %v", ErrNotImage, err)
	}
	return &Image{
		Data:        body,
		ContentType: contentType,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

// FetchMetadata performs one GET against the metadata endpoint and parses the
// JSON body. A non-200 status fails with *StatusError.
func (c *Client) FetchMetadata(ctx context.Context, loc Location, opts MetadataOptions) (*Metadata, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if err := validateSource(opts.Source); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("radius", strconv.Itoa(opts.Radius))
	q.Set("source", opts.Source)
	q.Set("key", c.apiKey)
	loc.apply(q)

	body, _, err := c.get(ctx, c.baseURL+"/metadata", q)
	if err != nil {
		return nil, fmt.Errorf("error fetching Street View metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("error parsing metadata response: %w", err)
	}
	meta.Raw = json.RawMessage(body)
	return &meta, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values) (body []byte, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &StatusError{Code: resp.StatusCode}
	}
	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("error reading response body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
