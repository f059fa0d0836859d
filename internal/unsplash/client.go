// Package unsplash searches and downloads photos from the Unsplash API.
package unsplash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/kamusis/imgsearch/internal/apperr"
)

const service = "unsplash"

// MaxPerPage is the largest page size the search endpoint accepts.
const MaxPerPage = 30

// NoDescription is used when a photo carries neither a description nor alt text.
const NoDescription = "no description"

// Config contains the resolved client configuration.
type Config struct {
	AccessKey         string
	BaseURL           string
	Orientation       string
	Timeout           time.Duration
	RequestsPerSecond float64
	Logger            logrus.FieldLogger
}

// Photo is one search hit.
type Photo struct {
	ID               string
	Description      string
	RegularURL       string
	SmallURL         string
	ThumbURL         string
	Photographer     string
	PhotographerURL  string
	DownloadLocation string
}

// Client talks to the Unsplash REST API.
type Client struct {
	accessKey   string
	baseURL     string
	orientation string
	httpClient  *http.Client
	limiter     *rate.Limiter
	log         logrus.FieldLogger
}

type searchResponse struct {
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
	Results    []apiPhoto `json:"results"`
}

type apiPhoto struct {
	ID             string `json:"id"`
	Description    string `json:"description"`
	AltDescription string `json:"alt_description"`
	URLs           struct {
		Regular string `json:"regular"`
		Small   string `json:"small"`
		Thumb   string `json:"thumb"`
	} `json:"urls"`
	Links struct {
		DownloadLocation string `json:"download_location"`
	} `json:"links"`
	User struct {
		Name  string `json:"name"`
		Links struct {
			HTML string `json:"html"`
		} `json:"links"`
	} `json:"user"`
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.AccessKey) == "" {
		return nil, &apperr.ConfigError{Key: "UNSPLASH_ACCESS_KEY", Problem: "not configured"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.unsplash.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		accessKey:   strings.TrimSpace(cfg.AccessKey),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		orientation: cfg.Orientation,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(limit, 1),
		log:         cfg.Logger,
	}, nil
}

// SearchPhotos runs one page of a photo search. perPage is capped at
// MaxPerPage.
func (c *Client) SearchPhotos(ctx context.Context, query string, perPage, page int) ([]Photo, int, error) {
	if strings.TrimSpace(query) == "" {
		return nil, 0, fmt.Errorf("search query is empty")
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	if c.orientation != "" {
		q.Set("orientation", c.orientation)
	}

	resp, err := c.get(ctx, c.baseURL+"/search/photos?"+q.Encode(), true, "search")
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var parsed searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(&parsed); err != nil {
		return nil, 0, &apperr.ProviderError{Service: service, Op: "search", StatusCode: resp.StatusCode, Err: fmt.Errorf("cannot parse search response: %w", err)}
	}

	out := make([]Photo, 0, len(parsed.Results))
	for _, p := range parsed.Results {
		out = append(out, toPhoto(p))
	}
	return out, parsed.TotalPages, nil
}

func toPhoto(p apiPhoto) Photo {
	desc := strings.TrimSpace(p.Description)
	if desc == "" {
		desc = strings.TrimSpace(p.AltDescription)
	}
	if desc == "" {
		desc = NoDescription
	}
	return Photo{
		ID:               p.ID,
		Description:      desc,
		RegularURL:       p.URLs.Regular,
		SmallURL:         p.URLs.Small,
		ThumbURL:         p.URLs.Thumb,
		Photographer:     p.User.Name,
		PhotographerURL:  p.User.Links.HTML,
		DownloadLocation: p.Links.DownloadLocation,
	}
}

// Download streams the photo at rawURL to dest. The file is written to a
// temp sibling first so an interrupted download never leaves a partial file.
func (c *Client) Download(ctx context.Context, rawURL, dest string) error {
	resp, err := c.get(ctx, rawURL, false, "download")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("cannot create download dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".part-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &apperr.ProviderError{Service: service, Op: "download", Err: apperr.Transport(service, err)}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cannot move download into place: %w", err)
	}
	return nil
}

// TrackDownload reports a download to Unsplash for usage accounting.
func (c *Client) TrackDownload(ctx context.Context, downloadLocation string) error {
	if downloadLocation == "" {
		return nil
	}
	resp, err := c.get(ctx, downloadLocation, true, "track")
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// get performs a paced GET and maps failures to apperr kinds. On success the
// caller owns the response body.
func (c *Client) get(ctx context.Context, rawURL string, auth bool, op string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperr.Transport(service, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &apperr.ProviderError{Service: service, Op: op, Err: err}
	}
	if auth {
		req.Header.Set("Authorization", "Client-ID "+c.accessKey)
		req.Header.Set("Accept-Version", "v1")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		terr := apperr.Transport(service, err)
		var ne *apperr.NetworkError
		if errors.As(terr, &ne) {
			return nil, ne
		}
		return nil, &apperr.ProviderError{Service: service, Op: op, Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
	return nil, statusError(op, resp.StatusCode, strings.TrimSpace(string(body)))
}

func statusError(op string, status int, detail string) error {
	switch status {
	case http.StatusUnauthorized:
		return &apperr.AuthError{Service: service, Detail: detail}
	case http.StatusForbidden, http.StatusTooManyRequests:
		return &apperr.RateLimitError{Service: service, Detail: detail}
	}
	return &apperr.ProviderError{Service: service, Op: op, StatusCode: status, Err: errors.New(detail)}
}
