package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/catalog/status"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/dlogger"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 200
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Option configures an HTTP catalog client
type Option func(*httpCatalog)

// Collection restricts discovery to a collection short name
func Collection(shortName string) Option {
	return func(c *httpCatalog) {
		c.collection = shortName
	}
}

// Filter installs a granule eligibility filter applied before sorting and
// truncation
func Filter(f GranuleFilter) Option {
	return func(c *httpCatalog) {
		c.filter = f
	}
}

// HTTPClient overrides the underlying http client
func HTTPClient(client *http.Client) Option {
	return func(c *httpCatalog) {
		if client != nil {
			c.client = client
		}
	}
}

// PageSize tunes how many records are requested per page
func PageSize(n int) Option {
	return func(c *httpCatalog) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// Logger injects a logging facility into the catalog client
func Logger(l *zap.Logger) Option {
	return func(c *httpCatalog) {
		if l != nil {
			c.l = l
		}
	}
}

// New builds a catalog client against a CMR style granule search endpoint
func New(baseURL string, opts ...Option) Catalog {
	c := &httpCatalog{
		base:     baseURL,
		client:   &http.Client{Timeout: defaultTimeout},
		pageSize: defaultPageSize,
		l:        dlogger.MustGetLogger(dlogger.LogLevelInfo),
	}
	for _, apply := range opts {
		apply(c)
	}
	return c
}

type httpCatalog struct {
	base       string
	collection string
	client     *http.Client
	filter     GranuleFilter
	pageSize   int
	l          *zap.Logger
}

// granuleRecord is the wire format of one catalog entry
type granuleRecord struct {
	ID        string `json:"id"`
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`
	SourceURI string `json:"source_uri"`
	Size      int64  `json:"size"`
}

type granulePage struct {
	Items []granuleRecord `json:"items"`
	Next  string          `json:"next,omitempty"`
}

func (c *httpCatalog) Discover(ctx context.Context, after time.Time, limit int) (model.GranuleDescriptors, error) {
	raw := make(model.GranuleDescriptors, 0, c.pageSize)
	token := ""
	for {
		page, err := c.fetchPage(ctx, after, token)
		if err != nil {
			return nil, err
		}
		for _, rec := range page.Items {
			g, err := rec.toModel()
			if err != nil {
				c.l.Warn("dropping malformed catalog record",
					zap.String("granule_id", rec.ID), zap.Error(err))
				continue
			}
			raw = append(raw, g)
		}
		if page.Next == "" {
			break
		}
		// stop paging once the eligible set, after cutoff, filter and dedupe,
		// satisfies the limit
		if limit > 0 && len(prepare(raw, after, c.filter, limit)) >= limit {
			break
		}
		token = page.Next
	}

	granules := prepare(raw, after, c.filter, limit)
	c.l.Info("discovered granules",
		zap.Time("after", after),
		zap.Int("raw", len(raw)),
		zap.Int("eligible", len(granules)))
	return granules, nil
}

func (c *httpCatalog) fetchPage(ctx context.Context, after time.Time, token string) (*granulePage, error) {
	q := url.Values{}
	q.Set("updated_after", after.UTC().Format(time.RFC3339))
	q.Set("page_size", strconv.Itoa(c.pageSize))
	if c.collection != "" {
		q.Set("short_name", c.collection)
	}
	if token != "" {
		q.Set("page_token", token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/granules?"+q.Encode(), nil)
	if err != nil {
		return nil, status.ErrCatalogRequest.Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, status.ErrCatalogUnavailable.WrapWithLog(c.l, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, status.ErrCatalogUnavailable.WrapMessage("catalog returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, status.ErrCatalogRequest.WrapMessage("catalog returned status %d", resp.StatusCode)
	}

	var page granulePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, status.ErrCatalogUnavailable.WrapMessage("decoding catalog response: %v", err)
	}
	return &page, nil
}

func (r granuleRecord) toModel() (model.GranuleDescriptor, error) {
	if r.ID == "" || r.SourceURI == "" {
		return model.GranuleDescriptor{}, fmt.Errorf("record missing id or source uri")
	}
	start, err := time.Parse(time.RFC3339, r.TimeStart)
	if err != nil {
		return model.GranuleDescriptor{}, fmt.Errorf("parsing time_start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, r.TimeEnd)
	if err != nil {
		return model.GranuleDescriptor{}, fmt.Errorf("parsing time_end: %w", err)
	}
	return model.GranuleDescriptor{
		ID:        r.ID,
		TimeStart: start.UTC(),
		TimeEnd:   end.UTC(),
		SourceURI: r.SourceURI,
		Size:      r.Size,
	}, nil
}
