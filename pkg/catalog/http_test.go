package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/catalog/status"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/dlogger"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
)

func testLogger() Option {
	return Logger(dlogger.MustGetLogger(dlogger.LogLevelNone))
}

func granuleJSON(id string, start time.Time) string {
	return fmt.Sprintf(`{"id":%q,"time_start":%q,"time_end":%q,"source_uri":"s3://podaac/%s.nc","size":1024}`,
		id, start.Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339), id)
}

func TestDiscover(t *testing.T) {
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/granules", r.URL.Path)
		assert.Equal(t, "MUR-JPL-L4-GLOB-v4.1", r.URL.Query().Get("short_name"))
		assert.NotEmpty(t, r.URL.Query().Get("updated_after"))

		// out of order and duplicated records, the client must normalize
		fmt.Fprintf(w, `{"items":[%s,%s,%s,%s]}`,
			granuleJSON("g2", base.Add(time.Hour)),
			granuleJSON("g1", base),
			granuleJSON("g3", base.Add(2*time.Hour)),
			granuleJSON("g1", base),
		)
	}))
	defer server.Close()

	c := New(server.URL, Collection("MUR-JPL-L4-GLOB-v4.1"), testLogger())
	granules, err := c.Discover(context.Background(), base.Add(-time.Hour), 0)
	require.NoError(t, err)

	require.Len(t, granules, 3)
	assert.Equal(t, "g1", granules[0].ID)
	assert.Equal(t, "g2", granules[1].ID)
	assert.Equal(t, "g3", granules[2].ID)
	assert.Equal(t, base, granules[0].TimeStart)
	assert.Equal(t, "s3://podaac/g1.nc", granules[0].SourceURI)
}

func TestDiscoverLimit(t *testing.T) {
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := make([]string, 0, 10)
		for i := 0; i < 10; i++ {
			items = append(items, granuleJSON(fmt.Sprintf("g%02d", i), base.Add(time.Duration(i)*time.Hour)))
		}
		fmt.Fprintf(w, `{"items":[%s]}`, strings.Join(items, ","))
	}))
	defer server.Close()

	c := New(server.URL, testLogger())
	granules, err := c.Discover(context.Background(), base.Add(-time.Hour), 3)
	require.NoError(t, err)
	require.Len(t, granules, 3)
	assert.Equal(t, "g00", granules[0].ID)
	assert.Equal(t, "g02", granules[2].ID)
}

func TestDiscoverPaging(t *testing.T) {
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	var calls int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Query().Get("page_token") {
		case "":
			fmt.Fprintf(w, `{"items":[%s],"next":"page2"}`, granuleJSON("g1", base))
		case "page2":
			fmt.Fprintf(w, `{"items":[%s]}`, granuleJSON("g2", base.Add(time.Hour)))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	c := New(server.URL, testLogger())
	granules, err := c.Discover(context.Background(), base.Add(-time.Hour), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, granules, 2)
}

func TestDiscoverFilter(t *testing.T) {
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"items":[%s,%s]}`,
			granuleJSON("keep", base),
			granuleJSON("drop", base.Add(time.Hour)),
		)
	}))
	defer server.Close()

	c := New(server.URL, testLogger(), Filter(func(g model.GranuleDescriptor) bool {
		return g.ID != "drop"
	}))
	granules, err := c.Discover(context.Background(), base.Add(-time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, granules, 1)
	assert.Equal(t, "keep", granules[0].ID)
}

func TestDiscoverStaleCoverage(t *testing.T) {
	tip := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// a reprocessed granule carries a recent update time over old temporal
		// coverage: the server-side updated_after query lets it through
		fmt.Fprintf(w, `{"items":[%s,%s,%s]}`,
			granuleJSON("reprocessed", tip.Add(-2*time.Hour)),
			granuleJSON("boundary", tip),
			granuleJSON("fresh", tip.Add(time.Hour)),
		)
	}))
	defer server.Close()

	c := New(server.URL, testLogger())
	granules, err := c.Discover(context.Background(), tip, 0)
	require.NoError(t, err)

	// coverage at or before the cutoff is dropped client-side
	require.Len(t, granules, 1)
	assert.Equal(t, "fresh", granules[0].ID)
}

func TestDiscoverPagesUntilEligible(t *testing.T) {
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	var calls int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Query().Get("page_token") {
		case "":
			// plenty of raw volume, none of it eligible
			items := make([]string, 0, 6)
			for i := 0; i < 6; i++ {
				items = append(items, granuleJSON(fmt.Sprintf("nrt-%d", i), base.Add(time.Duration(i)*time.Minute)))
			}
			fmt.Fprintf(w, `{"items":[%s],"next":"page2"}`, strings.Join(items, ","))
		case "page2":
			fmt.Fprintf(w, `{"items":[%s,%s]}`,
				granuleJSON("final-1", base.Add(time.Hour)),
				granuleJSON("final-2", base.Add(2*time.Hour)),
			)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	c := New(server.URL, testLogger(), Filter(func(g model.GranuleDescriptor) bool {
		return !strings.HasPrefix(g.ID, "nrt-")
	}))
	granules, err := c.Discover(context.Background(), base.Add(-time.Hour), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, granules, 2)
	assert.Equal(t, "final-1", granules[0].ID)
	assert.Equal(t, "final-2", granules[1].ID)
}

func TestDiscoverMalformedRecords(t *testing.T) {
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"items":[%s,{"id":"busted","time_start":"not a time"},{"time_start":"2026-08-29T09:00:00Z"}]}`,
			granuleJSON("g1", base))
	}))
	defer server.Close()

	c := New(server.URL, testLogger())
	granules, err := c.Discover(context.Background(), base.Add(-time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, granules, 1)
	assert.Equal(t, "g1", granules[0].ID)
}

func TestDiscoverErrors(t *testing.T) {
	t.Run("5xx is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := New(server.URL, testLogger()).Discover(context.Background(), time.Time{}, 0)
		require.ErrorIs(t, err, status.ErrCatalogUnavailable)
	})

	t.Run("4xx is a request error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		_, err := New(server.URL, testLogger()).Discover(context.Background(), time.Time{}, 0)
		require.ErrorIs(t, err, status.ErrCatalogRequest)
	})

	t.Run("transport failure is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // refuse connections

		_, err := New(server.URL, testLogger()).Discover(context.Background(), time.Time{}, 0)
		require.ErrorIs(t, err, status.ErrCatalogUnavailable)
	})

	t.Run("garbage body is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>proxy error</html>")
		}))
		defer server.Close()

		_, err := New(server.URL, testLogger()).Discover(context.Background(), time.Time{}, 0)
		require.ErrorIs(t, err, status.ErrCatalogUnavailable)
	})
}
