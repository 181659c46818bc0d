package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fajarsembar01/home/internal/config"
)

const listingHTML = `<!doctype html>
<html>
<head>
  <title>Dijual Rumah Rungkut</title>
  <meta name="description" content="Rumah siap huni SHM">
  <script>var tracking = "harga 9M";</script>
</head>
<body>
  <nav>Beranda | Cari</nav>
  <h1>Rumah Minimalis</h1>
  <p>Harga 1.3M nego. LT 120 m2, KT 3+1.</p>
  <footer>Hak cipta</footer>
</body>
</html>`

func newTestFetcher(respectRobots bool) *Fetcher {
	return New(config.FetchConfig{
		UserAgent:     "home-test",
		TimeoutMs:     2000,
		RespectRobots: respectRobots,
		MaxBytes:      1 << 20,
	})
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
		case "/listing/1":
			if ua := r.Header.Get("User-Agent"); ua != "home-test" {
				t.Errorf("User-Agent = %q", ua)
			}
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(listingHTML))
		case "/private/2":
			w.Write([]byte(listingHTML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(true)

	t.Run("page is reduced to text", func(t *testing.T) {
		page, err := f.Fetch(context.Background(), srv.URL+"/listing/1")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if page.Title != "Dijual Rumah Rungkut" {
			t.Errorf("Title = %q", page.Title)
		}
		if page.Description != "Rumah siap huni SHM" {
			t.Errorf("Description = %q", page.Description)
		}
		if !strings.Contains(page.Text, "Harga 1.3M nego") {
			t.Errorf("Text missing body: %q", page.Text)
		}
		for _, unwanted := range []string{"tracking", "Beranda", "Hak cipta"} {
			if strings.Contains(page.Text, unwanted) {
				t.Errorf("Text contains %q: %q", unwanted, page.Text)
			}
		}
		if !strings.HasPrefix(page.Content(), "Dijual Rumah Rungkut\n\nRumah siap huni SHM\n\n") {
			t.Errorf("Content() = %q", page.Content())
		}
	})

	t.Run("robots disallow", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/private/2")
		if !errors.Is(err, ErrDisallowed) {
			t.Errorf("error = %v, want ErrDisallowed", err)
		}
	})

	t.Run("robots ignored when disabled", func(t *testing.T) {
		if _, err := newTestFetcher(false).Fetch(context.Background(), srv.URL+"/private/2"); err != nil {
			t.Errorf("Fetch() error = %v", err)
		}
	})

	t.Run("bad status", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/missing")
		if !errors.Is(err, ErrBadStatus) {
			t.Errorf("error = %v, want ErrBadStatus", err)
		}
	})
}

func TestFetch_InvalidURL(t *testing.T) {
	f := newTestFetcher(false)
	for _, raw := range []string{"", "ftp://example.com/x", "not a url", "https://"} {
		if _, err := f.Fetch(context.Background(), raw); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Fetch(%q) error = %v, want ErrInvalidURL", raw, err)
		}
	}
}

func TestCleanText(t *testing.T) {
	got := cleanText("a  \r\n\n\n\nb\t\n")
	if got != "a\n\nb" {
		t.Errorf("cleanText() = %q", got)
	}
}
