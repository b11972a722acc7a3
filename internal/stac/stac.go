// Package stac discovers Overture Maps releases from the public STAC
// catalog. Only the catalog's child links matter here; each one points
// at a per-release sub-catalog and its href carries the release id
// (e.g. "./2026-06-25.0/catalog.json").
package stac

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	gazerrors "github.com/overture-tools/gazetteer/internal/errors"
)

// DefaultCatalogURL is the public Overture Maps STAC catalog.
const DefaultCatalogURL = "https://stac.overturemaps.org/catalog.json"

const defaultTimeout = 30 * time.Second

type catalog struct {
	Links []link `json:"links"`
}

type link struct {
	Rel    string `json:"rel"`
	Href   string `json:"href"`
	Latest bool   `json:"latest"`
}

// Client fetches release information from a STAC catalog.
type Client struct {
	catalogURL string
	http       *http.Client
}

// NewClient returns a Client for the given catalog URL. An empty URL
// selects the public Overture catalog; a zero timeout selects 30s.
func NewClient(catalogURL string, timeout time.Duration) *Client {
	if catalogURL == "" {
		catalogURL = DefaultCatalogURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		catalogURL: catalogURL,
		http:       &http.Client{Timeout: timeout},
	}
}

// Latest returns the release id the catalog marks as latest.
func (c *Client) Latest(ctx context.Context) (string, error) {
	cat, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	for _, l := range cat.Links {
		if l.Rel == "child" && l.Latest {
			if v := releaseFromHref(l.Href); v != "" {
				return v, nil
			}
		}
	}
	return "", gazerrors.New(gazerrors.ErrCodeCatalogFetch,
		"catalog has no link marked latest", nil)
}

// Releases returns every release id in the catalog, newest first.
// Release ids are date-prefixed, so a reverse lexical sort orders them.
func (c *Client) Releases(ctx context.Context) ([]string, error) {
	cat, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	var releases []string
	for _, l := range cat.Links {
		if l.Rel != "child" {
			continue
		}
		if v := releaseFromHref(l.Href); v != "" {
			releases = append(releases, v)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(releases)))
	return releases, nil
}

func (c *Client) fetch(ctx context.Context) (*catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.catalogURL, nil)
	if err != nil {
		return nil, gazerrors.New(gazerrors.ErrCodeCatalogFetch,
			fmt.Sprintf("bad catalog URL %s", c.catalogURL), err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, gazerrors.New(gazerrors.ErrCodeCatalogFetch,
			"cannot reach STAC catalog", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, gazerrors.New(gazerrors.ErrCodeCatalogFetch,
			fmt.Sprintf("STAC catalog returned %s", resp.Status), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, gazerrors.New(gazerrors.ErrCodeCatalogFetch,
			"cannot read STAC catalog", err)
	}
	var cat catalog
	if err := json.Unmarshal(body, &cat); err != nil {
		return nil, gazerrors.New(gazerrors.ErrCodeCatalogFetch,
			"cannot parse STAC catalog", err)
	}
	return &cat, nil
}

// releaseFromHref extracts the release id from a child link href such
// as "./2026-06-25.0/catalog.json". Non-release children (theme pages,
// docs) do not start with a digit and are ignored.
func releaseFromHref(href string) string {
	href = strings.TrimPrefix(href, "./")
	seg, _, _ := strings.Cut(href, "/")
	if seg == "" || seg[0] < '0' || seg[0] > '9' {
		return ""
	}
	return seg
}
