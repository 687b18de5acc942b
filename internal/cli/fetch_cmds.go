package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/rshade/storecache/internal/cache"
	"github.com/rshade/storecache/internal/config"
	"github.com/rshade/storecache/internal/fetch"
)

// ErrEmptyManifest is returned when a warm manifest lists no requests.
var ErrEmptyManifest = errors.New("warm manifest has no requests")

// WarmRequest is one endpoint to pre-populate.
type WarmRequest struct {
	Path  string            `yaml:"path"`
	Key   string            `yaml:"key,omitempty"`
	TTL   string            `yaml:"ttl,omitempty"`
	Scope string            `yaml:"scope,omitempty"`
	Query map[string]string `yaml:"query,omitempty"`
}

// WarmManifest is the YAML document read by the warm command.
type WarmManifest struct {
	Requests []WarmRequest `yaml:"requests"`
}

// LoadWarmManifest reads and validates a warm manifest.
func LoadWarmManifest(path string) (*WarmManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading warm manifest: %w", err)
	}

	var manifest WarmManifest
	if err = yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing warm manifest %s: %w", path, err)
	}
	if len(manifest.Requests) == 0 {
		return nil, ErrEmptyManifest
	}
	for i, req := range manifest.Requests {
		if strings.TrimSpace(req.Path) == "" {
			return nil, fmt.Errorf("warm manifest request %d: path is required", i+1)
		}
		if _, err = parseTTLFlag(req.TTL); err != nil {
			return nil, fmt.Errorf("warm manifest request %d (%s): %w", i+1, req.Path, err)
		}
	}
	return &manifest, nil
}

// newFetchClient builds the REST client from the fetch section of cfg.
func newFetchClient(cfg config.FetchConfig) (*fetch.Client, error) {
	return fetch.NewClient(fetch.Options{
		BaseURL: cfg.BaseURL,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
	})
}

// fetchThrough returns the cached payload for req or fetches and caches it.
// fetched reports whether the producer ran.
func fetchThrough(
	ctx context.Context,
	m *cache.Manager,
	client *fetch.Client,
	req WarmRequest,
) (data json.RawMessage, key string, fetched bool, err error) {
	ttl, err := parseTTLFlag(req.TTL)
	if err != nil {
		return nil, "", false, err
	}

	key = req.Key
	if key == "" {
		if key, err = fetch.CacheKey(req.Path, req.Query, req.Scope); err != nil {
			return nil, "", false, err
		}
	}

	var ran atomic.Bool
	produce := client.Producer(req.Path, req.Query)
	data, err = cache.GetOrFetch[json.RawMessage](ctx, m, key, func(ctx context.Context) (json.RawMessage, error) {
		ran.Store(true)
		return produce(ctx)
	}, ttl)
	return data, key, ran.Load(), err
}

func newFetchCmd(s *session) *cobra.Command {
	var req WarmRequest

	cmd := &cobra.Command{
		Use:   "fetch PATH",
		Short: "GET a storefront endpoint through the cache",
		Long: `GET a storefront endpoint through the cache. A live cached response is
printed without contacting the API; otherwise the endpoint is fetched, cached
and printed. Relative paths are resolved against fetch.base_url.`,
		Example: `  storecache fetch /products
  storecache fetch /products --query category=shoes --query page=2
  storecache fetch /cart --scope customer-42 --ttl 30s
  storecache fetch https://api.example.com/v1/banners --key banners`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Path = args[0]

			client, err := newFetchClient(s.cfg.Fetch)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			start := time.Now()
			data, key, fetched, err := fetchThrough(ctx, s.cache(cmd), client, req)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", req.Path, err)
			}

			s.logger.Debug().Ctx(ctx).
				Str("path", req.Path).
				Str("key", key).
				Bool("cache_hit", !fetched).
				Dur("duration", time.Since(start)).
				Msg("fetch complete")

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Key, "key", "", "cache key (default: derived from path, query and scope)")
	cmd.Flags().StringVar(&req.TTL, "ttl", "", "TTL for the cached response (default: cache default)")
	cmd.Flags().StringVar(&req.Scope, "scope", "", "scope mixed into the derived key, e.g. a customer or locale")
	cmd.Flags().StringToStringVar(&req.Query, "query", nil, "query parameter as key=value (repeatable)")
	return cmd
}

func newWarmCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warm FILE",
		Short: "Pre-populate the cache from a YAML manifest",
		Long: `Pre-populate the cache from a YAML manifest of endpoints. Requests run
concurrently, bounded by fetch.concurrency; the first failure stops the run.

Manifest format:

  requests:
    - path: /products
      query: {category: shoes}
      ttl: 10m
    - path: /banners
      key: banners`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := LoadWarmManifest(args[0])
			if err != nil {
				return err
			}

			client, err := newFetchClient(s.cfg.Fetch)
			if err != nil {
				return err
			}

			fetched, cached, err := warm(cmd.Context(), s.cache(cmd), client, manifest, s.cfg.Fetch.Concurrency)
			if err != nil {
				return err
			}

			cmd.Printf("warmed %d entries (%d fetched, %d already cached)\n", fetched+cached, fetched, cached)
			return nil
		},
	}
	return cmd
}

// warm fetches every manifest request through the cache with at most
// concurrency requests in flight. Zero concurrency means unbounded.
func warm(
	ctx context.Context,
	m *cache.Manager,
	client *fetch.Client,
	manifest *WarmManifest,
	concurrency int,
) (fetched, cached int, err error) {
	var nFetched, nCached atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for _, req := range manifest.Requests {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, _, ran, err := fetchThrough(gctx, m, client, req)
			if err != nil {
				return fmt.Errorf("warming %s: %w", req.Path, err)
			}
			if ran {
				nFetched.Add(1)
			} else {
				nCached.Add(1)
			}
			return nil
		})
	}

	err = g.Wait()
	return int(nFetched.Load()), int(nCached.Load()), err
}
