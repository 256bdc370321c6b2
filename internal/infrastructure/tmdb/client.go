// Package tmdb is a read-only client for The Movie Database v3 API.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/domain/catalog"
	"github.com/reelchat/reelchat/internal/domain/service"
	domainErrors "github.com/reelchat/reelchat/pkg/errors"
)

// Operation names used in logs and metrics.
const (
	OpSearch   = "search"
	OpDiscover = "discover"
	OpTrending = "trending"
	OpGenres   = "genres"
)

// Config configures the client.
type Config struct {
	BaseURL       string
	AccessToken   string
	Language      string
	Timeout       time.Duration
	GenreCacheTTL time.Duration
}

// FailureRecorder is notified of every failed catalog lookup.
type FailureRecorder interface {
	RecordCatalogFailure(op string)
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithFailureRecorder attaches a metrics sink for lookup failures.
func WithFailureRecorder(r FailureRecorder) Option {
	return func(c *Client) { c.failures = r }
}

// Client implements catalog.Catalog against TMDB.
type Client struct {
	baseURL  string
	token    string
	language string
	http     *http.Client
	genres   *genreCache
	failures FailureRecorder
	logger   *zap.Logger
}

var _ catalog.Catalog = (*Client)(nil)

// New creates a TMDB client.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.themoviedb.org/3"
	}
	language := cfg.Language
	if language == "" {
		language = "en-US"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:  baseURL,
		token:    cfg.AccessToken,
		language: language,
		http:     &http.Client{Timeout: timeout},
		genres:   newGenreCache(cfg.GenreCacheTTL, timeout),
		logger:   logger.With(zap.String("component", "tmdb")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wire types

type apiMovie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	GenreIDs    []int64 `json:"genre_ids"`
}

type apiMoviePage struct {
	Results      []apiMovie `json:"results"`
	TotalResults int        `json:"total_results"`
}

type apiGenres struct {
	Genres []catalog.Genre `json:"genres"`
}

// SearchMovies searches by free text. Genre and rating filters are applied to
// the first MaxResults hits of the first page.
func (c *Client) SearchMovies(ctx context.Context, params catalog.SearchParams) (*catalog.SearchResult, error) {
	q := url.Values{}
	q.Set("query", params.Query)
	q.Set("include_adult", "false")
	q.Set("page", "1")
	if params.Year != 0 {
		q.Set("year", strconv.Itoa(params.Year))
	}

	var page apiMoviePage
	if err := c.get(ctx, "/search/movie", q, &page); err != nil {
		return catalog.EmptySearchResult(), c.fail(ctx, OpSearch, err)
	}

	genres := c.genresForMapping(ctx)
	movies := firstN(page.Results, catalog.MaxResults)

	if params.Genre != "" {
		if id, ok := catalog.ResolveGenreID(genres, params.Genre); ok {
			movies = filterMovies(movies, func(m apiMovie) bool { return containsID(m.GenreIDs, id) })
		}
	}
	if params.MinRating != nil {
		floor := *params.MinRating
		movies = filterMovies(movies, func(m apiMovie) bool { return m.VoteAverage >= floor })
	}

	return &catalog.SearchResult{
		Movies:       summarize(movies, genres),
		TotalResults: page.TotalResults,
	}, nil
}

// DiscoverMovies runs a catalog-side filtered query.
func (c *Client) DiscoverMovies(ctx context.Context, params catalog.DiscoverParams) (*catalog.MovieList, error) {
	q := url.Values{}
	q.Set("include_adult", "false")
	q.Set("include_video", "false")
	q.Set("page", "1")
	q.Set("sort_by", catalog.NormalizeSort(params.SortBy))

	if params.Genre != "" {
		genres := c.genresForMapping(ctx)
		if id, ok := catalog.ResolveGenreID(genres, params.Genre); ok {
			q.Set("with_genres", strconv.FormatInt(id, 10))
		}
	}
	if params.Year != 0 {
		q.Set("year", strconv.Itoa(params.Year))
	}
	if params.MinRating != 0 {
		q.Set("vote_average.gte", strconv.FormatFloat(params.MinRating, 'f', -1, 64))
	}
	q.Set("vote_count.gte", strconv.Itoa(catalog.MinVoteCount))

	var page apiMoviePage
	if err := c.get(ctx, "/discover/movie", q, &page); err != nil {
		return catalog.EmptyMovieList(), c.fail(ctx, OpDiscover, err)
	}

	genres := c.genresForMapping(ctx)
	return &catalog.MovieList{Movies: summarize(firstN(page.Results, catalog.MaxResults), genres)}, nil
}

// TrendingMovies returns currently trending movies for the day or week.
func (c *Client) TrendingMovies(ctx context.Context, window string) (*catalog.MovieList, error) {
	path := "/trending/movie/" + catalog.NormalizeWindow(window)

	var page apiMoviePage
	if err := c.get(ctx, path, url.Values{}, &page); err != nil {
		return catalog.EmptyMovieList(), c.fail(ctx, OpTrending, err)
	}

	genres := c.genresForMapping(ctx)
	return &catalog.MovieList{Movies: summarize(firstN(page.Results, catalog.MaxResults), genres)}, nil
}

// ListGenres returns the canonical genre list, served from cache when fresh.
func (c *Client) ListGenres(ctx context.Context) (*catalog.GenreList, error) {
	genres, err := c.genres.get(ctx, c.fetchGenres)
	if err != nil {
		return catalog.EmptyGenreList(), c.fail(ctx, OpGenres, err)
	}
	out := make([]catalog.Genre, len(genres))
	copy(out, genres)
	return &catalog.GenreList{Genres: out}, nil
}

// InvalidateGenres drops the cached genre list; the next lookup refetches it.
func (c *Client) InvalidateGenres() {
	c.genres.invalidate()
	c.logger.Info("Genre cache invalidated")
}

func (c *Client) fetchGenres(ctx context.Context) ([]catalog.Genre, error) {
	var resp apiGenres
	if err := c.get(ctx, "/genre/movie/list", url.Values{}, &resp); err != nil {
		return nil, err
	}
	return resp.Genres, nil
}

// genresForMapping loads genres for name mapping. A failure degrades to no
// genre names; the movie lookup itself still succeeds.
func (c *Client) genresForMapping(ctx context.Context) []catalog.Genre {
	list, err := c.ListGenres(ctx)
	if err != nil {
		return nil
	}
	return list.Genres
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	q.Set("language", c.language)
	reqURL := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("TMDB request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("TMDB API error %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) fail(ctx context.Context, op string, err error) error {
	traceID := service.TraceIDFromContext(ctx)
	c.logger.Warn("Catalog lookup failed",
		zap.String("op", op),
		zap.String("trace_id", traceID),
		zap.Error(err),
	)
	if c.failures != nil {
		c.failures.RecordCatalogFailure(op)
	}
	return domainErrors.NewUpstreamUnavailableError("catalog "+op+" failed", err).WithTrace(traceID)
}

func summarize(movies []apiMovie, genres []catalog.Genre) []catalog.MovieSummary {
	out := make([]catalog.MovieSummary, 0, len(movies))
	for _, m := range movies {
		overview := m.Overview
		if overview == "" {
			overview = catalog.DefaultOverview
		}
		out = append(out, catalog.MovieSummary{
			ID:          m.ID,
			Title:       m.Title,
			Overview:    overview,
			ReleaseDate: m.ReleaseDate,
			VoteAverage: m.VoteAverage,
			Genres:      catalog.GenreNames(m.GenreIDs, genres),
		})
	}
	return out
}

func firstN(movies []apiMovie, n int) []apiMovie {
	if len(movies) > n {
		return movies[:n]
	}
	return movies
}

func filterMovies(movies []apiMovie, keep func(apiMovie) bool) []apiMovie {
	out := make([]apiMovie, 0, len(movies))
	for _, m := range movies {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
