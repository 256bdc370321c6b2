// Package catalog defines the movie catalog the recommendation agent queries.
package catalog

import (
	"context"
	"strings"
)

// Result limits and defaults shared by every catalog implementation.
const (
	MaxResults      = 6
	DefaultOverview = "No description available."
	MinVoteCount    = 100
)

// Sort orders accepted by DiscoverMovies.
const (
	SortPopularity  = "popularity.desc"
	SortRating      = "vote_average.desc"
	SortReleaseDate = "release_date.desc"
)

// Trending windows.
const (
	WindowDay  = "day"
	WindowWeek = "week"
)

// MovieSummary is the normalized shape handed to the model.
type MovieSummary struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview"`
	ReleaseDate string   `json:"release_date"`
	VoteAverage float64  `json:"vote_average"`
	Genres      []string `json:"genres"`
}

// Genre is a catalog genre.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SearchParams filters a free-text search. Genre and MinRating are applied
// to the first page of results after the fact.
type SearchParams struct {
	Query     string
	Year      int
	Genre     string
	MinRating *float64
}

// DiscoverParams filters a catalog-side discover query.
type DiscoverParams struct {
	Genre     string
	Year      int
	MinRating float64
	SortBy    string
}

// SearchResult is returned by SearchMovies.
type SearchResult struct {
	Movies       []MovieSummary `json:"movies"`
	TotalResults int            `json:"total_results"`
}

// MovieList is returned by DiscoverMovies and TrendingMovies.
type MovieList struct {
	Movies []MovieSummary `json:"movies"`
}

// GenreList is returned by ListGenres.
type GenreList struct {
	Genres []Genre `json:"genres"`
}

// Catalog is a read-only movie database.
//
// On lookup failure every method returns the empty result shape together
// with a non-nil error, so callers that only care about data can ignore the
// error and still hand a well-formed value to the model.
type Catalog interface {
	SearchMovies(ctx context.Context, params SearchParams) (*SearchResult, error)
	DiscoverMovies(ctx context.Context, params DiscoverParams) (*MovieList, error)
	TrendingMovies(ctx context.Context, window string) (*MovieList, error)
	ListGenres(ctx context.Context) (*GenreList, error)
}

// EmptySearchResult returns the shape used when a search fails.
func EmptySearchResult() *SearchResult {
	return &SearchResult{Movies: []MovieSummary{}, TotalResults: 0}
}

// EmptyMovieList returns the shape used when discover or trending fails.
func EmptyMovieList() *MovieList {
	return &MovieList{Movies: []MovieSummary{}}
}

// EmptyGenreList returns the shape used when the genre list cannot be loaded.
func EmptyGenreList() *GenreList {
	return &GenreList{Genres: []Genre{}}
}

// ResolveGenreID matches free-text against the genre list. A genre matches
// when either string contains the other, ignoring case; the first match in
// list order wins.
func ResolveGenreID(genres []Genre, filter string) (int64, bool) {
	needle := strings.ToLower(strings.TrimSpace(filter))
	if needle == "" {
		return 0, false
	}
	for _, g := range genres {
		name := strings.ToLower(g.Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, needle) || strings.Contains(needle, name) {
			return g.ID, true
		}
	}
	return 0, false
}

// NormalizeSort returns sortBy if it is a supported order, else SortPopularity.
func NormalizeSort(sortBy string) string {
	switch sortBy {
	case SortPopularity, SortRating, SortReleaseDate:
		return sortBy
	default:
		return SortPopularity
	}
}

// NormalizeWindow returns window if it is day or week, else week.
func NormalizeWindow(window string) string {
	if window == WindowDay {
		return WindowDay
	}
	return WindowWeek
}

// GenreNames maps genre ids to names. Unknown ids are dropped.
func GenreNames(ids []int64, genres []Genre) []string {
	byID := make(map[int64]string, len(genres))
	for _, g := range genres {
		byID[g.ID] = g.Name
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := byID[id]; ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}
