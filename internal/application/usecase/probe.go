package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/domain/catalog"
	"github.com/reelchat/reelchat/internal/domain/service"
	domainErrors "github.com/reelchat/reelchat/pkg/errors"
)

// Probe names.
const (
	ProbeAgent    = "agent"
	ProbeSearch   = "search"
	ProbeTrending = "trending"
	ProbeGenres   = "genres"
)

// Fixed probe inputs.
const (
	ProbeAgentPrompt = "Show me some trending movies"
	ProbeSearchQuery = "Avatar"
)

// ErrInvalidProbe is the message for an unknown probe name.
const ErrInvalidProbe = "Invalid test parameter"

// AvailableProbes lists the probe names in display order.
var AvailableProbes = []string{ProbeAgent, ProbeSearch, ProbeTrending, ProbeGenres}

// GenreCache is implemented by catalogs that cache the genre list.
type GenreCache interface {
	InvalidateGenres()
}

// ProbeResult is the outcome of one diagnostic run.
type ProbeResult struct {
	Test     string      `json:"test"`
	Success  bool        `json:"success"`
	Response string      `json:"response,omitempty"`
	Result   interface{} `json:"result,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// ProbeUseCase runs the agent or a single catalog lookup outside of any
// conversation, to check the upstream wiring.
type ProbeUseCase struct {
	agent   Agent
	catalog catalog.Catalog
	logger  *zap.Logger
}

// NewProbeUseCase creates the diagnostics use-case.
func NewProbeUseCase(agent Agent, c catalog.Catalog, logger *zap.Logger) *ProbeUseCase {
	return &ProbeUseCase{
		agent:   agent,
		catalog: c,
		logger:  logger.With(zap.String("component", "probe")),
	}
}

// Run executes the named probe; an empty name means the agent probe.
// Upstream failures are reported in the result, not as an error. Only an
// unknown name returns an error.
func (uc *ProbeUseCase) Run(ctx context.Context, test string) (*ProbeResult, error) {
	test = ProbeName(test)
	ctx, traceID := service.EnsureTraceID(ctx)
	res := &ProbeResult{Test: test, Success: true}

	var err error
	switch test {
	case ProbeAgent:
		var out *service.AgentResult
		out, err = uc.agent.Run(ctx, []service.LLMMessage{{Role: "user", Content: ProbeAgentPrompt}})
		if err == nil {
			res.Response = out.FinalContent
		}
	case ProbeSearch:
		res.Result, err = uc.catalog.SearchMovies(ctx, catalog.SearchParams{Query: ProbeSearchQuery})
	case ProbeTrending:
		res.Result, err = uc.catalog.TrendingMovies(ctx, catalog.WindowWeek)
	case ProbeGenres:
		res.Result, err = uc.catalog.ListGenres(ctx)
	default:
		return nil, domainErrors.NewInvalidInputError(ErrInvalidProbe).WithTrace(traceID)
	}

	if err != nil {
		uc.logger.Warn("Probe failed",
			zap.String("test", test),
			zap.String("trace_id", traceID),
			zap.Error(err),
		)
		res.Success = false
		res.Error = err.Error()
	}
	return res, nil
}

// ProbeName resolves the requested test name; empty means the agent probe.
func ProbeName(test string) string {
	if test == "" {
		return ProbeAgent
	}
	return test
}

// RefreshGenres drops the cached genre list and loads it again.
func (uc *ProbeUseCase) RefreshGenres(ctx context.Context) (*catalog.GenreList, error) {
	if gc, ok := uc.catalog.(GenreCache); ok {
		gc.InvalidateGenres()
	}
	genres, err := uc.catalog.ListGenres(ctx)
	if err != nil {
		return genres, err
	}
	uc.logger.Info("Genre cache refreshed", zap.Int("genres", len(genres.Genres)))
	return genres, nil
}
