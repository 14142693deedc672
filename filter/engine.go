package filter

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/fcchbjm/adfilter/filterlist"
	"github.com/fcchbjm/adfilter/rules"
)

// EngineConfig is the configuration of an [Engine].
type EngineConfig struct {
	// Logger is used to log the reloads.  It must not be nil.
	Logger *slog.Logger

	// Storage is the storage with the rules.  It must not be nil.
	Storage *filterlist.RuleStorage
}

// Engine is the filtering engine for web requests.  It combines the network
// and the cosmetic rules.  It's safe for concurrent use.
type Engine struct {
	logger   *slog.Logger
	snapshot atomic.Pointer[engineSnapshot]
}

// engineSnapshot is an immutable set of rules of an [Engine].
type engineSnapshot struct {
	network  *NetworkEngine
	cosmetic *CosmeticEngine
}

// NewEngine returns a new engine with the rules of c.Storage.
func NewEngine(ctx context.Context, c *EngineConfig) (e *Engine, err error) {
	e = &Engine{
		logger: c.Logger,
	}

	err = e.Reload(ctx, c.Storage)
	if err != nil {
		return nil, err
	}

	return e, nil
}

// Reload replaces the rules of the engine with the ones of s.  The matches
// that are already running finish with the previous rules.  The caller owns
// the previous storage and may close it once they're done.
func (e *Engine) Reload(ctx context.Context, s *filterlist.RuleStorage) (err error) {
	network, err := NewNetworkEngine(ctx, s)
	if err != nil {
		return fmt.Errorf("building network engine: %w", err)
	}

	cosmetic, err := NewCosmeticEngine(ctx, s)
	if err != nil {
		return fmt.Errorf("building cosmetic engine: %w", err)
	}

	e.snapshot.Store(&engineSnapshot{
		network:  network,
		cosmetic: cosmetic,
	})

	e.logger.DebugContext(
		ctx,
		"rules loaded",
		"network", network.RulesCount(),
		"cosmetic", cosmetic.RulesCount(),
	)

	return nil
}

// MatchRequest returns the result of matching req.  The rules matching the
// page that initiated the request are used to find the document-level
// allowlist rules.
func (e *Engine) MatchRequest(ctx context.Context, req *rules.Request) (res *MatchingResult) {
	snap := e.snapshot.Load()

	matched := snap.network.MatchAll(ctx, req)

	var sourceRules []*rules.NetworkRule
	if req.SourceURL != "" {
		sourceReq := rules.NewRequest(req.SourceURL, "", rules.TypeDocument)
		sourceRules = snap.network.MatchAll(ctx, sourceReq)
	}

	return NewMatchingResult(matched, sourceRules)
}

// GetCosmeticResult returns the cosmetic rules for the page of req enabled by
// opt.  opt is usually the result of [MatchingResult.GetCosmeticOption] for
// the document request of the page.
func (e *Engine) GetCosmeticResult(req *rules.Request, opt CosmeticOption) (res *CosmeticResult) {
	return e.snapshot.Load().cosmetic.Match(req, opt)
}
