// Package parser turns chat text into the integer it stands for.
//
// Plain literals are handled locally. Anything else is sent to a remote,
// sandboxed evaluator when one is configured. User text is never executed.
package parser

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"counter-bot/internal/sanitize"
	"counter-bot/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/text/width"
)

var literalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// 2^63 as a float64; values at or beyond it do not fit in an int64.
const int64Bound = 9223372036854775808.0

type Evaluator interface {
	Calculate(ctx context.Context, expression string) (float64, error)
}

type Budget struct {
	Requests int
	Window   time.Duration
}

type Parser struct {
	sanitizer *sanitize.Sanitizer
	evaluator Evaluator
	budget    Budget
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	windows map[string]*utils.SlidingWindow
}

// New builds a Parser. evaluator may be nil, in which case only literals parse.
func New(sanitizer *sanitize.Sanitizer, evaluator Evaluator, budget Budget, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sanitizer == nil {
		sanitizer = sanitize.New(sanitize.DefaultLimits(), logger)
	}
	return &Parser{
		sanitizer: sanitizer,
		evaluator: evaluator,
		budget:    budget,
		logger:    logger,
		now:       time.Now,
		windows:   make(map[string]*utils.SlidingWindow),
	}
}

// Parse returns the integer value of text, or false when none can be obtained.
func (p *Parser) Parse(ctx context.Context, guildID, text string) (int64, bool) {
	if p.sanitizer.IsSuspect(text) {
		return 0, false
	}

	text = width.Fold.String(sanitize.StripSpoilers(text))
	trimmed := strings.TrimSpace(text)
	if literalPattern.MatchString(trimmed) {
		return parseLiteral(trimmed)
	}

	if p.evaluator == nil || trimmed == "" {
		return 0, false
	}
	if !p.allow(guildID) {
		p.logger.Warn("evaluator budget exhausted", zap.String("guild_id", guildID))
		return 0, false
	}

	result, err := p.evaluator.Calculate(ctx, text)
	if err != nil {
		p.logger.Debug("expression evaluation failed", zap.String("guild_id", guildID), zap.Error(err))
		return 0, false
	}
	return toInteger(result)
}

func (p *Parser) allow(guildID string) bool {
	if p.budget.Requests <= 0 || p.budget.Window <= 0 {
		return true
	}
	return p.window(guildID).TryAdd(p.now(), p.budget.Requests)
}

// EvaluatorCalls reports how much of the guild's evaluator budget is spent in
// the current window.
func (p *Parser) EvaluatorCalls(guildID string) (used, limit int) {
	if p.budget.Requests <= 0 || p.budget.Window <= 0 {
		return 0, 0
	}
	return p.window(guildID).Count(p.now()), p.budget.Requests
}

func (p *Parser) window(guildID string) *utils.SlidingWindow {
	p.mu.Lock()
	defer p.mu.Unlock()
	window := p.windows[guildID]
	if window == nil {
		window = utils.NewSlidingWindow(p.budget.Window)
		p.windows[guildID] = window
	}
	return window
}

func parseLiteral(text string) (int64, bool) {
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return toInteger(value)
}

func toInteger(value float64) (int64, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	floored := math.Floor(value)
	if floored >= int64Bound || floored < -int64Bound {
		return 0, false
	}
	return int64(floored), true
}
