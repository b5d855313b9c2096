// Package celql translates CEL predicates into query terms.
//
// A predicate is a CEL expression over a single document bound to the row
// identifier (default "row"). The compiler parses it with cel-go, walks the
// parsed AST and assembles the equivalent term with package reql. The result
// is always a one-parameter function:
//
//	row.age > 25 && row.status == "active"
//
// becomes
//
//	FUNC(MAKE_ARRAY(1), ALL(GT(GET_FIELD(VAR(1), "age"), 25), EQ(GET_FIELD(VAR(1), "status"), "active")))
//
// # Example
//
//	c := celql.New(celql.WithCaching(true))
//	term, err := c.Compile(`row.tags.exists(t, t == "go")`)
//
// # Concurrency
//
// A Compiler is safe for concurrent use. CompileBatch translates many
// predicates on a bounded worker pool.
package celql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/panjf2000/ants/v2"

	"github.com/sandrolain/goreql/pkg/cache"
	"github.com/sandrolain/goreql/pkg/metrics"
	"github.com/sandrolain/goreql/pkg/ql2"
	"github.com/sandrolain/goreql/pkg/reql"
)

const frontendName = "cel"

// Compiler translates CEL predicates into terms.
type Compiler struct {
	opts   Options
	logger *slog.Logger
	env    *cel.Env
	cache  *cache.Cache // non-nil when Caching is enabled
}

// Options configures compiler behavior.
type Options struct {
	// Caching enables caching of translated terms by source.
	Caching bool
	// CacheSize sets the maximum number of cached terms.
	// Only used when Caching is true and no explicit Cache is provided.
	// Defaults to 256.
	CacheSize int
	// Cache is a custom term cache. If non-nil, Caching is implicitly enabled.
	Cache *cache.Cache
	// MaxDepth limits the nesting depth of the translated expression.
	MaxDepth int
	// RowName is the identifier the document is bound to.
	RowName string
	// Symbols, when set, is shared by every translation. When nil each
	// translation numbers its variables from 1.
	Symbols reql.SymbolGenerator
	// FilterDefault, when set, is attached as the "default" optarg of the
	// FILTER terms built by CompileFilter.
	FilterDefault *bool
	// Debug enables debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
}

// Option configures a Compiler.
type Option func(*Options)

// WithCaching enables or disables caching of translated terms.
func WithCaching(enabled bool) Option {
	return func(opts *Options) {
		opts.Caching = enabled
	}
}

// WithCacheSize sets the maximum number of cached terms.
// Only effective when combined with WithCaching(true).
func WithCacheSize(size int) Option {
	return func(opts *Options) {
		opts.CacheSize = size
	}
}

// WithCache attaches an external term cache.
func WithCache(c *cache.Cache) Option {
	return func(opts *Options) {
		opts.Cache = c
	}
}

// WithMaxDepth sets the maximum expression depth.
func WithMaxDepth(depth int) Option {
	return func(opts *Options) {
		opts.MaxDepth = depth
	}
}

// WithRowName sets the identifier the document is bound to.
func WithRowName(name string) Option {
	return func(opts *Options) {
		opts.RowName = name
	}
}

// WithSymbols sets a shared symbol generator for variable ids.
func WithSymbols(gen reql.SymbolGenerator) Option {
	return func(opts *Options) {
		opts.Symbols = gen
	}
}

// WithFilterDefault sets the "default" optarg of generated FILTER terms.
func WithFilterDefault(v bool) Option {
	return func(opts *Options) {
		opts.FilterDefault = &v
	}
}

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) Option {
	return func(opts *Options) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// New creates a Compiler. It panics only if the CEL parser environment
// cannot be created, which does not depend on the options.
func New(opts ...Option) *Compiler {
	options := Options{
		MaxDepth: 64,
		RowName:  "row",
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.RowName == "" {
		options.RowName = "row"
	}

	var c *cache.Cache
	if options.Cache != nil {
		c = options.Cache
	} else if options.Caching {
		c = cache.New(options.CacheSize)
	}

	// Macros are cleared so has/map/filter/exists/all reach the translator as
	// plain calls instead of expanded comprehensions.
	env, err := cel.NewEnv(cel.ClearMacros())
	if err != nil {
		panic(fmt.Sprintf("celql: creating CEL environment: %v", err))
	}

	return &Compiler{
		opts:   options,
		logger: options.Logger,
		env:    env,
		cache:  c,
	}
}

// Cache returns the term cache, or nil if caching is disabled.
func (c *Compiler) Cache() *cache.Cache {
	return c.cache
}

// Options returns a copy of the compiler options.
func (c *Compiler) Options() Options {
	return c.opts
}

// Translate parses src and returns a builder owning the translated function.
// It never consults the cache.
func (c *Compiler) Translate(src string) (*reql.Builder, error) {
	term, err := c.translate(src)
	if err != nil {
		return nil, err
	}
	return reql.ExprTerm(term), nil
}

// Compile translates src into a FUNC term, using the cache when enabled.
// Every call returns a term owned by the caller.
func (c *Compiler) Compile(src string) (*ql2.Term, error) {
	if c.cache == nil {
		return c.translate(src)
	}
	term, hit, err := c.cache.GetOrBuild(src, func() (*ql2.Term, error) {
		return c.translate(src)
	})
	metrics.ObserveCache(hit)
	if hit && c.opts.Debug {
		c.logger.Debug("celql: cache hit", "source", src)
	}
	return term, err
}

// CompileFilter compiles src and wraps it as FILTER(TABLE(DB(db), table), fn).
// The DB term is omitted when db is empty. When table is empty the bare
// function is returned.
func (c *Compiler) CompileFilter(src, db, table string) (*ql2.Term, error) {
	fn, err := c.Compile(src)
	if err != nil || table == "" {
		return fn, err
	}
	return reql.Build(func() *reql.Builder {
		var seq *reql.Builder
		if db == "" {
			seq = reql.Call(ql2.TermTable, table)
		} else {
			seq = reql.DB(db).Table(table)
		}
		args := []interface{}{fn}
		if c.opts.FilterDefault != nil {
			args = append(args, reql.Optarg("default", *c.opts.FilterDefault))
		}
		return seq.Filter(args...)
	})
}

// Result is the outcome of one translation in a batch.
type Result struct {
	Source string
	Term   *ql2.Term
	Err    error
}

// CompileBatch compiles every source on a pool of at most workers
// goroutines. Results are returned in input order. Per-source failures,
// panics included, are reported in Result.Err; the returned error is set only
// when the pool cannot run or ctx is done before all sources were submitted.
func (c *Compiler) CompileBatch(ctx context.Context, sources []string, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]Result, len(sources))
	if len(sources) == 0 {
		return results, nil
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("celql: creating worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		i, src := i, src
		results[i].Source = src
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if v := recover(); v != nil {
					c.logger.Error("celql: batch translation panic", "source", src, "panic", v)
					results[i].Term = nil
					results[i].Err = fmt.Errorf("celql: translating %q: panic: %v", src, v)
				}
			}()
			results[i].Term, results[i].Err = c.Compile(src)
		}); err != nil {
			wg.Done()
			results[i].Err = fmt.Errorf("celql: submitting %q: %w", src, err)
		}
	}
	wg.Wait()
	return results, nil
}

// translate runs one uncached translation.
func (c *Compiler) translate(src string) (*ql2.Term, error) {
	start := time.Now()
	if c.opts.Debug {
		c.logger.Debug("celql: translating", "source", src)
	}

	term, err := c.run(src)
	metrics.ObserveTranslation(frontendName, time.Since(start).Seconds(), err)

	if err != nil {
		if c.opts.Debug {
			c.logger.Debug("celql: translation failed", "source", src, "error", err)
		}
		return nil, err
	}
	if c.opts.Debug {
		c.logger.Debug("celql: translated", "source", src, "nodes", term.Size(), "duration", time.Since(start))
	}
	return term, nil
}

func (c *Compiler) run(src string) (*ql2.Term, error) {
	parsed, iss := c.env.Parse(src)
	if iss != nil && iss.Err() != nil {
		pos := -1
		if errs := iss.Errors(); len(errs) > 0 {
			pos = errs[0].Location.Column()
		}
		return nil, ql2.NewError(ql2.ErrCELSyntax, iss.Err().Error(), pos)
	}

	gen := c.opts.Symbols
	if gen == nil {
		gen = &reql.Counter{}
	}
	native := parsed.NativeRep()
	tr := &translator{
		info:     native.SourceInfo(),
		gen:      gen,
		scope:    map[string]reql.Var{},
		maxDepth: c.opts.MaxDepth,
	}

	var terr error
	term, err := reql.Build(func() *reql.Builder {
		row := reql.NewVar(tr.gen)
		tr.scope[c.opts.RowName] = row
		body, err := tr.expr(native.Expr(), 0)
		if err != nil {
			terr = err
			return reql.Null()
		}
		return reql.Fun1(row, body)
	})
	if terr != nil {
		return nil, terr
	}
	return term, err
}
