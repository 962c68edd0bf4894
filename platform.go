// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"log/slog"
	"runtime"

	"github.com/hashicorp/go-metrics"
)

// Platform is the process-wide configuration bound to a Runtime:
// a compute executor, a blocking executor, a failure reporter (the
// sink for causes that reach nowhere), and a supervisor hook.
// It is constructed once per Runtime and immutable thereafter.
type Platform struct {
	Compute       Executor
	Blocking      *BlockingPool
	ReportFailure func(Cause)
	Supervisor    Supervisor
}

// Supervisor observes fiber lifecycle transitions. Implementations
// must be safe for concurrent use and must not block: hooks run on
// fiber carrier threads.
type Supervisor interface {
	OnStart(f *Fiber)
	OnEnd(f *Fiber, ex Exit)
}

// config collects Runtime construction options.
type config struct {
	compute     Executor
	blocking    *BlockingPool
	parallelism int
	reporter    func(Cause)
	logger      *slog.Logger
	supervisor  Supervisor
}

// Option configures a Runtime at construction.
type Option func(*config)

// WithComputeParallelism sets the number of compute pool workers.
// The default is runtime.GOMAXPROCS(0).
func WithComputeParallelism(n int) Option {
	return func(c *config) {
		c.parallelism = n
	}
}

// WithComputeExecutor supplies a custom compute executor, overriding
// WithComputeParallelism.
func WithComputeExecutor(e Executor) Option {
	return func(c *config) {
		c.compute = e
	}
}

// WithBlockingPool supplies a custom blocking executor.
func WithBlockingPool(p *BlockingPool) Option {
	return func(c *config) {
		c.blocking = p
	}
}

// WithFailureReporter replaces the failure sink. The default logs
// unobserved causes through slog.
func WithFailureReporter(report func(Cause)) Option {
	return func(c *config) {
		c.reporter = report
	}
}

// WithLogger sets the logger backing the default failure reporter.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithSupervisor replaces the fiber lifecycle hook. The default emits
// telemetry counters only.
func WithSupervisor(s Supervisor) Option {
	return func(c *config) {
		c.supervisor = s
	}
}

func newPlatform(opts []Option) Platform {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.compute == nil {
		n := cfg.parallelism
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		cfg.compute = NewComputePool(n)
	}
	if cfg.blocking == nil {
		cfg.blocking = NewBlockingPool()
	}
	if cfg.reporter == nil {
		logger := cfg.logger
		if logger == nil {
			logger = slog.Default()
		}
		cfg.reporter = func(c Cause) {
			logger.Error("fiber: unobserved failure", LabelCause.L(RenderCause(c)))
		}
	}
	if cfg.supervisor == nil {
		cfg.supervisor = telemetrySupervisor{}
	}
	return Platform{
		Compute:       cfg.compute,
		Blocking:      cfg.blocking,
		ReportFailure: cfg.reporter,
		Supervisor:    cfg.supervisor,
	}
}

// telemetrySupervisor is the default Supervisor: it only maintains
// runtime telemetry through the process metrics sink.
type telemetrySupervisor struct{}

func (telemetrySupervisor) OnStart(f *Fiber) {}

func (telemetrySupervisor) OnEnd(f *Fiber, ex Exit) {
	if _, ok := ex.Cause(); ok && !ex.Interrupted() {
		metrics.IncrCounter(MetricFiberFailureCount, 1)
	}
}
