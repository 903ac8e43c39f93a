package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/rollout/config"
	"github.com/ardnew/rollout/log"
	"github.com/ardnew/rollout/server"
	"github.com/ardnew/rollout/store"
	"github.com/ardnew/rollout/telemetry"
)

// Serve starts the HTTP rule-evaluation service.
type Serve struct {
	Addr  string `default:":8080"       help:"Listen address"`
	Rules string `                      help:"Rule set YAML file to preload"                       type:"existingfile"`
	DB    string `default:"rollout.db" help:"SQLite database path for stored rules"                type:"path"`
	Otel  bool   `                      help:"Enable OpenTelemetry tracing and metrics"`
}

// Run executes the serve command.
func (s *Serve) Run(ctx context.Context) error {
	st, err := store.Open(s.DB)
	if err != nil {
		return NewError("open store").Wrap(err)
	}
	defer st.Close()

	var rs *config.RuleSet

	if s.Rules != "" {
		rs, err = config.Load(s.Rules)
		if err != nil {
			return ErrLoadRuleSet.Wrap(err)
		}
	}

	var opts []server.Option

	if s.Otel {
		opts = append(opts,
			server.WithSpanManager(telemetry.NewSpanManager()),
			server.WithMetricsRecorder(telemetry.NewMetricsRecorder()),
		)
	}

	srv := server.New(st, rs, opts...)

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown()
	}()

	log.InfoContext(ctx, "serving", slog.String("addr", s.Addr))

	return srv.Listen(s.Addr)
}
