package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/mkrupp/homecase-authshell/internal/infra/config"
	context_ "github.com/mkrupp/homecase-authshell/internal/infra/context"
	"github.com/mkrupp/homecase-authshell/internal/infra/logging"
	"github.com/mkrupp/homecase-authshell/internal/repo/token"
	"github.com/mkrupp/homecase-authshell/internal/svc/authsvc/authclient"
	"github.com/mkrupp/homecase-authshell/internal/svc/authsvc/tokens"
)

const appName = "authshell"

type Config struct {
	config.EnvConfig

	Log     logging.LoggerConfig        `envPrefix:"LOG_"`
	Auth    authclient.HTTPClientConfig `envPrefix:"AUTH_CLIENT_"`
	Token   tokens.DecoderConfig        `envPrefix:"TOKEN_"`
	Storage token.RepositoryConfig      `envPrefix:"STORAGE_"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()
	)

	if err := config.Parse(ctx, &cfg, strings.ToUpper(appName)); err != nil {
		fmt.Fprintf(os.Stderr, "error: parse config: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Configure(ctx, cfg.Log, appName); err != nil {
		fmt.Fprintf(os.Stderr, "error: configure logging: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code. All
// requests of one invocation share a trace ID.
func run(ctx context.Context, cfg Config, args []string, stdout, stderr io.Writer) int {
	log := logging.GetLogger("cmd.authshell")

	if traceID, err := uuid.NewV7(); err == nil {
		ctx = context_.WithTraceID(ctx, traceID.String())
	}

	cmd := newRootCmd(cfg)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		log.DebugContext(ctx, "command failed", "error", err)

		if !isReported(err) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}

		return 1
	}

	return 0
}
