// Command ghstatus polls the GitHub status feed once and reports what calabi
// would make of it. It exits 0 when there is no incident, 2 during an
// incident and 1 on any error.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alanyoungcy/calabi/internal/config"
	"github.com/alanyoungcy/calabi/internal/domain"
	"github.com/alanyoungcy/calabi/internal/platform/statuspage"
)

const (
	exitHealthy  = 0
	exitError    = 1
	exitIncident = 2
)

func main() {
	url := flag.String("url", config.Defaults().Status.URL, "status feed URL")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline, including 429 backoff")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	client := statuspage.NewClient(*url, statuspage.WithLogger(logger))
	code := check(ctx, client, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

type statusSource interface {
	GetIncidentStatus(ctx context.Context) (domain.StatusEnvelope, error)
}

// check performs one poll and returns the exit code.
func check(ctx context.Context, src statusSource, stdout, stderr io.Writer) int {
	env, err := src.GetIncidentStatus(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "ghstatus: %v\n", err)
		return exitError
	}

	fmt.Fprintf(stdout, "indicator:   %s\n", env.Indicator())
	fmt.Fprintf(stdout, "description: %s\n", env.Description())

	if env.IsOK() {
		fmt.Fprintln(stdout, "incident:    none")
		return exitHealthy
	}

	incidentType, err := domain.ParseIncidentType(env.Indicator())
	if err != nil {
		fmt.Fprintf(stderr, "ghstatus: %v\n", err)
		return exitError
	}
	fmt.Fprintf(stdout, "incident:    %s\n", incidentType)
	return exitIncident
}
