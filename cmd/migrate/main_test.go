package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

type fakeMigrator struct {
	upSteps   []int
	downSteps []int
	upErr     error
	statusErr error
	status    postgres.MigrationStatus
}

func (f *fakeMigrator) MigrateUp(_ context.Context, steps int) error {
	f.upSteps = append(f.upSteps, steps)
	return f.upErr
}

func (f *fakeMigrator) MigrateDown(_ context.Context, steps int) error {
	f.downSteps = append(f.downSteps, steps)
	return nil
}

func (f *fakeMigrator) Status(context.Context) (postgres.MigrationStatus, error) {
	return f.status, f.statusErr
}

func TestRun(t *testing.T) {
	cases := []struct {
		name      string
		direction string
		steps     int
		wantOut   string
		wantUp    []int
		wantDown  []int
	}{
		{name: "status", direction: "status", wantOut: "migration status: version=2 applied=2 pending=1"},
		{name: "up all", direction: "UP", wantOut: "migrate up ok:", wantUp: []int{0}},
		{name: "down defaults to one step", direction: "down", wantOut: "migrate down ok:", wantDown: []int{1}},
		{name: "down explicit steps", direction: " down ", steps: 3, wantOut: "migrate down ok:", wantDown: []int{3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &fakeMigrator{status: postgres.MigrationStatus{Version: 2, Applied: 2, Pending: 1}}
			var out bytes.Buffer

			if err := run(context.Background(), m, tc.direction, tc.steps, &out); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out.String(), tc.wantOut) {
				t.Fatalf("expected output to contain %q, got %q", tc.wantOut, out.String())
			}
			if len(m.upSteps) != len(tc.wantUp) || (len(tc.wantUp) > 0 && m.upSteps[0] != tc.wantUp[0]) {
				t.Fatalf("unexpected up calls: %v", m.upSteps)
			}
			if len(m.downSteps) != len(tc.wantDown) || (len(tc.wantDown) > 0 && m.downSteps[0] != tc.wantDown[0]) {
				t.Fatalf("unexpected down calls: %v", m.downSteps)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	boom := errors.New("boom")

	if err := run(context.Background(), &fakeMigrator{}, "sideways", 0, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unsupported direction")
	}
	if err := run(context.Background(), &fakeMigrator{upErr: boom}, "up", 0, &bytes.Buffer{}); !errors.Is(err, boom) {
		t.Fatalf("expected up error, got %v", err)
	}
	if err := run(context.Background(), &fakeMigrator{statusErr: boom}, "status", 0, &bytes.Buffer{}); !errors.Is(err, boom) {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestResolveDSN(t *testing.T) {
	env := func(values map[string]string) func(string) (string, bool) {
		return func(key string) (string, bool) {
			v, ok := values[key]
			return v, ok
		}
	}

	dsn, err := resolveDSN(" postgres://flag ", env(map[string]string{envPostgresDSN: "postgres://env"}))
	if err != nil || dsn != "postgres://flag" {
		t.Fatalf("flag must win: %q %v", dsn, err)
	}
	dsn, err = resolveDSN("", env(map[string]string{envPostgresDSN: "postgres://env"}))
	if err != nil || dsn != "postgres://env" {
		t.Fatalf("env fallback expected: %q %v", dsn, err)
	}
	if _, err := resolveDSN("", env(nil)); !errors.Is(err, errDSNRequired) {
		t.Fatalf("expected errDSNRequired, got %v", err)
	}
}

func withMigrateCLIArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"migrate"}, args...)
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

func TestMainAgainstPostgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("STOREFRONT_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("STOREFRONT_POSTGRES_TEST_DSN is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	store, err := postgres.Open(ctx, dsn)
	cancel()
	if err != nil {
		t.Skipf("postgres is not reachable: %v", err)
	}
	_ = store.Close()

	for _, args := range [][]string{
		{"-direction=status", "-dsn=" + dsn},
		{"-direction=up", "-dsn=" + dsn},
		{"-direction=status", "-dsn=" + dsn},
	} {
		withMigrateCLIArgs(t, args, func() {
			main()
		})
	}
}

func TestMainMissingDSNExits(t *testing.T) {
	if os.Getenv("MIGRATE_TEST_EXIT") == "1" {
		withMigrateCLIArgs(t, []string{"-direction=status", "-dsn="}, func() {
			_ = os.Unsetenv(envPostgresDSN)
			main()
		})
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestMainMissingDSNExits")
	cmd.Env = append(os.Environ(), "MIGRATE_TEST_EXIT=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with error")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit code, got %v", err)
	}
}

func TestMainUnsupportedDirectionExits(t *testing.T) {
	if os.Getenv("MIGRATE_TEST_BAD_DIRECTION") == "1" {
		withMigrateCLIArgs(t, []string{"-direction=bad", "-dsn=postgres://unused"}, func() {
			main()
		})
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestMainUnsupportedDirectionExits")
	cmd.Env = append(os.Environ(), "MIGRATE_TEST_BAD_DIRECTION=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with error")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit code, got %v", err)
	}
}
