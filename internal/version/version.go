// Package version хранит сведения о сборке storefront, заполняемые через -ldflags:
//
//	go build -ldflags "-X github.com/vladislavdragonenkov/storefront/internal/version.version=v1.2.0 \
//	  -X github.com/vladislavdragonenkov/storefront/internal/version.commit=$(git rev-parse --short HEAD)"
package version

import "fmt"

const devVersion = "dev"

var (
	version = devVersion
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

// GetVersion возвращает версию сборки.
func GetVersion() string { return version }

// GetCommit возвращает хеш коммита сборки.
func GetCommit() string { return commit }

// GetDate возвращает дату сборки.
func GetDate() string { return date }

// IsRelease сообщает, что версия задана при сборке.
func IsRelease() bool { return version != "" && version != devVersion }

// Fields возвращает сведения о сборке для структурированного лога.
func Fields() map[string]any {
	return map[string]any{
		"version": version,
		"commit":  commit,
		"built":   date,
	}
}

func String() string {
	return fmt.Sprintf("storefront %s (commit %s, built %s)", version, commit, date)
}
