// Package player launches local media players and tracks which URI schemes
// they can open. All player invocations use exec.Command with explicit
// argument slices; nothing goes through a shell.
package player

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"mediathek/internal/log"
)

// Player is the interface for media player implementations.
type Player interface {
	// Name returns the player name.
	Name() string

	// Available checks if the player binary exists in PATH.
	Available() bool

	// Schemes lists the URI schemes the player can open.
	Schemes() []string

	// Play blocks until the player exits.
	Play(ctx context.Context, uri, title string, headers map[string]string) error
}

// Swapped in tests.
var (
	lookPath = exec.LookPath
	command  = exec.CommandContext
)

var (
	mpvSchemes = []string{"http", "https", "rtmp", "rtmps", "rtsp", "mms", "mmsh"}
	vlcSchemes = []string{"http", "https", "rtmp", "rtsp", "mms", "mmsh", "mmst"}
)

// Names lists the supported player names.
func Names() []string {
	return []string{"mpv", "vlc", "iina", "celluloid"}
}

// New creates a player by name.
func New(name string) (Player, error) {
	switch strings.ToLower(name) {
	case "mpv":
		return &binary{name: "mpv", schemes: mpvSchemes, args: mpvArgs}, nil
	case "vlc":
		return &binary{name: "vlc", schemes: vlcSchemes, args: vlcArgs}, nil
	case "iina", "celluloid":
		// Both wrap libmpv and accept mpv-style flags.
		return &binary{name: strings.ToLower(name), schemes: mpvSchemes, args: mpvArgs}, nil
	default:
		return nil, fmt.Errorf("unsupported player %q (valid: %s)", name, strings.Join(Names(), ", "))
	}
}

// binary is a player driven by its command line.
type binary struct {
	name    string
	schemes []string
	args    func(uri, title string, headers map[string]string) []string
}

func (b *binary) Name() string { return b.name }

func (b *binary) Available() bool {
	_, err := lookPath(b.name)
	return err == nil
}

func (b *binary) Schemes() []string {
	return append([]string(nil), b.schemes...)
}

func (b *binary) Play(ctx context.Context, uri, title string, headers map[string]string) error {
	path, err := lookPath(b.name)
	if err != nil {
		return fmt.Errorf("%s not found in PATH: %w", b.name, err)
	}

	args := b.args(uri, title, headers)
	logger := log.WithComponent("player")
	logger.Debug().Str("player", b.name).Strs("args", args).Msg("launching player")

	cmd := command(ctx, path, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		// Players exit non-zero when the user closes them.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return fmt.Errorf("running %s: %w", b.name, err)
	}
	return nil
}

func mpvArgs(uri, title string, headers map[string]string) []string {
	args := []string{uri, "--force-media-title=" + title, "--really-quiet"}
	if ua := headers["User-Agent"]; ua != "" {
		args = append(args, "--user-agent="+ua)
	}
	if fields := headerFields(headers); fields != "" {
		args = append(args, "--http-header-fields="+fields)
	}
	return args
}

func vlcArgs(uri, title string, headers map[string]string) []string {
	args := []string{uri, "--meta-title", title, "--play-and-exit"}
	if ua := headers["User-Agent"]; ua != "" {
		args = append(args, "--http-user-agent", ua)
	}
	return args
}

// headerFields renders every header except User-Agent in mpv's
// comma-separated list form, sorted by name.
func headerFields(headers map[string]string) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		if k != "User-Agent" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		// Commas separate fields; escape them inside values.
		fields = append(fields, k+": "+strings.ReplaceAll(headers[k], ",", `\,`))
	}
	return strings.Join(fields, ",")
}
