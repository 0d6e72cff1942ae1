// Package workdir manages the sandbox's dedicated working directory: the
// one path a sandboxed command always has full read/write access to.
package workdir

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

// words is the dictionary random directory names are drawn from. Four
// entries are picked without replacement and joined with "-", e.g.
// "amber-forest-thunder-pearl". Grounded on the original implementation's
// WORDS table, carried over verbatim.
var words = []string{
	"apple", "banana", "cherry", "dragon", "eagle", "falcon", "garden", "harbor",
	"island", "jungle", "kitten", "lemon", "mango", "night", "ocean", "planet",
	"queen", "river", "silver", "tiger", "umbrella", "violet", "winter", "yellow",
	"zebra", "anchor", "bridge", "castle", "desert", "ember", "forest", "glacier",
	"horizon", "ivory", "jasmine", "kingdom", "lantern", "meadow", "nebula", "orchid",
	"phoenix", "quartz", "rainbow", "shadow", "thunder", "urban", "velvet", "whisper",
	"crystal", "dolphin", "eclipse", "firefly", "granite", "hollow", "indigo", "journey",
	"karma", "lotus", "marble", "nomad", "oasis", "prism", "quest", "ripple",
	"sphinx", "temple", "unity", "vortex", "willow", "xenon", "yonder", "zenith",
	"amber", "blazer", "copper", "dusk", "ether", "flame", "golden", "haze",
	"iron", "jade", "kindle", "lunar", "mystic", "nova", "onyx", "pearl",
	"radiant", "storm", "tidal", "ultra", "vivid", "wave", "azure", "breeze",
}

// maxAttempts bounds retries when the randomly generated name collides with
// an existing directory. Four words from a 96-word dictionary chosen without
// replacement give ~96*95*94*93 distinct names, so collisions this deep into
// a retry loop would indicate a hostile or pathological parent directory.
const maxAttempts = 10

// WorkingDir is a directory a Sandbox owns for the duration of one run.
// A path that already existed when New wrapped it is left alone on Close;
// directories this package created, including a missing path New created,
// are removed unless the caller pins them with Keep.
type WorkingDir struct {
	path        string
	autoCreated bool
	keep        bool
}

// New wraps an existing path as a WorkingDir, creating it if it does not
// already exist. A pre-existing path is never auto-removed.
func New(path string) (*WorkingDir, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return &WorkingDir{path: path}, nil
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("workdir: failed to create %s: %w", path, err)
		}
		return &WorkingDir{path: path, autoCreated: true}, nil
	default:
		return nil, fmt.Errorf("workdir: failed to stat %s: %w", path, err)
	}
}

// Random creates a working directory with a randomly generated four-word
// name under the current directory.
func Random() (*WorkingDir, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("workdir: failed to get current directory: %w", err)
	}
	return RandomIn(cwd)
}

// RandomIn creates a working directory with a randomly generated four-word
// name under parent, retrying on name collision up to maxAttempts times.
func RandomIn(parent string) (*WorkingDir, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		name := generateName()
		path := filepath.Join(parent, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return New(path)
		}
	}
	return nil, fmt.Errorf("workdir: failed to generate unique name after %d attempts", maxAttempts)
}

// generateName picks four distinct words without replacement and joins them
// with hyphens.
func generateName() string {
	picked := rand.Perm(len(words))[:4] //nolint:gosec // directory-name entropy, not a security boundary
	name := ""
	for i, idx := range picked {
		if i > 0 {
			name += "-"
		}
		name += words[idx]
	}
	return name
}

// Path returns the working directory's path.
func (w *WorkingDir) Path() string {
	return w.path
}

// AutoCreated reports whether this package created the directory (as
// opposed to the caller supplying a pre-existing one).
func (w *WorkingDir) AutoCreated() bool {
	return w.autoCreated
}

// Keep pins the working directory so Close will not remove it even if it
// was auto-created.
func (w *WorkingDir) Keep() {
	w.keep = true
}

// Kept reports whether Keep has been called.
func (w *WorkingDir) Kept() bool {
	return w.keep
}

// Close removes the working directory and its contents, unless it was
// caller-supplied or has been pinned with Keep. Safe to call once; the
// supervisor that owns a WorkingDir is responsible for not calling it twice.
func (w *WorkingDir) Close() error {
	if !w.autoCreated || w.keep {
		return nil
	}
	return os.RemoveAll(w.path)
}

// Name returns the final path component, useful for logging.
func (w *WorkingDir) Name() string {
	return filepath.Base(w.path)
}
