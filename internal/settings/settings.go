package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"manga-library/internal/filesystem"
	"manga-library/internal/logging"
)

// debounceWindow collapses the several events editors produce per save.
const debounceWindow = 200 * time.Millisecond

// Settings is the user-editable configuration.
type Settings struct {
	LibraryRoot  string        `yaml:"library_root"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	ForcePolling bool          `yaml:"force_polling,omitempty"`
}

// Provider supplies the library root and announces changes to it.
type Provider interface {
	Root() string
	Changes() <-chan string
}

type staticProvider struct {
	root string
}

// Static returns a Provider whose root never changes.
func Static(root string) Provider {
	return staticProvider{root: root}
}

func (p staticProvider) Root() string { return p.root }

// Changes returns a nil channel, which never delivers.
func (p staticProvider) Changes() <-chan string { return nil }

// Load reads settings from path.
func Load(path string) (Settings, error) {
	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if s.LibraryRoot != "" {
		s.LibraryRoot = filepath.Clean(s.LibraryRoot)
	}
	return s, nil
}

// Save writes settings to path, creating its directory.
func Save(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// FileProvider is a Provider backed by a YAML file.
type FileProvider struct {
	path    string
	changes chan string

	mu      sync.RWMutex
	current Settings

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewFileProvider loads path, writing defaults there first if the file does
// not exist.
func NewFileProvider(path string, defaults Settings) (*FileProvider, error) {
	current, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Info("First run detected, creating settings at %s", path)
		if err := Save(path, defaults); err != nil {
			return nil, err
		}
		current = defaults
	} else if err != nil {
		return nil, err
	}

	return &FileProvider{
		path:    path,
		changes: make(chan string, 1),
		current: current,
	}, nil
}

// Settings returns the last successfully loaded settings.
func (p *FileProvider) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Root returns the configured library root.
func (p *FileProvider) Root() string {
	return p.Settings().LibraryRoot
}

// Changes delivers the new root after each edit that changes it. Only the
// most recent root is kept if the receiver falls behind.
func (p *FileProvider) Changes() <-chan string {
	return p.changes
}

// Start watches the settings file until ctx is done or Close is called.
// The parent directory is watched so editors that replace the file on save
// are followed.
func (p *FileProvider) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch settings directory: %w", err)
	}

	p.watcher = watcher
	p.done = make(chan struct{})
	go p.run(ctx)
	return nil
}

// Close stops watching. It is safe to call without Start.
func (p *FileProvider) Close() error {
	var err error
	p.stopOnce.Do(func() {
		if p.watcher == nil {
			return
		}
		err = p.watcher.Close()
		<-p.done
	})
	return err
}

func (p *FileProvider) run(ctx context.Context) {
	defer close(p.done)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case <-timerC:
			timer, timerC = nil, nil
			p.reload()

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("Settings watcher error: %v", err)
		}
	}
}

// reload re-reads the file and announces a changed root.
func (p *FileProvider) reload() {
	next, err := Load(p.path)
	if err != nil {
		logging.Warn("Keeping previous settings: %v", err)
		return
	}

	p.mu.Lock()
	prevRoot := p.current.LibraryRoot
	p.current = next
	p.mu.Unlock()

	if next.LibraryRoot == prevRoot {
		return
	}
	logging.Info("Settings changed library root: %q -> %q", prevRoot, next.LibraryRoot)

	// Replace any unread root with the newer one.
	select {
	case <-p.changes:
	default:
	}
	p.changes <- next.LibraryRoot
}
