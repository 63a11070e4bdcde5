package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"manga-library/internal/logging"
	"manga-library/internal/manifest"
	"manga-library/internal/memory"
	"manga-library/internal/monitor"
	"manga-library/internal/workers"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	LibraryDir      string
	DataDir         string
	SettingsFile    string
	Port            string
	PollInterval    time.Duration
	FlushInterval   time.Duration
	ForcePolling    bool
	LogHealthChecks bool

	// Derived paths
	ManifestPath string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	libraryDir := getEnv("LIBRARY_DIR", "")
	dataDir := getEnv("DATA_DIR", "/data")
	settingsFile := getEnv("SETTINGS_FILE", "")
	port := getEnv("PORT", "8080")
	pollIntervalStr := getEnv("POLL_INTERVAL", monitor.DefaultPollInterval.String())
	flushIntervalStr := getEnv("FLUSH_INTERVAL", manifest.DefaultFlushInterval.String())
	forcePolling := getEnvBool("FORCE_POLLING", false)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)

	logging.Info("  LIBRARY_DIR:         %s", valueOr(libraryDir, "(from settings)"))
	logging.Info("  DATA_DIR:            %s", dataDir)
	logging.Info("  SETTINGS_FILE:       %s", valueOr(settingsFile, "$DATA_DIR/settings.yaml"))
	logging.Info("  PORT:                %s", port)
	logging.Info("  POLL_INTERVAL:       %s", pollIntervalStr)
	logging.Info("  FLUSH_INTERVAL:      %s", flushIntervalStr)
	logging.Info("  FORCE_POLLING:       %v", forcePolling)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  INDEX_WORKERS:       %s", valueOr(os.Getenv(workers.EnvOverride), "auto"))
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	pollInterval := parseDuration("POLL_INTERVAL", pollIntervalStr, monitor.DefaultPollInterval)
	flushInterval := parseDuration("FLUSH_INTERVAL", flushIntervalStr, manifest.DefaultFlushInterval)

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	dataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	logging.Info("  Data directory (absolute): %s", dataDir)

	if libraryDir != "" {
		libraryDir, err = filepath.Abs(libraryDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve library directory path: %w", err)
		}
		logging.Info("  Library directory (absolute): %s", libraryDir)

		// A missing library is not fatal; the monitor waits for it to appear.
		if info, statErr := os.Stat(libraryDir); statErr != nil || !info.IsDir() {
			logging.Warn("  Library directory is not available yet: %s", libraryDir)
		}
	}

	if settingsFile == "" {
		settingsFile = filepath.Join(dataDir, "settings.yaml")
	}

	config := &Config{
		LibraryDir:      libraryDir,
		DataDir:         dataDir,
		SettingsFile:    settingsFile,
		Port:            port,
		PollInterval:    pollInterval,
		FlushInterval:   flushInterval,
		ForcePolling:    forcePolling,
		LogHealthChecks: logHealthChecks,
		ManifestPath:    filepath.Join(dataDir, manifest.DefaultFileName),
	}

	// The manifest lives in the data directory, so it must be writable.
	if err := ensureDirectory(dataDir, "data"); err != nil {
		return nil, fmt.Errorf("data directory error: %w", err)
	}
	logging.Debug("  Testing data directory write access...")
	if err := testWriteAccess(dataDir); err != nil {
		return nil, fmt.Errorf("data directory is not writable (required for the manifest): %w", err)
	}
	logging.Info("  [OK] Data directory is writable")
	logging.Info("  Manifest: %s", config.ManifestPath)
	logging.Info("  Settings: %s", config.SettingsFile)

	return config, nil
}

// LogMemoryConfig logs how the runtime memory limit was settled.
func LogMemoryConfig(result memory.ConfigResult) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY")
	logging.Info("------------------------------------------------------------")
	if !result.Configured {
		logging.Info("  GOMEMLIMIT: not set (set MEMORY_LIMIT or GOMEMLIMIT to enable)")
		return
	}
	logging.Info("  GOMEMLIMIT: %s (source: %s)", memory.FormatBytes(result.GoMemLimit), result.Source)
	if result.Source == "MEMORY_LIMIT" {
		logging.Info("  Container limit: %s, ratio %.2f", memory.FormatBytes(result.ContainerLimit), result.Ratio)
	}
}

// LogLibraryInit logs library service initialization
func LogLibraryInit(root string, forcePolling bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("LIBRARY INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if root == "" {
		logging.Warn("  No library root configured yet")
	} else {
		logging.Info("  Library root: %s", root)
	}
	if forcePolling {
		logging.Info("  Change monitor: polling (forced)")
	}
	logging.Info("  Starting initial index...")
}

// LogLibraryStarted logs the outcome of the initial index
func LogLibraryStarted(entries int, mode string, duration time.Duration, err error) {
	if err != nil {
		logging.Warn("  Initial index failed after %v: %v", duration, err)
		logging.Warn("  The library will be rebuilt on the next change or reindex")
		return
	}
	logging.Info("  [OK] Indexed %d entries in %v (monitor: %s)", entries, duration, mode)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}
		logging.Debug("  Registered routes (%d total):", len(routes))

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")
	parts := strings.SplitN(path, "/", 2)
	first := parts[0]
	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s/api", config.Port)
	logging.Info("    Health:        http://0.0.0.0:%s/health", config.Port)
	logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.Port)
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___                           __    _ __
   /  |/  /___ _____  ____ _____ _   / /   (_) /_  _________ ________  __
  / /|_/ / __ '/ __ \/ __ '/ __ '/  / /   / / __ \/ ___/ __ '/ ___/ / / /
 / /  / / /_/ / / / / /_/ / /_/ /  / /___/ / /_/ / /  / /_/ / /  / /_/ /
/_/  /_/\__,_/_/ /_/\__, /\__,_/  /_____/_/_.___/_/   \__,_/_/   \__, /
                   /____/                                      /____/
------------------------------------------------------------`
	fmt.Println(banner)

	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}
	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory: %s", path)
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	return os.Remove(testFile)
}

func parseDuration(key, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logging.Warn("  Invalid %s %q, using default: %v", key, value, fallback)
		return fallback
	}
	return d
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
