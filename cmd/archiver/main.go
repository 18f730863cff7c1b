package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/johnquangdev/holo-archive/internal/adapter/handler"
	"github.com/johnquangdev/holo-archive/internal/infrastructure/cache"
	"github.com/johnquangdev/holo-archive/internal/infrastructure/external/archive"
	"github.com/johnquangdev/holo-archive/internal/infrastructure/external/holodex"
	"github.com/johnquangdev/holo-archive/internal/infrastructure/external/youtube"
	"github.com/johnquangdev/holo-archive/internal/infrastructure/media"
	"github.com/johnquangdev/holo-archive/internal/storage"
	"github.com/johnquangdev/holo-archive/internal/usecase/process"
	searchuc "github.com/johnquangdev/holo-archive/internal/usecase/search"
	pkgai "github.com/johnquangdev/holo-archive/pkg/ai"
	"github.com/johnquangdev/holo-archive/pkg/config"
	"github.com/johnquangdev/holo-archive/pkg/logger"
	pkgvalidator "github.com/johnquangdev/holo-archive/pkg/validator"
)

const usage = `Usage: archiver <command> [flags]

Commands:
  refresh      pull channel and video metadata from Holodex
  fetch        download subtitles and archived audio for stored videos
  diarize      run speaker diarization on fetched audio
  transcribe   transcribe diarized audio with whisper
  process      fetch + diarize + transcribe in one pass
  search       search archived subtitles from the command line
  serve        run the HTTP search API
  version      print the storage schema version
`

// stringSlice collects repeated flag values
type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ",") }

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Dir, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Opening the store runs any pending schema migrations.
	store, err := storage.Open(cfg.Storage.Path, zapLogger)
	if err != nil {
		log.Fatalf("Failed to open storage at %s: %v", cfg.Storage.Path, err)
	}

	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "refresh":
		err = runRefresh(cfg, store, zapLogger, args)
	case "fetch", "diarize", "transcribe", "process":
		err = runPipeline(cfg, store, zapLogger, command, args)
	case "search":
		err = runSearch(store, zapLogger, args)
	case "serve":
		err = runServe(cfg, store, zapLogger)
	case "version":
		var version string
		if version, err = store.Version(); err == nil {
			fmt.Println(version)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("Command %s failed: %v", command, err)
	}
}

// newPipelineService wires every configured backend into the pipeline.
// Unconfigured backends stay nil and their stages become no-ops.
func newPipelineService(cfg *config.Config, store *storage.Store, zapLogger *zap.Logger) (*process.Service, error) {
	deps := process.Deps{
		Store:   store,
		Youtube: youtube.NoopFetcher{},
		Slicer:  media.FFmpegSlicer{},
		Config:  cfg.Process,
		Logger:  zapLogger,
	}

	if cfg.Holodex.APIKey != "" {
		deps.Metadata = holodex.NewClient(&cfg.Holodex, zapLogger)
	}
	if cfg.Ragtag.Endpoint != "" {
		mirror, err := archive.NewRagtagMirror(&cfg.Ragtag, zapLogger)
		if err != nil {
			return nil, err
		}
		deps.Mirrors = append(deps.Mirrors, mirror)
	}
	if cfg.RubyRuby.BaseURL != "" {
		deps.Mirrors = append(deps.Mirrors, archive.NewRubyRubyMirror(&cfg.RubyRuby, zapLogger))
	}
	if len(cfg.Pyannote.BaseURLs) > 0 {
		diarizer, err := pkgai.NewPyannoteClient(&cfg.Pyannote)
		if err != nil {
			return nil, err
		}
		deps.Diarizer = diarizer
	}
	if len(cfg.Whisper.BaseURLs) > 0 {
		transcriber, err := pkgai.NewWhisperClient(&cfg.Whisper)
		if err != nil {
			return nil, err
		}
		deps.Transcriber = transcriber
	}

	return process.NewService(deps), nil
}

func runRefresh(cfg *config.Config, store *storage.Store, zapLogger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	org := fs.String("org", "", "refresh every channel of this organization")
	var channels stringSlice
	fs.Var(&channels, "channel", "channel ID to refresh (repeatable; default: all stored channels)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if cfg.Holodex.APIKey == "" {
		return fmt.Errorf("HOLODEX_API_KEY is not configured")
	}
	svc, err := newPipelineService(cfg, store, zapLogger)
	if err != nil {
		return err
	}

	ctx := signalContext()
	if *org != "" {
		return svc.RefreshOrg(ctx, *org)
	}
	return svc.RefreshChannels(ctx, channels)
}

func runPipeline(cfg *config.Config, store *storage.Store, zapLogger *zap.Logger, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	var filters, langs stringSlice
	fs.Var(&filters, "filter", "video filter clause name:op:value (repeatable)")
	fs.Var(&langs, "lang", "subtitle language to fetch (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := newPipelineService(cfg, store, zapLogger)
	if err != nil {
		return err
	}

	ctx := signalContext()
	params := process.Params{VideoFilters: filters, Langs: langs}
	switch command {
	case "fetch":
		return svc.Fetch(ctx, params)
	case "diarize":
		return svc.Diarize(ctx, params)
	case "transcribe":
		return svc.Transcribe(ctx, params)
	default:
		return svc.Run(ctx, params)
	}
}

func runSearch(store *storage.Store, zapLogger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("query", "", "text or pattern to search for")
	regex := fs.Bool("regex", false, "treat the query as a regular expression")
	caseSensitive := fs.Bool("case-sensitive", false, "match case")
	var videoFilters, subtitleFilters stringSlice
	fs.Var(&videoFilters, "filter", "video filter clause name:op:value (repeatable)")
	fs.Var(&subtitleFilters, "subtitle-filter", "subtitle filter clause name:op:value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *query == "" {
		return fmt.Errorf("-query is required")
	}

	svc := searchuc.NewService(store, zapLogger)
	results, err := svc.Search(signalContext(), searchuc.Params{
		Value:           *query,
		Regex:           *regex,
		CaseSensitive:   *caseSensitive,
		VideoFilters:    videoFilters,
		SubtitleFilters: subtitleFilters,
	})
	if err != nil {
		return err
	}

	for _, result := range results {
		header := []string{result.PublishedAt, result.VideoID, result.ItemID,
			strings.Join(result.Langs, ","), result.VideoTitle}
		if result.MembersOnly {
			header = append(header, "members-only")
		}
		fmt.Println(strings.Join(header, " | "))
		for _, match := range result.Matches {
			fmt.Printf("  %s\n", match.YoutubeURL)
			for _, line := range match.Lines {
				marker := " "
				if line.Matched {
					marker = ">"
				}
				fmt.Printf("  %s [%7.1f] %s\n", marker, line.Start, line.Text)
			}
		}
		fmt.Println()
	}
	return nil
}

func runServe(cfg *config.Config, store *storage.Store, zapLogger *zap.Logger) error {
	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// Optional Redis response cache with in-memory fallback
	var responseCache cache.Cache
	if cfg.RedisEnabled() {
		log.Println("📦 Connecting to Redis...")
		redisStore, err := cache.NewRedisStore(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		responseCache = redisStore
	} else {
		log.Println("📦 Redis not configured, using in-memory cache")
		responseCache = cache.NewMemoryStore()
	}

	searchService := searchuc.NewService(store, zapLogger)
	searchHandler := handler.NewSearch(searchService, responseCache, cfg.Redis.CacheTTL, zapLogger)

	router := handler.NewRouter(cfg, searchHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		return err
	}

	log.Println("✅ Server stopped gracefully")
	return nil
}

// signalContext is cancelled on SIGINT/SIGTERM so batch commands stop
// cleanly.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()
	return ctx
}
