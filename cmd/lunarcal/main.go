package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"lunarcal/internal/batch"
	"lunarcal/internal/config"
	"lunarcal/internal/generate"
	"lunarcal/internal/ics"
	appLog "lunarcal/internal/log"
	"lunarcal/internal/lunar"
	"lunarcal/internal/schedule"
	"lunarcal/internal/upload"
	"lunarcal/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	debug        bool
	envFile      string
	lunarToSolar string
	solarToLunar string
	initPath     string
	watch        string
	listen       string
	configPaths  []string
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		os.Exit(hashPassword(os.Args[2:], os.Stdin, os.Stdout, os.Stderr))
	}

	flags := parseFlags()

	logger, err := appLog.New(flags.debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	os.Exit(run(flags, logger))
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.StringVar(&cfg.envFile, "env", ".env", "Optional .env file with LUNARCAL_* overrides")
	flag.StringVar(&cfg.lunarToSolar, "lunar-to-solar", "", "Convert a lunar date `Y,M,D` to solar; negative M for a leap month")
	flag.StringVar(&cfg.solarToLunar, "solar-to-lunar", "", "Convert a solar date `Y,M,D` to lunar")
	flag.StringVar(&cfg.initPath, "init", "", "Write an example configuration to `path` and exit")
	flag.StringVar(&cfg.watch, "watch", "", "Regenerate on a cron `schedule` (e.g. \"@daily\") instead of exiting")
	flag.StringVar(&cfg.listen, "listen", "", "Serve generated calendars over HTTP on `addr`")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lunarcal [flags] config.yaml...\n")
		fmt.Fprintf(os.Stderr, "       lunarcal hash-password\n\n")
		fmt.Fprintf(os.Stderr, "Generates iCalendar files with cycle-day milestones and solar/lunar birthdays.\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	cfg.configPaths = flag.Args()

	return cfg
}

func run(flags flagConfig, logger *appLog.Logger) int {
	if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("failed to load env file", err, "path", flags.envFile)
		return 1
	}

	cal := lunar.NewLunarGo()

	switch {
	case flags.lunarToSolar != "":
		return convertLunarToSolar(cal, flags.lunarToSolar, logger)
	case flags.solarToLunar != "":
		return convertSolarToLunar(cal, flags.solarToLunar, logger)
	case flags.initPath != "":
		return writeExample(flags.initPath, logger)
	}

	if len(flags.configPaths) == 0 {
		flag.Usage()
		return 2
	}
	if flags.watch != "" {
		if err := schedule.Validate(flags.watch); err != nil {
			logger.Error("invalid -watch schedule", err)
			return 2
		}
	}

	logger.Info("lunarcal starting", "version", version, "configs", len(flags.configPaths))

	runner := &batch.Runner{
		Generator: generate.New(lunar.NewResolver(cal)),
		Emitter:   ics.NewEmitter(),
		Uploader:  upload.New(),
		Logger:    logger,
		Getenv:    os.Getenv,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results := runner.Run(ctx, flags.configPaths)
	if flags.watch == "" && flags.listen == "" {
		if batch.Failed(results) {
			return 1
		}
		return 0
	}

	store := web.NewStore()
	store.Update(results, time.Now())

	g, gctx := errgroup.WithContext(ctx)

	if flags.watch != "" {
		sched, err := schedule.New(gctx, flags.watch, func(ctx context.Context) {
			n := store.Update(runner.Run(ctx, flags.configPaths), time.Now())
			logger.Info("scheduled regeneration finished", "updated", n)
		}, logger)
		if err != nil {
			logger.Error("failed to start scheduler", err)
			return 1
		}
		g.Go(func() error {
			sched.Run(gctx)
			return nil
		})
	}

	if flags.listen != "" {
		auth := serveAuth(flags.configPaths[0], logger)
		srv := web.NewServer(store, auth, logger)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, flags.listen)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("lunarcal stopped with error", err)
		return 1
	}
	logger.Info("lunarcal exiting")
	return 0
}

// serveAuth reads the serve.basic_auth section of the first configuration.
func serveAuth(path string, logger *appLog.Logger) *config.BasicAuth {
	f, err := config.Load(path)
	if err != nil {
		logger.Error("cannot read serve settings; basic auth disabled", err, "config", path)
		return nil
	}
	f.ApplyEnv(os.Getenv)
	return f.Serve().BasicAuth
}

func writeExample(path string, logger *appLog.Logger) int {
	if _, err := os.Stat(path); err == nil {
		logger.Error("refusing to overwrite existing file", fs.ErrExist, "path", path)
		return 1
	}
	if err := config.Save(path, config.ExampleDocument()); err != nil {
		logger.Error("failed to write example config", err, "path", path)
		return 1
	}
	logger.Info("example config written", "path", path)
	return 0
}

func convertLunarToSolar(cal lunar.Calendar, arg string, logger *appLog.Logger) int {
	ymd, err := parseYMD(arg)
	if err != nil {
		logger.Error("invalid -lunar-to-solar", err)
		return 2
	}
	solar, err := cal.LunarToSolar(ymd[0], ymd[1], ymd[2])
	if err != nil {
		logger.Error("conversion failed", err, "lunar", arg)
		return 1
	}
	d := lunar.Date{Year: ymd[0], Month: ymd[1], Day: ymd[2]}
	logger.Info("converted", "lunar", d.String(), "solar", solar.Format(time.DateOnly))
	return 0
}

func convertSolarToLunar(cal lunar.Calendar, arg string, logger *appLog.Logger) int {
	ymd, err := parseYMD(arg)
	if err != nil {
		logger.Error("invalid -solar-to-lunar", err)
		return 2
	}
	date := time.Date(ymd[0], time.Month(ymd[1]), ymd[2], 0, 0, 0, 0, time.UTC)
	if date.Year() != ymd[0] || int(date.Month()) != ymd[1] || date.Day() != ymd[2] {
		logger.Error("invalid -solar-to-lunar", fmt.Errorf("%s is not a calendar date", arg))
		return 2
	}
	d, err := cal.SolarToLunar(date)
	if err != nil {
		logger.Error("conversion failed", err, "solar", arg)
		return 1
	}
	logger.Info("converted", "solar", date.Format(time.DateOnly), "lunar", d.String())
	return 0
}

// parseYMD parses "Y,M,D" (spaces allowed). M may be negative.
func parseYMD(s string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("%q: expected Y,M,D", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, fmt.Errorf("%q: %w", s, err)
		}
		out[i] = n
	}
	return out, nil
}
