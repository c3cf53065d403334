// Package batch turns configuration files into calendar files. Each file
// and each person is isolated: one failure is reported and skipped without
// stopping the rest.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"lunarcal/internal/apperror"
	"lunarcal/internal/config"
	"lunarcal/internal/generate"
	"lunarcal/internal/ics"
	appLog "lunarcal/internal/log"
	"lunarcal/internal/model"
	"lunarcal/internal/upload"
)

// Uploader publishes a generated calendar. *upload.Client implements it.
type Uploader interface {
	Publish(ctx context.Context, body []byte, opts upload.Options) (upload.Result, error)
}

// Failure is a person (or the holiday section) that produced no events.
type Failure struct {
	Index  int    // position in persons, -1 for holidays
	Person string // username if it could be read
	Err    error
}

// FileResult is the outcome of one configuration file.
type FileResult struct {
	ConfigPath string
	Name       string // file stem, used as the calendar's name in URLs
	OutputPath string
	Metadata   model.Metadata
	Events     []model.Event
	Body       []byte // serialized calendar
	Failures   []Failure

	Upload    *upload.Result
	UploadErr error

	// Err is set when the file could not be processed at all.
	Err error
}

type Runner struct {
	Generator *generate.Generator
	Emitter   *ics.Emitter
	Uploader  Uploader // nil disables publishing
	Logger    *appLog.Logger
	Now       func() time.Time
	// Getenv supplies LUNARCAL_* overrides. nil means none.
	Getenv func(string) string
}

// Run processes paths in order.
func (r *Runner) Run(ctx context.Context, paths []string) []FileResult {
	results := make([]FileResult, 0, len(paths))
	for _, p := range paths {
		if ctx.Err() != nil {
			results = append(results, FileResult{ConfigPath: p, Err: ctx.Err()})
			continue
		}
		results = append(results, r.RunFile(ctx, p))
	}
	return results
}

// RunFile loads one configuration, generates its events, writes
// <config>.ics next to it and publishes it when enabled.
func (r *Runner) RunFile(ctx context.Context, path string) FileResult {
	start := time.Now()
	logger := r.logger().With("config", path)
	res := FileResult{ConfigPath: path}

	f, err := config.Load(path)
	if err != nil {
		res.Err = err
		logger.Error("config load failed", err)
		return res
	}
	if r.Getenv != nil {
		f.ApplyEnv(r.Getenv)
	}
	res.Name = f.Name()
	res.OutputPath = f.OutputPath()

	cal, err := config.ResolveCalendar(f.Global(), f.Name())
	if err != nil {
		res.Err = err
		logger.Error("calendar settings invalid", err)
		return res
	}
	res.Metadata = model.Metadata{Name: cal.Name, Timezone: cal.Timezone}

	for i, person := range f.Persons() {
		name, _ := person["username"].(string)
		events, err := r.generatePerson(person, f.Global())
		if err != nil {
			err = apperror.WithPerson(err, name)
			res.Failures = append(res.Failures, Failure{Index: i, Person: name, Err: err})
			logger.Error("person skipped", err, "index", i, "person", name)
			continue
		}
		logger.Debug("person generated", "person", name, "events", len(events))
		res.Events = append(res.Events, events...)
	}

	holidays, errs := r.Generator.Holidays(cal, r.now().Year())
	for _, err := range errs {
		res.Failures = append(res.Failures, Failure{Index: -1, Person: "holidays", Err: err})
		logger.Error("holiday skipped", err)
	}
	res.Events = append(res.Events, holidays...)

	body, err := r.Emitter.Bytes(res.Metadata, res.Events)
	if err != nil {
		res.Err = fmt.Errorf("encode calendar: %w", err)
		logger.Error("calendar encode failed", err)
		return res
	}
	res.Body = body

	if err := config.WriteFileAtomic(res.OutputPath, body, 0o644); err != nil {
		res.Err = fmt.Errorf("write %s: %w", res.OutputPath, err)
		logger.Error("calendar write failed", err, "path", res.OutputPath)
		return res
	}
	logger.Info("calendar written",
		"path", res.OutputPath,
		"events", len(res.Events),
		"failures", len(res.Failures),
		"elapsed", time.Since(start).String(),
	)

	pb := f.Pastebin()
	if pb.Enabled && r.Uploader != nil {
		r.publish(ctx, logger, &res, pb)
	}
	return res
}

func (r *Runner) generatePerson(person, global map[string]any) ([]model.Event, error) {
	eff, err := config.Resolve(person, global)
	if err != nil {
		return nil, err
	}
	return r.Generator.Generate(eff)
}

func (r *Runner) publish(ctx context.Context, logger *appLog.Logger, res *FileResult, pb config.Pastebin) {
	target := pb.BaseURL
	if pb.ManageURL != "" {
		target = pb.ManageURL
	}
	up, err := r.Uploader.Publish(ctx, res.Body, upload.Options{
		BaseURL:    pb.BaseURL,
		ManageURL:  pb.ManageURL,
		Expiration: pb.Expiration,
		Filename:   filepath.Base(res.OutputPath),
	})
	if err != nil {
		res.UploadErr = err
		logger.Error("calendar upload failed", err, "target", upload.RedactURL(target))
		return
	}
	res.Upload = &up

	kv := []any{"url", up.URL}
	if up.ManageURL != "" {
		// Printed once so the user can copy it into pastebin.manage_url.
		kv = append(kv, "manage_url", up.ManageURL)
	}
	logger.Info("calendar uploaded", kv...)
}

func (r *Runner) logger() *appLog.Logger {
	if r.Logger == nil {
		return appLog.NewNop()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Failed reports whether any file in results failed outright.
func Failed(results []FileResult) bool {
	for _, res := range results {
		if res.Err != nil {
			return true
		}
	}
	return false
}

