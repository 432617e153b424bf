// Package janitor reconciles the upload tree with the document. File deletes
// are executed after the document write commits, so a crash in between can
// leave files on disk that no post references anymore. The periodic sweep
// removes those orphans; it never touches the document itself, so it can only
// err on the side of keeping files.
package janitor

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"

	"github.com/vibeboard/vibeboard/config"
	"github.com/vibeboard/vibeboard/store"
	"github.com/vibeboard/vibeboard/uploads"
)

// Janitor periodically sweeps the upload tree for orphaned files.
type Janitor struct {
	store   store.Store
	uploads *uploads.Manager
	cfg     *config.JanitorConfig
}

// New creates a janitor. It does nothing until Run is called.
func New(st store.Store, um *uploads.Manager, cfg *config.JanitorConfig) *Janitor {
	return &Janitor{store: st, uploads: um, cfg: cfg}
}

// Run schedules the sweep and blocks until ctx is canceled. An initial sweep
// runs immediately to pick up anything left behind by a previous crash.
func (j *Janitor) Run(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	sweep := func() {
		removed, err := j.Sweep(ctx)
		if err != nil {
			log.Error("upload sweep failed", "error", err)
			return
		}
		if removed > 0 {
			log.Info("removed orphaned upload files", "count", removed)
		}
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(j.cfg.Interval),
		gocron.NewTask(sweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		return err
	}

	scheduler.Start()
	log.Info("upload janitor started", "interval", j.cfg.Interval, "grace_period", j.cfg.GracePeriod)

	<-ctx.Done()
	return scheduler.Shutdown()
}

// Sweep deletes every file in the upload tree that no post references and
// that is older than the grace period, then prunes the directories of users
// that no longer exist. It returns the number of files removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	var refs map[string]struct{}
	liveUsers := make(map[string]struct{})
	if err := j.store.View(ctx, func(doc *store.Document) error {
		refs = doc.ReferencedFiles()
		for _, u := range doc.Users {
			liveUsers[u.ID] = struct{}{}
		}
		return nil
	}); err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-j.cfg.GracePeriod)
	root := j.uploads.Root()
	removed := 0

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("sweep cannot access path", "path", p, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		public := path.Join(uploads.PublicPrefix, filepath.ToSlash(rel))
		if _, live := refs[public]; live {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(p); err != nil {
			log.Error("failed to remove orphaned file", "path", p, "error", err)
			return nil
		}
		log.Debug("removed orphaned file", "path", public)
		removed++
		return nil
	})
	if err != nil {
		return removed, err
	}

	j.pruneDeadUserDirs(root, liveUsers)
	return removed, nil
}

// pruneDeadUserDirs removes now-empty directory skeletons of users that were
// deleted. Non-empty directories are left alone (their files are still
// within the grace period).
func (j *Janitor) pruneDeadUserDirs(root string, liveUsers map[string]struct{}) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, live := liveUsers[entry.Name()]; live {
			continue
		}
		userDir := filepath.Join(root, entry.Name())
		for _, sub := range []string{"files", "previews"} {
			// os.Remove refuses non-empty directories, which is exactly
			// the behavior wanted here.
			_ = os.Remove(filepath.Join(userDir, sub))
		}
		if err := os.Remove(userDir); err == nil {
			log.Debug("pruned upload directory of deleted user", "user", entry.Name())
		}
	}
}
