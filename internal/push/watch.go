package push

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "pushrelay/pkg/logx"
)

// InitFunc builds a Sender, typically from the credentials file.
type InitFunc func(ctx context.Context) (Sender, error)

const (
	watchDebounce      = 250 * time.Millisecond
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// WatchCredentials retries init whenever the file at path is created or changed
// and installs the first successful Sender into d. It returns nil once d is ready
// or ctx is done.
//
// The directory of path must exist for events to be delivered; while it does not,
// the watcher keeps retrying with a jittered backoff.
func WatchCredentials(ctx context.Context, path string, d *Deferred, init InitFunc, log logx.Logger) error {
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	nextWait := func() time.Duration {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}
		return wait
	}

	attempt := func() bool {
		if d.Ready() {
			return true
		}
		s, err := init(ctx)
		if err != nil {
			d.SetUnavailable(err)
			log.Debug("sender init retry failed", logx.String("path", path), logx.Err(err))
			return false
		}
		if d.Set(s) {
			log.Info("push sender initialized from watched credentials", logx.String("path", path))
		}
		return true
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		w, err := fsnotify.NewWatcher()
		if err != nil {
			log.Warn("credentials watch init failed", logx.Err(err), logx.String("dir", dir))
			if !sleepCtx(ctx, nextWait()) {
				return nil
			}
			continue
		}
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			log.Warn("credentials watch add failed", logx.Err(err), logx.String("dir", dir))
			if !sleepCtx(ctx, nextWait()) {
				return nil
			}
			continue
		}
		backoff = restartBackoffBase
		log.Debug("credentials watcher started", logx.String("dir", dir), logx.String("file", file))

		// The file may have appeared before the watch was in place.
		if attempt() {
			_ = w.Close()
			return nil
		}

		var (
			timer  *time.Timer
			fire   <-chan time.Time
			broken bool
		)
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				if timer != nil {
					timer.Stop()
				}
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				if !strings.EqualFold(filepath.Base(ev.Name), file) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Chmod) == 0 {
					continue
				}
				// debounce partial writes
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(watchDebounce)
				fire = timer.C
			case <-fire:
				fire = nil
				if attempt() {
					_ = w.Close()
					return nil
				}
			case err, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				log.Warn("credentials watch error", logx.Err(err), logx.String("dir", dir))
				if strings.Contains(strings.ToLower(err.Error()), "closed") {
					broken = true
				}
			}
		}

		_ = w.Close()
		if timer != nil {
			timer.Stop()
		}
		wait := nextWait()
		log.Warn("credentials watcher stopped; restarting", logx.String("dir", dir), logx.Duration("backoff", wait))
		if !sleepCtx(ctx, wait) {
			return nil
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
