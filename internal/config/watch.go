package config

import (
	"errors"
	"os"

	"github.com/knadh/koanf/providers/file"
)

// Watcher reloads the configuration when one of its files changes.
type Watcher struct {
	providers []*file.File
}

// Watch watches every existing file in paths. On change all paths are
// reloaded in order and the result is handed to onChange; a reload that
// fails goes to onError and the previous configuration stays in effect.
func Watch(paths []string, onChange func(*Config), onError func(error)) (*Watcher, error) {
	w := &Watcher{}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		f := file.Provider(path)
		err := f.Watch(func(_ any, err error) {
			if err != nil {
				onError(err)
				return
			}
			cfg, err := LoadFrom(paths...)
			if err != nil {
				onError(err)
				return
			}
			onChange(cfg)
		})
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		w.providers = append(w.providers, f)
	}
	return w, nil
}

// Watching reports how many files are watched.
func (w *Watcher) Watching() int {
	return len(w.providers)
}

// Close stops watching.
func (w *Watcher) Close() error {
	var errs []error
	for _, f := range w.providers {
		if err := f.Unwatch(); err != nil {
			errs = append(errs, err)
		}
	}
	w.providers = nil
	return errors.Join(errs...)
}
