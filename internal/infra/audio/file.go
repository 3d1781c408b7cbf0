package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"chaos-car/internal/application"
)

var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".ogg":  true,
	".webm": true,
}

// FileSource watches a directory for dropped-in commands. A .txt file holds
// a transcript and skips speech-to-text; any known audio file is passed on
// as recorded audio. Consumed files are renamed with a .processed suffix.
type FileSource struct {
	dir       string
	interval  time.Duration
	logger    *slog.Logger
	processed map[string]bool
	mu        sync.Mutex
}

func NewFileSource(dir string, logger *slog.Logger) *FileSource {
	return &FileSource{
		dir:       dir,
		interval:  500 * time.Millisecond,
		logger:    logger,
		processed: make(map[string]bool),
	}
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Start(_ context.Context) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating command dir: %w", err)
	}
	f.logger.Info("watching for commands", "dir", f.dir)
	return nil
}

func (f *FileSource) Stop() error {
	return nil
}

func (f *FileSource) NextCommand(ctx context.Context) ([]byte, error) {
	if payload, err := f.checkForNewFile(); err != nil || payload != nil {
		return payload, err
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			payload, err := f.checkForNewFile()
			if err != nil {
				return nil, err
			}
			if payload != nil {
				return payload, nil
			}
		}
	}
}

func (f *FileSource) checkForNewFile() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && !audioExtensions[ext] {
			continue
		}

		path := filepath.Join(f.dir, entry.Name())
		if f.processed[path] {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", path, err)
		}

		f.processed[path] = true
		if err := os.Rename(path, path+".processed"); err != nil {
			f.logger.Warn("marking command file processed", "path", path, "error", err)
		}

		if ext == ".txt" {
			text := strings.TrimSpace(string(data))
			if text == "" {
				continue
			}
			return application.TextCommand(text), nil
		}
		return data, nil
	}

	return nil, nil
}
