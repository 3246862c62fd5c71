package indexer

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/MonsieurBarti/codegraph/pkg/extractor"
	"github.com/MonsieurBarti/codegraph/pkg/util"
)

// fileOutcome is the result of reading and extracting one file. Err is set
// when the file could not be read; parse errors never surface here because
// tree-sitter recovers into partial trees.
type fileOutcome struct {
	Info   FileInfo
	Result *extractor.FileResult
	Err    error
}

// extractAll fans file reads and extraction out over a worker pool sized to
// match the parser pools, preserving no particular order. The caller inserts
// results into the graph sequentially.
func extractAll(ctx context.Context, files []FileInfo, ex *extractor.Extractor, logger *slog.Logger) []fileOutcome {
	workers := util.OptimalPoolSize()
	if workers > len(files) {
		workers = len(files)
	}
	if workers == 0 {
		return nil
	}

	jobs := make(chan FileInfo)
	outcomes := make([]fileOutcome, 0, len(files))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for info := range jobs {
				out := extractOne(info, ex)
				mu.Lock()
				outcomes = append(outcomes, out)
				mu.Unlock()
			}
		}()
	}

	for _, info := range files {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return outcomes
		case jobs <- info:
		}
	}
	close(jobs)
	wg.Wait()

	logger.Debug("extraction complete", "files", len(files), "workers", workers)
	return outcomes
}

func extractOne(info FileInfo, ex *extractor.Extractor) fileOutcome {
	source, err := os.ReadFile(info.Path)
	if err != nil {
		return fileOutcome{Info: info, Err: err}
	}
	result, err := ex.ExtractFile(info.Path, source)
	if err != nil {
		return fileOutcome{Info: info, Err: err}
	}
	return fileOutcome{Info: info, Result: result}
}
