package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/claimgate/internal/ingest"
	"github.com/ppiankov/claimgate/internal/model"
	"go.uber.org/zap"
)

// FileVerifier verifies one batch file
type FileVerifier interface {
	VerifyFile(ctx context.Context, path string) (*model.RunReport, error)
}

// VerifyJob represents one batch file to verify
type VerifyJob struct {
	Path     string
	Verifier FileVerifier
}

// Execute executes the verify job
func (j *VerifyJob) Execute(ctx context.Context) Result {
	report, err := j.Verifier.VerifyFile(ctx, j.Path)
	return &FileResult{
		Path:   j.Path,
		Report: report,
		Error:  err,
	}
}

// FileResult represents the result of a verify job
type FileResult struct {
	Path   string
	Report *model.RunReport
	Error  error
}

// GetError returns the error from the verify result
func (r *FileResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies many batch files concurrently. All files share
// the verifier, so its backend and score cache are shared too.
type BatchProcessor struct {
	verifier    FileVerifier
	concurrency int
	logger      *zap.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(verifier FileVerifier, concurrency int, logger *zap.Logger) *BatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{
		verifier:    verifier,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ProcessFiles verifies files concurrently, returning results in input order
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*FileResult {
	if len(paths) == 0 {
		return []*FileResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, path := range paths {
		if !pool.Submit(&VerifyJob{Path: path, Verifier: b.verifier}) {
			break
		}
	}

	results := pool.Wait()

	fileResults := make([]*FileResult, len(paths))
	for i, path := range paths {
		if i < len(results) && results[i] != nil {
			fileResults[i] = results[i].(*FileResult)
		} else {
			cause := context.Cause(ctx)
			if cause == nil {
				cause = context.Canceled
			}
			fileResults[i] = &FileResult{Path: path, Error: fmt.Errorf("not processed: %w", cause)}
		}

		if err := fileResults[i].Error; err != nil {
			b.logger.Warn("batch file failed", zap.String("path", path), zap.Error(err))
		}
	}

	return fileResults
}

// CollectBatchFiles expands target into batch file paths. A directory
// yields its supported files in name order; a .txt or .list file is read
// as a list of paths; anything else is taken as a single batch file.
func CollectBatchFiles(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", target, err)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(target)
		if err != nil {
			return nil, fmt.Errorf("read dir: %w", err)
		}
		var paths []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, err := ingest.FormatFromPath(e.Name()); err == nil {
				paths = append(paths, filepath.Join(target, e.Name()))
			}
		}
		sort.Strings(paths)
		return paths, nil
	}

	switch strings.ToLower(filepath.Ext(target)) {
	case ".txt", ".list":
		return ReadPathsFromFile(target)
	default:
		return []string{target}, nil
	}
}

// ReadPathsFromFile reads batch file paths (one per line). Relative paths
// resolve against the list file's directory.
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(filePath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
