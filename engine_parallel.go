package lspintar

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/harbyn/lspintar/internal/extract"
	"github.com/harbyn/lspintar/internal/lang"
)

// workItem holds everything a parallel extraction worker needs.
type workItem struct {
	path    string
	lang    lang.Language
	content []byte
	stamp   int64
}

// indexFilesParallel indexes files in three phases:
//
//	Phase A (serial):  read files, hash check.
//	Phase B (parallel): parse and extract on a worker pool (trees are never
//	                    shared between goroutines; each worker owns its own
//	                    parser and tree).
//	Phase C (serial):  commit each file's rows in one transaction.
func (e *Engine) indexFilesParallel(ctx context.Context, paths []string) error {
	// ---- Phase A: serial file preparation ----
	var items []workItem
	for _, path := range paths {
		l, ok := e.languageFor(path)
		if !ok {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			e.log.Warn("read failed", "path", path, "error", err)
			continue
		}
		if e.unchanged(path, content) {
			continue
		}
		items = append(items, workItem{path: path, lang: l, content: content, stamp: fileStamp(path)})
	}
	if len(items) == 0 {
		return nil
	}

	// ---- Phase B: parallel extraction ----
	numWorkers := min(runtime.NumCPU(), len(items))
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item workItem
		res  *extract.Result
		err  error
	}
	resultCh := make(chan result, len(items))

	branch := e.Branch()
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				res, err := e.extractOne(ctx, item, branch)
				resultCh <- result{item: item, res: res, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: serial commit ----
	var errs []error
	for r := range resultCh {
		if r.err != nil {
			errs = append(errs, fmt.Errorf("extract %s: %w", r.item.path, r.err))
			continue
		}
		if err := e.store.UpsertFile(branch, r.item.path, r.res.Symbols, r.res.Supers, r.res.Ifaces); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", r.item.path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// extractOne parses and extracts a single file with a worker-local parser.
func (e *Engine) extractOne(ctx context.Context, item workItem, branch string) (*extract.Result, error) {
	facade, err := lang.NewFacade(item.lang)
	if err != nil {
		return &extract.Result{}, nil // grammar unavailable
	}
	tree, err := facade.Parse(ctx, item.content)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	defer tree.Close()
	return extract.File(tree, item.path, branch, item.stamp), nil
}
