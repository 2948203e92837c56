package frame

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"gocv.io/x/gocv"

	"github.com/dudu/reface/internal/inference"
)

// Pool runs a processor over a batch of frame files on disk, rewriting each
// file in place.
type Pool struct {
	workers  int
	provider inference.Provider
}

func NewPool(workers int, provider inference.Provider) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers, provider: provider}
}

// Chunks splits paths into at most n contiguous slices of near-equal size.
func Chunks(paths []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	size := len(paths) / n
	if size < 1 {
		size = 1
	}
	var chunks [][]string
	for start := 0; start < len(paths); start += size {
		end := start + size
		if end > len(paths) || len(chunks) == n-1 {
			end = len(paths)
		}
		chunks = append(chunks, paths[start:end])
		if end == len(paths) {
			break
		}
	}
	return chunks
}

// fanOut reports whether the batch is worth spreading over workers. A model
// session per worker only pays off on CPU; accelerated providers contend for
// one device and stay single-session.
func (p *Pool) fanOut(chunkSize int) bool {
	return chunkSize > 2 && p.workers > 1 && p.provider == inference.ProviderCPU
}

// Run builds processors from factory and applies them to every frame file.
// The batch continues past per-frame failures; all errors are joined.
func (p *Pool) Run(factory Factory, label string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(isatty.IsTerminal(os.Stderr.Fd())),
	)
	defer bar.Finish()

	if !p.fanOut(len(paths) / p.workers) {
		return p.runSerial(factory, paths, bar)
	}

	var mu sync.Mutex
	var errs []error
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	wp := workerpool.New(p.workers)
	for _, chunk := range Chunks(paths, p.workers) {
		chunk := chunk
		wp.Submit(func() {
			proc, err := factory()
			if err != nil {
				fail(err)
				return
			}
			defer proc.Close()
			for _, path := range chunk {
				if err := processFile(proc, path); err != nil {
					fail(err)
				}
				bar.Add(1)
			}
		})
	}
	wp.StopWait()

	return errors.Join(errs...)
}

func (p *Pool) runSerial(factory Factory, paths []string, bar *progressbar.ProgressBar) error {
	proc, err := factory()
	if err != nil {
		return err
	}
	defer proc.Close()

	var errs []error
	for _, path := range paths {
		if err := processFile(proc, path); err != nil {
			errs = append(errs, err)
		}
		bar.Add(1)
	}
	return errors.Join(errs...)
}

func processFile(proc Processor, path string) error {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return fmt.Errorf("read frame %s", path)
	}
	defer img.Close()

	if err := proc.ProcessFrame(&img); err != nil {
		return fmt.Errorf("process frame %s: %w", path, err)
	}
	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("write frame %s", path)
	}
	return nil
}
