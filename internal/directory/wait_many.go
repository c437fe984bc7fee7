package directory

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Wait races a sleep for timeout against wait_one on every name,
// returning true as soon as any one resolves, or false once the
// timeout elapses first. All sibling waiters are cancelled on return,
// mirroring the "first one wins" combinator from spec.md §5.
func (d *Directory) Wait(ctx context.Context, from int64, timeout time.Duration, names []string) bool {
	if timeout <= 0 {
		return false
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if len(names) == 0 {
		<-waitCtx.Done()
		return false
	}

	resolved := make(chan struct{}, 1)
	g, gctx := errgroup.WithContext(waitCtx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			if err := d.WaitOne(gctx, from, name); err != nil {
				return nil
			}
			select {
			case resolved <- struct{}{}:
			default:
			}
			cancel()
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-resolved:
		return true
	case <-done:
		select {
		case <-resolved:
			return true
		default:
			return false
		}
	}
}
