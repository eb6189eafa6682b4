package convert

import (
	"context"
	"sync"
)

// Future is the pending result of an asynchronous conversion. It settles
// exactly once, either resolved with a Result or rejected with an error.
type Future struct {
	once sync.Once
	done chan struct{}
	res  *Result
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// settled returns a Future that has already completed.
func settled(res *Result, err error) *Future {
	f := newFuture()
	f.settle(res, err)
	return f
}

func (f *Future) settle(res *Result, err error) {
	f.once.Do(func() {
		f.res, f.err = res, err
		close(f.done)
	})
}

// Done is closed once the future has settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx is done. Giving up on ctx
// does not cancel the conversion itself; cancel the context passed to
// Convert for that.
func (f *Future) Await(ctx context.Context) (*Result, error) {
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// All combines futures into one that resolves with a sequence Result whose
// Items are in argument order, regardless of completion order. The first
// rejection rejects the aggregate.
func All(futures ...*Future) *Future {
	agg := newFuture()
	if len(futures) == 0 {
		agg.settle(&Result{Items: []*Result{}}, nil)
		return agg
	}

	type outcome struct {
		idx int
		res *Result
		err error
	}
	outcomes := make(chan outcome, len(futures))
	for i, f := range futures {
		go func(i int, f *Future) {
			<-f.done
			outcomes <- outcome{idx: i, res: f.res, err: f.err}
		}(i, f)
	}

	go func() {
		items := make([]*Result, len(futures))
		for range futures {
			o := <-outcomes
			if o.err != nil {
				agg.settle(nil, o.err)
				return
			}
			items[o.idx] = o.res
		}
		agg.settle(&Result{Items: items}, nil)
	}()
	return agg
}
