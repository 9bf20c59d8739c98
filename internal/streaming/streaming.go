// Package streaming drives incremental runtime output into ordered callback
// invocations, and provides the synchronous bridge used by blocking entry
// points.
//
// Each active stream runs as one task on a bounded pool. Within a stream,
// deltas reach the callback strictly in generation order (a single goroutine
// emits them); across streams there is no ordering guarantee. Cancellation
// is cooperative: a cancelled task observes it at its next suspension point,
// and callbacks already issued are never retracted.
package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aibridge/aibridge-go/internal/contentcodec"
	"github.com/aibridge/aibridge-go/runtime"
)

// ErrPoolReentry reports a synchronous wait attempted from a task already
// running on the bounded streaming pool. Allowing the wait could starve the
// pool: every worker could end up blocked on work that needs a worker.
var ErrPoolReentry = errors.New("synchronous wait on a streaming pool task")

// Callback receives stream output. Each non-empty delta arrives in order
// with done=false; the terminal sentinel is a single invocation with an
// empty delta and done=true. Failures arrive as an "Error: …" delta and are
// always followed by the sentinel.
type Callback func(delta string, done bool)

// Pool runs stream tasks with bounded concurrency.
type Pool struct {
	log    *slog.Logger
	sem    chan struct{}
	format func(error) string
}

// NewPool returns a pool running at most size concurrent stream tasks.
// format renders errors into boundary payloads ("Error: …").
func NewPool(size int, format func(error) string, log *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		log:    log,
		sem:    make(chan struct{}, size),
		format: format,
	}
}

type poolTaskKey struct{}

// onPool reports whether ctx belongs to a task running on this pool.
func onPool(ctx context.Context) bool {
	v, _ := ctx.Value(poolTaskKey{}).(bool)
	return v
}

// start runs fn as a pool task. The returned goroutine waits for a worker
// slot; if ctx is cancelled first, fn never runs and onFinish receives the
// cancellation error.
func (p *Pool) start(ctx context.Context, onFinish func(error), fn func(ctx context.Context) error) {
	go func() {
		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			onFinish(ctx.Err())
			return
		}
		defer func() { <-p.sem }()
		onFinish(fn(context.WithValue(ctx, poolTaskKey{}, true)))
	}()
}

// StreamText starts a text stream task: it reads successive cumulative
// snapshots from the runtime, emits the suffix beyond the previously emitted
// length as a delta for each, and finishes with the terminal sentinel.
// onFinish runs exactly once after the last callback (or, on cancellation,
// after emission has stopped).
func (p *Pool) StreamText(ctx context.Context, sess runtime.Session, prompt runtime.Prompt, cb Callback, onFinish func(error)) {
	p.start(ctx, onFinish, func(ctx context.Context) error {
		snaps, err := sess.Stream(ctx, prompt)
		if err != nil {
			return p.fail(ctx, cb, err)
		}

		emitted := 0
		for {
			snap, err := snaps.Next(ctx)
			if err == io.EOF {
				cb("", true)
				return nil
			}
			if err != nil {
				return p.fail(ctx, cb, err)
			}
			if len(snap) > emitted {
				cb(snap[emitted:], false)
				emitted = len(snap)
			}
		}
	})
}

// structuredPayload is the single success payload of a structured stream.
type structuredPayload struct {
	Text   string `json:"text"`
	Object any    `json:"object"`
}

// StreamStructured starts a structured stream task: one non-incremental
// runtime request whose result is delivered as a single {"text","object"}
// payload followed by the sentinel.
func (p *Pool) StreamStructured(ctx context.Context, sess runtime.Session, prompt runtime.Prompt, root runtime.Schema, deps []runtime.NamedSchema, cb Callback, onFinish func(error)) {
	p.start(ctx, onFinish, func(ctx context.Context) error {
		content, text, err := sess.RespondStructured(ctx, prompt, root, deps)
		if err != nil {
			return p.fail(ctx, cb, err)
		}
		payload, err := json.Marshal(structuredPayload{Text: text, Object: contentcodec.ToValue(content)})
		if err != nil {
			return p.fail(ctx, cb, fmt.Errorf("encoding structured result: %w", err))
		}
		cb(string(payload), false)
		cb("", true)
		return nil
	})
}

// fail reports err through the callback channel. A cancelled stream stops
// silently: no payload, no sentinel. Any other failure emits the error
// payload followed by the terminal sentinel, so the termination contract is
// uniform across stream kinds.
func (p *Pool) fail(ctx context.Context, cb Callback, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	p.log.Debug("streaming.fail", slog.String("err", err.Error()))
	cb(p.format(err), false)
	cb("", true)
	return err
}

// RunSync runs op as its own task and blocks until it completes, returning
// either the success value or an error payload. Faults never propagate: a
// panicking op is reported as an error payload.
//
// RunSync must not be called from a task running on the bounded streaming
// pool (for example, from inside a tool callback invoked during a stream);
// the pool could starve waiting on itself. Such calls are refused with an
// error payload instead of blocking.
func (p *Pool) RunSync(ctx context.Context, op func(ctx context.Context) (string, error)) string {
	if onPool(ctx) {
		return p.format(ErrPoolReentry)
	}

	type outcome struct {
		val string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("operation panicked: %v", r)}
			}
		}()
		val, err := op(ctx)
		done <- outcome{val: val, err: err}
	}()

	out := <-done
	if out.err != nil {
		return p.format(out.err)
	}
	return out.val
}
