package shared

import "context"

// Result 异步调用的返回值
type Result[T any] struct {
	Value T
	Err   error
}

// Async 在独立 goroutine 中执行阻塞调用，结果写入容量为 1 的通道
// 调用方可在结果与 ctx.Done() 之间 select；fn 自身负责响应 ctx 取消
func Async[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- Result[T]{Value: v, Err: err}
	}()
	return ch
}

// Await 等待异步结果，ctx 先结束时返回 ctx.Err()
func Await[T any](ctx context.Context, ch <-chan Result[T]) (T, error) {
	select {
	case r := <-ch:
		return r.Value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
