package spanrunner_test

import (
	"context"
	"errors"
	"fmt"

	spanrunner "github.com/Swind/go-span-runner"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ExampleTraced demonstrates a span following work onto a pool worker.
func ExampleTraced() {
	spanrunner.InitGlobalThreadPool(2)
	defer spanrunner.ShutdownGlobalThreadPool()

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	_, span := tp.Tracer("example").Start(context.Background(), "order-123")
	defer span.End()

	d := spanrunner.Activate(span)
	defer spanrunner.Deactivate(d)

	f := spanrunner.GlobalExecutor().SubmitCallable(func(ctx context.Context) (any, error) {
		active := spanrunner.ActiveSpan().(sdktrace.ReadOnlySpan)
		return active.Name(), nil
	})
	name, err := f.Get(context.Background())
	if err != nil {
		panic(err)
	}
	fmt.Println("worker saw:", name)

	// Output:
	// worker saw: order-123
}

// ExampleGoroutineThreadPool_InvokeAny shows the first successful result winning.
func ExampleGoroutineThreadPool_InvokeAny() {
	pool := spanrunner.NewGoroutineThreadPool("example-pool", 1)
	pool.Start(context.Background())
	defer pool.Stop()

	v, err := pool.InvokeAny(context.Background(), []spanrunner.Callable{
		func(ctx context.Context) (any, error) { return nil, errors.New("replica down") },
		func(ctx context.Context) (any, error) { return "replica-2", nil },
	})
	fmt.Println(v, err)

	// Output:
	// replica-2 <nil>
}
