package chain

import "context"

// Factory creates chain clients. The base chain package cannot import the
// eth package without a cycle, so callers inject eth.NewFactory() or a test
// double.
type Factory interface {
	// NewClient creates a client for desc bound to rpcURL.
	NewClient(ctx context.Context, desc Descriptor, rpcURL string) (Client, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, desc Descriptor, rpcURL string) (Client, error)

// NewClient calls f.
func (f FactoryFunc) NewClient(ctx context.Context, desc Descriptor, rpcURL string) (Client, error) {
	return f(ctx, desc, rpcURL)
}

// Compile-time interface check
var _ Factory = FactoryFunc(nil)
