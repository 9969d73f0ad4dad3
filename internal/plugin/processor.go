package plugin

import "context"

// Processor is the single operation every plugin implements: run, mutating
// ctx and returning an error only for conditions the caller should treat as
// fatal to the request.
type Processor interface {
	Run(ctx context.Context, pc *Context) error
}

// Condition is the capability a processor may additionally expose so it can
// be referenced from `if`. Graph construction fails if an `if` references a
// tag that isn't a Condition.
type Condition interface {
	Check(ctx context.Context, pc *Context) (bool, error)
}

// ProcessorFunc adapts a plain function to the Processor interface, the way
// the teacher's handler functions are adapted into the resolver chain.
type ProcessorFunc func(ctx context.Context, pc *Context) error

// Run calls f.
func (f ProcessorFunc) Run(ctx context.Context, pc *Context) error { return f(ctx, pc) }

// Graph is the fully built, immutable plugin graph: every tag in it has
// already been resolved to a direct Processor handle at build time, so
// running it at request time never looks up a tag by name.
type Graph struct {
	Entry Processor
	Tags  map[string]Processor
}

// Run invokes the entry processor for a request.
func (g *Graph) Run(ctx context.Context, pc *Context) error {
	return g.Entry.Run(ctx, pc)
}
