package processors

import (
	"context"

	"github.com/tigerzhang/clean-dns/internal/plugin"
)

// Fallback runs Primary, and if it yields no acceptable response, clears
// the partial state and runs Secondary exactly once.
type Fallback struct {
	Primary   plugin.Processor
	Secondary plugin.Processor
}

func (f *Fallback) Run(ctx context.Context, pc *plugin.Context) error {
	if err := f.Primary.Run(ctx, pc); err != nil {
		return err
	}
	if pc.Response != nil && pc.Response.Header.RCode().Acceptable() {
		return nil
	}

	pc.Reset()
	return f.Secondary.Run(ctx, pc)
}
