package shipment

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchRequest is one order of a ProvisionBatch call.
type BatchRequest struct {
	OrderID    int64      `json:"orderId"`
	Parameters Parameters `json:"parameters"`
}

// BatchResult is the outcome for one order of a ProvisionBatch call.
type BatchResult struct {
	OrderID  int64
	Document *ShipmentDocument
	Err      error
}

// ProvisionBatch provisions several orders concurrently. Each order still runs
// its own strictly sequential saga; a failure for one order never stops the
// others. Results keep the order of reqs.
func (p *Provisioner) ProvisionBatch(ctx context.Context, reqs []BatchRequest) []BatchResult {
	results := make([]BatchResult, len(reqs))

	g := new(errgroup.Group)
	g.SetLimit(p.config.BatchConcurrency)

	for i, req := range reqs {
		g.Go(func() error {
			doc, err := p.Provision(ctx, req.OrderID, req.Parameters)
			results[i] = BatchResult{OrderID: req.OrderID, Document: doc, Err: err}
			return nil // Don't fail the group, continue with other orders
		})
	}

	g.Wait()
	return results
}
