package shipment

import (
	"context"
	"strings"

	"github.com/tournevent/shipdoc/pkg/carrier/novaposhta"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// WarehouseResolver finds destination warehouses.
type WarehouseResolver struct {
	carrier *novaposhta.Client
	logger  *otelzap.Logger
}

// NewWarehouseResolver creates a new WarehouseResolver.
func NewWarehouseResolver(carrier *novaposhta.Client, logger *otelzap.Logger) *WarehouseResolver {
	return &WarehouseResolver{carrier: carrier, logger: logger}
}

// ResolveDestination returns the first warehouse of city matching the free
// text address. Ambiguous matches are not disambiguated: the carrier's first
// result wins.
func (r *WarehouseResolver) ResolveDestination(ctx context.Context, cityName, address string) (*Warehouse, error) {
	items, err := r.carrier.GetWarehouses(ctx, novaposhta.WarehousesRequest{
		CityName:     cityName,
		FindByString: address,
	})
	if err != nil {
		return nil, carrierFailure(StateDestinationResolved, CodeDestinationWarehouseNotFound,
			"warehouse lookup rejected", err)
	}
	if len(items) == 0 {
		return nil, NewProvisionError(CodeDestinationWarehouseNotFound, StateDestinationResolved,
			"no warehouse matches "+cityName+", "+address)
	}

	if len(items) > 1 {
		r.logger.Ctx(ctx).Debug("Several warehouses matched, using the first",
			zap.String("city", cityName),
			zap.Int("matches", len(items)),
		)
	}

	wh := items[0]
	return &Warehouse{
		Ref:          wh.Ref,
		Description:  wh.Description,
		ShortAddress: wh.ShortAddress,
		CityRef:      wh.CityRef,
		Index:        wh.WarehouseIndex,
	}, nil
}

// ExtractStreetAndBuilding parses a "<city>, <street>, <building>" short
// address. The street is the second segment and the building the last one;
// segments in between are ignored. Fewer than two segments is a
// MalformedAddress error; empty segments are returned as they are.
func ExtractStreetAndBuilding(shortAddress string) (StreetComponents, error) {
	parts := strings.Split(shortAddress, ",")
	if len(parts) < 2 {
		return StreetComponents{}, NewProvisionError(CodeMalformedAddress, StateRecipientAddressBound,
			"short address has fewer than two segments: "+shortAddress)
	}

	street := strings.TrimSpace(parts[1])
	building := strings.TrimSpace(parts[len(parts)-1])
	return StreetComponents{StreetName: street, BuildingNumber: building}, nil
}
