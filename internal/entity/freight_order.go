package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Status tracks the freight order lifecycle. Transitions are monotonic:
// New -> Responded -> Completed. A reversal re-creates rows in New.
type Status string

const (
	StatusNew       Status = "new"
	StatusResponded Status = "responded"
	StatusCompleted Status = "completed"
)

// Address is a structured postal address stored alongside the order.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}

// Contact identifies a person reachable at loading or unloading.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Stop is one entry in an ordered route sequence shared by a consolidated group.
type Stop struct {
	Position int    `json:"position"`
	Address  string `json:"address"`
}

// DispatchResponse carries the carrier's answer to an order: who drives,
// with what vehicle, for how much and when. On a consolidation main it also
// holds the group totals and the per-order price breakdown.
type DispatchResponse struct {
	DriverName       string                    `json:"driver_name"`
	DriverPhone      string                    `json:"driver_phone"`
	VehicleID        string                    `json:"vehicle_id,omitempty"`
	AllocatedPrice   decimal.Decimal           `json:"allocated_price"`
	TotalGroupPrice  *decimal.Decimal          `json:"total_group_price,omitempty"`
	PriceBreakdown   map[int64]decimal.Decimal `json:"price_breakdown,omitempty"`
	GoodsPrice       *decimal.Decimal          `json:"goods_price,omitempty"`
	CargoWeight      *decimal.Decimal          `json:"cargo_weight,omitempty"`
	CargoDescription string                    `json:"cargo_description,omitempty"`
	VehicleType      string                    `json:"vehicle_type"`
	TransportType    string                    `json:"transport_type"`
	TransportDate    time.Time                 `json:"transport_date"`
	TotalDistance    *decimal.Decimal          `json:"total_distance,omitempty"`
	RouteSequence    []Stop                    `json:"route_sequence,omitempty"`
	Notes            string                    `json:"notes,omitempty"`
}

// FreightOrder represents a single shipment request stored in the relational database.
type FreightOrder struct {
	bun.BaseModel `bun:"table:freight_orders"`

	ID     int64  `bun:",pk,autoincrement"`
	Number string `bun:"number"`
	Status Status `bun:"status"`

	ClientName         string           `bun:"client_name"`
	Origin             string           `bun:"origin"`
	OriginAddress      Address          `bun:"origin_address,type:jsonb"`
	DestinationAddress Address          `bun:"destination_address,type:jsonb"`
	LoadingContact     Contact          `bun:"loading_contact,type:jsonb"`
	UnloadingContact   Contact          `bun:"unloading_contact,type:jsonb"`
	DeliveryDate       *time.Time       `bun:"delivery_date"`
	Documents          string           `bun:"documents"`
	DistanceKM         *decimal.Decimal `bun:"distance_km"`
	Cargo              string           `bun:"cargo"`
	MPK                string           `bun:"mpk"`
	Notes              string           `bun:"notes"`

	CreatedBy          string `bun:"created_by"`
	CreatedByContact   string `bun:"created_by_contact"`
	ResponsibleName    string `bun:"responsible_name"`
	ResponsibleContact string `bun:"responsible_contact"`

	DispatchResponse  *DispatchResponse  `bun:"dispatch_response,type:jsonb,nullzero"`
	ConsolidationMeta *ConsolidationMeta `bun:"consolidation_meta,type:jsonb,nullzero"`

	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	RespondedAt *time.Time `bun:"responded_at"`
	CompletedAt *time.Time `bun:"completed_at"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero"`
}

// IsCollapsed reports whether this row stands in for several collapsed orders.
func (o *FreightOrder) IsCollapsed() bool {
	return o.ConsolidationMeta != nil && o.ConsolidationMeta.Kind == ConsolidationCollapsed
}

// Snapshot captures the business fields of the order as stored on a collapsed row.
func (o *FreightOrder) Snapshot() OrderSnapshot {
	return OrderSnapshot{
		OrderNumber:        o.Number,
		ClientName:         o.ClientName,
		Origin:             o.Origin,
		OriginAddress:      o.OriginAddress,
		DestinationAddress: o.DestinationAddress,
		LoadingContact:     o.LoadingContact,
		UnloadingContact:   o.UnloadingContact,
		DeliveryDate:       o.DeliveryDate,
		Documents:          o.Documents,
		DistanceKM:         o.DistanceKM,
		Cargo:              o.Cargo,
		MPK:                o.MPK,
		Notes:              o.Notes,
		CreatedBy:          o.CreatedBy,
		CreatedByContact:   o.CreatedByContact,
		ResponsibleName:    o.ResponsibleName,
		ResponsibleContact: o.ResponsibleContact,
	}
}
