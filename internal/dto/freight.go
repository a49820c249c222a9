package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/freightdesk/freightdesk/internal/entity"
)

// ConsolidateOrdersRequest is the HTTP payload for the consolidate operation.
type ConsolidateOrdersRequest struct {
	OrderIDs         []int64                   `json:"order_ids"`
	DriverName       string                    `json:"driver_name"`
	DriverPhone      string                    `json:"driver_phone"`
	VehicleID        string                    `json:"vehicle_id,omitempty"`
	TotalPrice       decimal.Decimal           `json:"total_price"`
	PriceBreakdown   map[int64]decimal.Decimal `json:"price_breakdown,omitempty"`
	TransportDate    string                    `json:"transport_date"`
	VehicleType      string                    `json:"vehicle_type"`
	TransportType    string                    `json:"transport_type"`
	RouteSequence    []entity.Stop             `json:"route_sequence,omitempty"`
	Notes            string                    `json:"notes,omitempty"`
	CargoDescription string                    `json:"cargo_description,omitempty"`
	TotalWeight      *decimal.Decimal          `json:"total_weight,omitempty"`
	TotalDistance    *decimal.Decimal          `json:"total_distance,omitempty"`
	GoodsPrice       *decimal.Decimal          `json:"goods_price,omitempty"`
}

// ConsolidateOrdersResponse reports the outcome of a consolidation.
type ConsolidateOrdersResponse struct {
	MainOrderID int64   `json:"main_order_id"`
	MergedCount int     `json:"merged_count"`
	OrderIDs    []int64 `json:"order_ids"`
}

// ReverseConsolidationResponse reports the outcome of a reversal.
type ReverseConsolidationResponse struct {
	RestoredCount int                  `json:"restored_count"`
	OrderNumbers  RestoredOrderNumbers `json:"order_numbers"`
}

// RestoredOrderNumbers partitions freshly issued numbers by role.
type RestoredOrderNumbers struct {
	Main    string   `json:"main"`
	Members []string `json:"members"`
}

// FreightOrderResponse represents a freight order as exposed via transport layers.
type FreightOrderResponse struct {
	ID                 int64                     `json:"id"`
	Number             string                    `json:"number"`
	Status             string                    `json:"status"`
	ClientName         string                    `json:"client_name"`
	Origin             string                    `json:"origin,omitempty"`
	OriginAddress      entity.Address            `json:"origin_address"`
	DestinationAddress entity.Address            `json:"destination_address"`
	LoadingContact     entity.Contact            `json:"loading_contact"`
	UnloadingContact   entity.Contact            `json:"unloading_contact"`
	DeliveryDate       *time.Time                `json:"delivery_date,omitempty"`
	Documents          string                    `json:"documents,omitempty"`
	DistanceKM         *decimal.Decimal          `json:"distance_km,omitempty"`
	Cargo              string                    `json:"cargo,omitempty"`
	MPK                string                    `json:"mpk,omitempty"`
	Notes              string                    `json:"notes,omitempty"`
	DispatchResponse   *entity.DispatchResponse  `json:"dispatch_response,omitempty"`
	ConsolidationMeta  *entity.ConsolidationMeta `json:"consolidation_meta,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	RespondedAt        *time.Time                `json:"responded_at,omitempty"`
	CompletedAt        *time.Time                `json:"completed_at,omitempty"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}
