package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConsolidationKind discriminates the consolidation representations an order can carry.
type ConsolidationKind string

const (
	// ConsolidationMain marks the representative of a live group; all member rows still exist.
	ConsolidationMain ConsolidationKind = "main_of"
	// ConsolidationMember marks a live group member pointing back at its main.
	ConsolidationMember ConsolidationKind = "member_of"
	// ConsolidationCollapsed marks a single row standing in for orders that no longer
	// exist as rows; their field sets survive only as snapshots.
	ConsolidationCollapsed ConsolidationKind = "collapsed"
)

// ConsolidationMeta is a tagged union over the three consolidation shapes.
// Exactly one payload is populated, selected by Kind.
type ConsolidationMeta struct {
	Kind      ConsolidationKind `json:"kind"`
	MemberIDs []int64           `json:"member_ids,omitempty"`
	MainID    int64             `json:"main_id,omitempty"`
	Snapshots []OrderSnapshot   `json:"snapshots,omitempty"`
}

// MainOf tags an order as the representative of a live group.
func MainOf(memberIDs []int64) *ConsolidationMeta {
	return &ConsolidationMeta{Kind: ConsolidationMain, MemberIDs: memberIDs}
}

// MemberOf tags an order as a member of the group represented by mainID.
func MemberOf(mainID int64) *ConsolidationMeta {
	return &ConsolidationMeta{Kind: ConsolidationMember, MainID: mainID}
}

// Collapsed tags an order as a collapsed group holding its constituents as snapshots.
func Collapsed(snapshots []OrderSnapshot) *ConsolidationMeta {
	return &ConsolidationMeta{Kind: ConsolidationCollapsed, Snapshots: snapshots}
}

// OrderSnapshot preserves the business-relevant fields of an order that was
// collapsed into a consolidated row, so a reversal can reconstruct it.
type OrderSnapshot struct {
	OrderNumber        string           `json:"order_number"`
	ClientName         string           `json:"client_name"`
	Origin             string           `json:"origin,omitempty"`
	OriginAddress      Address          `json:"origin_address"`
	DestinationAddress Address          `json:"destination_address"`
	LoadingContact     Contact          `json:"loading_contact"`
	UnloadingContact   Contact          `json:"unloading_contact"`
	DeliveryDate       *time.Time       `json:"delivery_date,omitempty"`
	Documents          string           `json:"documents,omitempty"`
	DistanceKM         *decimal.Decimal `json:"distance_km,omitempty"`
	Cargo              string           `json:"cargo,omitempty"`
	MPK                string           `json:"mpk,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	CreatedBy          string           `json:"created_by,omitempty"`
	CreatedByContact   string           `json:"created_by_contact,omitempty"`
	ResponsibleName    string           `json:"responsible_name,omitempty"`
	ResponsibleContact string           `json:"responsible_contact,omitempty"`
}

// Restore materialises a fresh order from the snapshot. The caller assigns the
// newly issued number and any provenance notes; the row always starts in New
// with no consolidation tag.
func (s OrderSnapshot) Restore() *FreightOrder {
	return &FreightOrder{
		Status:             StatusNew,
		ClientName:         s.ClientName,
		Origin:             s.Origin,
		OriginAddress:      s.OriginAddress,
		DestinationAddress: s.DestinationAddress,
		LoadingContact:     s.LoadingContact,
		UnloadingContact:   s.UnloadingContact,
		DeliveryDate:       s.DeliveryDate,
		Documents:          s.Documents,
		DistanceKM:         s.DistanceKM,
		Cargo:              s.Cargo,
		MPK:                s.MPK,
		Notes:              s.Notes,
		CreatedBy:          s.CreatedBy,
		CreatedByContact:   s.CreatedByContact,
		ResponsibleName:    s.ResponsibleName,
		ResponsibleContact: s.ResponsibleContact,
	}
}
