package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk/internal/entity"
)

func TestConsolidationMetaConstructors(t *testing.T) {
	main := entity.MainOf([]int64{10, 11})
	assert.Equal(t, entity.ConsolidationMain, main.Kind)
	assert.Equal(t, []int64{10, 11}, main.MemberIDs)

	member := entity.MemberOf(10)
	assert.Equal(t, entity.ConsolidationMember, member.Kind)
	assert.Equal(t, int64(10), member.MainID)

	collapsed := entity.Collapsed([]entity.OrderSnapshot{{OrderNumber: "0001/6/2024"}})
	assert.Equal(t, entity.ConsolidationCollapsed, collapsed.Kind)
	require.Len(t, collapsed.Snapshots, 1)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	delivery := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	order := &entity.FreightOrder{
		ID:                 42,
		Number:             "0003/6/2024",
		Status:             entity.StatusResponded,
		ClientName:         "Nordbau GmbH",
		Origin:             "Central warehouse",
		OriginAddress:      entity.Address{Street: "Lagerstrasse 12", City: "Szczecin", PostalCode: "70-001"},
		DestinationAddress: entity.Address{Street: "Bauweg 4", City: "Berlin", PostalCode: "10115"},
		LoadingContact:     entity.Contact{Name: "Marek Zieliński", Phone: "600100200"},
		UnloadingContact:   entity.Contact{Name: "Petra Lange", Phone: "+49301234567"},
		DeliveryDate:       &delivery,
		Documents:          "CMR, delivery note",
		Cargo:              "Scaffolding elements",
		MPK:                "MPK-1042",
		Notes:              "call ahead",
		CreatedBy:          "intake@freightdesk.local",
		ResponsibleName:    "A. Nowak",
	}

	restored := order.Snapshot().Restore()

	assert.Equal(t, entity.StatusNew, restored.Status)
	assert.Empty(t, restored.Number)
	assert.Zero(t, restored.ID)
	assert.Nil(t, restored.ConsolidationMeta)
	assert.Nil(t, restored.DispatchResponse)

	assert.Equal(t, order.ClientName, restored.ClientName)
	assert.Equal(t, order.OriginAddress, restored.OriginAddress)
	assert.Equal(t, order.DestinationAddress, restored.DestinationAddress)
	assert.Equal(t, order.LoadingContact, restored.LoadingContact)
	assert.Equal(t, order.UnloadingContact, restored.UnloadingContact)
	assert.Equal(t, order.DeliveryDate, restored.DeliveryDate)
	assert.Equal(t, order.Documents, restored.Documents)
	assert.Equal(t, order.Cargo, restored.Cargo)
	assert.Equal(t, order.MPK, restored.MPK)
	assert.Equal(t, order.Notes, restored.Notes)
	assert.Equal(t, order.CreatedBy, restored.CreatedBy)
	assert.Equal(t, order.ResponsibleName, restored.ResponsibleName)
}
