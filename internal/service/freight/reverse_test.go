package freight_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk/internal/entity"
	repo "github.com/freightdesk/freightdesk/internal/repository/freight"
	service "github.com/freightdesk/freightdesk/internal/service/freight"
	"github.com/freightdesk/freightdesk/pkg/errorbank"
)

var admin = service.Actor{Name: "Root Admin", Email: "root@freightdesk.local", Admin: true}

// seedCollapsed inserts a collapsed stand-in for a merged group of two orders.
func seedCollapsed(t *testing.T, r *repo.Repository) *entity.FreightOrder {
	t.Helper()
	collapsed := &entity.FreightOrder{
		Number:             "0005/6/2024",
		Status:             entity.StatusResponded,
		ClientName:         "Nordbau GmbH",
		Origin:             "Central warehouse",
		OriginAddress:      entity.Address{Street: "Lagerstrasse 12", City: "Szczecin", PostalCode: "70-001"},
		DestinationAddress: entity.Address{Street: "Bauweg 4", City: "Berlin", PostalCode: "10115"},
		LoadingContact:     entity.Contact{Name: "Marek Zieliński", Phone: "600100200"},
		Cargo:              "Scaffolding elements",
		MPK:                "MPK-1042",
		Notes:              "Group of June loads (merged 2 orders)",
		CreatedBy:          "intake@freightdesk.local",
		CreatedAt:          time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC),
		ConsolidationMeta: entity.Collapsed([]entity.OrderSnapshot{
			{
				OrderNumber:        "0001/6/2024",
				ClientName:         "Nordbau GmbH",
				OriginAddress:      entity.Address{Street: "Lagerstrasse 12", City: "Szczecin", PostalCode: "70-001"},
				DestinationAddress: entity.Address{Street: "Bauweg 4", City: "Berlin", PostalCode: "10115"},
				LoadingContact:     entity.Contact{Name: "Marek Zieliński", Phone: "600100200"},
				Cargo:              "Scaffolding elements",
				MPK:                "MPK-1042",
				CreatedBy:          "intake@freightdesk.local",
			},
			{
				OrderNumber:        "0002/6/2024",
				ClientName:         "Hafenbau AG",
				OriginAddress:      entity.Address{Street: "Lagerstrasse 12", City: "Szczecin", PostalCode: "70-001"},
				DestinationAddress: entity.Address{Street: "Kaistrasse 9", City: "Hamburg", PostalCode: "20457"},
				UnloadingContact:   entity.Contact{Name: "Petra Lange", Phone: "+49301234567"},
				Cargo:              "Steel beams",
				MPK:                "MPK-2001",
				Notes:              "fragile",
			},
		}),
	}
	require.NoError(t, r.Insert(context.Background(), collapsed))
	return collapsed
}

func TestReverseRestoresCollapsedGroup(t *testing.T) {
	ctx := context.Background()
	svc, r := newService(t)
	collapsed := seedCollapsed(t, r)
	seedNew(t, r, "0007/6/2024") // highest assigned number in the period

	result, err := svc.Reverse(ctx, collapsed.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, 3, result.RestoredCount)
	assert.Equal(t, "0008/6/2024", result.Numbers.Main)
	assert.Equal(t, []string{"0009/6/2024", "0010/6/2024"}, result.Numbers.Members)

	// The collapsed stand-in is gone.
	_, err = r.GetByID(ctx, collapsed.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	main, err := r.GetByNumber(ctx, "0008/6/2024")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNew, main.Status)
	assert.Nil(t, main.ConsolidationMeta)
	assert.Nil(t, main.DispatchResponse)
	assert.Equal(t, "Nordbau GmbH", main.ClientName)
	assert.Equal(t, collapsed.OriginAddress, main.OriginAddress)
	assert.NotContains(t, main.Notes, "(merged")
	assert.Contains(t, main.Notes, "Group of June loads")
	assert.Contains(t, main.Notes, "Consolidation reversed by Root Admin at ")

	first, err := r.GetByNumber(ctx, "0009/6/2024")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNew, first.Status)
	assert.Nil(t, first.ConsolidationMeta)
	assert.Equal(t, "Nordbau GmbH", first.ClientName)
	assert.Equal(t, "MPK-1042", first.MPK)
	assert.Contains(t, first.Notes, "Restored from consolidated order 0005/6/2024")
	assert.Contains(t, first.Notes, "Consolidation reversed by Root Admin")

	second, err := r.GetByNumber(ctx, "0010/6/2024")
	require.NoError(t, err)
	assert.Equal(t, "Hafenbau AG", second.ClientName)
	assert.Equal(t, "MPK-2001", second.MPK)
	assert.Equal(t, "Steel beams", second.Cargo)
	assert.Equal(t, entity.Contact{Name: "Petra Lange", Phone: "+49301234567"}, second.UnloadingContact)
	assert.Contains(t, second.Notes, "fragile")
	assert.Contains(t, second.Notes, "Restored from consolidated order 0005/6/2024")
}

func TestReverseRequiresAdmin(t *testing.T) {
	svc, r := newService(t)
	collapsed := seedCollapsed(t, r)

	_, err := svc.Reverse(context.Background(), collapsed.ID, service.Actor{Name: "Regular User"})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindForbidden, errorbank.From(err).Kind())

	// The collapsed row stays untouched.
	got, lookupErr := r.GetByID(context.Background(), collapsed.ID)
	require.NoError(t, lookupErr)
	assert.True(t, got.IsCollapsed())
}

func TestReverseUnknownOrder(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Reverse(context.Background(), 9999, admin)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestReverseRejectsNonCollapsedOrder(t *testing.T) {
	ctx := context.Background()
	svc, r := newService(t)
	order := seedNew(t, r, "0001/6/2024")

	_, err := svc.Reverse(ctx, order.ID, admin)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	// A consolidation main is not reversible either, only the collapsed stand-in.
	order.ConsolidationMeta = entity.MainOf([]int64{order.ID})
	require.NoError(t, r.Update(ctx, order))
	_, err = svc.Reverse(ctx, order.ID, admin)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestReverseRejectsEmptySnapshots(t *testing.T) {
	ctx := context.Background()
	svc, r := newService(t)
	order := seedNew(t, r, "0001/6/2024")
	order.ConsolidationMeta = entity.Collapsed(nil)
	require.NoError(t, r.Update(ctx, order))

	_, err := svc.Reverse(ctx, order.ID, admin)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestReverseRollsBackOnNumberCollision(t *testing.T) {
	ctx := context.Background()
	svc, r := newService(t)
	collapsed := seedCollapsed(t, r)

	// Force the reservation to start at 0008 and occupy 0009 so the second
	// restore insert hits the unique index on number.
	_, err := r.NextSequenceRange(ctx, entity.Period{Month: time.June, Year: 2024}, 0, 7)
	require.NoError(t, err)
	seedNew(t, r, "0009/6/2024")

	_, err = svc.Reverse(ctx, collapsed.ID, admin)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindInternal, errorbank.From(err).Kind())

	// Nothing from the failed reversal survived.
	got, lookupErr := r.GetByID(ctx, collapsed.ID)
	require.NoError(t, lookupErr)
	assert.True(t, got.IsCollapsed())
	_, err = r.GetByNumber(ctx, "0008/6/2024")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}
