package freight_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/freightdesk/freightdesk/internal/config"
	"github.com/freightdesk/freightdesk/internal/database/databasetest"
	"github.com/freightdesk/freightdesk/internal/entity"
	repo "github.com/freightdesk/freightdesk/internal/repository/freight"
	service "github.com/freightdesk/freightdesk/internal/service/freight"
	"github.com/freightdesk/freightdesk/internal/service/sequence"
	"github.com/freightdesk/freightdesk/pkg/errorbank"
)

func newService(t *testing.T) (*service.Service, *repo.Repository) {
	t.Helper()
	r := repo.NewRepository(databasetest.New(t))
	seq := sequence.NewSequencer(sequence.Params{Repository: r, Logger: zap.NewNop()})
	svc := service.NewService(service.Params{
		Repository: r,
		Sequencer:  seq,
		Config:     config.Config{},
		Logger:     zap.NewNop(),
	})
	return svc, r
}

func seedNew(t *testing.T, r *repo.Repository, number string) *entity.FreightOrder {
	t.Helper()
	order := &entity.FreightOrder{
		Number:     number,
		Status:     entity.StatusNew,
		ClientName: "Nordbau GmbH",
		MPK:        "MPK-1042",
		CreatedAt:  time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, r.Insert(context.Background(), order))
	return order
}

func validInput(ids ...int64) service.ConsolidateInput {
	return service.ConsolidateInput{
		OrderIDs:      ids,
		DriverName:    "Jan Kowalski",
		DriverPhone:   "600000000",
		TotalPrice:    decimal.NewFromInt(500),
		TransportDate: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		VehicleType:   "bus",
		TransportType: "domestic",
	}
}

func TestConsolidateTwoOrdersWithBreakdown(t *testing.T) {
	ctx := context.Background()
	svc, r := newService(t)
	a := seedNew(t, r, "0001/6/2024")
	b := seedNew(t, r, "0002/6/2024")

	in := validInput(a.ID, b.ID)
	in.PriceBreakdown = map[int64]decimal.Decimal{
		a.ID: decimal.NewFromInt(300),
		b.ID: decimal.NewFromInt(200),
	}

	result, err := svc.Consolidate(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, a.ID, result.MainOrderID)
	assert.Equal(t, 2, result.MergedCount)
	assert.Equal(t, []int64{a.ID, b.ID}, result.OrderIDs)

	main, err := r.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusResponded, main.Status)
	require.NotNil(t, main.RespondedAt)
	require.NotNil(t, main.DispatchResponse)
	assert.Equal(t, "Jan Kowalski", main.DispatchResponse.DriverName)
	assert.Equal(t, "600000000", main.DispatchResponse.DriverPhone)
	assert.True(t, main.DispatchResponse.AllocatedPrice.Equal(decimal.NewFromInt(300)))
	require.NotNil(t, main.DispatchResponse.TotalGroupPrice)
	assert.True(t, main.DispatchResponse.TotalGroupPrice.Equal(decimal.NewFromInt(500)))
	require.Len(t, main.DispatchResponse.PriceBreakdown, 2)
	require.NotNil(t, main.ConsolidationMeta)
	assert.Equal(t, entity.ConsolidationMain, main.ConsolidationMeta.Kind)
	assert.Equal(t, []int64{a.ID, b.ID}, main.ConsolidationMeta.MemberIDs)

	member, err := r.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusResponded, member.Status)
	require.NotNil(t, member.DispatchResponse)
	assert.True(t, member.DispatchResponse.AllocatedPrice.Equal(decimal.NewFromInt(200)))
	assert.Nil(t, member.DispatchResponse.TotalGroupPrice)
	assert.Empty(t, member.DispatchResponse.DriverName)
	assert.Equal(t, "bus", member.DispatchResponse.VehicleType)
	assert.Equal(t, "domestic", member.DispatchResponse.TransportType)
	assert.Contains(t, member.DispatchResponse.Notes, "Consolidated under order 0001/6/2024")
	require.NotNil(t, member.ConsolidationMeta)
	assert.Equal(t, entity.ConsolidationMember, member.ConsolidationMeta.Kind)
	assert.Equal(t, a.ID, member.ConsolidationMeta.MainID)
}

func TestConsolidateSplitsTotalEvenly(t *testing.T) {
	ctx := context.Background()
	svc, r := newService(t)
	a := seedNew(t, r, "0001/6/2024")
	b := seedNew(t, r, "0002/6/2024")
	c := seedNew(t, r, "0003/6/2024")

	in := validInput(a.ID, b.ID, c.ID)
	in.TotalPrice = decimal.NewFromInt(100)

	_, err := svc.Consolidate(ctx, in)
	require.NoError(t, err)

	share := decimal.NewFromFloat(33.33)
	for _, id := range []int64{a.ID, b.ID, c.ID} {
		order, err := r.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, order.DispatchResponse)
		assert.True(t, order.DispatchResponse.AllocatedPrice.Equal(share),
			"order %d allocated %s", id, order.DispatchResponse.AllocatedPrice)
	}
}

func TestConsolidateSingleOrderGetsNoGroupMeta(t *testing.T) {
	ctx := context.Background()
	svc, r := newService(t)
	a := seedNew(t, r, "0001/6/2024")

	result, err := svc.Consolidate(ctx, validInput(a.ID))
	require.NoError(t, err)
	assert.Equal(t, a.ID, result.MainOrderID)
	assert.Equal(t, 1, result.MergedCount)

	order, err := r.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusResponded, order.Status)
	require.NotNil(t, order.DispatchResponse)
	assert.True(t, order.DispatchResponse.AllocatedPrice.Equal(decimal.NewFromInt(500)))
	assert.Nil(t, order.DispatchResponse.TotalGroupPrice)
	assert.Nil(t, order.ConsolidationMeta)
}

func TestConsolidateMissingOrderLeavesNothingChanged(t *testing.T) {
	ctx := context.Background()
	svc, r := newService(t)
	a := seedNew(t, r, "0001/6/2024")

	_, err := svc.Consolidate(ctx, validInput(a.ID, 9999))
	require.Error(t, err)
	appErr := errorbank.From(err)
	assert.Equal(t, errorbank.KindNotFound, appErr.Kind())
	assert.Equal(t, []int64{9999}, appErr.Details()["ids"])

	order, err := r.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNew, order.Status)
	assert.Nil(t, order.DispatchResponse)
}

func TestConsolidateRejectsAlreadyRespondedOrders(t *testing.T) {
	ctx := context.Background()
	svc, r := newService(t)
	a := seedNew(t, r, "0001/6/2024")
	b := seedNew(t, r, "0002/6/2024")
	b.Status = entity.StatusResponded
	require.NoError(t, r.Update(ctx, b))

	_, err := svc.Consolidate(ctx, validInput(a.ID, b.ID))
	require.Error(t, err)
	appErr := errorbank.From(err)
	assert.Equal(t, errorbank.KindConflict, appErr.Kind())
	statuses, ok := appErr.Details()["statuses"].(map[int64]string)
	require.True(t, ok)
	assert.Equal(t, "responded", statuses[b.ID])

	order, err := r.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNew, order.Status)
}

func TestConsolidateRejectsCollapsedOrders(t *testing.T) {
	ctx := context.Background()
	svc, r := newService(t)
	a := seedNew(t, r, "0001/6/2024")
	b := seedNew(t, r, "0002/6/2024")
	b.ConsolidationMeta = entity.Collapsed([]entity.OrderSnapshot{{OrderNumber: "0009/5/2024"}})
	require.NoError(t, r.Update(ctx, b))

	_, err := svc.Consolidate(ctx, validInput(a.ID, b.ID))
	require.Error(t, err)
	appErr := errorbank.From(err)
	assert.Equal(t, errorbank.KindConflict, appErr.Kind())
	assert.Equal(t, []int64{b.ID}, appErr.Details()["ids"])
}

func TestConsolidateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Consolidate(ctx, service.ConsolidateInput{})
	require.Error(t, err)
	appErr := errorbank.From(err)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
	fields, ok := appErr.Details()["fields"].([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{
		"order_ids", "driver_name", "driver_phone", "total_price",
		"transport_date", "vehicle_type", "transport_type",
	}, fields)

	_, err = svc.Consolidate(ctx, validInput(1, 1))
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	in := validInput(1, 2)
	in.PriceBreakdown = map[int64]decimal.Decimal{1: decimal.NewFromInt(500)}
	_, err = svc.Consolidate(ctx, in)
	require.Error(t, err)
	appErr = errorbank.From(err)
	assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
	assert.Equal(t, []int64{2}, appErr.Details()["ids"])
}

func TestConsolidateManyOrders(t *testing.T) {
	ctx := context.Background()
	svc, r := newService(t)

	ids := make([]int64, 0, 5)
	for i := 1; i <= 5; i++ {
		order := seedNew(t, r, fmt.Sprintf("%04d/6/2024", i))
		ids = append(ids, order.ID)
	}

	in := validInput(ids...)
	in.TotalPrice = decimal.NewFromInt(1000)

	result, err := svc.Consolidate(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, ids[0], result.MainOrderID)
	assert.Equal(t, 5, result.MergedCount)

	for i, id := range ids {
		order, err := r.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusResponded, order.Status)
		require.NotNil(t, order.ConsolidationMeta)
		if i == 0 {
			assert.Equal(t, entity.ConsolidationMain, order.ConsolidationMeta.Kind)
		} else {
			assert.Equal(t, entity.ConsolidationMember, order.ConsolidationMeta.Kind)
			assert.Equal(t, ids[0], order.ConsolidationMeta.MainID)
		}
	}
}
