package freight_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/freightdesk/freightdesk/internal/config"
	"github.com/freightdesk/freightdesk/internal/database/databasetest"
	"github.com/freightdesk/freightdesk/internal/entity"
	repo "github.com/freightdesk/freightdesk/internal/repository/freight"
	service "github.com/freightdesk/freightdesk/internal/service/freight"
	"github.com/freightdesk/freightdesk/internal/service/sequence"
	freighthttp "github.com/freightdesk/freightdesk/internal/transport/http/freight"
)

func newEcho(t *testing.T) (*echo.Echo, *repo.Repository) {
	t.Helper()
	r := repo.NewRepository(databasetest.New(t))
	seq := sequence.NewSequencer(sequence.Params{Repository: r, Logger: zap.NewNop()})
	svc := service.NewService(service.Params{
		Repository: r,
		Sequencer:  seq,
		Config:     config.Config{},
		Logger:     zap.NewNop(),
	})

	e := echo.New()
	freighthttp.Register(e, freighthttp.NewHandler(svc))
	return e, r
}

func seedOrder(t *testing.T, r *repo.Repository, number string) *entity.FreightOrder {
	t.Helper()
	order := &entity.FreightOrder{
		Number:     number,
		Status:     entity.StatusNew,
		ClientName: "Nordbau GmbH",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, r.Insert(context.Background(), order))
	return order
}

func TestGetFreightOrder(t *testing.T) {
	e, r := newEcho(t)
	order := seedOrder(t, r, "0001/6/2024")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/freight-orders/%d", order.ID), nil)
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			ID     int64  `json:"id"`
			Number string `json:"number"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, order.ID, body.Data.ID)
	assert.Equal(t, "0001/6/2024", body.Data.Number)
	assert.Equal(t, "new", body.Data.Status)
}

func TestGetFreightOrderNotFound(t *testing.T) {
	e, _ := newEcho(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/freight-orders/9999", nil)
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetFreightOrderInvalidID(t *testing.T) {
	e, _ := newEcho(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/freight-orders/abc", nil)
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConsolidateEndpoint(t *testing.T) {
	e, r := newEcho(t)
	a := seedOrder(t, r, "0001/6/2024")
	b := seedOrder(t, r, "0002/6/2024")

	payload := fmt.Sprintf(`{
		"order_ids": [%d, %d],
		"driver_name": "Jan Kowalski",
		"driver_phone": "600000000",
		"total_price": "500",
		"price_breakdown": {"%d": "300", "%d": "200"},
		"transport_date": "2024-06-01",
		"vehicle_type": "bus",
		"transport_type": "domestic"
	}`, a.ID, b.ID, a.ID, b.ID)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/freight-orders/consolidate", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			MainOrderID int64   `json:"main_order_id"`
			MergedCount int     `json:"merged_count"`
			OrderIDs    []int64 `json:"order_ids"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, a.ID, body.Data.MainOrderID)
	assert.Equal(t, 2, body.Data.MergedCount)

	got, err := r.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusResponded, got.Status)
}

func TestConsolidateEndpointValidation(t *testing.T) {
	e, _ := newEcho(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/freight-orders/consolidate", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Kind    string         `json:"kind"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "bad_request", body.Error.Kind)
	assert.Contains(t, body.Error.Details, "fields")
}

func TestReverseEndpointRequiresAdmin(t *testing.T) {
	e, r := newEcho(t)
	collapsed := seedOrder(t, r, "0005/6/2024")
	collapsed.ConsolidationMeta = entity.Collapsed([]entity.OrderSnapshot{{OrderNumber: "0001/6/2024"}})
	require.NoError(t, r.Update(context.Background(), collapsed))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/freight-orders/%d/reverse", collapsed.ID), nil)
	req.Header.Set("X-Actor-Name", "Regular User")
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReverseEndpoint(t *testing.T) {
	e, r := newEcho(t)
	collapsed := seedOrder(t, r, "0005/6/2024")
	collapsed.ConsolidationMeta = entity.Collapsed([]entity.OrderSnapshot{
		{OrderNumber: "0001/6/2024", ClientName: "Nordbau GmbH"},
		{OrderNumber: "0002/6/2024", ClientName: "Hafenbau AG"},
	})
	require.NoError(t, r.Update(context.Background(), collapsed))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/freight-orders/%d/reverse", collapsed.ID), nil)
	req.Header.Set("X-Actor-Name", "Root Admin")
	req.Header.Set("X-Actor-Email", "root@freightdesk.local")
	req.Header.Set("X-Actor-Role", "admin")
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			RestoredCount int `json:"restored_count"`
			OrderNumbers  struct {
				Main    string   `json:"main"`
				Members []string `json:"members"`
			} `json:"order_numbers"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 3, body.Data.RestoredCount)
	assert.Equal(t, "0006/6/2024", body.Data.OrderNumbers.Main)
	assert.Len(t, body.Data.OrderNumbers.Members, 2)
}
