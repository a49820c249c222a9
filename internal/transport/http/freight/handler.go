package freight

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/freightdesk/freightdesk/internal/dto"
	"github.com/freightdesk/freightdesk/internal/entity"
	"github.com/freightdesk/freightdesk/internal/presentation/http/response"
	service "github.com/freightdesk/freightdesk/internal/service/freight"
	"github.com/freightdesk/freightdesk/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/freightdesk/freightdesk/transport/http/freight")

// Handler exposes freight order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a freight Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo group.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/freight-orders")
	g.GET("/:id", h.getByID)
	g.POST("/consolidate", h.consolidate)
	g.POST("/:id/reverse", h.reverse)
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "freight-orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) consolidate(c echo.Context) error {
	b := response.New(c)

	var payload dto.ConsolidateOrdersRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	transportDate, err := parseDate(payload.TransportDate)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid transport_date", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "freight-orders.consolidate", trace.WithAttributes(
		attribute.Int("order.count", len(payload.OrderIDs)),
	))
	defer span.End()

	result, err := h.svc.Consolidate(ctx, service.ConsolidateInput{
		OrderIDs:         payload.OrderIDs,
		DriverName:       payload.DriverName,
		DriverPhone:      payload.DriverPhone,
		VehicleID:        payload.VehicleID,
		TotalPrice:       payload.TotalPrice,
		PriceBreakdown:   payload.PriceBreakdown,
		TransportDate:    transportDate,
		VehicleType:      payload.VehicleType,
		TransportType:    payload.TransportType,
		RouteSequence:    payload.RouteSequence,
		Notes:            payload.Notes,
		CargoDescription: payload.CargoDescription,
		TotalWeight:      payload.TotalWeight,
		TotalDistance:    payload.TotalDistance,
		GoodsPrice:       payload.GoodsPrice,
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.ConsolidateOrdersResponse{
		MainOrderID: result.MainOrderID,
		MergedCount: result.MergedCount,
		OrderIDs:    result.OrderIDs,
	}).Build()
}

func (h *Handler) reverse(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "freight-orders.reverse", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	result, err := h.svc.Reverse(ctx, id, actorFrom(c))
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.ReverseConsolidationResponse{
		RestoredCount: result.RestoredCount,
		OrderNumbers: dto.RestoredOrderNumbers{
			Main:    result.Numbers.Main,
			Members: result.Numbers.Members,
		},
	}).Build()
}

// actorFrom lifts the caller identity placed in headers by the upstream
// authentication layer. Authentication itself happens outside this service.
func actorFrom(c echo.Context) service.Actor {
	return service.Actor{
		Name:  c.Request().Header.Get("X-Actor-Name"),
		Email: c.Request().Header.Get("X-Actor-Email"),
		Admin: strings.EqualFold(c.Request().Header.Get("X-Actor-Role"), "admin"),
	}
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func toDTO(order *entity.FreightOrder) dto.FreightOrderResponse {
	return dto.FreightOrderResponse{
		ID:                 order.ID,
		Number:             order.Number,
		Status:             string(order.Status),
		ClientName:         order.ClientName,
		Origin:             order.Origin,
		OriginAddress:      order.OriginAddress,
		DestinationAddress: order.DestinationAddress,
		LoadingContact:     order.LoadingContact,
		UnloadingContact:   order.UnloadingContact,
		DeliveryDate:       order.DeliveryDate,
		Documents:          order.Documents,
		DistanceKM:         order.DistanceKM,
		Cargo:              order.Cargo,
		MPK:                order.MPK,
		Notes:              order.Notes,
		DispatchResponse:   order.DispatchResponse,
		ConsolidationMeta:  order.ConsolidationMeta,
		CreatedAt:          order.CreatedAt,
		RespondedAt:        order.RespondedAt,
		CompletedAt:        order.CompletedAt,
		UpdatedAt:          order.UpdatedAt,
	}
}
