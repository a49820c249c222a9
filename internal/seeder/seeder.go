package seeder

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/freightdesk/freightdesk/internal/database"
	"github.com/freightdesk/freightdesk/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Orders seeds example freight orders if they are missing.
func (s *Seeder) Orders(ctx context.Context) error {
	now := time.Now().UTC()
	period := entity.PeriodOf(now)
	samples := []entity.FreightOrder{
		{
			Number:     entity.FormatOrderNumber(1, period),
			Status:     entity.StatusNew,
			ClientName: "Nordbau GmbH",
			Origin:     "Central warehouse",
			OriginAddress: entity.Address{
				Street: "Lagerstrasse 12", City: "Szczecin", PostalCode: "70-001", Country: "PL",
			},
			DestinationAddress: entity.Address{
				Street: "Bauweg 4", City: "Berlin", PostalCode: "10115", Country: "DE",
			},
			LoadingContact:   entity.Contact{Name: "Marek Zieliński", Phone: "600100200"},
			UnloadingContact: entity.Contact{Name: "Petra Lange", Phone: "+49301234567"},
			Cargo:            "Scaffolding elements, 8 pallets",
			MPK:              "MPK-1042",
			CreatedBy:        "intake@freightdesk.local",
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			Number:     entity.FormatOrderNumber(2, period),
			Status:     entity.StatusNew,
			ClientName: "Nordbau GmbH",
			Origin:     "Central warehouse",
			OriginAddress: entity.Address{
				Street: "Lagerstrasse 12", City: "Szczecin", PostalCode: "70-001", Country: "PL",
			},
			DestinationAddress: entity.Address{
				Street: "Hafenallee 9", City: "Hamburg", PostalCode: "20095", Country: "DE",
			},
			LoadingContact:   entity.Contact{Name: "Marek Zieliński", Phone: "600100200"},
			UnloadingContact: entity.Contact{Name: "Jonas Weber", Phone: "+49407654321"},
			Cargo:            "Formwork panels, 4 pallets",
			MPK:              "MPK-1043",
			CreatedBy:        "intake@freightdesk.local",
			CreatedAt:        now,
			UpdatedAt:        now,
		},
	}

	for _, sample := range samples {
		order := sample
		_, err := s.db.NewInsert().Model(&order).
			On("CONFLICT (number) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded freight orders", zap.Int("count", len(samples)))
	}
	return nil
}
