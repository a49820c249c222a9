package main

import (
	"go.uber.org/fx"

	"github.com/freightdesk/freightdesk/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
