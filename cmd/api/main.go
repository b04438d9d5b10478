package main

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/tableside/internal/app"
)

// main runs the API alone; the tableside CLI adds migrations, seeding and workers.
func main() {
	fx.New(app.Module, app.Logging).Run()
}
