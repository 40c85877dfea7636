package program

import (
	"context"

	"github.com/Brogede16/cinemateket-print-program/app/scrape"
)

type CalendarSource interface {
	Days(ctx context.Context) []scrape.DayBlock
}

type RegistrySource interface {
	Build(ctx context.Context) *scrape.SeriesRegistry
}

type DetailSource interface {
	Run(ctx context.Context, url string) (scrape.ItemDetail, error)
}

var _ RegistrySource = (*scrape.RegistryBuilder)(nil)
var _ DetailSource = (*scrape.DetailFetcher)(nil)
