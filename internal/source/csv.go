package source

import (
	"context"
	"fmt"

	"reliability-insights/internal/config"
	"reliability-insights/internal/dataset"
)

// CSV источник журнала отказов из ранее выгруженного файла
type CSV struct {
	Path string
}

// Load читает журнал отказов из файла
func (c CSV) Load(ctx context.Context) (dataset.EventLoad, error) {
	if err := ctx.Err(); err != nil {
		return dataset.EventLoad{}, err
	}
	return dataset.ReadEvents(c.Path)
}

// Loader источник журнала отказов
type Loader interface {
	Load(ctx context.Context) (dataset.EventLoad, error)
}

// Open выбирает источник по source.kind. Возвращаемая функция освобождает подключение.
func Open(ctx context.Context, cfg *config.Config) (Loader, func() error, error) {
	switch cfg.Source.Kind {
	case config.SourcePostgres:
		filter, err := FilterFrom(cfg.Source)
		if err != nil {
			return nil, nil, err
		}
		db, err := Connect(ctx, cfg.Source)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgres(db, filter), db.Close, nil
	case config.SourceCSV, "":
		return CSV{Path: cfg.Data.Path(cfg.Data.RawEvents)}, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}
