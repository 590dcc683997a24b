package catalog

import "context"

type Repository interface {
	Save(ctx context.Context, size *PrintSize) error
	GetByCode(ctx context.Context, code string) (*PrintSize, error)
	ListActive(ctx context.Context) ([]*PrintSize, error)
}
