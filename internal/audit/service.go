package audit

import (
	"context"
	"log/slog"
)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns entries newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultLimit
	case filter.Limit > MaxLimit:
		filter.Limit = MaxLimit
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list audit entries", "error", err)
		return nil, err
	}

	entries := make([]*Entry, len(rows))
	for i, row := range rows {
		entries[i] = FromDataModel(row)
	}
	return entries, nil
}
