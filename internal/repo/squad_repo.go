package repo

import (
	"context"

	"github.com/tbourn/levelup-backend/internal/docstore"
	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

// SquadRepository stores squads, partitioned by their own ID.
type SquadRepository struct {
	*Repository[domain.Squad, *domain.Squad]
}

func NewSquadRepository(c docstore.Container, opts ...Option) *SquadRepository {
	return &SquadRepository{NewRepository[domain.Squad](c, "Squad", opts...)}
}

// GetRecruiting lists squads open to new members, strongest first.
func (r *SquadRepository) GetRecruiting(ctx context.Context, limit int) (domain.QueryResult[[]*domain.Squad], error) {
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.isRecruiting = true ORDER BY c.totalPoints DESC",
		WithLimit(limit))
}

func (r *SquadRepository) GetTopByPoints(ctx context.Context, limit int) (domain.QueryResult[[]*domain.Squad], error) {
	return r.Query(ctx, "SELECT * FROM c ORDER BY c.totalPoints DESC", WithLimit(limit))
}

func (r *SquadRepository) GetTopByWeeklyPoints(ctx context.Context, limit int) (domain.QueryResult[[]*domain.Squad], error) {
	return r.Query(ctx, "SELECT * FROM c ORDER BY c.weeklyPoints DESC", WithLimit(limit))
}

// SearchByName matches squad names containing term, ignoring case.
func (r *SquadRepository) SearchByName(ctx context.Context, term string, limit int) (domain.QueryResult[[]*domain.Squad], error) {
	term = fold(term)
	if term == "" {
		return domain.QueryResult[[]*domain.Squad]{}, errs.Validation("Search", "Search term is required.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE CONTAINS(LOWER(c.name), @search) ORDER BY c.totalPoints DESC",
		WithParam("search", term), WithLimit(limit))
}

// GetByTag lists squads carrying tag. Tags are stored lower-case.
func (r *SquadRepository) GetByTag(ctx context.Context, tag string) (domain.QueryResult[[]*domain.Squad], error) {
	tag = fold(tag)
	if tag == "" {
		return domain.QueryResult[[]*domain.Squad]{}, errs.Validation("Tag", "Tag is required.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE ARRAY_CONTAINS(c.tags, @tag) ORDER BY c.totalPoints DESC",
		WithParam("tag", tag))
}

// ExistsByName reports whether a squad with exactly this name, ignoring case,
// is stored.
func (r *SquadRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	res, err := r.Count(ctx,
		"SELECT * FROM c WHERE LOWER(c.name) = @name",
		WithParam("name", fold(name)))
	if err != nil {
		return false, err
	}
	return res.Value > 0, nil
}
