package repo

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/levelup-backend/internal/docstore"
	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

// UserRepository stores users, partitioned by their own ID.
type UserRepository struct {
	*Repository[domain.User, *domain.User]
}

func NewUserRepository(c docstore.Container, opts ...Option) *UserRepository {
	return &UserRepository{NewRepository[domain.User](c, "User", opts...)}
}

// GetByGitHubID looks a user up by the identity provider's user id.
func (r *UserRepository) GetByGitHubID(ctx context.Context, githubID string) (domain.QueryResult[*domain.User], error) {
	if strings.TrimSpace(githubID) == "" {
		return domain.QueryResult[*domain.User]{}, errs.Validation("GitHubId", "GitHub id is required.")
	}
	return r.FindOne(ctx, githubID,
		"SELECT * FROM c WHERE c.githubId = @githubId",
		WithParam("githubId", githubID))
}

// GetByGitHubUsername matches the GitHub login case-insensitively.
func (r *UserRepository) GetByGitHubUsername(ctx context.Context, username string) (domain.QueryResult[*domain.User], error) {
	if strings.TrimSpace(username) == "" {
		return domain.QueryResult[*domain.User]{}, errs.Validation("GitHubUsername", "GitHub username is required.")
	}
	return r.FindOne(ctx, username,
		"SELECT * FROM c WHERE LOWER(c.githubUsername) = @username",
		WithParam("username", fold(username)))
}

func (r *UserRepository) GetByLeetCodeUsername(ctx context.Context, username string) (domain.QueryResult[*domain.User], error) {
	if strings.TrimSpace(username) == "" {
		return domain.QueryResult[*domain.User]{}, errs.Validation("LeetCodeUsername", "LeetCode username is required.")
	}
	return r.FindOne(ctx, username,
		"SELECT * FROM c WHERE c.leetCodeUsername = @username",
		WithParam("username", username))
}

// GetActiveUsers lists active users, most recently active first.
func (r *UserRepository) GetActiveUsers(ctx context.Context, limit int) (domain.QueryResult[[]*domain.User], error) {
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.isActive = true ORDER BY c.lastActiveAt DESC",
		WithLimit(limit))
}

func (r *UserRepository) GetBySquadID(ctx context.Context, squadID string) (domain.QueryResult[[]*domain.User], error) {
	if strings.TrimSpace(squadID) == "" {
		return domain.QueryResult[[]*domain.User]{}, errs.Validation("SquadId", "Squad id is required.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.squadId = @squadId ORDER BY c.displayName ASC",
		WithParam("squadId", squadID))
}

// SearchByDisplayName returns users whose display name contains term,
// ignoring case.
func (r *UserRepository) SearchByDisplayName(ctx context.Context, term string, limit int) (domain.QueryResult[[]*domain.User], error) {
	term = fold(term)
	if term == "" {
		return domain.QueryResult[[]*domain.User]{}, errs.Validation("Search", "Search term is required.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE CONTAINS(LOWER(c.displayName), @search) ORDER BY c.displayName ASC",
		WithParam("search", term), WithLimit(limit))
}

// fold trims s and lower-cases it for comparison against LOWER(...) in
// queries.
func fold(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}
