package admin

import (
	"context"

	"github.com/studybud/backend/internal/identity"
	"github.com/studybud/backend/internal/models"
)

// UserStore captures the user queries and admin edits the service relies on.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (models.User, error)
	List(ctx context.Context, page models.Page) ([]models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
	Recent(ctx context.Context, limit int) ([]models.User, error)
	Count(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
	CountByRole(ctx context.Context, role models.Role) (int, error)
	Update(ctx context.Context, id int64, update models.UserUpdate) error
	Delete(ctx context.Context, id int64) error
}

// CourseStore exposes the all-status course listing.
type CourseStore interface {
	ListAll(ctx context.Context, page models.Page) ([]models.CourseSummary, error)
	Count(ctx context.Context) (int, error)
}

// VideoCounter reports the platform-wide video total.
type VideoCounter interface {
	Count(ctx context.Context) (int, error)
}

// LoginLog reads and appends the login audit log.
type LoginLog interface {
	Record(ctx context.Context, activity models.LoginActivity) error
	List(ctx context.Context, page models.Page) ([]models.LoginActivity, error)
	Count(ctx context.Context) (int, error)
}

// Accounts creates users and sets passwords through the registration hashing path.
type Accounts interface {
	CreateUser(ctx context.Context, in identity.RegisterInput, role models.Role) (models.User, error)
	UpdatePassword(ctx context.Context, userID int64, password string) error
}

// SessionRevoker ends every session a user holds.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID int64) error
}

// SiteSettings lists and edits the site configuration.
type SiteSettings interface {
	List(ctx context.Context) ([]models.Setting, error)
	Update(ctx context.Context, key, value string) error
}
