package memberships

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mozz-online/mozz-backend/pkg/db/models"
	"github.com/mozz-online/mozz-backend/pkg/enums"
)

// Repository exposes store_members persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// NormalizeEmail is the canonical stored form of a member address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ListUserStores returns the stores the user is an active member of.
func (r *Repository) ListUserStores(ctx context.Context, userID uuid.UUID) ([]MembershipWithStore, error) {
	var rows []membershipWithStoreRow
	err := r.db.WithContext(ctx).
		Model(&models.StoreMember{}).
		Select("store_members.id, store_members.store_id, store_members.role, stores.created_at, stores.name AS store_name, stores.owner_id").
		Joins("JOIN stores ON stores.id = store_members.store_id").
		Where("store_members.user_id = ? AND store_members.status = ?", userID, enums.MembershipStatusActive).
		Order("stores.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]MembershipWithStore, 0, len(rows))
	for _, row := range rows {
		out = append(out, MembershipWithStore{
			MembershipID: row.ID,
			StoreID:      row.StoreID,
			StoreName:    row.StoreName,
			OwnerID:      row.OwnerID,
			Role:         row.Role,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out, nil
}

// GetActiveMembership returns the user's active membership in the store.
func (r *Repository) GetActiveMembership(ctx context.Context, userID, storeID uuid.UUID) (*models.StoreMember, error) {
	var m models.StoreMember
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND store_id = ? AND status = ?", userID, storeID, enums.MembershipStatusActive).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByEmail returns the membership for (storeID, email) in any status.
func (r *Repository) GetByEmail(ctx context.Context, storeID uuid.UUID, email string) (*models.StoreMember, error) {
	var m models.StoreMember
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND LOWER(email) = ?", storeID, NormalizeEmail(email)).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create persists a membership after validating its role and status.
func (r *Repository) Create(ctx context.Context, m *models.StoreMember) error {
	if !m.Role.IsValid() {
		return fmt.Errorf("invalid member role %q", m.Role)
	}
	if !m.Status.IsValid() {
		return fmt.Errorf("invalid membership status %q", m.Status)
	}
	m.Email = NormalizeEmail(m.Email)
	return r.db.WithContext(ctx).Create(m).Error
}

// ActivateInvited flips the invited row for (storeID, email) to active and binds
// userID in a single conditional update. It returns the number of rows changed,
// which is 0 when no invited row exists or a concurrent caller won.
func (r *Repository) ActivateInvited(ctx context.Context, storeID uuid.UUID, email string, userID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StoreMember{}).
		Where("store_id = ? AND LOWER(email) = ? AND status = ?", storeID, NormalizeEmail(email), enums.MembershipStatusInvited).
		Updates(map[string]any{
			"status":       enums.MembershipStatusActive,
			"user_id":      userID,
			"activated_at": at,
			"updated_at":   at,
		})
	return res.RowsAffected, res.Error
}

// UserHasRole reports whether the user holds one of roles as an active member.
func (r *Repository) UserHasRole(ctx context.Context, userID, storeID uuid.UUID, roles ...enums.MemberRole) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StoreMember{}).
		Where("user_id = ? AND store_id = ? AND status = ? AND role IN ?", userID, storeID, enums.MembershipStatusActive, roles).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByStore returns every membership of the store, owners first then by email.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.StoreMember, error) {
	var rows []models.StoreMember
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("role DESC").
		Order("email ASC").
		Find(&rows).Error
	return rows, err
}

// CountActiveOwners counts active owner memberships of the store.
func (r *Repository) CountActiveOwners(ctx context.Context, storeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StoreMember{}).
		Where("store_id = ? AND role = ? AND status = ?", storeID, enums.MemberRoleOwner, enums.MembershipStatusActive).
		Count(&count).Error
	return count, err
}

// DeleteByEmail hard-deletes the membership for (storeID, email).
func (r *Repository) DeleteByEmail(ctx context.Context, storeID uuid.UUID, email string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("store_id = ? AND LOWER(email) = ?", storeID, NormalizeEmail(email)).
		Delete(&models.StoreMember{})
	return res.RowsAffected, res.Error
}

// DeleteByStore removes every membership of the store.
func (r *Repository) DeleteByStore(ctx context.Context, storeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Delete(&models.StoreMember{}).Error
}
