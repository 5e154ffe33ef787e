package repository

import (
	"context"

	"scanndine/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return storeErr("create user", r.DB.WithContext(ctx).Create(user).Error)
}

// CreateApproved inserts a user and flips the approval flag in the same
// transaction. The create hook always starts staff unapproved; this is the
// admin path that approves at creation time.
func (r *UserRepository) CreateApproved(ctx context.Context, user *model.User) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if err := tx.Model(user).UpdateColumn("is_approved", true).Error; err != nil {
			return err
		}
		user.IsApproved = true
		return nil
	})
	return storeErr("create approved user", err)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, storeErr("find user", err)
	}
	return &user, nil
}

// FindByEmail looks a user up by email, narrowed to role when role is set.
func (r *UserRepository) FindByEmail(ctx context.Context, email string, role model.UserRole) (*model.User, error) {
	q := r.DB.WithContext(ctx).Where("email = ?", email)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var user model.User
	if err := q.First(&user).Error; err != nil {
		return nil, storeErr("find user by email", err)
	}
	return &user, nil
}

func (r *UserRepository) EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var count int64
	q := r.DB.WithContext(ctx).Model(&model.User{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, storeErr("count users by email", err)
	}
	return count > 0, nil
}

func (r *UserRepository) ExistsWithRole(ctx context.Context, role model.UserRole) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&model.User{}).Where("role = ?", role).Count(&count).Error; err != nil {
		return false, storeErr("count users by role", err)
	}
	return count > 0, nil
}

// ListStaff returns staff accounts with the given approval state, oldest first.
func (r *UserRepository) ListStaff(ctx context.Context, approved bool) ([]model.User, error) {
	var users []model.User
	err := r.DB.WithContext(ctx).
		Where("role = ? AND is_approved = ?", model.RoleStaff, approved).
		Order("created_at ASC").
		Find(&users).Error
	return users, storeErr("list staff", err)
}

// Update writes the given columns on one user.
func (r *UserRepository) Update(ctx context.Context, id uint, updates map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return storeErr("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetApproved(ctx context.Context, id uint) error {
	err := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).UpdateColumn("is_approved", true).Error
	return storeErr("approve user", err)
}

// Delete physically removes a user.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&model.User{}, id)
	if res.Error != nil {
		return storeErr("delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStaff removes a staff member together with the queries they sent.
// Both deletes commit or neither does.
func (r *UserRepository) DeleteStaff(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("staff_id = ?", id).Delete(&model.Query{}).Error; err != nil {
			return storeErr("delete staff queries", err)
		}
		res := tx.Delete(&model.User{}, id)
		if res.Error != nil {
			return storeErr("delete user", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
