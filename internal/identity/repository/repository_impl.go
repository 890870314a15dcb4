package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/officepulse/officepulse/internal/identity/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() identitydomain.Repository {
	return &repo{}
}

func (r *repo) FindByUPN(ctx context.Context, db *gorm.DB, upn string) (*identitydomain.User, error) {
	var user identitydomain.User
	err := db.WithContext(ctx).Where("user_principal_name = ?", upn).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*identitydomain.User, error) {
	var user identitydomain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]identitydomain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []identitydomain.User
	if err := db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, user *identitydomain.User) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_principal_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"azure_ad_id", "updated_at"}),
	}).Create(user).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, user *identitydomain.User) error {
	return db.WithContext(ctx).Save(user).Error
}
