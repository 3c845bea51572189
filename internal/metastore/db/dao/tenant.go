package dao

import (
	"errors"

	"github.com/ecotracker/fillstate/internal/common"
	"github.com/ecotracker/fillstate/internal/metastore/db/dbmodel"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type tenantDb struct {
	db *gorm.DB
}

var _ dbmodel.ITenantDb = &tenantDb{}

func (s *tenantDb) GetAllTenants() ([]*dbmodel.Tenant, error) {
	var tenants []*dbmodel.Tenant
	if err := s.db.Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (s *tenantDb) GetTenants(tenantID string) ([]*dbmodel.Tenant, error) {
	var tenants []*dbmodel.Tenant
	if err := s.db.Where("id = ?", tenantID).Find(&tenants).Error; err != nil {
		log.Error("GetTenants", zap.Error(err))
		return nil, err
	}
	return tenants, nil
}

func (s *tenantDb) Insert(in *dbmodel.Tenant) error {
	err := s.db.Create(in).Error
	if err != nil {
		log.Error("insert tenant failed", zap.String("tenantID", in.ID), zap.Error(err))
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.ErrTenantUniqueConstraintViolation
		}
		return err
	}
	return nil
}

func (s *tenantDb) DeleteAll() error {
	return s.db.Where("1 = 1").Delete(&dbmodel.Tenant{}).Error
}

type userDb struct {
	db *gorm.DB
}

var _ dbmodel.IUserDb = &userDb{}

func (s *userDb) GetByTenant(tenantID string) ([]*dbmodel.User, error) {
	var users []*dbmodel.User
	if err := s.db.Where("tenant_id = ?", tenantID).Find(&users).Error; err != nil {
		log.Error("GetByTenant users", zap.Error(err))
		return nil, err
	}
	return users, nil
}

func (s *userDb) GetByID(userID string) (*dbmodel.User, error) {
	var user dbmodel.User
	err := s.db.Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *userDb) Insert(in *dbmodel.User) error {
	return s.db.Create(in).Error
}

func (s *userDb) DeleteAll() error {
	return s.db.Where("1 = 1").Delete(&dbmodel.User{}).Error
}
