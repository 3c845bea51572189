package dao

import (
	"errors"

	"github.com/ecotracker/fillstate/internal/common"
	"github.com/ecotracker/fillstate/internal/metastore/db/dbmodel"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type locationDb struct {
	db *gorm.DB
}

var _ dbmodel.ILocationDb = &locationDb{}

func (s *locationDb) GetByID(locationID string) (*dbmodel.Location, error) {
	var location dbmodel.Location
	err := s.db.Where("id = ?", locationID).First(&location).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrLocationNotFound
		}
		log.Error("GetByID location", zap.String("locationID", locationID), zap.Error(err))
		return nil, err
	}
	return &location, nil
}

func (s *locationDb) GetByTenant(tenantID string) ([]*dbmodel.Location, error) {
	var locations []*dbmodel.Location
	if err := s.db.Where("tenant_id = ?", tenantID).Find(&locations).Error; err != nil {
		log.Error("GetByTenant locations", zap.Error(err))
		return nil, err
	}
	return locations, nil
}

func (s *locationDb) Insert(in *dbmodel.Location) error {
	err := s.db.Create(in).Error
	if err != nil {
		log.Error("insert location failed", zap.String("locationID", in.ID), zap.Error(err))
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.ErrLocationUniqueConstraintViolation
		}
		return err
	}
	return nil
}

func (s *locationDb) Update(in *dbmodel.Location) error {
	result := s.db.Model(&dbmodel.Location{}).Where("id = ?", in.ID).Updates(map[string]interface{}{
		"status":          in.Status,
		"last_full_at":    in.LastFullAt,
		"last_collection": in.LastCollection,
		"updated_at":      in.UpdatedAt,
	})
	if result.Error != nil {
		log.Error("update location failed", zap.String("locationID", in.ID), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrLocationNotFound
	}
	return nil
}

func (s *locationDb) DeleteByID(locationID string) error {
	// Containers and pickup history are owned by the location and go with it.
	err := s.db.Where("location_id = ?", locationID).Delete(&dbmodel.Container{}).Error
	if err != nil {
		return err
	}
	err = s.db.Where("location_id = ?", locationID).Delete(&dbmodel.PickupRecord{}).Error
	if err != nil {
		return err
	}
	return s.db.Where("id = ?", locationID).Delete(&dbmodel.Location{}).Error
}

func (s *locationDb) DeleteAll() error {
	return s.db.Where("1 = 1").Delete(&dbmodel.Location{}).Error
}

type containerDb struct {
	db *gorm.DB
}

var _ dbmodel.IContainerDb = &containerDb{}

func (s *containerDb) GetByID(containerID string) (*dbmodel.Container, error) {
	var container dbmodel.Container
	err := s.db.Where("id = ?", containerID).First(&container).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrContainerNotFound
		}
		log.Error("GetByID container", zap.String("containerID", containerID), zap.Error(err))
		return nil, err
	}
	return &container, nil
}

func (s *containerDb) GetByLocation(locationID string) ([]*dbmodel.Container, error) {
	var containers []*dbmodel.Container
	err := s.db.Where("location_id = ?", locationID).Order("number").Find(&containers).Error
	if err != nil {
		log.Error("GetByLocation containers", zap.Error(err))
		return nil, err
	}
	return containers, nil
}

func (s *containerDb) Insert(in *dbmodel.Container) error {
	err := s.db.Create(in).Error
	if err != nil {
		log.Error("insert container failed", zap.String("containerID", in.ID), zap.Error(err))
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.ErrContainerUniqueConstraintViolation
		}
		return err
	}
	return nil
}

func (s *containerDb) Update(in *dbmodel.Container) error {
	result := s.db.Model(&dbmodel.Container{}).Where("id = ?", in.ID).Updates(map[string]interface{}{
		"fill_level": in.FillLevel,
		"status":     in.Status,
		"updated_at": in.UpdatedAt,
	})
	if result.Error != nil {
		log.Error("update container failed", zap.String("containerID", in.ID), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrContainerNotFound
	}
	return nil
}

func (s *containerDb) DeleteByLocation(locationID string) error {
	return s.db.Where("location_id = ?", locationID).Delete(&dbmodel.Container{}).Error
}

func (s *containerDb) DeleteAll() error {
	return s.db.Where("1 = 1").Delete(&dbmodel.Container{}).Error
}

type pickupDb struct {
	db *gorm.DB
}

var _ dbmodel.IPickupDb = &pickupDb{}

func (s *pickupDb) GetByLocation(locationID string) ([]*dbmodel.PickupRecord, error) {
	var records []*dbmodel.PickupRecord
	err := s.db.Where("location_id = ?", locationID).Order("collected_at desc").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *pickupDb) Insert(in *dbmodel.PickupRecord) error {
	return s.db.Create(in).Error
}

func (s *pickupDb) DeleteAll() error {
	return s.db.Where("1 = 1").Delete(&dbmodel.PickupRecord{}).Error
}
