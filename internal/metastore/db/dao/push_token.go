package dao

import (
	"errors"

	"github.com/ecotracker/fillstate/internal/common"
	"github.com/ecotracker/fillstate/internal/metastore/db/dbmodel"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type pushTokenDb struct {
	db *gorm.DB
}

var _ dbmodel.IPushTokenDb = &pushTokenDb{}

func (s *pushTokenDb) GetByUser(userID string) ([]*dbmodel.PushToken, error) {
	var tokens []*dbmodel.PushToken
	if err := s.db.Where("user_id = ?", userID).Find(&tokens).Error; err != nil {
		log.Error("GetByUser push tokens", zap.Error(err))
		return nil, err
	}
	return tokens, nil
}

// GetByTenant returns the tokens of every user of the tenant. The same
// physical token can surface through more than one user row after a
// device changes hands; callers that need a set must dedup by token.
func (s *pushTokenDb) GetByTenant(tenantID string) ([]*dbmodel.PushToken, error) {
	var tokens []*dbmodel.PushToken
	err := s.db.
		Joins("JOIN users ON users.id = push_tokens.user_id").
		Where("users.tenant_id = ?", tenantID).
		Find(&tokens).Error
	if err != nil {
		log.Error("GetByTenant push tokens", zap.String("tenantID", tenantID), zap.Error(err))
		return nil, err
	}
	return tokens, nil
}

func (s *pushTokenDb) GetByToken(token string) (*dbmodel.PushToken, error) {
	var pushToken dbmodel.PushToken
	err := s.db.Where("token = ?", token).First(&pushToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrTokenNotFound
		}
		return nil, err
	}
	return &pushToken, nil
}

func (s *pushTokenDb) Insert(in *dbmodel.PushToken) error {
	return s.db.Create(in).Error
}

func (s *pushTokenDb) Update(in *dbmodel.PushToken) error {
	result := s.db.Model(&dbmodel.PushToken{}).Where("token = ?", in.Token).Updates(map[string]interface{}{
		"user_id":      in.UserID,
		"device_info":  in.DeviceInfo,
		"last_seen_at": in.LastSeenAt,
		"updated_at":   in.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrTokenNotFound
	}
	return nil
}

func (s *pushTokenDb) DeleteByToken(token string) error {
	result := s.db.Where("token = ?", token).Delete(&dbmodel.PushToken{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrTokenNotFound
	}
	return nil
}

func (s *pushTokenDb) DeleteAll() error {
	return s.db.Where("1 = 1").Delete(&dbmodel.PushToken{}).Error
}
