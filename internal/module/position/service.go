package position

import (
	"fmt"
	"log/slog"

	"yqpoint-system/internal/global/lock"
	"yqpoint-system/internal/global/notify"
	"yqpoint-system/internal/global/term"

	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	store    *Store
	locker   lock.Locker
	notifier notify.Notifier
	log      *slog.Logger
}

func NewService(db *gorm.DB, locker lock.Locker, notifier notify.Notifier, log *slog.Logger) *Service {
	return &Service{
		db:       db,
		store:    NewStore(db),
		locker:   locker,
		notifier: notifier,
		log:      log,
	}
}

func (s *Service) Store() *Store {
	return s.store
}

// pairKey (人, 组织, 学期) 的锁键
func pairKey(personID, orgID uint, t term.Term) string {
	return fmt.Sprintf("position:%d:%d:%d:%s", personID, orgID, t.Year, t.Semester)
}
