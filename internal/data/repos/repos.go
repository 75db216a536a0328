package repos

import (
	"gorm.io/gorm"

	convrepo "github.com/coachline/registration-backend/internal/data/repos/conversation"
	regrepo "github.com/coachline/registration-backend/internal/data/repos/registration"
	"github.com/coachline/registration-backend/internal/pkg/logger"
)

type SessionRepo = regrepo.SessionRepo
type OrganizationRepo = regrepo.OrganizationRepo
type ConversationRepo = convrepo.ConversationRepo

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return regrepo.NewSessionRepo(db, baseLog)
}

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return regrepo.NewOrganizationRepo(db, baseLog)
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return convrepo.NewConversationRepo(db, baseLog)
}
