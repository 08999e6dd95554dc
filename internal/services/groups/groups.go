// Package groups manages groups and their memberships.
package groups

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"billbuddy/internal/models"
	"billbuddy/internal/repositories/groupstore"
	"billbuddy/internal/repositories/sqlconnect"
	"billbuddy/internal/repositories/userstore"
	"billbuddy/pkg/utils"

	"github.com/sirupsen/logrus"
)

const timestampLayout = "2006-01-02 15:04:05"

type Service struct {
	db     *sql.DB
	groups *groupstore.Store
	users  *userstore.Store
	now    func() time.Time
}

func NewService(db *sql.DB, groups *groupstore.Store, users *userstore.Store) *Service {
	return &Service{db: db, groups: groups, users: users, now: time.Now}
}

type GroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type MemberInput struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

func (s *Service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Create makes a group with the caller as its admin.
func (s *Service) Create(ctx context.Context, callerID int64, in GroupInput) (models.GroupDetail, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.GroupDetail{}, utils.Invalid("name", "is required")
	}
	if len([]rune(name)) > 255 {
		return models.GroupDetail{}, utils.Invalid("name", "must be at most 255 characters")
	}

	g := models.Group{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   callerID,
		CreatedAt:   s.timestamp(),
	}
	var members []models.GroupMember
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.groups.CreateGroup(ctx, tx, &g); err != nil {
			return err
		}
		admin := models.GroupMember{GroupID: g.ID, UserID: callerID, Role: models.RoleAdmin, JoinedAt: g.CreatedAt}
		if err := s.groups.AddMember(ctx, tx, &admin); err != nil {
			return err
		}
		var err error
		members, err = s.groups.ListMembers(ctx, tx, g.ID)
		return err
	})
	if err != nil {
		return models.GroupDetail{}, err
	}

	utils.Logger.WithFields(logrus.Fields{"group_id": g.ID, "user_id": callerID}).Info("group created")
	return models.GroupDetail{Group: g, Members: members}, nil
}

// Get returns the group with its members. Only members may see it.
func (s *Service) Get(ctx context.Context, groupID, callerID int64) (models.GroupDetail, error) {
	g, err := s.groups.GetGroup(ctx, s.db, groupID)
	if err != nil {
		return models.GroupDetail{}, err
	}
	if err := s.requireRole(ctx, s.db, groupID, callerID, false); err != nil {
		return models.GroupDetail{}, err
	}
	members, err := s.groups.ListMembers(ctx, s.db, groupID)
	if err != nil {
		return models.GroupDetail{}, err
	}
	return models.GroupDetail{Group: g, Members: members}, nil
}

func (s *Service) ListForUser(ctx context.Context, callerID int64) ([]models.Group, error) {
	return s.groups.ListGroupsForUser(ctx, s.db, callerID)
}

// AddMember adds a user by id or email. Admins only.
func (s *Service) AddMember(ctx context.Context, groupID, callerID int64, in MemberInput) (models.GroupMember, error) {
	role := in.Role
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleMember && role != models.RoleAdmin {
		return models.GroupMember{}, utils.Invalid("role", "must be admin or member")
	}
	if in.UserID <= 0 && strings.TrimSpace(in.Email) == "" {
		return models.GroupMember{}, utils.Invalid("user_id", "user_id or email is required")
	}

	var m models.GroupMember
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.groups.GetGroup(ctx, tx, groupID); err != nil {
			return err
		}
		if err := s.requireRole(ctx, tx, groupID, callerID, true); err != nil {
			return err
		}

		var (
			u   models.User
			err error
		)
		if in.UserID > 0 {
			u, err = s.users.GetByID(ctx, tx, in.UserID)
		} else {
			u, err = s.users.GetByEmail(ctx, tx, in.Email)
		}
		if err != nil {
			return err
		}

		m = models.GroupMember{
			GroupID:   groupID,
			UserID:    u.ID,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Role:      role,
			JoinedAt:  s.timestamp(),
		}
		return s.groups.AddMember(ctx, tx, &m)
	})
	if err != nil {
		return models.GroupMember{}, err
	}

	utils.Logger.WithFields(logrus.Fields{
		"group_id": groupID,
		"user_id":  m.UserID,
		"added_by": callerID,
	}).Info("member added")
	return m, nil
}

// RemoveMember lets an admin remove anyone and a member remove themself.
// The last admin cannot leave.
func (s *Service) RemoveMember(ctx context.Context, groupID, callerID, userID int64) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.groups.GetGroup(ctx, tx, groupID); err != nil {
			return err
		}
		if err := s.requireRole(ctx, tx, groupID, callerID, callerID != userID); err != nil {
			return err
		}

		members, err := s.groups.ListMembers(ctx, tx, groupID)
		if err != nil {
			return err
		}
		admins, target := 0, ""
		for _, m := range members {
			if m.Role == models.RoleAdmin {
				admins++
			}
			if m.UserID == userID {
				target = m.Role
			}
		}
		if target == "" {
			return utils.NotFound("membership not found")
		}
		if target == models.RoleAdmin && admins == 1 {
			return utils.Invalid("user_id", "the last admin cannot leave the group")
		}
		return s.groups.RemoveMember(ctx, tx, groupID, userID)
	})
	if err != nil {
		return err
	}

	utils.Logger.WithFields(logrus.Fields{
		"group_id":   groupID,
		"user_id":    userID,
		"removed_by": callerID,
	}).Info("member removed")
	return nil
}

// Delete removes the group with its expenses and settlements. Admins only.
func (s *Service) Delete(ctx context.Context, groupID, callerID int64) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.groups.GetGroup(ctx, tx, groupID); err != nil {
			return err
		}
		if err := s.requireRole(ctx, tx, groupID, callerID, true); err != nil {
			return err
		}
		return s.groups.DeleteGroup(ctx, tx, groupID)
	})
	if err != nil {
		return err
	}

	utils.Logger.WithFields(logrus.Fields{"group_id": groupID, "user_id": callerID}).Info("group deleted")
	return nil
}

func (s *Service) requireRole(ctx context.Context, q sqlconnect.DBTX, groupID, userID int64, admin bool) error {
	role, err := s.groups.Role(ctx, q, groupID, userID)
	if err != nil {
		return err
	}
	switch {
	case role == "":
		return utils.Denied("you are not a member of this group")
	case admin && role != models.RoleAdmin:
		return utils.Denied("only a group admin can do this")
	}
	return nil
}
