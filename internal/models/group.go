package models

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type Group struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	CreatedBy   int64  `json:"created_by" db:"created_by"`
	CreatedAt   string `json:"created_at" db:"created_at"`
}

type GroupMember struct {
	ID        int64  `json:"id" db:"id"`
	GroupID   int64  `json:"group_id" db:"group_id"`
	UserID    int64  `json:"user_id" db:"user_id"`
	Email     string `json:"email,omitempty" db:"email"`
	FirstName string `json:"first_name,omitempty" db:"first_name"`
	LastName  string `json:"last_name,omitempty" db:"last_name"`
	Role      string `json:"role" db:"role"`
	JoinedAt  string `json:"joined_at" db:"joined_at"`
}

type GroupDetail struct {
	Group
	Members []GroupMember `json:"members"`
}
