package users

import "time"

// User is a registered account. The password hash never leaves the service layer.
type User struct {
	ID           string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	Fullname     string    `gorm:"column:fullname;size:320;not null;default:''" json:"fullname"`
	Username     string    `gorm:"column:username;size:190;not null;uniqueIndex:idx_users_username" json:"username"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;autoCreateTime:false" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false" json:"updatedAt"`
}

// TableName exposes the table backing user accounts.
func (User) TableName() string {
	return "users"
}

// RegistrationInput carries already validated registration fields.
type RegistrationInput struct {
	Username string
	Password string
	Fullname string
}
