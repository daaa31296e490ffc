package models

import "time"

type User struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string    `json:"username" gorm:"type:varchar(255);not null;uniqueIndex"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null"`
	FullName  *string   `json:"full_name,omitempty" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at"`
}
