package models

import (
	"time"
)

// User 用户档案。身份认证由外部服务负责，这里只保留
// 提示词变量与历史导出所需的字段。
type User struct {
	ID          uint      `gorm:"primaryKey;column:id" json:"id"`
	Username    string    `gorm:"column:username;size:100;uniqueIndex" json:"username"`
	Nickname    string    `gorm:"column:nickname;size:100" json:"nickname"`
	PhoneNumber string    `gorm:"column:phone_number;size:30;index" json:"phone_number"`
	Email       string    `gorm:"column:email;size:200" json:"email"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
