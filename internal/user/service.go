package user

import (
	"context"
	"time"
)

// User rows are provisioned by the sign-up flow; this service only reads them.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FirebaseUID string    `gorm:"column:firebase_uid;uniqueIndex;not null" json:"firebase_uid"`
	CreatedAt   time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

type Service interface {
	GetUserBySubject(ctx context.Context, subject string) (*User, error)
}

type service struct {
	repo Repository
}

func NewUserService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) GetUserBySubject(ctx context.Context, subject string) (*User, error) {
	return s.repo.findBySubject(ctx, subject)
}
