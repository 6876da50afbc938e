package model

import "time"

type Comment struct {
	ID       uint64    `gorm:"primaryKey"`
	PostID   uint64    `gorm:"not null;index"`
	Post     Post      `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	AuthorID uint64    `gorm:"not null;index"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Text     string    `gorm:"type:text;not null"`
	Created  time.Time `gorm:"autoCreateTime"`
}

func (c Comment) String() string { return c.Text }
