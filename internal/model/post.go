package model

import "time"

type Post struct {
	ID       uint64    `gorm:"primaryKey"`
	Text     string    `gorm:"type:text;not null"`
	PubDate  time.Time `gorm:"autoCreateTime;index"`
	AuthorID uint64    `gorm:"not null;index"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	GroupID  *uint64   `gorm:"index"`
	Group    *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	Image    string    `gorm:"size:255;not null;default:''"` // 对象存储中的 key，空表示无图
}

func (p Post) String() string { return p.Text }
