package models

type Tag struct {
	ID   uint   `json:"id" gorm:"primarykey"`
	Name string `json:"name" gorm:"uniqueIndex;size:32;not null"`
	Slug string `json:"slug" gorm:"uniqueIndex;size:32;not null"`
}
