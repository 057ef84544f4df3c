package model

// Category is a fixed practice-area taxonomy entry (Contract Review,
// Litigation, ...). Seeded at startup, read-only afterwards.
type Category struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"uniqueIndex;not null"`
	Color string `gorm:"default:#6366f1"`
	Tasks []Task `gorm:"foreignKey:CategoryID"`
}
