package model

type Clinic struct {
	BaseModel
	UserID   string `gorm:"type:varchar(120);not null;uniqueIndex" json:"user_id"`
	Name     string `gorm:"type:varchar(200);not null" json:"name"`
	Email    string `gorm:"type:varchar(200);not null" json:"email"`
	Phone    string `gorm:"type:varchar(40)" json:"phone"`
	Address  string `gorm:"type:text" json:"address"`
	IsActive bool   `gorm:"not null" json:"is_active"`
}

func (*Clinic) TableName() string {
	return "clinics"
}
