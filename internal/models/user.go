package models

// User is the owner of tasks, appointments and notifications. Only the contact
// fields consumed by the reminder engine are modelled here.
type User struct {
	BaseModel

	Name  string `gorm:"type:varchar(255)" json:"name"`
	Email string `gorm:"type:varchar(255);index" json:"email"`
	Phone string `gorm:"type:varchar(32)" json:"phone"`

	Settings *UserSettings `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"settings,omitempty"`
}

// DisplayName returns the best available human label for the user.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
