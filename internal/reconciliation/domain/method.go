package domain

// PaymentMethod is a payment method registered by a plugin namespace
type PaymentMethod struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	PluginKey  string `json:"plugin_key" gorm:"type:varchar(64);not null;index"`
	PaymentKey string `json:"payment_key" gorm:"type:varchar(64);not null"`
	Name       string `json:"name" gorm:"not null"`
}

// TableName specifies the table name
func (PaymentMethod) TableName() string {
	return "payment_methods"
}
