package domain

// Contact holds the last-used checkout contact details of a device.
// City carries the selected area.
type Contact struct {
	FirstName string `json:"firstName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	District  string `json:"district"`
	City      string `json:"city"`
}
