package repository

import "github.com/yeremiapane/restaurant-pos/models"

type CompanyRepository struct {
	t Tenant
}

// Get loads the tenant's own company row.
func (r CompanyRepository) Get() (*models.Company, error) {
	var c models.Company
	if err := r.t.db.Where("id = ?", r.t.companyID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
