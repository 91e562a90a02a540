package models

// Ingredient is reference data loaded in bulk; users only read it.
type Ingredient struct {
	ID              uint   `json:"id" gorm:"primarykey"`
	Name            string `json:"name" gorm:"size:128;not null;index;uniqueIndex:idx_ingredient_name_unit"`
	MeasurementUnit string `json:"measurement_unit" gorm:"size:64;not null;uniqueIndex:idx_ingredient_name_unit"`
}
