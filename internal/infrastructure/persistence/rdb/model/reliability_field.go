package model

type ReliabilityField struct {
	Model      string  `gorm:"column:model;type:varchar(32);primaryKey"`
	ForeignKey string  `gorm:"column:foreign_key;type:varchar(64);primaryKey"`
	Field      string  `gorm:"column:field;type:varchar(100);primaryKey;index:idx_reliability_fields_field"`
	Score      float64 `gorm:"column:score;not null"`
	Weight     float64 `gorm:"column:weight;not null"`
	MaxScore   float64 `gorm:"column:max_score;not null"`
	Notes      string  `gorm:"column:notes;type:text;not null"`
	Created    string  `gorm:"column:created;type:text;not null"`
}

func (ReliabilityField) TableName() string {
	return "reliability_fields"
}
