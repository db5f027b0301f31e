package model

import "gorm.io/datatypes"

type ReliabilitySummary struct {
	ID                  string         `gorm:"column:id;type:varchar(36);primaryKey"`
	Model               string         `gorm:"column:model;type:varchar(32);not null;uniqueIndex:uq_reliability_summary_key,priority:1;index:idx_reliability_summary_score,priority:1"`
	ForeignKey          string         `gorm:"column:foreign_key;type:varchar(64);not null;uniqueIndex:uq_reliability_summary_key,priority:2"`
	TotalScore          float64        `gorm:"column:total_score;not null;index:idx_reliability_summary_score,priority:2"`
	CompletenessPercent float64        `gorm:"column:completeness_percent;not null"`
	FieldScoresJSON     datatypes.JSON `gorm:"column:field_scores_json;not null"`
	ScoringVersion      string         `gorm:"column:scoring_version;type:varchar(32);not null"`
	LastSource          string         `gorm:"column:last_source;type:varchar(20);not null"`
	LastCalculated      string         `gorm:"column:last_calculated;type:text;not null"`
	UpdatedByUserID     *string        `gorm:"column:updated_by_user_id;type:varchar(64)"`
	UpdatedByService    *string        `gorm:"column:updated_by_service;type:varchar(100)"`
	Created             string         `gorm:"column:created;type:text;not null"`
	Modified            string         `gorm:"column:modified;type:text;not null"`
}

func (ReliabilitySummary) TableName() string {
	return "reliability_scores"
}
