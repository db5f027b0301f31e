package model

import "gorm.io/datatypes"

// ReliabilityLog rows are never updated. A first entry stores the JSON
// literal null in from_field_scores_json. Seq numbers the entries of one
// entity from 1 and is unique per entity.
type ReliabilityLog struct {
	ID                  string         `gorm:"column:id;type:varchar(36);primaryKey"`
	Model               string         `gorm:"column:model;type:varchar(32);not null;index:idx_reliability_logs_key,priority:1;uniqueIndex:uq_reliability_logs_seq,priority:1"`
	ForeignKey          string         `gorm:"column:foreign_key;type:varchar(64);not null;index:idx_reliability_logs_key,priority:2;uniqueIndex:uq_reliability_logs_seq,priority:2"`
	FromTotalScore      *float64       `gorm:"column:from_total_score"`
	ToTotalScore        float64        `gorm:"column:to_total_score;not null"`
	FromFieldScoresJSON datatypes.JSON `gorm:"column:from_field_scores_json;not null"`
	ToFieldScoresJSON   datatypes.JSON `gorm:"column:to_field_scores_json;not null"`
	Source              string         `gorm:"column:source;type:varchar(20);not null;index:idx_reliability_logs_source"`
	ActorUserID         *string        `gorm:"column:actor_user_id;type:varchar(64)"`
	ActorService        *string        `gorm:"column:actor_service;type:varchar(100)"`
	Message             string         `gorm:"column:message;type:text;not null"`
	Created             string         `gorm:"column:created;type:text;not null;index:idx_reliability_logs_key,priority:3"`
	Seq                 int64          `gorm:"column:seq;not null;uniqueIndex:uq_reliability_logs_seq,priority:3"`
	ChecksumSHA256      string         `gorm:"column:checksum_sha256;type:char(64);not null"`
}

func (ReliabilityLog) TableName() string {
	return "reliability_logs"
}
