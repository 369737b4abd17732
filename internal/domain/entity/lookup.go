// Package entity 定义领域实体
package entity

// Genre 体裁参照表条目
type Genre struct {
	Code string `json:"code" gorm:"type:varchar(32);primaryKey"`
	Name string `json:"name" gorm:"type:varchar(64);not null"`
}

// TableName 指定表名
func (Genre) TableName() string {
	return "genres"
}

// Mood 氛围参照表条目
type Mood struct {
	Code string `json:"code" gorm:"type:varchar(32);primaryKey"`
	Name string `json:"name" gorm:"type:varchar(64);not null"`
}

// TableName 指定表名
func (Mood) TableName() string {
	return "moods"
}

// DefaultGenres 固定体裁清单，启动时按缺失补种
func DefaultGenres() []Genre {
	return []Genre{
		{Code: "sf", Name: "SF"},
		{Code: "fantasy", Name: "ファンタジー"},
		{Code: "mystery", Name: "ミステリー"},
		{Code: "horror", Name: "ホラー"},
		{Code: "romance", Name: "恋愛"},
		{Code: "history", Name: "歴史"},
		{Code: "light_novel", Name: "ライトノベル"},
		{Code: "youth", Name: "青春"},
	}
}

// DefaultMoods 固定氛围清单，启动时按缺失补种
func DefaultMoods() []Mood {
	return []Mood{
		{Code: "serious", Name: "シリアス"},
		{Code: "comedy", Name: "コメディ"},
		{Code: "dark", Name: "ダーク"},
		{Code: "dramatic", Name: "ドラマチック"},
		{Code: "heartwarming", Name: "ほのぼの"},
		{Code: "none", Name: "指定なし"},
	}
}
