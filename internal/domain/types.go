package domain

import "time"

// NodeRow 是批量 upsert 的统一 DTO。
type NodeRow struct {
	Key        string         `json:"aci_key"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
	RunID      string         `json:"run_id"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// RelRow 代表一条关系需要的信息。StartLabel/EndLabel 用于命中唯一约束索引。
type RelRow struct {
	StartKey   string         `json:"start_key"`
	StartLabel string         `json:"start_label"`
	EndKey     string         `json:"end_key"`
	EndLabel   string         `json:"end_label"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	RunID      string         `json:"run_id"`
}
