package syncer

import (
	"fmt"
	"strings"
	"time"
)

// Result 是单个模块的计数。
type Result struct {
	ObjectType      string   `json:"object_type"`
	Created         int      `json:"created"`
	Updated         int      `json:"updated"`
	Unchanged       int      `json:"unchanged"`
	Failed          int      `json:"failed"`
	Verified        int      `json:"verified"`
	Errors          []string `json:"errors,omitempty"`
	DurationSeconds float64  `json:"duration_seconds"`
}

func (r *Result) String() string {
	return fmt.Sprintf("%s: created=%d, updated=%d, unchanged=%d, failed=%d, verified=%d",
		r.ObjectType, r.Created, r.Updated, r.Unchanged, r.Failed, r.Verified)
}

// Stats 汇总一次运行的全部模块结果。
type Stats struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	Results       []*Result `json:"results"`
	TotalDuration float64   `json:"total_duration_seconds"`
	Aborted       bool      `json:"aborted"`

	// Context 是本次运行结束时的引用表，供拓扑导出使用。
	Context *Context `json:"-"`
}

// Add 追加模块结果并累计耗时。
func (s *Stats) Add(r *Result) {
	s.Results = append(s.Results, r)
	s.TotalDuration += r.DurationSeconds
}

func (s *Stats) sum(pick func(*Result) int) int {
	total := 0
	for _, r := range s.Results {
		total += pick(r)
	}
	return total
}

func (s *Stats) TotalCreated() int   { return s.sum(func(r *Result) int { return r.Created }) }
func (s *Stats) TotalUpdated() int   { return s.sum(func(r *Result) int { return r.Updated }) }
func (s *Stats) TotalUnchanged() int { return s.sum(func(r *Result) int { return r.Unchanged }) }
func (s *Stats) TotalFailed() int    { return s.sum(func(r *Result) int { return r.Failed }) }
func (s *Stats) TotalVerified() int  { return s.sum(func(r *Result) int { return r.Verified }) }

// Errors 返回所有模块的错误信息。
func (s *Stats) Errors() []string {
	var out []string
	for _, r := range s.Results {
		out = append(out, r.Errors...)
	}
	return out
}

// HasFailures 判断是否存在记录失败或模块级错误。
func (s *Stats) HasFailures() bool {
	return s.TotalFailed() > 0 || len(s.Errors()) > 0
}

// Summary 生成运行结束时打印的汇总表。
func (s *Stats) Summary() string {
	var b strings.Builder
	line := func(ch string) {
		b.WriteString(strings.Repeat(ch, 60))
		b.WriteByte('\n')
	}
	line("=")
	b.WriteString("SYNC SUMMARY\n")
	line("=")
	for _, r := range s.Results {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	line("-")
	fmt.Fprintf(&b, "Total: created=%d, updated=%d, unchanged=%d, failed=%d\n",
		s.TotalCreated(), s.TotalUpdated(), s.TotalUnchanged(), s.TotalFailed())
	fmt.Fprintf(&b, "Duration: %.2f seconds\n", s.TotalDuration)
	b.WriteString(strings.Repeat("=", 60))
	return b.String()
}
