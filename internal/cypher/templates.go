package cypher

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

const (
	InitSchema   = "init_schema.cql"
	UpsertNodes  = "upsert_nodes.cql"
	UpsertRels   = "upsert_rels.cql"
	CleanupNodes = "cleanup_nodes.cql"
	CleanupRels  = "cleanup_rels.cql"
	CountNodes   = "count_nodes.cql"
)

//go:embed *.cql
var files embed.FS

var (
	mu     sync.Mutex
	parsed = make(map[string]*template.Template)
)

func lookup(name string) (*template.Template, error) {
	mu.Lock()
	defer mu.Unlock()
	if tmpl, ok := parsed[name]; ok {
		return tmpl, nil
	}
	tmpl, err := template.New(name).Option("missingkey=error").ParseFS(files, name)
	if err != nil {
		return nil, err
	}
	parsed[name] = tmpl
	return tmpl, nil
}

// MustTemplate 解析指定模板并渲染，失败直接 panic，便于在初始化阶段暴露错误。
func MustTemplate(name string, data any) string {
	tmpl, err := lookup(name)
	if err != nil {
		panic(fmt.Errorf("parse template %s failed: %w", name, err))
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		panic(fmt.Errorf("execute template %s failed: %w", name, err))
	}
	return sb.String()
}

// MustAsset 返回模板原文。
func MustAsset(name string) string {
	b, err := files.ReadFile(name)
	if err != nil {
		panic(fmt.Errorf("load %s failed: %w", name, err))
	}
	return string(b)
}

// Statements 把以分号分隔的脚本拆成独立语句，忽略空语句。
func Statements(name string) []string {
	var out []string
	for _, raw := range strings.Split(MustAsset(name), ";") {
		if stmt := strings.TrimSpace(raw); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
