package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aci2netbox/internal/aci"
	"aci2netbox/internal/loader"
	"aci2netbox/internal/netbox"
	"aci2netbox/internal/syncer"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type ACI struct {
	Host      string `mapstructure:"host"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	VerifySSL bool   `mapstructure:"verify_ssl"`
	Timeout   int    `mapstructure:"timeout"`
}

type NetBox struct {
	URL       string  `mapstructure:"url"`
	Token     string  `mapstructure:"token"`
	VerifySSL bool    `mapstructure:"verify_ssl"`
	Timeout   int     `mapstructure:"timeout"`
	RateLimit float64 `mapstructure:"rate_limit"`
}

type Sync struct {
	BatchSize       int    `mapstructure:"batch_size"`
	MaxWorkers      int    `mapstructure:"max_workers"`
	DryRun          bool   `mapstructure:"dry_run"`
	VerifyUpdates   bool   `mapstructure:"verify_updates"`
	ContinueOnError bool   `mapstructure:"continue_on_error"`
	IncludeSoftware bool   `mapstructure:"include_software"`
	JobCron         string `mapstructure:"cron"`
	InitialSync     bool   `mapstructure:"initial_sync"`
}

type Neo4j struct {
	URI                  string `mapstructure:"uri"`
	Username             string `mapstructure:"username"`
	Password             string `mapstructure:"password"`
	Database             string `mapstructure:"database"`
	MaxConnectionPool    int    `mapstructure:"max_connections"`
	ConnectTimeoutSecond int    `mapstructure:"connect_timeout_second"`
}

type HTTP struct {
	Listen string `mapstructure:"listen"`
}

type Log struct {
	Verbose bool   `mapstructure:"verbose"`
	File    string `mapstructure:"file"`
}

type Config struct {
	ACI    ACI    `mapstructure:"aci"`
	NetBox NetBox `mapstructure:"netbox"`
	Sync   Sync   `mapstructure:"sync"`
	Neo4j  Neo4j  `mapstructure:"neo4j"`
	HTTP   HTTP   `mapstructure:"http"`
	Log    Log    `mapstructure:"log"`
}

// 键名与环境变量一一对应：aci.host <-> ACI_HOST。
var defaults = map[string]any{
	"aci.host":                     "",
	"aci.username":                 "",
	"aci.password":                 "",
	"aci.verify_ssl":               false,
	"aci.timeout":                  30,
	"netbox.url":                   "",
	"netbox.token":                 "",
	"netbox.verify_ssl":            true,
	"netbox.timeout":               30,
	"netbox.rate_limit":            0.0,
	"sync.batch_size":              50,
	"sync.max_workers":             4,
	"sync.dry_run":                 false,
	"sync.verify_updates":          true,
	"sync.continue_on_error":       true,
	"sync.include_software":        false,
	"sync.cron":                    "0 * * * *",
	"sync.initial_sync":            false,
	"neo4j.uri":                    "",
	"neo4j.username":               "neo4j",
	"neo4j.password":               "",
	"neo4j.database":               "neo4j",
	"neo4j.max_connections":        0,
	"neo4j.connect_timeout_second": 0,
	"http.listen":                  ":8080",
	"log.verbose":                  false,
	"log.file":                     "",
}

// envDefaults 返回由环境变量覆盖后的缺省值。
func envDefaults() *viper.Viper {
	env := viper.New()
	env.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	env.AutomaticEnv()
	for key, value := range defaults {
		env.SetDefault(key, value)
	}

	v := viper.New()
	for key := range defaults {
		v.SetDefault(key, env.Get(key))
	}
	return v
}

// LoadConfig 以环境变量为缺省值加载配置，path 非空时文件中出现的键覆盖缺省值。
func LoadConfig(path string) (Config, error) {
	var cfg Config
	v := envDefaults()
	if path != "" {
		overlay, err := readOverlay(path)
		if err != nil {
			return cfg, err
		}
		if err := v.MergeConfigMap(overlay); err != nil {
			return cfg, fmt.Errorf("合并配置失败: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("解析配置失败: %w", err)
	}
	return cfg, nil
}

func readOverlay(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}
	overlay := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &overlay)
	default:
		err = json.Unmarshal(data, &overlay)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	return overlay, nil
}

// Validate 检查连接两端所需的必填项。
func (c Config) Validate() error {
	var missing []string
	if c.ACI.Host == "" {
		missing = append(missing, "aci.host")
	}
	if c.ACI.Username == "" {
		missing = append(missing, "aci.username")
	}
	if c.ACI.Password == "" {
		missing = append(missing, "aci.password")
	}
	if c.NetBox.URL == "" {
		missing = append(missing, "netbox.url")
	}
	if c.NetBox.Token == "" {
		missing = append(missing, "netbox.token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("缺少必填配置: %s", strings.Join(missing, ", "))
	}
	if c.Sync.BatchSize < 0 || c.Sync.MaxWorkers < 0 {
		return errors.New("sync.batch_size 与 sync.max_workers 不能为负数")
	}
	return nil
}

func (c Config) ACIConfig(logger *zap.Logger) aci.Config {
	return aci.Config{
		Host:      c.ACI.Host,
		Username:  c.ACI.Username,
		Password:  c.ACI.Password,
		VerifySSL: c.ACI.VerifySSL,
		Timeout:   time.Duration(c.ACI.Timeout) * time.Second,
		Logger:    logger,
	}
}

func (c Config) NetBoxConfig(logger *zap.Logger) netbox.Config {
	return netbox.Config{
		URL:       c.NetBox.URL,
		Token:     c.NetBox.Token,
		VerifySSL: c.NetBox.VerifySSL,
		Timeout:   time.Duration(c.NetBox.Timeout) * time.Second,
		PageSize:  c.Sync.BatchSize,
		RateLimit: c.NetBox.RateLimit,
		Logger:    logger,
	}
}

func (c Config) Neo4jConfig() loader.Config {
	return loader.Config{
		URI:                  c.Neo4j.URI,
		Username:             c.Neo4j.Username,
		Password:             c.Neo4j.Password,
		Database:             c.Neo4j.Database,
		MaxConnectionPool:    c.Neo4j.MaxConnectionPool,
		ConnectionTimeoutSec: c.Neo4j.ConnectTimeoutSecond,
	}
}

// SyncSettings 转换为编排器使用的设置。
func (c Config) SyncSettings() syncer.Settings {
	return syncer.Settings{
		DryRun:          c.Sync.DryRun,
		VerifyUpdates:   c.Sync.VerifyUpdates,
		ContinueOnError: c.Sync.ContinueOnError,
		MaxWorkers:      c.Sync.MaxWorkers,
	}
}

// GraphEnabled 表示是否配置了拓扑导出。
func (c Config) GraphEnabled() bool {
	return strings.TrimSpace(c.Neo4j.URI) != ""
}
