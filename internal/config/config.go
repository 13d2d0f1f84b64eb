// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Backend       BackendConfig       `yaml:"backend" mapstructure:"backend"`
	Generation    GenerationConfig    `yaml:"generation" mapstructure:"generation"`
	Persistence   PersistenceConfig   `yaml:"persistence" mapstructure:"persistence"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Mirror        MirrorConfig        `yaml:"mirror" mapstructure:"mirror"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Templates     TemplatesConfig     `yaml:"templates" mapstructure:"templates"`
	Events        EventsConfig        `yaml:"events" mapstructure:"events"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// Addr 返回监听地址
func (c HTTPServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BackendConfig 剧本后端 API 配置
type BackendConfig struct {
	// BaseURL 后端根地址，例如 http://localhost:3000
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Timeout 单次请求超时（生成请求可能很慢）
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	APIToken string        `yaml:"api_token" mapstructure:"api_token"`
	// Username 持久化接口使用的用户标识
	Username string `yaml:"username" mapstructure:"username"`
}

// GenerationConfig 生成相关配置
type GenerationConfig struct {
	DefaultModel string `yaml:"default_model" mapstructure:"default_model"`
	// UnitCosts 每个层级单次生成消耗的积分
	UnitCosts UnitCostsConfig `yaml:"unit_costs" mapstructure:"unit_costs"`
	// AutosaveDebounce 自动保存防抖间隔
	AutosaveDebounce time.Duration `yaml:"autosave_debounce" mapstructure:"autosave_debounce"`
	// DefaultPlotPointBudget 新项目的剧情点总数
	DefaultPlotPointBudget int `yaml:"default_plot_point_budget" mapstructure:"default_plot_point_budget"`
}

// UnitCostsConfig 各层级单元积分消耗
type UnitCostsConfig struct {
	Structure  int64 `yaml:"structure" mapstructure:"structure"`
	PlotPoints int64 `yaml:"plot_points" mapstructure:"plot_points"`
	Scenes     int64 `yaml:"scenes" mapstructure:"scenes"`
	Dialogue   int64 `yaml:"dialogue" mapstructure:"dialogue"`
}

// PersistenceConfig 项目持久化配置
type PersistenceConfig struct {
	// Driver http（后端持久化 API）或 postgres（自托管）
	Driver string `yaml:"driver" mapstructure:"driver"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// DSN 返回 lib/pq 连接串
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// MirrorConfig 本地镜像配置
type MirrorConfig struct {
	// Driver redis 或 memory
	Driver    string        `yaml:"driver" mapstructure:"driver"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// TemplatesConfig 剧本模板目录配置
type TemplatesConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// EventsConfig 事件推送配置
type EventsConfig struct {
	// ReplaySize 断线重连可重放的事件数
	ReplaySize int `yaml:"replay_size" mapstructure:"replay_size"`
	// SubscriberBuffer 单个订阅者的缓冲长度
	SubscriberBuffer int `yaml:"subscriber_buffer" mapstructure:"subscriber_buffer"`
	// Heartbeat SSE 心跳间隔
	Heartbeat time.Duration `yaml:"heartbeat" mapstructure:"heartbeat"`
	// Journal 批次结果写入 Redis Stream（需要 redis 镜像）
	Journal JournalConfig `yaml:"journal" mapstructure:"journal"`
}

// JournalConfig 批次日志流配置
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Stream  string `yaml:"stream" mapstructure:"stream"`
	MaxLen  int64  `yaml:"max_len" mapstructure:"max_len"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORS CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
