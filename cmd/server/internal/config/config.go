package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config 统一配置结构
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Log      LogConfig
	Engine   EngineConfig
	Security SecurityConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Env  string // dev, staging, production
	Port string
}

// DataConfig 数据文件配置
type DataConfig struct {
	CatalogFile     string // 产品目录（上游解析器产出的 YAML）
	ExecutionFile   string // 实际执行台账（YAML）
	DepartmentsFile string // 部门目录（YAML）
	AuditLogsDir    string
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // console, json
}

// EngineConfig 计算引擎配置
type EngineConfig struct {
	CacheTTLSeconds int // 结果缓存 TTL，默认 30 秒
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORSAllowedOrigins []string
}

// GlobalConfig 全局配置实例
var GlobalConfig *Config

// LoadConfig 从环境变量加载配置
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Env:  getEnv("ENV", "dev"),
			Port: getEnv("PORT", "8000"),
		},
		Data: DataConfig{
			CatalogFile:     getEnv("CATALOG_FILE", "./data/catalog.yaml"),
			ExecutionFile:   getEnv("EXECUTION_FILE", "./data/execution.yaml"),
			DepartmentsFile: getEnv("DEPARTMENTS_FILE", "./data/departments.yaml"),
			AuditLogsDir:    getEnv("AUDIT_LOGS_DIR", "./audit_logs"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Engine: EngineConfig{
			CacheTTLSeconds: getEnvInt("RESULT_CACHE_TTL_SECONDS", 30),
		},
		Security: SecurityConfig{
			CORSAllowedOrigins: parseStringList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		},
	}

	GlobalConfig = cfg
	return cfg, nil
}

// ValidateConfig 验证配置的有效性
func ValidateConfig(cfg *Config) error {
	var errors []string

	// 1. 端口验证
	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid PORT value: %s (must be 1-65535)", cfg.Server.Port))
	}

	// 2. 日志级别验证
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %s (must be: debug, info, warn, error)", cfg.Log.Level))
	}

	// 3. 日志格式验证
	validLogFormats := map[string]bool{"console": true, "json": true}
	if !validLogFormats[cfg.Log.Format] {
		errors = append(errors, fmt.Sprintf("invalid LOG_FORMAT: %s (must be: console, json)", cfg.Log.Format))
	}

	// 4. 环境验证
	validEnvs := map[string]bool{"dev": true, "development": true, "staging": true, "production": true}
	if !validEnvs[cfg.Server.Env] {
		errors = append(errors, fmt.Sprintf("invalid ENV: %s (must be: dev, development, staging, production)", cfg.Server.Env))
	}

	// 5. 缓存 TTL 验证
	if cfg.Engine.CacheTTLSeconds < 1 {
		errors = append(errors, fmt.Sprintf("invalid RESULT_CACHE_TTL_SECONDS: %d (must be >= 1)", cfg.Engine.CacheTTLSeconds))
	}

	// 6. 目录文件路径验证
	if cfg.Data.CatalogFile == "" {
		errors = append(errors, "CATALOG_FILE is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// IsProduction 判断是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// IsDevelopment 判断是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "dev" || c.Server.Env == "development"
}

// GetServerAddr 获取服务器监听地址
func (c *Config) GetServerAddr() string {
	return ":" + c.Server.Port
}

// PrintConfig 打印配置
func (c *Config) PrintConfig() string {
	return fmt.Sprintf(`Configuration Loaded:
  Environment: %s
  Server Port: %s
  Data Files:
    - Catalog: %s
    - Execution: %s
    - Departments: %s
    - Audit Logs: %s
  Logging:
    - Level: %s
    - Format: %s
  Engine:
    - Result Cache TTL: %ds
  Security:
    - CORS Origins: %v`,
		c.Server.Env,
		c.Server.Port,
		c.Data.CatalogFile,
		c.Data.ExecutionFile,
		c.Data.DepartmentsFile,
		c.Data.AuditLogsDir,
		c.Log.Level,
		c.Log.Format,
		c.Engine.CacheTTLSeconds,
		c.Security.CORSAllowedOrigins,
	)
}

// 辅助函数

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 获取整型环境变量，解析失败时返回默认值
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// parseStringList 解析逗号分隔的字符串列表
func parseStringList(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
