package shared

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTokenURL 微信公众号 access_token 接口
const DefaultTokenURL = "https://api.weixin.qq.com/cgi-bin/token"

// 缓存驱动
const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
	CacheDriverSQLite = "sqlite"
)

// Config 应用配置
type Config struct {
	Server ServerConfig `yaml:"server"`
	WeChat WeChatConfig `yaml:"wechat"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// ExposeTokenRoute 为 true 时注册 GET /client/access_token，仅用于调试
	ExposeTokenRoute bool `yaml:"expose_token_route"`
}

// WeChatConfig 公众号配置
type WeChatConfig struct {
	AppID          string        `yaml:"app_id"`
	AppSecret      string        `yaml:"app_secret"`
	Token          string        `yaml:"token"`
	EncodingAESKey string        `yaml:"encoding_aes_key"`
	TokenURL       string        `yaml:"token_url"`
	TokenTimeout   time.Duration `yaml:"token_timeout"`
	APIBaseURL     string        `yaml:"api_base_url"`
}

// CacheConfig access_token 缓存配置
type CacheConfig struct {
	Driver    string       `yaml:"driver"`
	KeyPrefix string       `yaml:"key_prefix"`
	Redis     RedisConfig  `yaml:"redis"`
	SQLite    SQLiteConfig `yaml:"sqlite"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SQLiteConfig SQLite 文件配置
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var (
	alphanumericRegex = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	envRefRegex       = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

// expandEnv 只替换 ${VAR} 形式的引用，其它 $ 字符原样保留
func expandEnv(data []byte) []byte {
	return envRefRegex.ReplaceAllFunc(data, func(ref []byte) []byte {
		name := envRefRegex.FindSubmatch(ref)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// LoadConfig 从 YAML 文件加载并验证配置
// 文件中的 ${VAR} 会先按环境变量展开，密钥不必写入配置文件
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig 解析 YAML 内容，补齐默认值并验证
func ParseConfig(data []byte) (*Config, error) {
	expanded := expandEnv(data)

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.WeChat.TokenURL == "" {
		c.WeChat.TokenURL = DefaultTokenURL
	}
	if c.WeChat.APIBaseURL == "" {
		c.WeChat.APIBaseURL = "https://api.weixin.qq.com"
	}
	if c.WeChat.TokenTimeout == 0 {
		c.WeChat.TokenTimeout = 10 * time.Second
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheDriverMemory
	}
}

func (c *Config) validate() error {
	// server.addr
	if err := validateAddr(c.Server.Addr); err != nil {
		return fmt.Errorf("server.addr: %w", err)
	}

	// wechat.app_id
	if c.WeChat.AppID == "" {
		return fmt.Errorf("wechat.app_id: must not be empty")
	}

	// wechat.app_secret
	if c.WeChat.AppSecret == "" {
		return fmt.Errorf("wechat.app_secret: must not be empty")
	}

	// wechat.token
	if len(c.WeChat.Token) < 3 || len(c.WeChat.Token) > 32 {
		return fmt.Errorf("wechat.token: must be 3 to 32 characters, got %d", len(c.WeChat.Token))
	}
	if !alphanumericRegex.MatchString(c.WeChat.Token) {
		return fmt.Errorf("wechat.token: must contain only alphanumeric characters")
	}

	// wechat.encoding_aes_key 明文模式下可为空
	if c.WeChat.EncodingAESKey != "" {
		if len(c.WeChat.EncodingAESKey) != 43 {
			return fmt.Errorf("wechat.encoding_aes_key: must be exactly 43 characters, got %d", len(c.WeChat.EncodingAESKey))
		}
		if !alphanumericRegex.MatchString(c.WeChat.EncodingAESKey) {
			return fmt.Errorf("wechat.encoding_aes_key: must contain only alphanumeric characters")
		}
	}

	// wechat.token_url / wechat.api_base_url
	if err := validateBaseURL(c.WeChat.TokenURL); err != nil {
		return fmt.Errorf("wechat.token_url: %w", err)
	}
	if err := validateBaseURL(c.WeChat.APIBaseURL); err != nil {
		return fmt.Errorf("wechat.api_base_url: %w", err)
	}

	// cache
	switch c.Cache.Driver {
	case CacheDriverMemory:
	case CacheDriverRedis:
		if err := validateAddr(c.Cache.Redis.Addr); err != nil {
			return fmt.Errorf("cache.redis.addr: %w", err)
		}
	case CacheDriverSQLite:
		if c.Cache.SQLite.Path == "" {
			return fmt.Errorf("cache.sqlite.path: must not be empty")
		}
	default:
		return fmt.Errorf("cache.driver: unknown driver %q", c.Cache.Driver)
	}

	return nil
}

func validateAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("must not be empty")
	}
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format: %w", err)
	}
	return nil
}

func validateBaseURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("must not be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must include scheme and host")
	}
	return nil
}
