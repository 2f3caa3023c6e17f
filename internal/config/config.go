package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Config 与 Etcd 中的配置结构对应
// 注意：时间字段统一使用毫秒时间戳
// 可按需扩展字段

type Config struct {
	Server struct {
		Port     int    `yaml:"port" json:"port"`
		LogLevel string `yaml:"log_level" json:"log_level"`
	} `yaml:"server" json:"server"`

	Database struct {
		DSN                string `yaml:"dsn" json:"dsn"`
		SlaveDSN           string `yaml:"slave_dsn" json:"slave_dsn"` // 只读库，空则读写都走主库
		MaxOpenConns       int    `yaml:"max_open_conns" json:"max_open_conns"`
		MaxIdleConns       int    `yaml:"max_idle_conns" json:"max_idle_conns"`
		ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec" json:"conn_max_lifetime_sec"`
	} `yaml:"database" json:"database"`

	Redis struct {
		Addr     string `yaml:"addr" json:"addr"`
		Password string `yaml:"password" json:"password"`
		DB       int    `yaml:"db" json:"db"`
	} `yaml:"redis" json:"redis"`

	RocketMQ struct {
		NameServer    string `yaml:"name_server" json:"name_server"`
		ProducerGroup string `yaml:"producer_group" json:"producer_group"`
		ConsumerGroup string `yaml:"consumer_group" json:"consumer_group"`
		TopicSettle   string `yaml:"topic_settle" json:"topic_settle"`
		AccessKey     string `yaml:"access_key" json:"access_key"`
		SecretKey     string `yaml:"secret_key" json:"secret_key"`
	} `yaml:"rocketmq" json:"rocketmq"`

	Observability struct {
		EnableProm   bool   `yaml:"enable_prom" json:"enable_prom"`
		PromAddr     string `yaml:"prom_addr" json:"prom_addr"`
		EnableTrace  bool   `yaml:"enable_trace" json:"enable_trace"`
		OtlpEndpoint string `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	} `yaml:"observability" json:"observability"`

	Auth struct {
		DemoMode bool `yaml:"demo_mode" json:"demo_mode"` // 演示模式开关
		JWT      struct {
			Secret          string `yaml:"secret" json:"secret"`
			AccessTokenTTL  int    `yaml:"access_token_ttl" json:"access_token_ttl"`   // 秒
			RefreshTokenTTL int    `yaml:"refresh_token_ttl" json:"refresh_token_ttl"` // 秒
			Issuer          string `yaml:"issuer" json:"issuer"`
		} `yaml:"jwt" json:"jwt"`
		Admin struct {
			Enabled bool   `yaml:"enabled" json:"enabled"`
			Token   string `yaml:"token" json:"token"`
		} `yaml:"admin" json:"admin"`
		DemoPlatform struct {
			PlatformID int8   `yaml:"platform_id" json:"platform_id"`
			AppKey     string `yaml:"app_key" json:"app_key"`
			AppSecret  string `yaml:"app_secret" json:"app_secret"`
			Name       string `yaml:"name" json:"name"`
		} `yaml:"demo_platform" json:"demo_platform"`
		Platforms []PlatformConfig `yaml:"platforms" json:"platforms"`
	} `yaml:"auth" json:"auth"`

	RateLimit struct {
		Enabled bool `yaml:"enabled" json:"enabled"`
		Global  struct {
			RequestsPerSecond int `yaml:"requests_per_second" json:"requests_per_second"`
			Burst             int `yaml:"burst" json:"burst"`
		} `yaml:"global" json:"global"`
		ByIP struct {
			RequestsPerSecond int `yaml:"requests_per_second" json:"requests_per_second"`
			Burst             int `yaml:"burst" json:"burst"`
			WindowSeconds     int `yaml:"window_seconds" json:"window_seconds"`
		} `yaml:"by_ip" json:"by_ip"`
		ByUser struct {
			RequestsPerSecond int `yaml:"requests_per_second" json:"requests_per_second"`
			Burst             int `yaml:"burst" json:"burst"`
			WindowSeconds     int `yaml:"window_seconds" json:"window_seconds"`
		} `yaml:"by_user" json:"by_user"`
		ByPlatform struct {
			RequestsPerSecond int `yaml:"requests_per_second" json:"requests_per_second"`
			Burst             int `yaml:"burst" json:"burst"`
			WindowSeconds     int `yaml:"window_seconds" json:"window_seconds"`
		} `yaml:"by_platform" json:"by_platform"`
	} `yaml:"rate_limit" json:"rate_limit"`

	CORS struct {
		Enabled          bool     `yaml:"enabled" json:"enabled"`
		AllowedOrigins   []string `yaml:"allowed_origins" json:"allowed_origins"`
		AllowedMethods   []string `yaml:"allowed_methods" json:"allowed_methods"`
		AllowedHeaders   []string `yaml:"allowed_headers" json:"allowed_headers"`
		ExposedHeaders   []string `yaml:"exposed_headers" json:"exposed_headers"`
		AllowCredentials bool     `yaml:"allow_credentials" json:"allow_credentials"`
		MaxAge           int      `yaml:"max_age" json:"max_age"`
	} `yaml:"cors" json:"cors"`

	// 玩法配置：编码 → 赔率/规则，结算引擎只认这张表
	Game struct {
		// 省略时用内置默认赔率表
		Modalities []ModalityConfig `yaml:"modalities" json:"modalities"`
		// 单注限额，分
		BetMinCents int64 `yaml:"bet_min_cents" json:"bet_min_cents"`
		BetMaxCents int64 `yaml:"bet_max_cents" json:"bet_max_cents"`
		// 单注派彩封顶，0表示不封顶
		MaxPayoutCents int64 `yaml:"max_payout_cents" json:"max_payout_cents"`
	} `yaml:"game" json:"game"`

	Settlement struct {
		BatchSize int `yaml:"batch_size" json:"batch_size"` // 每批加载的注单数，默认500
	} `yaml:"settlement" json:"settlement"`

	Commission struct {
		Enabled bool `yaml:"enabled" json:"enabled"`
	} `yaml:"commission" json:"commission"`

	// PIX 支付网关
	Gateway struct {
		BaseURL       string   `yaml:"base_url" json:"base_url"`
		APIKey        string   `yaml:"api_key" json:"api_key"`
		APISecret     string   `yaml:"api_secret" json:"api_secret"`
		WebhookSecret string   `yaml:"webhook_secret" json:"webhook_secret"`
		AllowedIPs    []string `yaml:"allowed_ips" json:"allowed_ips"` // 回调来源白名单，空表示不校验
		MaxRetries    int      `yaml:"max_retries" json:"max_retries"` // 瞬时错误重试次数，默认3
	} `yaml:"gateway" json:"gateway"`

}

// ModalityConfig 单个玩法的规则参数。
// Multiplier 用十进制字符串（"4000"、"18.75"），加载时解析，不走浮点。
// 彩票类（quininha/seninha/lotinha）用 MinHits + PayoutTable（命中数 → 赔率）。
type ModalityConfig struct {
	Code        string            `yaml:"code" json:"code"`
	Multiplier  string            `yaml:"multiplier" json:"multiplier"`
	PickCount   int               `yaml:"pick_count" json:"pick_count"`     // 需要的号码个数
	MinHits     int               `yaml:"min_hits" json:"min_hits"`         // 彩票类最低命中数
	PayoutTable map[string]string `yaml:"payout_table" json:"payout_table"` // 命中数 → 赔率
	Enabled     *bool             `yaml:"enabled" json:"enabled"`           // nil 视为启用
}

// PlatformConfig 平台配置
type PlatformConfig struct {
	PlatformID int8     `yaml:"platform_id" json:"platform_id"`
	AppKey     string   `yaml:"app_key" json:"app_key"`
	AppSecret  string   `yaml:"app_secret" json:"app_secret"`
	Name       string   `yaml:"name" json:"name"`
	Status     int8     `yaml:"status" json:"status"`
	RateLimit  int      `yaml:"rate_limit" json:"rate_limit"`
	AllowedIPs []string `yaml:"allowed_ips" json:"allowed_ips"`
}

// Load 配置加载顺序：Nacos > etcd > 本地文件，前面的失败就降级到下一个。
// 环境变量：
//   - NACOS_SERVER_ADDR / NACOS_DATA_ID / NACOS_NAMESPACE / NACOS_GROUP
//   - ETCD_ENDPOINTS / ETCD_CONFIG_KEY
//   - CONFIG_FILE: 本地配置文件路径（默认 config/dev.json）
func Load(ctx context.Context) (*Config, error) {
	if strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR")) != "" {
		cfg, err := loadFromNacos(ctx)
		if err == nil {
			fmt.Printf("[Config] 配置已从 Nacos 加载: server=%s, dataId=%s, namespace=%s, group=%s\n",
				os.Getenv("NACOS_SERVER_ADDR"),
				os.Getenv("NACOS_DATA_ID"),
				envOr("NACOS_NAMESPACE", "public"),
				envOr("NACOS_GROUP", "DEFAULT_GROUP"))
			return cfg, nil
		}
		fmt.Printf("[Config] 从 Nacos 加载配置失败，降级: error=%v\n", err)
	}

	if strings.TrimSpace(os.Getenv("ETCD_ENDPOINTS")) != "" {
		cfg, err := loadFromEtcd(ctx)
		if err == nil {
			fmt.Printf("[Config] 配置已从 etcd 加载: key=%s\n", os.Getenv("ETCD_CONFIG_KEY"))
			return cfg, nil
		}
		fmt.Printf("[Config] 从 etcd 加载配置失败，降级: error=%v\n", err)
	}

	configFile := envOr("CONFIG_FILE", "config/dev.json")
	cfg, err := loadFromFile(configFile)
	if err == nil {
		fmt.Printf("[Config] 配置已从本地文件加载: file=%s\n", configFile)
		return cfg, nil
	}
	return nil, fmt.Errorf("failed to load config (nacos/etcd/file %s): %w", configFile, err)
}

// loadFromFile 本地 JSON/YAML 配置
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := parseByExt(filePath, data)
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", filePath, err)
	}
	return cfg, nil
}

func loadFromEtcd(ctx context.Context) (*Config, error) {
	endpoints := strings.Split(os.Getenv("ETCD_ENDPOINTS"), ",")
	for i := range endpoints {
		endpoints[i] = strings.TrimSpace(endpoints[i])
	}
	if len(endpoints) == 0 || endpoints[0] == "" {
		return nil, errors.New("empty ETCD_ENDPOINTS")
	}
	dialTimeout := 5 * time.Second
	if v := strings.TrimSpace(os.Getenv("ETCD_DIAL_TIMEOUT_SEC")); v != "" {
		if sec, err := time.ParseDuration(v + "s"); err == nil {
			dialTimeout = sec
		}
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
		Username:    os.Getenv("ETCD_USERNAME"),
		Password:    os.Getenv("ETCD_PASSWORD"),
	})
	if err != nil {
		return nil, fmt.Errorf("etcd connect failed: %w", err)
	}
	defer cli.Close()

	key := strings.TrimSpace(os.Getenv("ETCD_CONFIG_KEY"))
	if key == "" {
		return nil, errors.New("ETCD_CONFIG_KEY not set")
	}
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	resp, err := cli.Get(ctx2, key)
	if err != nil {
		return nil, fmt.Errorf("etcd get failed: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("etcd key not found: %s", key)
	}
	cfg, err := parseByExt(key, resp.Kvs[0].Value)
	if err != nil {
		return nil, fmt.Errorf("parse config from etcd: %w", err)
	}
	return cfg, nil
}

// loadFromNacos 启动时从 Nacos 拉一次全量配置，client 复用 watcher 那套构建逻辑
func loadFromNacos(ctx context.Context) (*Config, error) {
	dataID := strings.TrimSpace(os.Getenv("NACOS_DATA_ID"))
	if dataID == "" {
		return nil, errors.New("NACOS_DATA_ID not set")
	}

	configClient, err := newNacosClient()
	if err != nil {
		return nil, err
	}

	content, err := configClient.GetConfig(vo.ConfigParam{
		DataId: dataID,
		Group:  envOr("NACOS_GROUP", "DEFAULT_GROUP"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get config from nacos: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("nacos config is empty: dataId=%s", dataID)
	}

	cfg, err := parseByExt(dataID, []byte(content))
	if err != nil {
		return nil, fmt.Errorf("parse config from nacos: %w", err)
	}
	return cfg, nil
}
