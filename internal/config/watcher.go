package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"gopkg.in/yaml.v3"
)

// nacosConfigClient 监听用的全局客户端，StopWatch 时注销监听
var nacosConfigClient config_client.IConfigClient

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// StartWatch 监听配置中心变更，变更时回调 onChange(old, new)。
// 配置是否生效由回调方决定：赔率表解析失败时必须继续用旧配置跑
func StartWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	if strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR")) == "" {
		// 本地文件配置，无热更
		fmt.Println("[Config] Nacos 未配置，跳过配置监听")
		return nil
	}
	return startNacosWatch(ctx, onChange)
}

// newNacosClient 按环境变量构建 Nacos 配置客户端，启动加载和监听共用
func newNacosClient() (config_client.IConfigClient, error) {
	serverAddr := strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR"))

	timeoutMS := 5000
	if t, err := strconv.Atoi(envOr("NACOS_TIMEOUT_MS", "")); err == nil && t > 0 {
		timeoutMS = t
	}

	var serverConfigs []constant.ServerConfig
	for _, addr := range strings.Split(serverAddr, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		host, portStr, ok := strings.Cut(addr, ":")
		if !ok {
			return nil, fmt.Errorf("invalid NACOS_SERVER_ADDR format: %s", addr)
		}
		port, err := strconv.ParseUint(portStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid port in NACOS_SERVER_ADDR: %s", portStr)
		}
		serverConfigs = append(serverConfigs, constant.ServerConfig{IpAddr: host, Port: port})
	}
	if len(serverConfigs) == 0 {
		return nil, errors.New("no valid server address in NACOS_SERVER_ADDR")
	}

	clientConfig := constant.ClientConfig{
		NamespaceId:         envOr("NACOS_NAMESPACE", "public"),
		TimeoutMs:           uint64(timeoutMS),
		NotLoadCacheAtStart: true,
		LogDir:              "/tmp/nacos/log",
		CacheDir:            "/tmp/nacos/cache",
		LogLevel:            "warn",
	}
	if u, p := os.Getenv("NACOS_USERNAME"), os.Getenv("NACOS_PASSWORD"); u != "" && p != "" {
		clientConfig.Username = u
		clientConfig.Password = p
	}

	return clients.NewConfigClient(vo.NacosClientParam{
		ClientConfig:  &clientConfig,
		ServerConfigs: serverConfigs,
	})
}

func startNacosWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	dataID := strings.TrimSpace(os.Getenv("NACOS_DATA_ID"))
	if dataID == "" {
		return errors.New("NACOS_DATA_ID not set")
	}
	group := envOr("NACOS_GROUP", "DEFAULT_GROUP")

	configClient, err := newNacosClient()
	if err != nil {
		return fmt.Errorf("failed to create nacos config client for watch: %w", err)
	}
	nacosConfigClient = configClient

	err = configClient.ListenConfig(vo.ConfigParam{
		DataId: dataID,
		Group:  group,
		OnChange: func(namespace, group, dataId, data string) {
			fmt.Printf("[Config] Nacos 配置变更: namespace=%s, group=%s, dataId=%s\n",
				namespace, group, dataId)

			newCfg, parseErr := parseByExt(dataId, []byte(data))
			if parseErr != nil {
				fmt.Printf("[Config] 解析 Nacos 配置失败: error=%v\n", parseErr)
				return
			}
			if onChange != nil {
				onChange(Get(), newCfg)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to listen nacos config: %w", err)
	}

	fmt.Printf("[Config] Nacos 配置监听已启动: server=%s, dataId=%s, group=%s\n",
		os.Getenv("NACOS_SERVER_ADDR"), dataID, group)
	return nil
}

// StopWatch 注销配置监听，进程退出前调用
func StopWatch() {
	if nacosConfigClient == nil {
		return
	}
	_ = nacosConfigClient.CancelListenConfig(vo.ConfigParam{
		DataId: strings.TrimSpace(os.Getenv("NACOS_DATA_ID")),
		Group:  envOr("NACOS_GROUP", "DEFAULT_GROUP"),
	})
	nacosConfigClient = nil
}

// parseByExt 按 dataId 扩展名选解析器，无扩展名时先 YAML 后 JSON
func parseByExt(dataID string, data []byte) (*Config, error) {
	var cfg Config
	switch filepath.Ext(dataID) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	default:
		if yerr := yaml.Unmarshal(data, &cfg); yerr != nil {
			if jerr := json.Unmarshal(data, &cfg); jerr != nil {
				return nil, yerr
			}
		}
	}
	return &cfg, nil
}
