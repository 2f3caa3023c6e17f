package rocketmq

import (
	"context"
	"strings"
	"sync"
	"time"

	rmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"

	"github.com/ThalesMilho/projeto-web/common/logger"
	"github.com/ThalesMilho/projeto-web/internal/config"

	"go.uber.org/zap"
)

// Publisher 结算事件出口，outbox 派发器唯一调用方
type Publisher interface {
	Publish(topic string, body []byte) error
}

var (
	initOnce sync.Once
	enabled  bool
	prod     rmq.Producer
	pub      Publisher
)

// Enabled 返回生产者是否已就绪；未配置 MQ 时为 false，
// outbox 行会留在表里等 MQ 恢复后重投
func Enabled() bool { initOnce.Do(initMQ); return enabled }

// PublisherInstance 返回当前发布器（MQ 关闭时为丢弃桩）
func PublisherInstance() Publisher {
	initOnce.Do(initMQ)
	if pub == nil {
		pub = &stubPublisher{}
	}
	return pub
}

// Shutdown 优雅关闭生产者，进程退出前调用
func Shutdown() {
	if prod != nil {
		if err := prod.GracefulStop(); err != nil {
			logger.Warn("rocketmq: graceful stop failed", zap.Error(err))
		}
		prod = nil
	}
}

type rmqPublisher struct{ p rmq.Producer }

func (r *rmqPublisher) Publish(topic string, body []byte) error {
	if r.p == nil {
		return nil
	}
	msg := &rmq.Message{Topic: topic, Body: body}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.p.Send(ctx, msg)
	return err
}

// stubPublisher MQ 未配置时使用，消息不落地，仅告警
type stubPublisher struct{}

func (s *stubPublisher) Publish(topic string, body []byte) error {
	logger.Warn("[mq disabled] drop message", zap.String("topic", topic))
	return nil
}

// SanitizeEndpoint 去掉 scheme，多地址只取第一个
func SanitizeEndpoint(ep string) string {
	ep = strings.TrimSpace(ep)
	ep = strings.TrimPrefix(strings.TrimPrefix(ep, "http://"), "https://")
	if idx := strings.IndexAny(ep, ",;"); idx > 0 {
		ep = strings.TrimSpace(ep[:idx])
	}
	return ep
}

func initMQ() {
	// SDK 默认往 /logs 写文件日志，先重置掉
	rmq.ResetLogger()

	cfg := config.Get()
	if cfg == nil {
		enabled = false
		pub = &stubPublisher{}
		return
	}
	mc := cfg.RocketMQ

	endpoint := SanitizeEndpoint(mc.NameServer)
	if endpoint == "" {
		enabled = false
		pub = &stubPublisher{}
		return
	}

	// 缺凭证直接降级，底层 SDK 在 Sign 阶段会空指针
	if strings.TrimSpace(mc.AccessKey) == "" || strings.TrimSpace(mc.SecretKey) == "" {
		enabled = false
		pub = &stubPublisher{}
		logger.Warn("rocketmq disabled: endpoint set but credentials missing")
		return
	}

	rc := &rmq.Config{Endpoint: endpoint}
	rc.Credentials = &credentials.SessionCredentials{AccessKey: mc.AccessKey, AccessSecret: mc.SecretKey}

	var opts []rmq.ProducerOption
	if t := strings.TrimSpace(mc.TopicSettle); t != "" {
		opts = append(opts, rmq.WithTopics(t))
	}

	p, err := rmq.NewProducer(rc, opts...)
	if err != nil {
		logger.Error("rocketmq: producer init failed", zap.Error(err))
		enabled = false
		pub = &stubPublisher{}
		return
	}

	// Start 可能在 broker 不可达时长时间阻塞，限时等待
	startDone := make(chan error, 1)
	go func() {
		startDone <- p.Start()
	}()

	select {
	case err := <-startDone:
		if err != nil {
			logger.Warn("rocketmq: producer start failed, falling back to stub", zap.Error(err))
			enabled = false
			pub = &stubPublisher{}
			return
		}
		prod = p
		pub = &rmqPublisher{p: p}
		enabled = true
		logger.Info("rocketmq producer ready",
			zap.String("endpoint", endpoint),
			zap.String("topic_settle", mc.TopicSettle))
	case <-time.After(2 * time.Second):
		logger.Warn("rocketmq: producer start timeout, falling back to stub")
		enabled = false
		pub = &stubPublisher{}
	}
}
