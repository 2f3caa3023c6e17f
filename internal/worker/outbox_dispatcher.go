package worker

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	rmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"

	"github.com/ThalesMilho/projeto-web/common/logger"
	"github.com/ThalesMilho/projeto-web/internal/config"
	infmysql "github.com/ThalesMilho/projeto-web/internal/infra/mysql"
	infmq "github.com/ThalesMilho/projeto-web/internal/infra/rocketmq"
	"github.com/ThalesMilho/projeto-web/internal/model"

	"go.uber.org/zap"
)

const (
	outboxPollInterval = 1 * time.Second
	outboxBatchSize    = 100
)

// StartOutboxDispatcher 轮询 outbox 表把结算事件推到 MQ。
// 结算事务里只写 outbox 行，投递由这里异步完成，
// 发送失败累加 retry_count，超限打死信状态等人工介入
func StartOutboxDispatcher(ctx context.Context, wg *sync.WaitGroup) {
	if !infmq.Enabled() {
		return
	}
	wg.Add(1)
	pub := infmq.PublisherInstance()
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(outboxPollInterval)
		defer ticker.Stop()

		db := infmysql.SQLX()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c, cancel := context.WithTimeout(ctx, 2*time.Second)
				rows, err := model.ListOutboxPending(c, db, outboxBatchSize)
				cancel()
				if err != nil {
					logger.Warn("outbox: list pending failed", zap.Error(err))
					continue
				}
				for _, r := range rows {
					if err := pub.Publish(r.Topic, []byte(r.Payload)); err != nil {
						_ = model.MarkOutboxFailed(ctx, db, r.ID, truncateErr(err))
						continue
					}
					if err := model.MarkOutboxSent(ctx, db, r.ID); err != nil {
						// 标记失败会导致重发，消费侧靠 inbox 去重兜底
						logger.Warn("outbox: mark sent failed", zap.Int64("id", r.ID), zap.Error(err))
					}
				}
			}
		}
	}()
}

// truncateErr 错误信息进 last_error 列，240 字节封顶
func truncateErr(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	if len(b) > 240 {
		return string(b[:240])
	}
	return string(b)
}

// StartInboxConsumer 用 SimpleConsumer 订阅结算事件主题，
// 消息先落 inbox 表（message_id 去重）再 Ack，下游侧重放安全。
// 配置缺失（endpoint/group/topic/凭证）时不启动
func StartInboxConsumer(ctx context.Context, wg *sync.WaitGroup) {
	// SDK 默认往 /logs 写文件日志
	rmq.ResetLogger()

	cfg := config.Get()
	if cfg == nil {
		return
	}
	mc := cfg.RocketMQ

	endpoint := infmq.SanitizeEndpoint(mc.NameServer)
	if endpoint == "" {
		return
	}
	if mc.ConsumerGroup == "" {
		logger.Warn("[mq] consumer not started: empty consumer_group")
		return
	}
	topic := strings.TrimSpace(mc.TopicSettle)
	if topic == "" {
		logger.Warn("[mq] consumer not started: empty topic_settle")
		return
	}
	if strings.TrimSpace(mc.AccessKey) == "" || strings.TrimSpace(mc.SecretKey) == "" {
		logger.Warn("[mq] consumer not started: missing access/secret key")
		return
	}

	rc := &rmq.Config{Endpoint: endpoint, ConsumerGroup: mc.ConsumerGroup}
	rc.Credentials = &credentials.SessionCredentials{AccessKey: mc.AccessKey, AccessSecret: mc.SecretKey}

	subs := map[string]*rmq.FilterExpression{topic: rmq.SUB_ALL}

	awaitDuration := 5 * time.Second
	maxMessageNum := int32(16)
	invisibleDuration := 20 * time.Second

	// broker 可能比我们后就绪，带重试启动
	var sc rmq.SimpleConsumer
	var err error
	for i := 0; i < 6; i++ {
		sc, err = rmq.NewSimpleConsumer(rc,
			rmq.WithSimpleAwaitDuration(awaitDuration),
			rmq.WithSimpleSubscriptionExpressions(subs),
		)
		if err == nil {
			if e := sc.Start(); e == nil {
				break
			} else {
				err = e
			}
		}
		logger.Warn("[mq] simple consumer start retry", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(3 * time.Second)
	}
	if err != nil {
		logger.Error("[mq] start simple consumer failed", zap.Error(err))
		return
	}
	logger.Info("[mq] inbox consumer started",
		zap.String("group", mc.ConsumerGroup), zap.String("topic", topic))

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer sc.GracefulStop()

		db := infmysql.SQLX()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				mvs, err := sc.Receive(ctx, maxMessageNum, invisibleDuration)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Warn("[mq] receive error", zap.Error(err))
					continue
				}
				for _, mv := range mvs {
					id := mv.GetMessageId()
					topic := mv.GetTopic()
					body := mv.GetBody()
					if err := model.UpsertMqInbox(ctx, db, id, topic, string(body), time.Now().UnixMilli()); err != nil {
						// 不 Ack，等不可见期过后重投
						logger.Warn("[mq] upsert inbox failed", zap.String("id", id), zap.String("topic", topic), zap.Error(err))
						continue
					}
					var payload map[string]any
					if err := json.Unmarshal(body, &payload); err == nil {
						if evt, ok := payload["event"].(string); ok && evt == "draw_settled" {
							drawID, _ := payload["draw_id"].(string)
							logger.Info("[mq] consumed settlement event", zap.String("draw_id", drawID))
						}
					}
					if err := sc.Ack(ctx, mv); err != nil {
						logger.Warn("[mq] ack failed", zap.String("id", id), zap.Error(err))
					}
				}
			}
		}
	}()
}
