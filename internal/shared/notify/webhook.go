package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// Webhook通知 — 工作流迁移事件以消息卡片形式推送到群机器人
// 异步派发，失败只记日志，不影响迁移本身
// =============================================================================

// Notifier 工作流通知落点
type Notifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewNotifier 创建webhook通知器；url为空时所有派发都静默丢弃
func NewNotifier(webhookURL string, logger *zap.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// 卡片结构，兼容飞书群机器人的 interactive 消息格式
type card struct {
	Config   *cardConfig   `json:"config,omitempty"`
	Header   *cardHeader   `json:"header,omitempty"`
	Elements []cardElement `json:"elements"`
}

type cardConfig struct {
	WideScreenMode bool `json:"wide_screen_mode"`
}

type cardHeader struct {
	Title    cardText `json:"title"`
	Template string   `json:"template,omitempty"`
}

type cardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type cardElement struct {
	Tag    string      `json:"tag"`
	Text   *cardText   `json:"text,omitempty"`
	Fields []cardField `json:"fields,omitempty"`
}

type cardField struct {
	IsShort bool     `json:"is_short"`
	Text    cardText `json:"text"`
}

// 模板标题，未登记的模板用默认标题
var templateTitles = map[string]string{
	"po_submitted":   "📋 采购订单待审批",
	"po_approved":    "✅ 采购订单已批准",
	"goods_received": "📦 货物已收讫",
	"qc_passed":      "✅ 质检通过",
	"qc_failed":      "❌ 质检不合格",
	"stock_posted":   "🏬 库存已入账",
}

// Dispatch 实现 NotificationSink：把迁移事件渲染成卡片推给webhook
func (n *Notifier) Dispatch(ctx context.Context, template string, recipients []string, payload map[string]interface{}) error {
	if n.webhookURL == "" {
		return nil
	}

	title, ok := templateTitles[template]
	if !ok {
		title = "🔔 工作流通知"
	}

	fields := make([]cardField, 0, len(payload))
	for k, v := range payload {
		fields = append(fields, cardField{
			IsShort: true,
			Text:    cardText{Tag: "lark_md", Content: fmt.Sprintf("**%s**\n%v", k, v)},
		})
	}

	msg := card{
		Config: &cardConfig{WideScreenMode: true},
		Header: &cardHeader{
			Title:    cardText{Tag: "plain_text", Content: title},
			Template: "blue",
		},
		Elements: []cardElement{
			{Tag: "div", Fields: fields},
			{Tag: "div", Text: &cardText{
				Tag:     "lark_md",
				Content: fmt.Sprintf("相关人员：%d 人", len(recipients)),
			}},
		},
	}

	cardBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化通知卡片失败: %w", err)
	}
	body, err := json.Marshal(map[string]interface{}{
		"msg_type": "interactive",
		"card":     json.RawMessage(cardBytes),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("推送通知失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("通知webhook返回异常状态: %d", resp.StatusCode)
	}

	n.logger.Debug("通知已派发",
		zap.String("template", template),
		zap.Int("recipients", len(recipients)))
	return nil
}
