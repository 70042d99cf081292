package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ninja0404/wash-signal/pkg/logger"
)

// larkTextMessageContent 飞书文本消息内容结构
type larkTextMessageContent struct {
	Text string `json:"text"`
}

// larkMessage 飞书机器人消息结构
type larkMessage struct {
	MsgType string                 `json:"msg_type"`
	Content larkTextMessageContent `json:"content"`
}

// larkResponse 飞书机器人响应结构 (用于检查错误)
type larkResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

var larkClient = &http.Client{Timeout: 10 * time.Second}

// SendToLark 发送格式化后的文本消息到指定的飞书 Webhook URL
func SendToLark(messageText string, webhookURL string) error {
	if webhookURL == "" {
		return fmt.Errorf("飞书 Webhook URL 为空")
	}
	if messageText == "" {
		logger.Warn("尝试发送空消息到飞书，已跳过")
		return nil
	}

	msg := larkMessage{
		MsgType: "text",
		Content: larkTextMessageContent{
			Text: messageText,
		},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化飞书消息失败: %w", err)
	}

	req, err := http.NewRequest("POST", webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("创建飞书请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := larkClient.Do(req)
	if err != nil {
		return fmt.Errorf("发送飞书消息失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var larkResp larkResponse
		if err := json.NewDecoder(resp.Body).Decode(&larkResp); err == nil {
			return fmt.Errorf("发送飞书消息返回错误状态码 %d, Code: %d, Msg: %s", resp.StatusCode, larkResp.Code, larkResp.Msg)
		}
		return fmt.Errorf("发送飞书消息返回错误状态码 %d, 无法解析响应体", resp.StatusCode)
	}

	var larkResp larkResponse
	if err := json.NewDecoder(resp.Body).Decode(&larkResp); err == nil && larkResp.Code != 0 {
		return fmt.Errorf("飞书返回业务错误 Code: %d, Msg: %s", larkResp.Code, larkResp.Msg)
	}

	return nil
}
