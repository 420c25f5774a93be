// Package line はLINE Messaging APIのSDKを薄くラップし、
// ボット本体が依存する送受信インターフェースに変換する。
package line

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// ErrInvalidSignature は署名検証に失敗したWebhookリクエストを示す。
var ErrInvalidSignature = linebot.ErrInvalidSignature

// EventKind はボットが処理するイベントの種別。
type EventKind int

const (
	EventUnknown EventKind = iota
	EventText
	EventImage
)

// Event はSDKのイベントから処理に必要な情報だけを抜き出したもの。
type Event struct {
	UserID     string
	ReplyToken string
	Kind       EventKind
	MessageID  string // 画像イベントのコンテンツ取得用
	Text       string // テキストイベントの本文
	Redelivery bool   // LINEプラットフォームによる再送かどうか
}

// Client はlinebot SDKのラッパー。
type Client struct {
	bot *linebot.Client
}

// New は新しいClientを生成する。
func New(channelSecret, channelToken string) (*Client, error) {
	bot, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		return nil, fmt.Errorf("LINEクライアントの初期化に失敗: %w", err)
	}
	return &Client{bot: bot}, nil
}

// ParseWebhook はWebhookリクエストを検証して処理対象イベントに変換する。
// 署名不正の場合はErrInvalidSignatureを返す。
// テキスト・画像以外のメッセージやメッセージ以外のイベントは黙って読み飛ばす。
func (c *Client) ParseWebhook(r *http.Request) ([]Event, error) {
	lineEvents, err := c.bot.ParseRequest(r)
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("Webhookのパースに失敗: %w", err)
	}

	events := make([]Event, 0, len(lineEvents))
	for _, ev := range lineEvents {
		if ev.Type != linebot.EventTypeMessage || ev.Source == nil {
			continue
		}

		base := Event{
			UserID:     ev.Source.UserID,
			ReplyToken: ev.ReplyToken,
			Redelivery: ev.DeliveryContext.IsRedelivery,
		}

		switch msg := ev.Message.(type) {
		case *linebot.TextMessage:
			base.Kind = EventText
			base.MessageID = msg.ID
			base.Text = msg.Text
		case *linebot.ImageMessage:
			base.Kind = EventImage
			base.MessageID = msg.ID
		default:
			continue
		}

		events = append(events, base)
	}

	return events, nil
}

// Reply は応答トークンでテキストメッセージを返信する。
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	if _, err := c.bot.ReplyMessage(replyToken, linebot.NewTextMessage(text)).WithContext(ctx).Do(); err != nil {
		return fmt.Errorf("返信に失敗: %w", err)
	}
	return nil
}

// Push はユーザーにテキストメッセージをプッシュ送信する。
func (c *Client) Push(ctx context.Context, userID, text string) error {
	if _, err := c.bot.PushMessage(userID, linebot.NewTextMessage(text)).WithContext(ctx).Do(); err != nil {
		return fmt.Errorf("プッシュ送信に失敗: %w", err)
	}
	return nil
}

// FetchContent はメッセージIDで画像などのバイナリコンテンツを取得する。
func (c *Client) FetchContent(ctx context.Context, messageID string) ([]byte, error) {
	resp, err := c.bot.GetMessageContent(messageID).WithContext(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("コンテンツ取得に失敗: %w", err)
	}
	defer resp.Content.Close()

	data, err := io.ReadAll(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("コンテンツ読み取りに失敗: %w", err)
	}
	return data, nil
}
