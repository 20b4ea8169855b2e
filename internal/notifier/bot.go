package notifier

import (
	"context"
	"errors"
	"sync"

	"visawatch/internal/visa"
	"visawatch/pkg/logx"
)

// BotChannel groups the QQ and Telegram senders into the dispatcher's
// single bot channel. The two platforms are attempted concurrently and
// independently; either may be nil when unconfigured.
type BotChannel struct {
	qq  *QQGateway
	tg  *TelegramBot
	log logx.Logger
}

func NewBotChannel(qq *QQGateway, tg *TelegramBot, log logx.Logger) *BotChannel {
	return &BotChannel{qq: qq, tg: tg, log: log}
}

func (b *BotChannel) Send(ctx context.Context, ev visa.ChangeEvent) error {
	var (
		wg           sync.WaitGroup
		qqErr, tgErr error
	)

	if b.qq != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			qqErr = b.qq.Send(ctx, ev)
		}()
	}
	if b.tg != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tgErr = b.tg.Send(ctx, ev)
		}()
	}
	wg.Wait()

	return errors.Join(qqErr, tgErr)
}
