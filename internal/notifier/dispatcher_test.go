package notifier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"visawatch/internal/catalog"
	"visawatch/internal/eventbus"
	"visawatch/internal/visa"
	"visawatch/pkg/logx"
)

type fakeMailer struct {
	calls    atomic.Int64
	attempts int
	err      error
	delay    time.Duration
}

func (f *fakeMailer) Send(ctx context.Context, m Mail) (int, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return f.attempts, ctx.Err()
		}
	}
	return f.attempts, f.err
}

type fakePusher struct {
	calls atomic.Int64
	err   error
}

func (f *fakePusher) Push(ctx context.Context, ev visa.ChangeEvent) error {
	f.calls.Add(1)
	return f.err
}

type fakeBot struct {
	calls atomic.Int64
	err   error
}

func (f *fakeBot) Send(ctx context.Context, ev visa.ChangeEvent) error {
	f.calls.Add(1)
	return f.err
}

func changeEvent(receivers ...string) visa.ChangeEvent {
	return visa.ChangeEvent{
		Visa:      catalog.VisaF,
		Post:      beijing(),
		Prev:      dateP(2024, 5, 10),
		Curr:      date(2024, 5, 1),
		Receivers: receivers,
	}
}

func TestDispatchAllChannelsSucceed(t *testing.T) {
	t.Parallel()
	m, p, b := &fakeMailer{attempts: 1}, &fakePusher{}, &fakeBot{}
	d := New(Config{Frontend: "visa.example.org"}, m, p, b, nil, logx.Nop())

	out := d.Dispatch(context.Background(), changeEvent("a@example.com"))

	if !out.Email.OK || !out.Websocket.OK || !out.Bot.OK {
		t.Fatalf("outcome = %+v", out)
	}
	if m.calls.Load() != 1 || p.calls.Load() != 1 || b.calls.Load() != 1 {
		t.Fatalf("calls = %d/%d/%d", m.calls.Load(), p.calls.Load(), b.calls.Load())
	}
}

func TestDispatchChannelIsolation(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		m    *fakeMailer
		p    *fakePusher
		b    *fakeBot
	}{
		{"email fails", &fakeMailer{attempts: 10, err: errors.New("smtp down")}, &fakePusher{}, &fakeBot{}},
		{"websocket fails", &fakeMailer{attempts: 1}, &fakePusher{err: errors.New("dial refused")}, &fakeBot{}},
		{"bot fails", &fakeMailer{attempts: 1}, &fakePusher{}, &fakeBot{err: errors.New("gateway 502")}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := New(Config{}, tc.m, tc.p, tc.b, nil, logx.Nop())
			out := d.Dispatch(context.Background(), changeEvent("a@example.com"))

			okCount := 0
			for _, r := range []ChannelResult{out.Email, out.Websocket, out.Bot} {
				if r.OK {
					okCount++
				}
			}
			if okCount != 2 {
				t.Fatalf("%d channels ok, want 2: %+v", okCount, out)
			}
			// All three were still attempted.
			if tc.m.calls.Load() != 1 || tc.p.calls.Load() != 1 || tc.b.calls.Load() != 1 {
				t.Fatalf("calls = %d/%d/%d, want 1/1/1",
					tc.m.calls.Load(), tc.p.calls.Load(), tc.b.calls.Load())
			}
		})
	}
}

func TestDispatchSlowChannelDoesNotDelayOthers(t *testing.T) {
	t.Parallel()
	m := &fakeMailer{attempts: 1, delay: 400 * time.Millisecond}
	p, b := &fakePusher{}, &fakeBot{}
	d := New(Config{}, m, p, b, nil, logx.Nop())

	out := d.Dispatch(context.Background(), changeEvent("a@example.com"))

	if out.Websocket.Took > 200*time.Millisecond || out.Bot.Took > 200*time.Millisecond {
		t.Fatalf("fast channels waited on the slow one: ws=%v bot=%v",
			out.Websocket.Took, out.Bot.Took)
	}
	if !out.Email.OK {
		t.Fatalf("email outcome = %+v", out.Email)
	}
}

func TestDispatchSkipsEmailWithoutReceivers(t *testing.T) {
	t.Parallel()
	m, p, b := &fakeMailer{attempts: 1}, &fakePusher{}, &fakeBot{}
	d := New(Config{}, m, p, b, nil, logx.Nop())

	out := d.Dispatch(context.Background(), changeEvent())

	if !out.Email.Skipped {
		t.Fatalf("email should be skipped: %+v", out.Email)
	}
	if m.calls.Load() != 0 {
		t.Fatal("mailer must not be called without receivers")
	}
	if !out.Websocket.OK || !out.Bot.OK {
		t.Fatalf("other channels must still fire: %+v", out)
	}
}

func TestDispatchBotAllowList(t *testing.T) {
	t.Parallel()
	b := &fakeBot{}
	d := New(Config{BotVisaTypes: []string{"F", "J"}}, &fakeMailer{attempts: 1}, &fakePusher{}, b, nil, logx.Nop())

	ev := changeEvent("a@example.com")
	ev.Visa = catalog.VisaB
	out := d.Dispatch(context.Background(), ev)

	if !out.Bot.Skipped || b.calls.Load() != 0 {
		t.Fatalf("bot channel should be skipped for B: %+v, calls=%d", out.Bot, b.calls.Load())
	}

	ev.Visa = catalog.VisaJ
	out = d.Dispatch(context.Background(), ev)
	if out.Bot.Skipped || b.calls.Load() != 1 {
		t.Fatalf("bot channel should fire for J: %+v, calls=%d", out.Bot, b.calls.Load())
	}
}

func TestDispatchPublishesBusEvents(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	d := New(Config{}, &fakeMailer{attempts: 2}, &fakePusher{err: errors.New("down")}, &fakeBot{}, bus, logx.Nop())
	d.Dispatch(context.Background(), changeEvent("a@example.com"))

	got := map[string]string{} // channel -> event type
	for i := 0; i < 3; i++ {
		select {
		case e := <-ch:
			de, ok := e.Data.(DispatchEvent)
			if !ok {
				t.Fatalf("unexpected payload %T", e.Data)
			}
			got[de.Channel] = e.Type
		case <-time.After(2 * time.Second):
			t.Fatalf("missing bus events, got %v", got)
		}
	}
	if got[ChannelEmail] != "dispatch.sent" {
		t.Fatalf("email event = %q", got[ChannelEmail])
	}
	if got[ChannelWebsocket] != "dispatch.failed" {
		t.Fatalf("websocket event = %q", got[ChannelWebsocket])
	}
	if got[ChannelBot] != "dispatch.sent" {
		t.Fatalf("bot event = %q", got[ChannelBot])
	}
}

func TestDispatchNilChannelsSkipped(t *testing.T) {
	t.Parallel()
	d := New(Config{}, nil, nil, nil, nil, logx.Nop())
	out := d.Dispatch(context.Background(), changeEvent("a@example.com"))
	if !out.Email.Skipped || !out.Websocket.Skipped || !out.Bot.Skipped {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestApplySwapsAllowList(t *testing.T) {
	t.Parallel()
	b := &fakeBot{}
	d := New(Config{BotVisaTypes: []string{"F"}}, nil, nil, b, nil, logx.Nop())

	d.Apply(Config{BotVisaTypes: []string{"H"}})

	ev := changeEvent()
	ev.Visa = catalog.VisaH
	out := d.Dispatch(context.Background(), ev)
	if out.Bot.Skipped {
		t.Fatal("H should be allowed after Apply")
	}
}
