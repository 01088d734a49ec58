package controlplane

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/pinnacle/internal/core"
	"github.com/bnema/pinnacle/internal/signal"
)

func TestSignalServiceSubscribeDeliversEmittedMessages(t *testing.T) {
	bus := signal.NewBus()
	svc := &SignalService{Bus: bus}

	client, server := pipeConn()
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := EncodePayload(SubscribeSignalRequest{Kind: signal.WindowOpened})
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	env := Envelope{Service: "Signal", Method: "Subscribe", Shape: ServerStreaming, RequestId: 1, Payload: req}

	w := &ConnWriter{conn: server}
	if err := svc.Handle(ctx, w, env, func(fn func()) { fn() }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if bus.SubscriberCount(signal.WindowOpened) != 1 {
		t.Fatalf("expected one subscriber, got %d", bus.SubscriberCount(signal.WindowOpened))
	}

	bus.Emit(signal.Message{Kind: signal.WindowOpened, Payload: core.WindowId(7)})

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := ReadEnvelope(client)
	if err != nil {
		t.Fatalf("read pushed frame: %v", err)
	}
	var msg SignalMessage
	if err := DecodePayload(frame.Payload, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Kind != signal.WindowOpened {
		t.Fatalf("got kind %v, want WindowOpened", msg.Kind)
	}
	if id, ok := msg.Payload.(core.WindowId); !ok || id != 7 {
		t.Fatalf("got payload %#v, want WindowId(7)", msg.Payload)
	}
}

func TestSignalServiceSubscribeEndsStreamOnContextCancel(t *testing.T) {
	bus := signal.NewBus()
	svc := &SignalService{Bus: bus}

	client, server := pipeConn()
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())

	req, _ := EncodePayload(SubscribeSignalRequest{Kind: signal.OutputDisconnected})
	env := Envelope{Service: "Signal", Method: "Subscribe", Shape: ServerStreaming, RequestId: 2, Payload: req}

	w := &ConnWriter{conn: server}
	if err := svc.Handle(ctx, w, env, func(fn func()) { fn() }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	cancel()
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := client.Read(make([]byte, 1)); err == nil {
		t.Fatal("expected the stream goroutine to exit and close nothing further without writing")
	}
}
