package kafka

import (
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/serviceclient/notify"
)

func TestEventFromMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     kafkago.Message
		want    string
		wantErr bool
	}{
		{"value", kafkago.Message{Value: []byte(`{"serviceName":"orders"}`)}, "orders", false},
		{"value wins over key", kafkago.Message{Key: []byte("k"), Value: []byte(`{"serviceName":"orders"}`)}, "orders", false},
		{"key fallback on bad value", kafkago.Message{Key: []byte("billing"), Value: []byte(`nope`)}, "billing", false},
		{"key fallback on empty name", kafkago.Message{Key: []byte("billing"), Value: []byte(`{}`)}, "billing", false},
		{"nothing", kafkago.Message{Value: []byte(`{}`)}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := eventFromMessage(tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if ev.ServiceName != tt.want {
				t.Errorf("serviceName = %q, want %q", ev.ServiceName, tt.want)
			}
		})
	}
}

func TestRegisteredProvider(t *testing.T) {
	sub, err := notify.New(notify.Config{Provider: notify.ProviderKafka}, notify.Target{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	s, ok := sub.(*Subscriber)
	if !ok {
		t.Fatalf("provider = %T", sub)
	}
	if s.Topic() != "registry.service-changed" {
		t.Errorf("topic = %q", s.Topic())
	}
}
