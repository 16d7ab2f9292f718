package etcd

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/notify"
)

func TestServiceFromKey(t *testing.T) {
	tests := []struct {
		prefix, key, want string
	}{
		{"/registry/services/", "/registry/services/orders", "orders"},
		{"/registry/services/", "/registry/services/orders/10.0.0.1:80", "orders"},
		{"/registry/services", "/registry/services/orders", "orders"},
		{"/registry/services/", "/other/orders", ""},
		{"/registry/services/", "/registry/services/", ""},
	}
	for _, tt := range tests {
		if got := serviceFromKey(tt.prefix, tt.key); got != tt.want {
			t.Errorf("serviceFromKey(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
}

func TestChangedServices(t *testing.T) {
	kv := func(k string) *clientv3.Event {
		return &clientv3.Event{Kv: &mvccpb.KeyValue{Key: []byte(k)}}
	}
	events := []*clientv3.Event{
		kv("/registry/services/orders/a"),
		kv("/registry/services/billing"),
		kv("/registry/services/orders/b"),
		{},
	}
	got := changedServices("/registry/services/", events)
	if strings.Join(got, ",") != "orders,billing" {
		t.Errorf("changedServices = %v", got)
	}
}

// TestWatchIntegration runs against a real etcd when ETCD_ENDPOINTS is set.
func TestWatchIntegration(t *testing.T) {
	endpoints := os.Getenv("ETCD_ENDPOINTS")
	if endpoints == "" {
		t.Skip("ETCD_ENDPOINTS not set")
	}
	cfg := notify.Config{Etcd: notify.EtcdConfig{
		Endpoints: strings.Split(endpoints, ","),
		Prefix:    "/serviceclient-test/" + time.Now().Format("150405.000") + "/",
	}}
	sub, err := New(cfg, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	connected := make(chan struct{}, 1)
	changes := make(chan notify.Event, 4)
	if err := sub.Subscribe(context.Background(), notify.Handlers{
		OnConnect: func() { connected <- struct{}{} },
		OnChange:  func(ev notify.Event) { changes <- ev },
	}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-connected:
	case <-time.After(10 * time.Second):
		t.Fatal("watch not created")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := sub.cli.Put(ctx, sub.Prefix()+"orders", `[]`); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-changes:
		if ev.ServiceName != "orders" {
			t.Errorf("serviceName = %q", ev.ServiceName)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("change not delivered")
	}
}
