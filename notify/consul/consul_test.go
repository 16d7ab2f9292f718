package consul

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/notify"
)

// fakeConsul serves /v1/health/service/<name> with a scripted index sequence.
func fakeConsul(t *testing.T, indexes []uint64) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/health/service/orders") {
			http.NotFound(w, r)
			return
		}
		n := int(atomic.AddInt32(&calls, 1)) - 1
		if n >= len(indexes) {
			<-r.Context().Done()
			return
		}
		w.Header().Set("X-Consul-Index", strconv.FormatUint(indexes[n], 10))
		w.Header().Set("X-Consul-LastContact", "0")
		w.Header().Set("X-Consul-KnownLeader", "true")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestWatchEmitsConnectThenChanges(t *testing.T) {
	srv, _ := fakeConsul(t, []uint64{5, 5, 7, 9})

	sub, err := New(notify.Config{
		Consul: notify.ConsulConfig{Address: strings.TrimPrefix(srv.URL, "http://")},
	}, "orders", logger.Nop())
	if err != nil {
		t.Fatal(err)
	}

	var connects int32
	changes := make(chan notify.Event, 8)
	if err := sub.Subscribe(context.Background(), notify.Handlers{
		OnConnect: func() { atomic.AddInt32(&connects, 1) },
		OnChange:  func(ev notify.Event) { changes <- ev },
	}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		select {
		case ev := <-changes:
			if ev.ServiceName != "orders" {
				t.Errorf("serviceName = %q", ev.ServiceName)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("change %d not delivered", i)
		}
	}
	if err := sub.Close(); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&connects); n != 1 {
		t.Errorf("connects = %d, want 1", n)
	}
	select {
	case ev := <-changes:
		t.Errorf("unexpected extra change %+v", ev)
	default:
	}
}

func TestNewRequiresService(t *testing.T) {
	if _, err := New(notify.Config{}, "", nil); err == nil {
		t.Error("expected error without service name")
	}
}

func TestRegisteredProvider(t *testing.T) {
	sub, err := notify.New(notify.Config{Provider: notify.ProviderConsul}, notify.Target{ServiceName: "orders"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sub.(*Subscriber); !ok {
		t.Errorf("provider = %T", sub)
	}
}
