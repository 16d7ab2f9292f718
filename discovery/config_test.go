package discovery

import (
	"testing"
	"time"
)

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		ep   Endpoint
		path string
		want string
	}{
		{Endpoint{Host: "h", Port: 9, APIURI: "/api"}, "/widgets", "http://h:9/api/widgets"},
		{Endpoint{Host: "10.0.0.1", Port: 8080}, "/x", "http://10.0.0.1:8080/x"},
		{Endpoint{Host: "h", Port: 9, APIURI: "/api/"}, "/x", "http://h:9/api//x"},
		{Endpoint{Host: "h", Port: 9, APIURI: "/api"}, "", "http://h:9/api"},
	}
	for _, tt := range tests {
		if got := tt.ep.URL(tt.path); got != tt.want {
			t.Errorf("URL(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRegistryConfig(t *testing.T) {
	var c RegistryConfig
	c.ApplyDefaults()
	if c.Timeout != DefaultRegistryTimeout {
		t.Errorf("timeout = %v", c.Timeout)
	}
	if err := c.Validate(); err == nil {
		t.Error("expected missing host error")
	}
	c.Host, c.Port = "registry", 70000
	if err := c.Validate(); err == nil {
		t.Error("expected port range error")
	}
	c.Port = 8500
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}

	custom := RegistryConfig{Timeout: time.Second}
	custom.ApplyDefaults()
	if custom.Timeout != time.Second {
		t.Errorf("explicit timeout overwritten: %v", custom.Timeout)
	}
}

func TestServiceURL(t *testing.T) {
	c := RegistryConfig{Host: "r", Port: 1}
	tests := map[string]string{
		"config":     "http://r:1/v1/services/config",
		"a/b":        "http://r:1/v1/services/a%2Fb",
		"with space": "http://r:1/v1/services/with%20space",
		"query?x=1":  "http://r:1/v1/services/query%3Fx=1",
	}
	for name, want := range tests {
		if got := c.ServiceURL(name); got != want {
			t.Errorf("ServiceURL(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	c := Config{Registry: RegistryConfig{Host: "r", Port: 1}}
	if err := c.Validate(); err == nil {
		t.Error("expected missing service name error")
	}
	c.ServiceName = "config"
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
}
