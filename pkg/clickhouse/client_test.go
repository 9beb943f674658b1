package clickhouse

import (
	"context"
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

func TestDefaultsFollowProtocol(t *testing.T) {
	native := Config{Host: "ch.local"}
	native.setDefaults()
	if native.Port != 9000 || native.Database != "jarvis" || native.DialTimeout != 5*time.Second {
		t.Fatalf("native defaults %+v", native)
	}

	web := Config{Host: "ch.local", HTTP: true}
	web.setDefaults()
	if web.Port != 8123 {
		t.Fatalf("http port = %d", web.Port)
	}
}

func TestOptionsCarrySettings(t *testing.T) {
	cfg := Config{
		Host:               "ch.local",
		User:               "jarvis",
		Password:           "p@ss",
		MaxExecutionTime:   30 * time.Second,
		AsyncInsert:        true,
		WaitForAsyncInsert: true,
	}
	cfg.setDefaults()
	o := cfg.options()

	if o.Protocol != ch.Native || len(o.Addr) != 1 || o.Addr[0] != "ch.local:9000" {
		t.Fatalf("addr/protocol %v %v", o.Protocol, o.Addr)
	}
	if o.Auth.Username != "jarvis" || o.Auth.Password != "p@ss" || o.Auth.Database != "default" {
		t.Fatalf("auth %+v", o.Auth)
	}
	if o.Settings["max_execution_time"] != 30 || o.Settings["async_insert"] != 1 || o.Settings["wait_for_async_insert"] != 1 {
		t.Fatalf("settings %v", o.Settings)
	}
}

func TestOptionsOmitAsyncWhenDisabled(t *testing.T) {
	cfg := Config{Host: "localhost", HTTP: true}
	cfg.setDefaults()
	o := cfg.options()
	if o.Protocol != ch.HTTP {
		t.Fatalf("protocol = %v", o.Protocol)
	}
	if _, ok := o.Settings["async_insert"]; ok {
		t.Fatalf("async_insert should be absent: %v", o.Settings)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without host")
	}
}
