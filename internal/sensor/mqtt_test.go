package sensor

import (
	"context"
	"testing"
	"time"
)

func TestMQTTFeedPayloads(t *testing.T) {
	feed := &MQTTFeed{prefix: "fresheye/sensor"}

	if err := feed.applyTemperature([]byte("22.75")); err != nil {
		t.Fatalf("applyTemperature: %v", err)
	}
	if err := feed.applyHumidity([]byte("58.2")); err != nil {
		t.Fatalf("applyHumidity: %v", err)
	}

	r, err := feed.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if r.Temperature != 22.75 || r.Humidity != 58.2 {
		t.Errorf("reading = %+v", r)
	}
	if !r.Connected {
		t.Error("fresh reading should be connected")
	}
}

func TestMQTTFeedDHTPayload(t *testing.T) {
	feed := &MQTTFeed{}
	if err := feed.applyDHT([]byte(`{"temperature": 18.5, "humidity": 71}`)); err != nil {
		t.Fatalf("applyDHT: %v", err)
	}
	r, err := feed.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if r.Temperature != 18.5 || r.Humidity != 71 {
		t.Errorf("reading = %+v", r)
	}
}

func TestMQTTFeedBadPayloads(t *testing.T) {
	feed := &MQTTFeed{}
	if err := feed.applyTemperature([]byte("warm")); err == nil {
		t.Error("expected error for non-numeric temperature")
	}
	if err := feed.applyDHT([]byte("{broken")); err == nil {
		t.Error("expected error for broken json")
	}
}

func TestMQTTFeedBeforeFirstMessage(t *testing.T) {
	feed := &MQTTFeed{}
	r, err := feed.Fetch(context.Background())
	if err == nil {
		t.Error("expected error before any message arrived")
	}
	if r.Connected {
		t.Error("reading should be disconnected before any message")
	}
}

func TestMQTTFeedGoesStale(t *testing.T) {
	feed := &MQTTFeed{}
	if err := feed.applyTemperature([]byte("20")); err != nil {
		t.Fatal(err)
	}
	feed.mu.Lock()
	feed.updated = time.Now().Add(-2 * staleAfter)
	feed.mu.Unlock()

	r, err := feed.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if r.Connected {
		t.Error("old reading should report disconnected")
	}
}
