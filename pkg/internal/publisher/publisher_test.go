package publisher_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/minio/minio-go/v7"

	"github.com/yeisme/postvault/pkg/configs"
	"github.com/yeisme/postvault/pkg/internal/model"
	"github.com/yeisme/postvault/pkg/internal/publisher"
)

func sampleRequest() publisher.Request {
	return publisher.Request{
		Key:      "0123456789abcdef",
		FileID:   "01HZFILE",
		Platform: "blog",
		Title:    "Launch notes",
		Content:  "We shipped.",
		Settings: model.PlatformSettings{Kind: model.KindSelf},
	}
}

func TestWebhookSubmit(t *testing.T) {
	var gotKey, gotAuth string

	var got publisher.Request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")

		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p-42","url":"https://blog.example/p/42"}`))
	}))
	defer srv.Close()

	wh, err := publisher.NewWebhook("blog", configs.PlatformConfig{Type: configs.PublisherWebhook, URL: srv.URL, Token: "secret"})
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}

	res, err := wh.Submit(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if res.RemoteID != "p-42" || res.RemoteURL != "https://blog.example/p/42" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if gotKey != "0123456789abcdef" || gotAuth != "Bearer secret" {
		t.Fatalf("headers: key=%q auth=%q", gotKey, gotAuth)
	}

	if got.Title != "Launch notes" || got.FileID != "01HZFILE" {
		t.Fatalf("body not forwarded: %+v", got)
	}
}

func TestWebhookErrors(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		rejected bool
	}{
		{"client error", http.StatusUnprocessableEntity, `{"error":"title too long"}`, true},
		{"server error", http.StatusBadGateway, `upstream down`, false},
		{"missing id", http.StatusOK, `{}`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			wh, _ := publisher.NewWebhook("blog", configs.PlatformConfig{URL: srv.URL})

			_, err := wh.Submit(context.Background(), sampleRequest())
			if err == nil {
				t.Fatal("expected error")
			}

			if errors.Is(err, publisher.ErrRejected) != tc.rejected {
				t.Fatalf("rejected=%v for %v", !tc.rejected, err)
			}
		})
	}

	if _, err := publisher.NewWebhook("blog", configs.PlatformConfig{}); err == nil {
		t.Fatal("expected missing url error")
	}
}

type memObjects struct {
	objects map[string][]byte
}

func (m *memObjects) PutBytes(_ context.Context, key string, body []byte, _ string, _ map[string]string) (minio.UploadInfo, error) {
	m.objects[key] = body
	return minio.UploadInfo{Key: key, Size: int64(len(body))}, nil
}

func (m *memObjects) ObjectURL(key string) string { return "http://minio.local/posts/" + key }

func TestArchiveSubmitIsIdempotent(t *testing.T) {
	objs := &memObjects{objects: map[string][]byte{}}
	a := publisher.NewArchive("archive", "posts", objs)

	req := sampleRequest()

	first, err := a.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	second, _ := a.Submit(context.Background(), req)
	if first != second || len(objs.objects) != 1 {
		t.Fatalf("resubmit should target the same object: %+v vs %+v (%d objects)", first, second, len(objs.objects))
	}

	if !strings.HasPrefix(first.RemoteID, "posts/archive/01HZFILE/") || !strings.HasSuffix(first.RemoteURL, first.RemoteID) {
		t.Fatalf("unexpected result: %+v", first)
	}
}

func TestRegistryRouting(t *testing.T) {
	reg := publisher.NewRegistry(&configs.PublisherConfig{
		Platforms: map[string]configs.PlatformConfig{
			// 未启用对象存储时 archive 被跳过
			"archive": {Type: configs.PublisherArchive},
		},
	}, publisher.Deps{})

	if reg.Has("archive") {
		t.Fatal("archive should be skipped without object storage")
	}

	reg.Register("fake", publisher.Func(func(_ context.Context, req publisher.Request) (publisher.Result, error) {
		return publisher.Result{RemoteID: "fake-" + req.FileID}, nil
	}), 0, 0)

	req := sampleRequest()
	req.Platform = "fake"

	res, err := reg.Submit(context.Background(), req)
	if err != nil || res.RemoteID != "fake-01HZFILE" {
		t.Fatalf("Submit = %+v, %v", res, err)
	}

	req.Platform = "nowhere"
	if _, err := reg.Submit(context.Background(), req); !errors.Is(err, publisher.ErrUnknownPlatform) {
		t.Fatalf("expected ErrUnknownPlatform, got %v", err)
	}
}

func TestRegistryBreakerOpens(t *testing.T) {
	reg := publisher.NewRegistry(&configs.PublisherConfig{
		Breaker: configs.CircuitBreakerConfig{
			Enabled:           true,
			FailureRate:       0.5,
			MinRequests:       2,
			IntervalSeconds:   60,
			TimeoutSeconds:    60,
			MaxRequestsInHalf: 1,
		},
	}, publisher.Deps{})

	var calls int

	reg.Register("flaky", publisher.Func(func(context.Context, publisher.Request) (publisher.Result, error) {
		calls++
		return publisher.Result{}, errors.New("timeout")
	}), 0, 0)

	req := sampleRequest()
	req.Platform = "flaky"

	for range 4 {
		_, _ = reg.Submit(context.Background(), req)
	}

	if calls != 2 {
		t.Fatalf("breaker should stop calls after 2 failures, got %d", calls)
	}
}
