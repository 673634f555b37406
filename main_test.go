package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"postscheduler/pkg/scheduler"
	"postscheduler/platform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TWITTER_CONSUMER_KEY",
		"TWITTER_CONSUMER_SECRET",
		"TWITTER_ACCESS_TOKEN",
		"TWITTER_ACCESS_SECRET",
		"GOOGLE_CREDENTIALS_JSON",
		"BLOGGER_BLOG_ID",
	} {
		t.Setenv(key, "")
	}
}

func TestBuildPublishersLocalDevFallsBackToMock(t *testing.T) {
	clearCredentialEnv(t)

	publishers, err := buildPublishers(context.Background(), testLogger(), false)
	if err != nil {
		t.Fatalf("buildPublishers() error: %v", err)
	}

	for _, p := range []scheduler.Platform{scheduler.PlatformTwitter, scheduler.PlatformBlogger} {
		pub, ok := publishers.For(p)
		if !ok {
			t.Fatalf("platform %s not registered", p)
		}
		if _, isMock := pub.(*platform.Mock); !isMock {
			t.Errorf("platform %s without credentials = %T, want mock", p, pub)
		}
	}
}

func TestBuildPublishersProductionRequiresCredentials(t *testing.T) {
	clearCredentialEnv(t)

	_, err := buildPublishers(context.Background(), testLogger(), true)
	if err == nil {
		t.Fatal("buildPublishers() = nil error, want missing credentials to be fatal in production")
	}
	if !scheduler.IsConfigError(err) {
		t.Errorf("error = %v, want a configuration error", err)
	}
}
