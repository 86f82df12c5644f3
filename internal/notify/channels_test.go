package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCallMeBotSend(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/start.php" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	old := callMeBotAPIBase
	callMeBotAPIBase = server.URL
	defer func() { callMeBotAPIBase = old }()

	c := &CallMeBot{On: true, Username: "@someone"}
	if err := c.Send(context.Background(), "urgent alert"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if gotQuery["user"][0] != "@someone" {
		t.Errorf("unexpected user param: %v", gotQuery["user"])
	}
	if gotQuery["text"][0] != "urgent alert" {
		t.Errorf("message not passed through: %v", gotQuery["text"])
	}
}

func TestCallMeBotMissingUsername(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should be made without a username")
	}))
	defer server.Close()

	old := callMeBotAPIBase
	callMeBotAPIBase = server.URL
	defer func() { callMeBotAPIBase = old }()

	c := &CallMeBot{On: true}
	if err := c.Send(context.Background(), "alert"); err == nil {
		t.Fatal("expected error for missing username")
	}
}

func TestCallMeBotNon200IsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	old := callMeBotAPIBase
	callMeBotAPIBase = server.URL
	defer func() { callMeBotAPIBase = old }()

	c := &CallMeBot{On: true, Username: "@someone"}
	if err := c.Send(context.Background(), "alert"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestCallMeBotDisabledSkipsNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("disabled channel must not make a network call")
	}))
	defer server.Close()

	old := callMeBotAPIBase
	callMeBotAPIBase = server.URL
	defer func() { callMeBotAPIBase = old }()

	c := &CallMeBot{On: false, Username: "@someone"}
	if err := c.Send(context.Background(), "alert"); err != nil {
		t.Fatalf("disabled channel must report success, got %v", err)
	}
}

func TestPushoverSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostFormValue("token") != "tok" || r.PostFormValue("user") != "usr" {
			t.Fatalf("missing credentials in payload: %v", r.PostForm)
		}
		if r.PostFormValue("priority") != "2" {
			t.Errorf("unexpected priority: %s", r.PostFormValue("priority"))
		}
		// Emergency priority needs retry and expire.
		if r.PostFormValue("retry") == "" || r.PostFormValue("expire") == "" {
			t.Error("retry/expire missing from payload")
		}
		if r.PostFormValue("message") != "urgent alert" {
			t.Errorf("message not passed through: %s", r.PostFormValue("message"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	old := pushoverAPIURL
	pushoverAPIURL = server.URL
	defer func() { pushoverAPIURL = old }()

	p := &Pushover{On: true, UserKey: "usr", APIToken: "tok", Priority: 2}
	if err := p.Send(context.Background(), "urgent alert"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
}

func TestPushoverMissingCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should be made without credentials")
	}))
	defer server.Close()

	old := pushoverAPIURL
	pushoverAPIURL = server.URL
	defer func() { pushoverAPIURL = old }()

	for _, p := range []*Pushover{
		{On: true, UserKey: "usr"},
		{On: true, APIToken: "tok"},
	} {
		if err := p.Send(context.Background(), "alert"); err == nil {
			t.Error("expected error for incomplete credentials")
		}
	}
}

func TestPushoverDisabledSkipsNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("disabled channel must not make a network call")
	}))
	defer server.Close()

	old := pushoverAPIURL
	pushoverAPIURL = server.URL
	defer func() { pushoverAPIURL = old }()

	p := &Pushover{On: false}
	if err := p.Send(context.Background(), "alert"); err != nil {
		t.Fatalf("disabled channel must report success, got %v", err)
	}
}
